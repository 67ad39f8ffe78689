package handler

import (
	"encoding/json"
	"net/http"

	"github.com/forgo/shepherd/api/internal/model"
)

// DataResponse is the envelope for a single resource
type DataResponse struct {
	Data  interface{}       `json:"data"`
	Links map[string]string `json:"_links,omitempty"`
}

// CollectionResponse is the envelope for a listing
type CollectionResponse struct {
	Data       interface{}       `json:"data"`
	Pagination *PaginationInfo   `json:"pagination,omitempty"`
	Links      map[string]string `json:"_links,omitempty"`
}

type PaginationInfo struct {
	Page    int  `json:"page"`
	Limit   int  `json:"limit"`
	Total   int  `json:"total"`
	HasMore bool `json:"has_more"`
}

// WriteJSON encodes body after the status line. A nil body sends headers only.
func WriteJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(body)
}

func WriteData(w http.ResponseWriter, status int, data interface{}, links map[string]string) {
	WriteJSON(w, status, DataResponse{Data: data, Links: links})
}

func WriteCollection(w http.ResponseWriter, status int, data interface{}, pagination *PaginationInfo, links map[string]string) {
	WriteJSON(w, status, CollectionResponse{Data: data, Pagination: pagination, Links: links})
}

// WritePage sends one page of a listing; an empty page encodes data as []
func WritePage[T any](w http.ResponseWriter, page *model.Page[T]) {
	items := page.Items
	if items == nil {
		items = make([]T, 0)
	}
	WriteCollection(w, http.StatusOK, items, &PaginationInfo{
		Page:    page.Page,
		Limit:   page.Limit,
		Total:   page.Total,
		HasMore: page.HasMore(),
	}, nil)
}

// WriteError sends an RFC 9457 problem document
func WriteError(w http.ResponseWriter, problem *model.ProblemDetails) {
	problem.WriteJSON(w)
}

func WriteNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}
