package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/forgo/shepherd/api/internal/middleware"
	"github.com/forgo/shepherd/api/internal/model"
)

// maxBodyBytes caps JSON request bodies
const maxBodyBytes = 1 << 20

type validatable interface {
	Validate() []model.FieldError
}

// DecodeJSON reads exactly one JSON value into v. Unknown fields and
// trailing data are errors.
func DecodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("unexpected data after JSON body")
	}
	return nil
}

// decodeAndValidate writes a 400 for an unreadable body and a 422 for one
// that fails validation. It returns true when req is ready to use.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, req validatable) bool {
	if err := DecodeJSON(r, req); err != nil {
		WriteError(w, model.NewBadRequestError("Invalid request body"))
		return false
	}
	if errs := req.Validate(); len(errs) > 0 {
		WriteError(w, model.NewValidationError(errs))
		return false
	}
	return true
}

// decodeOptional accepts an empty body as the zero request
func decodeOptional(w http.ResponseWriter, r *http.Request, req validatable) bool {
	if r.Body == nil || r.Body == http.NoBody || r.ContentLength == 0 {
		return true
	}
	return decodeAndValidate(w, r, req)
}

// ParsePageRequest reads page and limit. Absent values take the defaults,
// anything non-positive is a 400, and limit is clamped to the maximum.
func ParsePageRequest(r *http.Request) (model.PageRequest, *model.ProblemDetails) {
	page, pd := positiveQuery(r, "page", 1)
	if pd != nil {
		return model.PageRequest{}, pd
	}
	limit, pd := positiveQuery(r, "limit", model.DefaultPageLimit)
	if pd != nil {
		return model.PageRequest{}, pd
	}
	return model.NewPageRequest(page, limit), nil
}

func positiveQuery(r *http.Request, name string, fallback int) (int, *model.ProblemDetails) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, model.NewBadRequestError(name + " must be a positive integer")
	}
	if name == "page" && n > model.MaxPage {
		return 0, model.NewBadRequestError(fmt.Sprintf("page must be at most %d", model.MaxPage))
	}
	return n, nil
}

// ParseListQuery adds the AIP-160 filter to the page request
func ParseListQuery(r *http.Request) (model.ListQuery, *model.ProblemDetails) {
	page, pd := ParsePageRequest(r)
	if pd != nil {
		return model.ListQuery{}, pd
	}
	return model.ListQuery{Filter: r.URL.Query().Get("filter"), PageRequest: page}, nil
}

func parseBoolQuery(r *http.Request, name string) (bool, *model.ProblemDetails) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, model.NewBadRequestError(name + " must be true or false")
	}
	return v, nil
}

// requireUser writes a 401 when the request carries no member
func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		WriteError(w, model.NewUnauthorizedError("authentication required"))
		return "", false
	}
	return userID, true
}

// isStaff prefers the role RequireStaff loaded from the database and falls
// back to the token claims
func isStaff(r *http.Request) bool {
	if role := middleware.GetRole(r.Context()); role != "" {
		return role == model.UserRoleStaff || role == model.UserRoleAdmin
	}
	claims := middleware.GetClaims(r.Context())
	return claims != nil && claims.IsStaff()
}
