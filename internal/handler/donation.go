package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/forgo/shepherd/api/internal/model"
)

// maxWebhookBytes bounds the provider payload read into memory
const maxWebhookBytes = 65536

// DonationOperations is what the giving endpoints call
type DonationOperations interface {
	Checkout(ctx context.Context, userID string, req *model.CheckoutRequest) (*model.CheckoutResult, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
	History(ctx context.Context, userID string, page model.PageRequest) (*model.Page[*model.Donation], model.GivingSummary, error)
	List(ctx context.Context, q model.ListQuery) (*model.Page[*model.Donation], error)
	Record(ctx context.Context, actorID string, req *model.RecordDonationRequest) (*model.Donation, error)
	UpdateStatus(ctx context.Context, actorID, id string, req *model.UpdateDonationStatusRequest) (*model.Donation, error)
}

// DonationHandler handles giving endpoints and the payment webhook
type DonationHandler struct {
	donations DonationOperations
}

// NewDonationHandler creates a new donation handler
func NewDonationHandler(donations DonationOperations) *DonationHandler {
	return &DonationHandler{donations: donations}
}

// Checkout handles POST /v1/donations/checkout
func (h *DonationHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req model.CheckoutRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.donations.Checkout(r.Context(), userID, &req)
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "checkout"))
		return
	}

	WriteData(w, http.StatusCreated, result, map[string]string{
		"checkout": result.CheckoutURL,
		"history":  "/v1/me/donations",
	})
}

// Webhook handles POST /v1/webhooks/stripe
func (h *DonationHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBytes))
	if err != nil {
		WriteError(w, model.NewBadRequestError("unreadable payload"))
		return
	}

	if err := h.donations.HandleWebhook(r.Context(), payload, r.Header.Get("Stripe-Signature")); err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "payment webhook"))
		return
	}

	WriteJSON(w, http.StatusOK, map[string]bool{"received": true})
}

// historyResponse is a page of gifts with the year-to-date summary alongside
type historyResponse struct {
	Data       []*model.Donation   `json:"data"`
	Summary    model.GivingSummary `json:"summary"`
	Pagination *PaginationInfo     `json:"pagination"`
}

// Mine handles GET /v1/me/donations
func (h *DonationHandler) Mine(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	page, perr := ParsePageRequest(r)
	if perr != nil {
		WriteError(w, perr)
		return
	}

	result, summary, err := h.donations.History(r.Context(), userID, page)
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "giving history"))
		return
	}

	items := result.Items
	if items == nil {
		items = []*model.Donation{}
	}
	WriteJSON(w, http.StatusOK, historyResponse{
		Data:       items,
		Summary:    summary,
		Pagination: paginationOf(result),
	})
}

// List handles GET /v1/admin/donations
func (h *DonationHandler) List(w http.ResponseWriter, r *http.Request) {
	q, perr := ParseListQuery(r)
	if perr != nil {
		WriteError(w, perr)
		return
	}

	result, err := h.donations.List(r.Context(), q)
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "list donations"))
		return
	}

	WritePage(w, result)
}

// Record handles POST /v1/admin/donations
func (h *DonationHandler) Record(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req model.RecordDonationRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	d, err := h.donations.Record(r.Context(), actorID, &req)
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "record donation"))
		return
	}

	WriteData(w, http.StatusCreated, d, nil)
}

// UpdateStatus handles PATCH /v1/admin/donations/{id}
func (h *DonationHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req model.UpdateDonationStatusRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	d, err := h.donations.UpdateStatus(r.Context(), actorID, r.PathValue("id"), &req)
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "update donation"))
		return
	}

	WriteData(w, http.StatusOK, d, nil)
}
