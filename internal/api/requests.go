package api

import (
	"net/http"

	"github.com/sharecycle/sharecycle/internal/exchange"
	"github.com/sharecycle/sharecycle/internal/model"
)

// RequestsHandler serves one kind of request. Exchange and donation requests
// share the lifecycle and differ only in the route prefix and submit fields.
type RequestsHandler struct {
	Engine *exchange.Engine
	Kind   model.RequestKind
}

type submitRequest struct {
	ItemID           int64  `json:"itemId"`
	OfferedItemID    *int64 `json:"offeredItemId"`
	RecipientName    string `json:"recipientName"`
	RecipientContact string `json:"recipientContact"`
	Message          string `json:"message"`
}

// Create handles POST /api/exchange and POST /api/donation-requests.
func (h *RequestsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	created, err := h.Engine.Submit(r.Context(), exchange.SubmitInput{
		Kind:             h.Kind,
		ItemID:           req.ItemID,
		OfferedItemID:    req.OfferedItemID,
		RequesterID:      actorID(r),
		RecipientName:    req.RecipientName,
		RecipientContact: req.RecipientContact,
		Message:          req.Message,
	})
	if err != nil {
		writeError(w, r, err, "failed to submit request")
		return
	}
	jsonResponse(w, http.StatusCreated, created)
}

// Mine handles GET /api/exchange/my-requests and
// GET /api/donation-requests/my/requests.
func (h *RequestsHandler) Mine(w http.ResponseWriter, r *http.Request) {
	requests, err := h.Engine.ListForUser(r.Context(), h.Kind, actorID(r))
	if err != nil {
		writeError(w, r, err, "failed to list requests")
		return
	}
	if requests == nil {
		requests = []model.Request{}
	}
	jsonResponse(w, http.StatusOK, requests)
}

// History handles GET /api/profile/exchange-history and
// GET /api/donations/my-donations.
func (h *RequestsHandler) History(w http.ResponseWriter, r *http.Request) {
	requests, err := h.Engine.History(r.Context(), h.Kind, actorID(r))
	if err != nil {
		writeError(w, r, err, "failed to list history")
		return
	}
	if requests == nil {
		requests = []model.Request{}
	}
	jsonResponse(w, http.StatusOK, requests)
}

// Get handles GET .../{id}.
func (h *RequestsHandler) Get(w http.ResponseWriter, r *http.Request) {
	req, err := h.Engine.Get(r.Context(), h.Kind, r.PathValue("id"), actorID(r))
	if err != nil {
		writeError(w, r, err, "failed to get request")
		return
	}
	jsonResponse(w, http.StatusOK, req)
}

// AcceptOwner handles POST .../{id}/accept-owner.
func (h *RequestsHandler) AcceptOwner(w http.ResponseWriter, r *http.Request) {
	h.accept(w, r, model.PartyOwner)
}

// AcceptRequester handles POST .../{id}/accept-requester.
func (h *RequestsHandler) AcceptRequester(w http.ResponseWriter, r *http.Request) {
	h.accept(w, r, model.PartyRequester)
}

func (h *RequestsHandler) accept(w http.ResponseWriter, r *http.Request, party model.Party) {
	updated, err := h.Engine.Accept(r.Context(), h.Kind, r.PathValue("id"), actorID(r), party)
	if err != nil {
		writeError(w, r, err, "failed to accept request")
		return
	}
	jsonResponse(w, http.StatusOK, updated)
}

// Reject handles POST .../{id}/reject.
func (h *RequestsHandler) Reject(w http.ResponseWriter, r *http.Request) {
	updated, err := h.Engine.Reject(r.Context(), h.Kind, r.PathValue("id"), actorID(r))
	if err != nil {
		writeError(w, r, err, "failed to reject request")
		return
	}
	jsonResponse(w, http.StatusOK, updated)
}
