package api

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/sharecycle/sharecycle/internal/exchange"
	"github.com/sharecycle/sharecycle/internal/imaging"
	"github.com/sharecycle/sharecycle/internal/model"
	"github.com/sharecycle/sharecycle/internal/store"
)

// ItemsHandler handles listing endpoints.
type ItemsHandler struct {
	DB     *sql.DB
	Engine *exchange.Engine
}

type itemRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	ListingType string `json:"listingType"`
}

func (req *itemRequest) normalize() string {
	req.Title = strings.TrimSpace(req.Title)
	req.Description = strings.TrimSpace(req.Description)
	req.Category = strings.TrimSpace(req.Category)
	if req.Title == "" {
		return "title required"
	}
	if len(req.Title) > 200 {
		return "title must be at most 200 characters"
	}
	return ""
}

// List handles GET /api/items. Only available listings are shown unless
// ?status= asks for another status.
func (h *ItemsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := store.ItemFilter{
		Status:      q.Get("status"),
		ListingType: q.Get("listingType"),
		OwnerID:     queryInt(r, "ownerId"),
	}
	if f.Status == "" {
		f.Status = model.ItemStatusAvailable
	}
	h.list(w, r, f)
}

func (h *ItemsHandler) list(w http.ResponseWriter, r *http.Request, f store.ItemFilter) {
	items, err := store.ListItems(r.Context(), h.DB, f)
	if err != nil {
		writeError(w, r, err, "failed to list items")
		return
	}
	if items == nil {
		items = []model.Item{}
	}
	jsonResponse(w, http.StatusOK, items)
}

// Create handles POST /api/items.
func (h *ItemsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if msg := req.normalize(); msg != "" {
		jsonError(w, http.StatusBadRequest, msg)
		return
	}
	if !model.ValidListingType(req.ListingType) {
		jsonError(w, http.StatusBadRequest, "listingType must be exchange or donation")
		return
	}

	item, err := store.CreateItem(r.Context(), h.DB, actorID(r), req.Title, req.Description, req.Category, req.ListingType)
	if err != nil {
		writeError(w, r, err, "failed to create item")
		return
	}

	slog.Info("item listed", "id", item.ID, "owner", item.OwnerID, "type", item.ListingType)
	jsonResponse(w, http.StatusCreated, item)
}

// loadItem returns the item named by the {id} path value, writing an error
// response and returning nil if it cannot be used.
func (h *ItemsHandler) loadItem(w http.ResponseWriter, r *http.Request, ownerOnly bool) *model.Item {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return nil
	}

	item, err := store.GetItem(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, r, err, "failed to get item")
		return nil
	}
	if item == nil || item.DeletedAt != nil {
		jsonError(w, http.StatusNotFound, "item not found")
		return nil
	}
	if ownerOnly && item.OwnerID != actorID(r) {
		s := GetSession(r.Context())
		if s == nil || s.Role != model.RoleAdmin {
			jsonError(w, http.StatusForbidden, "only the owner can change this item")
			return nil
		}
	}
	return item
}

// Get handles GET /api/items/{id}.
func (h *ItemsHandler) Get(w http.ResponseWriter, r *http.Request) {
	if item := h.loadItem(w, r, false); item != nil {
		jsonResponse(w, http.StatusOK, item)
	}
}

// Update handles PUT /api/items/{id}.
func (h *ItemsHandler) Update(w http.ResponseWriter, r *http.Request) {
	item := h.loadItem(w, r, true)
	if item == nil {
		return
	}

	var req itemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if msg := req.normalize(); msg != "" {
		jsonError(w, http.StatusBadRequest, msg)
		return
	}
	if req.ListingType != "" && req.ListingType != item.ListingType {
		jsonError(w, http.StatusBadRequest, "listing type cannot be changed")
		return
	}

	if err := store.UpdateItem(r.Context(), h.DB, item.ID, req.Title, req.Description, req.Category); err != nil {
		writeError(w, r, err, "failed to update item")
		return
	}

	updated, err := store.GetItem(r.Context(), h.DB, item.ID)
	if err != nil {
		writeError(w, r, err, "failed to get item")
		return
	}
	jsonResponse(w, http.StatusOK, updated)
}

// Delete handles DELETE /api/items/{id}. Items with requests in progress
// cannot be removed.
func (h *ItemsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	item := h.loadItem(w, r, true)
	if item == nil {
		return
	}

	err := store.RemoveIdleItem(r.Context(), h.DB, item.ID)
	if errors.Is(err, store.ErrItemBusy) {
		jsonResponse(w, http.StatusConflict, errorResponse{
			Message: "item has requests in progress, reject them first",
			Kind:    string(exchange.KindInvalidStateTransition),
		})
		return
	}
	if err != nil {
		writeError(w, r, err, "failed to delete item")
		return
	}

	slog.Info("item removed", "id", item.ID)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "item deleted"})
}

// UploadImage handles PUT /api/items/{id}/image. The body is the raw photo.
func (h *ItemsHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	item := h.loadItem(w, r, true)
	if item == nil {
		return
	}

	photo, err := imaging.ProcessListingPhoto(http.MaxBytesReader(w, r.Body, imaging.MaxUploadBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			jsonError(w, http.StatusRequestEntityTooLarge, "photo too large")
			return
		}
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := store.SetItemImage(r.Context(), h.DB, item.ID, photo.Data, photo.MIME); err != nil {
		writeError(w, r, err, "failed to store photo")
		return
	}

	jsonResponse(w, http.StatusOK, map[string]string{"message": "photo uploaded"})
}

// GetImage handles GET /api/items/{id}/image. ?size=thumb returns a square
// thumbnail.
func (h *ItemsHandler) GetImage(w http.ResponseWriter, r *http.Request) {
	item := h.loadItem(w, r, false)
	if item == nil {
		return
	}

	data, mime, err := store.GetItemImage(r.Context(), h.DB, item.ID)
	if err != nil {
		writeError(w, r, err, "failed to get photo")
		return
	}
	if data == nil {
		jsonError(w, http.StatusNotFound, "no photo")
		return
	}

	if r.URL.Query().Get("size") == "thumb" {
		thumb, err := imaging.Thumbnail(data)
		if err != nil {
			writeError(w, r, err, "failed to create thumbnail")
			return
		}
		data, mime = thumb.Data, thumb.MIME
	}

	w.Header().Set("Content-Type", mime)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "private, max-age=300")
	w.Write(data)
}

// ListByUser handles GET /api/items/user/{userId}: a user's available listings.
func (h *ItemsHandler) ListByUser(w http.ResponseWriter, r *http.Request, userID string) {
	id, err := strconv.ParseInt(userID, 10, 64)
	if err != nil || id <= 0 {
		jsonError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	h.list(w, r, store.ItemFilter{OwnerID: id, Status: model.ItemStatusAvailable})
}

// Requests handles GET /api/items/{id}/exchange-requests: the owner's view
// of requests made for the item.
func (h *ItemsHandler) Requests(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	requests, err := h.Engine.ListForItem(r.Context(), id, actorID(r))
	if err != nil {
		writeError(w, r, err, "failed to list requests")
		return
	}
	if requests == nil {
		requests = []model.Request{}
	}
	jsonResponse(w, http.StatusOK, requests)
}

// Subresource handles GET /api/items/{id}/{sub}. The ServeMux cannot hold
// both /items/{id}/image and /items/user/{userId}, so they share this route.
func (h *ItemsHandler) Subresource(w http.ResponseWriter, r *http.Request) {
	id, sub := r.PathValue("id"), r.PathValue("sub")
	switch {
	case id == "user":
		h.ListByUser(w, r, sub)
	case sub == "image":
		h.GetImage(w, r)
	case sub == "exchange-requests":
		if GetSession(r.Context()) == nil {
			jsonError(w, http.StatusUnauthorized, "not authenticated")
			return
		}
		h.Requests(w, r)
	default:
		jsonError(w, http.StatusNotFound, "not found")
	}
}
