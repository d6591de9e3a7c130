package api

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sharecycle/sharecycle/internal/model"
	"github.com/sharecycle/sharecycle/internal/store"
)

// UsersHandler handles the profile and admin user endpoints.
type UsersHandler struct {
	DB *sql.DB
}

type updateProfileRequest struct {
	DisplayName string `json:"displayName"`
}

// Profile handles GET /api/profile.
func (h *UsersHandler) Profile(w http.ResponseWriter, r *http.Request) {
	user, err := store.GetUser(r.Context(), h.DB, actorID(r))
	if err != nil {
		writeError(w, r, err, "failed to get profile")
		return
	}
	if user == nil || user.DeletedAt != nil {
		jsonError(w, http.StatusNotFound, "user not found")
		return
	}
	jsonResponse(w, http.StatusOK, user)
}

// UpdateProfile handles PUT /api/profile.
func (h *UsersHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req updateProfileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.DisplayName = strings.TrimSpace(req.DisplayName)
	if req.DisplayName == "" {
		jsonError(w, http.StatusBadRequest, "display name required")
		return
	}

	if err := store.UpdateUserProfile(r.Context(), h.DB, actorID(r), req.DisplayName); err != nil {
		writeError(w, r, err, "failed to update profile")
		return
	}
	h.Profile(w, r)
}

// ProfileItems handles GET /api/profile/items: every listing of the caller,
// whatever its status.
func (h *UsersHandler) ProfileItems(w http.ResponseWriter, r *http.Request) {
	items, err := store.ListItems(r.Context(), h.DB, store.ItemFilter{OwnerID: actorID(r)})
	if err != nil {
		writeError(w, r, err, "failed to list items")
		return
	}
	if items == nil {
		items = []model.Item{}
	}
	jsonResponse(w, http.StatusOK, items)
}

// List handles GET /api/users.
func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := store.ListUsers(r.Context(), h.DB)
	if err != nil {
		writeError(w, r, err, "failed to list users")
		return
	}
	if users == nil {
		users = []model.User{}
	}
	jsonResponse(w, http.StatusOK, users)
}

// Delete handles DELETE /api/users/{id}.
func (h *UsersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	if id == actorID(r) {
		jsonError(w, http.StatusBadRequest, "cannot delete your own account")
		return
	}

	err := store.DeleteUser(r.Context(), h.DB, id)
	if errors.Is(err, store.ErrUserNotFound) {
		jsonError(w, http.StatusNotFound, "user not found")
		return
	}
	if err != nil {
		writeError(w, r, err, "failed to delete user")
		return
	}

	slog.Info("user deleted", "id", id, "by", GetSession(r.Context()).Username)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "user deleted"})
}
