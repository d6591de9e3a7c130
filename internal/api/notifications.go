package api

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/sharecycle/sharecycle/internal/model"
	"github.com/sharecycle/sharecycle/internal/notify"
	"github.com/sharecycle/sharecycle/internal/store"
)

// NotificationsHandler handles the in-app notification endpoints.
type NotificationsHandler struct {
	DB *sql.DB

	// Unread, if set, has its counters cleared when notifications are read.
	Unread notify.UnreadResetter
}

// List handles GET /api/notifications?limit=.
func (h *NotificationsHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := store.ListNotifications(r.Context(), h.DB, actorID(r), int(queryInt(r, "limit")))
	if err != nil {
		writeError(w, r, err, "failed to list notifications")
		return
	}
	if list == nil {
		list = []model.Notification{}
	}
	jsonResponse(w, http.StatusOK, list)
}

// UnreadCount handles GET /api/notifications/unread-count.
func (h *NotificationsHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	n, err := store.CountUnreadNotifications(r.Context(), h.DB, actorID(r))
	if err != nil {
		writeError(w, r, err, "failed to count notifications")
		return
	}
	jsonResponse(w, http.StatusOK, map[string]int{"count": n})
}

// MarkAllRead handles POST /api/notifications/read.
func (h *NotificationsHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	userID := actorID(r)
	n, err := store.MarkAllNotificationsRead(r.Context(), h.DB, userID, time.Now().UTC())
	if err != nil {
		writeError(w, r, err, "failed to mark notifications read")
		return
	}
	h.resetUnread(r, userID)
	jsonResponse(w, http.StatusOK, map[string]int64{"marked": n})
}

// MarkRead handles POST /api/notifications/{id}/read.
func (h *NotificationsHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID := actorID(r)
	found, err := store.MarkNotificationRead(r.Context(), h.DB, userID, r.PathValue("id"), time.Now().UTC())
	if err != nil {
		writeError(w, r, err, "failed to mark notification read")
		return
	}
	if !found {
		jsonError(w, http.StatusNotFound, "notification not found")
		return
	}
	h.resetUnread(r, userID)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "notification read"})
}

func (h *NotificationsHandler) resetUnread(r *http.Request, userID int64) {
	if h.Unread == nil {
		return
	}
	if err := h.Unread.ResetUnread(r.Context(), userID); err != nil {
		slog.Warn("resetting unread counter", "user_id", userID, "error", err)
	}
}
