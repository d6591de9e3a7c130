package api

import (
	"context"
	"net/http"

	"github.com/sharecycle/sharecycle/internal/exchange"
	"github.com/sharecycle/sharecycle/internal/model"
)

// ChatsHandler handles the chat endpoints, including the chat-scoped
// request actions.
type ChatsHandler struct {
	Engine *exchange.Engine
}

type postMessageRequest struct {
	Body string `json:"body"`
}

type confirmRequest struct {
	Payload string `json:"payload"`
}

// List handles GET /api/chats.
func (h *ChatsHandler) List(w http.ResponseWriter, r *http.Request) {
	chats, err := h.Engine.ListChats(r.Context(), actorID(r))
	if err != nil {
		writeError(w, r, err, "failed to list chats")
		return
	}
	if chats == nil {
		chats = []model.Chat{}
	}
	jsonResponse(w, http.StatusOK, chats)
}

// Get handles GET /api/chats/{chatId}.
func (h *ChatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	chat, err := h.Engine.GetChat(r.Context(), r.PathValue("chatId"), actorID(r))
	if err != nil {
		writeError(w, r, err, "failed to get chat")
		return
	}
	jsonResponse(w, http.StatusOK, chat)
}

// Messages handles GET /api/chats/{chatId}/messages?after=&limit=.
func (h *ChatsHandler) Messages(w http.ResponseWriter, r *http.Request) {
	messages, err := h.Engine.Messages(r.Context(), r.PathValue("chatId"), actorID(r),
		queryInt(r, "after"), int(queryInt(r, "limit")))
	if err != nil {
		writeError(w, r, err, "failed to list messages")
		return
	}
	if messages == nil {
		messages = []model.Message{}
	}
	jsonResponse(w, http.StatusOK, messages)
}

// PostMessage handles POST /api/chats/{chatId}/messages.
func (h *ChatsHandler) PostMessage(w http.ResponseWriter, r *http.Request) {
	var req postMessageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	msg, err := h.Engine.PostMessage(r.Context(), r.PathValue("chatId"), actorID(r), req.Body)
	if err != nil {
		writeError(w, r, err, "failed to post message")
		return
	}
	jsonResponse(w, http.StatusCreated, msg)
}

// Confirm handles POST /api/chats/{chatId}/confirm with the scanned QR payload.
func (h *ChatsHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.Engine.Confirm(r.Context(), r.PathValue("chatId"), actorID(r), req.Payload)
	if err != nil {
		writeError(w, r, err, "failed to confirm handoff")
		return
	}
	jsonResponse(w, http.StatusOK, result)
}

// Accept handles POST /api/exchange/chat/{chatId}/accept and
// PATCH /api/chats/{chatId}/accept.
func (h *ChatsHandler) Accept(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, h.Engine.AcceptInChat, "failed to accept request")
}

// Reject handles POST /api/exchange/chat/{chatId}/reject and
// PATCH /api/chats/{chatId}/decline.
func (h *ChatsHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, h.Engine.RejectInChat, "failed to reject request")
}

// Finalize handles POST /api/exchange/chat/{chatId}/finalize.
func (h *ChatsHandler) Finalize(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, h.Engine.Finalize, "failed to finalize request")
}

type chatAction func(ctx context.Context, chatID string, actorID int64) (*model.Request, error)

func (h *ChatsHandler) respond(w http.ResponseWriter, r *http.Request, action chatAction, failure string) {
	updated, err := action(r.Context(), r.PathValue("chatId"), actorID(r))
	if err != nil {
		writeError(w, r, err, failure)
		return
	}
	jsonResponse(w, http.StatusOK, updated)
}
