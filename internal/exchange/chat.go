package exchange

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"strings"

	"github.com/sharecycle/sharecycle/internal/model"
	"github.com/sharecycle/sharecycle/internal/notify"
	"github.com/sharecycle/sharecycle/internal/store"
)

// Confirmation is the outcome of a handoff confirmation.
type Confirmation struct {
	Chat      *model.Chat    `json:"chat"`
	Request   *model.Request `json:"request"`
	Finalized bool           `json:"finalized"`
}

// Confirm records that actorID scanned the chat's QR payload at the handoff.
// Confirming twice is a no-op. When both parties have confirmed, the request
// is finalized in the same transaction.
func (e *Engine) Confirm(ctx context.Context, chatID string, actorID int64, payload string) (*Confirmation, error) {
	var (
		result *Confirmation
		events []event
	)
	err := store.WithTx(ctx, e.DB, func(tx *sql.Tx) error {
		chat, err := loadChat(ctx, tx, chatID, actorID)
		if err != nil {
			return err
		}
		r, err := store.GetRequest(ctx, tx, chat.RequestID)
		if err != nil {
			return err
		}
		if r == nil {
			return errNotFound("request")
		}
		party := r.Party(actorID)

		if r.Status != model.StatusConfirmed {
			return newError(KindInvalidStateTransition,
				"handoff can only be confirmed once both parties accepted (request is %s)", r.Status)
		}
		if subtle.ConstantTimeCompare([]byte(strings.TrimSpace(payload)), []byte(chat.QRPayload)) != 1 {
			return errInvalid("QR code does not match this chat")
		}

		alreadyConfirmed := (party == model.PartyOwner && chat.OwnerConfirmed) ||
			(party == model.PartyRequester && chat.RequesterConfirmed)
		if err := store.SetConfirmed(ctx, tx, chat.ID, party, e.now()); err != nil {
			return err
		}
		if chat, err = store.GetChat(ctx, tx, chat.ID); err != nil {
			return err
		}

		result = &Confirmation{Chat: chat, Request: r}
		if !alreadyConfirmed {
			p := payloadFor(r, actorID)
			events = append(events, event{counterpart(r, actorID), notify.EventChatConfirmed, p})
		}
		if !chat.BothConfirmed() {
			return nil
		}

		updated, finalEvents, err := e.finalize(ctx, tx, r, actorID, party)
		if err != nil {
			return err
		}
		result.Request = updated
		result.Chat.RequestStatus = updated.Status
		result.Finalized = true
		events = append(events, finalEvents...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.emit(ctx, events)
	return result, nil
}

// loadChat returns a chat visible to actorID.
func loadChat(ctx context.Context, q store.Querier, chatID string, actorID int64) (*model.Chat, error) {
	if actorID <= 0 {
		return nil, errUnauthenticated()
	}
	chat, err := store.GetChat(ctx, q, chatID)
	if err != nil {
		return nil, err
	}
	if chat == nil {
		return nil, errNotFound("chat")
	}
	if !chat.Participant(actorID) {
		return nil, errForbidden("you are not a participant of this chat")
	}
	return chat, nil
}

// GetChat returns a chat to one of its participants.
func (e *Engine) GetChat(ctx context.Context, chatID string, actorID int64) (*model.Chat, error) {
	return loadChat(ctx, e.DB, chatID, actorID)
}

// ListChats returns the chats userID participates in.
func (e *Engine) ListChats(ctx context.Context, userID int64) ([]model.Chat, error) {
	if userID <= 0 {
		return nil, errUnauthenticated()
	}
	return store.ListChatsForUser(ctx, e.DB, userID)
}

// Messages returns chat messages posted after afterID, oldest first.
func (e *Engine) Messages(ctx context.Context, chatID string, actorID, afterID int64, limit int) ([]model.Message, error) {
	if _, err := loadChat(ctx, e.DB, chatID, actorID); err != nil {
		return nil, err
	}
	return store.ListMessages(ctx, e.DB, chatID, afterID, limit)
}

// PostMessage appends a message to a chat and notifies the other participant.
func (e *Engine) PostMessage(ctx context.Context, chatID string, actorID int64, body string) (*model.Message, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, errInvalid("message is empty")
	}
	if len(body) > maxMessageLength {
		return nil, errInvalid("message must be at most %d characters", maxMessageLength)
	}

	chat, err := loadChat(ctx, e.DB, chatID, actorID)
	if err != nil {
		return nil, err
	}
	msg, err := store.InsertMessage(ctx, e.DB, chat.ID, actorID, body, e.now())
	if err != nil {
		return nil, err
	}

	recipient := chat.OwnerID
	if actorID == chat.OwnerID {
		recipient = chat.RequesterID
	}
	notify.Emit(context.WithoutCancel(ctx), e.Notifier, recipient, notify.EventChatMessage, notify.Payload{
		RequestID: chat.RequestID,
		ChatID:    chat.ID,
		ItemTitle: chat.ItemTitle,
		ActorID:   actorID,
		Text:      body,
	})
	return msg, nil
}
