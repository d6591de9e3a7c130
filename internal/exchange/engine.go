// Package exchange implements the request lifecycle shared by exchange and
// donation requests: submission, bilateral acceptance, rejection, the
// chat-linked handoff confirmation and finalization.
package exchange

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sharecycle/sharecycle/internal/model"
	"github.com/sharecycle/sharecycle/internal/notify"
	"github.com/sharecycle/sharecycle/internal/store"
)

const (
	maxMessageLength   = 2000
	maxRecipientLength = 200
	qrPayloadBytes     = 32
)

// Engine applies lifecycle operations. Each mutation runs in its own
// transaction and ends with a conditional status update, so concurrent
// actions on one request never both succeed.
type Engine struct {
	DB       *sql.DB
	Notifier notify.Notifier
	Now      func() time.Time
}

// New creates an engine. n may be nil.
func New(db *sql.DB, n notify.Notifier) *Engine {
	return &Engine{DB: db, Notifier: n, Now: time.Now}
}

func (e *Engine) now() time.Time {
	if e.Now == nil {
		return time.Now().UTC()
	}
	return e.Now().UTC()
}

// event is a notification queued during a transaction and sent after commit.
type event struct {
	userID    int64
	eventType string
	payload   notify.Payload
}

// emit delivers queued events. The transaction is already committed, so
// delivery is detached from the caller's cancellation.
func (e *Engine) emit(ctx context.Context, events []event) {
	ctx = context.WithoutCancel(ctx)
	for _, ev := range events {
		notify.Emit(ctx, e.Notifier, ev.userID, ev.eventType, ev.payload)
	}
}

func payloadFor(r *model.Request, actorID int64) notify.Payload {
	return notify.Payload{
		RequestID: r.ID,
		ChatID:    r.ChatID,
		Kind:      string(r.Kind),
		Status:    string(r.Status),
		ItemTitle: r.ItemTitle,
		ActorID:   actorID,
	}
}

// SubmitInput holds the fields of a new request.
type SubmitInput struct {
	Kind             model.RequestKind
	ItemID           int64
	OfferedItemID    *int64
	RequesterID      int64
	RecipientName    string
	RecipientContact string
	Message          string
}

func (in *SubmitInput) normalize() error {
	in.RecipientName = strings.TrimSpace(in.RecipientName)
	in.RecipientContact = strings.TrimSpace(in.RecipientContact)
	in.Message = strings.TrimSpace(in.Message)

	switch in.Kind {
	case model.KindDonation:
		if in.RecipientName == "" || in.RecipientContact == "" {
			return errInvalid("recipient name and contact are required")
		}
		if in.OfferedItemID != nil {
			return errInvalid("donation requests cannot offer an item")
		}
	case model.KindExchange:
	default:
		return errInvalid("unknown request kind %q", in.Kind)
	}

	if in.ItemID <= 0 {
		return errInvalid("item is required")
	}
	if len(in.RecipientName) > maxRecipientLength || len(in.RecipientContact) > maxRecipientLength {
		return errInvalid("recipient fields must be at most %d characters", maxRecipientLength)
	}
	if len(in.Message) > maxMessageLength {
		return errInvalid("message must be at most %d characters", maxMessageLength)
	}
	return nil
}

// Submit creates a pending request together with its chat.
func (e *Engine) Submit(ctx context.Context, in SubmitInput) (*model.Request, error) {
	if in.RequesterID <= 0 {
		return nil, errUnauthenticated()
	}
	if err := in.normalize(); err != nil {
		return nil, err
	}

	var created *model.Request
	err := store.WithTx(ctx, e.DB, func(tx *sql.Tx) error {
		item, err := store.GetItem(ctx, tx, in.ItemID)
		if err != nil {
			return err
		}
		if item == nil || item.DeletedAt != nil {
			return errNotFound("item")
		}
		if item.OwnerID == in.RequesterID {
			return errForbidden("you cannot request your own item")
		}
		if item.ListingType != string(in.Kind) {
			return errInvalid("item is listed for %s, not %s", item.ListingType, in.Kind)
		}

		existing, err := store.FindActiveRequest(ctx, tx, item.ID, in.RequesterID)
		if err != nil {
			return err
		}
		if existing != nil {
			return errDuplicate(existing.ID)
		}
		if !item.Available() {
			return errInvalid("item is no longer available")
		}

		if in.OfferedItemID != nil {
			offered, err := store.GetItem(ctx, tx, *in.OfferedItemID)
			if err != nil {
				return err
			}
			if offered == nil || offered.DeletedAt != nil {
				return errNotFound("offered item")
			}
			if offered.OwnerID != in.RequesterID {
				return errForbidden("you can only offer your own items")
			}
			if !offered.Available() {
				return errInvalid("offered item is no longer available")
			}
		}

		now := e.now()
		r := &model.Request{
			ID:               uuid.NewString(),
			Kind:             in.Kind,
			ItemID:           item.ID,
			OfferedItemID:    in.OfferedItemID,
			RequesterID:      in.RequesterID,
			OwnerID:          item.OwnerID,
			Status:           model.StatusPending,
			RecipientName:    in.RecipientName,
			RecipientContact: in.RecipientContact,
			Message:          in.Message,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if err := store.InsertRequest(ctx, tx, r); err != nil {
			if errors.Is(err, store.ErrActiveRequestExists) {
				if existing, _ := store.FindActiveRequest(ctx, tx, item.ID, in.RequesterID); existing != nil {
					return errDuplicate(existing.ID)
				}
				return errDuplicate("")
			}
			return err
		}

		qr, err := newQRPayload()
		if err != nil {
			return err
		}
		chat := &model.Chat{
			ID:          uuid.NewString(),
			RequestID:   r.ID,
			OwnerID:     r.OwnerID,
			RequesterID: r.RequesterID,
			QRPayload:   qr,
			CreatedAt:   now,
		}
		if err := store.InsertChat(ctx, tx, chat); err != nil {
			return err
		}

		created, err = store.GetRequest(ctx, tx, r.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	e.emit(ctx, []event{{created.OwnerID, notify.EventRequestSubmitted, payloadFor(created, created.RequesterID)}})
	return created, nil
}

func newQRPayload() (string, error) {
	b := make([]byte, qrPayloadBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating qr payload: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// loader finds the request an operation targets inside a transaction.
type loader func(ctx context.Context, q store.Querier) (*model.Request, error)

func byRequest(kind model.RequestKind, id string) loader {
	return func(ctx context.Context, q store.Querier) (*model.Request, error) {
		r, err := store.GetRequest(ctx, q, id)
		if err != nil {
			return nil, err
		}
		if r == nil || (kind != "" && r.Kind != kind) {
			return nil, errNotFound("request")
		}
		return r, nil
	}
}

func byChat(chatID string) loader {
	return func(ctx context.Context, q store.Querier) (*model.Request, error) {
		c, err := store.GetChat(ctx, q, chatID)
		if err != nil {
			return nil, err
		}
		if c == nil {
			return nil, errNotFound("chat")
		}
		r, err := store.GetRequest(ctx, q, c.RequestID)
		if err != nil {
			return nil, err
		}
		if r == nil {
			return nil, errNotFound("request")
		}
		return r, nil
	}
}

// authorize returns the party actorID plays in r. A non-empty want requires
// that exact party.
func authorize(r *model.Request, actorID int64, want model.Party) (model.Party, error) {
	if actorID <= 0 {
		return "", errUnauthenticated()
	}
	party := r.Party(actorID)
	if party == "" {
		return "", errForbidden("you are not a party to this request")
	}
	if want != "" && party != want {
		return "", errForbidden("only the %s may do this", want)
	}
	return party, nil
}

// Accept records the acceptance of one party. party names the role the
// caller claims and must match the actor's actual role.
func (e *Engine) Accept(ctx context.Context, kind model.RequestKind, requestID string, actorID int64, party model.Party) (*model.Request, error) {
	if party != model.PartyOwner && party != model.PartyRequester {
		return nil, errInvalid("unknown party %q", party)
	}
	return e.act(ctx, byRequest(kind, requestID), actorID, ActionAccept, party)
}

// Reject moves a non-terminal, unconfirmed request to rejected. Either party
// may reject.
func (e *Engine) Reject(ctx context.Context, kind model.RequestKind, requestID string, actorID int64) (*model.Request, error) {
	return e.act(ctx, byRequest(kind, requestID), actorID, ActionReject, "")
}

// AcceptInChat accepts the request linked to a chat, in whichever role the
// actor holds.
func (e *Engine) AcceptInChat(ctx context.Context, chatID string, actorID int64) (*model.Request, error) {
	return e.act(ctx, byChat(chatID), actorID, ActionAccept, "")
}

// RejectInChat rejects the request linked to a chat.
func (e *Engine) RejectInChat(ctx context.Context, chatID string, actorID int64) (*model.Request, error) {
	return e.act(ctx, byChat(chatID), actorID, ActionReject, "")
}

func (e *Engine) act(ctx context.Context, load loader, actorID int64, action Action, want model.Party) (*model.Request, error) {
	var (
		updated *model.Request
		events  []event
	)
	err := store.WithTx(ctx, e.DB, func(tx *sql.Tx) error {
		r, err := load(ctx, tx)
		if err != nil {
			return err
		}
		party, err := authorize(r, actorID, want)
		if err != nil {
			return err
		}
		next, err := Next(r.Status, action, party)
		if err != nil {
			return err
		}
		if err := setStatus(ctx, tx, r.ID, r.Status, next, e.now()); err != nil {
			return err
		}

		updated, err = store.GetRequest(ctx, tx, r.ID)
		if err != nil {
			return err
		}
		events = transitionEvents(updated, actorID)
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.emit(ctx, events)
	return updated, nil
}

func setStatus(ctx context.Context, q store.Querier, id string, from, to model.RequestStatus, now time.Time) error {
	err := store.CompareAndSetStatus(ctx, q, id, from, to, now)
	if errors.Is(err, store.ErrConflict) {
		return errConcurrent()
	}
	return err
}

func counterpart(r *model.Request, actorID int64) int64 {
	if actorID == r.OwnerID {
		return r.RequesterID
	}
	return r.OwnerID
}

func transitionEvents(r *model.Request, actorID int64) []event {
	p := payloadFor(r, actorID)
	other := counterpart(r, actorID)

	switch r.Status {
	case model.StatusAcceptedByOwner, model.StatusAcceptedByRequester:
		return []event{{other, notify.EventRequestAccepted, p}}
	case model.StatusConfirmed:
		return []event{
			{r.OwnerID, notify.EventRequestConfirmed, p},
			{r.RequesterID, notify.EventRequestConfirmed, p},
		}
	case model.StatusRejected:
		return []event{{other, notify.EventRequestRejected, p}}
	case model.StatusFinalized:
		return []event{
			{r.OwnerID, notify.EventRequestFinalized, p},
			{r.RequesterID, notify.EventRequestFinalized, p},
		}
	}
	return nil
}

// Finalize completes the handoff of a confirmed request once both parties
// have confirmed it in the chat.
func (e *Engine) Finalize(ctx context.Context, chatID string, actorID int64) (*model.Request, error) {
	var (
		updated *model.Request
		events  []event
	)
	err := store.WithTx(ctx, e.DB, func(tx *sql.Tx) error {
		chat, err := store.GetChat(ctx, tx, chatID)
		if err != nil {
			return err
		}
		if chat == nil {
			return errNotFound("chat")
		}
		r, err := byChat(chatID)(ctx, tx)
		if err != nil {
			return err
		}
		party, err := authorize(r, actorID, "")
		if err != nil {
			return err
		}
		if !chat.BothConfirmed() {
			if r.Status.Terminal() {
				return errTransition(r.Status, ActionFinalize, party)
			}
			return newError(KindInvalidStateTransition, "both parties must confirm the handoff first")
		}

		updated, events, err = e.finalize(ctx, tx, r, actorID, party)
		return err
	})
	if err != nil {
		return nil, err
	}

	e.emit(ctx, events)
	return updated, nil
}

// finalize moves r to finalized, updates the item statuses and rejects every
// other active request touching the same items.
func (e *Engine) finalize(ctx context.Context, tx *sql.Tx, r *model.Request, actorID int64, party model.Party) (*model.Request, []event, error) {
	next, err := Next(r.Status, ActionFinalize, party)
	if err != nil {
		return nil, nil, err
	}
	now := e.now()
	if err := setStatus(ctx, tx, r.ID, r.Status, next, now); err != nil {
		return nil, nil, err
	}

	itemStatus := model.ItemStatusExchanged
	if r.Kind == model.KindDonation {
		itemStatus = model.ItemStatusDonated
	}
	affected := []int64{r.ItemID}
	if err := store.SetItemStatus(ctx, tx, r.ItemID, itemStatus); err != nil {
		return nil, nil, err
	}
	if r.OfferedItemID != nil {
		if err := store.SetItemStatus(ctx, tx, *r.OfferedItemID, model.ItemStatusExchanged); err != nil {
			return nil, nil, err
		}
		affected = append(affected, *r.OfferedItemID)
	}

	updated, err := store.GetRequest(ctx, tx, r.ID)
	if err != nil {
		return nil, nil, err
	}
	events := transitionEvents(updated, actorID)

	siblings, err := store.ListActiveRequestsTouching(ctx, tx, affected...)
	if err != nil {
		return nil, nil, err
	}
	for _, s := range siblings {
		if s.ID == r.ID {
			continue
		}
		if err := setStatus(ctx, tx, s.ID, s.Status, model.StatusRejected, now); err != nil {
			return nil, nil, err
		}
		s.Status = model.StatusRejected
		p := payloadFor(&s, 0)
		p.Text = "The item is no longer available."
		events = append(events, event{s.RequesterID, notify.EventRequestRejected, p})
		if s.OfferedItemID != nil && slices.Contains(affected, *s.OfferedItemID) {
			p.Text = "The offered item is no longer available."
			events = append(events, event{s.OwnerID, notify.EventRequestRejected, p})
		}
	}

	return updated, events, nil
}

// Get returns a request visible to actorID.
func (e *Engine) Get(ctx context.Context, kind model.RequestKind, requestID string, actorID int64) (*model.Request, error) {
	r, err := byRequest(kind, requestID)(ctx, e.DB)
	if err != nil {
		return nil, err
	}
	if _, err := authorize(r, actorID, ""); err != nil {
		return nil, err
	}
	return r, nil
}

// ListForUser returns the requests of a kind where userID is either party.
func (e *Engine) ListForUser(ctx context.Context, kind model.RequestKind, userID int64) ([]model.Request, error) {
	if userID <= 0 {
		return nil, errUnauthenticated()
	}
	return store.ListRequestsForUser(ctx, e.DB, kind, userID)
}

// History returns the completed requests of a kind where userID took part.
func (e *Engine) History(ctx context.Context, kind model.RequestKind, userID int64) ([]model.Request, error) {
	if userID <= 0 {
		return nil, errUnauthenticated()
	}
	return store.ListRequestHistory(ctx, e.DB, kind, userID)
}

// ListForItem returns the requests made for an item. Only its owner may
// list them.
func (e *Engine) ListForItem(ctx context.Context, itemID, actorID int64) ([]model.Request, error) {
	if actorID <= 0 {
		return nil, errUnauthenticated()
	}
	item, err := store.GetItem(ctx, e.DB, itemID)
	if err != nil {
		return nil, err
	}
	if item == nil || item.DeletedAt != nil {
		return nil, errNotFound("item")
	}
	if item.OwnerID != actorID {
		return nil, errForbidden("only the owner can view requests for this item")
	}
	return store.ListRequestsForItem(ctx, e.DB, itemID)
}
