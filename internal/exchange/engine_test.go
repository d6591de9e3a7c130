package exchange

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/sharecycle/sharecycle/internal/db"
	"github.com/sharecycle/sharecycle/internal/model"
	"github.com/sharecycle/sharecycle/internal/notify"
	"github.com/sharecycle/sharecycle/internal/store"
)

type sent struct {
	userID    int64
	eventType string
	requestID string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sent
	err  error

	// cancellable counts deliveries whose context could still be cancelled
	// by the caller.
	cancellable int
}

func (r *recordingNotifier) Notify(ctx context.Context, userID int64, eventType string, p notify.Payload) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, sent{userID, eventType, p.RequestID})
	if ctx.Done() != nil {
		r.cancellable++
	}
	return r.err
}

func (r *recordingNotifier) count(userID int64, eventType string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, s := range r.sent {
		if s.userID == userID && s.eventType == eventType {
			n++
		}
	}
	return n
}

type fixture struct {
	ctx       context.Context
	engine    *Engine
	notifier  *recordingNotifier
	owner     *model.User
	requester *model.User
	stranger  *model.User
	donation  *model.Item
	exchange  *model.Item
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	database := db.NewTestDB(t)
	ctx := context.Background()

	mkUser := func(name string) *model.User {
		u, err := store.CreateUser(ctx, database, name, name, "hash", model.RoleUser)
		if err != nil {
			t.Fatalf("creating user %s: %v", name, err)
		}
		return u
	}
	f := &fixture{
		ctx:       ctx,
		notifier:  &recordingNotifier{},
		owner:     mkUser("owner"),
		requester: mkUser("requester"),
		stranger:  mkUser("stranger"),
	}
	f.engine = New(database, f.notifier)

	var err error
	if f.donation, err = store.CreateItem(ctx, database, f.owner.ID, "Winter coat", "", "clothes", model.ListingDonation); err != nil {
		t.Fatalf("creating item: %v", err)
	}
	if f.exchange, err = store.CreateItem(ctx, database, f.owner.ID, "Guitar", "", "music", model.ListingExchange); err != nil {
		t.Fatalf("creating item: %v", err)
	}
	return f
}

func (f *fixture) submitDonation(t *testing.T, requesterID int64) *model.Request {
	t.Helper()
	r, err := f.engine.Submit(f.ctx, SubmitInput{
		Kind:             model.KindDonation,
		ItemID:           f.donation.ID,
		RequesterID:      requesterID,
		RecipientName:    "Ana",
		RecipientContact: "ana@example.com",
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	return r
}

func (f *fixture) chat(t *testing.T, r *model.Request) *model.Chat {
	t.Helper()
	c, err := store.GetChat(f.ctx, f.engine.DB, r.ChatID)
	if err != nil || c == nil {
		t.Fatalf("loading chat: %v", err)
	}
	return c
}

func TestSubmitCreatesPendingRequestWithChat(t *testing.T) {
	f := newFixture(t)
	r := f.submitDonation(t, f.requester.ID)

	if r.Status != model.StatusPending {
		t.Errorf("expected pending, got %s", r.Status)
	}
	if r.OwnerID != f.owner.ID || r.RequesterID != f.requester.ID {
		t.Errorf("parties not recorded: %+v", r)
	}
	if r.ChatID == "" {
		t.Fatal("expected a chat to be created with the request")
	}
	c := f.chat(t, r)
	if len(c.QRPayload) != 64 {
		t.Errorf("expected 32 byte hex payload, got %q", c.QRPayload)
	}
	if f.notifier.count(f.owner.ID, notify.EventRequestSubmitted) != 1 {
		t.Error("expected owner to be notified of the new request")
	}
}

func TestSubmitValidation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		in   SubmitInput
		kind Kind
	}{
		{"anonymous", SubmitInput{Kind: model.KindDonation, ItemID: f.donation.ID, RecipientName: "a", RecipientContact: "b"}, KindUnauthenticated},
		{"blank recipient", SubmitInput{Kind: model.KindDonation, ItemID: f.donation.ID, RequesterID: f.requester.ID, RecipientName: "  ", RecipientContact: "b"}, KindInvalid},
		{"unknown kind", SubmitInput{Kind: "loan", ItemID: f.donation.ID, RequesterID: f.requester.ID}, KindInvalid},
		{"own item", SubmitInput{Kind: model.KindExchange, ItemID: f.exchange.ID, RequesterID: f.owner.ID}, KindForbidden},
		{"kind mismatch", SubmitInput{Kind: model.KindExchange, ItemID: f.donation.ID, RequesterID: f.requester.ID}, KindInvalid},
		{"missing item", SubmitInput{Kind: model.KindExchange, ItemID: 9999, RequesterID: f.requester.ID}, KindNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.engine.Submit(f.ctx, tt.in)
			if got := KindOf(err); got != tt.kind {
				t.Errorf("expected %s, got %s (%v)", tt.kind, got, err)
			}
		})
	}
}

func TestDuplicateSubmissionReturnsExistingID(t *testing.T) {
	f := newFixture(t)
	first := f.submitDonation(t, f.requester.ID)

	_, err := f.engine.Submit(f.ctx, SubmitInput{
		Kind: model.KindDonation, ItemID: f.donation.ID, RequesterID: f.requester.ID,
		RecipientName: "Ana", RecipientContact: "ana@example.com",
	})
	if !IsKind(err, KindDuplicateRequest) {
		t.Fatalf("expected duplicate request, got %v", err)
	}
	if ExistingRequestID(err) != first.ID {
		t.Errorf("expected existing id %s, got %s", first.ID, ExistingRequestID(err))
	}

	// After rejection a new request is allowed.
	if _, err := f.engine.Reject(f.ctx, model.KindDonation, first.ID, f.owner.ID); err != nil {
		t.Fatalf("Reject: %v", err)
	}
	f.submitDonation(t, f.requester.ID)
}

func TestAcceptRequiresMatchingParty(t *testing.T) {
	f := newFixture(t)
	r := f.submitDonation(t, f.requester.ID)

	_, err := f.engine.Accept(f.ctx, model.KindDonation, r.ID, f.stranger.ID, model.PartyOwner)
	if !IsKind(err, KindForbidden) {
		t.Errorf("stranger: expected forbidden, got %v", err)
	}
	_, err = f.engine.Accept(f.ctx, model.KindDonation, r.ID, f.requester.ID, model.PartyOwner)
	if !IsKind(err, KindForbidden) {
		t.Errorf("requester as owner: expected forbidden, got %v", err)
	}
	_, err = f.engine.Reject(f.ctx, model.KindDonation, r.ID, f.stranger.ID)
	if !IsKind(err, KindForbidden) {
		t.Errorf("stranger reject: expected forbidden, got %v", err)
	}
	_, err = f.engine.Accept(f.ctx, model.KindExchange, r.ID, f.owner.ID, model.PartyOwner)
	if !IsKind(err, KindNotFound) {
		t.Errorf("wrong kind: expected not found, got %v", err)
	}

	got, _ := f.engine.Get(f.ctx, model.KindDonation, r.ID, f.owner.ID)
	if got.Status != model.StatusPending {
		t.Errorf("status must be unchanged, got %s", got.Status)
	}
	if _, err := f.engine.Get(f.ctx, "", r.ID, f.stranger.ID); !IsKind(err, KindForbidden) {
		t.Errorf("stranger read: expected forbidden, got %v", err)
	}
}

func TestAcceptingTwiceIsInvalid(t *testing.T) {
	f := newFixture(t)
	r := f.submitDonation(t, f.requester.ID)

	if _, err := f.engine.Accept(f.ctx, model.KindDonation, r.ID, f.owner.ID, model.PartyOwner); err != nil {
		t.Fatalf("Accept: %v", err)
	}
	_, err := f.engine.Accept(f.ctx, model.KindDonation, r.ID, f.owner.ID, model.PartyOwner)
	if !IsKind(err, KindInvalidStateTransition) {
		t.Errorf("expected invalid transition, got %v", err)
	}
}

func TestConcurrentAcceptsExactlyOneWins(t *testing.T) {
	f := newFixture(t)
	r := f.submitDonation(t, f.requester.ID)

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		others    []error
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.engine.Accept(f.ctx, model.KindDonation, r.ID, f.owner.ID, model.PartyOwner)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
			} else {
				others = append(others, err)
			}
		}()
	}
	wg.Wait()

	if successes != 1 {
		t.Fatalf("expected exactly one success, got %d", successes)
	}
	for _, err := range others {
		if !IsKind(err, KindInvalidStateTransition) {
			t.Errorf("expected invalid transition for losers, got %v", err)
		}
	}
	got, _ := f.engine.Get(f.ctx, "", r.ID, f.owner.ID)
	if got.Status != model.StatusAcceptedByOwner {
		t.Errorf("expected accepted_by_owner, got %s", got.Status)
	}
}

func TestRemovingItemRacesWithSubmissions(t *testing.T) {
	f := newFixture(t)

	const workers = 6
	requesters := make([]*model.User, workers)
	for i := range requesters {
		u, err := store.CreateUser(f.ctx, f.engine.DB, fmt.Sprintf("racer%d", i), "", "hash", model.RoleUser)
		if err != nil {
			t.Fatalf("CreateUser: %v", err)
		}
		requesters[i] = u
	}

	var wg sync.WaitGroup
	for _, u := range requesters {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.engine.Submit(f.ctx, SubmitInput{
				Kind:             model.KindDonation,
				ItemID:           f.donation.ID,
				RequesterID:      u.ID,
				RecipientName:    u.Username,
				RecipientContact: "racer@example.com",
			})
			if err != nil && !IsKind(err, KindNotFound) {
				t.Errorf("Submit: %v", err)
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := store.RemoveIdleItem(f.ctx, f.engine.DB, f.donation.ID); err != nil && !errors.Is(err, store.ErrItemBusy) {
			t.Errorf("RemoveIdleItem: %v", err)
		}
	}()
	wg.Wait()

	item, _ := store.GetItem(f.ctx, f.engine.DB, f.donation.ID)
	active, err := store.ListActiveRequestsTouching(f.ctx, f.engine.DB, f.donation.ID)
	if err != nil {
		t.Fatalf("ListActiveRequestsTouching: %v", err)
	}
	if item.DeletedAt != nil && len(active) > 0 {
		t.Fatalf("removed item has %d active requests", len(active))
	}
	if item.DeletedAt == nil && len(active) == 0 {
		t.Fatal("item kept without any request")
	}
}

func TestBothAcceptanceOrdersReachFinalized(t *testing.T) {
	orders := map[string][2]model.Party{
		"owner first":     {model.PartyOwner, model.PartyRequester},
		"requester first": {model.PartyRequester, model.PartyOwner},
	}
	for name, order := range orders {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			r := f.submitDonation(t, f.requester.ID)
			actor := map[model.Party]int64{model.PartyOwner: f.owner.ID, model.PartyRequester: f.requester.ID}

			for _, p := range order {
				if _, err := f.engine.Accept(f.ctx, model.KindDonation, r.ID, actor[p], p); err != nil {
					t.Fatalf("Accept %s: %v", p, err)
				}
			}
			got, _ := f.engine.Get(f.ctx, "", r.ID, f.owner.ID)
			if got.Status != model.StatusConfirmed {
				t.Fatalf("expected confirmed, got %s", got.Status)
			}

			c := f.chat(t, r)
			res, err := f.engine.Confirm(f.ctx, c.ID, f.owner.ID, c.QRPayload)
			if err != nil {
				t.Fatalf("owner Confirm: %v", err)
			}
			if res.Finalized || res.Request.Status != model.StatusConfirmed {
				t.Fatal("a single confirmation must not finalize")
			}

			res, err = f.engine.Confirm(f.ctx, c.ID, f.requester.ID, c.QRPayload)
			if err != nil {
				t.Fatalf("requester Confirm: %v", err)
			}
			if !res.Finalized || res.Request.Status != model.StatusFinalized {
				t.Fatalf("expected finalized, got %+v", res.Request)
			}

			item, _ := store.GetItem(f.ctx, f.engine.DB, f.donation.ID)
			if item.Status != model.ItemStatusDonated {
				t.Errorf("expected item donated, got %s", item.Status)
			}
			if f.notifier.count(f.requester.ID, notify.EventRequestFinalized) != 1 {
				t.Error("expected requester to be notified of finalization")
			}

			_, err = f.engine.Reject(f.ctx, "", r.ID, f.owner.ID)
			if !IsKind(err, KindInvalidStateTransition) {
				t.Errorf("rejecting a finalized request: expected invalid transition, got %v", err)
			}
		})
	}
}

func TestConfirmGating(t *testing.T) {
	f := newFixture(t)
	r := f.submitDonation(t, f.requester.ID)
	c := f.chat(t, r)

	if _, err := f.engine.Confirm(f.ctx, c.ID, f.owner.ID, c.QRPayload); !IsKind(err, KindInvalidStateTransition) {
		t.Errorf("confirm while pending: expected invalid transition, got %v", err)
	}

	f.engine.Accept(f.ctx, "", r.ID, f.owner.ID, model.PartyOwner)
	f.engine.Accept(f.ctx, "", r.ID, f.requester.ID, model.PartyRequester)

	if _, err := f.engine.Confirm(f.ctx, c.ID, f.stranger.ID, c.QRPayload); !IsKind(err, KindForbidden) {
		t.Errorf("stranger confirm: expected forbidden, got %v", err)
	}
	if _, err := f.engine.Confirm(f.ctx, c.ID, f.owner.ID, "not-the-code"); !IsKind(err, KindInvalid) {
		t.Errorf("wrong payload: expected invalid, got %v", err)
	}

	// Confirming twice by the same party is idempotent and never finalizes.
	for range 2 {
		res, err := f.engine.Confirm(f.ctx, c.ID, f.owner.ID, c.QRPayload)
		if err != nil {
			t.Fatalf("Confirm: %v", err)
		}
		if res.Finalized {
			t.Fatal("one party's flag must not finalize")
		}
	}
	if f.notifier.count(f.requester.ID, notify.EventChatConfirmed) != 1 {
		t.Error("expected exactly one chat.confirmed notification")
	}

	if _, err := f.engine.Finalize(f.ctx, c.ID, f.owner.ID); !IsKind(err, KindInvalidStateTransition) {
		t.Errorf("finalize with one flag: expected invalid transition, got %v", err)
	}
	got, _ := f.engine.Get(f.ctx, "", r.ID, f.owner.ID)
	if got.Status != model.StatusConfirmed {
		t.Errorf("expected confirmed, got %s", got.Status)
	}
}

func TestRejectConfirmedIsInvalid(t *testing.T) {
	f := newFixture(t)
	r := f.submitDonation(t, f.requester.ID)
	f.engine.Accept(f.ctx, "", r.ID, f.owner.ID, model.PartyOwner)
	f.engine.Accept(f.ctx, "", r.ID, f.requester.ID, model.PartyRequester)

	if _, err := f.engine.Reject(f.ctx, "", r.ID, f.requester.ID); !IsKind(err, KindInvalidStateTransition) {
		t.Errorf("expected invalid transition, got %v", err)
	}
}

func TestChatActionsDeriveParty(t *testing.T) {
	f := newFixture(t)
	r := f.submitDonation(t, f.requester.ID)

	got, err := f.engine.AcceptInChat(f.ctx, r.ChatID, f.requester.ID)
	if err != nil {
		t.Fatalf("AcceptInChat: %v", err)
	}
	if got.Status != model.StatusAcceptedByRequester {
		t.Errorf("expected accepted_by_requester, got %s", got.Status)
	}
	if _, err := f.engine.AcceptInChat(f.ctx, r.ChatID, f.stranger.ID); !IsKind(err, KindForbidden) {
		t.Errorf("expected forbidden, got %v", err)
	}
	got, err = f.engine.RejectInChat(f.ctx, r.ChatID, f.owner.ID)
	if err != nil {
		t.Fatalf("RejectInChat: %v", err)
	}
	if got.Status != model.StatusRejected {
		t.Errorf("expected rejected, got %s", got.Status)
	}
	if _, err := f.engine.AcceptInChat(f.ctx, "missing", f.owner.ID); !IsKind(err, KindNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestNotificationFailureDoesNotRollBack(t *testing.T) {
	f := newFixture(t)
	f.notifier.err = errors.New("mail server down")

	r := f.submitDonation(t, f.requester.ID)
	got, err := f.engine.Accept(f.ctx, "", r.ID, f.owner.ID, model.PartyOwner)
	if err != nil {
		t.Fatalf("Accept must succeed despite notifier failure: %v", err)
	}
	if got.Status != model.StatusAcceptedByOwner {
		t.Errorf("expected accepted_by_owner, got %s", got.Status)
	}
}

func TestDeliveryOutlivesCallerContext(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(f.ctx)
	defer cancel()

	r, err := f.engine.Submit(ctx, SubmitInput{
		Kind:             model.KindDonation,
		ItemID:           f.donation.ID,
		RequesterID:      f.requester.ID,
		RecipientName:    "Ana",
		RecipientContact: "ana@example.com",
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if _, err := f.engine.PostMessage(ctx, r.ChatID, f.owner.ID, "When can you pick it up?"); err != nil {
		t.Fatalf("PostMessage: %v", err)
	}

	if len(f.notifier.sent) != 2 {
		t.Fatalf("expected 2 deliveries, got %d", len(f.notifier.sent))
	}
	if f.notifier.cancellable != 0 {
		t.Errorf("%d deliveries were bound to the caller's context", f.notifier.cancellable)
	}
}

func TestFinalizeNotifiesOwnerOfLostOffer(t *testing.T) {
	f := newFixture(t)
	ctx := f.ctx

	// The requester offers the same drum for the owner's guitar and for the
	// stranger's amplifier.
	offered, _ := store.CreateItem(ctx, f.engine.DB, f.requester.ID, "Drum", "", "music", model.ListingExchange)
	amp, _ := store.CreateItem(ctx, f.engine.DB, f.stranger.ID, "Amplifier", "", "music", model.ListingExchange)
	r, err := f.engine.Submit(ctx, SubmitInput{
		Kind: model.KindExchange, ItemID: f.exchange.ID, OfferedItemID: &offered.ID, RequesterID: f.requester.ID,
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	other, err := f.engine.Submit(ctx, SubmitInput{
		Kind: model.KindExchange, ItemID: amp.ID, OfferedItemID: &offered.ID, RequesterID: f.requester.ID,
	})
	if err != nil {
		t.Fatalf("Submit second offer: %v", err)
	}

	f.engine.Accept(ctx, model.KindExchange, r.ID, f.owner.ID, model.PartyOwner)
	f.engine.Accept(ctx, model.KindExchange, r.ID, f.requester.ID, model.PartyRequester)
	c := f.chat(t, r)
	f.engine.Confirm(ctx, c.ID, f.owner.ID, c.QRPayload)
	if res, err := f.engine.Confirm(ctx, c.ID, f.requester.ID, c.QRPayload); err != nil || !res.Finalized {
		t.Fatalf("expected finalization, got %v", err)
	}

	got, _ := f.engine.Get(ctx, "", other.ID, f.stranger.ID)
	if got.Status != model.StatusRejected {
		t.Errorf("expected second offer rejected, got %s", got.Status)
	}
	if f.notifier.count(f.stranger.ID, notify.EventRequestRejected) != 1 {
		t.Error("expected the amplifier owner to learn the offer was withdrawn")
	}
	if f.notifier.count(f.requester.ID, notify.EventRequestRejected) != 1 {
		t.Error("expected the requester to be notified of the auto-rejection")
	}
}

func TestFinalizeExchangeRejectsSiblings(t *testing.T) {
	f := newFixture(t)
	ctx := f.ctx

	offered, _ := store.CreateItem(ctx, f.engine.DB, f.requester.ID, "Drum", "", "music", model.ListingExchange)
	r, err := f.engine.Submit(ctx, SubmitInput{
		Kind: model.KindExchange, ItemID: f.exchange.ID, OfferedItemID: &offered.ID, RequesterID: f.requester.ID,
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	sibling, err := f.engine.Submit(ctx, SubmitInput{Kind: model.KindExchange, ItemID: f.exchange.ID, RequesterID: f.stranger.ID})
	if err != nil {
		t.Fatalf("Submit sibling: %v", err)
	}

	f.engine.Accept(ctx, model.KindExchange, r.ID, f.owner.ID, model.PartyOwner)
	f.engine.Accept(ctx, model.KindExchange, r.ID, f.requester.ID, model.PartyRequester)
	c := f.chat(t, r)
	f.engine.Confirm(ctx, c.ID, f.owner.ID, c.QRPayload)
	res, err := f.engine.Confirm(ctx, c.ID, f.requester.ID, c.QRPayload)
	if err != nil || !res.Finalized {
		t.Fatalf("expected finalization, got %v", err)
	}

	for _, id := range []int64{f.exchange.ID, offered.ID} {
		item, _ := store.GetItem(ctx, f.engine.DB, id)
		if item.Status != model.ItemStatusExchanged {
			t.Errorf("item %d: expected exchanged, got %s", id, item.Status)
		}
	}

	s, _ := f.engine.Get(ctx, "", sibling.ID, f.stranger.ID)
	if s.Status != model.StatusRejected {
		t.Errorf("expected sibling rejected, got %s", s.Status)
	}
	if f.notifier.count(f.stranger.ID, notify.EventRequestRejected) != 1 {
		t.Error("expected sibling requester to be notified")
	}

	// The explicit finalize is now an invalid transition.
	if _, err := f.engine.Finalize(ctx, c.ID, f.owner.ID); !IsKind(err, KindInvalidStateTransition) {
		t.Errorf("expected invalid transition, got %v", err)
	}

	// The item can no longer be requested.
	_, err = f.engine.Submit(ctx, SubmitInput{Kind: model.KindExchange, ItemID: f.exchange.ID, RequesterID: f.stranger.ID})
	if !IsKind(err, KindInvalid) {
		t.Errorf("expected invalid for unavailable item, got %v", err)
	}
}

func TestListForItemOwnerOnly(t *testing.T) {
	f := newFixture(t)
	f.submitDonation(t, f.requester.ID)

	list, err := f.engine.ListForItem(f.ctx, f.donation.ID, f.owner.ID)
	if err != nil || len(list) != 1 {
		t.Fatalf("expected 1 request, got %d (%v)", len(list), err)
	}
	if _, err := f.engine.ListForItem(f.ctx, f.donation.ID, f.requester.ID); !IsKind(err, KindForbidden) {
		t.Errorf("expected forbidden, got %v", err)
	}

	mine, _ := f.engine.ListForUser(f.ctx, model.KindDonation, f.requester.ID)
	if len(mine) != 1 {
		t.Errorf("expected 1 request for requester, got %d", len(mine))
	}
}

func TestChatMessages(t *testing.T) {
	f := newFixture(t)
	r := f.submitDonation(t, f.requester.ID)

	if _, err := f.engine.PostMessage(f.ctx, r.ChatID, f.requester.ID, "  Is it still available?  "); err != nil {
		t.Fatalf("PostMessage: %v", err)
	}
	if _, err := f.engine.PostMessage(f.ctx, r.ChatID, f.owner.ID, "Yes"); err != nil {
		t.Fatalf("PostMessage: %v", err)
	}
	if _, err := f.engine.PostMessage(f.ctx, r.ChatID, f.stranger.ID, "hi"); !IsKind(err, KindForbidden) {
		t.Errorf("expected forbidden, got %v", err)
	}
	if _, err := f.engine.PostMessage(f.ctx, r.ChatID, f.owner.ID, "   "); !IsKind(err, KindInvalid) {
		t.Errorf("expected invalid, got %v", err)
	}

	msgs, err := f.engine.Messages(f.ctx, r.ChatID, f.owner.ID, 0, 0)
	if err != nil {
		t.Fatalf("Messages: %v", err)
	}
	if len(msgs) != 2 || msgs[0].Body != "Is it still available?" {
		t.Errorf("unexpected messages: %+v", msgs)
	}
	if f.notifier.count(f.owner.ID, notify.EventChatMessage) != 1 {
		t.Error("expected owner to be notified of the message")
	}

	chats, _ := f.engine.ListChats(f.ctx, f.requester.ID)
	if len(chats) != 1 {
		t.Errorf("expected 1 chat, got %d", len(chats))
	}
}
