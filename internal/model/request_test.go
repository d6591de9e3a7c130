package model

import "testing"

func TestRequestStatusTerminal(t *testing.T) {
	terminal := map[RequestStatus]bool{
		StatusPending:             false,
		StatusAcceptedByOwner:     false,
		StatusAcceptedByRequester: false,
		StatusConfirmed:           false,
		StatusRejected:            true,
		StatusFinalized:           true,
	}
	for s, want := range terminal {
		if !s.Valid() {
			t.Errorf("%s should be valid", s)
		}
		if got := s.Terminal(); got != want {
			t.Errorf("%s.Terminal() = %v, want %v", s, got, want)
		}
	}
	if RequestStatus("cancelled").Valid() {
		t.Error("unknown status reported valid")
	}
}

func TestRequestParty(t *testing.T) {
	r := &Request{OwnerID: 1, RequesterID: 2}

	if p := r.Party(1); p != PartyOwner {
		t.Errorf("Party(owner) = %q", p)
	}
	if p := r.Party(2); p != PartyRequester {
		t.Errorf("Party(requester) = %q", p)
	}
	if p := r.Party(3); p != "" {
		t.Errorf("Party(stranger) = %q, want empty", p)
	}
}

func TestChatConfirmation(t *testing.T) {
	c := &Chat{OwnerID: 1, RequesterID: 2}
	if c.BothConfirmed() {
		t.Fatal("fresh chat should not be confirmed")
	}
	c.OwnerConfirmed = true
	if c.BothConfirmed() {
		t.Error("one flag must not count as both")
	}
	c.RequesterConfirmed = true
	if !c.BothConfirmed() {
		t.Error("expected both confirmed")
	}
	if c.Participant(3) {
		t.Error("stranger reported as participant")
	}
}
