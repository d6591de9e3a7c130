package exchange

import "github.com/sharecycle/sharecycle/internal/model"

// Action is something a party does to a request.
type Action string

const (
	ActionAccept   Action = "accept"
	ActionReject   Action = "reject"
	ActionFinalize Action = "finalize"
)

func errTransition(from model.RequestStatus, action Action, party model.Party) error {
	return &Error{
		Kind:    KindInvalidStateTransition,
		Message: "cannot " + string(action) + " a " + string(from) + " request as " + string(party),
	}
}

// Next returns the status that results from party performing action on a
// request in status from. Both acceptance orders converge on confirmed.
// Finalize only checks the status; confirmation flags are the caller's job.
func Next(from model.RequestStatus, action Action, party model.Party) (model.RequestStatus, error) {
	if party != model.PartyOwner && party != model.PartyRequester {
		return from, errTransition(from, action, party)
	}

	switch action {
	case ActionAccept:
		switch {
		case from == model.StatusPending && party == model.PartyOwner:
			return model.StatusAcceptedByOwner, nil
		case from == model.StatusPending && party == model.PartyRequester:
			return model.StatusAcceptedByRequester, nil
		case from == model.StatusAcceptedByOwner && party == model.PartyRequester,
			from == model.StatusAcceptedByRequester && party == model.PartyOwner:
			return model.StatusConfirmed, nil
		}
	case ActionReject:
		switch from {
		case model.StatusPending, model.StatusAcceptedByOwner, model.StatusAcceptedByRequester:
			return model.StatusRejected, nil
		}
	case ActionFinalize:
		if from == model.StatusConfirmed {
			return model.StatusFinalized, nil
		}
	}
	return from, errTransition(from, action, party)
}
