package custody

import (
	"fmt"

	"github.com/erazemk/handreceipt/internal/model"
)

// Action is a custody lifecycle operation.
type Action string

// Actions.
const (
	ActionIssue   Action = "issue"
	ActionReturn  Action = "return"
	ActionDelete  Action = "delete"
	ActionRestore Action = "restore"
	ActionPurge   Action = "purge"
)

// CheckTransition reports whether action may be applied to an item whose
// current status is from. It returns nil when allowed and the rejection
// error otherwise.
//
//	OnHand  --issue-->   Issued
//	Issued  --return-->  OnHand
//	OnHand  --delete-->  Deleted
//	Deleted --restore--> OnHand
//	Deleted --purge-->   (erased)
//
// Deleted items are invisible to issue, return and delete, so those
// actions report ErrNotFound for them.
func CheckTransition(from model.Status, action Action) error {
	switch action {
	case ActionIssue:
		switch from.(type) {
		case model.OnHand:
			return nil
		case model.Issued:
			return ErrAlreadyIssued
		default:
			return ErrNotFound
		}
	case ActionReturn:
		switch from.(type) {
		case model.Issued:
			return nil
		case model.OnHand:
			return ErrNotIssued
		default:
			return ErrNotFound
		}
	case ActionDelete:
		switch from.(type) {
		case model.OnHand:
			return nil
		case model.Issued:
			return ErrAlreadyIssued
		default:
			return ErrNotFound
		}
	case ActionRestore, ActionPurge:
		if _, ok := from.(model.Deleted); ok {
			return nil
		}
		return ErrNotDeleted
	}
	return fmt.Errorf("%w: unknown action %q", ErrInvalidInput, action)
}
