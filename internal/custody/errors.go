package custody

import "errors"

var (
	// ErrNotFound indicates no live item has the serial.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyIssued indicates the item is issued, so it can be neither
	// issued again nor deleted.
	ErrAlreadyIssued = errors.New("item already issued")
	// ErrNotIssued indicates a return of an item that is not issued.
	ErrNotIssued = errors.New("item not issued")
	// ErrNotDeleted indicates a restore or purge of an item that is not in the recycle bin.
	ErrNotDeleted = errors.New("item not deleted")
	// ErrSerialConflict indicates a live item already uses the serial.
	ErrSerialConflict = errors.New("serial already in use")
	// ErrInvalidInput indicates missing or malformed input.
	ErrInvalidInput = errors.New("invalid input")
)

var domainErrors = []error{
	ErrNotFound,
	ErrAlreadyIssued,
	ErrNotIssued,
	ErrNotDeleted,
	ErrSerialConflict,
	ErrInvalidInput,
}

// isDomainError reports whether err is a per-serial rejection rather than a
// storage failure.
func isDomainError(err error) bool {
	for _, target := range domainErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// Reason returns the short label shown next to a rejected serial.
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return "Not found"
	case errors.Is(err, ErrAlreadyIssued):
		return "Issued"
	case errors.Is(err, ErrNotIssued):
		return "Not issued"
	case errors.Is(err, ErrNotDeleted):
		return "Not deleted"
	case errors.Is(err, ErrSerialConflict):
		return "Serial conflict"
	case errors.Is(err, ErrInvalidInput):
		return "Invalid"
	default:
		return err.Error()
	}
}
