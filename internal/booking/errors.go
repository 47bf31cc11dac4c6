package booking

import (
	"errors"
	"fmt"

	"github.com/safar/go-ticket-desk/internal/database"
	"github.com/safar/go-ticket-desk/internal/notify"
)

var (
	ErrValidation            = errors.New("validation failed")
	ErrInsufficientInventory = errors.New("insufficient inventory")
	ErrNotFound              = errors.New("not found")
	// ErrForbidden is returned when an admin touches another admin's event.
	ErrForbidden = errors.New("forbidden")
	// ErrPersistenceFault is a store failure on a path that had already
	// reserved inventory.
	ErrPersistenceFault = errors.New("persistence fault")
	ErrDeliveryFailed   = notify.ErrDeliveryFailed
)

// ValidationError names the offending input field. It matches ErrValidation
// under errors.Is.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

func isNotFound(err error) bool {
	return errors.Is(err, database.ErrOrderNotFound) ||
		errors.Is(err, database.ErrEventNotFound) ||
		errors.Is(err, database.ErrLinkNotFound)
}

// classify maps store errors onto the booking taxonomy.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case isNotFound(err):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	case errors.Is(err, database.ErrInsufficientSeats):
		return fmt.Errorf("%w: %w", ErrInsufficientInventory, err)
	default:
		return err
	}
}
