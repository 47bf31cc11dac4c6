package database

import (
	"database/sql"
	"errors"

	"github.com/lib/pq"
)

type ErrorClass int

const (
	ErrorClassPermanent ErrorClass = iota
	ErrorClassTransient
	ErrorClassDeadlock
	ErrorClassSerialization
)

func ClassifyError(err error) ErrorClass {
	if err == nil {
		return ErrorClassPermanent
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "40001":
			return ErrorClassSerialization
		case "40P01":
			return ErrorClassDeadlock
		case "55P03":
			return ErrorClassTransient
		case "23505", "23503", "23502", "23514":
			return ErrorClassPermanent
		}
	}

	if errors.Is(err, sql.ErrNoRows) {
		return ErrorClassPermanent
	}

	return ErrorClassPermanent
}

func IsRetryable(err error) bool {
	class := ClassifyError(err)
	return class == ErrorClassTransient ||
		class == ErrorClassDeadlock ||
		class == ErrorClassSerialization
}

func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func IsForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23503"
}

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrEventNotFound     = errors.New("event not found")
	ErrTemplateNotFound  = errors.New("event template not found")
	ErrLinkNotFound      = errors.New("link not found or inactive")
	ErrCityNotFound      = errors.New("city not found")
	ErrAdminNotFound     = errors.New("admin not found")
	ErrUsernameTaken     = errors.New("username already taken")
	ErrInsufficientSeats = errors.New("insufficient seats")
	ErrImageNotFound     = errors.New("template image not found")

	// ErrReferenced is returned when a delete would orphan rows that point at
	// the record, such as orders placed against an event.
	ErrReferenced = errors.New("record is still referenced")

	// Generated codes collide rarely; callers retry with a fresh code.
	ErrDuplicateOrderCode = errors.New("duplicate order code")
	ErrDuplicateLinkCode  = errors.New("duplicate link code")
)
