package service

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var (
	ErrNotFound             = errors.New("not found")
	ErrInvalidInput         = errors.New("invalid input")
	ErrInsufficientStock    = errors.New("insufficient stock")
	ErrInsufficientCustody  = errors.New("insufficient custody")
	ErrInsufficientIssuance = errors.New("insufficient issuance")
	ErrInvalidState         = errors.New("invalid state")
	ErrConflict             = errors.New("conflict")
)

// ShortageError reports a "not enough of X" failure with the numbers an
// operator needs to act on it.
type ShortageError struct {
	Kind      error
	Product   string
	Available float64
	Required  float64
}

func (e *ShortageError) Error() string {
	return fmt.Sprintf("%s for %q: available %.3f, required %.3f", e.Kind, e.Product, e.Available, e.Required)
}

func (e *ShortageError) Unwrap() error {
	return e.Kind
}

func notFound(err error, format string, args ...any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
	}
	return err
}
