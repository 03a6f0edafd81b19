package service

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var (
	ErrValidation   = errors.New("validation")   // 400
	ErrNotFound     = errors.New("not found")    // 404
	ErrConflict     = errors.New("conflict")     // 409
	ErrUnauthorized = errors.New("unauthorized") // 401

	// ErrPrecondition marks requests rejected because referenced state does
	// not allow them. Nothing is written when it is returned.
	ErrPrecondition = errors.New("precondition failed") // 400

	ErrInvalidTransition = errors.New("invalid status transition") // 409
)

var (
	ErrUnknownUser        = fmt.Errorf("%w: unknown user", ErrPrecondition)
	ErrProductUnavailable = fmt.Errorf("%w: product unavailable", ErrPrecondition)
	ErrInsufficientStock  = fmt.Errorf("%w: insufficient stock", ErrPrecondition)
)

// storeErr maps repository errors onto the service taxonomy.
func storeErr(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%w: %s", ErrNotFound, what)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %s already exists", ErrConflict, what)
	}
	return err
}
