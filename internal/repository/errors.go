package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// Store-agnostic errors. Both the gorm and the in-memory implementations
// return these so services never depend on driver errors.
var (
	ErrNotFound        = errors.New("record not found")
	ErrDuplicate       = errors.New("duplicate record")
	ErrVersionConflict = errors.New("version conflict")
)

// translate maps gorm errors (TranslateError must be enabled) onto the
// package errors.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	default:
		return err
	}
}
