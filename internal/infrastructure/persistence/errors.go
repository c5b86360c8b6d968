package persistence

import (
	"errors"
	"strings"

	"github.com/ledgerbook/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// ErrReferenceViolation is returned when the datastore rejects a write because
// of a foreign key. Application-level guards normally catch these first.
var ErrReferenceViolation = shared.NewConstraintError("REFERENCE_VIOLATION", "Record is referenced by other records")

// translateError maps a gorm/driver error onto the domain error taxonomy.
// notFound is returned for gorm.ErrRecordNotFound; domain errors pass through untouched.
func translateError(op string, err error, notFound error) error {
	if err == nil {
		return nil
	}
	var de *shared.DomainError
	if errors.As(err, &de) {
		return err
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		if notFound != nil {
			return notFound
		}
		return shared.ErrNotFound
	case isDuplicateKey(err):
		return shared.ErrAlreadyExists.WithCause(err)
	case isForeignKeyViolation(err):
		return ErrReferenceViolation.WithCause(err)
	default:
		return shared.NewStorageError(op, err)
	}
}

// isDuplicateKey reports a unique index violation. The string checks cover
// connections opened without gorm's TranslateError.
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}

func isForeignKeyViolation(err error) bool {
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "violates foreign key constraint") ||
		strings.Contains(msg, "FOREIGN KEY constraint failed")
}
