package db

import (
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"
)

// ErrNotFound is returned by store lookups when no document matches; the
// domain layer decides whether that is a 404, a revoked session or an
// expired challenge.
var ErrNotFound = errors.New("document not found")

// DuplicateKeyError reports a unique-index violation with the offending
// field so the boundary can render a field-specific conflict message.
type DuplicateKeyError struct {
	Field string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate key on field %s", e.Field)
}

// TranslateError maps driver-level errors to the store error vocabulary.
// indexFields maps index name fragments to user-facing field names.
func TranslateError(err error, indexFields map[string]string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	if mongo.IsDuplicateKeyError(err) {
		for fragment, field := range indexFields {
			if strings.Contains(err.Error(), fragment) {
				return &DuplicateKeyError{Field: field}
			}
		}
		return &DuplicateKeyError{Field: "unknown"}
	}
	return err
}
