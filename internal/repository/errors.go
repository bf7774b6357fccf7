package repository

import (
	"errors"

	"github.com/jackc/pgx/v5"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("record not found")

func mapNoRows(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// qualify returns the sanitized schema-qualified name of a relation.
func qualify(schema, relation string) string {
	return pgx.Identifier{schema, relation}.Sanitize()
}
