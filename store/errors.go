package store

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// RequiredFieldError reports a blank required field on create or update.
type RequiredFieldError struct {
	Entity string
	Field  string
}

func (e *RequiredFieldError) Error() string {
	return fmt.Sprintf("%s %s is required", e.Entity, e.Field)
}

// IsUniqueViolation reports whether err is a unique-constraint failure from
// either driver.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
