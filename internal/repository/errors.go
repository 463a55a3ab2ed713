// Package repository defines the data access layer for the shared tenant
// directory and for each tenant's own store, together with the sentinel
// errors that let handlers tell failure kinds apart.  ErrTenantInactive,
// ErrTenantNotFound and ErrBadCredentials must stay distinguishable all the
// way to the HTTP response so clients can render the right remediation.
package repository

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when a sale, product, customer, delivery person
// or other tenant-scoped record does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a delete cannot proceed because dependent
// records still reference the target (a category with products, a
// delivery person with open deliveries).
var ErrConflict = errors.New("conflict")

// ErrDuplicate is returned when a uniqueness constraint rejects a write.
var ErrDuplicate = errors.New("duplicate")

// ErrTenantNotFound is returned when a tenant code is unknown to the directory.
var ErrTenantNotFound = errors.New("tenant not found")

// ErrTenantInactive is returned when the tenant exists but its status
// forbids logins and store access.
var ErrTenantInactive = errors.New("tenant inactive")

// ErrBadCredentials is returned for an unknown identity or a password mismatch.
var ErrBadCredentials = errors.New("bad credentials")

// ValidationError reports rejected input before any mutation happens.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// Invalid builds a ValidationError with a formatted message.
func Invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err carries a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// isUniqueViolation recognizes unique-constraint failures from SQLite
// ("UNIQUE constraint failed") and MySQL (error 1062).
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == 1062
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}
