package database

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/lib/pq"
)

// IsUniqueViolation matches unique constraint failures from postgres (23505) and sqlite.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func IsNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
