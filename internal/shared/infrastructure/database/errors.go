package database

import (
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
)

// ErrNoRows is returned when a single-row lookup finds nothing.
var ErrNoRows = errors.New("no rows in result set")

// IsNoRows reports whether err means "no row", for either driver.
func IsNoRows(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, pgx.ErrNoRows) ||
		errors.Is(err, sql.ErrNoRows) ||
		errors.Is(err, ErrNoRows)
}

// TimeLayout is the text encoding used for timestamp columns.
const TimeLayout = time.RFC3339Nano

// FormatTime encodes t for a TEXT column.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// FormatTimePtr encodes an optional timestamp; nil maps to SQL NULL.
func FormatTimePtr(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: FormatTime(*t), Valid: true}
}

// ParseTime decodes a TEXT timestamp column.
func ParseTime(s string) (time.Time, error) {
	return time.Parse(TimeLayout, s)
}

// ParseTimePtr decodes a nullable TEXT timestamp column.
func ParseTimePtr(s sql.NullString) (*time.Time, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	t, err := ParseTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
