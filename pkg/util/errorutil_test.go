package util

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestIsNoRows(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"pgx no rows", pgx.ErrNoRows, true},
		{"sql no rows", sql.ErrNoRows, true},
		{"wrapped no rows", fmt.Errorf("get ticket: %w", pgx.ErrNoRows), true},
		{"malformed uuid", &pgconn.PgError{Code: "22P02"}, true},
		{"wrapped malformed uuid", fmt.Errorf("get ticket: %w", &pgconn.PgError{Code: "22P02"}), true},
		{"unique violation", &pgconn.PgError{Code: "23505"}, false},
		{"other", errors.New("boom"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsNoRows(tc.err))
		})
	}
}

func TestToDomainErrorMapsMalformedIDToNotFound(t *testing.T) {
	got := ToDomainError(&pgconn.PgError{Code: "22P02"})
	assert.Equal(t, CodeNotFound, got.Code)
	assert.Equal(t, http.StatusNotFound, got.HTTPStatus)
	assert.Equal(t, ToDomainError(pgx.ErrNoRows), got)

	assert.Equal(t, CodeInternal, ToDomainError(&pgconn.PgError{Code: "23505"}).Code)
}
