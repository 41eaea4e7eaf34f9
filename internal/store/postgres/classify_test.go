package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"

	"shopstack/backend/internal/store"
)

func TestClassifyMapsDriverErrors(t *testing.T) {
	cases := []struct {
		name string
		in   error
		want error
	}{
		{"no rows", sql.ErrNoRows, store.ErrNotFound},
		{"serialization", &pgconn.PgError{Code: "40001"}, store.ErrConflict},
		{"deadlock", &pgconn.PgError{Code: "40P01"}, store.ErrConflict},
		{"unique", &pgconn.PgError{Code: "23505"}, store.ErrDuplicate},
		{"check", &pgconn.PgError{Code: "23514"}, store.ErrInvalidInput},
		{"deadline", fmt.Errorf("query: %w", context.DeadlineExceeded), store.ErrUnavailable},
		{"conn done", sql.ErrConnDone, store.ErrUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := classify(tc.in); !errors.Is(got, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestClassifyPassesThroughUnknownErrors(t *testing.T) {
	original := errors.New("boom")
	if got := classify(original); got != original {
		t.Fatalf("expected original error, got %v", got)
	}
	if classify(nil) != nil {
		t.Fatalf("expected nil for nil")
	}
}
