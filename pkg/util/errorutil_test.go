package util

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
)

func TestToDomainError(t *testing.T) {
	if ToDomainError(nil) != nil {
		t.Error("nil error mapped to non-nil")
	}

	de := ToDomainError(NewNotFound("visitor", nil))
	if de.HTTPStatus != http.StatusNotFound || de.Code != "NOT_FOUND" {
		t.Errorf("not-found mapped to %d/%s", de.HTTPStatus, de.Code)
	}

	// pgx misses surface as 404, not 500
	de = ToDomainError(pgx.ErrNoRows)
	if de.HTTPStatus != http.StatusNotFound {
		t.Errorf("pgx.ErrNoRows mapped to %d", de.HTTPStatus)
	}
	de = ToDomainError(fmt.Errorf("query: %w", pgx.ErrNoRows))
	if de.HTTPStatus != http.StatusNotFound {
		t.Errorf("wrapped pgx.ErrNoRows mapped to %d", de.HTTPStatus)
	}

	de = ToDomainError(errors.New("disk on fire"))
	if de.HTTPStatus != http.StatusInternalServerError || de.Code != "INTERNAL_ERROR" {
		t.Errorf("unknown error mapped to %d/%s", de.HTTPStatus, de.Code)
	}

	// wrapping a DomainError preserves it
	wrapped := fmt.Errorf("outer: %w", NewForbidden("nope"))
	de = ToDomainError(wrapped)
	if de.HTTPStatus != http.StatusForbidden {
		t.Errorf("wrapped DomainError mapped to %d", de.HTTPStatus)
	}
}

func TestIsNotFound(t *testing.T) {
	if !IsNotFound(pgx.ErrNoRows) {
		t.Error("pgx.ErrNoRows not recognized")
	}
	if !IsNotFound(NewNotFound("address", nil)) {
		t.Error("NOT_FOUND domain error not recognized")
	}
	if IsNotFound(NewForbidden("nope")) {
		t.Error("forbidden counted as not found")
	}
	if IsNotFound(nil) {
		t.Error("nil counted as not found")
	}
}
