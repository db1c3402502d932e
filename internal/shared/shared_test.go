package shared

import (
	"errors"
	"fmt"
	"testing"
)

func TestNumericID(t *testing.T) {
	t.Run("Stable", func(t *testing.T) {
		a := NumericID("file-001")
		b := NumericID("file-001")
		if a != b {
			t.Errorf("same id hashed to %d and %d", a, b)
		}
	})

	t.Run("Distinct", func(t *testing.T) {
		if NumericID("file-001") == NumericID("file-002") {
			t.Error("different ids should hash to different values")
		}
	})

	t.Run("Empty", func(t *testing.T) {
		// fnv-64a offset basis
		if got := NumericID(""); got != 14695981039346656037 {
			t.Errorf("empty id hashed to %d", got)
		}
	})
}

func TestGenerateID(t *testing.T) {
	a := GenerateID()
	b := GenerateID()
	if a == b {
		t.Error("expected unique ids")
	}
	if len(a) != 36 {
		t.Errorf("expected uuid string length 36, got %d", len(a))
	}
}

func TestIsFatal(t *testing.T) {
	tc := []struct {
		name string
		err  error
		want bool
	}{
		{"auth failed", fmt.Errorf("download: %w", ErrAuthFailed), true},
		{"token expired", ErrTokenExpired, true},
		{"not authenticated", ErrNotAuthenticated, true},
		{"fatal sync", fmt.Errorf("%w: file x", ErrFatalSync), true},
		{"stage failure", fmt.Errorf("%w: detect", ErrStageFailed), false},
		{"worker init", ErrWorkerInit, false},
		{"file not found", ErrFileNotFound, false},
		{"plain error", errors.New("boom"), false},
		{"nil", nil, false},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsFatal(tt.err); got != tt.want {
				t.Errorf("IsFatal(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
