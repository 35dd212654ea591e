package model

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

// =============================================================================
// ERROR CLASSIFICATION
// =============================================================================

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want ErrorClass
	}{
		{"nil", nil, ClassUnknown},
		{"plain error", errors.New("boom"), ClassUnknown},
		{"classified", &ClassifiedError{Class: ClassRateLimited}, ClassRateLimited},
		{"wrapped classified", fmt.Errorf("send: %w", &ClassifiedError{Class: ClassUnavailable}), ClassUnavailable},
		{"context canceled", context.Canceled, ClassCanceled},
		{"deadline exceeded", context.DeadlineExceeded, ClassCanceled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Classify(tt.err); got != tt.want {
				t.Fatalf("Classify = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestRetryable(t *testing.T) {
	t.Parallel()

	retryable := map[ErrorClass]bool{
		ClassUnknown:     false,
		ClassBadRequest:  false,
		ClassRateLimited: true,
		ClassUnavailable: true,
		ClassCanceled:    false,
	}
	for class, want := range retryable {
		if got := class.Retryable(); got != want {
			t.Fatalf("%s.Retryable() = %v, want %v", class, got, want)
		}
	}
}

func TestClassifiedErrorUnwrap(t *testing.T) {
	t.Parallel()

	inner := errors.New("inner")
	err := &ClassifiedError{Class: ClassBadRequest, Message: "bad", Err: inner}
	if !errors.Is(err, inner) {
		t.Fatal("ClassifiedError does not unwrap to its cause")
	}
}
