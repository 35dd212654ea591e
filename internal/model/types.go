// Package model defines the client adapter contract for the upstream
// LLM. The engine talks to a Client and classifies failures through the
// closed ErrorClass enum; provider specifics stay behind the adapter.
package model

import (
	"context"
	"errors"
	"fmt"

	"codesmith/internal/tools"
)

// FunctionCall is one operation the model asked for.
type FunctionCall struct {
	Name string
	Args map[string]any
}

// FunctionResult feeds a dispatched result back to the model.
type FunctionResult struct {
	Name     string
	Response map[string]any
}

// Role identifies the author of a message.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Message is one conversation turn. Exactly one of Text, Calls, or
// Results is populated.
type Message struct {
	Role    Role
	Text    string
	Calls   []FunctionCall
	Results []FunctionResult
}

// Turn is one model response: either plain text or function calls.
type Turn struct {
	Text  string
	Calls []FunctionCall
}

// Client sends a conversation turn to the upstream model. Errors must
// be surfaced as *ClassifiedError so the engine can apply its retry
// policy without inspecting provider error strings.
type Client interface {
	SendTurn(ctx context.Context, history []Message, decls []*tools.Tool) (*Turn, error)
}

// ErrorClass is the closed failure classification every adapter maps
// provider errors onto.
type ErrorClass int

const (
	// ClassUnknown covers anything the adapter could not classify.
	// Never retried.
	ClassUnknown ErrorClass = iota

	// ClassBadRequest is a malformed request. Never retried.
	ClassBadRequest

	// ClassRateLimited is a quota or overload rejection. Retried with
	// backoff.
	ClassRateLimited

	// ClassUnavailable is a transient upstream outage. Retried with
	// backoff; persistent exhaustion triggers auto-continuation.
	ClassUnavailable

	// ClassCanceled means the caller's context ended the call.
	ClassCanceled
)

// String returns the class name for logs.
func (c ErrorClass) String() string {
	switch c {
	case ClassBadRequest:
		return "bad-request"
	case ClassRateLimited:
		return "rate-limited"
	case ClassUnavailable:
		return "unavailable"
	case ClassCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Retryable reports whether the engine should retry this class.
func (c ErrorClass) Retryable() bool {
	return c == ClassRateLimited || c == ClassUnavailable
}

// ClassifiedError wraps an upstream failure with its class.
type ClassifiedError struct {
	Class   ErrorClass
	Message string
	Err     error
}

func (e *ClassifiedError) Error() string {
	return fmt.Sprintf("model call failed (%s): %s", e.Class, e.Message)
}

func (e *ClassifiedError) Unwrap() error {
	return e.Err
}

// Classify extracts the error class from an adapter error.
func Classify(err error) ErrorClass {
	if err == nil {
		return ClassUnknown
	}
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ClassCanceled
	}
	return ClassUnknown
}
