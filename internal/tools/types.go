// Package tools maps the declared capability names the model may call
// onto handlers over the filesystem layer and the interaction broker.
// Every handler returns a structured result and never panics past the
// dispatch boundary; errors become {error} results the model can react
// to in its next turn.
package tools

import (
	"context"
	"fmt"

	"codesmith/internal/broker"
	"codesmith/internal/fsops"
	"codesmith/internal/state"
)

// Property describes one parameter for the capability's JSON schema.
type Property struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

// ToolSchema declares a capability's arguments.
type ToolSchema struct {
	Required   []string            `json:"required"`
	Properties map[string]Property `json:"properties"`
}

// Session carries the per-session mutable state every handler needs:
// the sandbox, the run's change log, the interaction slot, and the
// display channel. It is threaded explicitly through Execute rather
// than held in globals.
type Session struct {
	Workspace *fsops.Workspace
	Changes   *state.ChangeLog
	Broker    *broker.Broker

	// Inform displays a message to the user. It must not block on a
	// response and must not fail.
	Inform func(string)
}

// ExecuteFunc runs a capability against a session.
type ExecuteFunc func(ctx context.Context, s *Session, args map[string]any) Result

// Tool is one declared capability.
type Tool struct {
	// Name is the wire name the model calls. Part of the external
	// contract; renaming breaks interoperability.
	Name string

	// Description is sent to the model alongside the schema.
	Description string

	// Confirmable marks mutations that ask the user before applying.
	Confirmable bool

	// Execute runs the capability.
	Execute ExecuteFunc

	// Schema declares the arguments.
	Schema ToolSchema
}

// Validate checks the tool definition.
func (t *Tool) Validate() error {
	if t.Name == "" {
		return ErrToolNameEmpty
	}
	if t.Execute == nil {
		return ErrToolExecuteNil
	}
	return nil
}

// Result is the tagged outcome of one capability call. Payload always
// carries either "success": true or "error": <message>.
type Result struct {
	Payload map[string]any

	// Terminal is set only by finish; the engine stops the loop.
	Terminal bool

	// FinalMessage is the summary carried by a terminal result.
	FinalMessage string
}

// OK reports whether the result is a success.
func (r Result) OK() bool {
	ok, _ := r.Payload["success"].(bool)
	return ok
}

// ErrText returns the error message of a failure result, or "".
func (r Result) ErrText() string {
	msg, _ := r.Payload["error"].(string)
	return msg
}

// Success builds a success result with extra payload fields.
func Success(fields map[string]any) Result {
	payload := map[string]any{"success": true}
	for k, v := range fields {
		payload[k] = v
	}
	return Result{Payload: payload}
}

// Failure builds an error result.
func Failure(format string, args ...any) Result {
	return Result{Payload: map[string]any{"error": fmt.Sprintf(format, args...)}}
}

// Finished builds the terminal result for finish.
func Finished(finalMessage string) Result {
	return Result{
		Payload:      map[string]any{"success": true, "message": finalMessage},
		Terminal:     true,
		FinalMessage: finalMessage,
	}
}
