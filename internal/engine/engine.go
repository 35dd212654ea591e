// Package engine drives the multi-turn task loop: send the
// conversation to the model, dispatch its function calls strictly in
// order, feed the results back, and decide how the task ends. Upstream
// failures go through a classified retry policy with a one-shot
// auto-continuation after persistent outages.
package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"codesmith/internal/fsops"
	"codesmith/internal/logging"
	"codesmith/internal/model"
	"codesmith/internal/state"
	"codesmith/internal/tools"
)

// Outcome is the terminal state of a task run.
type Outcome int

const (
	// OutcomeFinished means the model finished, declined to continue,
	// or had nothing further to do.
	OutcomeFinished Outcome = iota

	// OutcomeError means communication failed beyond the retry budget
	// or processing a response failed internally.
	OutcomeError

	// OutcomeInterrupted means a termination signal ended the loop;
	// applied changes are persisted for resumption.
	OutcomeInterrupted
)

// String returns the outcome name.
func (o Outcome) String() string {
	switch o {
	case OutcomeFinished:
		return "finished"
	case OutcomeError:
		return "error"
	case OutcomeInterrupted:
		return "interrupted"
	}
	return "unknown"
}

// Report is the result of a run: the outcome plus a human-readable
// message for the user.
type Report struct {
	Outcome Outcome
	Message string
}

// RetryPolicy controls backoff for retryable upstream failures.
type RetryPolicy struct {
	// MaxAttempts bounds tries per model call, first attempt included.
	MaxAttempts int

	// InitialDelay is slept before the first retry.
	InitialDelay time.Duration

	// Multiplier scales the delay after every retry.
	Multiplier float64
}

// DefaultRetryPolicy matches the documented policy: three attempts,
// exponential backoff scaled by 1.5.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, InitialDelay: 2 * time.Second, Multiplier: 1.5}
}

// Config wires an engine.
type Config struct {
	// Instruction is the user's task, used for persistence and for the
	// auto-continuation summary.
	Instruction string

	Client   model.Client
	Registry *tools.Registry
	Session  *tools.Session

	// Store persists task state at checkpoints. Optional; a nil store
	// disables persistence.
	Store *state.Store

	Retry RetryPolicy
}

// Engine runs one task against one working directory. Not reusable;
// create a fresh engine per run.
type Engine struct {
	cfg     Config
	history []model.Message

	// baseline holds the change records a prior run of the same
	// instruction persisted, loaded once at the first checkpoint.
	baseline       []fsops.ChangeRecord
	baselineLoaded bool

	continued bool
	log       *zap.Logger
}

// New creates an engine. Instruction, client, registry, and session
// are required.
func New(cfg Config) (*Engine, error) {
	if cfg.Instruction == "" {
		return nil, fmt.Errorf("instruction is required")
	}
	if cfg.Client == nil {
		return nil, fmt.Errorf("model client is required")
	}
	if cfg.Registry == nil || cfg.Session == nil {
		return nil, fmt.Errorf("registry and session are required")
	}
	if cfg.Retry.MaxAttempts < 1 {
		cfg.Retry = DefaultRetryPolicy()
	}
	return &Engine{cfg: cfg, log: logging.Get(logging.CategoryEngine)}, nil
}

// Run executes the task loop until a terminal state. At most one model
// round-trip is in flight, and function calls within one response
// execute strictly sequentially.
func (e *Engine) Run(ctx context.Context, initialMessage string) Report {
	e.history = []model.Message{{Role: model.RoleUser, Text: initialMessage}}
	decls := e.cfg.Registry.All()

	for {
		if ctx.Err() != nil {
			return e.interrupted()
		}

		turn, err := e.sendWithRetry(ctx, decls)
		if err != nil {
			class := model.Classify(err)
			if class == model.ClassCanceled {
				return e.interrupted()
			}
			if class.Retryable() && !e.continued {
				// Persistent upstream failure: flush what we have and
				// restart once from a summarized context.
				e.continued = true
				e.flush()
				summary := e.continuationMessage()
				e.log.Warn("upstream persistently unavailable, attempting auto-continuation",
					zap.String("class", class.String()))
				e.history = []model.Message{{Role: model.RoleUser, Text: summary}}
				continue
			}
			e.flush()
			e.log.Error("task failed", zap.Error(err))
			return Report{Outcome: OutcomeError, Message: fmt.Sprintf("task failed: %v", err)}
		}

		if len(turn.Calls) == 0 {
			e.flush()
			if turn.Text != "" {
				// Only function calls are expected here; plain text
				// means the model opted not to continue.
				e.log.Warn("model replied with text instead of a function call",
					zap.Int("chars", len(turn.Text)))
				return Report{Outcome: OutcomeFinished, Message: turn.Text}
			}
			return Report{Outcome: OutcomeFinished, Message: "The model proposed no further action."}
		}

		results := make([]model.FunctionResult, 0, len(turn.Calls))
		for _, call := range turn.Calls {
			if ctx.Err() != nil {
				return e.interrupted()
			}
			res := e.cfg.Registry.Execute(ctx, e.cfg.Session, call.Name, call.Args)
			if res.Terminal {
				// finish: stop immediately, not-yet-sent results are
				// discarded.
				e.flush()
				e.log.Info("task finished", zap.Int("changes", e.cfg.Session.Changes.Len()))
				return Report{Outcome: OutcomeFinished, Message: res.FinalMessage}
			}
			results = append(results, model.FunctionResult{Name: call.Name, Response: res.Payload})
		}

		e.history = append(e.history,
			model.Message{Role: model.RoleModel, Calls: turn.Calls},
			model.Message{Role: model.RoleUser, Results: results},
		)
	}
}

// sendWithRetry wraps one model round-trip in the retry policy.
// Malformed requests and unclassified failures are never retried;
// rate limits and transient outages back off exponentially.
func (e *Engine) sendWithRetry(ctx context.Context, decls []*tools.Tool) (*model.Turn, error) {
	delay := e.cfg.Retry.InitialDelay
	var lastErr error

	for attempt := 1; attempt <= e.cfg.Retry.MaxAttempts; attempt++ {
		turn, err := e.cfg.Client.SendTurn(ctx, e.history, decls)
		if err == nil {
			return turn, nil
		}
		lastErr = err

		class := model.Classify(err)
		if !class.Retryable() {
			return nil, err
		}
		if attempt == e.cfg.Retry.MaxAttempts {
			break
		}

		e.log.Warn("model call failed, backing off",
			zap.Int("attempt", attempt),
			zap.String("class", class.String()),
			zap.Duration("delay", delay))
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, &model.ClassifiedError{Class: model.ClassCanceled, Message: "canceled during backoff", Err: ctx.Err()}
		}
		delay = time.Duration(float64(delay) * e.cfg.Retry.Multiplier)
	}
	return nil, lastErr
}

// continuationMessage synthesizes the fresh-turn message after a
// persistent failure: the original instruction plus what was already
// applied, so the restarted conversation does not redo work.
func (e *Engine) continuationMessage() string {
	changes := e.cfg.Session.Changes.Records()
	msg := fmt.Sprintf(
		"The previous attempt at this task was interrupted by a service outage. "+
			"Continue the task, do not repeat completed work.\n\nTask: %s\n", e.cfg.Instruction)
	if len(changes) == 0 {
		return msg + "\nNo changes have been applied yet."
	}
	msg += "\nChanges already applied:\n"
	for _, rec := range changes {
		if rec.DestPath != "" {
			msg += fmt.Sprintf("- %s: %s -> %s\n", rec.Op, rec.Path, rec.DestPath)
			continue
		}
		msg += fmt.Sprintf("- %s: %s\n", rec.Op, rec.Path)
	}
	return msg
}

func (e *Engine) interrupted() Report {
	e.flush()
	e.log.Info("task interrupted", zap.Int("changes", e.cfg.Session.Changes.Len()))
	return Report{
		Outcome: OutcomeInterrupted,
		Message: "The task was interrupted. Applied changes are saved and the task can be resumed.",
	}
}

// flush persists the full change log at a checkpoint. The whole log is
// written every time because later operations merge into existing
// records in place, so a delta since the last flush would miss them.
// The first flush loads what a prior run of the same instruction left
// behind, so a resumed task extends its stored history; a different
// instruction replaces it.
func (e *Engine) flush() {
	if e.cfg.Store == nil {
		return
	}
	if !e.baselineLoaded {
		prior, err := e.cfg.Store.Load(e.cfg.Session.Workspace.Root)
		if err != nil {
			e.log.Error("failed to load prior task state", zap.Error(err))
			return
		}
		if prior != nil && prior.Instruction == e.cfg.Instruction {
			e.baseline = prior.Changes
		}
		e.baselineLoaded = true
	}

	records := e.cfg.Session.Changes.Records()
	if len(e.baseline)+len(records) == 0 {
		return
	}
	err := e.cfg.Store.Replace(&state.TaskState{
		Instruction:      e.cfg.Instruction,
		WorkingDirectory: e.cfg.Session.Workspace.Root,
		Changes:          append(append([]fsops.ChangeRecord{}, e.baseline...), records...),
	})
	if err != nil {
		e.log.Error("failed to persist task state", zap.Error(err))
	}
}
