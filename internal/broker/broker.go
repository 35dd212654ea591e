// Package broker implements the single-slot human-in-the-loop
// primitive. A handler that needs a confirmation or an answer suspends
// on the broker until the transport delivers a response or the session
// terminates; either way every pending interaction is resolved exactly
// once, so callers can never hang on an abandoned slot.
package broker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"codesmith/internal/logging"
)

// Kind tags a pending interaction.
type Kind int

const (
	KindConfirmation Kind = iota
	KindQuestion
)

// Decision is the outcome of a confirmation.
type Decision string

const (
	DecisionAcceptOnce Decision = "accept-once"
	DecisionReject     Decision = "reject"
	DecisionAcceptAll  Decision = "accept-all"
)

// Sentinel marks a forced resolution when the session ends with an
// interaction outstanding.
type Sentinel string

const (
	SentinelNone         Sentinel = ""
	SentinelDisconnected Sentinel = "disconnected"
	SentinelErrored      Sentinel = "errored"
	SentinelTaskEnded    Sentinel = "task-ended"
)

// Request describes one interaction shown to the user.
type Request struct {
	ID      string
	Kind    Kind
	Message string
	// Diff previews the pending change for confirmations.
	Diff string
}

// Resolution carries the response for one request. Sentinel is set
// instead of Decision/Answer when the session terminated first.
type Resolution struct {
	Decision Decision
	Answer   string
	Sentinel Sentinel
}

var (
	// ErrInteractionPending is returned when a second interaction is
	// requested while one is outstanding. Interactions are never queued.
	ErrInteractionPending = errors.New("an interaction is already pending")

	// ErrNoPendingInteraction is returned when resolving an absent or
	// already-resolved slot.
	ErrNoPendingInteraction = errors.New("no pending interaction")
)

type pending struct {
	req Request
	ch  chan Resolution
}

// Notifier delivers a request to the user-facing transport. It must not
// block; the response comes back through Resolve.
type Notifier func(Request)

// Broker is the per-session interaction slot.
type Broker struct {
	mu        sync.Mutex
	slot      *pending
	acceptAll bool
	notify    Notifier
}

// New creates a broker delivering requests through notify.
func New(notify Notifier) *Broker {
	if notify == nil {
		notify = func(Request) {}
	}
	return &Broker{notify: notify}
}

// AskConfirmation suspends until the user decides about a mutation.
// When a previous decision was accept-all the confirmation is skipped
// and accept-once returned immediately. An accept-all response sets the
// session flag for the rest of the run.
func (b *Broker) AskConfirmation(ctx context.Context, message, diff string) (Resolution, error) {
	b.mu.Lock()
	if b.acceptAll {
		b.mu.Unlock()
		return Resolution{Decision: DecisionAcceptOnce}, nil
	}
	b.mu.Unlock()

	res, err := b.await(ctx, Request{
		ID:      uuid.NewString(),
		Kind:    KindConfirmation,
		Message: message,
		Diff:    diff,
	})
	if err != nil {
		return Resolution{}, err
	}
	if res.Decision == DecisionAcceptAll {
		b.mu.Lock()
		b.acceptAll = true
		b.mu.Unlock()
		logging.Get(logging.CategoryBroker).Info("accept-all enabled for session")
	}
	return res, nil
}

// AskQuestion suspends until the user answers.
func (b *Broker) AskQuestion(ctx context.Context, question string) (Resolution, error) {
	return b.await(ctx, Request{
		ID:      uuid.NewString(),
		Kind:    KindQuestion,
		Message: question,
	})
}

func (b *Broker) await(ctx context.Context, req Request) (Resolution, error) {
	b.mu.Lock()
	if b.slot != nil {
		b.mu.Unlock()
		return Resolution{}, fmt.Errorf("%w: %s", ErrInteractionPending, b.describePending())
	}
	p := &pending{req: req, ch: make(chan Resolution, 1)}
	b.slot = p
	b.mu.Unlock()

	logging.Get(logging.CategoryBroker).Debug("interaction pending",
		zap.String("id", req.ID), zap.Int("kind", int(req.Kind)))
	b.notify(req)

	select {
	case res := <-p.ch:
		return res, nil
	case <-ctx.Done():
		// The slot may already have been taken by Resolve racing the
		// cancellation; prefer the delivered resolution if so.
		b.mu.Lock()
		if b.slot == p {
			b.slot = nil
		}
		b.mu.Unlock()
		select {
		case res := <-p.ch:
			return res, nil
		default:
		}
		return Resolution{Sentinel: SentinelTaskEnded}, nil
	}
}

// Resolve delivers the response for the pending interaction with the
// given ID. Resolving an absent, mismatched, or already-resolved slot
// returns ErrNoPendingInteraction.
func (b *Broker) Resolve(id string, res Resolution) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.slot == nil || b.slot.req.ID != id {
		return ErrNoPendingInteraction
	}
	b.slot.ch <- res
	b.slot = nil
	return nil
}

// Terminate force-resolves any outstanding interaction with a sentinel.
// Safe to call with nothing pending.
func (b *Broker) Terminate(sentinel Sentinel) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.slot == nil {
		return
	}
	logging.Get(logging.CategoryBroker).Info("pending interaction force-resolved",
		zap.String("id", b.slot.req.ID), zap.String("sentinel", string(sentinel)))
	b.slot.ch <- Resolution{Sentinel: sentinel}
	b.slot = nil
}

// Pending returns a copy of the outstanding request, if any.
func (b *Broker) Pending() (Request, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.slot == nil {
		return Request{}, false
	}
	return b.slot.req, true
}

// AcceptAll reports whether confirmations are bypassed for the session.
func (b *Broker) AcceptAll() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.acceptAll
}

// describePending is called with b.mu held.
func (b *Broker) describePending() string {
	if b.slot.req.Kind == KindQuestion {
		return "a question is awaiting an answer"
	}
	return "a confirmation is awaiting a decision"
}
