package console

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Kind names a request slot. Each kind has at most one request in flight.
type Kind string

const (
	KindChatSend    Kind = "chat-send"
	KindBatchUpload Kind = "batch-upload"
	KindInfoFetch   Kind = "info-fetch"
)

type Phase int

const (
	PhaseIdle Phase = iota
	PhaseInFlight
	PhaseSucceeded
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseInFlight:
		return "in-flight"
	case PhaseSucceeded:
		return "succeeded"
	case PhaseFailed:
		return "failed"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// RequestState is the observable state of one slot. Result is set only in
// PhaseSucceeded and Err only in PhaseFailed.
type RequestState struct {
	Phase  Phase
	Result any
	Err    error
}

// Operation describes one outbound call run through a Controller.
//
// Start runs after the slot is claimed and before Call. Settle runs with the
// outcome of Call; the slot leaves PhaseInFlight only after Settle returns,
// so no reader sees "not loading" while a result is still being applied.
type Operation[T any] struct {
	Start  func()
	Call   func(ctx context.Context) (T, error)
	Settle func(result T, err error)
}

// Controller tracks request slots by kind.
type Controller struct {
	mu     sync.Mutex
	slots  map[Kind]RequestState
	logger *zap.Logger
}

func NewController(logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		slots:  make(map[Kind]RequestState),
		logger: logger,
	}
}

// State returns the current state of the slot for kind.
func (c *Controller) State(kind Kind) RequestState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.slots[kind]
}

// Observe runs read while no request can settle, so whatever read takes
// from the slots and from stores written by Settle is mutually consistent.
// read must not call back into the Controller.
func (c *Controller) Observe(read func(state func(Kind) RequestState)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	read(func(kind Kind) RequestState { return c.slots[kind] })
}

// Loading reports whether a request of the given kind is in flight.
func (c *Controller) Loading(kind Kind) bool {
	return c.State(kind).Phase == PhaseInFlight
}

// Run executes op in the slot for kind and blocks until it settles. It
// returns false without calling anything when the slot is already in flight.
// Errors and panics from op.Call never propagate past Run; they are handed
// to op.Settle and recorded in the slot.
func Run[T any](ctx context.Context, c *Controller, kind Kind, op Operation[T]) bool {
	c.mu.Lock()
	if c.slots[kind].Phase == PhaseInFlight {
		c.mu.Unlock()
		c.logger.Debug("request dropped, slot busy", zap.String("kind", string(kind)))
		return false
	}
	c.slots[kind] = RequestState{Phase: PhaseInFlight}
	if op.Start != nil {
		op.Start()
	}
	c.mu.Unlock()

	result, err := invoke(ctx, op.Call)

	c.mu.Lock()
	defer c.mu.Unlock()
	if op.Settle != nil {
		op.Settle(result, err)
	}
	if err != nil {
		c.slots[kind] = RequestState{Phase: PhaseFailed, Err: err}
		c.logger.Debug("request failed", zap.String("kind", string(kind)), zap.Error(err))
		return true
	}
	c.slots[kind] = RequestState{Phase: PhaseSucceeded, Result: result}
	return true
}

func invoke[T any](ctx context.Context, call func(context.Context) (T, error)) (result T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("operation panicked: %v", r)
		}
	}()
	if call == nil {
		return result, fmt.Errorf("operation has no call")
	}
	return call(ctx)
}
