package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
)

var ErrAlreadyStarted = errors.New("already started")
var ErrNotStarted = errors.New("not started")
var ErrAlreadyStopped = errors.New("already stopped")

// Manager is implemented by every component that owns resources between Start and Stop.
type Manager interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// ValidatedLifecycle rejects a second Start, a Stop before Start and a second Stop.
// Embed it in components that wrap other Managers.
type ValidatedLifecycle struct {
	name      string
	isStarted atomic.Bool
	isStopped atomic.Bool
}

func NewValidatedLifecycle(name string) *ValidatedLifecycle {
	return &ValidatedLifecycle{
		name: name,
	}
}

func (vl *ValidatedLifecycle) Start(ctx context.Context) error {
	if !vl.isStarted.CompareAndSwap(false, true) {
		return fmt.Errorf("%s: %w", vl.name, ErrAlreadyStarted)
	}
	return nil
}

func (vl *ValidatedLifecycle) Stop(ctx context.Context) error {
	if !vl.isStarted.Load() {
		return fmt.Errorf("%s: %w", vl.name, ErrNotStarted)
	}
	if !vl.isStopped.CompareAndSwap(false, true) {
		return fmt.Errorf("%s: %w", vl.name, ErrAlreadyStopped)
	}
	return nil
}
