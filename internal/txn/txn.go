// Package txn runs a group of pool operations so that they all take effect
// or none do.
package txn

import (
	"context"
	"errors"
	"fmt"
)

// ErrAborted is returned when the transaction body panics.
var ErrAborted = errors.New("transaction aborted")

// Participant is state that can be captured before a transaction and put
// back if it fails.
type Participant interface {
	// Snapshot captures the current state and returns a func restoring it.
	Snapshot() func()
}

// Run snapshots every participant, calls fn, and restores the snapshots in
// reverse order when fn returns an error, panics or ctx is cancelled.
func Run(ctx context.Context, participants []Participant, fn func(ctx context.Context) error) (err error) {
	restores := make([]func(), 0, len(participants))
	for _, p := range participants {
		if p == nil {
			continue
		}
		restores = append(restores, p.Snapshot())
	}

	rollback := func() {
		for i := len(restores) - 1; i >= 0; i-- {
			restores[i]()
		}
	}

	defer func() {
		if r := recover(); r != nil {
			rollback()
			err = fmt.Errorf("%w: %v", ErrAborted, r)
		}
	}()

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := fn(ctx); err != nil {
		rollback()
		return err
	}
	if err := ctx.Err(); err != nil {
		rollback()
		return err
	}
	return nil
}
