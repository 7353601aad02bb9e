package snapshotmgr

import (
	"fmt"

	"github.com/rs/zerolog"
)

// stateTracker enforces the snapshot operation's state machine and logs
// every transition, grounded on the teacher's staged-rollout logging
// discipline.
type stateTracker struct {
	current State
	logger  zerolog.Logger
}

func newStateTracker(logger zerolog.Logger) *stateTracker {
	return &stateTracker{current: StateInit, logger: logger}
}

func (t *stateTracker) transition(to State) error {
	if !canTransition(t.current, to) {
		return fmt.Errorf("snapshotmgr: invalid transition %s -> %s", t.current, to)
	}
	t.logger.Info().Str("from", string(t.current)).Str("to", string(to)).Msg("state transition")
	t.current = to
	return nil
}

func (t *stateTracker) fail(cause error) {
	if t.current == StateDone {
		return
	}
	t.logger.Error().Err(cause).Str("from", string(t.current)).Msg("operation failed")
	t.current = StateFailed
}
