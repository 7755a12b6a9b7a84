package driver

import (
	"context"

	"github.com/looplab/fsm"

	"github.com/Klingon-tech/txpump/internal/log"
)

// Driver states.
const (
	StateInitializing = "Initializing"
	StateSyncing      = "Syncing"
	StateReady        = "Ready"
	StateBuilding     = "Building"
	StateSubmitting   = "Submitting"
	StateApplying     = "Applying"
	StateRetryWait    = "RetryWait"
	StateForcedResync = "ForcedResync"
)

// Driver events.
const (
	evDerived  = "derived"
	evSynced   = "synced"
	evBuild    = "build"
	evBuilt    = "built"
	evFail     = "fail"
	evAccepted = "accepted"
	evApplied  = "applied"
	evRetry    = "retry"
	evEscalate = "escalate"
	evResync   = "resync"
)

// newStateMachine returns the driver's transition table, starting in
// Initializing.
func newStateMachine() *fsm.FSM {
	return fsm.NewFSM(
		StateInitializing,
		fsm.Events{
			{Name: evDerived, Src: []string{StateInitializing}, Dst: StateSyncing},
			{Name: evSynced, Src: []string{StateSyncing}, Dst: StateReady},
			{Name: evBuild, Src: []string{StateReady}, Dst: StateBuilding},
			{Name: evBuilt, Src: []string{StateBuilding}, Dst: StateSubmitting},
			{Name: evFail, Src: []string{StateBuilding, StateSubmitting}, Dst: StateRetryWait},
			{Name: evAccepted, Src: []string{StateSubmitting}, Dst: StateApplying},
			{Name: evApplied, Src: []string{StateApplying}, Dst: StateReady},
			{Name: evRetry, Src: []string{StateRetryWait}, Dst: StateBuilding},
			{Name: evEscalate, Src: []string{StateRetryWait, StateApplying}, Dst: StateForcedResync},
			{Name: evResync, Src: []string{StateForcedResync}, Dst: StateSyncing},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				log.Driver.Trace().
					Str("event", e.Event).
					Str("from", e.Src).
					Str("to", e.Dst).
					Msg("State transition")
			},
		},
	)
}
