// Package channel owns the realtime socket lifecycles: the per-conversation
// live channel and the viewer-scoped notification channel. Sockets are
// explicit resources here; closing is always deliberate, never left to
// garbage collection.
package channel

import (
	"log/slog"

	"github.com/qmuntal/stateless"

	"pulsechat/domain"
)

// FSMTrigger drives channel lifecycle transitions.
type FSMTrigger string

const (
	triggerConnect FSMTrigger = "Connect"
	triggerOpened  FSMTrigger = "Opened"
	triggerClosed  FSMTrigger = "Closed"
)

// newChannelFSM wires the Idle -> Connecting -> Open -> Closed machine.
// Closed permits Connect again: the notification channel re-arms itself and
// a reconnect of the live channel is an explicit user action.
func newChannelFSM() *stateless.StateMachine {
	fsm := stateless.NewStateMachine(domain.ChannelIdle)

	fsm.Configure(domain.ChannelIdle).
		Permit(triggerConnect, domain.ChannelConnecting).
		Permit(triggerClosed, domain.ChannelClosed)

	fsm.Configure(domain.ChannelConnecting).
		Permit(triggerOpened, domain.ChannelOpen).
		Permit(triggerClosed, domain.ChannelClosed)

	fsm.Configure(domain.ChannelOpen).
		Permit(triggerClosed, domain.ChannelClosed)

	fsm.Configure(domain.ChannelClosed).
		Permit(triggerConnect, domain.ChannelConnecting)

	return fsm
}

// fire applies a trigger and logs refused transitions instead of panicking.
// A refused transition means the caller raced an already-settled lifecycle.
func fire(log *slog.Logger, fsm *stateless.StateMachine, trigger FSMTrigger) {
	if err := fsm.Fire(trigger); err != nil {
		log.Debug("Channel transition refused", "trigger", string(trigger), "error", err)
	}
}

func stateOf(fsm *stateless.StateMachine) domain.ChannelState {
	return fsm.MustState().(domain.ChannelState)
}
