package model

import (
	"strings"

	"github.com/huandu/xstrings"
)

// State is the lifecycle status of an experiment or trial as reported by the master.
type State string

// Run states.
const (
	ActiveState            State = "ACTIVE"
	PausedState            State = "PAUSED"
	StoppingCanceledState  State = "STOPPING_CANCELED"
	StoppingCompletedState State = "STOPPING_COMPLETED"
	StoppingErrorState     State = "STOPPING_ERROR"
	CanceledState          State = "CANCELED"
	CompletedState         State = "COMPLETED"
	ErrorState             State = "ERROR"
	DeletedState           State = "DELETED"
)

// IsTerminal reports whether no further transitions are expected from this state.
func (s State) IsTerminal() bool {
	switch s {
	case CanceledState, CompletedState, ErrorState:
		return true
	default:
		return false
	}
}

// Label is the human readable form shown in the WebUI, e.g. "STOPPING_CANCELED" becomes
// "Stopping Canceled".
func (s State) Label() string {
	return label(string(s))
}

// CheckpointState is the state of a checkpoint.
type CheckpointState string

// Checkpoint states.
const (
	CheckpointActive    CheckpointState = "ACTIVE"
	CheckpointCompleted CheckpointState = "COMPLETED"
	CheckpointError     CheckpointState = "ERROR"
	CheckpointDeleted   CheckpointState = "DELETED"
)

// Label is the human readable form shown in the WebUI.
func (s CheckpointState) Label() string {
	return label(string(s))
}

func label(s string) string {
	words := strings.Split(strings.ToLower(s), "_")
	for i, w := range words {
		words[i] = xstrings.FirstRuneToUpper(w)
	}
	return strings.Join(words, " ")
}
