package core

import "fmt"

// TransferState tracks a single money movement through the engine.
type TransferState int

const (
	StateInitiated TransferState = iota
	StateValidated
	StateLocked
	StateDebited
	StateCredited
	StateRecorded
	StateCommitted
	StateRolledBack
)

var stateNames = [...]string{
	"initiated",
	"validated",
	"locked",
	"debited",
	"credited",
	"recorded",
	"committed",
	"rolled_back",
}

func (s TransferState) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

func (s TransferState) Terminal() bool {
	return s == StateCommitted || s == StateRolledBack
}

// CanTransition reports whether next is a legal successor of s. The happy path
// is strictly linear; any non-terminal state may roll back. Deposits skip
// Debited and withdrawals skip Credited.
func (s TransferState) CanTransition(next TransferState) bool {
	if s.Terminal() {
		return false
	}
	if next == StateRolledBack {
		return true
	}
	switch s {
	case StateLocked:
		return next == StateDebited || next == StateCredited
	case StateDebited:
		return next == StateCredited || next == StateRecorded
	}
	return next == s+1
}
