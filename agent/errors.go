package agent

import (
	"errors"
	"fmt"
)

// ErrMaxTurns is returned when the model keeps requesting tools past the
// configured turn limit.
var ErrMaxTurns = errors.New("max turns exceeded")

// InvocationError wraps every failure of Agent.Run.
type InvocationError struct {
	Agent string
	Turn  int
	Err   error
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("agent %q failed on turn %d: %v", e.Agent, e.Turn, e.Err)
}

func (e *InvocationError) Unwrap() error { return e.Err }
