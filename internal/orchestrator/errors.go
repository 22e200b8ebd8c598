package orchestrator

import (
	"encoding/json"
	"fmt"
)

// Flow steps, used to tag where an error happened.
const (
	StepBuild     = "build"
	StepFinalize  = "finalize"
	StepSign      = "sign"
	StepBroadcast = "broadcast"
	StepConfirm   = "confirm"
)

// StepError records which step failed and why. The flow stays paused at the
// failing step; retrying the same command is always safe.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

func (e *StepError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Step    string `json:"step"`
		Message string `json:"message"`
	}{Step: e.Step, Message: e.Err.Error()})
}

// ValidationError names the specific invalid field. Raised before any
// external call, so nothing needs to be rolled back.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// FlowStateError is returned when a command arrives out of order.
type FlowStateError struct {
	Current string
	Wanted  string
}

func (e *FlowStateError) Error() string {
	return fmt.Sprintf("flow is %s, command requires %s", e.Current, e.Wanted)
}
