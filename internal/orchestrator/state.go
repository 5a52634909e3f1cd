package orchestrator

// State is the lifecycle state of an Orchestrator.
type State int

const (
	StateUninitialized State = iota
	StateDriverReady
	StateProvisioning
	StateReady
	StateExecuting
	StateTearingDown
	StateIdle
	StateShutdown
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "Uninitialized"
	case StateDriverReady:
		return "DriverReady"
	case StateProvisioning:
		return "Provisioning"
	case StateReady:
		return "Ready"
	case StateExecuting:
		return "Executing"
	case StateTearingDown:
		return "TearingDown"
	case StateIdle:
		return "Idle"
	case StateShutdown:
		return "Shutdown"
	default:
		return "Unknown"
	}
}

// canRun reports whether a new test may start from s.
func (s State) canRun() bool {
	return s == StateDriverReady || s == StateIdle
}
