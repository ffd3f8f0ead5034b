package engine

import "fmt"

type (
	// Alert is a diagnostic published by the engine on Broker.Alerts. It
	// carries only plain values so that the audio thread can publish it
	// without allocating; Message formats it on the receiving side.
	Alert struct {
		Kind     AlertKind
		Priority AlertPriority
		Looper   uint32 // looper id the alert concerns, if any
		Code     int32  // command type code, if any
	}

	AlertKind int

	AlertPriority int
)

const (
	AlertUnrecognizedCommand AlertKind = iota
	AlertNoTarget
	AlertUnknownLooper
	AlertUnimplemented
	AlertDeleteRefused
	AlertOverdubRefused
)

const (
	Info AlertPriority = iota
	Warning
	Error
)

func (k AlertKind) String() string {
	switch k {
	case AlertUnrecognizedCommand:
		return "UnrecognizedCommand"
	case AlertNoTarget:
		return "NoTarget"
	case AlertUnknownLooper:
		return "UnknownLooper"
	case AlertUnimplemented:
		return "Unimplemented"
	case AlertDeleteRefused:
		return "DeleteRefused"
	case AlertOverdubRefused:
		return "OverdubRefused"
	}
	return fmt.Sprintf("AlertKind(%d)", int(k))
}

func (p AlertPriority) String() string {
	switch p {
	case Info:
		return "info"
	case Warning:
		return "warning"
	case Error:
		return "error"
	}
	return fmt.Sprintf("AlertPriority(%d)", int(p))
}

// Message returns a human readable description of the alert.
func (a Alert) Message() string {
	switch a.Kind {
	case AlertUnrecognizedCommand:
		return fmt.Sprintf("dropped command with unrecognized type code %d", a.Code)
	case AlertNoTarget:
		return "dropped command without a target"
	case AlertUnknownLooper:
		return fmt.Sprintf("ignored command for unknown looper %d", a.Looper)
	case AlertUnimplemented:
		return fmt.Sprintf("command type code %d is not implemented, looper %d left unchanged", a.Code, a.Looper)
	case AlertDeleteRefused:
		return fmt.Sprintf("looper %d cannot be deleted", a.Looper)
	case AlertOverdubRefused:
		return fmt.Sprintf("looper %d has nothing recorded to overdub on", a.Looper)
	}
	return a.Kind.String()
}
