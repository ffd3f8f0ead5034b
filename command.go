package looper

import (
	"errors"
	"fmt"
	"strconv"
)

type (
	// Command is a control message consumed exactly once by the engine. It
	// is a closed sum type: only LooperCommand and GlobalCommand implement
	// it.
	Command interface {
		isCommand()
	}

	// LooperCommand targets one or more loopers by id. Targets that do not
	// exist are skipped; the rest are still processed.
	LooperCommand struct {
		Loopers []uint32
		Type    LooperCommandType
	}

	// GlobalCommand acts on the engine as a whole.
	GlobalCommand struct {
		Type GlobalCommandType
	}

	LooperCommandType int32

	GlobalCommandType int32
)

const (
	EnableReady LooperCommandType = iota
	EnableRecord
	DisableRecord
	EnableOverdub
	DisableOverdub
	EnableMultiply
	DisableMultiply
	EnablePlay
	DisablePlay
	Select
	Delete
	numLooperCommandTypes
)

const (
	ResetTime GlobalCommandType = iota
	AddLooper
	numGlobalCommandTypes
)

var (
	// ErrUnrecognizedCommand is returned when a command type code does not
	// name any known command. Such commands are dropped, never mapped to a
	// valid variant.
	ErrUnrecognizedCommand = errors.New("unrecognized command")
	// ErrNoTarget is returned for a command message that names neither a
	// looper command nor a global command.
	ErrNoTarget = errors.New("command has no target")
)

func (LooperCommand) isCommand() {}
func (GlobalCommand) isCommand() {}

var looperCommandNames = [...]string{
	"EnableReady", "EnableRecord", "DisableRecord", "EnableOverdub",
	"DisableOverdub", "EnableMultiply", "DisableMultiply", "EnablePlay",
	"DisablePlay", "Select", "Delete",
}

// Valid reports whether t is one of the known looper command types.
func (t LooperCommandType) Valid() bool {
	return t >= 0 && t < numLooperCommandTypes
}

func (t LooperCommandType) String() string {
	if !t.Valid() {
		return "LooperCommandType(" + strconv.Itoa(int(t)) + ")"
	}
	return looperCommandNames[t]
}

// Valid reports whether t is one of the known global command types.
func (t GlobalCommandType) Valid() bool {
	return t >= 0 && t < numGlobalCommandTypes
}

func (t GlobalCommandType) String() string {
	switch t {
	case ResetTime:
		return "ResetTime"
	case AddLooper:
		return "AddLooper"
	}
	return "GlobalCommandType(" + strconv.Itoa(int(t)) + ")"
}

// ParseLooperCommandType converts a wire code to a LooperCommandType.
func ParseLooperCommandType(code int32) (LooperCommandType, error) {
	t := LooperCommandType(code)
	if !t.Valid() {
		return 0, fmt.Errorf("looper command code %d: %w", code, ErrUnrecognizedCommand)
	}
	return t, nil
}

// ParseGlobalCommandType converts a wire code to a GlobalCommandType.
func ParseGlobalCommandType(code int32) (GlobalCommandType, error) {
	t := GlobalCommandType(code)
	if !t.Valid() {
		return 0, fmt.Errorf("global command code %d: %w", code, ErrUnrecognizedCommand)
	}
	return t, nil
}

// Target returns a LooperCommand of type t for the given looper ids.
func (t LooperCommandType) Target(ids ...uint32) LooperCommand {
	return LooperCommand{Loopers: ids, Type: t}
}

// Command returns a GlobalCommand of type t.
func (t GlobalCommandType) Command() GlobalCommand {
	return GlobalCommand{Type: t}
}
