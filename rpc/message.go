package rpc

import (
	"fmt"

	"github.com/vsariola/looper"
)

type (
	// CommandMessage is the wire form of a looper.Command. Exactly one of
	// Looper and Global should be set; codes are the numeric command types.
	CommandMessage struct {
		Looper *LooperCommandMessage `json:"looper,omitempty"`
		Global *GlobalCommandMessage `json:"global,omitempty"`
	}

	LooperCommandMessage struct {
		Loopers []uint32 `json:"loopers"`
		Command int32    `json:"command"`
	}

	GlobalCommandMessage struct {
		Command int32 `json:"command"`
	}
)

// NewCommandMessage encodes a command for sending.
func NewCommandMessage(c looper.Command) (CommandMessage, error) {
	switch cmd := c.(type) {
	case looper.LooperCommand:
		return CommandMessage{Looper: &LooperCommandMessage{Loopers: cmd.Loopers, Command: int32(cmd.Type)}}, nil
	case looper.GlobalCommand:
		return CommandMessage{Global: &GlobalCommandMessage{Command: int32(cmd.Type)}}, nil
	}
	return CommandMessage{}, looper.ErrNoTarget
}

// Command decodes the message. Unknown codes are rejected with
// looper.ErrUnrecognizedCommand and never turned into a valid command.
func (m CommandMessage) Command() (looper.Command, error) {
	switch {
	case m.Looper != nil && m.Global != nil:
		return nil, fmt.Errorf("message has both a looper and a global command: %w", looper.ErrNoTarget)
	case m.Looper != nil:
		t, err := looper.ParseLooperCommandType(m.Looper.Command)
		if err != nil {
			return nil, err
		}
		if len(m.Looper.Loopers) == 0 {
			return nil, fmt.Errorf("%v without loopers: %w", t, looper.ErrNoTarget)
		}
		return t.Target(m.Looper.Loopers...), nil
	case m.Global != nil:
		t, err := looper.ParseGlobalCommandType(m.Global.Command)
		if err != nil {
			return nil, err
		}
		return t.Command(), nil
	}
	return nil, looper.ErrNoTarget
}
