//go:build !cgo

package cmd

import (
	"errors"

	"github.com/vsariola/looper/engine"
)

var errNoMIDI = errors.New("MIDI input is not available in builds without cgo")

func NewMIDIInput(prefix string, takeFirst bool) (engine.ProcessContext, func(), error) {
	// with no cgo, we cannot use MIDI, so return a null context
	if prefix != "" || takeFirst {
		return engine.NullProcessContext{}, func() {}, errNoMIDI
	}
	return engine.NullProcessContext{}, func() {}, nil
}
