//go:build cgo

package cmd

import (
	"github.com/vsariola/looper/engine"
	"github.com/vsariola/looper/engine/gomidi"
)

// NewMIDIInput opens the first MIDI input whose name starts with prefix, or
// the first input at all if takeFirst is set. The returned close function is
// never nil.
func NewMIDIInput(prefix string, takeFirst bool) (engine.ProcessContext, func(), error) {
	context := gomidi.NewContext()
	if err := context.TryToOpenBy(prefix, takeFirst); err != nil {
		context.Close()
		return engine.NullProcessContext{}, func() {}, err
	}
	return context, context.Close, nil
}
