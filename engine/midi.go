package engine

import (
	"github.com/vsariola/looper"
	"gitlab.com/gomidi/midi/v2"
)

type (
	// ProcessContext is given to the engine for each processed block. It
	// yields the raw MIDI messages received for the block; the engine reads
	// every one of them and keeps none.
	ProcessContext interface {
		NextEvent() (msg midi.Message, ok bool)
	}

	// MIDIBuffer is a ProcessContext backed by a slice of messages, for
	// drivers that collect the events of a block before processing it.
	MIDIBuffer struct {
		Events []midi.Message
		index  int
	}

	// NullProcessContext is a ProcessContext without any MIDI events.
	NullProcessContext struct{}
)

func (NullProcessContext) NextEvent() (midi.Message, bool) { return nil, false }

func (b *MIDIBuffer) NextEvent() (midi.Message, bool) {
	if b.index >= len(b.Events) {
		return nil, false
	}
	b.index++
	return b.Events[b.index-1], true
}

// Add appends a message for the next block.
func (b *MIDIBuffer) Add(msg midi.Message) {
	b.Events = append(b.Events, msg)
}

// Reset empties the buffer but keeps the allocated memory.
func (b *MIDIBuffer) Reset() {
	clear(b.Events)
	b.Events = b.Events[:0]
	b.index = 0
}

// translateMIDI turns the note-on messages of the block into commands for the
// active looper and queues them like any other command. All decisions are
// made against the state the active looper has before any of them is
// processed.
func (e *Engine) translateMIDI(context ProcessContext) {
	if context == nil {
		return
	}
	active := e.activeLooper()
	for {
		msg, ok := context.NextEvent()
		if !ok {
			return
		}
		if active == nil || len(msg) != 3 || msg[0] != e.mapping.Status {
			continue
		}
		switch msg[1] {
		case e.mapping.Record:
			if len(active.Layers) == 0 || active.PlayMode == looper.Paused {
				e.broker.Send(looper.EnableReady.Target(active.ID))
			} else {
				e.broker.Send(looper.EnableOverdub.Target(active.ID))
			}
		case e.mapping.Play:
			e.broker.Send(looper.DisableRecord.Target(active.ID))
			if active.PlayMode == looper.Paused {
				e.broker.Send(looper.EnablePlay.Target(active.ID))
			} else {
				e.broker.Send(looper.DisablePlay.Target(active.ID))
			}
			e.broker.Send(looper.ResetTime.Command())
		case e.mapping.AddLooper:
			e.broker.Send(looper.AddLooper.Command())
		}
	}
}
