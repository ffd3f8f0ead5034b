package engine

import (
	"fmt"
	"io"
	"sort"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

type (
	// MIDICue is a MIDI message scheduled at a sample frame.
	MIDICue struct {
		Frame   int
		Message midi.Message
	}

	// MIDISchedule is a ProcessContext that plays back a fixed list of cues,
	// for rendering offline. Call Advance with the length of each block
	// before processing it; the block then receives the cues falling in it.
	MIDISchedule struct {
		Cues  []MIDICue
		end   int
		index int
	}
)

// ReadMIDISchedule reads a standard MIDI file and schedules its channel
// messages on all tracks at the given sample rate.
func ReadMIDISchedule(r io.Reader, sampleRate int) (*MIDISchedule, error) {
	var cues []MIDICue
	reader := smf.ReadTracksFrom(r)
	reader.Do(func(ev smf.TrackEvent) {
		if !ev.Message.IsPlayable() {
			return
		}
		msg := midi.Message(ev.Message)
		frame := int(ev.AbsMicroSeconds * int64(sampleRate) / 1_000_000)
		cues = append(cues, MIDICue{Frame: frame, Message: msg})
	})
	if err := reader.Error(); err != nil {
		return nil, fmt.Errorf("could not read MIDI file: %w", err)
	}
	return NewMIDISchedule(cues), nil
}

// NewMIDISchedule sorts the cues by frame, keeping the order of cues on the
// same frame.
func NewMIDISchedule(cues []MIDICue) *MIDISchedule {
	sort.SliceStable(cues, func(i, j int) bool { return cues[i].Frame < cues[j].Frame })
	return &MIDISchedule{Cues: cues}
}

// Advance moves the end of the current block n frames forward.
func (s *MIDISchedule) Advance(n int) {
	s.end += n
}

func (s *MIDISchedule) NextEvent() (midi.Message, bool) {
	if s.index >= len(s.Cues) || s.Cues[s.index].Frame >= s.end {
		return nil, false
	}
	s.index++
	return s.Cues[s.index-1].Message, true
}

// Done reports whether all cues have been delivered.
func (s *MIDISchedule) Done() bool {
	return s.index >= len(s.Cues)
}

// Length returns the frame of the last cue.
func (s *MIDISchedule) Length() int {
	if len(s.Cues) == 0 {
		return 0
	}
	return s.Cues[len(s.Cues)-1].Frame
}
