package looper

import "strconv"

type (
	// RecordMode tells what a looper does with the live input. A looper in
	// RecordReady is armed: it starts recording only after the input signal
	// crosses the engine threshold. The numeric values are the wire codes
	// reported in State snapshots.
	RecordMode int32

	// PlayMode tells whether the recorded layers of a looper are mixed into
	// the output. It is independent of the RecordMode: a looper can record
	// while paused.
	PlayMode int32
)

const (
	RecordNone RecordMode = iota
	RecordReady
	RecordRecord
	RecordOverdub
)

const (
	Paused PlayMode = iota
	Playing
)

// DefaultSampleRate is the engine sample rate used unless the configuration
// says otherwise.
const DefaultSampleRate = 44100

// DefaultThreshold is the peak amplitude that the input must exceed to start
// recording on an armed looper.
const DefaultThreshold = 0.1

var recordModeNames = [...]string{"none", "ready", "record", "overdub"}

func (m RecordMode) String() string {
	if m < 0 || int(m) >= len(recordModeNames) {
		return "recordmode(" + strconv.Itoa(int(m)) + ")"
	}
	return recordModeNames[m]
}

func (m PlayMode) String() string {
	switch m {
	case Paused:
		return "paused"
	case Playing:
		return "playing"
	}
	return "playmode(" + strconv.Itoa(int(m)) + ")"
}

// SamplesToMillis converts a sample count to milliseconds at the given sample
// rate. The result is truncated, not rounded.
func SamplesToMillis(samples int, sampleRate int) int64 {
	if sampleRate <= 0 {
		return 0
	}
	return int64(samples) * 1000 / int64(sampleRate)
}
