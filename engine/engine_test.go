package engine_test

import (
	"slices"
	"testing"

	"github.com/vsariola/looper"
	"github.com/vsariola/looper/engine"
	"gitlab.com/gomidi/midi/v2"
)

func newEngine(t *testing.T) (*engine.Engine, *engine.Broker) {
	t.Helper()
	config := looper.DefaultConfig()
	broker := engine.NewBroker(config)
	return engine.NewEngine(broker, config), broker
}

// stereo returns an input block with the given left and right channels.
func stereo(left, right []float32) [2][]float32 {
	return [2][]float32{left, right}
}

func silence(n int) [2][]float32 {
	return stereo(make([]float32, n), make([]float32, n))
}

func ramp(n int, start, step float32) []float32 {
	ret := make([]float32, n)
	for i := range ret {
		ret[i] = start + float32(i)*step
	}
	return ret
}

// process runs one block and returns the output.
func process(e *engine.Engine, in [2][]float32, context engine.ProcessContext) [2][]float32 {
	out := silence(len(in[0]))
	e.Process(in, out, context)
	return out
}

// latestState drains the state channel and returns the newest snapshot.
func latestState(t *testing.T, b *engine.Broker) looper.State {
	t.Helper()
	var ret looper.State
	found := false
	for {
		select {
		case s := <-b.ToGUI:
			ret = s.Copy()
			found = true
			b.PutState(s)
			continue
		default:
		}
		break
	}
	if !found {
		t.Fatal("engine did not publish a state")
	}
	return ret
}

func drainAlerts(b *engine.Broker) []engine.Alert {
	var ret []engine.Alert
	for {
		select {
		case a := <-b.Alerts:
			ret = append(ret, a)
		default:
			return ret
		}
	}
}

func mustLooper(t *testing.T, e *engine.Engine, id uint32) *engine.Looper {
	t.Helper()
	lp, ok := e.Looper(id)
	if !ok {
		t.Fatalf("looper %d does not exist", id)
	}
	return lp
}

// recordLoop records a one block loop on looper 0 and starts playing it from
// time 0, as in the arm, record and play sequence.
func recordLoop(t *testing.T, e *engine.Engine, b *engine.Broker, left, right []float32) {
	t.Helper()
	b.Send(looper.EnableReady.Target(0))
	process(e, stereo(left, right), nil)
	b.Send(looper.DisableRecord.Target(0))
	b.Send(looper.EnablePlay.Target(0))
	b.Send(looper.ResetTime.Command())
}

func TestNewEngine(t *testing.T) {
	e, b := newEngine(t)
	if e.NumLoopers() != 1 || e.Active() != 0 || e.Time() != 0 {
		t.Fatalf("unexpected initial engine: %d loopers, active %d, time %d", e.NumLoopers(), e.Active(), e.Time())
	}
	lp := mustLooper(t, e, 0)
	if lp.PlayMode != looper.Paused || lp.RecordMode != looper.RecordNone || len(lp.Layers) != 0 {
		t.Fatalf("unexpected initial looper: %+v", lp)
	}
	process(e, silence(16), nil)
	s := latestState(t, b)
	want := []looper.LoopState{{ID: 0, RecordMode: looper.RecordNone, PlayMode: looper.Paused, Active: true}}
	if !slices.Equal(s.Loops, want) {
		t.Errorf("state = %+v, want %+v", s.Loops, want)
	}
}

func TestArmAndRecord(t *testing.T) {
	e, b := newEngine(t)
	b.Send(looper.EnableReady.Target(0))
	left := ramp(64, 0, 0.5/63) // peaks at 0.5
	right := make([]float32, 64)
	process(e, stereo(left, right), nil)
	lp := mustLooper(t, e, 0)
	if lp.RecordMode != looper.RecordRecord {
		t.Fatalf("record mode = %v, want record", lp.RecordMode)
	}
	if len(lp.Layers) != 1 {
		t.Fatalf("got %d layers, want 1", len(lp.Layers))
	}
	if !slices.Equal(lp.Layers[0].Left, left) || !slices.Equal(lp.Layers[0].Right, right) {
		t.Error("layer 0 does not hold the raw input block")
	}
}

func TestReadyWaitsForSignal(t *testing.T) {
	e, b := newEngine(t)
	b.Send(looper.EnableReady.Target(0))
	quiet := ramp(32, -0.1, 0) // exactly at the threshold, not above
	process(e, stereo(quiet, quiet), nil)
	lp := mustLooper(t, e, 0)
	if lp.RecordMode != looper.RecordReady || len(lp.Layers) != 0 {
		t.Fatalf("looper started recording below threshold: mode %v, %d layers", lp.RecordMode, len(lp.Layers))
	}
	loudRight := ramp(32, 0, 0)
	loudRight[31] = -0.2
	process(e, stereo(make([]float32, 32), loudRight), nil)
	if lp.RecordMode != looper.RecordRecord {
		t.Fatalf("looper did not start recording on a right channel peak: mode %v", lp.RecordMode)
	}
}

func TestPlayRecordedBlock(t *testing.T) {
	e, b := newEngine(t)
	left := ramp(64, 0.5, -0.01)
	right := ramp(64, -0.2, 0.005)
	recordLoop(t, e, b, left, right)
	out := process(e, silence(64), nil)
	if e.Time() != 64 {
		t.Errorf("time = %d, want 64 after reset and one block", e.Time())
	}
	lp := mustLooper(t, e, 0)
	if lp.RecordMode != looper.RecordNone || lp.PlayMode != looper.Playing {
		t.Errorf("looper modes = %v/%v, want none/playing", lp.RecordMode, lp.PlayMode)
	}
	if !slices.Equal(out[0], left) || !slices.Equal(out[1], right) {
		t.Error("output does not repeat the recorded block")
	}
}

func TestAddLooper(t *testing.T) {
	e, b := newEngine(t)
	b.Send(looper.AddLooper.Command())
	b.Send(looper.AddLooper.Command())
	process(e, silence(8), nil)
	if e.NumLoopers() != 3 {
		t.Fatalf("got %d loopers, want 3", e.NumLoopers())
	}
	mustLooper(t, e, 1)
	mustLooper(t, e, 2)
	if e.Active() != 2 {
		t.Errorf("active = %d, want 2", e.Active())
	}
	s := latestState(t, b)
	var ids []uint32
	for _, l := range s.Loops {
		ids = append(ids, l.ID)
		if l.Active != (l.ID == 2) {
			t.Errorf("looper %d active = %v", l.ID, l.Active)
		}
	}
	if !slices.Equal(ids, []uint32{0, 1, 2}) {
		t.Errorf("state ids = %v, want [0 1 2]", ids)
	}
	b.Send(looper.AddLooper.Command())
	process(e, silence(8), nil)
	if e.Active() != 3 {
		t.Errorf("third added looper got id %d, want 3", e.Active())
	}
}

func TestUnrecognizedCommand(t *testing.T) {
	e, b := newEngine(t)
	recordLoop(t, e, b, ramp(8, 0.5, 0), ramp(8, 0.5, 0))
	process(e, silence(8), nil)
	drainAlerts(b)
	lp := mustLooper(t, e, 0)
	before := *lp
	layers := len(lp.Layers)

	b.Send(looper.LooperCommand{Loopers: []uint32{0}, Type: 42})
	b.Send(looper.GlobalCommand{Type: -1})
	b.Send(nil)
	process(e, silence(8), nil)

	if lp.PlayMode != before.PlayMode || lp.RecordMode != before.RecordMode || len(lp.Layers) != layers {
		t.Errorf("looper changed: %+v -> %+v", before, *lp)
	}
	if e.Time() != 16 {
		t.Errorf("time = %d, want 16", e.Time())
	}
	alerts := drainAlerts(b)
	want := []engine.AlertKind{engine.AlertUnrecognizedCommand, engine.AlertUnrecognizedCommand, engine.AlertNoTarget}
	var got []engine.AlertKind
	for _, a := range alerts {
		got = append(got, a.Kind)
	}
	if !slices.Equal(got, want) {
		t.Fatalf("alerts = %v, want %v", got, want)
	}
	if alerts[0].Code != 42 {
		t.Errorf("alert code = %d, want 42", alerts[0].Code)
	}
}

func TestUnknownLooperSkipsOnlyThatTarget(t *testing.T) {
	e, b := newEngine(t)
	b.Send(looper.EnablePlay.Target(99, 0))
	process(e, silence(8), nil)
	if lp := mustLooper(t, e, 0); lp.PlayMode != looper.Playing {
		t.Error("known target was not processed")
	}
	alerts := drainAlerts(b)
	if len(alerts) != 1 || alerts[0].Kind != engine.AlertUnknownLooper || alerts[0].Looper != 99 {
		t.Errorf("alerts = %+v, want one UnknownLooper for 99", alerts)
	}
}

func TestCommandIsolation(t *testing.T) {
	e, b := newEngine(t)
	b.Send(looper.AddLooper.Command())
	process(e, silence(8), nil)
	for _, typ := range []looper.LooperCommandType{looper.EnablePlay, looper.EnableReady, looper.EnableRecord} {
		b.Send(typ.Target(1))
	}
	process(e, stereo(ramp(8, 0.3, 0), ramp(8, 0.3, 0)), nil)
	lp0 := mustLooper(t, e, 0)
	if lp0.PlayMode != looper.Paused || lp0.RecordMode != looper.RecordNone || len(lp0.Layers) != 0 {
		t.Errorf("looper 0 changed by commands for looper 1: %+v", lp0)
	}
	lp1 := mustLooper(t, e, 1)
	if lp1.PlayMode != looper.Playing || lp1.RecordMode != looper.RecordRecord {
		t.Errorf("looper 1 = %v/%v, want playing/record", lp1.PlayMode, lp1.RecordMode)
	}
}

func TestLoopPlaybackIsPeriodic(t *testing.T) {
	e, b := newEngine(t)
	loop := ramp(5, 0.2, 0.1)
	recordLoop(t, e, b, loop, loop)
	var played []float32
	for _, n := range []int{3, 7, 1, 4, 5} {
		out := process(e, silence(n), nil)
		played = append(played, out[0]...)
	}
	for i, v := range played {
		if want := loop[i%len(loop)]; v != want {
			t.Fatalf("sample %d = %v, want %v", i, v, want)
		}
	}
}

func TestSilenceOnEmpty(t *testing.T) {
	e, b := newEngine(t)
	b.Send(looper.EnablePlay.Target(0))
	b.Send(looper.AddLooper.Command())
	b.Send(looper.EnablePlay.Target(1))
	in := stereo(ramp(16, -0.05, 0.005), ramp(16, 0.05, -0.005))
	out := process(e, in, nil)
	if !slices.Equal(out[0], in[0]) || !slices.Equal(out[1], in[1]) {
		t.Error("playing loopers without layers changed the signal")
	}
}

func TestRecordIsNotClearedByLaterPeaks(t *testing.T) {
	e, b := newEngine(t)
	b.Send(looper.EnableReady.Target(0))
	first := ramp(16, 0.9, 0)
	process(e, stereo(first, first), nil)
	second := ramp(16, -0.8, 0)
	process(e, stereo(second, second), nil)
	lp := mustLooper(t, e, 0)
	want := append(slices.Clone(first), second...)
	if !slices.Equal(lp.Layers[0].Left, want) {
		t.Errorf("layer 0 = %v, want %v", lp.Layers[0].Left, want)
	}
}

func TestTimeIsMonotonic(t *testing.T) {
	e, b := newEngine(t)
	total := 0
	for _, n := range []int{128, 1, 64, 1000, 0, 7} {
		process(e, silence(n), nil)
		total += n
		if e.Time() != total {
			t.Fatalf("time = %d, want %d", e.Time(), total)
		}
	}
	b.Send(looper.ResetTime.Command())
	process(e, silence(0), nil)
	if e.Time() != 0 {
		t.Errorf("time = %d after reset, want 0", e.Time())
	}
}

func TestInPlaceProcessingRecordsRawInput(t *testing.T) {
	e, b := newEngine(t)
	recordLoop(t, e, b, ramp(8, 0.5, 0), ramp(8, 0.5, 0))
	b.Send(looper.AddLooper.Command())
	b.Send(looper.EnableRecord.Target(1))
	buf := stereo(ramp(8, 0.2, 0), ramp(8, 0.2, 0))
	e.Process(buf, buf, nil)
	lp := mustLooper(t, e, 1)
	if len(lp.Layers) != 1 {
		t.Fatalf("got %d layers, want 1", len(lp.Layers))
	}
	if raw := ramp(8, 0.2, 0); !slices.Equal(lp.Layers[0].Left, raw) || !slices.Equal(lp.Layers[0].Right, raw) {
		t.Errorf("recorded %v, want the raw input %v", lp.Layers[0].Left, raw)
	}
	mixed := float32(0.2) + float32(0.5)
	for i := range buf[0] {
		if buf[0][i] != mixed || buf[1][i] != mixed {
			t.Fatalf("output frame %d = %v/%v, want %v", i, buf[0][i], buf[1][i], mixed)
		}
	}
}

func TestStateTimes(t *testing.T) {
	e, b := newEngine(t)
	loop := ramp(44100, 0.5, 0) // one second
	recordLoop(t, e, b, loop, loop)
	process(e, silence(22050), nil)
	process(e, silence(33075), nil) // 1.25 s into a 1 s loop
	s := latestState(t, b)
	l, ok := s.Find(0)
	if !ok {
		t.Fatal("looper 0 missing from state")
	}
	if l.Length != 1000 || l.Time != 250 {
		t.Errorf("time/length = %d/%d ms, want 250/1000", l.Time, l.Length)
	}
	b.Send(looper.DisablePlay.Target(0))
	process(e, silence(10), nil)
	if l, _ := latestState(t, b).Find(0); l.Time != 0 || l.Length != 1000 {
		t.Errorf("paused looper time/length = %d/%d ms, want 0/1000", l.Time, l.Length)
	}
}

func TestOverdub(t *testing.T) {
	e, b := newEngine(t)
	loop := ramp(8, 0.5, 0)
	recordLoop(t, e, b, loop, loop)
	process(e, silence(3), nil)

	b.Send(looper.EnableOverdub.Target(0))
	dub := ramp(8, 0.25, 0.01)
	out := process(e, stereo(dub, dub), nil)
	lp := mustLooper(t, e, 0)
	if lp.RecordMode != looper.RecordOverdub || len(lp.Layers) != 2 {
		t.Fatalf("mode %v with %d layers, want overdub with 2", lp.RecordMode, len(lp.Layers))
	}
	for i := range out[0] {
		if want := dub[i] + loop[(3+i)%8]; out[0][i] != want {
			t.Fatalf("output sample %d = %v, want %v", i, out[0][i], want)
		}
	}
	b.Send(looper.DisableOverdub.Target(0))
	out = process(e, silence(8), nil) // time 11, position 3
	if lp.RecordMode != looper.RecordNone {
		t.Fatalf("mode %v after DisableOverdub, want none", lp.RecordMode)
	}
	for i := range out[0] {
		want := loop[(11+i)%8] + dub[(i+8)%8]
		if out[0][i] != want {
			t.Errorf("sample %d = %v, want %v", i, out[0][i], want)
		}
	}
}

func TestOverdubWithoutLoopIsRefused(t *testing.T) {
	e, b := newEngine(t)
	b.Send(looper.EnableOverdub.Target(0))
	process(e, silence(8), nil)
	lp := mustLooper(t, e, 0)
	if lp.RecordMode != looper.RecordNone || len(lp.Layers) != 0 {
		t.Errorf("looper changed: %+v", lp)
	}
	if a := drainAlerts(b); len(a) != 1 || a[0].Kind != engine.AlertOverdubRefused {
		t.Errorf("alerts = %+v, want one OverdubRefused", a)
	}
}

func TestDelete(t *testing.T) {
	e, b := newEngine(t)
	b.Send(looper.AddLooper.Command())
	b.Send(looper.AddLooper.Command())
	b.Send(looper.Delete.Target(2))
	process(e, silence(8), nil)
	if _, ok := e.Looper(2); ok {
		t.Error("looper 2 still exists")
	}
	if e.Active() != 1 {
		t.Errorf("active = %d after deleting the active looper, want 1", e.Active())
	}
	b.Send(looper.Delete.Target(0))
	b.Send(looper.Select.Target(0))
	b.Send(looper.Delete.Target(1))
	process(e, silence(8), nil)
	if e.NumLoopers() != 1 || e.Active() != 0 {
		t.Errorf("got %d loopers with %d active, want only looper 0", e.NumLoopers(), e.Active())
	}
	if a := drainAlerts(b); len(a) != 1 || a[0].Kind != engine.AlertDeleteRefused {
		t.Errorf("alerts = %+v, want one DeleteRefused", a)
	}
}

func TestMultiplyIsNoop(t *testing.T) {
	e, b := newEngine(t)
	b.Send(looper.EnableMultiply.Target(0))
	b.Send(looper.DisableMultiply.Target(0))
	process(e, silence(8), nil)
	lp := mustLooper(t, e, 0)
	if lp.RecordMode != looper.RecordNone || lp.PlayMode != looper.Paused {
		t.Errorf("looper changed: %+v", lp)
	}
	for _, a := range drainAlerts(b) {
		if a.Kind != engine.AlertUnimplemented {
			t.Errorf("unexpected alert %v", a.Kind)
		}
	}
}

func TestSelect(t *testing.T) {
	e, b := newEngine(t)
	b.Send(looper.AddLooper.Command())
	b.Send(looper.Select.Target(0))
	b.Send(looper.Select.Target(7))
	process(e, silence(8), nil)
	if e.Active() != 0 {
		t.Errorf("active = %d, want 0", e.Active())
	}
}

func TestShortOutputIsZeroed(t *testing.T) {
	e, _ := newEngine(t)
	in := stereo(ramp(4, 0.5, 0), ramp(4, 0.5, 0))
	out := [2][]float32{ramp(6, 1, 0), ramp(6, 1, 0)}
	e.Process(in, out, nil)
	want := []float32{0.5, 0.5, 0.5, 0.5, 0, 0}
	if !slices.Equal(out[0], want) || !slices.Equal(out[1], want) {
		t.Errorf("out = %v, want %v", out, want)
	}
}

func TestStatesDropOldest(t *testing.T) {
	config := looper.DefaultConfig()
	config.StateQueue = 2
	config.SampleRate = 1000 // one sample per millisecond
	b := engine.NewBroker(config)
	e := engine.NewEngine(b, config)
	recordLoop(t, e, b, ramp(100, 0.5, 0), ramp(100, 0.5, 0))
	for range 5 {
		process(e, silence(10), nil)
	}
	if got := b.DroppedStates(); got != 4 {
		t.Errorf("dropped %d states, want 4", got)
	}
	var times []int64
	for len(b.ToGUI) > 0 {
		s := <-b.ToGUI
		l, _ := s.Find(0)
		times = append(times, l.Time)
		b.PutState(s)
	}
	if !slices.Equal(times, []int64{40, 50}) {
		t.Errorf("kept states at %v ms, want the newest two [40 50]", times)
	}
}

func TestMIDIRecordNote(t *testing.T) {
	e, b := newEngine(t)
	midiIn := &engine.MIDIBuffer{}
	midiIn.Add(midi.NoteOn(0, 60, 100))
	process(e, silence(8), midiIn)
	if lp := mustLooper(t, e, 0); lp.RecordMode != looper.RecordReady {
		t.Fatalf("note 60 on an empty looper: mode %v, want ready", lp.RecordMode)
	}

	// record something, start playing, then note 60 overdubs
	process(e, stereo(ramp(8, 0.5, 0), ramp(8, 0.5, 0)), nil)
	b.Send(looper.EnablePlay.Target(0))
	b.Send(looper.DisableRecord.Target(0))
	process(e, silence(8), nil)
	midiIn.Reset()
	midiIn.Add(midi.NoteOn(0, 60, 100))
	process(e, silence(8), midiIn)
	lp := mustLooper(t, e, 0)
	if lp.RecordMode != looper.RecordOverdub || len(lp.Layers) != 2 {
		t.Errorf("note 60 on a playing looper: mode %v with %d layers, want overdub with 2", lp.RecordMode, len(lp.Layers))
	}
}

func TestMIDIPlayNote(t *testing.T) {
	e, b := newEngine(t)
	b.Send(looper.EnableReady.Target(0))
	process(e, stereo(ramp(8, 0.5, 0), ramp(8, 0.5, 0)), nil)
	midiIn := &engine.MIDIBuffer{}
	midiIn.Add(midi.NoteOn(0, 62, 100))
	process(e, silence(8), midiIn)
	lp := mustLooper(t, e, 0)
	if lp.RecordMode != looper.RecordNone || lp.PlayMode != looper.Playing {
		t.Errorf("after note 62: %v/%v, want none/playing", lp.RecordMode, lp.PlayMode)
	}
	if e.Time() != 8 {
		t.Errorf("time = %d, want 8 (reset within the same block)", e.Time())
	}
	midiIn.Reset()
	midiIn.Add(midi.NoteOn(0, 62, 100))
	process(e, silence(8), midiIn)
	if lp.PlayMode != looper.Paused {
		t.Errorf("second note 62 left looper %v, want paused", lp.PlayMode)
	}
}

func TestMIDIAddLooperAndIgnoredMessages(t *testing.T) {
	e, _ := newEngine(t)
	midiIn := &engine.MIDIBuffer{}
	midiIn.Add(midi.NoteOn(0, 64, 100))
	midiIn.Add(midi.NoteOff(0, 60))
	midiIn.Add(midi.NoteOn(1, 60, 100)) // wrong channel
	midiIn.Add(midi.ControlChange(0, 60, 127))
	midiIn.Add(midi.Message{0x90, 60}) // truncated
	process(e, silence(8), midiIn)
	if e.NumLoopers() != 2 || e.Active() != 1 {
		t.Fatalf("got %d loopers, active %d; want 2 loopers, active 1", e.NumLoopers(), e.Active())
	}
	if lp := mustLooper(t, e, 1); lp.RecordMode != looper.RecordNone {
		t.Errorf("ignored messages changed the new looper: %v", lp.RecordMode)
	}
	if _, ok := midiIn.NextEvent(); ok {
		t.Error("engine did not consume all MIDI events")
	}
}

func TestMIDIDecisionsUseStateBeforeBlock(t *testing.T) {
	e, _ := newEngine(t)
	midiIn := &engine.MIDIBuffer{}
	// two presses of the play note in the same block both see a paused looper
	midiIn.Add(midi.NoteOn(0, 62, 100))
	midiIn.Add(midi.NoteOn(0, 62, 100))
	process(e, silence(8), midiIn)
	if lp := mustLooper(t, e, 0); lp.PlayMode != looper.Playing {
		t.Errorf("play mode %v, want playing", lp.PlayMode)
	}
}
