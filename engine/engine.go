package engine

import (
	"slices"

	"github.com/vsariola/looper"
)

type (
	// Engine is the audio side of the looper. It owns all the loopers and the
	// global sample clock and is driven block by block through Process,
	// which must always be called from the same goroutine: the audio thread
	// is the only one that ever touches the engine state, so no locks are
	// needed. Everything else talks to the engine through the Broker.
	Engine struct {
		loopers   []*Looper
		active    uint32
		time      int // samples processed since start or the last ResetTime
		idCounter uint32

		sampleRate int
		threshold  float32
		mapping    looper.MIDIMapping

		broker *Broker

		mix     [2][]float32
		scratch []float32
	}
)

// NewEngine returns an engine with a single paused looper, id 0, which is
// also the active one.
func NewEngine(broker *Broker, config looper.Config) *Engine {
	return &Engine{
		loopers:    []*Looper{{ID: 0}},
		active:     0,
		idCounter:  1,
		sampleRate: config.SampleRate,
		threshold:  config.Threshold,
		mapping:    config.MIDI,
		broker:     broker,
	}
}

// Process runs one block: it turns the MIDI events of the block into
// commands, applies all pending commands, mixes the playing loopers over the
// live input into out, records the raw input into the active looper, advances
// the clock and publishes a State snapshot. The block length is the length of
// the shortest of the four channels; the rest of out is zeroed.
//
// Process never blocks and never panics on bad commands; problems are
// reported on Broker.Alerts.
func (e *Engine) Process(in, out [2][]float32, context ProcessContext) {
	e.translateMIDI(context)
	e.processCommands()

	n := min(len(in[0]), len(in[1]), len(out[0]), len(out[1]))
	inL, inR := in[0][:n], in[1][:n]
	l, r := e.mixBuffers(n)
	copy(l, inL)
	copy(r, inR)

	for _, lp := range e.loopers {
		if lp.PlayMode != looper.Playing || lp.Period() == 0 {
			continue
		}
		for _, layer := range lp.Layers {
			addLooped(l, layer.Left, e.time)
			addLooped(r, layer.Right, e.time)
		}
	}

	active := e.activeLooper()
	if active != nil && active.RecordMode == looper.RecordReady &&
		(peak(inL, e.scratch) > e.threshold || peak(inR, e.scratch) > e.threshold) {
		active.clear()
		active.RecordMode = looper.RecordRecord
	}

	// in and out may share memory, so the raw input is consumed before the
	// mix is written
	if active != nil {
		switch active.RecordMode {
		case looper.RecordRecord:
			active.record(inL, inR)
		case looper.RecordOverdub:
			active.overdub(inL, inR, e.time)
		}
	}

	copy(out[0], l)
	copy(out[1], r)
	clear(out[0][n:])
	clear(out[1][n:])

	e.time += n
	e.publishState()
}

// Time returns the global sample clock.
func (e *Engine) Time() int { return e.time }

// Active returns the id of the active looper.
func (e *Engine) Active() uint32 { return e.active }

// Looper returns the looper with the given id. The looper must not be
// modified, nor read while the engine is processing on another goroutine.
func (e *Engine) Looper(id uint32) (*Looper, bool) {
	i := e.looperIndex(id)
	if i < 0 {
		return nil, false
	}
	return e.loopers[i], true
}

// NumLoopers returns how many loopers the engine has.
func (e *Engine) NumLoopers() int { return len(e.loopers) }

func (e *Engine) processCommands() {
	for {
		c, ok := e.broker.ToEngine.Pop()
		if !ok {
			return
		}
		switch cmd := c.(type) {
		case looper.LooperCommand:
			e.handleLooperCommand(cmd)
		case *looper.LooperCommand:
			if cmd == nil {
				e.alert(Alert{Kind: AlertNoTarget, Priority: Warning})
				continue
			}
			e.handleLooperCommand(*cmd)
		case looper.GlobalCommand:
			e.handleGlobalCommand(cmd)
		case *looper.GlobalCommand:
			if cmd == nil {
				e.alert(Alert{Kind: AlertNoTarget, Priority: Warning})
				continue
			}
			e.handleGlobalCommand(*cmd)
		default:
			e.alert(Alert{Kind: AlertNoTarget, Priority: Warning})
		}
	}
}

func (e *Engine) handleLooperCommand(cmd looper.LooperCommand) {
	if !cmd.Type.Valid() {
		e.alert(Alert{Kind: AlertUnrecognizedCommand, Priority: Warning, Code: int32(cmd.Type)})
		return
	}
	if len(cmd.Loopers) == 0 {
		e.alert(Alert{Kind: AlertNoTarget, Priority: Warning, Code: int32(cmd.Type)})
		return
	}
	for _, id := range cmd.Loopers {
		lp, ok := e.Looper(id)
		if !ok {
			e.alert(Alert{Kind: AlertUnknownLooper, Priority: Warning, Looper: id, Code: int32(cmd.Type)})
			continue
		}
		switch cmd.Type {
		case looper.EnableReady:
			lp.RecordMode = looper.RecordReady
		case looper.EnableRecord:
			lp.RecordMode = looper.RecordRecord
		case looper.DisableRecord:
			lp.RecordMode = looper.RecordNone
		case looper.EnableOverdub:
			if !lp.startOverdub() {
				e.alert(Alert{Kind: AlertOverdubRefused, Priority: Info, Looper: id, Code: int32(cmd.Type)})
			}
		case looper.DisableOverdub:
			lp.RecordMode = looper.RecordNone
		case looper.EnableMultiply, looper.DisableMultiply:
			e.alert(Alert{Kind: AlertUnimplemented, Priority: Info, Looper: id, Code: int32(cmd.Type)})
		case looper.EnablePlay:
			lp.PlayMode = looper.Playing
		case looper.DisablePlay:
			lp.PlayMode = looper.Paused
		case looper.Select:
			e.active = id
		case looper.Delete:
			e.deleteLooper(id)
		}
	}
}

func (e *Engine) handleGlobalCommand(cmd looper.GlobalCommand) {
	switch cmd.Type {
	case looper.ResetTime:
		e.time = 0
	case looper.AddLooper:
		e.loopers = append(e.loopers, &Looper{ID: e.idCounter})
		e.active = e.idCounter
		e.idCounter++
	default:
		e.alert(Alert{Kind: AlertUnrecognizedCommand, Priority: Warning, Code: int32(cmd.Type)})
	}
}

// deleteLooper removes a looper and drops its layers. Looper 0 always stays.
// If the deleted looper was active, the looper created before it becomes
// active.
func (e *Engine) deleteLooper(id uint32) {
	i := e.looperIndex(id)
	if i <= 0 {
		e.alert(Alert{Kind: AlertDeleteRefused, Priority: Warning, Looper: id, Code: int32(looper.Delete)})
		return
	}
	e.loopers[i].clear()
	e.loopers = slices.Delete(e.loopers, i, i+1)
	if e.active == id {
		e.active = e.loopers[i-1].ID
	}
}

func (e *Engine) looperIndex(id uint32) int {
	for i, lp := range e.loopers {
		if lp.ID == id {
			return i
		}
	}
	return -1
}

func (e *Engine) activeLooper() *Looper {
	lp, _ := e.Looper(e.active)
	return lp
}

// mixBuffers returns the working buffers for a block of n samples, growing
// them only when a longer block than ever before arrives.
func (e *Engine) mixBuffers(n int) (l, r []float32) {
	if cap(e.mix[0]) < n {
		e.mix[0] = make([]float32, n)
		e.mix[1] = make([]float32, n)
		e.scratch = make([]float32, n)
	}
	return e.mix[0][:n], e.mix[1][:n]
}

func (e *Engine) alert(a Alert) {
	TrySend(e.broker.Alerts, a)
}

func (e *Engine) publishState() {
	s := e.broker.GetState()
	for _, lp := range e.loopers {
		s.Loops = append(s.Loops, lp.state(e.time, e.sampleRate, lp.ID == e.active))
	}
	e.broker.publishState(s)
}
