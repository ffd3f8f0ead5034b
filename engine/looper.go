package engine

import "github.com/vsariola/looper"

type (
	// Layer is one recorded pass of stereo audio. Left and Right always
	// have the same length.
	Layer struct {
		Left, Right []float32
	}

	// Looper is one loop track. Layers[0] is the base recording and its
	// length defines the loop period; the following layers are overdubs.
	Looper struct {
		ID         uint32
		Layers     []Layer
		PlayMode   looper.PlayMode
		RecordMode looper.RecordMode
	}
)

func (l Layer) Len() int {
	return min(len(l.Left), len(l.Right))
}

// Period returns the length of the loop in samples, or 0 if nothing has been
// recorded.
func (l *Looper) Period() int {
	if len(l.Layers) == 0 {
		return 0
	}
	return l.Layers[0].Len()
}

// record appends the input to the base layer, creating it if necessary.
func (l *Looper) record(left, right []float32) {
	if len(l.Layers) == 0 {
		l.Layers = append(l.Layers, Layer{})
	}
	base := &l.Layers[0]
	base.Left = append(base.Left, left...)
	base.Right = append(base.Right, right...)
}

// startOverdub pushes a silent layer as long as the loop period. It fails if
// there is no period to overdub on.
func (l *Looper) startOverdub() bool {
	period := l.Period()
	if period == 0 {
		return false
	}
	l.Layers = append(l.Layers, Layer{
		Left:  make([]float32, period),
		Right: make([]float32, period),
	})
	l.RecordMode = looper.RecordOverdub
	return true
}

// overdub sums the input into the newest layer, aligned with the global
// sample clock.
func (l *Looper) overdub(left, right []float32, time int) {
	if len(l.Layers) == 0 {
		return
	}
	top := &l.Layers[len(l.Layers)-1]
	addWrapped(top.Left, left, time)
	addWrapped(top.Right, right, time)
}

func (l *Looper) clear() {
	clear(l.Layers)
	l.Layers = l.Layers[:0]
}

// state fills in the snapshot of the looper at the given time.
func (l *Looper) state(time, sampleRate int, active bool) looper.LoopState {
	period := l.Period()
	offset := 0
	if period > 0 && l.PlayMode == looper.Playing {
		offset = time % period
	}
	return looper.LoopState{
		ID:         l.ID,
		RecordMode: l.RecordMode,
		PlayMode:   l.PlayMode,
		Time:       looper.SamplesToMillis(offset, sampleRate),
		Length:     looper.SamplesToMillis(period, sampleRate),
		Active:     active,
	}
}
