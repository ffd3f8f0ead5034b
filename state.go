package looper

type (
	// State is a snapshot of all loopers, published by the engine once per
	// processed block. Loops are in creation order.
	State struct {
		Loops []LoopState
	}

	// LoopState describes one looper. Time is the current playback offset
	// within the loop period and Length the period; both are in
	// milliseconds. Time is 0 when the looper is paused or has nothing
	// recorded.
	LoopState struct {
		ID         uint32     `json:"id"`
		RecordMode RecordMode `json:"recordMode"`
		PlayMode   PlayMode   `json:"playMode"`
		Time       int64      `json:"time"`
		Length     int64      `json:"length"`
		Active     bool       `json:"active"`
	}
)

// Active returns the state of the active looper, if any.
func (s State) Active() (LoopState, bool) {
	for _, l := range s.Loops {
		if l.Active {
			return l, true
		}
	}
	return LoopState{}, false
}

// Find returns the state of the looper with the given id.
func (s State) Find(id uint32) (LoopState, bool) {
	for _, l := range s.Loops {
		if l.ID == id {
			return l, true
		}
	}
	return LoopState{}, false
}

// Copy returns a deep copy of the snapshot, for keeping it after the original
// has been returned to a pool.
func (s *State) Copy() State {
	loops := make([]LoopState, len(s.Loops))
	copy(loops, s.Loops)
	return State{Loops: loops}
}
