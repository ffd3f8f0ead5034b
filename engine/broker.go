package engine

import (
	"sync"
	"sync/atomic"

	"github.com/vsariola/looper"
)

// maxPublishTries bounds how many times the engine tries to make room in a
// full state channel before giving up on a snapshot.
const maxPublishTries = 4

type (
	// Broker connects the engine to the control side. Commands flow to the
	// engine through ToEngine, an unbounded lock-free queue with any number
	// of producers: GUI senders, remote clients and the engine's own MIDI
	// translator all push to it. State snapshots flow out through ToGUI, and
	// diagnostics through Alerts.
	//
	// ToGUI is bounded. When it is full, the engine drops the oldest snapshot
	// to make room for the newest one, so a stalled consumer costs memory
	// only up to the channel capacity. Snapshots come from a sync.Pool;
	// consumers should hand them back with PutState when done, so that
	// publishing does not allocate in the steady state.
	Broker struct {
		ToEngine *Queue[looper.Command]
		ToGUI    chan *looper.State
		Alerts   chan Alert

		statePool     sync.Pool
		droppedStates atomic.Uint64
	}
)

func NewBroker(config looper.Config) *Broker {
	stateQueue, alertQueue := config.StateQueue, config.AlertQueue
	if stateQueue <= 0 {
		stateQueue = 1
	}
	if alertQueue <= 0 {
		alertQueue = 1
	}
	return &Broker{
		ToEngine:  NewQueue[looper.Command](),
		ToGUI:     make(chan *looper.State, stateQueue),
		Alerts:    make(chan Alert, alertQueue),
		statePool: sync.Pool{New: func() any { return &looper.State{} }},
	}
}

// Send queues a command for the engine. It never blocks.
func (b *Broker) Send(c looper.Command) {
	b.ToEngine.Push(c)
}

// GetState returns an empty snapshot from the pool.
func (b *Broker) GetState() *looper.State {
	return b.statePool.Get().(*looper.State)
}

// PutState returns a snapshot to the pool. Its length is reset, but the
// capacity is kept for the next snapshot.
func (b *Broker) PutState(s *looper.State) {
	if s == nil {
		return
	}
	s.Loops = s.Loops[:0]
	b.statePool.Put(s)
}

// DroppedStates returns how many snapshots were discarded because ToGUI was
// full.
func (b *Broker) DroppedStates() uint64 {
	return b.droppedStates.Load()
}

// publishState sends the snapshot to ToGUI, discarding the oldest queued
// snapshots if the channel is full. It never blocks.
func (b *Broker) publishState(s *looper.State) bool {
	for range maxPublishTries {
		if TrySend(b.ToGUI, s) {
			return true
		}
		select {
		case old := <-b.ToGUI:
			b.droppedStates.Add(1)
			b.PutState(old)
		default:
		}
	}
	b.droppedStates.Add(1)
	b.PutState(s)
	return false
}

// TrySend is a helper function to send a value to a channel if it is not full.
// It is guaranteed to be non-blocking. Return true if the value was sent, false
// otherwise.
func TrySend[T any](c chan<- T, v T) bool {
	select {
	case c <- v:
	default:
		return false
	}
	return true
}
