// Package state holds the canonical radio state and fans out change
// deltas to push-stream subscribers.
package state

import (
	"sync"
	"time"
)

// Wire property names, shared by deltas and the status snapshot.
const (
	PropFrequency = "freq"
	PropMode      = "mode"
	PropWidth     = "width"
	PropPTT       = "ptt"
	PropConnected = "connected"
)

// Delta is the minimal change notification sent to subscribers. Full
// snapshots are never broadcast; small payloads keep the stream cheap
// and spare the dashboard redundant re-renders.
type Delta struct {
	Type  string      `json:"type"`
	Prop  string      `json:"prop"`
	Value interface{} `json:"value"`
}

// Snapshot is the full state as reported by GET /status.
type Snapshot struct {
	Connected bool   `json:"connected"`
	Freq      int64  `json:"freq"`
	Mode      string `json:"mode"`
	Width     int    `json:"width"`
	Ptt       bool   `json:"ptt"`
	Timestamp int64  `json:"timestamp"` // last change, Unix milliseconds
}

// State is the single source of truth for the connected radio. Every
// setter compares against the current value and does nothing when it is
// unchanged, so subscribers only ever see real transitions.
type State struct {
	mu        sync.RWMutex
	freq      int64
	mode      string
	width     int
	tx        bool
	linkUp    bool
	changedAt time.Time

	bc *Broadcaster
}

// New creates an empty state publishing changes to bc.
func New(bc *Broadcaster) *State {
	return &State{bc: bc}
}

// set runs mutate under the lock and broadcasts the delta afterwards
// when mutate reports an actual change.
func (s *State) set(prop string, value interface{}, mutate func() bool) {
	s.mu.Lock()
	changed := mutate()
	if changed {
		s.changedAt = time.Now()
	}
	s.mu.Unlock()

	if changed {
		s.bc.Publish(Delta{Type: "update", Prop: prop, Value: value})
	}
}

// SetFrequency updates the frequency in Hz.
func (s *State) SetFrequency(hz int64) {
	s.set(PropFrequency, hz, func() bool {
		if s.freq == hz {
			return false
		}
		s.freq = hz
		return true
	})
}

// SetMode updates the operating mode token.
func (s *State) SetMode(mode string) {
	s.set(PropMode, mode, func() bool {
		if s.mode == mode {
			return false
		}
		s.mode = mode
		return true
	})
}

// SetWidth updates the passband width in Hz; zero means unknown.
func (s *State) SetWidth(hz int) {
	s.set(PropWidth, hz, func() bool {
		if s.width == hz {
			return false
		}
		s.width = hz
		return true
	})
}

// SetTransmitting updates the transmit flag.
func (s *State) SetTransmitting(on bool) {
	s.set(PropPTT, on, func() bool {
		if s.tx == on {
			return false
		}
		s.tx = on
		return true
	})
}

// SetConnected updates the link-up flag, driven by the connection
// manager's lifecycle events.
func (s *State) SetConnected(up bool) {
	s.set(PropConnected, up, func() bool {
		if s.linkUp == up {
			return false
		}
		s.linkUp = up
		return true
	})
}

// Snapshot returns a copy of the current state.
func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ts int64
	if !s.changedAt.IsZero() {
		ts = s.changedAt.UnixMilli()
	}
	return Snapshot{
		Connected: s.linkUp,
		Freq:      s.freq,
		Mode:      s.mode,
		Width:     s.width,
		Ptt:       s.tx,
		Timestamp: ts,
	}
}
