package main

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/dougsko/rigbridged/pkg/logging"
	"github.com/dougsko/rigbridged/pkg/state"
)

// handleRoot is the liveness probe: service identity plus link flag.
func (b *Bridge) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service":   "rigbridged",
		"version":   Version,
		"radio":     b.manager.Describe(),
		"connected": b.state.Snapshot().Connected,
	})
}

// handleStatus returns a snapshot of the canonical radio state.
func (b *Bridge) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, b.state.Snapshot())
}

// handleSetFrequency tunes the radio. The response is sent as soon as
// the command bytes are queued; the resulting state change arrives
// asynchronously through the poll/parse cycle.
func (b *Bridge) handleSetFrequency(c *gin.Context) {
	var req struct {
		Freq *int64 `json:"freq"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Freq == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing or invalid freq"})
		return
	}
	if *req.Freq < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "freq must be non-negative"})
		return
	}

	if cmd := b.adapter.EncodeFrequency(*req.Freq); cmd != nil {
		b.link.Send(cmd)
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// handleSetMode changes the operating mode. An unknown mode token is
// dropped rather than written to the radio.
func (b *Bridge) handleSetMode(c *gin.Context) {
	var req struct {
		Mode *string `json:"mode"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Mode == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing or invalid mode"})
		return
	}

	if cmd := b.adapter.EncodeMode(*req.Mode); cmd != nil {
		b.link.Send(cmd)
	} else {
		logging.Debugf("web", "dropping unknown mode token %q", *req.Mode)
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// handleSetPTT keys or unkeys the transmitter, gated by configuration.
func (b *Bridge) handleSetPTT(c *gin.Context) {
	var req struct {
		Ptt *bool `json:"ptt"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Ptt == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing or invalid ptt"})
		return
	}
	if !b.config.Radio.AllowTX {
		c.JSON(http.StatusForbidden, gin.H{"error": "transmit control is disabled"})
		return
	}

	if cmd := b.adapter.EncodePTT(*req.Ptt); cmd != nil {
		b.link.Send(cmd)
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// WebSocket upgrader; the stream is cross-origin by design.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// initEvent is the synthetic first event on every new stream: the full
// current state, after which only minimal deltas follow.
type initEvent struct {
	Type      string `json:"type"`
	Connected bool   `json:"connected"`
	Freq      int64  `json:"freq"`
	Mode      string `json:"mode"`
	Width     int    `json:"width"`
	Ptt       bool   `json:"ptt"`
}

// streamSubscriber wraps one websocket connection. The mutex serializes
// the init write with broadcast writes from the parse path.
type streamSubscriber struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *streamSubscriber) Send(d state.Delta) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(d)
}

func (s *streamSubscriber) sendInit(snap state.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(initEvent{
		Type:      "init",
		Connected: snap.Connected,
		Freq:      snap.Freq,
		Mode:      snap.Mode,
		Width:     snap.Width,
		Ptt:       snap.Ptt,
	})
}

// handleStream upgrades to a push connection and forwards every state
// delta until the client goes away.
func (b *Bridge) handleStream(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logging.Debugf("web", "stream upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	sub := &streamSubscriber{conn: conn}
	if err := sub.sendInit(b.state.Snapshot()); err != nil {
		return
	}

	b.broadcaster.Subscribe(sub)
	defer b.broadcaster.Unsubscribe(sub)
	logging.Debug("web", "stream client connected")

	// The client sends nothing meaningful; reading just detects close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			logging.Debug("web", "stream client disconnected")
			return
		}
	}
}
