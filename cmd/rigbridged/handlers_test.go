package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dougsko/rigbridged/pkg/cat"
	"github.com/dougsko/rigbridged/pkg/config"
	"github.com/dougsko/rigbridged/pkg/state"
)

// fakeSender records commands handed to the write path.
type fakeSender struct {
	mu   sync.Mutex
	cmds [][]byte
}

func (f *fakeSender) Send(cmd []byte) {
	f.mu.Lock()
	f.cmds = append(f.cmds, append([]byte(nil), cmd...))
	f.mu.Unlock()
}

func (f *fakeSender) sent() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]byte, len(f.cmds))
	copy(out, f.cmds)
	return out
}

// fakeSub records broadcast deltas in arrival order.
type fakeSub struct {
	mu     sync.Mutex
	deltas []state.Delta
}

func (f *fakeSub) Send(d state.Delta) error {
	f.mu.Lock()
	f.deltas = append(f.deltas, d)
	f.mu.Unlock()
	return nil
}

func (f *fakeSub) received() []state.Delta {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]state.Delta, len(f.deltas))
	copy(out, f.deltas)
	return out
}

// testBridge wires a bridge around a fake write path, skipping the
// serial manager entirely.
func testBridge(t *testing.T, adapter cat.Adapter, allowTX bool) (*Bridge, *fakeSender) {
	t.Helper()
	cfg := &config.Config{}
	cfg.Radio.AllowTX = allowTX
	cfg.Web.Port = 0

	sender := &fakeSender{}
	bc := state.NewBroadcaster()
	bridge := &Bridge{
		config:      cfg,
		adapter:     adapter,
		state:       state.New(bc),
		broadcaster: bc,
		link:        sender,
	}
	bridge.setupWebServer()
	return bridge, sender
}

func doJSON(t *testing.T, b *Bridge, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	b.webServer.Handler.ServeHTTP(w, req)
	return w
}

func TestStatusEndpoint(t *testing.T) {
	bridge, _ := testBridge(t, cat.NewYaesu(), false)
	bridge.state.SetConnected(true)
	bridge.state.SetFrequency(7074000)
	bridge.state.SetMode("LSB")

	w := doJSON(t, bridge, "GET", "/status", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	var snap state.Snapshot
	if err := json.Unmarshal(w.Body.Bytes(), &snap); err != nil {
		t.Fatalf("Failed to decode status: %v", err)
	}
	if !snap.Connected || snap.Freq != 7074000 || snap.Mode != "LSB" {
		t.Errorf("Unexpected snapshot: %+v", snap)
	}
}

func TestSetFrequencyEndpoint(t *testing.T) {
	t.Run("Valid request writes encoded command", func(t *testing.T) {
		bridge, sender := testBridge(t, cat.NewYaesu(), false)
		w := doJSON(t, bridge, "POST", "/freq", `{"freq": 14074000}`)
		if w.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
		}

		sent := sender.sent()
		if len(sent) != 1 || string(sent[0]) != "FA014074000;" {
			t.Errorf("Expected FA014074000; written, got %q", sent)
		}
	})

	t.Run("Missing field rejected", func(t *testing.T) {
		bridge, sender := testBridge(t, cat.NewYaesu(), false)
		w := doJSON(t, bridge, "POST", "/freq", `{"frequency": 14074000}`)
		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", w.Code)
		}
		if len(sender.sent()) != 0 {
			t.Error("Expected no write for an invalid request")
		}
	})

	t.Run("Wrong type rejected", func(t *testing.T) {
		bridge, _ := testBridge(t, cat.NewYaesu(), false)
		w := doJSON(t, bridge, "POST", "/freq", `{"freq": "14074000"}`)
		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", w.Code)
		}
	})

	t.Run("Unrepresentable value dropped silently", func(t *testing.T) {
		bridge, sender := testBridge(t, cat.NewYaesu(), false)
		w := doJSON(t, bridge, "POST", "/freq", `{"freq": 1000000000}`)
		if w.Code != http.StatusOK {
			t.Errorf("Expected 200, got %d", w.Code)
		}
		if len(sender.sent()) != 0 {
			t.Error("Expected no write for an unencodable frequency")
		}
	})
}

func TestSetModeEndpoint(t *testing.T) {
	t.Run("Known mode written", func(t *testing.T) {
		bridge, sender := testBridge(t, cat.NewYaesu(), false)
		w := doJSON(t, bridge, "POST", "/mode", `{"mode": "USB"}`)
		if w.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d", w.Code)
		}
		sent := sender.sent()
		if len(sent) != 1 || string(sent[0]) != "MD02;" {
			t.Errorf("Expected MD02; written, got %q", sent)
		}
	})

	t.Run("Unknown token dropped, never written", func(t *testing.T) {
		bridge, sender := testBridge(t, cat.NewYaesu(), false)
		w := doJSON(t, bridge, "POST", "/mode", `{"mode": "TELEGRAPHY"}`)
		if w.Code != http.StatusOK {
			t.Errorf("Expected 200, got %d", w.Code)
		}
		if len(sender.sent()) != 0 {
			t.Error("Expected no write for an unknown mode token")
		}
	})

	t.Run("Missing field rejected", func(t *testing.T) {
		bridge, _ := testBridge(t, cat.NewYaesu(), false)
		w := doJSON(t, bridge, "POST", "/mode", `{}`)
		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", w.Code)
		}
	})
}

func TestSetPTTEndpoint(t *testing.T) {
	t.Run("Disabled by configuration", func(t *testing.T) {
		bridge, sender := testBridge(t, cat.NewYaesu(), false)
		w := doJSON(t, bridge, "POST", "/ptt", `{"ptt": true}`)
		if w.Code != http.StatusForbidden {
			t.Errorf("Expected 403, got %d", w.Code)
		}
		if len(sender.sent()) != 0 {
			t.Error("Expected no write while transmit control is disabled")
		}
	})

	t.Run("Enabled writes keying command", func(t *testing.T) {
		bridge, sender := testBridge(t, cat.NewYaesu(), true)
		w := doJSON(t, bridge, "POST", "/ptt", `{"ptt": true}`)
		if w.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d", w.Code)
		}
		sent := sender.sent()
		if len(sent) != 1 || string(sent[0]) != "TX1;" {
			t.Errorf("Expected TX1; written, got %q", sent)
		}
	})

	t.Run("False is a present value, not a missing field", func(t *testing.T) {
		bridge, sender := testBridge(t, cat.NewYaesu(), true)
		w := doJSON(t, bridge, "POST", "/ptt", `{"ptt": false}`)
		if w.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d", w.Code)
		}
		sent := sender.sent()
		if len(sent) != 1 || string(sent[0]) != "TX0;" {
			t.Errorf("Expected TX0; written, got %q", sent)
		}
	})

	t.Run("Missing field rejected", func(t *testing.T) {
		bridge, _ := testBridge(t, cat.NewYaesu(), true)
		w := doJSON(t, bridge, "POST", "/ptt", `{}`)
		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", w.Code)
		}
	})
}

// TestPollToStatusFlow drives the full inbound path: adapter parse into
// canonical state, observed through /status and a stream subscriber.
func TestPollToStatusFlow(t *testing.T) {
	bridge, _ := testBridge(t, cat.NewYaesu(), false)

	sub := &fakeSub{}
	bridge.broadcaster.Subscribe(sub)

	// The radio answers a poll with a frequency frame and a mode frame.
	bridge.adapter.Parse([]byte("FA014074000;MD02;"), bridge.state)

	w := doJSON(t, bridge, "GET", "/status", "")
	var snap state.Snapshot
	if err := json.Unmarshal(w.Body.Bytes(), &snap); err != nil {
		t.Fatalf("Failed to decode status: %v", err)
	}
	if snap.Freq != 14074000 {
		t.Errorf("Expected freq 14074000, got %d", snap.Freq)
	}
	if snap.Mode != "USB" {
		t.Errorf("Expected mode USB, got %q", snap.Mode)
	}

	deltas := sub.received()
	if len(deltas) != 2 {
		t.Fatalf("Expected exactly 2 update events, got %d", len(deltas))
	}
	if deltas[0].Prop != state.PropFrequency || deltas[1].Prop != state.PropMode {
		t.Errorf("Expected freq then mode updates, got %q then %q", deltas[0].Prop, deltas[1].Prop)
	}
}

// TestStreamEndpoint exercises the real websocket push path.
func TestStreamEndpoint(t *testing.T) {
	bridge, _ := testBridge(t, cat.NewYaesu(), false)
	bridge.state.SetFrequency(14074000)
	bridge.state.SetMode("USB")

	srv := httptest.NewServer(bridge.webServer.Handler)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Failed to dial stream: %v", err)
	}
	defer conn.Close()

	var init map[string]interface{}
	if err := conn.ReadJSON(&init); err != nil {
		t.Fatalf("Failed to read init event: %v", err)
	}
	if init["type"] != "init" {
		t.Errorf("Expected init event first, got %v", init["type"])
	}
	if init["freq"].(float64) != 14074000 {
		t.Errorf("Expected init freq 14074000, got %v", init["freq"])
	}
	if init["mode"] != "USB" {
		t.Errorf("Expected init mode USB, got %v", init["mode"])
	}

	// Wait for the handler to register the subscriber before changing
	// state, so the delta cannot race the subscription.
	deadline := time.Now().Add(2 * time.Second)
	for bridge.broadcaster.Count() == 0 && time.Now().Before(deadline) {
		time.Sleep(2 * time.Millisecond)
	}
	if bridge.broadcaster.Count() == 0 {
		t.Fatal("Stream subscriber was never registered")
	}

	// A state change after subscribe arrives as a minimal delta.
	bridge.state.SetFrequency(7074000)

	var update map[string]interface{}
	if err := conn.ReadJSON(&update); err != nil {
		t.Fatalf("Failed to read update event: %v", err)
	}
	if update["type"] != "update" || update["prop"] != "freq" {
		t.Errorf("Expected freq update, got %v", update)
	}
	if update["value"].(float64) != 7074000 {
		t.Errorf("Expected value 7074000, got %v", update["value"])
	}
}

func TestRootEndpoint(t *testing.T) {
	cfg := &config.Config{}
	cfg.Radio.Brand = config.BrandNone
	cfg.Web.Port = 0

	bridge, err := NewBridge(cfg)
	if err != nil {
		t.Fatalf("NewBridge failed: %v", err)
	}

	w := doJSON(t, bridge, "GET", "/", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode body: %v", err)
	}
	if body["service"] != "rigbridged" {
		t.Errorf("Expected service rigbridged, got %v", body["service"])
	}
	if body["radio"] != "simulator" {
		t.Errorf("Expected radio simulator, got %v", body["radio"])
	}
}

func TestCORSHeaders(t *testing.T) {
	bridge, _ := testBridge(t, cat.NewYaesu(), false)

	w := doJSON(t, bridge, "GET", "/status", "")
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Expected permissive CORS header, got %q", got)
	}

	w = doJSON(t, bridge, "OPTIONS", "/freq", "")
	if w.Code != http.StatusNoContent {
		t.Errorf("Expected 204 for preflight, got %d", w.Code)
	}
}
