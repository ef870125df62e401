// Package rig owns the serial link to the radio: open/read/write/close
// lifecycle, fixed-delay reconnection, the poll timer, and the single
// ordered outbound write queue.
package rig

import (
	"context"
	"io"
	"sync"
	"time"

	"go.bug.st/serial"

	"github.com/dougsko/rigbridged/pkg/cat"
	"github.com/dougsko/rigbridged/pkg/config"
	"github.com/dougsko/rigbridged/pkg/logging"
	"github.com/dougsko/rigbridged/pkg/state"
)

const (
	// retryDelay is the fixed pause before re-opening a failed link.
	retryDelay = 5 * time.Second

	// writeQueueSize bounds the outbound command queue. Commands beyond
	// it are dropped; the radio is slow and the queue should stay near
	// empty in practice.
	writeQueueSize = 32

	readBufferSize = 256
)

// Port is the narrow slice of a serial port the manager needs. Tests
// substitute an in-memory implementation.
type Port interface {
	io.ReadWriteCloser
}

// PortOpener opens the configured serial device.
type PortOpener func() (Port, error)

// Manager runs the radio link. One Manager handles exactly one radio.
type Manager struct {
	adapter      cat.Adapter
	state        *state.State
	opener       PortOpener
	device       string
	pollInterval time.Duration
	retryDelay   time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	writes chan []byte

	mu   sync.Mutex
	port Port
}

// NewManager creates a manager for the configured serial device.
func NewManager(cfg *config.Config, adapter cat.Adapter, st *state.State) *Manager {
	m := newManager(cfg, adapter, st)
	m.opener = systemOpener(cfg)
	return m
}

func newManager(cfg *config.Config, adapter cat.Adapter, st *state.State) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		adapter:      adapter,
		state:        st,
		device:       cfg.Radio.Device,
		pollInterval: time.Duration(cfg.Radio.PollInterval) * time.Millisecond,
		retryDelay:   retryDelay,
		ctx:          ctx,
		cancel:       cancel,
		writes:       make(chan []byte, writeQueueSize),
	}
}

// systemOpener opens the device with go.bug.st/serial using the
// configured framing parameters.
func systemOpener(cfg *config.Config) PortOpener {
	mode := &serial.Mode{
		BaudRate: cfg.Radio.BaudRate,
		DataBits: cfg.Radio.DataBits,
	}
	switch cfg.Radio.Parity {
	case "odd":
		mode.Parity = serial.OddParity
	case "even":
		mode.Parity = serial.EvenParity
	default:
		mode.Parity = serial.NoParity
	}
	if cfg.Radio.StopBits == 2 {
		mode.StopBits = serial.TwoStopBits
	} else {
		mode.StopBits = serial.OneStopBit
	}
	device := cfg.Radio.Device
	return func() (Port, error) {
		return serial.Open(device, mode)
	}
}

// Start brings the link up. With the simulator adapter no port is
// opened; the static snapshot is seeded and the link reported up.
func (m *Manager) Start() error {
	if sim, ok := m.adapter.(*cat.Simulator); ok {
		logging.Info("rig", "simulator selected, not opening a serial port")
		sim.Snapshot(m.state)
		m.state.SetConnected(true)
		return nil
	}

	m.wg.Add(1)
	go m.run()
	return nil
}

// Stop shuts the link down and cancels the retry cycle. Unlike an I/O
// error, an operator-initiated stop does not schedule a reconnect.
func (m *Manager) Stop() error {
	m.cancel()
	m.mu.Lock()
	if m.port != nil {
		m.port.Close()
	}
	m.mu.Unlock()
	m.wg.Wait()
	return nil
}

// Send queues cmd on the outbound write path. Poll commands and user
// commands share this one queue, drained in strict arrival order by the
// session goroutine. Writes are best effort: with the link down or the
// queue full the command is dropped and the next poll will show the
// radio's actual state.
func (m *Manager) Send(cmd []byte) {
	if len(cmd) == 0 {
		return
	}
	select {
	case m.writes <- cmd:
	default:
		logging.Debugf("rig", "write queue full, dropping %d byte command", len(cmd))
	}
}

// run is the single reconnect loop. Owning the whole schedule in one
// goroutine means a close followed by a re-open can never leave two
// retry timers running.
func (m *Manager) run() {
	defer m.wg.Done()

	for {
		port, err := m.opener()
		if err != nil {
			logging.Errorf("rig", "cannot open %s: %v", m.device, err)
			logging.Error("rig", "check that the device exists, that you are in the dialout/uucp group, and that the USB serial driver is loaded")
			if !m.sleep(m.retryDelay) {
				return
			}
			continue
		}

		m.setPort(port)
		m.drainStaleWrites()
		m.state.SetConnected(true)
		logging.Infof("rig", "serial link open on %s", m.device)

		m.session(port)

		m.setPort(nil)
		port.Close()
		m.state.SetConnected(false)

		select {
		case <-m.ctx.Done():
			return
		default:
		}
		logging.Infof("rig", "serial link lost, retrying in %s", m.retryDelay)
		if !m.sleep(m.retryDelay) {
			return
		}
	}
}

// session reads the port until it errors. A companion goroutine owns
// every write: poll commands on each tick and queued user commands, in
// arrival order.
func (m *Manager) session(port Port) {
	done := make(chan struct{})
	var writerDone sync.WaitGroup

	writerDone.Add(1)
	go func() {
		defer writerDone.Done()
		ticker := time.NewTicker(m.pollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-m.ctx.Done():
				return
			case <-done:
				return
			case <-ticker.C:
				for _, cmd := range m.adapter.PollCommands() {
					m.write(port, cmd)
				}
			case cmd := <-m.writes:
				m.write(port, cmd)
			}
		}
	}()

	buf := make([]byte, readBufferSize)
	for {
		n, err := port.Read(buf)
		if n > 0 {
			m.adapter.Parse(buf[:n], m.state)
		}
		if err != nil {
			logging.Debugf("rig", "read error: %v", err)
			break
		}
	}

	close(done)
	writerDone.Wait()
}

// write pushes one command to the port. Failures are swallowed; they
// surface as the next poll's data staying stale and, if the link is
// truly gone, as the read loop erroring out.
func (m *Manager) write(port Port, cmd []byte) {
	if _, err := port.Write(cmd); err != nil {
		logging.Debugf("rig", "write error: %v", err)
	}
}

// drainStaleWrites discards commands queued while the link was down so
// a reconnect does not replay them (a stale transmit command most of
// all).
func (m *Manager) drainStaleWrites() {
	for {
		select {
		case <-m.writes:
		default:
			return
		}
	}
}

// sleep pauses for d, returning false when shutdown arrives first.
func (m *Manager) sleep(d time.Duration) bool {
	select {
	case <-m.ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

func (m *Manager) setPort(port Port) {
	m.mu.Lock()
	m.port = port
	m.mu.Unlock()
}

// Describe reports the link target for the liveness endpoint.
func (m *Manager) Describe() string {
	if _, ok := m.adapter.(*cat.Simulator); ok {
		return "simulator"
	}
	return m.device
}
