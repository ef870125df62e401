// Package cat implements the vendor CAT protocol adapters used by the
// radio control bridge. Adapters are pure byte translators: they build
// poll commands, decode inbound frames into state updates, and encode
// outbound control commands. They perform no I/O themselves.
package cat

import (
	"fmt"

	"github.com/dougsko/rigbridged/pkg/config"
)

// Sink receives state updates decoded from the radio's responses.
// The canonical radio state implements it; tests use a recording fake.
type Sink interface {
	SetFrequency(hz int64)
	SetMode(mode string)
	SetWidth(hz int)
	SetTransmitting(on bool)
}

// Adapter translates between one vendor's wire protocol and the
// canonical state model.
//
// Each adapter owns a private partial-frame buffer so frames split
// across serial reads reassemble correctly; that buffer is its only
// mutable state. Encode methods return nil when the value cannot be
// represented in the vendor protocol, which tells the caller to drop
// the command instead of writing garbage to the radio.
type Adapter interface {
	// PollCommands returns the read requests issued on every poll tick,
	// in the order they should be written.
	PollCommands() [][]byte

	// Parse appends chunk to the partial-frame buffer, extracts every
	// complete frame, and reports decoded values to sink. Malformed or
	// foreign frames are discarded silently; a noisy serial line is the
	// expected steady state.
	Parse(chunk []byte, sink Sink)

	EncodeFrequency(hz int64) []byte
	EncodeMode(mode string) []byte
	EncodePTT(on bool) []byte
}

// Mode tokens shared across the bridge. Adapters translate their
// vendor code tables to and from these.
const (
	ModeLSB  = "LSB"
	ModeUSB  = "USB"
	ModeCW   = "CW"
	ModeCWR  = "CW-R"
	ModeAM   = "AM"
	ModeFM   = "FM"
	ModeRTTY = "RTTY"
	ModeData = "DATA"
)

// New selects the adapter for the configured brand. The choice is made
// once at startup; an unknown brand is a configuration error.
func New(cfg *config.Config) (Adapter, error) {
	switch cfg.Radio.Brand {
	case config.BrandYaesu:
		return NewYaesu(), nil
	case config.BrandKenwood:
		return NewKenwood(), nil
	case config.BrandIcom:
		return NewIcom(cfg.Radio.CIVAddress), nil
	case config.BrandNone:
		return NewSimulator(), nil
	default:
		return nil, fmt.Errorf("no adapter for radio brand %q", cfg.Radio.Brand)
	}
}
