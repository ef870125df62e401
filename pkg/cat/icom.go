package cat

import "bytes"

// CI-V framing bytes.
const (
	civPreamble   = 0xFE
	civTerminator = 0xFD

	// civController is our address on the CI-V bus. Frames sent to any
	// other address belong to someone else and are ignored.
	civController = 0xE0
)

// CI-V command numbers used by the bridge.
const (
	civCmdFreqData   = 0x00 // transceive frequency report
	civCmdModeData   = 0x01 // transceive mode report
	civCmdReadFreq   = 0x03
	civCmdReadMode   = 0x04
	civCmdSetFreq    = 0x05
	civCmdSetMode    = 0x06
	civCmdTransmit   = 0x1C
	civSubTransmitRX = 0x00

	civFilterDefault = 0x01 // FIL1
)

var icomModes = map[byte]string{
	0x00: ModeLSB,
	0x01: ModeUSB,
	0x02: ModeAM,
	0x03: ModeCW,
	0x04: ModeRTTY,
	0x05: ModeFM,
	0x06: "WFM",
	0x07: ModeCWR,
	0x08: "RTTY-R",
}

// Icom speaks the binary CI-V protocol: address-routed frames with
// BCD-encoded frequency payloads. The radio's bus address comes from
// configuration since it varies per model and per user setting.
type Icom struct {
	addr byte
	buf  []byte
}

// NewIcom creates a CI-V adapter addressing the radio at addr.
func NewIcom(addr byte) *Icom {
	return &Icom{addr: addr}
}

// PollCommands returns the per-tick read requests: frequency, mode,
// transmit status.
func (i *Icom) PollCommands() [][]byte {
	return [][]byte{
		i.frame(civCmdReadFreq),
		i.frame(civCmdReadMode),
		i.frame(civCmdTransmit, civSubTransmitRX),
	}
}

// frame wraps cmd and payload in preamble, addresses and terminator.
func (i *Icom) frame(body ...byte) []byte {
	f := make([]byte, 0, len(body)+5)
	f = append(f, civPreamble, civPreamble, i.addr, civController)
	f = append(f, body...)
	return append(f, civTerminator)
}

// Parse reassembles CI-V frames from the byte stream and applies those
// addressed to us. A preamble with no terminator yet is left in the
// buffer untouched; discarding it would desynchronize every following
// frame. Bytes before a preamble are line noise and are dropped.
func (i *Icom) Parse(chunk []byte, sink Sink) {
	i.buf = append(i.buf, chunk...)
	for {
		start := bytes.Index(i.buf, []byte{civPreamble, civPreamble})
		if start < 0 {
			// Keep a trailing lone 0xFE in case its pair is in the next read.
			if n := len(i.buf); n > 0 && i.buf[n-1] == civPreamble {
				i.buf = i.buf[n-1:]
			} else {
				i.buf = i.buf[:0]
			}
			return
		}
		end := bytes.IndexByte(i.buf[start:], civTerminator)
		if end < 0 {
			i.buf = i.buf[start:]
			return
		}
		frame := i.buf[start : start+end+1]
		i.apply(frame, sink)
		i.buf = i.buf[start+end+1:]
	}
}

func (i *Icom) apply(f []byte, sink Sink) {
	// FE FE dst src cmd ... FD
	if len(f) < 6 || f[2] != civController {
		return
	}
	payload := f[5 : len(f)-1]

	switch f[4] {
	case civCmdFreqData, civCmdReadFreq:
		if hz, ok := decodeBCDFreq(payload); ok {
			sink.SetFrequency(hz)
		}
	case civCmdModeData, civCmdReadMode:
		if len(payload) >= 1 {
			if mode, ok := icomModes[payload[0]]; ok {
				sink.SetMode(mode)
			}
		}
	case civCmdTransmit:
		if len(payload) >= 2 && payload[0] == civSubTransmitRX {
			sink.SetTransmitting(payload[1] == 0x01)
		}
	}
}

// decodeBCDFreq reconstructs Hz from CI-V BCD digit pairs. Byte 0
// carries the ones and tens digits, low nibble first; each following
// byte carries the next two decimal places.
func decodeBCDFreq(d []byte) (int64, bool) {
	if len(d) == 0 {
		return 0, false
	}
	var hz int64
	mult := int64(1)
	for _, v := range d {
		lo := int64(v & 0x0F)
		hi := int64(v >> 4)
		if lo > 9 || hi > 9 {
			return 0, false
		}
		hz += lo * mult
		mult *= 10
		hz += hi * mult
		mult *= 10
	}
	return hz, true
}

// encodeBCDFreq is the exact inverse of decodeBCDFreq: five digit-pair
// bytes, least significant pair first.
func encodeBCDFreq(hz int64) [5]byte {
	var b [5]byte
	for n := 0; n < 5; n++ {
		lo := byte(hz % 10)
		hz /= 10
		hi := byte(hz % 10)
		hz /= 10
		b[n] = hi<<4 | lo
	}
	return b
}

// EncodeFrequency builds a set-frequency frame, or nil when hz does not
// fit five BCD digit pairs.
func (i *Icom) EncodeFrequency(hz int64) []byte {
	if hz < 0 || hz > 9999999999 {
		return nil
	}
	b := encodeBCDFreq(hz)
	return i.frame(civCmdSetFreq, b[0], b[1], b[2], b[3], b[4])
}

// EncodeMode builds a set-mode frame, or nil for an unknown token.
func (i *Icom) EncodeMode(mode string) []byte {
	for code, name := range icomModes {
		if name == mode {
			return i.frame(civCmdSetMode, code, civFilterDefault)
		}
	}
	return nil
}

// EncodePTT builds the transmit on/off frame.
func (i *Icom) EncodePTT(on bool) []byte {
	state := byte(0x00)
	if on {
		state = 0x01
	}
	return i.frame(civCmdTransmit, civSubTransmitRX, state)
}
