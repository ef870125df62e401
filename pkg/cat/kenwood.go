package cat

import "fmt"

// kenwoodModes maps the mode digits of the Kenwood CAT dialect
// (TS-480/TS-590 generation). Code 8 is unassigned.
var kenwoodModes = map[byte]string{
	'1': ModeLSB,
	'2': ModeUSB,
	'3': ModeCW,
	'4': ModeFM,
	'5': ModeAM,
	'6': "FSK",
	'7': ModeCWR,
	'9': "FSK-R",
}

// Kenwood IF response field offsets. The composite frame carries the
// full transceiver status in one fixed-width record.
const (
	kwIFLen     = 37 // "IF" + 35 status bytes
	kwIFFreqOff = 2  // 11-digit frequency
	kwIFFreqEnd = 13
	kwIFTxOff   = 28 // '0' receiving, '1' transmitting
	kwIFModeOff = 29
)

// Kenwood speaks the text CAT dialect with 11-digit frequency fields.
type Kenwood struct {
	buf []byte
}

// NewKenwood creates a Kenwood CAT adapter.
func NewKenwood() *Kenwood {
	return &Kenwood{}
}

// PollCommands returns the per-tick read requests. Transmit status has
// no dedicated read command in this dialect; it rides in the IF frame.
func (k *Kenwood) PollCommands() [][]byte {
	return [][]byte{
		[]byte("FA;"),
		[]byte("MD;"),
		[]byte("IF;"),
	}
}

// Parse extracts complete ;-terminated commands and applies them to
// sink in arrival order. When an IF frame and an individual field frame
// for the same property arrive in one chunk, the later frame wins.
func (k *Kenwood) Parse(chunk []byte, sink Sink) {
	var frames [][]byte
	k.buf = append(k.buf, chunk...)
	frames, k.buf = splitFrames(k.buf)
	for _, f := range frames {
		k.apply(f, sink)
	}
}

func (k *Kenwood) apply(f []byte, sink Sink) {
	switch {
	case len(f) == 13 && f[0] == 'F' && f[1] == 'A':
		if hz, ok := parseDigits(f[2:13]); ok {
			sink.SetFrequency(hz)
		}
	case len(f) == 3 && f[0] == 'M' && f[1] == 'D':
		if mode, ok := kenwoodModes[f[2]]; ok {
			sink.SetMode(mode)
		}
	case len(f) >= kwIFLen && f[0] == 'I' && f[1] == 'F':
		// Full status: frequency, transmit flag and mode in one pass.
		if hz, ok := parseDigits(f[kwIFFreqOff:kwIFFreqEnd]); ok {
			sink.SetFrequency(hz)
		}
		sink.SetTransmitting(f[kwIFTxOff] == '1')
		if mode, ok := kenwoodModes[f[kwIFModeOff]]; ok {
			sink.SetMode(mode)
		}
	}
}

// EncodeFrequency builds a set-frequency command, or nil when hz does
// not fit the 11-digit field.
func (k *Kenwood) EncodeFrequency(hz int64) []byte {
	if hz < 0 || hz > 99999999999 {
		return nil
	}
	return []byte(fmt.Sprintf("FA%011d;", hz))
}

// EncodeMode builds a set-mode command, or nil for an unknown token.
func (k *Kenwood) EncodeMode(mode string) []byte {
	for code, name := range kenwoodModes {
		if name == mode {
			return []byte{'M', 'D', code, catTerminator}
		}
	}
	return nil
}

// EncodePTT builds the transmit on/off command.
func (k *Kenwood) EncodePTT(on bool) []byte {
	if on {
		return []byte("TX;")
	}
	return []byte("RX;")
}
