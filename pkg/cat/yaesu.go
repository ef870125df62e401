package cat

import "fmt"

// yaesuModes maps the single-character mode codes of the Yaesu CAT
// dialect. The table looks close to Kenwood's but assigns several
// codes differently, so the two are kept strictly separate.
var yaesuModes = map[byte]string{
	'1': ModeLSB,
	'2': ModeUSB,
	'3': ModeCW,
	'4': ModeFM,
	'5': ModeAM,
	'6': "RTTY-L",
	'7': ModeCWR,
	'8': "DATA-L",
	'9': "RTTY-U",
	'A': "DATA-FM",
	'B': "FM-N",
	'C': "DATA-U",
	'D': "AM-N",
}

// Yaesu speaks the text CAT dialect with 9-digit frequency fields
// (FT-891/991 generation rigs).
type Yaesu struct {
	buf []byte
}

// NewYaesu creates a Yaesu CAT adapter.
func NewYaesu() *Yaesu {
	return &Yaesu{}
}

// PollCommands returns the per-tick read requests: frequency, mode,
// transmit status.
func (y *Yaesu) PollCommands() [][]byte {
	return [][]byte{
		[]byte("FA;"),
		[]byte("MD0;"),
		[]byte("TX;"),
	}
}

// Parse extracts complete ;-terminated commands and applies them to sink.
func (y *Yaesu) Parse(chunk []byte, sink Sink) {
	var frames [][]byte
	y.buf = append(y.buf, chunk...)
	frames, y.buf = splitFrames(y.buf)
	for _, f := range frames {
		y.apply(f, sink)
	}
}

func (y *Yaesu) apply(f []byte, sink Sink) {
	switch {
	case len(f) == 11 && f[0] == 'F' && f[1] == 'A':
		if hz, ok := parseDigits(f[2:11]); ok {
			sink.SetFrequency(hz)
		}
	case len(f) == 4 && f[0] == 'M' && f[1] == 'D' && f[2] == '0':
		if mode, ok := yaesuModes[f[3]]; ok {
			sink.SetMode(mode)
		}
	case len(f) == 3 && f[0] == 'T' && f[1] == 'X':
		// TX0 = receiving, TX1 = CAT transmit, TX2 = front-panel transmit.
		sink.SetTransmitting(f[2] == '1' || f[2] == '2')
	}
}

// EncodeFrequency builds a set-frequency command, or nil when hz does
// not fit the 9-digit field.
func (y *Yaesu) EncodeFrequency(hz int64) []byte {
	if hz < 0 || hz > 999999999 {
		return nil
	}
	return []byte(fmt.Sprintf("FA%09d;", hz))
}

// EncodeMode builds a set-mode command, or nil for an unknown token.
func (y *Yaesu) EncodeMode(mode string) []byte {
	for code, name := range yaesuModes {
		if name == mode {
			return []byte{'M', 'D', '0', code, catTerminator}
		}
	}
	return nil
}

// EncodePTT builds the transmit on/off command.
func (y *Yaesu) EncodePTT(on bool) []byte {
	if on {
		return []byte("TX1;")
	}
	return []byte("TX0;")
}
