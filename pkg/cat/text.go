package cat

import "bytes"

// catTerminator ends every command in the text CAT dialects.
const catTerminator = ';'

// splitFrames extracts complete ;-terminated commands from buf and
// returns them with the unterminated tail, which the caller keeps for
// the next read. Empty segments (stray terminators) are dropped.
func splitFrames(buf []byte) ([][]byte, []byte) {
	var frames [][]byte
	for {
		i := bytes.IndexByte(buf, catTerminator)
		if i < 0 {
			return frames, buf
		}
		if i > 0 {
			frame := make([]byte, i)
			copy(frame, buf[:i])
			frames = append(frames, frame)
		}
		buf = buf[i+1:]
	}
}

// parseDigits converts a fixed-width decimal field to an int64,
// returning false if any byte is not a digit.
func parseDigits(d []byte) (int64, bool) {
	var v int64
	for _, c := range d {
		if c < '0' || c > '9' {
			return 0, false
		}
		v = v*10 + int64(c-'0')
	}
	return v, true
}
