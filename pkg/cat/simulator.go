package cat

// Simulator stands in for a radio when no hardware is attached. It
// issues no poll commands, ignores every byte written to it, and
// reports one fixed, plausible snapshot so the control surface and the
// dashboard behind it can be exercised end to end.
type Simulator struct{}

// NewSimulator creates the no-op adapter.
func NewSimulator() *Simulator {
	return &Simulator{}
}

// Snapshot reports the static state the simulator pretends to be in.
func (s *Simulator) Snapshot(sink Sink) {
	sink.SetFrequency(14074000)
	sink.SetMode(ModeUSB)
	sink.SetWidth(2400)
	sink.SetTransmitting(false)
}

func (s *Simulator) PollCommands() [][]byte { return nil }

func (s *Simulator) Parse(chunk []byte, sink Sink) {}

func (s *Simulator) EncodeFrequency(hz int64) []byte { return nil }

func (s *Simulator) EncodeMode(mode string) []byte { return nil }

func (s *Simulator) EncodePTT(on bool) []byte { return nil }
