package buffer

// Item is anything the delay-gated buffers can hold. Delay is the absolute
// release time in clock seconds; zero means "release as soon as ordered".
type Item interface {
	Sequenced() bool
	Sequence() uint64
	Delay() float64
	SetDelay(delay float64)
	// Length is the playout duration of the item in seconds.
	Length() float64
}

// ItemQueue is the consumer-facing contract shared by Delayed and Adaptive.
// Reads never block; they return whatever is currently releasable.
type ItemQueue[T Item] interface {
	Put(item T) error
	Has() bool
	Get() (T, bool)
	GetAll() []T
	Size() int
	Capacity() int
}

// Frame is a ready-made Item carrying a media payload.
type Frame struct {
	Seq       uint64
	Ordered   bool
	ReleaseAt float64
	Duration  float64
	Payload   []byte
}

// NewFrame returns a sequenced frame with no scheduled release time.
func NewFrame(seq uint64, payload []byte, duration float64) *Frame {
	return &Frame{Seq: seq, Ordered: true, Duration: duration, Payload: payload}
}

func (f *Frame) Sequenced() bool        { return f.Ordered }
func (f *Frame) Sequence() uint64       { return f.Seq }
func (f *Frame) Delay() float64         { return f.ReleaseAt }
func (f *Frame) SetDelay(delay float64) { f.ReleaseAt = delay }
func (f *Frame) Length() float64        { return f.Duration }
