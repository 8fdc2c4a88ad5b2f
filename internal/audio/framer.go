package audio

// Frame is a fixed-size chunk of PCM16 audio bytes tagged with a
// monotonic sequence number. Frames are produced in capture order and
// consumed exactly once by the active provider adapter; ownership
// transfers on send.
type Frame struct {
	Seq  uint32
	Data []byte
}

// Framer splits an incoming PCM byte stream into frames of a fixed size
// (vendor per-message limits, e.g. 1280 or 3200 bytes). Bytes that do
// not fill a whole frame are carried forward to the next Write.
type Framer struct {
	frameSize int
	pending   []byte
	nextSeq   uint32
}

// NewFramer creates a framer emitting frames of frameSize bytes.
func NewFramer(frameSize int) *Framer {
	if frameSize <= 0 {
		frameSize = 3200
	}
	return &Framer{frameSize: frameSize}
}

// Write appends data and returns every complete frame now available, in
// order. The returned frames own their data; the input may be reused.
func (f *Framer) Write(data []byte) []Frame {
	f.pending = append(f.pending, data...)

	var frames []Frame
	for len(f.pending) >= f.frameSize {
		buf := make([]byte, f.frameSize)
		copy(buf, f.pending[:f.frameSize])
		f.pending = f.pending[f.frameSize:]

		frames = append(frames, Frame{Seq: f.nextSeq, Data: buf})
		f.nextSeq++
	}
	return frames
}

// Flush emits any buffered remainder as a final short frame. Returns
// nil when nothing is pending.
func (f *Framer) Flush() *Frame {
	if len(f.pending) == 0 {
		return nil
	}

	buf := make([]byte, len(f.pending))
	copy(buf, f.pending)
	f.pending = f.pending[:0]

	frame := &Frame{Seq: f.nextSeq, Data: buf}
	f.nextSeq++
	return frame
}

// Pending returns the number of buffered bytes not yet emitted.
func (f *Framer) Pending() int {
	return len(f.pending)
}
