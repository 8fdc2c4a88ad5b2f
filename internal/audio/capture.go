package audio

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/skypro1111/asr-gateway/internal/asr"
)

// Source is an audio input: a device, a decoded file or a raw PCM
// reader. Read fills buf with float samples at the source's native rate
// and returns io.EOF when the input is exhausted.
type Source interface {
	SampleRate() int
	Read(buf []float32) (int, error)
	Close() error
}

// CaptureConfig controls a capture session.
type CaptureConfig struct {
	// TargetRate is the output sample rate. Zero means the canonical
	// 16 kHz rate.
	TargetRate int

	// BufferSize is the per-read buffer size in samples at the source's
	// native rate. Zero means 4096, the platform-native default.
	BufferSize int
}

// FrameFunc receives one resampled PCM16 buffer per captured read.
type FrameFunc func(pcm []byte)

// Capture owns at most one active capture session. Starting a new
// session while one is active stops the previous one first, so the
// input device is never held twice concurrently.
type Capture struct {
	mu     sync.Mutex
	active *captureSession
}

type captureSession struct {
	source Source
	stop   chan struct{}
	done   chan struct{}
}

// NewCapture creates an idle capture owner.
func NewCapture() *Capture {
	return &Capture{}
}

// Start begins reading from source, resampling each buffer to the
// target rate and delivering PCM16 bytes to onFrame in capture order.
// Delivery stops when the source is exhausted or Stop is called.
func (c *Capture) Start(source Source, cfg CaptureConfig, onFrame FrameFunc) error {
	if source == nil {
		return fmt.Errorf("capture source: %w", asr.ErrDeviceUnavailable)
	}
	if cfg.TargetRate <= 0 {
		cfg.TargetRate = CanonicalSampleRate
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 4096
	}

	c.mu.Lock()
	prev := c.active
	c.mu.Unlock()
	if prev != nil {
		c.Stop()
	}

	sess := &captureSession{
		source: source,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}

	c.mu.Lock()
	c.active = sess
	c.mu.Unlock()

	go sess.run(cfg, onFrame)
	return nil
}

// Stop releases the active source and waits for the read loop to exit.
// No onFrame calls happen after Stop returns. Calling Stop with no
// active session is a no-op.
func (c *Capture) Stop() {
	c.mu.Lock()
	sess := c.active
	c.active = nil
	c.mu.Unlock()

	if sess == nil {
		return
	}

	select {
	case <-sess.stop:
	default:
		close(sess.stop)
	}
	<-sess.done
}

// Active reports whether a capture session is running.
func (c *Capture) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active != nil
}

func (s *captureSession) run(cfg CaptureConfig, onFrame FrameFunc) {
	defer close(s.done)
	defer s.source.Close()

	buf := make([]float32, cfg.BufferSize)
	inputRate := s.source.SampleRate()

	for {
		select {
		case <-s.stop:
			return
		default:
		}

		n, err := s.source.Read(buf)
		if n > 0 {
			resampled := Resample(buf[:n], inputRate, cfg.TargetRate)
			pcm := PCM16ToBytes(Float32ToPCM16(resampled))

			select {
			case <-s.stop:
				return
			default:
				onFrame(pcm)
			}
		}
		if err != nil {
			return
		}
	}
}

// wavSource reads float samples from decoded WAV data.
type wavSource struct {
	samples []float32
	rate    int
	pos     int
}

// OpenWAVSource opens a WAV file as a capture source. A missing or
// unreadable file maps to the device-unavailable error since the caller
// requested an input that cannot be acquired.
func OpenWAVSource(path string) (Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsPermission(err) {
			return nil, fmt.Errorf("open %s: %w", path, asr.ErrPermissionDenied)
		}
		return nil, fmt.Errorf("open %s: %w", path, asr.ErrDeviceUnavailable)
	}
	return NewWAVSource(data)
}

// NewWAVSource wraps in-memory WAV data as a capture source.
func NewWAVSource(data []byte) (Source, error) {
	pcm, rate, err := DecodeWAV(data)
	if err != nil {
		return nil, err
	}
	return &wavSource{samples: PCM16ToFloat32(pcm), rate: rate}, nil
}

// SampleRate returns the decoded file's native rate.
func (w *wavSource) SampleRate() int { return w.rate }

// Read copies the next chunk of decoded samples into buf.
func (w *wavSource) Read(buf []float32) (int, error) {
	if w.pos >= len(w.samples) {
		return 0, io.EOF
	}
	n := copy(buf, w.samples[w.pos:])
	w.pos += n
	if w.pos >= len(w.samples) {
		return n, io.EOF
	}
	return n, nil
}

// Close releases nothing for an in-memory source.
func (w *wavSource) Close() error { return nil }
