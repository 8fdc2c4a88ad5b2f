package audio

import (
	"math"
	"testing"
)

func TestFloat32ToPCM16Rails(t *testing.T) {
	pcm := Float32ToPCM16([]float32{-1, 0, 1, -2, 2})
	want := []int16{-32768, 0, 32767, -32768, 32767}
	for i, w := range want {
		if pcm[i] != w {
			t.Errorf("Expected sample %d to be %d, got %d", i, w, pcm[i])
		}
	}
}

func TestPCM16RoundTrip(t *testing.T) {
	in := []float32{-1, -0.5, -0.001, 0, 0.001, 0.5, 0.999, 1}
	out := PCM16ToFloat32(Float32ToPCM16(in))

	for i := range in {
		diff := math.Abs(float64(out[i] - in[i]))
		if diff > 1.0/32768 {
			t.Errorf("Sample %d drifted by %f, more than one quantization step", i, diff)
		}
	}
}

func TestPCM16ByteSerialization(t *testing.T) {
	pcm := []int16{0, 1, -1, 256, -32768, 32767}
	buf := PCM16ToBytes(pcm)
	if len(buf) != len(pcm)*2 {
		t.Fatalf("Expected %d bytes, got %d", len(pcm)*2, len(buf))
	}
	// Little-endian: -32768 is 0x00 0x80.
	if buf[8] != 0x00 || buf[9] != 0x80 {
		t.Errorf("Expected little-endian encoding, got %x %x", buf[8], buf[9])
	}

	back := BytesToPCM16(buf)
	for i, s := range pcm {
		if back[i] != s {
			t.Errorf("Expected sample %d to round-trip as %d, got %d", i, s, back[i])
		}
	}
}

func TestBytesToPCM16DropsOddByte(t *testing.T) {
	pcm := BytesToPCM16([]byte{0x01, 0x00, 0xFF})
	if len(pcm) != 1 || pcm[0] != 1 {
		t.Errorf("Expected single sample [1], got %v", pcm)
	}
}

func TestResampleIdentity(t *testing.T) {
	in := []float32{0.1, 0.2, 0.3}
	out := Resample(in, 16000, 16000)
	if len(out) != len(in) {
		t.Fatalf("Expected unchanged length %d, got %d", len(in), len(out))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Errorf("Expected sample %d unchanged, got %f", i, out[i])
		}
	}
}

func TestResampleLength(t *testing.T) {
	tests := []struct {
		inLen, inRate, outRate, wantLen int
	}{
		{48000, 48000, 16000, 16000},
		{44100, 44100, 16000, 16000},
		{8000, 8000, 16000, 16000},
		{1000, 32000, 16000, 500},
	}
	for _, tt := range tests {
		out := Resample(make([]float32, tt.inLen), tt.inRate, tt.outRate)
		if len(out) != tt.wantLen {
			t.Errorf("Expected %d samples for %d@%d->%d, got %d",
				tt.wantLen, tt.inLen, tt.inRate, tt.outRate, len(out))
		}
	}
}

func TestResampleConstantSignal(t *testing.T) {
	in := make([]float32, 480)
	for i := range in {
		in[i] = 0.25
	}
	out := Resample(in, 48000, 16000)
	for i, s := range out {
		if math.Abs(float64(s-0.25)) > 1e-6 {
			t.Errorf("Expected constant 0.25 at %d, got %f", i, s)
		}
	}
}
