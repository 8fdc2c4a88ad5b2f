package audio

import (
	"strings"
	"testing"
)

func TestWAVRoundTrip(t *testing.T) {
	samples := make([]int16, 16000)
	for i := range samples {
		samples[i] = int16(i % 1000)
	}

	data, err := EncodeWAV(samples, 16000)
	if err != nil {
		t.Fatalf("Failed to encode WAV: %v", err)
	}
	if len(data) != 44+len(samples)*2 {
		t.Errorf("Expected %d bytes, got %d", 44+len(samples)*2, len(data))
	}

	decoded, rate, err := DecodeWAV(data)
	if err != nil {
		t.Fatalf("Failed to decode WAV: %v", err)
	}
	if rate != 16000 {
		t.Errorf("Expected sample rate 16000, got %d", rate)
	}
	if len(decoded) != len(samples) {
		t.Fatalf("Expected %d samples, got %d", len(samples), len(decoded))
	}
	for i := range samples {
		if decoded[i] != samples[i] {
			t.Fatalf("Sample %d mismatch: expected %d, got %d", i, samples[i], decoded[i])
		}
	}
}

func TestEncodeWAVValidation(t *testing.T) {
	if _, err := EncodeWAV(nil, 16000); err == nil {
		t.Error("Expected error for empty samples")
	}
	if _, err := EncodeWAV([]int16{1}, 0); err == nil {
		t.Error("Expected error for zero sample rate")
	}
}

func TestDecodeWAVValidation(t *testing.T) {
	valid, err := EncodeWAV([]int16{1, 2, 3, 4}, 16000)
	if err != nil {
		t.Fatalf("Failed to encode fixture: %v", err)
	}

	tests := []struct {
		name    string
		mutate  func([]byte) []byte
		wantErr string
	}{
		{
			name:    "too short",
			mutate:  func(d []byte) []byte { return d[:20] },
			wantErr: "too short",
		},
		{
			name: "missing riff marker",
			mutate: func(d []byte) []byte {
				d[0] = 'X'
				return d
			},
			wantErr: "RIFF/WAVE",
		},
		{
			name: "compressed format",
			mutate: func(d []byte) []byte {
				d[20] = 3 // float format
				return d
			},
			wantErr: "unsupported audio format",
		},
		{
			name: "stereo",
			mutate: func(d []byte) []byte {
				d[22] = 2
				return d
			},
			wantErr: "channel count",
		},
		{
			name: "8-bit depth",
			mutate: func(d []byte) []byte {
				d[34] = 8
				return d
			},
			wantErr: "bit depth",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := make([]byte, len(valid))
			copy(data, valid)
			_, _, err := DecodeWAV(tt.mutate(data))
			if err == nil {
				t.Fatal("Expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestWAVDuration(t *testing.T) {
	data, err := EncodeWAV(make([]int16, 32000), 16000)
	if err != nil {
		t.Fatalf("Failed to encode WAV: %v", err)
	}

	duration, err := WAVDuration(data)
	if err != nil {
		t.Fatalf("Failed to compute duration: %v", err)
	}
	if duration != 2.0 {
		t.Errorf("Expected 2 seconds, got %f", duration)
	}

	if _, err := WAVDuration([]byte{1, 2, 3}); err == nil {
		t.Error("Expected error for truncated data")
	}
}
