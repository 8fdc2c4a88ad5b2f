// Package audio provides capture and framing utilities: sample rate
// conversion, PCM16 packaging, fixed-size frame splitting and WAV
// encoding for the speech recognition pipeline.
package audio
