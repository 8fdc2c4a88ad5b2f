package audio

import "math"

// CanonicalSampleRate is the sample rate every vendor adapter expects.
const CanonicalSampleRate = 16000

// Resample converts samples from inputRate to targetRate using linear
// interpolation between the two nearest input samples. This is an
// approximation, not a bandlimited resampler; it is adequate for speech
// recognition input, not for high-fidelity audio. A buffer already at
// the target rate is returned unchanged.
func Resample(samples []float32, inputRate, targetRate int) []float32 {
	if inputRate == targetRate || len(samples) == 0 {
		return samples
	}

	ratio := float64(inputRate) / float64(targetRate)
	outLen := int(math.Round(float64(len(samples)) / ratio))
	out := make([]float32, outLen)

	for i := 0; i < outLen; i++ {
		pos := float64(i) * ratio
		idx := int(pos)
		frac := float32(pos - float64(idx))

		if idx+1 < len(samples) {
			out[i] = samples[idx]*(1-frac) + samples[idx+1]*frac
		} else if idx < len(samples) {
			out[i] = samples[idx]
		}
	}

	return out
}
