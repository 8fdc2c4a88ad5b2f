package audio

// Float32ToPCM16 converts float samples to signed 16-bit PCM. Samples
// are clamped to [-1, 1] and scaled asymmetrically (negative values by
// 32768, non-negative by 32767) so both rails are reachable.
func Float32ToPCM16(samples []float32) []int16 {
	pcm := make([]int16, len(samples))
	for i, s := range samples {
		if s < -1 {
			s = -1
		} else if s > 1 {
			s = 1
		}
		if s < 0 {
			pcm[i] = int16(s * 32768)
		} else {
			pcm[i] = int16(s * 32767)
		}
	}
	return pcm
}

// PCM16ToFloat32 converts signed 16-bit PCM back to float samples in
// [-1, 1]. Round-tripping through Float32ToPCM16 stays within one
// quantization step (1/32768) of the original values.
func PCM16ToFloat32(pcm []int16) []float32 {
	samples := make([]float32, len(pcm))
	for i, s := range pcm {
		if s < 0 {
			samples[i] = float32(s) / 32768
		} else {
			samples[i] = float32(s) / 32767
		}
	}
	return samples
}

// PCM16ToBytes serializes PCM16 samples little-endian for transport to
// vendors expecting raw PCM.
func PCM16ToBytes(pcm []int16) []byte {
	buf := make([]byte, len(pcm)*2)
	for i, s := range pcm {
		buf[i*2] = byte(s)
		buf[i*2+1] = byte(uint16(s) >> 8)
	}
	return buf
}

// BytesToPCM16 deserializes little-endian PCM16 bytes. The input length
// must be even; a trailing odd byte is dropped.
func BytesToPCM16(buf []byte) []int16 {
	pcm := make([]int16, len(buf)/2)
	for i := range pcm {
		pcm[i] = int16(buf[i*2]) | int16(buf[i*2+1])<<8
	}
	return pcm
}
