package emu

const (
	sampleRate    = 48000 // Output rate
	dspSampleRate = 32000
)

// resampler converts the DSP's 32kHz stereo stream to 48kHz by linear
// interpolation. phase is the output position past prev in units of
// 1/sampleRate of an input sample; it and prev persist across frames.
type resampler struct {
	phase int
	prev  [2]int16
}

// process appends the resampled form of src (interleaved stereo) to dst.
func (r *resampler) process(dst, src []int16) []int16 {
	for i := 0; i+1 < len(src); i += 2 {
		cur := [2]int16{src[i], src[i+1]}
		for r.phase < sampleRate {
			for ch := 0; ch < 2; ch++ {
				a, b := int(r.prev[ch]), int(cur[ch])
				dst = append(dst, int16(a+(b-a)*r.phase/sampleRate))
			}
			r.phase += dspSampleRate
		}
		r.phase -= sampleRate
		r.prev = cur
	}
	return dst
}

// GetAudioSamples returns the last frame's audio as 48kHz 16-bit stereo PCM.
func (e *Emulator) GetAudioSamples() []int16 {
	return e.audioBuffer
}
