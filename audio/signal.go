package audio

import "fmt"

const (
	SampleRate  = 22050
	HopLength   = 512
	FrameLength = 2048
)

// Signal is a mono PCM buffer. Samples are never mutated after construction;
// analyzers read it concurrently.
type Signal struct {
	Samples    []float64
	SampleRate int
}

func NewSignal(samples []float64, sampleRate int) (*Signal, error) {
	if sampleRate != SampleRate {
		return nil, fmt.Errorf("sample rate %d: want %d", sampleRate, SampleRate)
	}
	return &Signal{Samples: samples, SampleRate: sampleRate}, nil
}

func (s *Signal) Duration() float64 {
	if s == nil || s.SampleRate == 0 {
		return 0
	}
	return float64(len(s.Samples)) / float64(s.SampleRate)
}

// FrameCount is the number of centered analysis frames for n samples.
// Every per-frame series (pitch, energy, spectral) uses it.
func FrameCount(n int) int {
	if n <= 0 {
		return 0
	}
	return 1 + n/HopLength
}

func (s *Signal) FrameCount() int { return FrameCount(len(s.Samples)) }

// FrameTime converts a frame index to seconds.
func FrameTime(i, sampleRate int) float64 {
	return float64(i*HopLength) / float64(sampleRate)
}

// FrameTimes returns the time axis shared by all per-frame series.
func FrameTimes(n, sampleRate int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = FrameTime(i, sampleRate)
	}
	return out
}

// FrameRate is frames per second for the fixed hop.
func FrameRate(sampleRate int) float64 {
	return float64(sampleRate) / float64(HopLength)
}
