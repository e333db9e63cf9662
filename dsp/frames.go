// Package dsp holds the frame-level signal processing shared by the pitch,
// breath and diction analyzers. All framing is centered: frame i covers the
// samples around i*hop, zero padded at both ends, so every series has
// audio.FrameCount(len(x)) entries.
package dsp

import (
	"math"

	"github.com/maastricht-university/vocal-eval/audio"
)

// FrameAt copies the centered frame i of x into buf.
func FrameAt(x []float64, i, hop int, buf []float64) {
	start := i*hop - len(buf)/2
	for k := range buf {
		j := start + k
		if j < 0 || j >= len(x) {
			buf[k] = 0
			continue
		}
		buf[k] = x[j]
	}
}

// RMS is the per-frame root-mean-square energy (frame 2048, hop 512).
func RMS(x []float64) []float64 {
	n := audio.FrameCount(len(x))
	out := make([]float64, n)
	buf := make([]float64, audio.FrameLength)
	for i := 0; i < n; i++ {
		FrameAt(x, i, audio.HopLength, buf)
		var sum float64
		for _, v := range buf {
			sum += v * v
		}
		out[i] = math.Sqrt(sum / float64(len(buf)))
	}
	return out
}

// ZeroCrossingRate is the fraction of sign changes per frame.
func ZeroCrossingRate(x []float64) []float64 {
	n := audio.FrameCount(len(x))
	out := make([]float64, n)
	buf := make([]float64, audio.FrameLength)
	for i := 0; i < n; i++ {
		FrameAt(x, i, audio.HopLength, buf)
		crossings := 0
		for k := 1; k < len(buf); k++ {
			if math.Signbit(buf[k]) != math.Signbit(buf[k-1]) {
				crossings++
			}
		}
		out[i] = float64(crossings) / float64(len(buf))
	}
	return out
}
