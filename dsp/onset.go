package dsp

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/maastricht-university/vocal-eval/audio"
)

// OnsetStrength is the mean positive log-mel flux between consecutive
// frames. The first frame is 0.
func OnsetStrength(s *Spectrogram) []float64 {
	logMel := PowerToDB(MelSpectrogram(s, 128), 80)
	env := make([]float64, len(logMel))
	for t := 1; t < len(logMel); t++ {
		var acc float64
		for m, v := range logMel[t] {
			if d := v - logMel[t-1][m]; d > 0 {
				acc += d
			}
		}
		env[t] = acc / float64(len(logMel[t]))
	}
	return env
}

// PickOnsets returns frame indices of onset peaks. The envelope is
// normalized to [0,1]; a frame is an onset when it is the local maximum of
// its ±30 ms neighbourhood, exceeds the surrounding 100 ms mean by 0.07, and
// follows the previous onset by more than 30 ms.
func PickOnsets(env []float64, sampleRate int) []int {
	if len(env) == 0 {
		return nil
	}
	lo, hi := floats.Min(env), floats.Max(env)
	if hi-lo <= 0 {
		return nil
	}
	norm := make([]float64, len(env))
	for i, v := range env {
		norm[i] = (v - lo) / (hi - lo)
	}

	fr := audio.FrameRate(sampleRate)
	preMax := int(0.03 * fr)
	postMax := 1
	preAvg := int(0.10 * fr)
	postAvg := int(0.10*fr) + 1
	wait := int(0.03 * fr)
	const delta = 0.07

	var onsets []int
	last := math.MinInt32
	for n := range norm {
		a, b := max(0, n-preMax), min(len(norm), n+postMax)
		if norm[n] < floats.Max(norm[a:b]) {
			continue
		}
		a, b = max(0, n-preAvg), min(len(norm), n+postAvg)
		if norm[n] < floats.Sum(norm[a:b])/float64(b-a)+delta {
			continue
		}
		if n-last <= wait {
			continue
		}
		onsets = append(onsets, n)
		last = n
	}
	return onsets
}
