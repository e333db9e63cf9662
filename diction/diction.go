// Package diction rates articulation and clarity from spectral and timbral
// descriptors of the recording.
package diction

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/maastricht-university/vocal-eval/audio"
	"github.com/maastricht-university/vocal-eval/dsp"
)

const (
	silentPeak    = 1e-6
	rolloffPct    = 0.95
	nMFCC         = 13
	contrastFmin  = 200
	contrastBands = 6
	hpssKernel    = 31
	idealZCR      = 0.1
	idealFormant  = 0.4
)

// Weights blends the descriptor scores into the diction score.
type Weights struct {
	Brightness   float64
	Rolloff      float64
	Onset        float64
	ZCR          float64
	Articulation float64
	Contrast     float64
	Formant      float64
	HNR          float64
	Plosive      float64
}

// DefaultWeights sums to 1.
var DefaultWeights = Weights{
	Brightness:   0.15,
	Rolloff:      0.15,
	Onset:        0.25,
	ZCR:          0.15,
	Articulation: 0.15,
	Contrast:     0.05,
	Formant:      0.05,
	HNR:          0.03,
	Plosive:      0.02,
}

// Sum is the total weight.
func (w Weights) Sum() float64 {
	return w.Brightness + w.Rolloff + w.Onset + w.ZCR + w.Articulation + w.Contrast + w.Formant + w.HNR + w.Plosive
}

// Result is the diction category breakdown.
type Result struct {
	Brightness   float64
	Rolloff      float64
	Onset        float64
	ZCR          float64
	Articulation float64
	Contrast     float64
	Formant      float64
	HNR          float64
	Plosive      float64
	Score        float64

	// Per-frame descriptors, on the shared frame grid.
	Centroid      []float64
	RolloffHz     []float64
	OnsetEnvelope []float64
	Onsets        []int
	Neutral       bool
}

// Analyze rates sig with DefaultWeights.
func Analyze(sig *audio.Signal) *Result {
	return AnalyzeWeighted(sig, DefaultWeights)
}

// AnalyzeWeighted rates sig. Silent or too short recordings get neutral
// values throughout.
func AnalyzeWeighted(sig *audio.Signal, w Weights) *Result {
	if len(sig.Samples) == 0 || peak(sig.Samples) < silentPeak || sig.FrameCount() < 2 {
		return neutral()
	}
	spec := dsp.STFT(sig.Samples, sig.SampleRate)

	r := &Result{
		Centroid:      dsp.Centroid(spec),
		RolloffHz:     dsp.Rolloff(spec, rolloffPct),
		OnsetEnvelope: dsp.OnsetStrength(spec),
	}
	centroid := stat.Mean(r.Centroid, nil)
	rolloff := stat.Mean(r.RolloffHz, nil)

	r.Brightness = audio.Score((centroid - 500) / 200)
	r.Rolloff = audio.Score((rolloff - 2000) / 600)
	r.Onsets = dsp.PickOnsets(r.OnsetEnvelope, sig.SampleRate)
	r.Onset = onsetScore(r.OnsetEnvelope, r.Onsets)
	r.ZCR = zcrScore(dsp.ZeroCrossingRate(sig.Samples))
	r.Articulation = articulationScore(dsp.MFCC(spec, nMFCC))
	r.Contrast = contrastScore(dsp.Contrast(spec, contrastFmin, contrastBands, 0.02))
	r.Formant = formantScore(centroid, rolloff)
	r.HNR = hnrScore(dsp.HPSS(spec, hpssKernel))
	r.Plosive = plosiveScore(dsp.Flatness(spec))

	r.Score = audio.Score(w.Brightness*r.Brightness +
		w.Rolloff*r.Rolloff +
		w.Onset*r.Onset +
		w.ZCR*r.ZCR +
		w.Articulation*r.Articulation +
		w.Contrast*r.Contrast +
		w.Formant*r.Formant +
		w.HNR*r.HNR +
		w.Plosive*r.Plosive)
	return r
}

func neutral() *Result {
	n := audio.Neutral
	return &Result{
		Brightness: n, Rolloff: n, Onset: n, ZCR: n, Articulation: n,
		Contrast: n, Formant: n, HNR: n, Plosive: n, Score: n,
		Neutral: true,
	}
}

func peak(x []float64) float64 {
	return math.Max(math.Abs(floats.Max(x)), math.Abs(floats.Min(x)))
}

// onsetScore is the share of onsets stronger than the envelope's upper
// quartile.
func onsetScore(env []float64, onsets []int) float64 {
	if len(onsets) == 0 {
		return audio.Neutral
	}
	p75, err := audio.Percentile(env, 75)
	if err != nil {
		return audio.Neutral
	}
	strong := 0
	for _, o := range onsets {
		if env[o] > p75 {
			strong++
		}
	}
	return audio.Score(float64(strong) / float64(len(onsets)) * 10)
}

func zcrScore(zcr []float64) float64 {
	mean, variance := stat.PopMeanVariance(zcr, nil)
	closeness := audio.Score(10 - math.Abs(mean-idealZCR)*100)
	spread := audio.Score(variance * 5000)
	return 0.4*closeness + 0.6*spread
}

// articulationScore rates how much the cepstral envelope moves: the mean
// per-coefficient spread of MFCC 1..12 and of their deltas.
func articulationScore(mfcc [][]float64) float64 {
	if len(mfcc) < 2 {
		return audio.Neutral
	}
	return audio.Score(0.6*coeffSpread(mfcc)/2 + 0.4*coeffSpread(dsp.Delta(mfcc))*2)
}

func coeffSpread(m [][]float64) float64 {
	col := make([]float64, len(m))
	var sum float64
	for k := 1; k < len(m[0]); k++ {
		for t := range m {
			col[t] = m[t][k]
		}
		sum += stat.PopStdDev(col, nil)
	}
	return sum / float64(len(m[0])-1)
}

func contrastScore(c [][]float64) float64 {
	var sum float64
	var n int
	for _, row := range c {
		sum += floats.Sum(row)
		n += len(row)
	}
	if n == 0 {
		return audio.Neutral
	}
	return audio.Score(sum / float64(n) / 2.5)
}

func formantScore(centroid, rolloff float64) float64 {
	if rolloff <= 0 {
		return audio.Neutral
	}
	return audio.Score(10 - math.Abs(centroid/rolloff-idealFormant)*25)
}

// hnrScore compares harmonic to percussive energy in dB.
func hnrScore(harmonic, percussive [][]float64) float64 {
	var h, p float64
	for t := range harmonic {
		for k := range harmonic[t] {
			h += harmonic[t][k] * harmonic[t][k]
			p += percussive[t][k] * percussive[t][k]
		}
	}
	switch {
	case p == 0 && h > 0:
		return 10
	case p == 0:
		return audio.Neutral
	}
	return audio.Score(10 * math.Log10(h/p) / 5)
}

// plosiveScore is the share of frames with unusually low spectral flatness.
func plosiveScore(flatness []float64) float64 {
	p10, err := audio.Percentile(flatness, 10)
	if err != nil {
		return audio.Neutral
	}
	low := 0
	for _, f := range flatness {
		if f < p10 {
			low++
		}
	}
	return audio.Score(float64(low) / float64(len(flatness)) * 20)
}
