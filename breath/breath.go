// Package breath rates breath support from the short-time energy envelope.
package breath

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/maastricht-university/vocal-eval/audio"
	"github.com/maastricht-university/vocal-eval/dsp"
)

const (
	smoothWindow   = 51
	smoothOrder    = 3
	minSmoothFrame = 7
	silentRMS      = 1e-6
	defaultPhrase  = 3.0
	peakSpacingSec = 0.25
)

// Result is the breath category breakdown.
type Result struct {
	Consistency float64
	Dropout     float64
	Phrase      float64
	Timing      float64
	Score       float64

	// DropoutThreshold is the RMS level under which a frame counts as a
	// dropout.
	DropoutThreshold float64
	Dropouts         int
	Peaks            []int
	Neutral          bool
}

// AnalyzeSignal computes the RMS envelope of sig and analyzes it.
func AnalyzeSignal(sig *audio.Signal) *Result {
	return Analyze(dsp.RMS(sig.Samples), sig.SampleRate)
}

// Analyze rates an RMS envelope framed at audio.HopLength. An empty or
// silent envelope gets neutral values throughout.
func Analyze(rms []float64, sampleRate int) *Result {
	if len(rms) == 0 || floats.Max(rms) < silentRMS {
		return &Result{
			Consistency: audio.Neutral,
			Dropout:     audio.Neutral,
			Phrase:      audio.Neutral,
			Timing:      audio.Neutral,
			Score:       audio.Neutral,
			Neutral:     true,
		}
	}
	hopSec := float64(audio.HopLength) / float64(sampleRate)

	smoothed := append([]float64(nil), rms...)
	if len(rms) >= minSmoothFrame {
		smoothed = dsp.SavGol(rms, audio.OddWindow(smoothWindow, len(rms)), smoothOrder)
	}

	r := &Result{}
	r.Consistency = audio.Score(10 - stat.PopVariance(smoothed, nil)*100)
	r.DropoutThreshold, r.Dropouts = dropouts(rms)
	r.Dropout = audio.Score(10 - float64(r.Dropouts)/float64(len(rms))*50)
	r.Phrase = phraseScore(smoothed, hopSec)
	r.Peaks, r.Timing = timingScore(rms, hopSec)
	r.Score = audio.Score(0.3*r.Consistency + 0.3*r.Dropout + 0.2*r.Phrase + 0.2*r.Timing)
	return r
}

// dropouts counts frames under min(p20, median/2). This is deliberately not
// the plain 20th percentile: that would flag a fixed fifth of any envelope,
// so a steady take and one with a silent gap would score alike.
func dropouts(rms []float64) (float64, int) {
	p20, _ := audio.Percentile(rms, 20)
	med, _ := audio.Median(rms)
	th := math.Min(p20, 0.5*med)
	n := 0
	for _, v := range rms {
		if v < th {
			n++
		}
	}
	return th, n
}

// phraseScore rates the mean length of runs where the envelope barely moves.
func phraseScore(smoothed []float64, hopSec float64) float64 {
	if len(smoothed) < 2 {
		return defaultPhrase
	}
	diff := make([]float64, len(smoothed)-1)
	for i := range diff {
		diff[i] = math.Abs(smoothed[i+1] - smoothed[i])
	}
	th, _ := audio.Percentile(diff, 30)

	var runs []float64
	run := 0
	for _, d := range diff {
		if d < th {
			run++
			continue
		}
		if run > 0 {
			runs = append(runs, float64(run))
		}
		run = 0
	}
	if run > 0 {
		runs = append(runs, float64(run))
	}
	if len(runs) == 0 {
		return defaultPhrase
	}
	return audio.Score(stat.Mean(runs, nil) * hopSec * 2)
}

// timingScore rates the regularity of energy peaks.
func timingScore(rms []float64, hopSec float64) ([]int, float64) {
	height, _ := audio.Percentile(rms, 70)
	distance := int(math.Round(peakSpacingSec / hopSec))
	peaks := dsp.FindPeaks(rms, height, distance)
	if len(peaks) < 2 {
		return peaks, audio.Neutral
	}
	intervals := make([]float64, len(peaks)-1)
	for i := range intervals {
		intervals[i] = float64(peaks[i+1]-peaks[i]) * hopSec
	}
	std := stat.PopStdDev(intervals, nil)
	if std == 0 {
		return peaks, 0
	}
	return peaks, audio.Score(1 / std / 10)
}
