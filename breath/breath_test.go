package breath

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maastricht-university/vocal-eval/audio"
)

var frameSec = float64(audio.HopLength) / audio.SampleRate

func envelope(seconds float64) []float64 {
	n := int(seconds / frameSec)
	rms := make([]float64, n)
	for i := range rms {
		t := float64(i) * frameSec
		rms[i] = 0.1 + 0.01*math.Sin(2*math.Pi*0.5*t)
	}
	return rms
}

func withSilence(rms []float64, at, seconds float64) []float64 {
	gap := make([]float64, int(seconds/frameSec))
	for i := range gap {
		gap[i] = 1e-4
	}
	cut := int(at / frameSec)
	out := append([]float64(nil), rms[:cut]...)
	out = append(out, gap...)
	return append(out, rms[cut:]...)
}

func assertBounded(t *testing.T, r *Result) {
	t.Helper()
	for _, v := range []float64{r.Consistency, r.Dropout, r.Phrase, r.Timing, r.Score} {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 10.0)
	}
}

func TestSilentGapLowersDropoutScore(t *testing.T) {
	base := envelope(10)
	clean := Analyze(base, audio.SampleRate)
	gapped := Analyze(withSilence(base, 5, 2), audio.SampleRate)

	assertBounded(t, clean)
	assertBounded(t, gapped)
	assert.Equal(t, 10.0, clean.Dropout)
	assert.Less(t, gapped.Dropout, clean.Dropout)
	assert.Greater(t, gapped.Dropouts, 0)
}

func TestSilentEnvelopeIsNeutral(t *testing.T) {
	r := Analyze(make([]float64, 200), audio.SampleRate)
	assert.True(t, r.Neutral)
	assert.Equal(t, audio.Neutral, r.Score)

	r = Analyze(nil, audio.SampleRate)
	assert.True(t, r.Neutral)
}

func TestSingleFrameDefaults(t *testing.T) {
	r := Analyze([]float64{0.2}, audio.SampleRate)
	assert.Equal(t, 10.0, r.Consistency)
	assert.Equal(t, 10.0, r.Dropout)
	assert.Equal(t, 3.0, r.Phrase)
	assert.Equal(t, audio.Neutral, r.Timing)
	assert.InDelta(t, 7.6, r.Score, 1e-9)
}

func pulses(onsets []float64, seconds float64) []float64 {
	rms := make([]float64, int(seconds/frameSec))
	for i := range rms {
		rms[i] = 0.05
	}
	for _, at := range onsets {
		i := int(at / frameSec)
		rms[i-1], rms[i], rms[i+1] = 0.2, 0.4, 0.2
	}
	return rms
}

func TestTimingRegularPeaks(t *testing.T) {
	r := Analyze(pulses([]float64{1, 2, 3, 4, 5, 6}, 7), audio.SampleRate)
	require.Len(t, r.Peaks, 6)
	assert.Zero(t, r.Timing)
}

func TestTimingIrregularPeaks(t *testing.T) {
	r := Analyze(pulses([]float64{1, 1.6, 3, 3.5, 5.5}, 7), audio.SampleRate)
	require.Len(t, r.Peaks, 5)
	assert.Greater(t, r.Timing, 0.0)
	assertBounded(t, r)
}

func TestTimingTooFewPeaks(t *testing.T) {
	r := Analyze(pulses([]float64{2}, 4), audio.SampleRate)
	assert.Equal(t, audio.Neutral, r.Timing)
}

func TestAnalyzeSignal(t *testing.T) {
	x := make([]float64, 3*audio.SampleRate)
	for i := range x {
		x[i] = 0.3 * math.Sin(2*math.Pi*330*float64(i)/audio.SampleRate)
	}
	sig, err := audio.NewSignal(x, audio.SampleRate)
	require.NoError(t, err)

	r := AnalyzeSignal(sig)
	assert.False(t, r.Neutral)
	assertBounded(t, r)
	assert.Equal(t, r, AnalyzeSignal(sig))
}
