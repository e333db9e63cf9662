package dsp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maastricht-university/vocal-eval/audio"
)

func sine(freq, amp, seconds float64) []float64 {
	n := int(seconds * audio.SampleRate)
	x := make([]float64, n)
	for i := range x {
		x[i] = amp * math.Sin(2*math.Pi*freq*float64(i)/audio.SampleRate)
	}
	return x
}

func TestRMSFrameCountAndLevel(t *testing.T) {
	x := sine(440, 0.5, 1)
	rms := RMS(x)
	require.Len(t, rms, audio.FrameCount(len(x)))

	mid := rms[len(rms)/2]
	assert.InDelta(t, 0.5/math.Sqrt2, mid, 0.01)
	assert.Less(t, rms[0], mid, "first frame is half zero padding")
}

func TestRMSSilence(t *testing.T) {
	rms := RMS(make([]float64, audio.SampleRate))
	for _, v := range rms {
		assert.Zero(t, v)
	}
}

func TestSTFTPeakBin(t *testing.T) {
	x := sine(1000, 0.5, 0.5)
	s := STFT(x, audio.SampleRate)
	require.Equal(t, audio.FrameCount(len(x)), s.Frames())
	require.Equal(t, audio.FrameLength/2+1, s.Bins())

	row := s.Mag[s.Frames()/2]
	best := 0
	for k, v := range row {
		if v > row[best] {
			best = k
		}
	}
	assert.InDelta(t, 1000, s.BinFreq(best), s.BinFreq(1))

	c := Centroid(s)
	assert.InDelta(t, 1000, c[s.Frames()/2], 60)
}

func TestFlatnessToneVersusNoise(t *testing.T) {
	tone := STFT(sine(500, 0.5, 0.5), audio.SampleRate)
	noise := make([]float64, audio.SampleRate/2)
	seed := uint32(1)
	for i := range noise {
		seed = seed*1664525 + 1013904223
		noise[i] = float64(seed)/math.MaxUint32 - 0.5
	}
	ns := STFT(noise, audio.SampleRate)

	assert.Less(t, Flatness(tone)[tone.Frames()/2], Flatness(ns)[ns.Frames()/2])
}

func TestRolloffOrdering(t *testing.T) {
	s := STFT(sine(1000, 0.5, 0.5), audio.SampleRate)
	r85 := Rolloff(s, 0.85)
	r99 := Rolloff(s, 0.99)
	mid := s.Frames() / 2
	assert.LessOrEqual(t, r85[mid], r99[mid])
	assert.Greater(t, r85[mid], 900.0)
}

func TestSavGolPreservesCubic(t *testing.T) {
	x := make([]float64, 60)
	for i := range x {
		v := float64(i)
		x[i] = 0.001*v*v*v - 0.05*v*v + v + 3
	}
	y := SavGol(x, 11, 3)
	require.Len(t, y, len(x))
	for i := range x {
		assert.InDelta(t, x[i], y[i], 1e-6, "index %d", i)
	}
}

func TestSavGolInvalidWindowCopies(t *testing.T) {
	x := []float64{1, 2, 3}
	y := SavGol(x, 5, 3)
	assert.Equal(t, x, y)
	y[0] = 9
	assert.Equal(t, 1.0, x[0])
}

func TestButterBandpassResponse(t *testing.T) {
	fs := audio.FrameRate(audio.SampleRate)
	f := ButterBandpass(2, 4, 8, fs)
	require.Len(t, f.A, 5)

	n := 600
	pass := make([]float64, n)
	stop := make([]float64, n)
	for i := range pass {
		tt := float64(i) / fs
		pass[i] = math.Sin(2 * math.Pi * 6 * tt)
		stop[i] = math.Sin(2 * math.Pi * 0.5 * tt)
	}
	yp, err := f.FiltFilt(pass)
	require.NoError(t, err)
	ys, err := f.FiltFilt(stop)
	require.NoError(t, err)

	amp := func(x []float64) float64 {
		var m float64
		for _, v := range x[100 : len(x)-100] {
			m = math.Max(m, math.Abs(v))
		}
		return m
	}
	assert.InDelta(t, 1.0, amp(yp), 0.05)
	assert.Less(t, amp(ys), 0.05)
}

func TestFiltFiltTooShort(t *testing.T) {
	f := ButterBandpass(2, 4, 8, audio.FrameRate(audio.SampleRate))
	_, err := f.FiltFilt(make([]float64, 10))
	assert.ErrorIs(t, err, ErrSignalTooShort)
}

func TestFindPeaks(t *testing.T) {
	x := []float64{0, 1, 0, 3, 0, 2, 2, 2, 0, 5, 4, 0}
	assert.Equal(t, []int{1, 3, 6, 9}, FindPeaks(x, 0, 1))
	assert.Equal(t, []int{3, 6, 9}, FindPeaks(x, 2, 1))
	assert.Equal(t, []int{3, 9}, FindPeaks(x, 0, 4))
}

func TestMFCCShapeAndDelta(t *testing.T) {
	s := STFT(sine(300, 0.3, 0.5), audio.SampleRate)
	m := MFCC(s, 13)
	require.Len(t, m, s.Frames())
	require.Len(t, m[0], 13)

	d := Delta(m)
	require.Len(t, d, len(m))
	mid := len(d) / 2
	for _, v := range d[mid] {
		assert.InDelta(t, 0, v, 1.0, "steady tone has near-zero deltas")
	}
}

func TestPickOnsetsFindsClicks(t *testing.T) {
	x := make([]float64, 2*audio.SampleRate)
	for _, at := range []float64{0.25, 0.75, 1.25, 1.75} {
		start := int(at * audio.SampleRate)
		for i := 0; i < 400; i++ {
			x[start+i] = 0.8 * math.Sin(2*math.Pi*2000*float64(i)/audio.SampleRate) * math.Exp(-float64(i)/80)
		}
	}
	s := STFT(x, audio.SampleRate)
	onsets := PickOnsets(OnsetStrength(s), audio.SampleRate)
	assert.GreaterOrEqual(t, len(onsets), 3)
	assert.LessOrEqual(t, len(onsets), 6)
}

func TestPickOnsetsFlatEnvelope(t *testing.T) {
	assert.Empty(t, PickOnsets(make([]float64, 50), audio.SampleRate))
	assert.Empty(t, PickOnsets(nil, audio.SampleRate))
}

func TestHPSSToneIsHarmonic(t *testing.T) {
	s := STFT(sine(440, 0.5, 1), audio.SampleRate)
	h, p := HPSS(s, 31)
	var eh, ep float64
	for f := range h {
		for k := range h[f] {
			eh += h[f][k] * h[f][k]
			ep += p[f][k] * p[f][k]
		}
	}
	assert.Greater(t, eh, ep)
}

func TestContrastBands(t *testing.T) {
	s := STFT(sine(440, 0.5, 0.5), audio.SampleRate)
	c := Contrast(s, 200, 6, 0.02)
	require.Len(t, c, s.Frames())
	assert.Len(t, c[0], 7)
	for _, v := range c[s.Frames()/2] {
		assert.GreaterOrEqual(t, v, 0.0)
	}
}
