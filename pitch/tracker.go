package pitch

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/maastricht-university/vocal-eval/audio"
	"github.com/maastricht-university/vocal-eval/dsp"
)

// MinFrames is the fewest frames a contour needs before it is scored.
const MinFrames = 10

const (
	winLength        = audio.FrameLength / 2
	binsPerSemitone  = 10
	nThresholds      = 100
	boltzmannLambda  = 2.0
	noTroughProb     = 0.01
	switchProb       = 0.01
	maxTransRate     = 35.92 // octaves per second
	silenceThreshold = 1e-10
)

// Contour is a per-frame fundamental frequency track. Hz is NaN wherever
// Voiced is false; use Voiced() to get the voiced sub-contour.
type Contour struct {
	Times  []float64
	Hz     []float64
	Voiced []bool
}

// Len is the frame count.
func (c *Contour) Len() int { return len(c.Times) }

// VoicedFrames returns the times and frequencies of voiced frames only.
func (c *Contour) VoicedFrames() (times, hz []float64) {
	for i, v := range c.Voiced {
		if v {
			times = append(times, c.Times[i])
			hz = append(hz, c.Hz[i])
		}
	}
	return times, hz
}

// VoicedCount is the number of voiced frames.
func (c *Contour) VoicedCount() int {
	n := 0
	for _, v := range c.Voiced {
		if v {
			n++
		}
	}
	return n
}

// Tracker estimates f0 with probabilistic YIN: multiple trough candidates
// per frame weighted by a Beta prior over thresholds, decoded with a
// voiced/unvoiced HMM.
type Tracker struct {
	fmin, fmax float64
	nBins      int
	betaProbs  []float64
	thresholds []float64
	transition []float64 // triangle weights by |bin distance|
	rowNorm    []float64
	maxStep    int
}

// NewTracker builds a tracker for the given frequency range in Hz.
func NewTracker(fmin, fmax float64) *Tracker {
	t := &Tracker{fmin: fmin, fmax: fmax}
	t.nBins = int(math.Floor(12*binsPerSemitone*math.Log2(fmax/fmin)+1e-9)) + 1

	beta := distuv.Beta{Alpha: 2, Beta: 18}
	t.thresholds = audio.Linspace(0, 1, nThresholds+1)
	t.betaProbs = make([]float64, nThresholds)
	for i := range t.betaProbs {
		t.betaProbs[i] = beta.CDF(t.thresholds[i+1]) - beta.CDF(t.thresholds[i])
	}

	semis := int(math.Round(maxTransRate * 12 * audio.HopLength / audio.SampleRate))
	t.maxStep = semis * binsPerSemitone / 2
	width := float64(t.maxStep + 1)
	t.transition = make([]float64, t.maxStep+1)
	for d := range t.transition {
		t.transition[d] = 1 - float64(d)/width
	}
	t.rowNorm = make([]float64, t.nBins)
	for b := range t.rowNorm {
		for d := -t.maxStep; d <= t.maxStep; d++ {
			if j := b + d; j >= 0 && j < t.nBins {
				t.rowNorm[b] += t.transition[abs(d)]
			}
		}
	}
	return t
}

// NewTrackerForNotes is NewTracker with the range given as note names.
func NewTrackerForNotes(lo, hi string) (*Tracker, error) {
	fmin, err := NoteFrequency(lo)
	if err != nil {
		return nil, err
	}
	fmax, err := NoteFrequency(hi)
	if err != nil {
		return nil, err
	}
	return NewTracker(fmin, fmax), nil
}

// Track returns the contour of sig. Signals with fewer than MinFrames frames
// yield an empty contour and audio.ErrInsufficientSignal.
func (t *Tracker) Track(sig *audio.Signal) (*Contour, error) {
	if sig == nil || sig.Duration() == 0 || sig.FrameCount() < MinFrames {
		return &Contour{}, audio.ErrInsufficientSignal
	}
	n := sig.FrameCount()
	sr := float64(sig.SampleRate)
	minPeriod := max(int(math.Floor(sr/t.fmax)), 1)
	maxPeriod := min(int(math.Ceil(sr/t.fmin)), audio.FrameLength-winLength-1)

	fft := fourier.NewFFT(audio.FrameLength)
	frame := make([]float64, audio.FrameLength)
	win := make([]float64, audio.FrameLength)
	obs := make([]float64, 2*t.nBins)
	states := t.viterbi(n, func(i int) []float64 {
		dsp.FrameAt(sig.Samples, i, audio.HopLength, frame)
		yin := cmndf(frame, win, fft, maxPeriod+1)
		t.observation(obs, yin, minPeriod, maxPeriod, sr)
		return obs
	})
	c := &Contour{
		Times:  audio.FrameTimes(n, sig.SampleRate),
		Hz:     make([]float64, n),
		Voiced: make([]bool, n),
	}
	for i, s := range states {
		if s < t.nBins {
			c.Voiced[i] = true
			c.Hz[i] = t.fmin * math.Pow(2, float64(s)/(12*binsPerSemitone))
		} else {
			c.Hz[i] = math.NaN()
		}
	}
	return c, nil
}

// cmndf computes the cumulative mean normalized difference function of the
// frame for lags [0, maxLag]. The cross term comes from an FFT correlation
// of the first winLength samples against the whole frame.
func cmndf(frame, win []float64, fft *fourier.FFT, maxLag int) []float64 {
	copy(win, frame[:winLength])
	for k := winLength; k < len(win); k++ {
		win[k] = 0
	}
	a := fft.Coefficients(nil, frame)
	b := fft.Coefficients(nil, win)
	for k := range a {
		a[k] *= complex(real(b[k]), -imag(b[k]))
	}
	acf := fft.Sequence(nil, a)
	scale := 1 / float64(len(frame))

	prefix := make([]float64, len(frame)+1)
	for k, v := range frame {
		prefix[k+1] = prefix[k] + v*v
	}
	r0 := prefix[winLength]

	out := make([]float64, maxLag+1)
	out[0] = 1
	if r0 < silenceThreshold {
		for k := range out {
			out[k] = 1
		}
		return out
	}
	var cum float64
	for tau := 1; tau <= maxLag; tau++ {
		rt := prefix[tau+winLength] - prefix[tau]
		d := math.Max(r0+rt-2*acf[tau]*scale, 0)
		cum += d
		if cum <= 0 {
			out[tau] = 1
			continue
		}
		out[tau] = d * float64(tau) / cum
	}
	return out
}

// observation fills obs with the frame's trough probabilities on pitch bins,
// followed by nBins unvoiced states sharing the remaining mass.
func (t *Tracker) observation(obs, yin []float64, minPeriod, maxPeriod int, sr float64) {
	for i := range obs[:t.nBins] {
		obs[i] = 0
	}

	var troughs []int
	for tau := minPeriod; tau < maxPeriod; tau++ {
		left := tau == minPeriod || yin[tau] < yin[tau-1]
		if left && yin[tau] <= yin[tau+1] {
			troughs = append(troughs, tau)
		}
	}

	var voicedMass float64
	if len(troughs) > 0 {
		probs := t.troughProbabilities(yin, troughs)
		for k, tau := range troughs {
			if probs[k] <= 0 {
				continue
			}
			period := float64(tau) + parabolicShift(yin, tau)
			f0 := sr / period
			bin := int(math.Round(12 * binsPerSemitone * math.Log2(f0/t.fmin)))
			if bin < 0 || bin >= t.nBins {
				continue
			}
			obs[bin] += probs[k]
			voicedMass += probs[k]
		}
	}
	voicedMass = audio.Clip(voicedMass, 0, 1)
	for b := t.nBins; b < 2*t.nBins; b++ {
		obs[b] = (1 - voicedMass) / float64(t.nBins)
	}
}

// troughProbabilities assigns each threshold's Beta mass to the first trough
// under it, discounted by a Boltzmann prior on the trough's rank. The global
// minimum also absorbs a small share of the thresholds no trough reaches.
func (t *Tracker) troughProbabilities(yin []float64, troughs []int) []float64 {
	probs := make([]float64, len(troughs))
	for i := 0; i < nThresholds; i++ {
		th := t.thresholds[i+1]
		below := 0
		for _, tau := range troughs {
			if yin[tau] < th {
				below++
			}
		}
		if below == 0 {
			continue
		}
		norm := (1 - math.Exp(-boltzmannLambda)) / (1 - math.Exp(-boltzmannLambda*float64(below)))
		rank := 0
		for k, tau := range troughs {
			if yin[tau] < th {
				probs[k] += norm * math.Exp(-boltzmannLambda*float64(rank)) * t.betaProbs[i]
				rank++
			}
		}
	}

	g := 0
	for k, tau := range troughs {
		if yin[tau] < yin[troughs[g]] {
			g = k
		}
	}
	var missed float64
	for i := 0; i < nThresholds; i++ {
		if !(yin[troughs[g]] < t.thresholds[i+1]) {
			missed += t.betaProbs[i]
		}
	}
	probs[g] += noTroughProb * missed
	return probs
}

func parabolicShift(y []float64, i int) float64 {
	if i <= 0 || i >= len(y)-1 {
		return 0
	}
	a := y[i+1] + y[i-1] - 2*y[i]
	b := (y[i+1] - y[i-1]) / 2
	if math.Abs(b) >= math.Abs(a) {
		return 0
	}
	return -b / a
}

// viterbi decodes the most likely state sequence over n frames, pulling
// each frame's observation from obsAt once. States [0, nBins) are voiced
// pitch bins, [nBins, 2nBins) their unvoiced twins. Transitions stay within
// maxStep bins and switch voicing with probability switchProb. Only the
// back pointers are kept for the whole recording.
func (t *Tracker) viterbi(n int, obsAt func(int) []float64) []int {
	ns := 2 * t.nBins
	const tiny = 2.2250738585072014e-308
	logStay, logSwitch := math.Log(1-switchProb), math.Log(switchProb)

	logTrans := make([][]float64, t.nBins)
	for b := range logTrans {
		row := make([]float64, 2*t.maxStep+1)
		for d := -t.maxStep; d <= t.maxStep; d++ {
			row[d+t.maxStep] = math.Log(t.transition[abs(d)] / t.rowNorm[b])
		}
		logTrans[b] = row
	}

	prev := make([]float64, ns)
	first := obsAt(0)
	for s := range prev {
		p := 0.0
		if s >= t.nBins {
			p = 1 / float64(t.nBins)
		}
		prev[s] = math.Log(p+tiny) + math.Log(first[s]+tiny)
	}
	back := make([][]uint16, n)
	cur := make([]float64, ns)
	for f := 1; f < n; f++ {
		obs := obsAt(f)
		bp := make([]uint16, ns)
		for s := 0; s < ns; s++ {
			bin := s % t.nBins
			voiced := s < t.nBins
			best, arg := math.Inf(-1), 0
			for d := -t.maxStep; d <= t.maxStep; d++ {
				from := bin - d
				if from < 0 || from >= t.nBins {
					continue
				}
				lt := logTrans[from][d+t.maxStep]
				if v := prev[from] + lt + pick(voiced, logStay, logSwitch); v > best {
					best, arg = v, from
				}
				if v := prev[from+t.nBins] + lt + pick(voiced, logSwitch, logStay); v > best {
					best, arg = v, from+t.nBins
				}
			}
			cur[s] = best + math.Log(obs[s]+tiny)
			bp[s] = uint16(arg)
		}
		back[f] = bp
		prev, cur = cur, prev
	}

	states := make([]int, n)
	last := 0
	for s := range prev {
		if prev[s] > prev[last] {
			last = s
		}
	}
	states[n-1] = last
	for f := n - 1; f > 0; f-- {
		states[f-1] = int(back[f][states[f]])
	}
	return states
}

func pick(cond bool, a, b float64) float64 {
	if cond {
		return a
	}
	return b
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
