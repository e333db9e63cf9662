package pitch

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/stat"

	"github.com/maastricht-university/vocal-eval/audio"
	"github.com/maastricht-university/vocal-eval/dsp"
)

// Accuracy modes.
const (
	AlignInterpolate = "interpolate"
	AlignDTW         = "dtw"
	ModeSelf         = "self"
)

const (
	centerWindow   = 101
	centerOrder    = 3
	vibratoLow     = 4.0
	vibratoHigh    = 8.0
	maxDepthCents  = 300.0
	minRateSamples = 16
)

// Weights blends the three pitch sub-scores.
type Weights struct {
	Accuracy  float64 `mapstructure:"accuracy" json:"accuracy"`
	Stability float64 `mapstructure:"stability" json:"stability"`
	Vibrato   float64 `mapstructure:"vibrato" json:"vibrato"`
}

// DefaultWeights is the direct-reference blend.
var DefaultWeights = Weights{Accuracy: 0.7, Stability: 0.2, Vibrato: 0.1}

// Options controls how a contour is scored.
type Options struct {
	Alignment   string
	Weights     Weights
	MaxDTWCells int
	Debug       bool
}

// DTWDebug describes an alignment between the sung center contour and the
// reference notes.
type DTWDebug struct {
	MeanDeviationCents float64   `json:"mean_deviation_cents"`
	Path               []Step    `json:"alignment_path"`
	Deviations         []float64 `json:"deviations"`
	Fallback           bool      `json:"fallback,omitempty"`
	Reason             string    `json:"reason,omitempty"`
}

// Result is the pitch category breakdown.
type Result struct {
	Accuracy  float64
	Stability float64
	Vibrato   float64
	Score     float64

	VibratoDepth *float64
	VibratoRate  *float64
	Center       []float64
	CenterTimes  []float64

	Mode    string
	Neutral bool
	DTW     *DTWDebug

	// FallbackReason is set when dtw was requested but interpolation was
	// used. It is kept when DTW is dropped for non-debug runs.
	FallbackReason string
}

func neutralResult(mode string) *Result {
	return &Result{
		Accuracy:  audio.Neutral,
		Stability: audio.Neutral,
		Vibrato:   audio.Neutral,
		Score:     audio.Neutral,
		Mode:      mode,
		Neutral:   true,
	}
}

// Score rates a contour, optionally against ref. A contour with fewer than
// MinFrames voiced frames gets neutral values throughout.
func Score(c *Contour, ref *Reference, sampleRate int, opts Options) *Result {
	if opts.Weights == (Weights{}) {
		opts.Weights = DefaultWeights
	}
	if opts.MaxDTWCells <= 0 {
		opts.MaxDTWCells = DefaultMaxCells
	}
	mode := ModeSelf
	if ref.Usable() {
		mode = opts.Alignment
		if mode != AlignDTW {
			mode = AlignInterpolate
		}
	}

	times, hz := c.VoicedFrames()
	if len(hz) < MinFrames || times[len(times)-1] == times[0] {
		return neutralResult(mode)
	}

	center := dsp.SavGol(hz, max(audio.OddWindow(centerWindow, len(hz)), 5), centerOrder)
	residual := make([]float64, len(hz))
	for i := range hz {
		residual[i] = audio.Cents(hz[i], center[i])
	}
	frameRate := audio.FrameRate(sampleRate)

	res := &Result{Mode: mode, Center: center, CenterTimes: times}
	depth := vibratoDepth(residual, frameRate)
	res.VibratoDepth = &depth
	res.VibratoRate = vibratoRate(residual, frameRate)
	res.Vibrato = VibratoScore(depth)
	res.Stability = audio.Score(10 - stat.PopVariance(center, nil)/500)

	if opts.Debug && ref.Usable() || mode == AlignDTW {
		res.DTW = alignDebug(center, ref, opts.MaxDTWCells)
	}

	switch mode {
	case AlignDTW:
		if res.DTW.Fallback {
			res.Mode = AlignInterpolate
			res.FallbackReason = res.DTW.Reason
			res.Accuracy = interpolatedAccuracy(center, voicedExpected(c, ref))
		} else {
			res.Accuracy = audio.Score(10 * (1 - (res.DTW.MeanDeviationCents-50)/250))
		}
	case AlignInterpolate:
		res.Accuracy = interpolatedAccuracy(center, voicedExpected(c, ref))
	default:
		res.Accuracy = audio.Score(0.65*res.Stability + 0.25*res.Vibrato + 0.10*intervalScore(center))
	}
	if !opts.Debug {
		res.DTW = nil
	}

	w := opts.Weights
	res.Score = audio.Score(w.Accuracy*res.Accuracy + w.Stability*res.Stability + w.Vibrato*res.Vibrato)
	return res
}

// VibratoScore is 10 for depths within [30, 80] cents, losing a point per
// 5 cents below and per 10 cents above.
func VibratoScore(depth float64) float64 {
	switch {
	case depth < 30:
		return math.Max(0, 10-(30-depth)/5)
	case depth > 80:
		return math.Max(0, 10-(depth-80)/10)
	}
	return 10
}

func vibratoDepth(residual []float64, frameRate float64) float64 {
	filtered, err := vibratoBand(residual, frameRate)
	if err != nil {
		mean := stat.Mean(residual, nil)
		filtered = make([]float64, len(residual))
		for i, r := range residual {
			filtered[i] = r - mean
		}
	}
	return audio.Clip(stat.PopStdDev(filtered, nil)*math.Sqrt2, 0, maxDepthCents)
}

func vibratoBand(residual []float64, frameRate float64) ([]float64, error) {
	if frameRate/2 <= vibratoHigh {
		return nil, dsp.ErrSignalTooShort
	}
	return dsp.ButterBandpass(2, vibratoLow, vibratoHigh, frameRate).FiltFilt(residual)
}

// vibratoRate is the strongest spectral component of the residual between 4
// and 8 Hz.
func vibratoRate(residual []float64, frameRate float64) *float64 {
	n := len(residual)
	if n < minRateSamples {
		return nil
	}
	mean := stat.Mean(residual, nil)
	x := make([]float64, n)
	for i, r := range residual {
		x[i] = r - mean
	}
	coeff := fourier.NewFFT(n).Coefficients(nil, x)
	best, bestMag := -1.0, -1.0
	for k, c := range coeff {
		f := float64(k) * frameRate / float64(n)
		if f < vibratoLow || f > vibratoHigh {
			continue
		}
		if m := math.Hypot(real(c), imag(c)); m > bestMag {
			best, bestMag = f, m
		}
	}
	if best < 0 {
		return nil
	}
	return &best
}

// voicedExpected lays the reference over the whole contour, unvoiced tail
// included, and keeps the values at voiced frames.
func voicedExpected(c *Contour, ref *Reference) []float64 {
	curve := ref.Curve(c.Times)
	out := make([]float64, 0, len(curve))
	for i, v := range c.Voiced {
		if v {
			out = append(out, curve[i])
		}
	}
	return out
}

func interpolatedAccuracy(center, expected []float64) float64 {
	var sum float64
	for i := range center {
		sum += math.Abs(audio.Cents(center[i], expected[i]))
	}
	return audio.Score(10 - sum/float64(len(center))/5)
}

// intervalScore rewards smooth frame-to-frame motion of the center contour.
func intervalScore(center []float64) float64 {
	if len(center) < 2 {
		return audio.Neutral
	}
	var sum float64
	for i := 1; i < len(center); i++ {
		sum += math.Abs(audio.Cents(center[i], center[i-1]))
	}
	return audio.Score(10 - sum/float64(len(center)-1)/5)
}

func alignDebug(center []float64, ref *Reference, maxCells int) *DTWDebug {
	sung := make([]float64, len(center))
	for i, f := range center {
		sung[i] = audio.Cents(f, 440)
	}
	path, costs, err := Align(sung, ref.Cents(), maxCells)
	if err != nil {
		reason := err.Error()
		if !errors.Is(err, ErrAlignmentFailure) {
			reason = ErrAlignmentFailure.Error() + ": " + reason
		}
		return &DTWDebug{Fallback: true, Reason: reason}
	}
	return &DTWDebug{
		MeanDeviationCents: stat.Mean(costs, nil),
		Path:               path,
		Deviations:         costs,
	}
}
