package orchestrator

import (
	"errors"
	"fmt"
	"runtime/debug"

	"golang.org/x/sync/errgroup"

	"github.com/maastricht-university/vocal-eval/audio"
	"github.com/maastricht-university/vocal-eval/breath"
	"github.com/maastricht-university/vocal-eval/diction"
	"github.com/maastricht-university/vocal-eval/dsp"
	"github.com/maastricht-university/vocal-eval/metrics"
	"github.com/maastricht-university/vocal-eval/pitch"
	"github.com/maastricht-university/vocal-eval/scoring"
)

var (
	// ErrInternal hides unexpected faults inside an analyzer.
	ErrInternal = errors.New("internal analysis error")
	// ErrDecode marks recordings the decoder could not turn into PCM.
	ErrDecode = errors.New("audio decode failed")
)

// Analyzer runs the scoring core. Its fields are read-only after
// construction, so one Analyzer serves concurrent runs.
type Analyzer struct {
	Tracker      *pitch.Tracker
	Aggregator   *scoring.Aggregator
	Mapper       *scoring.Mapper
	PitchOptions pitch.Options
	Metrics      *metrics.Metrics
}

// Result is everything the core computes for one recording.
type Result struct {
	Contour *pitch.Contour
	Pitch   *pitch.Result
	Breath  *breath.Result
	Diction *diction.Result
	RMS     []float64

	Total    float64
	Feedback map[string]string
	// Insufficient is set when the tracker had too few frames to work with.
	Insufficient bool
}

// Scores returns the three category scores keyed by category.
func (r *Result) Scores() map[string]float64 {
	return map[string]float64{
		scoring.Pitch:   r.Pitch.Score,
		scoring.Breath:  r.Breath.Score,
		scoring.Diction: r.Diction.Score,
	}
}

// Analyze scores sig against ref, which may be nil. Pitch, breath and
// diction run concurrently on the shared read-only buffer.
func (a *Analyzer) Analyze(sig *audio.Signal, ref *pitch.Reference, alignment string, dbg bool) (*Result, error) {
	opts := a.PitchOptions
	opts.Debug = dbg
	if alignment != "" {
		opts.Alignment = alignment
	}

	res := &Result{}
	var g errgroup.Group
	g.Go(guard("pitch", func() error {
		defer a.Metrics.ObserveStage("pitch")()
		c, err := a.Tracker.Track(sig)
		if err != nil && !errors.Is(err, audio.ErrInsufficientSignal) {
			return err
		}
		res.Insufficient = err != nil
		res.Contour = c
		res.Pitch = pitch.Score(c, ref, sig.SampleRate, opts)
		return nil
	}))
	g.Go(guard("breath", func() error {
		defer a.Metrics.ObserveStage("breath")()
		res.RMS = dsp.RMS(sig.Samples)
		res.Breath = breath.Analyze(res.RMS, sig.SampleRate)
		return nil
	}))
	g.Go(guard("diction", func() error {
		defer a.Metrics.ObserveStage("diction")()
		res.Diction = diction.Analyze(sig)
		return nil
	}))
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res.Total = a.Aggregator.Total(res.Pitch.Score, res.Breath.Score, res.Diction.Score)
	res.Feedback = make(map[string]string, 3)
	for cat, s := range res.Scores() {
		res.Feedback[cat] = a.Mapper.Feedback(cat, s)
	}
	return res, nil
}

// guard turns a panic in fn into ErrInternal.
func guard(stage string, fn func() error) func() error {
	return func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("%w: %s: %v\n%s", ErrInternal, stage, r, debug.Stack())
			}
		}()
		return fn()
	}
}
