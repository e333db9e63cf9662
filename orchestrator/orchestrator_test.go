package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maastricht-university/vocal-eval/audio"
	"github.com/maastricht-university/vocal-eval/clients"
	cfg "github.com/maastricht-university/vocal-eval/config"
	"github.com/maastricht-university/vocal-eval/metrics"
	"github.com/maastricht-university/vocal-eval/pitch"
	"github.com/maastricht-university/vocal-eval/scoring"
)

// sung is a three-harmonic voice around 220 Hz with 40 cent vibrato at
// 5.5 Hz and a soft attack on each second.
func sung(seconds float64) []float64 {
	x := make([]float64, int(seconds*audio.SampleRate))
	var phase float64
	for i := range x {
		t := float64(i) / audio.SampleRate
		f := 220 * math.Pow(2, 40*math.Sin(2*math.Pi*5.5*t)/1200)
		phase += 2 * math.Pi * f / audio.SampleRate
		env := 0.3 * math.Min(1, math.Mod(t, 1)*10)
		x[i] = env * (math.Sin(phase) + 0.5*math.Sin(2*phase) + 0.25*math.Sin(3*phase))
	}
	return x
}

type fakeDecoder struct {
	pcm []float64
	err error
}

func (f *fakeDecoder) Decode(context.Context, string) ([]float64, error) { return f.pcm, f.err }

type fakeNotes []string

func (f fakeNotes) Notes(context.Context, string) ([]string, error) { return f, nil }

type fakeAdvisor struct {
	err   error
	calls int
}

func (f *fakeAdvisor) Advise(_ context.Context, req clients.AdviceReq) (*scoring.Coaching, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &scoring.Coaching{Assessment: "remote", Source: "advisor"}, nil
}

type fakeRenderer struct{ req clients.RenderReq }

func (f *fakeRenderer) Render(_ context.Context, req clients.RenderReq) ([]string, error) {
	f.req = req
	return []string{"pitch.png"}, nil
}

func newPipeline(t *testing.T, pcm []float64) (*Pipeline, *test.Hook) {
	t.Helper()
	conf, err := cfg.Load("")
	require.NoError(t, err)
	cal, err := cfg.LoadCalibration("")
	require.NoError(t, err)
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	p, err := NewPipeline(conf, cal, logger, metrics.New(logger))
	require.NoError(t, err)
	p.Decoder = &fakeDecoder{pcm: pcm}
	return p, hook
}

func assertScoresBounded(t *testing.T, r *Report) {
	t.Helper()
	for _, v := range []float64{r.PitchScore, r.BreathScore, r.DictionScore, r.TotalScore} {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 10.0)
	}
}

func TestRunProducesReport(t *testing.T) {
	p, _ := newPipeline(t, sung(3))
	rep, err := p.Run(context.Background(), Request{AudioPath: "take.wav", Notes: []string{"A3", "A3"}, Debug: true})
	require.NoError(t, err)

	assertScoresBounded(t, rep)
	assert.NotEmpty(t, rep.AnalysisID)
	assert.NotEmpty(t, rep.PitchFeedback)
	assert.NotEmpty(t, rep.BreathFeedback)
	assert.NotEmpty(t, rep.DictionFeedback)
	assert.Equal(t, []string{"A3", "A3"}, rep.ReferenceNotes)
	assert.Equal(t, pitch.AlignInterpolate, rep.AlignmentMode)
	require.NotNil(t, rep.DTWDebug, "debug with a reference carries the alignment")
	assert.NotEmpty(t, rep.DTWDebug.Path)

	n := audio.FrameCount(3 * audio.SampleRate)
	assert.Len(t, rep.Pitch.Times, n)
	assert.Len(t, rep.Pitch.Hz, n)
	assert.Len(t, rep.Pitch.Expected, n)
	assert.Len(t, rep.Energy.RMS, n)
	assert.Len(t, rep.Spectral.Centroid, n)
	assert.Equal(t, rep.Pitch.Times, rep.Energy.Times)

	require.NotNil(t, rep.Coaching)
	assert.Equal(t, "local", rep.Coaching.Source)
	assert.NotEmpty(t, rep.Coaching.Assessment)
}

func TestRunIsIdempotent(t *testing.T) {
	p, _ := newPipeline(t, sung(2))
	req := Request{Notes: []string{"A3", "C4"}, Alignment: pitch.AlignDTW, Debug: true}
	a, err := p.Run(context.Background(), req)
	require.NoError(t, err)
	b, err := p.Run(context.Background(), req)
	require.NoError(t, err)

	assert.NotEqual(t, a.AnalysisID, b.AnalysisID)
	assert.Equal(t, a.TotalScore, b.TotalScore)
	assert.Equal(t, a.DetailedScores, b.DetailedScores)
	assert.Equal(t, a.DTWDebug, b.DTWDebug)
	assert.Equal(t, a.Series, b.Series)
}

func TestRunDTWFallbackWithoutDebug(t *testing.T) {
	p, hook := newPipeline(t, sung(3))
	p.analyzer.PitchOptions.MaxDTWCells = 1

	rep, err := p.Run(context.Background(), Request{Notes: []string{"A3", "C4"}, Alignment: pitch.AlignDTW})
	require.NoError(t, err)
	assert.Nil(t, rep.DTWDebug)
	assert.Equal(t, 1.0, testutil.ToFloat64(p.metrics.DTWFallbacks))

	var warned bool
	for _, e := range hook.AllEntries() {
		if e.Message == "dtw fallback to interpolation" {
			warned = true
			assert.Equal(t, logrus.WarnLevel, e.Level)
		}
	}
	assert.True(t, warned)
}

func TestRunSilentBufferIsNeutral(t *testing.T) {
	p, hook := newPipeline(t, make([]float64, 2*audio.SampleRate))
	rep, err := p.Run(context.Background(), Request{})
	require.NoError(t, err)

	assert.Equal(t, audio.Neutral, rep.PitchScore)
	assert.Equal(t, audio.Neutral, rep.BreathScore)
	assert.Equal(t, audio.Neutral, rep.DictionScore)
	assert.Nil(t, rep.ReferenceNotes)
	for _, hz := range rep.Pitch.Hz {
		assert.Nil(t, hz)
	}
	assert.NotEmpty(t, rep.Warnings)

	var warned bool
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel && e.Data["category"] == scoring.Pitch {
			warned = true
		}
	}
	assert.True(t, warned)
}

func TestRunShortBuffer(t *testing.T) {
	p, _ := newPipeline(t, make([]float64, 2*audio.HopLength))
	rep, err := p.Run(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, audio.Neutral, rep.PitchScore)
	assert.Contains(t, rep.Warnings, "recording too short for pitch tracking")
}

func TestRunInvalidReference(t *testing.T) {
	p, _ := newPipeline(t, sung(1))
	_, err := p.Run(context.Background(), Request{Notes: []string{"C4", "Z9"}})
	assert.ErrorIs(t, err, pitch.ErrInvalidReference)
}

func TestRunDecodeFailure(t *testing.T) {
	p, _ := newPipeline(t, nil)
	p.Decoder = &fakeDecoder{err: errors.New("no such codec")}
	_, err := p.Run(context.Background(), Request{AudioPath: "x.ogg"})
	assert.ErrorIs(t, err, ErrDecode)

	p.Decoder = &fakeDecoder{}
	_, err = p.Run(context.Background(), Request{AudioPath: "empty.wav"})
	assert.ErrorIs(t, err, ErrDecode)
}

func TestRunSheetMusicAndCollaborators(t *testing.T) {
	p, _ := newPipeline(t, sung(2))
	p.Notes = fakeNotes{"A3", "B3"}
	adv := &fakeAdvisor{}
	p.Advisor = adv
	r := &fakeRenderer{}
	p.Renderer = r

	rep, err := p.Run(context.Background(), Request{SheetPath: "score.png"})
	require.NoError(t, err)
	assert.Equal(t, []string{"A3", "B3"}, rep.ReferenceNotes)
	assert.Equal(t, "remote", rep.Coaching.Assessment)
	assert.Equal(t, []string{"pitch.png"}, rep.Images)
	assert.Equal(t, rep.AnalysisID, r.req.AnalysisID)
	assert.Equal(t, 1, adv.calls)
}

func TestRunSheetWithoutProvider(t *testing.T) {
	p, _ := newPipeline(t, sung(1))
	_, err := p.Run(context.Background(), Request{SheetPath: "score.png"})
	assert.Error(t, err)
}

func TestAdvisorFailureFallsBack(t *testing.T) {
	p, hook := newPipeline(t, sung(2))
	p.Advisor = &fakeAdvisor{err: errors.New("timeout")}
	rep, err := p.Run(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, "local", rep.Coaching.Source)

	var warned bool
	for _, e := range hook.AllEntries() {
		if e.Message == "advisor failed, using local coaching" {
			warned = true
		}
	}
	assert.True(t, warned)
}

func TestGuardRecoversPanic(t *testing.T) {
	err := guard("pitch", func() error { panic("index out of range") })()
	assert.ErrorIs(t, err, ErrInternal)
	assert.NoError(t, guard("pitch", func() error { return nil })())
}

func TestAnalyzeInternalErrorIsOpaque(t *testing.T) {
	p, _ := newPipeline(t, sung(1))
	p.analyzer.Mapper = nil
	p.analyzer.Tracker = nil
	_, err := p.Run(context.Background(), Request{})
	assert.Equal(t, ErrInternal, err)
}

func TestPersist(t *testing.T) {
	p, _ := newPipeline(t, sung(1))
	rep, err := p.Run(context.Background(), Request{})
	require.NoError(t, err)

	path, err := p.Persist(rep, "")
	require.NoError(t, err)
	assert.Empty(t, path, "no outputs directory configured")

	out := filepath.Join(t.TempDir(), "nested", "report.json")
	path, err = p.Persist(rep, out)
	require.NoError(t, err)
	assert.Equal(t, out, path)

	body, err := os.ReadFile(out)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(body, &decoded))
	for _, key := range []string{"pitch_score", "total_score", "detailed_scores", "pitch_series", "energy_series", "spectral_series", "reference_notes"} {
		assert.Contains(t, decoded, key)
	}

	p.cfg.Paths.Outputs = t.TempDir()
	path, err = p.Persist(rep, "")
	require.NoError(t, err)
	assert.FileExists(t, path)
}
