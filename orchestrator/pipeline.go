package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/maastricht-university/vocal-eval/audio"
	"github.com/maastricht-university/vocal-eval/clients"
	cfg "github.com/maastricht-university/vocal-eval/config"
	"github.com/maastricht-university/vocal-eval/metrics"
	"github.com/maastricht-university/vocal-eval/pitch"
	"github.com/maastricht-university/vocal-eval/scoring"
)

// Decoder turns an audio file into mono PCM at audio.SampleRate.
type Decoder interface {
	Decode(ctx context.Context, path string) ([]float64, error)
}

// NoteProvider reads reference notes from a sheet-music image.
type NoteProvider interface {
	Notes(ctx context.Context, sheetPath string) ([]string, error)
}

// Advisor produces coaching text from the scores.
type Advisor interface {
	Advise(ctx context.Context, req clients.AdviceReq) (*scoring.Coaching, error)
}

// Renderer turns numeric series into images.
type Renderer interface {
	Render(ctx context.Context, req clients.RenderReq) ([]string, error)
}

type Pipeline struct {
	cfg      *cfg.Root
	analyzer *Analyzer
	coach    *scoring.Coach
	log      *logrus.Logger
	metrics  *metrics.Metrics

	Decoder  Decoder
	Notes    NoteProvider
	Advisor  Advisor
	Renderer Renderer
}

// NewPipeline wires the core from config and calibration and points the
// collaborators at the configured services. Empty service URLs leave the
// collaborator disabled.
func NewPipeline(c *cfg.Root, cal *cfg.Calibration, log *logrus.Logger, m *metrics.Metrics) (*Pipeline, error) {
	tracker, err := pitch.NewTrackerForNotes(c.Analysis.FminNote, c.Analysis.FmaxNote)
	if err != nil {
		return nil, err
	}
	agg, mapper, coach, err := cal.Scoring(c.Scoring.Coefficients)
	if err != nil {
		return nil, err
	}

	if log == nil {
		log = logrus.New()
	}
	p := &Pipeline{
		cfg: c,
		analyzer: &Analyzer{
			Tracker:    tracker,
			Aggregator: agg,
			Mapper:     mapper,
			PitchOptions: pitch.Options{
				Alignment:   c.Analysis.Alignment,
				Weights:     c.Analysis.PitchWeights,
				MaxDTWCells: c.Analysis.MaxDTWCells,
			},
			Metrics: m,
		},
		coach:   coach,
		log:     log,
		metrics: m,
	}

	h := clients.NewHTTP(cfg.DurSeconds(c.Services.Timeout))
	if c.Audio.Decoder == "service" {
		p.Decoder = h.Endpoint(c.Services.Transcoder.URL)
	} else {
		p.Decoder = &clients.FFmpeg{Bin: c.Audio.FFmpegBin, MaxSeconds: c.Audio.MaxSeconds}
	}
	if e := h.Endpoint(c.Services.SheetMusic.URL); e != nil {
		p.Notes = e
	}
	if e := h.Endpoint(c.Services.Advisor.URL); e != nil {
		p.Advisor = e
	}
	if e := h.Endpoint(c.Services.Renderer.URL); e != nil {
		p.Renderer = e
	}
	return p, nil
}

// Analyzer exposes the scoring core.
func (p *Pipeline) Analyzer() *Analyzer { return p.analyzer }

func (p *Pipeline) Run(ctx context.Context, req Request) (*Report, error) {
	id := uuid.NewString()
	log := p.log.WithFields(logrus.Fields{"analysis_id": id, "audio": req.AudioPath})
	defer p.metrics.ObserveStage("total")()

	rep, outcome, err := p.run(ctx, log, id, req)
	p.metrics.RecordAnalysis(outcome)
	if err != nil {
		log.WithError(err).WithField("outcome", outcome).Error("analysis failed")
		if errors.Is(err, ErrInternal) {
			return nil, ErrInternal
		}
		return nil, err
	}
	log.WithFields(logrus.Fields{
		"total":   rep.TotalScore,
		"pitch":   rep.PitchScore,
		"breath":  rep.BreathScore,
		"diction": rep.DictionScore,
	}).Info("analysis complete")
	return rep, nil
}

func (p *Pipeline) run(ctx context.Context, log *logrus.Entry, id string, req Request) (*Report, string, error) {
	notes := req.Notes
	if len(notes) == 0 && req.SheetPath != "" {
		if p.Notes == nil {
			return nil, "invalid_request", fmt.Errorf("sheet music given but services.sheet_music.url is not set")
		}
		var err error
		if notes, err = p.Notes.Notes(ctx, req.SheetPath); err != nil {
			p.metrics.RecordCollaboratorError("sheet_music")
			return nil, "sheet_music_error", fmt.Errorf("sheet music: %w", err)
		}
		log.WithField("notes", len(notes)).Debug("reference read from sheet music")
	}
	ref, err := pitch.NewReference(notes)
	if err != nil {
		return nil, "invalid_reference", err
	}
	if ref != nil && !ref.Usable() {
		log.Warn("single reference note: accuracy scored without reference")
	}

	stop := p.metrics.ObserveStage("decode")
	pcm, err := p.Decoder.Decode(ctx, req.AudioPath)
	stop()
	if err != nil {
		return nil, "decode_error", fmt.Errorf("%w: %v", ErrDecode, err)
	}
	sig, err := audio.NewSignal(pcm, audio.SampleRate)
	if err != nil || len(pcm) == 0 {
		return nil, "decode_error", fmt.Errorf("%w: empty or invalid pcm", ErrDecode)
	}
	if err := ctx.Err(); err != nil {
		return nil, "canceled", err
	}

	res, err := p.analyzer.Analyze(sig, ref, req.Alignment, req.Debug)
	if err != nil {
		return nil, "internal_error", err
	}
	rep := BuildReport(id, sig, ref, res)
	rep.AudioPath = req.AudioPath
	p.recordDegraded(log, res)

	rep.Coaching = p.advise(ctx, log, rep, res)
	if p.Renderer != nil {
		images, err := p.Renderer.Render(ctx, clients.RenderReq{
			AnalysisID: id,
			Scores:     rep.scoreMap(),
			Series:     rep.Series,
			OutputDir:  p.cfg.Paths.Outputs,
		})
		if err != nil {
			p.metrics.RecordCollaboratorError("renderer")
			log.WithError(err).Warn("rendering failed")
		} else {
			rep.Images = images
		}
	}
	return rep, "ok", nil
}

func (p *Pipeline) recordDegraded(log *logrus.Entry, res *Result) {
	for cat, neutral := range map[string]bool{
		scoring.Pitch:   res.Pitch.Neutral,
		scoring.Breath:  res.Breath.Neutral,
		scoring.Diction: res.Diction.Neutral,
	} {
		if neutral {
			p.metrics.RecordNeutral(cat)
			log.WithField("category", cat).Warn("insufficient signal, neutral scores")
		}
	}
	if reason := res.Pitch.FallbackReason; reason != "" {
		p.metrics.RecordDTWFallback()
		log.WithField("reason", reason).Warn("dtw fallback to interpolation")
	}
}

// advise asks the advisor and falls back to local coaching on any failure.
func (p *Pipeline) advise(ctx context.Context, log *logrus.Entry, rep *Report, res *Result) *scoring.Coaching {
	if p.Advisor != nil {
		c, err := p.Advisor.Advise(ctx, clients.AdviceReq{
			AnalysisID:     rep.AnalysisID,
			Scores:         rep.scoreMap(),
			Feedback:       rep.feedbackMap(),
			DetailedScores: rep.DetailedScores,
			ReferenceNotes: rep.ReferenceNotes,
		})
		if err == nil && c != nil {
			return c
		}
		p.metrics.RecordCollaboratorError("advisor")
		log.WithError(err).Warn("advisor failed, using local coaching")
	}
	return p.coach.Advise(res.Total, res.Scores())
}
