package orchestrator

import (
	"math"
	"time"

	"github.com/maastricht-university/vocal-eval/audio"
	"github.com/maastricht-university/vocal-eval/pitch"
	"github.com/maastricht-university/vocal-eval/scoring"
)

// BuildReport turns a core result into the outward record. Scores are
// rounded to one decimal.
func BuildReport(id string, sig *audio.Signal, ref *pitch.Reference, res *Result) *Report {
	r := &Report{
		AnalysisID:  id,
		GeneratedAt: time.Now().UTC(),
		Duration:    sig.Duration(),

		PitchScore:   audio.Round1(res.Pitch.Score),
		BreathScore:  audio.Round1(res.Breath.Score),
		DictionScore: audio.Round1(res.Diction.Score),
		TotalScore:   audio.Round1(res.Total),

		PitchFeedback:   res.Feedback[scoring.Pitch],
		BreathFeedback:  res.Feedback[scoring.Breath],
		DictionFeedback: res.Feedback[scoring.Diction],

		DetailedScores: detailed(res),
		AlignmentMode:  res.Pitch.Mode,
		Vibrato:        Vibrato{DepthCents: res.Pitch.VibratoDepth, RateHz: res.Pitch.VibratoRate},
		DTWDebug:       res.Pitch.DTW,
		Series:         series(sig.SampleRate, ref, res),
	}
	if ref != nil {
		r.ReferenceNotes = ref.Notes
	}
	if res.Insufficient {
		r.Warnings = append(r.Warnings, "recording too short for pitch tracking")
	}
	if res.Pitch.Neutral {
		r.Warnings = append(r.Warnings, "too few voiced frames: pitch scored neutral")
	}
	if res.Breath.Neutral {
		r.Warnings = append(r.Warnings, "no energy in recording: breath scored neutral")
	}
	if res.Diction.Neutral {
		r.Warnings = append(r.Warnings, "silent recording: diction scored neutral")
	}
	if res.Pitch.DTW != nil && res.Pitch.DTW.Fallback {
		r.Warnings = append(r.Warnings, "dtw alignment failed, accuracy from interpolation")
	}
	return r
}

func detailed(res *Result) DetailedScores {
	p, b, d := res.Pitch, res.Breath, res.Diction
	return DetailedScores{
		Pitch: PitchDetail{
			Accuracy:  audio.Round1(p.Accuracy),
			Stability: audio.Round1(p.Stability),
			Vibrato:   audio.Round1(p.Vibrato),
		},
		Breath: BreathDetail{
			EnergyConsistency: audio.Round1(b.Consistency),
			DropoutControl:    audio.Round1(b.Dropout),
			PhraseLength:      audio.Round1(b.Phrase),
			Timing:            audio.Round1(b.Timing),
		},
		Diction: DictionDetail{
			Brightness:       audio.Round1(d.Brightness),
			HighFrequency:    audio.Round1(d.Rolloff),
			ConsonantClarity: audio.Round1(d.Onset),
			ZCRBalance:       audio.Round1(d.ZCR),
			Articulation:     audio.Round1(d.Articulation),
			SpectralContrast: audio.Round1(d.Contrast),
			FormantClarity:   audio.Round1(d.Formant),
			VoiceQuality:     audio.Round1(d.HNR),
			PlosiveDetection: audio.Round1(d.Plosive),
		},
	}
}

// series lays every per-frame track on the shared hop grid.
func series(sr int, ref *pitch.Reference, res *Result) Series {
	var s Series
	if c := res.Contour; c != nil && c.Len() > 0 {
		s.Pitch.Times = c.Times
		s.Pitch.Hz = make([]*float64, c.Len())
		for i, f := range c.Hz {
			if c.Voiced[i] && !math.IsNaN(f) {
				v := f
				s.Pitch.Hz[i] = &v
			}
		}
		if ref.Usable() {
			s.Pitch.Expected = ref.Curve(c.Times)
		}
	}

	s.Energy = EnergySeries{
		Times:     audio.FrameTimes(len(res.RMS), sr),
		RMS:       res.RMS,
		Threshold: res.Breath.DropoutThreshold,
		Peaks:     frameTimes(res.Breath.Peaks, sr),
	}
	s.Spectral = SpectralSeries{
		Times:    audio.FrameTimes(len(res.Diction.Centroid), sr),
		Centroid: res.Diction.Centroid,
		Rolloff:  res.Diction.RolloffHz,
		Onsets:   frameTimes(res.Diction.Onsets, sr),
	}
	return s
}

func frameTimes(idx []int, sr int) []float64 {
	out := make([]float64, len(idx))
	for i, f := range idx {
		out[i] = audio.FrameTime(f, sr)
	}
	return out
}

// scoreMap is the flat score view sent to collaborators.
func (r *Report) scoreMap() map[string]float64 {
	return map[string]float64{
		scoring.Pitch:   r.PitchScore,
		scoring.Breath:  r.BreathScore,
		scoring.Diction: r.DictionScore,
		"total":         r.TotalScore,
	}
}

func (r *Report) feedbackMap() map[string]string {
	return map[string]string{
		scoring.Pitch:   r.PitchFeedback,
		scoring.Breath:  r.BreathFeedback,
		scoring.Diction: r.DictionFeedback,
	}
}
