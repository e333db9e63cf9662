package orchestrator

import (
	"time"

	"github.com/maastricht-university/vocal-eval/pitch"
	"github.com/maastricht-university/vocal-eval/scoring"
)

// Request is one analysis job.
type Request struct {
	AudioPath string
	Notes     []string // reference note names; wins over SheetPath
	SheetPath string   // sheet-music image for the note provider
	Alignment string   // overrides analysis.alignment when set
	Debug     bool
}

type PitchDetail struct {
	Accuracy  float64 `json:"accuracy"`
	Stability float64 `json:"stability"`
	Vibrato   float64 `json:"vibrato"`
}

type BreathDetail struct {
	EnergyConsistency float64 `json:"energy_consistency"`
	DropoutControl    float64 `json:"dropout_control"`
	PhraseLength      float64 `json:"phrase_length"`
	Timing            float64 `json:"timing"`
}

type DictionDetail struct {
	Brightness       float64 `json:"brightness"`
	HighFrequency    float64 `json:"high_frequency"`
	ConsonantClarity float64 `json:"consonant_clarity"`
	ZCRBalance       float64 `json:"zcr_balance"`
	Articulation     float64 `json:"articulation"`
	SpectralContrast float64 `json:"spectral_contrast"`
	FormantClarity   float64 `json:"formant_clarity"`
	VoiceQuality     float64 `json:"voice_quality"`
	PlosiveDetection float64 `json:"plosive_detection"`
}

type DetailedScores struct {
	Pitch   PitchDetail   `json:"pitch"`
	Breath  BreathDetail  `json:"breath"`
	Diction DictionDetail `json:"diction"`
}

// PitchSeries has one entry per frame; Hz is null where unvoiced.
type PitchSeries struct {
	Times    []float64  `json:"times"`
	Hz       []*float64 `json:"hz"`
	Expected []float64  `json:"expected_hz,omitempty"`
}

type EnergySeries struct {
	Times     []float64 `json:"times"`
	RMS       []float64 `json:"rms"`
	Threshold float64   `json:"dropout_threshold"`
	Peaks     []float64 `json:"peak_times"`
}

type SpectralSeries struct {
	Times    []float64 `json:"times"`
	Centroid []float64 `json:"centroid"`
	Rolloff  []float64 `json:"rolloff"`
	Onsets   []float64 `json:"onset_times"`
}

type Series struct {
	Pitch    PitchSeries    `json:"pitch_series"`
	Energy   EnergySeries   `json:"energy_series"`
	Spectral SpectralSeries `json:"spectral_series"`
}

type Vibrato struct {
	DepthCents *float64 `json:"depth_cents"`
	RateHz     *float64 `json:"rate_hz"`
}

// Report is the outward record of one analysis.
type Report struct {
	AnalysisID  string    `json:"analysis_id"`
	AudioPath   string    `json:"audio_path,omitempty"`
	GeneratedAt time.Time `json:"generated_at"`
	Duration    float64   `json:"duration_seconds"`

	PitchScore   float64 `json:"pitch_score"`
	BreathScore  float64 `json:"breath_score"`
	DictionScore float64 `json:"diction_score"`
	TotalScore   float64 `json:"total_score"`

	PitchFeedback   string `json:"pitch_feedback"`
	BreathFeedback  string `json:"breath_feedback"`
	DictionFeedback string `json:"diction_feedback"`

	DetailedScores DetailedScores  `json:"detailed_scores"`
	ReferenceNotes []string        `json:"reference_notes"`
	AlignmentMode  string          `json:"alignment_mode"`
	Vibrato        Vibrato         `json:"vibrato"`
	DTWDebug       *pitch.DTWDebug `json:"dtw_debug,omitempty"`

	Series
	Coaching *scoring.Coaching `json:"coaching,omitempty"`
	Images   []string          `json:"images,omitempty"`
	Warnings []string          `json:"warnings,omitempty"`
}
