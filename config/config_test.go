package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maastricht-university/vocal-eval/pitch"
	"github.com/maastricht-university/vocal-eval/scoring"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 22050, cfg.Audio.SampleRate)
	assert.Equal(t, pitch.AlignInterpolate, cfg.Analysis.Alignment)
	assert.Equal(t, pitch.DefaultWeights, cfg.Analysis.PitchWeights)
	assert.Equal(t, "C2", cfg.Analysis.FminNote)
	assert.Nil(t, cfg.Scoring.Coefficients)
	assert.Equal(t, 60, cfg.Services.Timeout)
}

func TestLoadFileAndEnv(t *testing.T) {
	p := writeFile(t, "config.yaml", `
pipeline:
  log_level: debug
analysis:
  alignment: dtw
  pitch_weights: {accuracy: 0.4, stability: 0.3, vibrato: 0.3}
scoring:
  coefficients: {intercept: 0, pitch: 0.5, breath: 0.3, diction: 0.2}
services:
  advisor:
    url: http://advisor:8000
`)
	t.Setenv("VOCAL_PATHS_OUTPUTS", "/tmp/out")

	cfg, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Pipeline.LogLvl)
	assert.Equal(t, pitch.AlignDTW, cfg.Analysis.Alignment)
	assert.Equal(t, pitch.Weights{Accuracy: 0.4, Stability: 0.3, Vibrato: 0.3}, cfg.Analysis.PitchWeights)
	require.NotNil(t, cfg.Scoring.Coefficients)
	assert.Equal(t, 0.5, cfg.Scoring.Coefficients.Pitch)
	assert.Equal(t, "http://advisor:8000", cfg.Services.Advisor.URL)
	assert.Equal(t, "/tmp/out", cfg.Paths.Outputs)
}

func TestLoadRejectsInvalid(t *testing.T) {
	for name, body := range map[string]string{
		"sample rate": "audio: {sample_rate: 44100}",
		"alignment":   "analysis: {alignment: nearest}",
		"weights":     "analysis: {pitch_weights: {accuracy: 0.9, stability: 0.2, vibrato: 0.1}}",
		"note":        "analysis: {fmin_note: X2}",
		"decoder":     "audio: {decoder: service}",
	} {
		_, err := Load(writeFile(t, "config.yaml", body))
		assert.ErrorIs(t, err, ErrInvalid, name)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestEmbeddedCalibration(t *testing.T) {
	cal, err := LoadCalibration("")
	require.NoError(t, err)
	assert.Len(t, cal.Rows, 22)
	for _, cat := range []string{scoring.Pitch, scoring.Breath, scoring.Diction, scoring.Overall} {
		assert.Len(t, cal.Feedback[cat], 4, cat)
	}

	agg, m, coach, err := cal.Scoring(nil)
	require.NoError(t, err)
	assert.InDelta(t, 0.4, agg.Coefficients().Pitch, 1e-4)
	assert.Contains(t, m.Feedback(scoring.Pitch, 10), "Accurate")
	c := coach.Advise(3, map[string]float64{scoring.Breath: 2})
	assert.NotEmpty(t, c.Exercises[scoring.Breath])
}

func TestCalibrationFileValidation(t *testing.T) {
	p := writeFile(t, "cal.yaml", `
calibration:
  - {pitch: 1, breath: 1, diction: 1, target: 1}
feedback: {}
`)
	_, err := LoadCalibration(p)
	assert.ErrorIs(t, err, ErrInvalid)

	p = writeFile(t, "cal.yaml", `
calibration:
  - {pitch: 0, breath: 0, diction: 0, target: 0}
  - {pitch: 10, breath: 0, diction: 0, target: 4}
  - {pitch: 0, breath: 10, diction: 0, target: 4}
  - {pitch: 0, breath: 0, diction: 10, target: 2}
feedback:
  pitch: [{low: 0, high: 10, text: p}]
  breath: [{low: 0, high: 10, text: b}]
  diction: [{low: 0, high: 5, text: d}]
  overall: [{low: 0, high: 10, text: o}]
`)
	_, err = LoadCalibration(p)
	assert.ErrorIs(t, err, ErrInvalid)
}
