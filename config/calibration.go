package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/maastricht-university/vocal-eval/scoring"
)

//go:embed calibration.yaml
var defaultCalibration []byte

// Calibration holds the regression table, feedback bands and exercise
// catalogue. It is read-only once loaded.
type Calibration struct {
	Rows      []scoring.Row             `yaml:"calibration"`
	Feedback  map[string][]scoring.Band `yaml:"feedback"`
	Exercises map[string][]string       `yaml:"exercises"`
}

// LoadCalibration decodes path, or the embedded table when path is empty.
func LoadCalibration(path string) (*Calibration, error) {
	data := defaultCalibration
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		data = b
	}
	var cal Calibration
	if err := yaml.Unmarshal(data, &cal); err != nil {
		return nil, fmt.Errorf("decode calibration: %w", err)
	}
	if err := cal.Validate(); err != nil {
		return nil, err
	}
	return &cal, nil
}

// Validate requires enough rows and contiguous bands for every scored
// category.
func (c *Calibration) Validate() error {
	if len(c.Rows) < scoring.MinCalibrationRows {
		return fmt.Errorf("%w: %d calibration rows, need %d", ErrInvalid, len(c.Rows), scoring.MinCalibrationRows)
	}
	for _, cat := range []string{scoring.Pitch, scoring.Breath, scoring.Diction, scoring.Overall} {
		if err := scoring.ValidateBands(c.Feedback[cat]); err != nil {
			return fmt.Errorf("%w: feedback.%s: %v", ErrInvalid, cat, err)
		}
	}
	return nil
}

// Scoring builds the aggregator, feedback mapper and local coach. Fixed
// coefficients, when given, replace the fit.
func (c *Calibration) Scoring(coef *scoring.Coefficients) (*scoring.Aggregator, *scoring.Mapper, *scoring.Coach, error) {
	agg, err := scoring.NewAggregator(c.Rows, coef)
	if err != nil {
		return nil, nil, nil, err
	}
	m, err := scoring.NewMapper(c.Feedback)
	if err != nil {
		return nil, nil, nil, err
	}
	return agg, m, scoring.NewCoach(m, c.Exercises), nil
}
