// Package scoring blends category scores into a total and maps scores to
// feedback text.
package scoring

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/maastricht-university/vocal-eval/audio"
)

// MinCalibrationRows is the smallest table that determines the regression.
const MinCalibrationRows = 4

// ErrCalibration is returned for unusable calibration tables.
var ErrCalibration = errors.New("invalid calibration")

// Row is one calibration example.
type Row struct {
	Pitch   float64 `yaml:"pitch" json:"pitch"`
	Breath  float64 `yaml:"breath" json:"breath"`
	Diction float64 `yaml:"diction" json:"diction"`
	Target  float64 `yaml:"target" json:"target"`
}

// Coefficients of the linear blend.
type Coefficients struct {
	Intercept float64 `yaml:"intercept" mapstructure:"intercept" json:"intercept"`
	Pitch     float64 `yaml:"pitch" mapstructure:"pitch" json:"pitch"`
	Breath    float64 `yaml:"breath" mapstructure:"breath" json:"breath"`
	Diction   float64 `yaml:"diction" mapstructure:"diction" json:"diction"`
}

// Predict applies the coefficients without clipping.
func (c Coefficients) Predict(pitch, breath, diction float64) float64 {
	return c.Intercept + c.Pitch*pitch + c.Breath*breath + c.Diction*diction
}

// Fit solves the least squares regression of Target on the three scores.
func Fit(rows []Row) (Coefficients, error) {
	if len(rows) < MinCalibrationRows {
		return Coefficients{}, fmt.Errorf("%w: %d rows, need %d", ErrCalibration, len(rows), MinCalibrationRows)
	}
	x := mat.NewDense(len(rows), 4, nil)
	y := mat.NewVecDense(len(rows), nil)
	for i, r := range rows {
		x.SetRow(i, []float64{1, r.Pitch, r.Breath, r.Diction})
		y.SetVec(i, r.Target)
	}
	var beta mat.VecDense
	if err := beta.SolveVec(x, y); err != nil {
		return Coefficients{}, fmt.Errorf("%w: %v", ErrCalibration, err)
	}
	return Coefficients{
		Intercept: beta.AtVec(0),
		Pitch:     beta.AtVec(1),
		Breath:    beta.AtVec(2),
		Diction:   beta.AtVec(3),
	}, nil
}

// Aggregator turns category scores into a total. It is read-only after
// construction and safe for concurrent use.
type Aggregator struct {
	coef Coefficients
}

// NewAggregator fits rows, or uses override verbatim when it is non-nil.
func NewAggregator(rows []Row, override *Coefficients) (*Aggregator, error) {
	if override != nil {
		return &Aggregator{coef: *override}, nil
	}
	c, err := Fit(rows)
	if err != nil {
		return nil, err
	}
	return &Aggregator{coef: c}, nil
}

// Coefficients returns the blend in use.
func (a *Aggregator) Coefficients() Coefficients { return a.coef }

// Total is the clipped prediction.
func (a *Aggregator) Total(pitch, breath, diction float64) float64 {
	return audio.Score(a.coef.Predict(pitch, breath, diction))
}

// Residuals returns target minus raw prediction for each row.
func (a *Aggregator) Residuals(rows []Row) []float64 {
	out := make([]float64, len(rows))
	for i, r := range rows {
		out[i] = r.Target - a.coef.Predict(r.Pitch, r.Breath, r.Diction)
	}
	return out
}
