package scoring

import (
	"fmt"
	"math"
	"sort"
)

// Category names.
const (
	Pitch   = "pitch"
	Breath  = "breath"
	Diction = "diction"
	Overall = "overall"
)

// Band is a half-open score range [Low, High) with its advice. The band
// ending at 10 also includes 10.
type Band struct {
	Low  float64 `yaml:"low" json:"low"`
	High float64 `yaml:"high" json:"high"`
	Text string  `yaml:"text" json:"text"`
}

func (b Band) contains(s float64) bool {
	return b.Low <= s && (s < b.High || s == 10 && b.High == 10)
}

// Mapper selects feedback bands per category.
type Mapper struct {
	bands map[string][]Band
}

// NewMapper checks that every category's bands are ordered and cover
// [0, 10] without gaps or overlaps.
func NewMapper(bands map[string][]Band) (*Mapper, error) {
	m := &Mapper{bands: make(map[string][]Band, len(bands))}
	for cat, bs := range bands {
		if err := ValidateBands(bs); err != nil {
			return nil, fmt.Errorf("%s: %w", cat, err)
		}
		m.bands[cat] = append([]Band(nil), bs...)
	}
	return m, nil
}

// ValidateBands reports whether bs tile [0, 10] in order.
func ValidateBands(bs []Band) error {
	if len(bs) == 0 {
		return fmt.Errorf("%w: no bands", ErrCalibration)
	}
	if bs[0].Low != 0 {
		return fmt.Errorf("%w: first band starts at %v", ErrCalibration, bs[0].Low)
	}
	for i, b := range bs {
		if b.High <= b.Low {
			return fmt.Errorf("%w: empty band [%v, %v)", ErrCalibration, b.Low, b.High)
		}
		if i > 0 && b.Low != bs[i-1].High {
			return fmt.Errorf("%w: gap or overlap at %v", ErrCalibration, b.Low)
		}
	}
	if last := bs[len(bs)-1].High; last != 10 {
		return fmt.Errorf("%w: last band ends at %v", ErrCalibration, last)
	}
	return nil
}

// Categories lists the configured categories in name order.
func (m *Mapper) Categories() []string {
	out := make([]string, 0, len(m.bands))
	for c := range m.bands {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Band returns the band containing score. Scores outside [0, 10] are
// clamped first.
func (m *Mapper) Band(category string, score float64) (Band, bool) {
	s := math.Min(math.Max(score, 0), 10)
	for _, b := range m.bands[category] {
		if b.contains(s) {
			return b, true
		}
	}
	return Band{}, false
}

// Feedback returns the advice for score, or "" for an unknown category.
func (m *Mapper) Feedback(category string, score float64) string {
	b, _ := m.Band(category, score)
	return b.Text
}
