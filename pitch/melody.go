package pitch

import (
	"github.com/maastricht-university/vocal-eval/audio"
)

// Reference is a validated reference melody.
type Reference struct {
	Notes []string
	Hz    []float64
}

// NewReference validates every note name. A nil or empty list yields a nil
// Reference and no error.
func NewReference(notes []string) (*Reference, error) {
	if len(notes) == 0 {
		return nil, nil
	}
	ref := &Reference{Notes: append([]string(nil), notes...), Hz: make([]float64, len(notes))}
	for i, n := range notes {
		hz, err := NoteFrequency(n)
		if err != nil {
			return nil, err
		}
		ref.Hz[i] = hz
	}
	return ref, nil
}

// Usable reports whether the reference can be mapped onto a time axis.
func (r *Reference) Usable() bool { return r != nil && len(r.Hz) >= 2 }

// Curve returns one expected frequency per entry of times. Breakpoints are
// spread evenly over [0, last time] so each note owns an equal slice; the
// curve is linear between them. times must be the full frame axis, unvoiced
// frames included. A single note yields a constant curve.
func (r *Reference) Curve(times []float64) []float64 {
	if r == nil || len(r.Hz) == 0 || len(times) == 0 {
		return nil
	}
	bp := audio.Linspace(0, times[len(times)-1], len(r.Hz))
	return audio.Interp(times, bp, r.Hz)
}

// Cents returns the note frequencies in cents relative to A4.
func (r *Reference) Cents() []float64 {
	out := make([]float64, len(r.Hz))
	for i, hz := range r.Hz {
		out[i] = audio.Cents(hz, 440)
	}
	return out
}
