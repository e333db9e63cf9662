package dsp

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
)

const amin = 1e-10

// Centroid is the magnitude-weighted mean frequency per frame. Silent
// frames yield 0.
func Centroid(s *Spectrogram) []float64 {
	out := make([]float64, s.Frames())
	for t, row := range s.Mag {
		total := floats.Sum(row)
		if total <= 0 {
			continue
		}
		var acc float64
		for k, v := range row {
			acc += s.BinFreq(k) * v
		}
		out[t] = acc / total
	}
	return out
}

// Rolloff is the lowest frequency below which pct of the frame's spectral
// magnitude lies.
func Rolloff(s *Spectrogram, pct float64) []float64 {
	out := make([]float64, s.Frames())
	for t, row := range s.Mag {
		total := floats.Sum(row)
		if total <= 0 {
			continue
		}
		thresh := pct * total
		var acc float64
		for k, v := range row {
			acc += v
			if acc >= thresh {
				out[t] = s.BinFreq(k)
				break
			}
		}
	}
	return out
}

// Flatness is the ratio of geometric to arithmetic mean of the power
// spectrum. 1 is noise-like, values near 0 are tonal.
func Flatness(s *Spectrogram) []float64 {
	out := make([]float64, s.Frames())
	for t, row := range s.Mag {
		var logSum, sum float64
		for _, v := range row {
			p := math.Max(v*v, amin)
			logSum += math.Log(p)
			sum += p
		}
		n := float64(len(row))
		out[t] = math.Exp(logSum/n) / (sum / n)
	}
	return out
}

// Contrast computes octave-band spectral contrast in dB, indexed
// [frame][band]. Bands start at fmin and double nBands times; the last band
// runs to Nyquist.
func Contrast(s *Spectrogram, fmin float64, nBands int, quantile float64) [][]float64 {
	edges := make([]float64, nBands+2)
	edges[0] = 0
	for i := 1; i <= nBands+1; i++ {
		edges[i] = fmin * math.Pow(2, float64(i-1))
	}
	nyq := float64(s.SampleRate) / 2

	out := make([][]float64, s.Frames())
	band := make([]float64, 0, s.Bins())
	for t, row := range s.Mag {
		vals := make([]float64, nBands+1)
		for b := 0; b <= nBands; b++ {
			lo, hi := edges[b], edges[b+1]
			if b == nBands {
				hi = nyq + 1
			}
			band = band[:0]
			for k, v := range row {
				f := s.BinFreq(k)
				if f >= lo && f < hi {
					band = append(band, v)
				}
			}
			if len(band) == 0 {
				continue
			}
			sort.Float64s(band)
			idx := int(math.Round(quantile * float64(len(band))))
			if idx < 1 {
				idx = 1
			}
			valley := floats.Sum(band[:idx]) / float64(idx)
			peak := floats.Sum(band[len(band)-idx:]) / float64(idx)
			vals[b] = 10*math.Log10(math.Max(peak, amin)) - 10*math.Log10(math.Max(valley, amin))
		}
		out[t] = vals
	}
	return out
}
