package dsp

import "sort"

// HPSS separates a magnitude spectrogram into harmonic and percussive parts
// with median filtering (kernel across time for harmonic, across frequency
// for percussive) and soft Wiener masks. Both results are indexed like
// s.Mag.
func HPSS(s *Spectrogram, kernel int) (harmonic, percussive [][]float64) {
	frames, bins := s.Frames(), s.Bins()
	h := make([][]float64, frames)
	p := make([][]float64, frames)
	for t := range h {
		h[t] = make([]float64, bins)
		p[t] = make([]float64, bins)
	}

	buf := make([]float64, kernel)
	line := make([]float64, frames)
	for k := 0; k < bins; k++ {
		for t := 0; t < frames; t++ {
			line[t] = s.Mag[t][k]
		}
		for t := 0; t < frames; t++ {
			h[t][k] = windowMedian(line, t, buf)
		}
	}
	for t := 0; t < frames; t++ {
		for k := 0; k < bins; k++ {
			p[t][k] = windowMedian(s.Mag[t], k, buf)
		}
	}

	harmonic = make([][]float64, frames)
	percussive = make([][]float64, frames)
	for t := 0; t < frames; t++ {
		harmonic[t] = make([]float64, bins)
		percussive[t] = make([]float64, bins)
		for k := 0; k < bins; k++ {
			hh, pp := h[t][k]*h[t][k], p[t][k]*p[t][k]
			total := hh + pp
			if total <= 0 {
				continue
			}
			harmonic[t][k] = s.Mag[t][k] * hh / total
			percussive[t][k] = s.Mag[t][k] * pp / total
		}
	}
	return harmonic, percussive
}

// windowMedian is the median of x over a window of len(buf) centered at i,
// reflecting at the edges.
func windowMedian(x []float64, i int, buf []float64) float64 {
	half := len(buf) / 2
	n := len(x)
	for j := range buf {
		idx := i - half + j
		for idx < 0 || idx >= n {
			if idx < 0 {
				idx = -idx - 1
			}
			if idx >= n {
				idx = 2*n - idx - 1
			}
		}
		buf[j] = x[idx]
	}
	sort.Float64s(buf)
	return buf[half]
}
