package dsp

import (
	"math"
)

func hzToMel(f float64) float64 {
	const fsp = 200.0 / 3
	minLogMel := 1000.0 / fsp
	logstep := math.Log(6.4) / 27
	if f < 1000 {
		return f / fsp
	}
	return minLogMel + math.Log(f/1000)/logstep
}

func melToHz(m float64) float64 {
	const fsp = 200.0 / 3
	minLogMel := 1000.0 / fsp
	logstep := math.Log(6.4) / 27
	if m < minLogMel {
		return m * fsp
	}
	return 1000 * math.Exp(logstep*(m-minLogMel))
}

// MelFilterbank builds Slaney-normalized triangular filters, indexed
// [mel][bin], spanning 0 Hz to Nyquist.
func MelFilterbank(sampleRate, nfft, nMels int) [][]float64 {
	bins := nfft/2 + 1
	fmax := float64(sampleRate) / 2
	melPts := make([]float64, nMels+2)
	lo, hi := hzToMel(0), hzToMel(fmax)
	for i := range melPts {
		melPts[i] = melToHz(lo + (hi-lo)*float64(i)/float64(nMels+1))
	}
	fftFreqs := make([]float64, bins)
	for k := range fftFreqs {
		fftFreqs[k] = float64(k) * float64(sampleRate) / float64(nfft)
	}

	weights := make([][]float64, nMels)
	for m := 0; m < nMels; m++ {
		w := make([]float64, bins)
		left, center, right := melPts[m], melPts[m+1], melPts[m+2]
		enorm := 2 / (right - left)
		for k, f := range fftFreqs {
			lower := (f - left) / (center - left)
			upper := (right - f) / (right - center)
			v := math.Max(0, math.Min(lower, upper))
			w[k] = v * enorm
		}
		weights[m] = w
	}
	return weights
}

// MelSpectrogram projects the power spectrogram onto the mel filterbank,
// indexed [frame][mel].
func MelSpectrogram(s *Spectrogram, nMels int) [][]float64 {
	fb := MelFilterbank(s.SampleRate, s.NFFT, nMels)
	out := make([][]float64, s.Frames())
	for t, row := range s.Mag {
		mel := make([]float64, nMels)
		for m, w := range fb {
			var acc float64
			for k, v := range row {
				if w[k] != 0 {
					acc += w[k] * v * v
				}
			}
			mel[m] = acc
		}
		out[t] = mel
	}
	return out
}

// PowerToDB converts power values to decibels relative to 1, floored at
// topDB below the global peak.
func PowerToDB(p [][]float64, topDB float64) [][]float64 {
	out := make([][]float64, len(p))
	peak := math.Inf(-1)
	for t, row := range p {
		db := make([]float64, len(row))
		for k, v := range row {
			db[k] = 10 * math.Log10(math.Max(v, amin))
			if db[k] > peak {
				peak = db[k]
			}
		}
		out[t] = db
	}
	floor := peak - topDB
	for _, row := range out {
		for k, v := range row {
			if v < floor {
				row[k] = floor
			}
		}
	}
	return out
}

// MFCC returns nCoeff cepstral coefficients per frame from a 128-band log
// mel spectrogram (orthonormal DCT-II), indexed [frame][coeff].
func MFCC(s *Spectrogram, nCoeff int) [][]float64 {
	const nMels = 128
	logMel := PowerToDB(MelSpectrogram(s, nMels), 80)
	out := make([][]float64, len(logMel))
	for t, row := range logMel {
		c := make([]float64, nCoeff)
		for k := 0; k < nCoeff; k++ {
			var acc float64
			for n, v := range row {
				acc += v * math.Cos(math.Pi*float64(k)*(2*float64(n)+1)/(2*nMels))
			}
			scale := math.Sqrt(2.0 / nMels)
			if k == 0 {
				scale = math.Sqrt(1.0 / nMels)
			}
			c[k] = acc * scale
		}
		out[t] = c
	}
	return out
}

// Delta is the regression first derivative over a ±4 frame window with edge
// frames repeated, indexed like its input.
func Delta(x [][]float64) [][]float64 {
	const width = 4
	out := make([][]float64, len(x))
	if len(x) == 0 {
		return out
	}
	denom := 0.0
	for n := 1; n <= width; n++ {
		denom += 2 * float64(n*n)
	}
	at := func(t int) []float64 {
		if t < 0 {
			t = 0
		}
		if t >= len(x) {
			t = len(x) - 1
		}
		return x[t]
	}
	for t := range x {
		d := make([]float64, len(x[t]))
		for n := 1; n <= width; n++ {
			next, prev := at(t+n), at(t-n)
			for k := range d {
				d[k] += float64(n) * (next[k] - prev[k])
			}
		}
		for k := range d {
			d[k] /= denom
		}
		out[t] = d
	}
	return out
}
