package dsp

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/maastricht-university/vocal-eval/audio"
)

// Spectrogram holds STFT magnitudes indexed [frame][bin].
type Spectrogram struct {
	Mag        [][]float64
	NFFT       int
	SampleRate int
}

// Bins is the number of non-negative frequency bins.
func (s *Spectrogram) Bins() int { return s.NFFT/2 + 1 }

// Frames is the number of analysis frames.
func (s *Spectrogram) Frames() int { return len(s.Mag) }

// BinFreq returns the center frequency of bin k in Hz.
func (s *Spectrogram) BinFreq(k int) float64 {
	return float64(k) * float64(s.SampleRate) / float64(s.NFFT)
}

// Power returns squared magnitudes.
func (s *Spectrogram) Power() [][]float64 {
	out := make([][]float64, len(s.Mag))
	for t, row := range s.Mag {
		p := make([]float64, len(row))
		for k, v := range row {
			p[k] = v * v
		}
		out[t] = p
	}
	return out
}

// STFT computes a Hann-windowed magnitude spectrogram with n_fft =
// audio.FrameLength and the shared hop.
func STFT(x []float64, sampleRate int) *Spectrogram {
	nfft := audio.FrameLength
	frames := audio.FrameCount(len(x))
	win := Hann(nfft)
	fft := fourier.NewFFT(nfft)
	buf := make([]float64, nfft)
	coeff := make([]complex128, nfft/2+1)

	mag := make([][]float64, frames)
	for i := 0; i < frames; i++ {
		FrameAt(x, i, audio.HopLength, buf)
		for k := range buf {
			buf[k] *= win[k]
		}
		fft.Coefficients(coeff, buf)
		row := make([]float64, len(coeff))
		for k, c := range coeff {
			row[k] = cmplx.Abs(c)
		}
		mag[i] = row
	}
	return &Spectrogram{Mag: mag, NFFT: nfft, SampleRate: sampleRate}
}

// Hann is the periodic Hann window used for spectral analysis.
func Hann(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(n)))
	}
	return w
}
