package dsp

import (
	"errors"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/mat"
)

// ErrSignalTooShort is returned by FiltFilt when x is not longer than the
// edge padding.
var ErrSignalTooShort = errors.New("signal too short for zero-phase filtering")

// IIR holds transfer function coefficients normalized so A[0] == 1.
type IIR struct {
	B, A []float64
}

// ButterBandpass designs a digital Butterworth band-pass of the given
// prototype order between lo and hi Hz for sample rate fs, via the
// bilinear transform with pre-warped edges.
func ButterBandpass(order int, lo, hi, fs float64) IIR {
	fs2 := 2 * fs
	wlo := fs2 * math.Tan(math.Pi*lo/fs)
	whi := fs2 * math.Tan(math.Pi*hi/fs)
	bw := whi - wlo
	w0 := math.Sqrt(wlo * whi)

	var poles []complex128
	for k := 0; k < order; k++ {
		p := cmplx.Exp(complex(0, math.Pi*float64(2*k+order+1)/float64(2*order)))
		pb := p * complex(bw/2, 0)
		d := cmplx.Sqrt(pb*pb - complex(w0*w0, 0))
		poles = append(poles, pb+d, pb-d)
	}
	gain := math.Pow(bw, float64(order))

	zd := make([]complex128, 0, 2*order)
	pd := make([]complex128, 0, 2*order)
	num, den := complex(1, 0), complex(1, 0)
	for i := 0; i < order; i++ {
		zd = append(zd, 1)
		num *= complex(fs2, 0)
	}
	for i := 0; i < order; i++ {
		zd = append(zd, -1)
	}
	for _, p := range poles {
		pd = append(pd, (complex(fs2, 0)+p)/(complex(fs2, 0)-p))
		den *= complex(fs2, 0) - p
	}
	k := gain * real(num/den)

	b := polyFromRoots(zd)
	a := polyFromRoots(pd)
	for i := range b {
		b[i] *= k
	}
	return IIR{B: b, A: a}
}

func polyFromRoots(roots []complex128) []float64 {
	c := []complex128{1}
	for _, r := range roots {
		next := make([]complex128, len(c)+1)
		for i, v := range c {
			next[i] += v
			next[i+1] -= v * r
		}
		c = next
	}
	out := make([]float64, len(c))
	for i, v := range c {
		out[i] = real(v)
	}
	return out
}

// Filter runs the difference equation over x (direct form II transposed)
// starting from state zi, which may be nil.
func (f IIR) Filter(x, zi []float64) []float64 {
	n := len(f.A)
	z := make([]float64, n-1)
	copy(z, zi)
	y := make([]float64, len(x))
	for i, v := range x {
		out := f.B[0]*v + z[0]
		for j := 0; j < n-2; j++ {
			z[j] = f.B[j+1]*v + z[j+1] - f.A[j+1]*out
		}
		z[n-2] = f.B[n-1]*v - f.A[n-1]*out
		y[i] = out
	}
	return y
}

// steadyState returns the filter state for a unit step input, solving
// (I - Aᵀ)·zi = B.
func (f IIR) steadyState() []float64 {
	n := len(f.A)
	m := mat.NewDense(n-1, n-1, nil)
	rhs := mat.NewVecDense(n-1, nil)
	for i := 0; i < n-1; i++ {
		m.Set(i, i, 1)
		m.Set(i, 0, m.At(i, 0)+f.A[i+1])
		if i+1 < n-1 {
			m.Set(i, i+1, -1)
		}
		rhs.SetVec(i, f.B[i+1]-f.A[i+1]*f.B[0])
	}
	var zi mat.VecDense
	if err := zi.SolveVec(m, rhs); err != nil {
		return make([]float64, n-1)
	}
	return zi.RawVector().Data
}

// FiltFilt applies f forward and backward for zero phase, with odd
// reflection padding of 3·len(A) samples at both ends.
func (f IIR) FiltFilt(x []float64) ([]float64, error) {
	pad := 3 * len(f.A)
	if len(x) <= pad {
		return nil, ErrSignalTooShort
	}
	ext := make([]float64, 0, len(x)+2*pad)
	for i := pad; i >= 1; i-- {
		ext = append(ext, 2*x[0]-x[i])
	}
	ext = append(ext, x...)
	last := len(x) - 1
	for i := 1; i <= pad; i++ {
		ext = append(ext, 2*x[last]-x[last-i])
	}

	zi := f.steadyState()
	scaled := func(v float64) []float64 {
		s := make([]float64, len(zi))
		for i, z := range zi {
			s[i] = z * v
		}
		return s
	}
	y := f.Filter(ext, scaled(ext[0]))
	reverse(y)
	y = f.Filter(y, scaled(y[0]))
	reverse(y)
	return y[pad : pad+len(x)], nil
}

func reverse(x []float64) {
	for i, j := 0, len(x)-1; i < j; i, j = i+1, j-1 {
		x[i], x[j] = x[j], x[i]
	}
}
