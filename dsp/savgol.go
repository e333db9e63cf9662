package dsp

import (
	"gonum.org/v1/gonum/mat"
)

// SavGol smooths x with a Savitzky-Golay filter of the given odd window and
// polynomial order. Edge samples are evaluated on the polynomial fitted to
// the first and last full window. Invalid parameters (even window, window
// longer than x, order not below window) return an unmodified copy.
func SavGol(x []float64, window, order int) []float64 {
	out := append([]float64(nil), x...)
	if window%2 == 0 || window > len(x) || order >= window || window < 1 {
		return out
	}
	proj := savgolProjection(window, order)
	half := window / 2
	n := len(x)

	apply := func(row int, start int) float64 {
		var acc float64
		for j := 0; j < window; j++ {
			acc += proj.At(row, j) * x[start+j]
		}
		return acc
	}
	for i := half; i < n-half; i++ {
		out[i] = apply(half, i-half)
	}
	for i := 0; i < half; i++ {
		out[i] = apply(i, 0)
		out[n-1-i] = apply(window-1-i, n-window)
	}
	return out
}

// savgolProjection is the hat matrix V(VᵀV)⁻¹Vᵀ of the polynomial basis over
// the window. Row r gives the weights that evaluate the fit at position r.
func savgolProjection(window, order int) *mat.Dense {
	half := float64(window / 2)
	v := mat.NewDense(window, order+1, nil)
	for i := 0; i < window; i++ {
		z := 1.0
		if half > 0 {
			z = (float64(i) - half) / half
		}
		p := 1.0
		for j := 0; j <= order; j++ {
			v.Set(i, j, p)
			p *= z
		}
	}
	var vtv, inv, tmp, proj mat.Dense
	vtv.Mul(v.T(), v)
	if err := inv.Inverse(&vtv); err != nil {
		id := mat.NewDense(window, window, nil)
		for i := 0; i < window; i++ {
			id.Set(i, i, 1)
		}
		return id
	}
	tmp.Mul(v, &inv)
	proj.Mul(&tmp, v.T())
	return &proj
}
