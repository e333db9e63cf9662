package audio

import (
	"math"
	"sort"
)

// Clip bounds v to [lo, hi]. NaN maps to lo.
func Clip(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Score clips to the [0,10] score range.
func Score(v float64) float64 { return Clip(v, 0, 10) }

// Round1 rounds to one decimal.
func Round1(v float64) float64 { return math.Round(v*10) / 10 }

// Percentile matches numpy's default linear interpolation between closest
// ranks. q is in [0,100]. Empty input yields ErrNumericDegenerate.
func Percentile(x []float64, q float64) (float64, error) {
	if len(x) == 0 {
		return 0, ErrNumericDegenerate
	}
	s := append([]float64(nil), x...)
	sort.Float64s(s)
	return percentileSorted(s, q), nil
}

func percentileSorted(s []float64, q float64) float64 {
	pos := Clip(q, 0, 100) / 100 * float64(len(s)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return s[lo]
	}
	frac := pos - float64(lo)
	return s[lo] + (s[hi]-s[lo])*frac
}

// Median is the 50th percentile.
func Median(x []float64) (float64, error) { return Percentile(x, 50) }

// Interp evaluates the piecewise-linear function through (xp, fp) at each x,
// holding the end values outside the range. xp must be increasing.
func Interp(x, xp, fp []float64) []float64 {
	out := make([]float64, len(x))
	if len(xp) == 0 {
		return out
	}
	for i, v := range x {
		switch {
		case v <= xp[0]:
			out[i] = fp[0]
		case v >= xp[len(xp)-1]:
			out[i] = fp[len(fp)-1]
		default:
			j := sort.SearchFloat64s(xp, v)
			if xp[j] == v {
				out[i] = fp[j]
				continue
			}
			x0, x1 := xp[j-1], xp[j]
			out[i] = fp[j-1] + (fp[j]-fp[j-1])*(v-x0)/(x1-x0)
		}
	}
	return out
}

// Linspace returns n evenly spaced values over [start, stop].
func Linspace(start, stop float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	if n == 1 {
		return []float64{start}
	}
	out := make([]float64, n)
	step := (stop - start) / float64(n-1)
	for i := range out {
		out[i] = start + step*float64(i)
	}
	out[n-1] = stop
	return out
}

// Cents is 1200·log2(f/ref).
func Cents(f, ref float64) float64 { return 1200 * math.Log2(f/ref) }

// OddWindow returns the largest odd value not above min(limit, n).
func OddWindow(limit, n int) int {
	w := limit
	if n < w {
		w = n
	}
	if w%2 == 0 {
		w--
	}
	return w
}
