package pitch

import (
	"fmt"
	"math"
)

// DefaultMaxCells bounds the cost matrix size of a DTW alignment.
const DefaultMaxCells = 20_000_000

// Step pairs a sung frame index with a reference note index.
type Step struct {
	Sung int `json:"sung"`
	Ref  int `json:"ref"`
}

// Align runs dynamic time warping between sung and ref using absolute
// difference as the local cost. The returned path starts at (0,0), ends at
// (len(sung)-1, len(ref)-1) and never moves backwards; costs holds the local
// cost of every step on it.
func Align(sung, ref []float64, maxCells int) ([]Step, []float64, error) {
	n, m := len(sung), len(ref)
	if n == 0 || m == 0 {
		return nil, nil, fmt.Errorf("%w: empty sequence (%d x %d)", ErrAlignmentFailure, n, m)
	}
	if maxCells > 0 && n*m > maxCells {
		return nil, nil, fmt.Errorf("%w: %d x %d exceeds %d cells", ErrAlignmentFailure, n, m, maxCells)
	}
	for _, v := range sung {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, nil, fmt.Errorf("%w: non-finite sung value", ErrAlignmentFailure)
		}
	}
	for _, v := range ref {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, nil, fmt.Errorf("%w: non-finite reference value", ErrAlignmentFailure)
		}
	}

	acc := make([]float64, n*m)
	at := func(i, j int) float64 { return acc[i*m+j] }
	for i := 0; i < n; i++ {
		for j := 0; j < m; j++ {
			c := math.Abs(sung[i] - ref[j])
			switch {
			case i == 0 && j == 0:
				acc[0] = c
			case i == 0:
				acc[j] = c + at(0, j-1)
			case j == 0:
				acc[i*m] = c + at(i-1, 0)
			default:
				acc[i*m+j] = c + math.Min(at(i-1, j-1), math.Min(at(i-1, j), at(i, j-1)))
			}
		}
	}

	path := make([]Step, 0, n+m)
	i, j := n-1, m-1
	for {
		path = append(path, Step{Sung: i, Ref: j})
		if i == 0 && j == 0 {
			break
		}
		switch {
		case i == 0:
			j--
		case j == 0:
			i--
		default:
			diag, up, left := at(i-1, j-1), at(i-1, j), at(i, j-1)
			switch {
			case diag <= up && diag <= left:
				i, j = i-1, j-1
			case up <= left:
				i--
			default:
				j--
			}
		}
	}
	for l, r := 0, len(path)-1; l < r; l, r = l+1, r-1 {
		path[l], path[r] = path[r], path[l]
	}

	costs := make([]float64, len(path))
	for k, s := range path {
		costs[k] = math.Abs(sung[s.Sung] - ref[s.Ref])
	}
	return path, costs, nil
}
