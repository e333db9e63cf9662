package dsp

import "sort"

// FindPeaks returns indices of local maxima of x that reach height and are
// at least distance samples apart. Flat tops report their middle sample.
// When two peaks are closer than distance the taller one wins.
func FindPeaks(x []float64, height float64, distance int) []int {
	var cand []int
	for i := 1; i < len(x)-1; i++ {
		if x[i] <= x[i-1] {
			continue
		}
		j := i
		for j+1 < len(x)-1 && x[j+1] == x[i] {
			j++
		}
		if x[j+1] < x[i] {
			mid := (i + j) / 2
			if x[mid] >= height {
				cand = append(cand, mid)
			}
		}
		i = j
	}
	if distance <= 1 || len(cand) < 2 {
		return cand
	}

	order := make([]int, len(cand))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return x[cand[order[a]]] > x[cand[order[b]]] })
	keep := make([]bool, len(cand))
	for i := range keep {
		keep[i] = true
	}
	for _, oi := range order {
		if !keep[oi] {
			continue
		}
		for k := oi - 1; k >= 0 && cand[oi]-cand[k] < distance; k-- {
			keep[k] = false
		}
		for k := oi + 1; k < len(cand) && cand[k]-cand[oi] < distance; k++ {
			keep[k] = false
		}
	}
	var out []int
	for i, c := range cand {
		if keep[i] {
			out = append(out, c)
		}
	}
	return out
}
