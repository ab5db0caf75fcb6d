package ctc

// Decoded holds the greedy decode of one sample: the raw argmax path, the
// probability of each chosen symbol, and the collapsed labeling.
type Decoded struct {
	Path      []int
	PathProbs []float64
	Labels    []int
}

// DecodeGreedy decodes one sample's [T][C] emission probabilities by taking
// the most probable class at every time step and collapsing the path.
func DecodeGreedy(probs [][]float64, blank int) Decoded {
	path := make([]int, len(probs))
	pathProbs := make([]float64, len(probs))
	for t, row := range probs {
		best := 0
		for c := 1; c < len(row); c++ {
			if row[c] > row[best] {
				best = c
			}
		}
		path[t] = best
		pathProbs[t] = row[best]
	}
	return Decoded{Path: path, PathProbs: pathProbs, Labels: Collapse(path, blank)}
}

// Collapse removes blanks and merges repeated consecutive symbols, turning
// an alignment path into a labeling.
func Collapse(path []int, blank int) []int {
	labels := make([]int, 0, len(path))
	prev := -1
	for _, sym := range path {
		if sym == blank {
			prev = sym
			continue
		}
		if sym == prev {
			continue
		}
		labels = append(labels, sym)
		prev = sym
	}
	return labels
}
