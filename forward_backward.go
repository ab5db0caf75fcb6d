package ctc

import "log/slog"

// AlignmentResult holds the forward-backward tables for one sample.
type AlignmentResult struct {
	Lattice        Lattice
	Alpha          [][]float64 // [T][S] forward probabilities
	Beta           [][]float64 // [T][S] backward probabilities
	Posteriors     [][]float64 // [T][S] row-normalized alpha*beta
	DegenerateRows []int       // time rows with zero posterior mass
}

// ForwardProbs computes forward probabilities over the extended lattice.
// probs is one sample's [T][C] emission probability matrix.
// alpha[t][s] is the total probability mass of alignments of the first s+1
// lattice positions ending at time t.
func ForwardProbs(probs [][]float64, lat Lattice) [][]float64 {
	T, S := len(probs), len(lat.Symbols)
	if T == 0 {
		return nil
	}
	alpha := make([][]float64, T)
	for t := 0; t < T; t++ {
		alpha[t] = make([]float64, S)
	}

	// t = 0: an alignment starts at the leading blank or the first label.
	alpha[0][0] = probs[0][lat.Symbols[0]]
	if S > 1 {
		alpha[0][1] = probs[0][lat.Symbols[1]]
	}

	for t := 1; t < T; t++ {
		for s := 0; s < S; s++ {
			sum := alpha[t-1][s]
			if s >= 1 {
				sum += alpha[t-1][s-1]
			}
			if s >= 2 && lat.Skip[s] {
				sum += alpha[t-1][s-2]
			}
			alpha[t][s] = sum * probs[t][lat.Symbols[s]]
		}
	}
	return alpha
}

// BackwardProbs computes backward probabilities over the extended lattice.
// beta[t][s] is the probability mass of completing an alignment from lattice
// position s strictly after time t; the emission at time t itself is not
// included, so alpha[t][s]*beta[t][s] is the full mass of alignments passing
// through (t, s).
func BackwardProbs(probs [][]float64, lat Lattice) [][]float64 {
	T, S := len(probs), len(lat.Symbols)
	if T == 0 {
		return nil
	}
	beta := make([][]float64, T)
	for t := 0; t < T; t++ {
		beta[t] = make([]float64, S)
	}

	// t = T-1: an alignment ends at the trailing blank or the last label.
	beta[T-1][S-1] = 1
	if S > 1 {
		beta[T-1][S-2] = 1
	}

	for t := T - 2; t >= 0; t-- {
		for s := S - 1; s >= 0; s-- {
			sum := beta[t+1][s] * probs[t+1][lat.Symbols[s]]
			if s+1 < S {
				sum += beta[t+1][s+1] * probs[t+1][lat.Symbols[s+1]]
			}
			// The length-2 jump from s lands on s+2; Skip[s+2] holds exactly
			// when the two positions carry distinct symbols.
			if s+2 < S && lat.Skip[s+2] {
				sum += beta[t+1][s+2] * probs[t+1][lat.Symbols[s+2]]
			}
			beta[t][s] = sum
		}
	}
	return beta
}

// backwardProbsTwoPhase is the two-phase formulation of BackwardProbs: run
// the mirrored forward recurrence, then divide each entry once by its own
// emission probability to remove the factor the recurrence double-counts.
// Kept as a reference implementation; the equivalence with the direct
// recurrence is checked in tests.
func backwardProbsTwoPhase(probs [][]float64, lat Lattice) [][]float64 {
	T, S := len(probs), len(lat.Symbols)
	if T == 0 {
		return nil
	}
	beta := make([][]float64, T)
	for t := 0; t < T; t++ {
		beta[t] = make([]float64, S)
	}

	beta[T-1][S-1] = probs[T-1][lat.Symbols[S-1]]
	if S > 1 {
		beta[T-1][S-2] = probs[T-1][lat.Symbols[S-2]]
	}
	for t := T - 2; t >= 0; t-- {
		for s := S - 1; s >= 0; s-- {
			sum := beta[t+1][s]
			if s+1 < S {
				sum += beta[t+1][s+1]
			}
			if s+2 < S && lat.Skip[s+2] {
				sum += beta[t+1][s+2]
			}
			beta[t][s] = sum * probs[t][lat.Symbols[s]]
		}
	}
	for t := 0; t < T; t++ {
		for s := 0; s < S; s++ {
			beta[t][s] /= probs[t][lat.Symbols[s]]
		}
	}
	return beta
}

// PosteriorProbs combines alpha and beta into per-time-step posteriors over
// lattice positions. Each row is normalized to sum to 1. Rows with zero
// total mass admit no valid alignment; they are reported in the second
// return value and come out as NaN rather than being silently clamped.
func PosteriorProbs(alpha, beta [][]float64) ([][]float64, []int) {
	gamma := make([][]float64, len(alpha))
	var degenerate []int
	for t := range alpha {
		gamma[t] = make([]float64, len(alpha[t]))
		var sum float64
		for s := range alpha[t] {
			gamma[t][s] = alpha[t][s] * beta[t][s]
			sum += gamma[t][s]
		}
		if sum == 0 {
			degenerate = append(degenerate, t)
		}
		for s := range gamma[t] {
			gamma[t][s] /= sum
		}
	}
	return gamma, degenerate
}

// Align runs the full forward-backward pipeline for one sample.
func Align(probs [][]float64, lat Lattice) AlignmentResult {
	alpha := ForwardProbs(probs, lat)
	beta := BackwardProbs(probs, lat)
	gamma, degenerate := PosteriorProbs(alpha, beta)
	if len(degenerate) > 0 {
		slog.Warn("CTC posterior has zero-mass time rows", "rows", len(degenerate))
	}
	return AlignmentResult{
		Lattice:        lat,
		Alpha:          alpha,
		Beta:           beta,
		Posteriors:     gamma,
		DegenerateRows: degenerate,
	}
}
