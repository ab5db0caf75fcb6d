package ctc

import (
	"fmt"

	"github.com/happyhackingspace/ctc/internal/dataset"
)

// EvalConfig holds configuration for dataset evaluation.
type EvalConfig struct {
	Workers int
}

// EvalResult holds loss and greedy-decode metrics for a dataset.
type EvalResult struct {
	Loss         float64   // mean CTC loss over the dataset
	SampleLosses []float64 // per-sample losses
	Unalignable  []int     // samples with no valid alignment

	TokenErrorRate   float64 // Levenshtein errors over reference tokens
	SequenceAccuracy float64 // exact-match rate of collapsed decodes
	TokenErrors      int
	TokenTotal       int
	SequenceCorrect  int
	SequenceTotal    int
}

// LoadBatch reads a dataset file and assembles the padded batch together
// with the dataset's blank index.
func LoadBatch(path string) (Batch, int, error) {
	ds, err := dataset.Load(path)
	if err != nil {
		return Batch{}, 0, fmt.Errorf("ctc: %w", err)
	}
	return batchFromDataset(ds), ds.Blank, nil
}

// Evaluate computes the batch loss and greedy-decode error rates for a
// dataset file.
func Evaluate(path string, config *EvalConfig) (*EvalResult, error) {
	workers := 1
	if config != nil && config.Workers > 0 {
		workers = config.Workers
	}

	ds, err := dataset.Load(path)
	if err != nil {
		return nil, fmt.Errorf("ctc: %w", err)
	}
	batch := batchFromDataset(ds)

	lossResult, err := ComputeLoss(batch, LossConfig{Blank: ds.Blank, Workers: workers})
	if err != nil {
		return nil, err
	}

	result := &EvalResult{
		Loss:         lossResult.Loss,
		SampleLosses: lossResult.SampleLosses,
		Unalignable:  lossResult.Unalignable,
	}
	for b := range ds.Samples {
		decoded := DecodeGreedy(batch.Sample(b), ds.Blank)
		ref := batch.Targets[b][:batch.TargetLengths[b]]
		dist := levenshtein(decoded.Labels, ref)
		result.TokenErrors += dist
		result.TokenTotal += len(ref)
		if dist == 0 {
			result.SequenceCorrect++
		}
		result.SequenceTotal++
	}
	if result.TokenTotal > 0 {
		result.TokenErrorRate = float64(result.TokenErrors) / float64(result.TokenTotal)
	}
	if result.SequenceTotal > 0 {
		result.SequenceAccuracy = float64(result.SequenceCorrect) / float64(result.SequenceTotal)
	}
	return result, nil
}

// batchFromDataset pads variable-length samples into one dense batch.
// Padding rows stay zero; the per-sample lengths keep them out of the
// computation.
func batchFromDataset(ds *dataset.Dataset) Batch {
	batchSize := len(ds.Samples)
	maxSteps, maxTarget := 0, 0
	for _, s := range ds.Samples {
		maxSteps = max(maxSteps, len(s.Probs))
		maxTarget = max(maxTarget, len(s.Target))
	}

	probs := make([][][]float64, maxSteps)
	for t := range probs {
		probs[t] = make([][]float64, batchSize)
		for b := range probs[t] {
			probs[t][b] = make([]float64, ds.NumClasses)
		}
	}
	targets := make([][]int, batchSize)
	inputLengths := make([]int, batchSize)
	targetLengths := make([]int, batchSize)

	for b, s := range ds.Samples {
		for t, row := range s.Probs {
			copy(probs[t][b], row)
		}
		targets[b] = make([]int, maxTarget)
		copy(targets[b], s.Target)
		inputLengths[b] = len(s.Probs)
		targetLengths[b] = len(s.Target)
	}
	return Batch{
		Probs:         probs,
		Targets:       targets,
		InputLengths:  inputLengths,
		TargetLengths: targetLengths,
	}
}

// levenshtein computes the edit distance between two labelings.
func levenshtein(a, b []int) int {
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
