// Package ctc implements the Connectionist Temporal Classification (CTC)
// forward-backward algorithm and its loss/gradient computation.
//
// The input is a tensor of per-time-step emission probabilities produced by
// an upstream sequence model. Each target labeling is extended with blanks,
// forward (alpha) and backward (beta) probabilities are computed over the
// extended lattice, combined into per-step posteriors, and reduced to a
// scalar batch loss plus a gradient with respect to the emission
// probabilities.
//
//	result, _ := ctc.ComputeLoss(batch, ctc.DefaultLossConfig())
//	fmt.Println(result.Loss)
//	grad := result.Gradient()
//
// Emission values are linear probabilities in (0, 1], not log-probabilities.
// Products of many sub-1 values underflow for long sequences; this package
// keeps the linear domain and surfaces degenerate (zero-mass) rows to the
// caller rather than masking them.
package ctc

import (
	"errors"
	"fmt"
)

// ErrInvalidInput reports a malformed target sequence or batch: empty
// targets, out-of-range label indices, zero lengths, or mismatched
// dimensions. Callers detect it with errors.Is.
var ErrInvalidInput = errors.New("ctc: invalid input")

// LossConfig holds the CTC loss configuration.
type LossConfig struct {
	Blank   int // blank symbol index
	Workers int // max samples processed concurrently; <=1 means serial
}

// DefaultLossConfig returns the default configuration: blank index 0,
// serial batch processing.
func DefaultLossConfig() LossConfig {
	return LossConfig{Blank: 0, Workers: 1}
}

// Batch holds a batch of emission probabilities and target sequences.
//
// Probs is indexed [t][b][c]: time step, batch element, class. Targets[b]
// may be padded; only the first TargetLengths[b] entries are used, and only
// the first InputLengths[b] rows of Probs are used for sample b. The batch
// is treated read-only: truncation happens by slicing, never in place.
type Batch struct {
	Probs         [][][]float64
	Targets       [][]int
	InputLengths  []int
	TargetLengths []int
}

// validate checks batch dimensions and returns (steps, batchSize, numClasses).
func (b Batch) validate(blank int) (int, int, int, error) {
	steps := len(b.Probs)
	if steps == 0 {
		return 0, 0, 0, fmt.Errorf("%w: empty probability tensor", ErrInvalidInput)
	}
	batchSize := len(b.Probs[0])
	if batchSize == 0 {
		return 0, 0, 0, fmt.Errorf("%w: empty batch", ErrInvalidInput)
	}
	numClasses := len(b.Probs[0][0])
	if numClasses == 0 {
		return 0, 0, 0, fmt.Errorf("%w: no classes", ErrInvalidInput)
	}
	for t := 0; t < steps; t++ {
		if len(b.Probs[t]) != batchSize {
			return 0, 0, 0, fmt.Errorf("%w: probs[%d] has batch size %d, want %d",
				ErrInvalidInput, t, len(b.Probs[t]), batchSize)
		}
		for i, row := range b.Probs[t] {
			if len(row) != numClasses {
				return 0, 0, 0, fmt.Errorf("%w: probs[%d][%d] has %d classes, want %d",
					ErrInvalidInput, t, i, len(row), numClasses)
			}
		}
	}
	if len(b.Targets) != batchSize || len(b.InputLengths) != batchSize || len(b.TargetLengths) != batchSize {
		return 0, 0, 0, fmt.Errorf("%w: targets/lengths do not match batch size %d",
			ErrInvalidInput, batchSize)
	}
	if blank < 0 || blank >= numClasses {
		return 0, 0, 0, fmt.Errorf("%w: blank index %d outside vocabulary of size %d",
			ErrInvalidInput, blank, numClasses)
	}
	for i := 0; i < batchSize; i++ {
		if b.InputLengths[i] <= 0 || b.InputLengths[i] > steps {
			return 0, 0, 0, fmt.Errorf("%w: input length %d of sample %d outside [1, %d]",
				ErrInvalidInput, b.InputLengths[i], i, steps)
		}
		if b.TargetLengths[i] <= 0 || b.TargetLengths[i] > len(b.Targets[i]) {
			return 0, 0, 0, fmt.Errorf("%w: target length %d of sample %d outside [1, %d]",
				ErrInvalidInput, b.TargetLengths[i], i, len(b.Targets[i]))
		}
	}
	return steps, batchSize, numClasses, nil
}

// Sample returns sample i's probability matrix truncated to its declared
// input length. Rows alias the batch tensor; treat them as read-only.
func (b Batch) Sample(i int) [][]float64 {
	probs := make([][]float64, b.InputLengths[i])
	for t := range probs {
		probs[t] = b.Probs[t][i]
	}
	return probs
}
