package ctc

import (
	"fmt"
	"log/slog"
	"math"

	"golang.org/x/sync/errgroup"
)

// sampleState is the intermediate state of one sample, retained between the
// loss and gradient passes so the gradient never recomputes (or depends on
// call ordering with) the forward pass.
type sampleState struct {
	lattice     Lattice
	posteriors  [][]float64
	probs       [][]float64 // [inputLen][C], rows alias the caller's batch
	loss        float64
	unalignable bool
}

// LossResult holds the batch loss and the per-sample intermediate state
// needed to compute the gradient.
type LossResult struct {
	Loss         float64   // mean loss over the batch
	SampleLosses []float64 // per-sample negative expected log-likelihood
	Unalignable  []int     // samples with no valid alignment path

	samples    []sampleState
	steps      int // time steps of the untruncated batch
	numClasses int
}

// ComputeLoss computes the batch CTC loss.
//
// Each sample's probability matrix and target are truncated by slicing to
// their declared lengths, the target is extended with blanks, and the
// forward-backward posteriors weight the negative log-likelihood. The batch
// loss is the mean over samples. Samples are independent; config.Workers
// bounds how many run concurrently.
//
// An unalignable sample (no lattice path fits its input length) yields a
// NaN loss, which propagates into the batch mean so callers can detect it;
// such samples are also listed in the result's Unalignable field.
func ComputeLoss(batch Batch, config LossConfig) (*LossResult, error) {
	steps, batchSize, numClasses, err := batch.validate(config.Blank)
	if err != nil {
		return nil, err
	}

	result := &LossResult{
		SampleLosses: make([]float64, batchSize),
		samples:      make([]sampleState, batchSize),
		steps:        steps,
		numClasses:   numClasses,
	}

	workers := config.Workers
	if workers < 1 {
		workers = 1
	}

	var g errgroup.Group
	g.SetLimit(workers)
	for b := 0; b < batchSize; b++ {
		b := b
		g.Go(func() error {
			state, err := lossForSample(batch, b, numClasses, config.Blank)
			if err != nil {
				return err
			}
			result.samples[b] = state
			result.SampleLosses[b] = state.loss
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var total float64
	for b := 0; b < batchSize; b++ {
		if result.samples[b].unalignable {
			result.Unalignable = append(result.Unalignable, b)
		}
		total += result.SampleLosses[b]
	}
	result.Loss = total / float64(batchSize)
	return result, nil
}

// lossForSample runs the extend/forward/backward/posterior pipeline for
// sample b and reduces it to the expected negative log-likelihood.
func lossForSample(batch Batch, b, numClasses, blank int) (sampleState, error) {
	probs := batch.Sample(b)
	target := batch.Targets[b][:batch.TargetLengths[b]]

	lat, err := ExtendWithBlanks(target, numClasses, blank)
	if err != nil {
		return sampleState{}, fmt.Errorf("sample %d: %w", b, err)
	}

	state := sampleState{lattice: lat, probs: probs}
	res := Align(probs, lat)
	state.posteriors = res.Posteriors

	// Zero posterior mass in any row means zero mass in all of them: no
	// path through the lattice fits the available time steps.
	if len(res.DegenerateRows) > 0 {
		slog.Warn("CTC target cannot be aligned",
			"sample", b, "lattice", len(lat.Symbols), "steps", len(probs))
		state.unalignable = true
	}

	var loss float64
	for t := range probs {
		for s, sym := range lat.Symbols {
			loss -= res.Posteriors[t][s] * math.Log(probs[t][sym])
		}
	}
	state.loss = loss
	return state, nil
}

// AddGradient adds the loss gradient with respect to the emission
// probabilities into grad, a caller-owned zero-initialized [T][B][C] tensor
// shaped like the original batch: grad[t][b][sym] -= gamma[t][s]/P(t,sym)
// for every lattice position s carrying sym. Coordinates past a sample's
// input length or outside its lattice symbols are left untouched.
func (r *LossResult) AddGradient(grad [][][]float64) error {
	if len(grad) != r.steps {
		return fmt.Errorf("%w: gradient has %d time steps, want %d",
			ErrInvalidInput, len(grad), r.steps)
	}
	for t := range grad {
		if len(grad[t]) != len(r.samples) {
			return fmt.Errorf("%w: gradient[%d] has batch size %d, want %d",
				ErrInvalidInput, t, len(grad[t]), len(r.samples))
		}
		for b, row := range grad[t] {
			if len(row) != r.numClasses {
				return fmt.Errorf("%w: gradient[%d][%d] has %d classes, want %d",
					ErrInvalidInput, t, b, len(row), r.numClasses)
			}
		}
	}

	for b := range r.samples {
		state := &r.samples[b]
		zeroProb := false
		for t := range state.probs {
			for s, sym := range state.lattice.Symbols {
				p := state.probs[t][sym]
				if p == 0 {
					zeroProb = true
				}
				grad[t][b][sym] -= state.posteriors[t][s] / p
			}
		}
		if zeroProb {
			slog.Warn("CTC gradient fed a zero emission probability", "sample", b)
		}
	}
	return nil
}

// Gradient allocates a zero [T][B][C] tensor and adds the gradient into it.
func (r *LossResult) Gradient() [][][]float64 {
	grad := make([][][]float64, r.steps)
	for t := range grad {
		grad[t] = make([][]float64, len(r.samples))
		for b := range grad[t] {
			grad[t][b] = make([]float64, r.numClasses)
		}
	}
	// Cannot fail on a tensor shaped from the result itself.
	_ = r.AddGradient(grad)
	return grad
}
