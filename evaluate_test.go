package ctc

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/happyhackingspace/ctc/internal/dataset"
)

func testDataset() *dataset.Dataset {
	return &dataset.Dataset{
		NumClasses: 3,
		Blank:      0,
		Samples: []dataset.Sample{
			{
				// Greedy path [1, blank] collapses to the reference [1].
				Probs:  [][]float64{{0.1, 0.8, 0.1}, {0.7, 0.2, 0.1}},
				Target: []int{1},
			},
			{
				// Greedy path [1, 2] collapses to [1, 2]: one insertion
				// against the reference [2].
				Probs:  [][]float64{{0.1, 0.6, 0.3}, {0.2, 0.1, 0.7}},
				Target: []int{2},
			},
		},
	}
}

func TestEvaluate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "batch.json")
	if err := dataset.Save(testDataset(), path); err != nil {
		t.Fatal(err)
	}

	result, err := Evaluate(path, nil)
	if err != nil {
		t.Fatal(err)
	}

	if result.TokenErrors != 1 || result.TokenTotal != 2 {
		t.Errorf("token errors = %d/%d, want 1/2", result.TokenErrors, result.TokenTotal)
	}
	if math.Abs(result.TokenErrorRate-0.5) > 1e-12 {
		t.Errorf("TokenErrorRate = %v, want 0.5", result.TokenErrorRate)
	}
	if result.SequenceCorrect != 1 || result.SequenceTotal != 2 {
		t.Errorf("sequence accuracy = %d/%d, want 1/2", result.SequenceCorrect, result.SequenceTotal)
	}

	// The reported loss is exactly the batch loss over the same samples.
	lossResult, err := ComputeLoss(batchFromDataset(testDataset()), DefaultLossConfig())
	if err != nil {
		t.Fatal(err)
	}
	if result.Loss != lossResult.Loss {
		t.Errorf("Loss = %v, want %v", result.Loss, lossResult.Loss)
	}
	if len(result.Unalignable) != 0 {
		t.Errorf("Unalignable = %v, want empty", result.Unalignable)
	}
}

func TestLoadBatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "batch.json")
	if err := dataset.Save(testDataset(), path); err != nil {
		t.Fatal(err)
	}

	batch, blank, err := LoadBatch(path)
	if err != nil {
		t.Fatal(err)
	}
	if blank != 0 {
		t.Errorf("blank = %d, want 0", blank)
	}
	if len(batch.Probs) != 2 || len(batch.Probs[0]) != 2 {
		t.Fatalf("batch shape = [%d][%d], want [2][2]", len(batch.Probs), len(batch.Probs[0]))
	}
	if batch.Probs[0][1][1] != 0.6 {
		t.Errorf("Probs[0][1][1] = %v, want 0.6", batch.Probs[0][1][1])
	}
	if batch.InputLengths[0] != 2 || batch.TargetLengths[1] != 1 {
		t.Errorf("lengths = %v/%v, want [2 2]/[1 1]", batch.InputLengths, batch.TargetLengths)
	}
}

func TestLoadBatchMissingFile(t *testing.T) {
	if _, _, err := LoadBatch(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b []int
		want int
	}{
		{[]int{1, 2, 3}, []int{1, 2, 3}, 0},
		{[]int{1, 2}, []int{2}, 1},
		{[]int{}, []int{1, 2}, 2},
		{[]int{1, 3, 2}, []int{1, 2, 3}, 2},
		{[]int{1}, []int{}, 1},
	}
	for _, tt := range tests {
		if got := levenshtein(tt.a, tt.b); got != tt.want {
			t.Errorf("levenshtein(%v, %v) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}
