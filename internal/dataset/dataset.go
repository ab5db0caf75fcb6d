// Package dataset reads evaluation batches of emission probabilities and
// target labelings from JSON files.
package dataset

import (
	"encoding/json"
	"fmt"
	"os"
)

// Sample is one sequence: a [T][C] emission probability matrix and its
// reference labeling.
type Sample struct {
	Probs  [][]float64 `json:"probs"`
	Target []int       `json:"target"`
}

// Dataset is a set of samples sharing one vocabulary.
type Dataset struct {
	NumClasses int      `json:"num_classes"`
	Blank      int      `json:"blank"`
	Samples    []Sample `json:"samples"`
}

// Load reads and validates a dataset file.
func Load(path string) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var ds Dataset
	if err := json.Unmarshal(data, &ds); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := ds.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &ds, nil
}

// Save writes the dataset as indented JSON.
func Save(ds *Dataset, path string) error {
	data, err := json.MarshalIndent(ds, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks vocabulary metadata and per-sample shapes. A malformed
// dataset rejects the whole file, never a partial batch.
func (ds *Dataset) Validate() error {
	if ds.NumClasses <= 0 {
		return fmt.Errorf("num_classes must be positive, got %d", ds.NumClasses)
	}
	if ds.Blank < 0 || ds.Blank >= ds.NumClasses {
		return fmt.Errorf("blank index %d outside vocabulary of size %d", ds.Blank, ds.NumClasses)
	}
	if len(ds.Samples) == 0 {
		return fmt.Errorf("dataset has no samples")
	}
	for i, s := range ds.Samples {
		if len(s.Probs) == 0 {
			return fmt.Errorf("sample %d has no time steps", i)
		}
		for t, row := range s.Probs {
			if len(row) != ds.NumClasses {
				return fmt.Errorf("sample %d: probs[%d] has %d classes, want %d",
					i, t, len(row), ds.NumClasses)
			}
		}
		if len(s.Target) == 0 {
			return fmt.Errorf("sample %d has an empty target", i)
		}
		for j, label := range s.Target {
			if label < 0 || label >= ds.NumClasses {
				return fmt.Errorf("sample %d: target[%d] = %d outside vocabulary of size %d",
					i, j, label, ds.NumClasses)
			}
		}
	}
	return nil
}
