package ctc

import "fmt"

// Lattice is the blank-extended target sequence together with its
// skip-transition eligibility mask.
//
// Symbols has length 2L+1 for a target of length L: a blank before, between
// and after every label. Skip[s] reports whether an alignment may jump from
// position s-2 directly to s, which is allowed only when the two positions
// carry distinct symbols (repeated labels must keep an explicit blank
// between them).
type Lattice struct {
	Symbols []int
	Skip    []bool
}

// ExtendWithBlanks builds the extended lattice for a target sequence.
// Label and blank indices must lie in [0, numClasses).
func ExtendWithBlanks(target []int, numClasses, blank int) (Lattice, error) {
	if len(target) == 0 {
		return Lattice{}, fmt.Errorf("%w: empty target sequence", ErrInvalidInput)
	}
	if blank < 0 || blank >= numClasses {
		return Lattice{}, fmt.Errorf("%w: blank index %d outside vocabulary of size %d",
			ErrInvalidInput, blank, numClasses)
	}
	symbols := make([]int, 0, 2*len(target)+1)
	symbols = append(symbols, blank)
	for _, label := range target {
		if label < 0 || label >= numClasses {
			return Lattice{}, fmt.Errorf("%w: label %d outside vocabulary of size %d",
				ErrInvalidInput, label, numClasses)
		}
		symbols = append(symbols, label, blank)
	}

	skip := make([]bool, len(symbols))
	for s := 2; s < len(symbols); s++ {
		skip[s] = symbols[s] != symbols[s-2]
	}
	return Lattice{Symbols: symbols, Skip: skip}, nil
}
