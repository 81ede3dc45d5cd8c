// Package substmodel provides substitution models computing
// transition probability matrices for a given rate and branch
// length.
package substmodel

import (
	"errors"
	"fmt"
	"math"

	"github.com/gonum/floats"
	"github.com/gonum/matrix/mat64"

	"bitbucket.org/Davydov/siterates/alphabet"
)

// ErrInvalidFrequencies is returned for frequencies which are not a
// probability vector.
var ErrInvalidFrequencies = errors.New("invalid equilibrium frequencies")

// SubstitutionModel computes transition probabilities.
type SubstitutionModel interface {
	// StateCount returns the number of states.
	StateCount() int
	// CanHandle tests if the model can be used with an alphabet.
	CanHandle(*alphabet.Alphabet) bool
	// TransitionProbabilities computes the matrix of transition
	// probabilities for the rate and the branch length. If dst is
	// nil a new matrix is allocated.
	TransitionProbabilities(rate, branchLength float64, dst *mat64.Dense) *mat64.Dense
	// Frequencies returns equilibrium frequencies.
	Frequencies() []float64
}

// F81 is the Felsenstein 1981 model: all substitutions have the
// same exchangeability and the equilibrium frequencies are
// arbitrary. Time is scaled to one expected substitution per site.
type F81 struct {
	freq []float64
	// beta normalizes the rate matrix.
	beta float64
}

// NewF81 creates a new F81 model.
func NewF81(freq []float64) (*F81, error) {
	if len(freq) < 2 {
		return nil, fmt.Errorf("%w: at least two states are required", ErrInvalidFrequencies)
	}
	for _, f := range freq {
		if f <= 0 || math.IsNaN(f) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidFrequencies, freq)
		}
	}
	if !floats.EqualWithinAbs(floats.Sum(freq), 1, 1e-8) {
		return nil, fmt.Errorf("%w: sum is %v", ErrInvalidFrequencies, floats.Sum(freq))
	}
	m := &F81{freq: append([]float64(nil), freq...)}
	m.beta = 1 / (1 - floats.Dot(m.freq, m.freq))
	return m, nil
}

// NewJukesCantor creates an F81 model with equal frequencies.
func NewJukesCantor(k int) *F81 {
	freq := make([]float64, k)
	for i := range freq {
		freq[i] = 1 / float64(k)
	}
	m, err := NewF81(freq)
	if err != nil {
		panic(err)
	}
	return m
}

// StateCount returns the number of states.
func (m *F81) StateCount() int {
	return len(m.freq)
}

// CanHandle returns true if the alphabet has the same number of
// states.
func (m *F81) CanHandle(a *alphabet.Alphabet) bool {
	return a != nil && a.StateCount() == len(m.freq)
}

// Frequencies returns a copy of the equilibrium frequencies.
func (m *F81) Frequencies() []float64 {
	return append([]float64(nil), m.freq...)
}

// TransitionProbabilities computes
// P_ij = exp(-beta r t) delta_ij + (1 - exp(-beta r t)) pi_j.
func (m *F81) TransitionProbabilities(rate, branchLength float64, dst *mat64.Dense) *mat64.Dense {
	k := len(m.freq)
	if dst == nil {
		dst = mat64.NewDense(k, k, nil)
	}
	e := math.Exp(-m.beta * rate * branchLength)
	for i := 0; i < k; i++ {
		row := dst.RawRowView(i)
		for j, f := range m.freq {
			row[j] = (1 - e) * f
		}
		row[i] += e
	}
	return dst
}
