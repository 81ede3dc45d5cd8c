package substmodel

import (
	"errors"
	"math"
	"testing"

	"bitbucket.org/Davydov/siterates/alphabet"
)

func smallDiff(a, b float64) bool {
	return math.Abs(a-b) < 1e-12
}

func TestJukesCantor(tst *testing.T) {
	m := NewJukesCantor(4)
	if !m.CanHandle(alphabet.Nucleotide) || m.CanHandle(alphabet.AminoAcid) {
		tst.Error("Wrong alphabet compatibility")
	}
	t := 0.3
	p := m.TransitionProbabilities(1, t, nil)
	same := 0.25 + 0.75*math.Exp(-4*t/3)
	diff := 0.25 - 0.25*math.Exp(-4*t/3)
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			e := diff
			if i == j {
				e = same
			}
			if !smallDiff(p.At(i, j), e) {
				tst.Errorf("P[%d][%d]=%v, expected %v", i, j, p.At(i, j), e)
			}
		}
	}
}

func TestF81(tst *testing.T) {
	freq := []float64{0.1, 0.2, 0.3, 0.4}
	m, err := NewF81(freq)
	if err != nil {
		tst.Fatal("Error: ", err)
	}
	// zero rate gives the identity
	p := m.TransitionProbabilities(0, 1, nil)
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			e := 0.0
			if i == j {
				e = 1
			}
			if p.At(i, j) != e {
				tst.Errorf("P[%d][%d]=%v at zero rate", i, j, p.At(i, j))
			}
		}
	}
	// rows sum to one, long branches converge to frequencies
	p = m.TransitionProbabilities(2, 50, p)
	for i := 0; i < 4; i++ {
		sum := 0.0
		for j := 0; j < 4; j++ {
			sum += p.At(i, j)
			if !smallDiff(p.At(i, j), freq[j]) {
				tst.Errorf("P[%d][%d]=%v, expected %v", i, j, p.At(i, j), freq[j])
			}
		}
		if !smallDiff(sum, 1) {
			tst.Errorf("Row %d sums to %v", i, sum)
		}
	}
	// rate and branch length are interchangeable
	p1 := m.TransitionProbabilities(2, 0.1, nil)
	p2 := m.TransitionProbabilities(1, 0.2, nil)
	if !smallDiff(p1.At(1, 2), p2.At(1, 2)) {
		tst.Errorf("Rate scaling mismatch: %v vs %v", p1.At(1, 2), p2.At(1, 2))
	}
}

func TestF81Invalid(tst *testing.T) {
	for _, f := range [][]float64{{1}, {0.5, 0.6}, {0, 1}, {-0.5, 1.5}} {
		if _, err := NewF81(f); !errors.Is(err, ErrInvalidFrequencies) {
			tst.Errorf("Frequencies %v: expected an error, got %v", f, err)
		}
	}
}
