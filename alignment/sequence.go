package alignment

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/gonum/floats"
	"github.com/gonum/matrix/mat64"

	"bitbucket.org/Davydov/siterates/alphabet"
)

// Epsilon is the tolerance for probability vector normalization.
const Epsilon = 1e-10

var (
	// ErrMalformedProbabilityVector is returned when a site of a
	// probability block does not contain exactly K non-negative
	// numbers.
	ErrMalformedProbabilityVector = errors.New("malformed probability vector")
	// ErrProbabilityNormalization is returned when site
	// probabilities do not sum to one.
	ErrProbabilityNormalization = errors.New("probabilities do not sum to unity")
	// ErrUnknownSymbol is returned when a symbol is not a part of
	// the alphabet.
	ErrUnknownSymbol = alphabet.ErrUnknownSymbol
	// ErrSiteCountMismatch is returned when sequence lengths differ.
	ErrSiteCountMismatch = errors.New("site count mismatch")
	// ErrDuplicateTaxon is returned when two sequences have the
	// same taxon name.
	ErrDuplicateTaxon = errors.New("duplicate taxon")
	// ErrEmptyAlignment is returned for alignments without
	// sequences or sites.
	ErrEmptyAlignment = errors.New("empty alignment")
)

// decimal matches a plain unsigned decimal number, optionally with an
// exponent.
var decimal = regexp.MustCompile(`^(?:[0-9]+\.?[0-9]*|\.[0-9]+)(?:[eE][-+]?[0-9]+)?$`)

// Sequence is the raw input for one taxon: either a string of
// symbols or a block of per-site probability vectors.
type Sequence struct {
	Taxon     string
	data      string
	uncertain bool
}

// NewSequence creates a sequence of symbols, one per site, e.g. "ATT".
func NewSequence(taxon, symbols string) Sequence {
	return Sequence{Taxon: taxon, data: symbols}
}

// NewUncertainSequence creates a sequence from a probability block,
// e.g. "0.7,0.0,0.3,0.0; 0.0,0.3,0.0,0.7;".
func NewUncertainSequence(taxon, block string) Sequence {
	return Sequence{Taxon: taxon, data: block, uncertain: true}
}

// IsUncertain returns true for sequences created from a probability
// block.
func (s Sequence) IsUncertain() bool {
	return s.uncertain
}

// Data returns the raw sequence text.
func (s Sequence) Data() string {
	return s.data
}

// ParseProbabilities parses a probability block. Sites are
// separated by semicolons; every site is a comma separated list of
// exactly k non-negative numbers summing to one. Whitespace and a
// trailing semicolon are ignored.
func ParseProbabilities(block string, k int) ([][]float64, error) {
	segments := strings.Split(block, ";")
	if len(segments) > 0 && strings.TrimSpace(segments[len(segments)-1]) == "" {
		segments = segments[:len(segments)-1]
	}
	probs := make([][]float64, len(segments))
	for site, segment := range segments {
		v, err := parseSite(segment, k)
		if err != nil {
			return nil, fmt.Errorf("site %d: %w", site+1, err)
		}
		probs[site] = v
	}
	return probs, nil
}

// parseSite parses and validates one probability vector.
func parseSite(segment string, k int) ([]float64, error) {
	fields := strings.Split(segment, ",")
	if len(fields) != k {
		return nil, fmt.Errorf("%w: %d values instead of %d", ErrMalformedProbabilityVector, len(fields), k)
	}
	v := make([]float64, k)
	for i, f := range fields {
		f = strings.TrimSpace(f)
		if !decimal.MatchString(f) {
			return nil, fmt.Errorf("%w: %q is not a decimal number", ErrMalformedProbabilityVector, f)
		}
		p, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a number", ErrMalformedProbabilityVector, f)
		}
		if p < 0 || math.IsNaN(p) || math.IsInf(p, 0) {
			return nil, fmt.Errorf("%w: invalid probability %v", ErrMalformedProbabilityVector, p)
		}
		v[i] = p
	}
	if sum := floats.Sum(v); !floats.EqualWithinAbs(sum, 1, Epsilon) {
		return nil, fmt.Errorf("%w (sum=%v)", ErrProbabilityNormalization, sum)
	}
	return v, nil
}

// parse converts the sequence into a sites x K matrix of tip
// probabilities.
func (s Sequence) parse(a *alphabet.Alphabet) (*mat64.Dense, error) {
	k := a.StateCount()
	if s.uncertain {
		probs, err := ParseProbabilities(s.data, k)
		if err != nil {
			return nil, err
		}
		if len(probs) == 0 {
			return nil, fmt.Errorf("%w: no sites", ErrEmptyAlignment)
		}
		m := mat64.NewDense(len(probs), k, nil)
		for site, v := range probs {
			copy(m.RawRowView(site), v)
		}
		return m, nil
	}

	if len(s.data) == 0 {
		return nil, fmt.Errorf("%w: no sites", ErrEmptyAlignment)
	}
	m := mat64.NewDense(len(s.data), k, nil)
	for site := 0; site < len(s.data); site++ {
		if _, err := a.Vector(s.data[site], m.RawRowView(site)); err != nil {
			return nil, fmt.Errorf("site %d: %w", site+1, err)
		}
	}
	return m, nil
}
