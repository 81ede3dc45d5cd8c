// Package alphabet maps character symbols to integer state indices
// and back. Ambiguity symbols (gaps, IUPAC codes, etc) map to a set of
// possible states.
package alphabet

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownSymbol is returned when a symbol is not a part of
	// an alphabet.
	ErrUnknownSymbol = errors.New("unknown symbol")
	// ErrUnknownAlphabet is returned by ByName.
	ErrUnknownAlphabet = errors.New("unknown alphabet")
)

// Alphabet is an ordered set of K symbols; symbol i corresponds to
// the state i. Alphabet is immutable once created.
type Alphabet struct {
	name    string
	symbols []byte
	// states maps every known symbol (upper and lower case) to a
	// vector of possible states, 1 for possible and 0 otherwise.
	states map[byte][]float64
	// definite maps symbols resolving to exactly one state to
	// that state.
	definite map[byte]int
}

// New creates a new alphabet. Symbols are the canonical states in
// their order. Ambiguities maps additional symbols to the symbols
// they can stand for; an empty string means any state. An
// ambiguity resolving to a single symbol is an alias (e.g. U for T).
// Symbols are case-insensitive.
func New(name string, symbols string, ambiguities map[byte]string) (*Alphabet, error) {
	if len(symbols) == 0 {
		return nil, errors.New("alphabet should have at least one symbol")
	}
	a := &Alphabet{
		name:     name,
		symbols:  []byte(strings.ToUpper(symbols)),
		states:   make(map[byte][]float64, 2*(len(symbols)+len(ambiguities))),
		definite: make(map[byte]int, 2*len(symbols)),
	}
	k := len(a.symbols)
	for i, s := range a.symbols {
		if _, ok := a.states[s]; ok {
			return nil, fmt.Errorf("duplicate symbol %q in alphabet %s", s, name)
		}
		v := make([]float64, k)
		v[i] = 1
		a.add(s, v)
	}
	for s, possible := range ambiguities {
		s = upper(s)
		if _, ok := a.states[s]; ok {
			return nil, fmt.Errorf("duplicate symbol %q in alphabet %s", s, name)
		}
		v := make([]float64, k)
		if possible == "" {
			for i := range v {
				v[i] = 1
			}
		}
		for _, p := range []byte(possible) {
			i := bytes.IndexByte(a.symbols, upper(p))
			if i < 0 {
				return nil, fmt.Errorf("%w %q in ambiguity %q of alphabet %s", ErrUnknownSymbol, p, s, name)
			}
			v[i] = 1
		}
		a.add(s, v)
	}
	return a, nil
}

// MustNew is like New but panics on error.
func MustNew(name string, symbols string, ambiguities map[byte]string) *Alphabet {
	a, err := New(name, symbols, ambiguities)
	if err != nil {
		panic(err)
	}
	return a
}

func upper(s byte) byte {
	if s >= 'a' && s <= 'z' {
		return s - 'a' + 'A'
	}
	return s
}

func lower(s byte) byte {
	if s >= 'A' && s <= 'Z' {
		return s - 'A' + 'a'
	}
	return s
}

// add registers symbol s (both cases) with the possible states v.
func (a *Alphabet) add(s byte, v []float64) {
	n := 0
	state := -1
	for i, p := range v {
		if p > 0 {
			n++
			state = i
		}
	}
	for _, c := range []byte{upper(s), lower(s)} {
		a.states[c] = v
		if n == 1 {
			a.definite[c] = state
		}
	}
}

// Name returns the alphabet name.
func (a *Alphabet) Name() string {
	return a.name
}

// StateCount returns the number of states (K).
func (a *Alphabet) StateCount() int {
	return len(a.symbols)
}

// Symbol returns the canonical symbol for a state.
func (a *Alphabet) Symbol(state int) byte {
	return a.symbols[state]
}

// Symbols returns canonical symbols in the state order.
func (a *Alphabet) Symbols() string {
	return string(a.symbols)
}

// State returns the state for a symbol resolving to a single state.
// The second value is false for ambiguous and unknown symbols.
func (a *Alphabet) State(symbol byte) (int, bool) {
	s, ok := a.definite[symbol]
	return s, ok
}

// Contains tests if the symbol is known to the alphabet.
func (a *Alphabet) Contains(symbol byte) bool {
	_, ok := a.states[symbol]
	return ok
}

// IsAmbiguous tests if the symbol stands for more than one state.
func (a *Alphabet) IsAmbiguous(symbol byte) bool {
	_, def := a.definite[symbol]
	return a.Contains(symbol) && !def
}

// Vector stores the probability vector of a symbol in dst and
// returns it. Definite symbols give a one-hot vector, ambiguous
// symbols give equal probabilities over the possible states. If dst
// is nil a new slice is allocated.
func (a *Alphabet) Vector(symbol byte, dst []float64) ([]float64, error) {
	v, ok := a.states[symbol]
	if !ok {
		return dst, fmt.Errorf("%w %q for alphabet %s", ErrUnknownSymbol, symbol, a.name)
	}
	if dst == nil {
		dst = make([]float64, len(v))
	}
	n := 0.0
	for _, p := range v {
		n += p
	}
	for i, p := range v {
		dst[i] = p / n
	}
	return dst, nil
}

// String converts a sequence of states into a string of symbols.
func (a *Alphabet) String(states []int) string {
	var b bytes.Buffer
	b.Grow(len(states))
	for _, s := range states {
		b.WriteByte(a.symbols[s])
	}
	return b.String()
}

// Predefined alphabets.
var (
	// Nucleotide is the DNA alphabet with IUPAC ambiguity codes.
	// U is read as T.
	Nucleotide = MustNew("nucleotide", "ACGT", map[byte]string{
		'U': "T",
		'R': "AG", 'Y': "CT", 'M': "AC", 'K': "GT", 'S': "CG", 'W': "AT",
		'B': "CGT", 'D': "AGT", 'H': "ACT", 'V': "ACG",
		'N': "", '?': "", '-': "",
	})
	// AminoAcid is the protein alphabet.
	AminoAcid = MustNew("aminoacid", "ACDEFGHIKLMNPQRSTVWY", map[byte]string{
		'B': "DN", 'Z': "EQ", 'J': "IL",
		'X': "", '?': "", '-': "", '*': "",
	})
	// Binary is the two-state alphabet.
	Binary = MustNew("binary", "01", map[byte]string{
		'?': "", '-': "",
	})
)

// ByName returns one of the predefined alphabets.
func ByName(name string) (*Alphabet, error) {
	switch strings.ToLower(name) {
	case "nucleotide", "dna":
		return Nucleotide, nil
	case "aminoacid", "protein":
		return AminoAcid, nil
	case "binary":
		return Binary, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownAlphabet, name)
}
