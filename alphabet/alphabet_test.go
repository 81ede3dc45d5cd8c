package alphabet

import (
	"errors"
	"math"
	"testing"
)

const smallDiff = 1e-12

func TestNucleotideStates(tst *testing.T) {
	if Nucleotide.StateCount() != 4 {
		tst.Fatal("Wrong number of nucleotide states:", Nucleotide.StateCount())
	}
	for i, s := range []byte("ACGT") {
		st, ok := Nucleotide.State(s)
		if !ok || st != i {
			tst.Errorf("Wrong state for %c: %d (%v)", s, st, ok)
		}
		st, ok = Nucleotide.State(s - 'A' + 'a')
		if !ok || st != i {
			tst.Errorf("Wrong state for lower case %c: %d (%v)", s, st, ok)
		}
		if Nucleotide.Symbol(i) != s {
			tst.Errorf("Wrong symbol for state %d: %c", i, Nucleotide.Symbol(i))
		}
	}
	if st, ok := Nucleotide.State('U'); !ok || st != 3 {
		tst.Error("U should be an alias for T, got", st, ok)
	}
	if _, ok := Nucleotide.State('N'); ok {
		tst.Error("N should not resolve to a single state")
	}
	if !Nucleotide.IsAmbiguous('r') || Nucleotide.IsAmbiguous('A') || Nucleotide.IsAmbiguous('Z') {
		tst.Error("Incorrect ambiguity detection")
	}
}

func TestVector(tst *testing.T) {
	v, err := Nucleotide.Vector('G', nil)
	if err != nil {
		tst.Fatal("Error: ", err)
	}
	exp := []float64{0, 0, 1, 0}
	for i := range exp {
		if v[i] != exp[i] {
			tst.Error("Expected", exp, "got", v)
			break
		}
	}

	v, err = Nucleotide.Vector('Y', v)
	if err != nil {
		tst.Fatal("Error: ", err)
	}
	exp = []float64{0, 0.5, 0, 0.5}
	for i := range exp {
		if math.Abs(v[i]-exp[i]) > smallDiff {
			tst.Error("Expected", exp, "got", v)
			break
		}
	}

	for _, s := range []byte("-?Nn") {
		v, err = Nucleotide.Vector(s, v)
		if err != nil {
			tst.Fatal("Error: ", err)
		}
		for i := range v {
			if math.Abs(v[i]-0.25) > smallDiff {
				tst.Errorf("Gap symbol %c should be uniform, got %v", s, v)
				break
			}
		}
	}

	_, err = Nucleotide.Vector('J', nil)
	if !errors.Is(err, ErrUnknownSymbol) {
		tst.Error("Expected unknown symbol error, got", err)
	}
}

func TestString(tst *testing.T) {
	s := Nucleotide.String([]int{0, 3, 3, 1})
	if s != "ATTC" {
		tst.Error("Expected ATTC, got", s)
	}
	s = AminoAcid.String([]int{0, 19})
	if s != "AY" {
		tst.Error("Expected AY, got", s)
	}
}

func TestNew(tst *testing.T) {
	a, err := New("custom", "xyz", map[byte]string{'?': "", 'q': "xz"})
	if err != nil {
		tst.Fatal("Error: ", err)
	}
	if a.StateCount() != 3 || a.Symbols() != "XYZ" || a.Name() != "custom" {
		tst.Error("Incorrect custom alphabet:", a.Name(), a.Symbols())
	}
	v, err := a.Vector('Q', nil)
	if err != nil {
		tst.Fatal("Error: ", err)
	}
	if v[0] != 0.5 || v[1] != 0 || v[2] != 0.5 {
		tst.Error("Incorrect ambiguity vector:", v)
	}

	if _, err := New("dup", "AA", nil); err == nil {
		tst.Error("Duplicate symbols should be rejected")
	}
	if _, err := New("bad", "AC", map[byte]string{'R': "AG"}); !errors.Is(err, ErrUnknownSymbol) {
		tst.Error("Expected unknown symbol error, got", err)
	}
	if _, err := New("empty", "", nil); err == nil {
		tst.Error("Empty alphabet should be rejected")
	}
}

func TestByName(tst *testing.T) {
	for name, exp := range map[string]*Alphabet{
		"nucleotide": Nucleotide,
		"DNA":        Nucleotide,
		"protein":    AminoAcid,
		"binary":     Binary,
	} {
		a, err := ByName(name)
		if err != nil || a != exp {
			tst.Error("Wrong alphabet for", name, err)
		}
	}
	if _, err := ByName("codon"); !errors.Is(err, ErrUnknownAlphabet) {
		tst.Error("Expected unknown alphabet error, got", err)
	}
}
