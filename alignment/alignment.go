// Package alignment stores sequence alignments where every taxon is
// given either as definite symbols or as per-site probability
// vectors. An alignment provides tip probabilities and
// representative (most probable) states.
package alignment

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/gonum/floats"
	"github.com/gonum/matrix/mat64"
	"github.com/op/go-logging"
	"golang.org/x/sync/errgroup"

	"bitbucket.org/Davydov/siterates/alphabet"
	"bitbucket.org/Davydov/siterates/bio"
)

// log is the global logging variable.
var log = logging.MustGetLogger("alignment")

// Alignment is an immutable set of sequences sharing an alphabet
// and a site count. Taxon order is the insertion order.
type Alignment struct {
	alphabet  *alphabet.Alphabet
	taxa      []string
	index     map[string]int
	uncertain []bool
	nSites    int
	// tips stores a sites x K matrix for every taxon.
	tips []*mat64.Dense
	// states stores representative states for every taxon.
	states [][]int
}

// New creates an alignment. Either all the sequences are valid and
// the alignment is returned, or an error is returned and no
// alignment is created.
func New(a *alphabet.Alphabet, seqs ...Sequence) (*Alignment, error) {
	if a == nil {
		return nil, fmt.Errorf("alphabet is required")
	}
	if len(seqs) == 0 {
		return nil, fmt.Errorf("%w: no sequences", ErrEmptyAlignment)
	}

	al := &Alignment{
		alphabet:  a,
		taxa:      make([]string, len(seqs)),
		index:     make(map[string]int, len(seqs)),
		uncertain: make([]bool, len(seqs)),
		tips:      make([]*mat64.Dense, len(seqs)),
		states:    make([][]int, len(seqs)),
	}
	for i, s := range seqs {
		if _, ok := al.index[s.Taxon]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateTaxon, s.Taxon)
		}
		al.index[s.Taxon] = i
		al.taxa[i] = s.Taxon
		al.uncertain[i] = s.uncertain
	}

	// every sequence stores its results (and errors) at its own
	// index, so the result does not depend on the scheduling
	errs := make([]error, len(seqs))
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := range seqs {
		g.Go(func() error {
			m, err := seqs[i].parse(a)
			if err != nil {
				errs[i] = fmt.Errorf("taxon %s: %w", seqs[i].Taxon, err)
				return errs[i]
			}
			al.tips[i] = m
			al.states[i] = representative(m)
			return nil
		})
	}
	g.Wait()

	// sequences are checked in taxon order, the first error of
	// either kind is returned
	for i, m := range al.tips {
		if errs[i] != nil {
			return nil, errs[i]
		}
		r, _ := m.Dims()
		if i == 0 {
			al.nSites = r
		} else if r != al.nSites {
			return nil, fmt.Errorf("%w: taxon %s has %d sites, expected %d",
				ErrSiteCountMismatch, al.taxa[i], r, al.nSites)
		}
	}

	log.Debugf("Alignment: %d taxa, %d sites, %d ambiguous cells",
		al.TaxonCount(), al.SiteCount(), al.NAmbiguous())
	return al, nil
}

// representative computes the most probable state for every site.
// For equal probabilities the lowest state wins.
func representative(m *mat64.Dense) []int {
	r, _ := m.Dims()
	states := make([]int, r)
	for site := range states {
		states[site] = floats.MaxIdx(m.RawRowView(site))
	}
	return states
}

// FromFasta creates an alignment from FASTA records. Records
// containing a semicolon or a comma are read as probability
// blocks, the rest as symbols.
func FromFasta(a *alphabet.Alphabet, seqs bio.Sequences) (*Alignment, error) {
	ss := make([]Sequence, len(seqs))
	for i, s := range seqs {
		if strings.ContainsAny(s.Sequence, ";,") {
			ss[i] = NewUncertainSequence(s.Name, s.Sequence)
		} else {
			ss[i] = NewSequence(s.Name, s.Sequence)
		}
	}
	return New(a, ss...)
}

// Alphabet returns the alignment alphabet.
func (al *Alignment) Alphabet() *alphabet.Alphabet {
	return al.alphabet
}

// TaxonCount returns the number of taxa.
func (al *Alignment) TaxonCount() int {
	return len(al.taxa)
}

// SiteCount returns the number of sites.
func (al *Alignment) SiteCount() int {
	return al.nSites
}

// Taxa returns the taxon names in the canonical order.
func (al *Alignment) Taxa() []string {
	return append([]string(nil), al.taxa...)
}

// TaxonIndex returns the index of a taxon.
func (al *Alignment) TaxonIndex(name string) (int, bool) {
	i, ok := al.index[name]
	return i, ok
}

// IsUncertain returns true if the taxon was given as a probability
// block.
func (al *Alignment) IsUncertain(taxon int) bool {
	return al.uncertain[taxon]
}

// TipProbability returns a copy of the probability vector for a
// taxon and a site.
func (al *Alignment) TipProbability(taxon, site int) []float64 {
	return mat64.Row(nil, site, al.tips[taxon])
}

// TipProbabilities returns a copy of the sites x K tip probability
// matrix of a taxon.
func (al *Alignment) TipProbabilities(taxon int) *mat64.Dense {
	return mat64.DenseCopyOf(al.tips[taxon])
}

// States returns a copy of representative states of a taxon.
func (al *Alignment) States(taxon int) []int {
	return append([]int(nil), al.states[taxon]...)
}

// RepresentativeStates returns representative states for all the
// taxa in the canonical order.
func (al *Alignment) RepresentativeStates() [][]int {
	res := make([][]int, len(al.states))
	for i := range al.states {
		res[i] = al.States(i)
	}
	return res
}

// oneHot returns the state if the vector has a single non-zero
// entry.
func oneHot(v []float64) (int, bool) {
	state := -1
	for i, p := range v {
		if p != 0 {
			if state >= 0 {
				return -1, false
			}
			state = i
		}
	}
	return state, state >= 0
}

// NAmbiguous returns the number of taxon and site pairs without a
// definite state.
func (al *Alignment) NAmbiguous() (n int) {
	for _, m := range al.tips {
		for site := 0; site < al.nSites; site++ {
			if _, ok := oneHot(m.RawRowView(site)); !ok {
				n++
			}
		}
	}
	return
}

// Fixed returns a slice; true means that all the taxa have the same
// definite state at the site.
func (al *Alignment) Fixed() []bool {
	fixed := make([]bool, al.nSites)
	for site := range fixed {
		fixed[site] = true
		prev := -1
		for _, m := range al.tips {
			state, ok := oneHot(m.RawRowView(site))
			if !ok || (prev >= 0 && state != prev) {
				fixed[site] = false
				break
			}
			prev = state
		}
	}
	return fixed
}

// NFixed returns the number of fixed sites.
func (al *Alignment) NFixed() (n int) {
	for _, f := range al.Fixed() {
		if f {
			n++
		}
	}
	return
}

// Frequencies returns empirical state frequencies computed by
// averaging tip probabilities. Completely uninformative cells (equal
// probabilities for all the states) are skipped.
func (al *Alignment) Frequencies() []float64 {
	k := al.alphabet.StateCount()
	freq := make([]float64, k)
	n := 0
	for _, m := range al.tips {
		for site := 0; site < al.nSites; site++ {
			row := m.RawRowView(site)
			if k > 1 && floats.Min(row) == floats.Max(row) {
				continue
			}
			floats.Add(freq, row)
			n++
		}
	}
	if n == 0 {
		log.Warning("No informative sites, using equal frequencies")
		for i := range freq {
			freq[i] = 1
		}
	}
	floats.Scale(1/floats.Sum(freq), freq)
	return freq
}

// Representative returns the representative states as FASTA
// records.
func (al *Alignment) Representative() bio.Sequences {
	seqs := make(bio.Sequences, len(al.taxa))
	for i, taxon := range al.taxa {
		seqs[i] = bio.Sequence{
			Name:     taxon,
			Sequence: al.alphabet.String(al.states[i]),
		}
	}
	return seqs
}

// String returns the representative sequences in FASTA format.
func (al *Alignment) String() string {
	return al.Representative().String()
}
