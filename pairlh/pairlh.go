// Package pairlh computes the likelihood of two aligned sequences
// separated by a single branch. The likelihood either integrates
// across the rate categories of a site model or uses per-site
// categories.
package pairlh

import (
	"errors"
	"fmt"
	"math"

	"github.com/gonum/floats"
	"github.com/gonum/matrix/mat64"
	"github.com/op/go-logging"

	"bitbucket.org/Davydov/siterates/alignment"
	"bitbucket.org/Davydov/siterates/optimize"
	"bitbucket.org/Davydov/siterates/sitemodel"
)

// log is the global logging variable.
var log = logging.MustGetLogger("pairlh")

// DistanceName is the name of the distance parameter.
const DistanceName = "distance"

// ErrIncompatible is returned when the site model and the alignment
// have different numbers of states.
var ErrIncompatible = errors.New("site model is incompatible with the alignment")

// Branch is the branch connecting the two taxa.
type Branch int

// ID returns the branch id.
func (b Branch) ID() int {
	return int(b)
}

// Model is a two-taxon likelihood model.
type Model struct {
	al       *alignment.Alignment
	sm       *sitemodel.SiteModel
	tx, ty   int
	x, y     *mat64.Dense
	freq     []float64
	distance float64

	fixedSiteModel bool
	parameters     optimize.FloatParameters

	// transition matrices for every category
	p     []*mat64.Dense
	pdone bool
	smGen uint64

	// temporary storage
	fx  []float64
	lcs []float64
}

// New creates a model for taxa tx and ty of an alignment.
func New(al *alignment.Alignment, sm *sitemodel.SiteModel, tx, ty int) (*Model, error) {
	k := al.Alphabet().StateCount()
	if sm.SubstitutionModel().StateCount() != k {
		return nil, fmt.Errorf("%w: %d states vs %d", ErrIncompatible,
			sm.SubstitutionModel().StateCount(), k)
	}
	for _, t := range []int{tx, ty} {
		if t < 0 || t >= al.TaxonCount() {
			return nil, fmt.Errorf("taxon index %d is out of range [0, %d)", t, al.TaxonCount())
		}
	}
	m := &Model{
		al:       al,
		sm:       sm,
		tx:       tx,
		ty:       ty,
		x:        al.TipProbabilities(tx),
		y:        al.TipProbabilities(ty),
		freq:     sm.SubstitutionModel().Frequencies(),
		distance: 0.1,
		fx:       make([]float64, k),
	}
	m.setupParameters()
	return m, nil
}

// Copy creates a copy of the model with a copy of the site model.
func (m *Model) Copy() optimize.Optimizable {
	newM := &Model{
		al:             m.al,
		sm:             m.sm.Copy(),
		tx:             m.tx,
		ty:             m.ty,
		x:              m.x,
		y:              m.y,
		freq:           m.freq,
		distance:       m.distance,
		fixedSiteModel: m.fixedSiteModel,
		fx:             make([]float64, len(m.fx)),
	}
	newM.setupParameters()
	return newM
}

// setupParameters creates the parameter storage. Mu is never
// optimized since it is confounded with the distance.
func (m *Model) setupParameters() {
	m.parameters = nil
	distance := optimize.NewBasicFloatParameter(&m.distance, DistanceName)
	distance.SetOnChange(func() {
		m.pdone = false
	})
	distance.SetPriorFunc(optimize.ExponentialPrior(10, true))
	distance.SetMin(1e-6)
	distance.SetMax(10)
	m.parameters.Append(distance)

	if m.fixedSiteModel {
		return
	}
	for _, par := range m.sm.GetFloatParameters() {
		if par.Name() != sitemodel.MuName {
			m.parameters.Append(par)
		}
	}
}

// SetFixedSiteModel sets whether the site model parameters are
// optimized together with the distance.
func (m *Model) SetFixedSiteModel(fixed bool) {
	m.fixedSiteModel = fixed
	m.setupParameters()
}

// GetFloatParameters returns the parameters to optimize.
func (m *Model) GetFloatParameters() optimize.FloatParameters {
	return m.parameters
}

// SiteModel returns the site model.
func (m *Model) SiteModel() *sitemodel.SiteModel {
	return m.sm
}

// Distance returns the branch length between the taxa.
func (m *Model) Distance() float64 {
	return m.distance
}

// SetDistance sets the branch length between the taxa.
func (m *Model) SetDistance(d float64) {
	m.parameters[0].Set(d)
}

// Taxa returns the names of the two taxa.
func (m *Model) Taxa() (string, string) {
	taxa := m.al.Taxa()
	return taxa[m.tx], taxa[m.ty]
}

// updateMatrices computes transition matrices for all the categories
// if the distance or the site model have changed.
func (m *Model) updateMatrices() {
	if m.pdone && m.smGen == m.sm.Generation() {
		return
	}
	ncat := m.sm.CategoryCount()
	if len(m.p) != ncat {
		m.p = make([]*mat64.Dense, ncat)
	}
	rates := m.sm.CategoryRates(Branch(0))
	subst := m.sm.SubstitutionModel()
	for c, rate := range rates {
		m.p[c] = subst.TransitionProbabilities(rate, m.distance, m.p[c])
	}
	if len(m.lcs) != ncat {
		m.lcs = make([]float64, ncat)
	}
	m.pdone = true
	m.smGen = m.sm.Generation()
}

// categoryLikelihoods computes the likelihood of a site for every
// category.
func (m *Model) categoryLikelihoods(site int) {
	xs := m.x.RawRowView(site)
	ys := m.y.RawRowView(site)
	floats.MulTo(m.fx, m.freq, xs)
	for c, p := range m.p {
		l := 0.0
		for i, f := range m.fx {
			if f != 0 {
				l += f * floats.Dot(p.RawRowView(i), ys)
			}
		}
		m.lcs[c] = l
	}
}

// siteLikelihood returns the likelihood of a site.
func (m *Model) siteLikelihood(site int, props []float64, pinv float64) float64 {
	m.categoryLikelihoods(site)
	if !m.sm.IntegrateAcrossCategories() {
		return m.lcs[m.sm.CategoryOfSite(site, Branch(0))]
	}
	l := floats.Dot(props, m.lcs)
	if pinv > 0 {
		// both sequences have the same state
		l = (1-pinv)*l + pinv*floats.Dot(m.fx, m.y.RawRowView(site))
	}
	return l
}

// SiteLikelihoods returns log-likelihoods for every site. If dst is
// not nil it is reused.
func (m *Model) SiteLikelihoods(dst []float64) []float64 {
	if dst == nil {
		dst = make([]float64, m.al.SiteCount())
	}
	m.updateMatrices()
	props := m.sm.CategoryProportions(Branch(0))
	pinv := 0.0
	if !m.sm.InvariantIsCategory() {
		pinv = m.sm.ProportionInvariant()
	}
	for site := range dst {
		dst[site] = math.Log(m.siteLikelihood(site, props, pinv))
	}
	return dst
}

// Likelihood returns the log-likelihood. It is -Inf if the site
// model parameters are out of range.
func (m *Model) Likelihood() (lnL float64) {
	if err := m.sm.Valid(); err != nil {
		return math.Inf(-1)
	}
	lnL = floats.Sum(m.SiteLikelihoods(nil))
	if math.IsNaN(lnL) {
		log.Warningf("NaN likelihood for %v", m.parameters.ValuesString())
		return math.Inf(-1)
	}
	return
}
