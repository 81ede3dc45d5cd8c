// Package sitemodel implements across-site rate heterogeneity:
// discrete gamma rate categories with an optional proportion of
// invariant sites.
//
// Category rates and proportions are derived values. Every change
// of the configuration bumps the model generation; derived values
// are recomputed on the first read of a new generation. A model can
// be read concurrently as long as it is not modified at the same
// time.
package sitemodel

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/op/go-logging"

	"bitbucket.org/Davydov/siterates/alphabet"
	"bitbucket.org/Davydov/siterates/dist"
	"bitbucket.org/Davydov/siterates/optimize"
	"bitbucket.org/Davydov/siterates/substmodel"
)

// log is the global logging variable.
var log = logging.MustGetLogger("sitemodel")

var (
	// ErrCategoryAccessViolation is the panic value when a site
	// category is requested while integrating across categories.
	ErrCategoryAccessViolation = errors.New("site category is not defined when integrating across categories")
	// ErrIncompatibleSubstModel is returned when the substitution
	// model cannot handle the alphabet.
	ErrIncompatibleSubstModel = errors.New("substitution model cannot handle the alphabet")
)

// Node is a tree node (branch) the rates are computed for.
type Node interface {
	ID() int
}

// BranchRateModel provides a rate multiplier for every branch.
type BranchRateModel interface {
	BranchRate(Node) float64
}

// SiteModel specifies how rates vary across sites.
type SiteModel struct {
	substModel  substmodel.SubstitutionModel
	branchRates BranchRateModel
	alphabet    *alphabet.Alphabet

	// number of gamma categories
	ncat      int
	shape     float64
	pinv      float64
	mu        float64
	invCat    bool
	integrate bool
	median    bool

	siteCategories []int

	parameters optimize.FloatParameters

	lock       sync.Mutex
	generation uint64
	computed   uint64
	err        error
	rates      []float64
	props      []float64
	tmp        []float64
}

// New creates a new site model for the alphabet.
func New(c Config, a *alphabet.Alphabet) (*SiteModel, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if a == nil {
		return nil, fmt.Errorf("%w: alphabet is required", ErrInvalidConfig)
	}
	if !c.SubstModel.CanHandle(a) {
		return nil, fmt.Errorf("%w: %d states, alphabet %s has %d",
			ErrIncompatibleSubstModel, c.SubstModel.StateCount(), a.Name(), a.StateCount())
	}
	m := &SiteModel{
		substModel:  c.SubstModel,
		branchRates: c.BranchRates,
		alphabet:    a,
		ncat:        c.CategoryCount,
		shape:       c.Shape,
		pinv:        c.ProportionInvariant,
		mu:          c.Mu,
		invCat:      c.InvariantIsCategory,
		integrate:   c.IntegrateAcrossCategories,
		median:      c.Median,
		generation:  1,
	}
	m.setupParameters()
	log.Debugf("Site model: %d gamma categories, shape=%v, pinv=%v, mu=%v",
		m.ncat, m.shape, m.pinv, m.mu)
	return m, nil
}

// Copy creates a copy of the model with the same configuration.
func (m *SiteModel) Copy() *SiteModel {
	newM := &SiteModel{
		substModel:     m.substModel,
		branchRates:    m.branchRates,
		alphabet:       m.alphabet,
		ncat:           m.ncat,
		shape:          m.shape,
		pinv:           m.pinv,
		mu:             m.mu,
		invCat:         m.invCat,
		integrate:      m.integrate,
		median:         m.median,
		siteCategories: append([]int(nil), m.siteCategories...),
		generation:     1,
	}
	newM.setupParameters()
	return newM
}

// invalidate marks derived values as stale.
func (m *SiteModel) invalidate() {
	m.generation++
}

// Generation returns the configuration generation. It changes
// every time the configuration changes.
func (m *SiteModel) Generation() uint64 {
	return m.generation
}

// hasInvariantCategory returns true if category 0 is the invariant
// category.
func (m *SiteModel) hasInvariantCategory() bool {
	return m.invCat && m.pinv > 0
}

// check returns an error if the current values cannot be used to
// compute categories. Values set through the float parameters are
// not validated when they are set.
func (m *SiteModel) check() error {
	switch {
	case m.pinv < 0 || m.pinv >= 1 || math.IsNaN(m.pinv):
		return fmt.Errorf("%w: proportion invariant should be in [0, 1), got %v", ErrInvalidConfig, m.pinv)
	case m.ncat > 1 && !(m.shape > 0):
		return fmt.Errorf("%w: shape should be positive, got %v", ErrInvalidConfig, m.shape)
	case !(m.mu > 0):
		return fmt.Errorf("%w: mu should be positive, got %v", ErrInvalidConfig, m.mu)
	}
	return nil
}

// update recomputes rates and proportions if the configuration has
// changed. Invalid values give NaN rates and proportions.
func (m *SiteModel) update() {
	m.lock.Lock()
	defer m.lock.Unlock()
	if m.computed == m.generation {
		return
	}

	offset := 0
	if m.hasInvariantCategory() {
		offset = 1
	}
	n := m.ncat + offset
	if cap(m.rates) < n {
		m.rates = make([]float64, n)
		m.props = make([]float64, n)
	}
	m.rates = m.rates[:n]
	m.props = m.props[:n]
	m.computed = m.generation

	if m.err = m.check(); m.err != nil {
		log.Warning(m.err)
		for i := range m.rates {
			m.rates[i] = math.NaN()
			m.props[i] = math.NaN()
		}
		return
	}

	// proportions of the gamma categories sum to one unless the
	// invariant category takes its share
	propVariable := 1 - m.pinv
	propGamma := 1.0
	if offset == 1 {
		m.rates[0] = 0
		m.props[0] = m.pinv
		propGamma = propVariable
	}

	// variable sites rates are scaled so the mean rate over all
	// the sites is 1
	if m.ncat > 1 {
		if len(m.tmp) < m.ncat {
			m.tmp = make([]float64, m.ncat)
		}
		dist.DiscreteGamma(m.shape, m.shape, m.ncat, m.median, m.tmp, m.rates[offset:])
		for i := offset; i < n; i++ {
			m.rates[i] /= propVariable
			m.props[i] = propGamma / float64(m.ncat)
		}
	} else {
		m.rates[offset] = 1 / propVariable
		m.props[offset] = propGamma
	}

	log.Debugf("Category rates: %v, proportions: %v", m.rates, m.props)
}

// Valid returns nil if the current values define a valid model. It
// returns the validation error otherwise, e.g. after an optimizer
// set pinv outside of [0, 1).
func (m *SiteModel) Valid() error {
	m.update()
	return m.err
}

// SubstitutionModel returns the substitution model.
func (m *SiteModel) SubstitutionModel() substmodel.SubstitutionModel {
	return m.substModel
}

// Alphabet returns the alphabet the model was created for.
func (m *SiteModel) Alphabet() *alphabet.Alphabet {
	return m.alphabet
}

// IntegrateAcrossCategories returns true if the likelihood is a
// weighted sum over all the categories at every site.
func (m *SiteModel) IntegrateAcrossCategories() bool {
	return m.integrate
}

// InvariantIsCategory returns true if invariant sites are counted
// as a separate category.
func (m *SiteModel) InvariantIsCategory() bool {
	return m.invCat
}

// CategoryCount returns the number of categories. It includes the
// invariant category only if the invariant sites are a category.
func (m *SiteModel) CategoryCount() int {
	m.update()
	return len(m.rates)
}

// branchRate returns the rate multiplier for a node.
func (m *SiteModel) branchRate(node Node) float64 {
	if m.branchRates == nil || node == nil {
		return 1
	}
	return m.branchRates.BranchRate(node)
}

// Rate returns the rate for a category including mu and the branch
// rate.
func (m *SiteModel) Rate(category int, node Node) float64 {
	m.update()
	r := m.mu * m.branchRate(node)
	return m.rates[category] * r
}

// CategoryRates returns rates for all the categories.
func (m *SiteModel) CategoryRates(node Node) []float64 {
	m.update()
	r := m.mu * m.branchRate(node)
	rates := make([]float64, len(m.rates))
	for i, rate := range m.rates {
		rates[i] = rate * r
	}
	return rates
}

// Proportion returns the expected proportion of sites in a
// category.
func (m *SiteModel) Proportion(category int, node Node) float64 {
	m.update()
	return m.props[category]
}

// CategoryProportions returns proportions for all the categories.
// They sum to one. If the invariant sites are not a category the
// proportions are conditional on a site being variable and the
// likelihood evaluator weights them by 1-ProportionInvariant().
func (m *SiteModel) CategoryProportions(node Node) []float64 {
	m.update()
	return append([]float64(nil), m.props...)
}

// CategoryOfSite returns the category of a site. It panics with
// ErrCategoryAccessViolation when integrating across categories.
// Sites without a valid assigned category belong to the first
// variable category.
func (m *SiteModel) CategoryOfSite(site int, node Node) int {
	if m.integrate {
		panic(fmt.Errorf("%w (site %d)", ErrCategoryAccessViolation, site))
	}
	m.update()
	if site >= 0 && site < len(m.siteCategories) {
		if c := m.siteCategories[site]; c >= 0 && c < len(m.rates) {
			return c
		}
	}
	if m.hasInvariantCategory() {
		return 1
	}
	return 0
}

// SetSiteCategories assigns categories to sites. It is used only
// when not integrating across categories.
func (m *SiteModel) SetSiteCategories(categories []int) {
	m.siteCategories = append(m.siteCategories[:0], categories...)
}

// ProportionInvariant returns the proportion of invariant sites.
func (m *SiteModel) ProportionInvariant() float64 {
	return m.pinv
}

// Shape returns the gamma shape parameter.
func (m *SiteModel) Shape() float64 {
	return m.shape
}

// Mu returns the overall rate multiplier.
func (m *SiteModel) Mu() float64 {
	return m.mu
}

// Median returns true if the gamma categories are represented by
// medians.
func (m *SiteModel) Median() bool {
	return m.median
}

// GammaCategoryCount returns the number of gamma categories.
func (m *SiteModel) GammaCategoryCount() int {
	return m.ncat
}

// SetShape sets the gamma shape parameter.
func (m *SiteModel) SetShape(shape float64) error {
	if shape <= 0 && m.ncat > 1 {
		return fmt.Errorf("%w: shape should be positive, got %v", ErrInvalidConfig, shape)
	}
	m.shape = shape
	m.invalidate()
	return nil
}

// SetCategoryCount sets the number of gamma categories.
func (m *SiteModel) SetCategoryCount(ncat int) error {
	if ncat < 1 {
		return fmt.Errorf("%w: category count should be >= 1, got %d", ErrInvalidConfig, ncat)
	}
	if ncat > 1 && m.shape <= 0 {
		return fmt.Errorf("%w: shape should be set for gamma categories", ErrInvalidConfig)
	}
	m.ncat = ncat
	m.setupParameters()
	m.invalidate()
	return nil
}

// SetProportionInvariant sets the proportion of invariant sites.
func (m *SiteModel) SetProportionInvariant(pinv float64) error {
	if pinv < 0 || pinv >= 1 {
		return fmt.Errorf("%w: proportion invariant should be in [0, 1), got %v", ErrInvalidConfig, pinv)
	}
	m.pinv = pinv
	m.invalidate()
	return nil
}

// SetMu sets the overall rate multiplier.
func (m *SiteModel) SetMu(mu float64) error {
	if mu <= 0 {
		return fmt.Errorf("%w: mu should be positive, got %v", ErrInvalidConfig, mu)
	}
	m.mu = mu
	m.invalidate()
	return nil
}

// SetInvariantIsCategory sets whether the invariant sites are a
// separate category.
func (m *SiteModel) SetInvariantIsCategory(invCat bool) {
	m.invCat = invCat
	m.invalidate()
}

// SetIntegrateAcrossCategories sets the likelihood evaluation mode.
func (m *SiteModel) SetIntegrateAcrossCategories(integrate bool) {
	m.integrate = integrate
	m.invalidate()
}

// Summary stores the site model state.
type Summary struct {
	CategoryCount       int       `json:"categoryCount"`
	Shape               float64   `json:"shape,omitempty"`
	ProportionInvariant float64   `json:"proportionInvariant"`
	Mu                  float64   `json:"mu"`
	InvariantIsCategory bool      `json:"invariantIsCategory"`
	Rates               []float64 `json:"rates"`
	Proportions         []float64 `json:"proportions"`
}

// Summary returns the current rates and proportions.
func (m *SiteModel) Summary() Summary {
	s := Summary{
		CategoryCount:       m.CategoryCount(),
		ProportionInvariant: m.pinv,
		Mu:                  m.mu,
		InvariantIsCategory: m.hasInvariantCategory(),
		Rates:               m.CategoryRates(nil),
		Proportions:         m.CategoryProportions(nil),
	}
	if m.ncat > 1 {
		s.Shape = m.shape
	}
	return s
}
