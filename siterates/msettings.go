package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"bitbucket.org/Davydov/siterates/alphabet"
	"bitbucket.org/Davydov/siterates/sitemodel"
	"bitbucket.org/Davydov/siterates/substmodel"
)

// modelSettings stores settings for creating a new site model.
type modelSettings struct {
	configF  string
	subst    string
	ncat     int
	shape    float64
	pinv     float64
	mu       float64
	sepInv   bool
	mean     bool
	hard     bool
	siteCatF string
}

// newModelSettings initializes modelSettings from global
// variables (command-line arguments). Negative numeric values mean
// that the value is not set.
func newModelSettings() *modelSettings {
	return &modelSettings{
		configF:  *configF,
		subst:    *substModel,
		ncat:     *ncat,
		shape:    *shape,
		pinv:     *pinv,
		mu:       *mu,
		sepInv:   *sepInv,
		mean:     *mean,
		hard:     *hard,
		siteCatF: *siteCatF,
	}
}

// config reads the configuration file (if any) and applies the
// command-line overrides.
func (ms *modelSettings) config() (c sitemodel.Config, err error) {
	c = sitemodel.DefaultConfig()
	if ms.configF != "" {
		f, err := os.Open(ms.configF)
		if err != nil {
			return c, err
		}
		defer f.Close()
		c, err = sitemodel.LoadConfig(f)
		if err != nil {
			return c, err
		}
		log.Infof("Read site model configuration from %s", ms.configF)
	}
	if ms.subst != "" {
		c.SubstModelName = ms.subst
	}
	if ms.ncat >= 0 {
		c.CategoryCount = ms.ncat
	}
	if ms.shape >= 0 {
		c.Shape = ms.shape
	}
	if ms.pinv >= 0 {
		c.ProportionInvariant = ms.pinv
	}
	if ms.mu >= 0 {
		c.Mu = ms.mu
	}
	if ms.sepInv {
		c.InvariantIsCategory = false
	}
	if ms.mean {
		c.Median = false
	}
	if ms.hard {
		c.IntegrateAcrossCategories = false
	}
	if c.CategoryCount > 1 && c.Shape == 0 {
		log.Warning("Gamma shape is not set, using shape=1")
		c.Shape = 1
	}
	return c, nil
}

// getSubstModel returns a substitution model by name. Equal
// frequencies are used if freq is nil.
func getSubstModel(name string, a *alphabet.Alphabet, freq []float64) (substmodel.SubstitutionModel, error) {
	switch name {
	case "jc", "":
		log.Info("Using Jukes-Cantor model")
		return substmodel.NewJukesCantor(a.StateCount()), nil
	case "f81":
		if freq == nil {
			log.Info("Using F81 model with equal frequencies")
			return substmodel.NewJukesCantor(a.StateCount()), nil
		}
		log.Infof("Using F81 model, frequencies: %v", freq)
		return substmodel.NewF81(freq)
	}
	return nil, fmt.Errorf("Unknown substitution model: %s", name)
}

// create creates a new site model.
func (ms *modelSettings) create(a *alphabet.Alphabet, freq []float64) (*sitemodel.SiteModel, error) {
	c, err := ms.config()
	if err != nil {
		return nil, err
	}
	c.SubstModel, err = getSubstModel(c.SubstModelName, a, freq)
	if err != nil {
		return nil, err
	}
	sm, err := sitemodel.New(c, a)
	if err != nil {
		return nil, err
	}
	if !c.IntegrateAcrossCategories && ms.siteCatF != "" {
		cats, err := readSiteCategories(ms.siteCatF)
		if err != nil {
			return nil, err
		}
		log.Infof("Read %d site categories", len(cats))
		sm.SetSiteCategories(cats)
	}
	log.Infof("Site model has %d categories", sm.CategoryCount())
	return sm, nil
}

// readSiteCategories reads whitespace or comma separated category
// indices.
func readSiteCategories(fn string) ([]int, error) {
	b, err := os.ReadFile(fn)
	if err != nil {
		return nil, err
	}
	fields := strings.Fields(strings.Replace(string(b), ",", " ", -1))
	cats := make([]int, len(fields))
	for i, f := range fields {
		cats[i], err = strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("site %d: %v", i+1, err)
		}
	}
	return cats, nil
}
