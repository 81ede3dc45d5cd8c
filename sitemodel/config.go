package sitemodel

import (
	"errors"
	"fmt"
	"io"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"bitbucket.org/Davydov/siterates/substmodel"
)

// ErrInvalidConfig is returned when a configuration does not pass
// validation.
var ErrInvalidConfig = errors.New("invalid site model configuration")

// configValidate is the validator instance for Config.
var configValidate *validator.Validate

func init() {
	configValidate = validator.New()
	configValidate.RegisterStructValidation(validateShape, Config{})
}

// validateShape requires a positive shape for more than one gamma
// category.
func validateShape(sl validator.StructLevel) {
	c := sl.Current().Interface().(Config)
	if c.CategoryCount > 1 && c.Shape <= 0 {
		sl.ReportError(c.Shape, "Shape", "shape", "gammashape", "")
	}
}

// Config is the site model configuration.
type Config struct {
	// SubstModel is the substitution model along the branches.
	SubstModel substmodel.SubstitutionModel `yaml:"-" validate:"required"`
	// BranchRates scales rates per branch, can be nil.
	BranchRates BranchRateModel `yaml:"-"`
	// SubstModelName is used by the command line tool to create
	// SubstModel.
	SubstModelName string `yaml:"substModel" validate:"omitempty,oneof=jc f81"`

	// CategoryCount is the number of gamma categories.
	CategoryCount int `yaml:"categoryCount" validate:"gte=1"`
	// Shape is the gamma shape parameter. It is ignored if
	// CategoryCount is 1.
	Shape float64 `yaml:"shape" validate:"gte=0"`
	// ProportionInvariant is the proportion of invariant sites.
	ProportionInvariant float64 `yaml:"proportionInvariant" validate:"gte=0,lt=1"`
	// Mu is the overall rate multiplier.
	Mu float64 `yaml:"mu" validate:"gt=0"`

	// InvariantIsCategory makes the invariant sites a separate
	// zero-rate category; otherwise the likelihood evaluator
	// handles them.
	InvariantIsCategory bool `yaml:"invariantIsCategory"`
	// IntegrateAcrossCategories selects weighted sum over categories
	// instead of per-site categories.
	IntegrateAcrossCategories bool `yaml:"integrateAcrossCategories"`
	// Median selects median discretization of the gamma
	// distribution instead of the mean.
	Median bool `yaml:"median"`
}

// DefaultConfig returns the default configuration: a single
// category, no invariant sites.
func DefaultConfig() Config {
	return Config{
		SubstModelName:            "jc",
		CategoryCount:             1,
		Mu:                        1,
		InvariantIsCategory:       true,
		IntegrateAcrossCategories: true,
		Median:                    true,
	}
}

// LoadConfig reads a YAML configuration. Missing fields keep their
// default values. The configuration is validated by New.
func LoadConfig(rd io.Reader) (Config, error) {
	c := DefaultConfig()
	dec := yaml.NewDecoder(rd)
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return c, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return c, nil
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if err := configValidate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}
