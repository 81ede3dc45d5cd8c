package sitemodel

import (
	"bitbucket.org/Davydov/siterates/optimize"
)

// Parameter names.
const (
	ShapeName = "shape"
	PinvName  = "pinv"
	MuName    = "mu"
)

// setupParameters creates the parameter storage.
func (m *SiteModel) setupParameters() {
	m.parameters = nil
	m.addParameters(optimize.BasicFloatParameterGenerator)
}

// addParameters adds all the model parameters to the parameter
// storage. The shape is only a parameter for more than one gamma
// category.
func (m *SiteModel) addParameters(fpg optimize.FloatParameterGenerator) {
	if m.ncat > 1 {
		shape := fpg(&m.shape, ShapeName)
		shape.SetOnChange(m.invalidate)
		shape.SetPriorFunc(optimize.GammaPrior(1, 2, false))
		shape.SetMin(1e-2)
		shape.SetMax(1000)
		m.parameters.Append(shape)
	}

	pinv := fpg(&m.pinv, PinvName)
	pinv.SetOnChange(m.invalidate)
	pinv.SetPriorFunc(optimize.UniformPrior(0, 1, true, false))
	pinv.SetMin(0)
	pinv.SetMax(0.99)
	m.parameters.Append(pinv)

	mu := fpg(&m.mu, MuName)
	mu.SetOnChange(m.invalidate)
	mu.SetPriorFunc(optimize.ExponentialPrior(1, false))
	mu.SetMin(1e-3)
	mu.SetMax(100)
	m.parameters.Append(mu)
}

// GetFloatParameters returns the model parameters. Changing a
// parameter value invalidates the rates and the proportions.
func (m *SiteModel) GetFloatParameters() optimize.FloatParameters {
	return m.parameters
}

// Conditions returns names of the parameters the model depends on.
func (m *SiteModel) Conditions() []string {
	return m.parameters.Names(nil)
}
