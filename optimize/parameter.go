package optimize

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// FloatParameter is a named model parameter pointing to a float64
// value stored in the model. Changing the value calls the on-change
// callback, which is how models invalidate their cached values.
type FloatParameter interface {
	Name() string
	Prior() float64
	String() string
	SetMin(float64)
	SetMax(float64)
	GetMin() float64
	GetMax() float64
	SetOnChange(func())
	SetPriorFunc(func(float64) float64)
	Get() float64
	Set(float64)
	InRange() bool
	ValueInRange(float64) bool
}

// FloatParameterGenerator creates a parameter given a pointer to a
// value and a name.
type FloatParameterGenerator func(*float64, string) FloatParameter

// FloatParameters is a list of parameters.
type FloatParameters []FloatParameter

// Append adds a parameter to the list.
func (p *FloatParameters) Append(par FloatParameter) {
	*p = append(*p, par)
}

// Names returns parameter names. If is is not nil it is reused.
func (p *FloatParameters) Names(is []string) (s []string) {
	if is == nil {
		s = make([]string, len(*p))
	} else {
		s = is
	}
	for i, par := range *p {
		s[i] = par.Name()
	}
	return
}

// Values returns parameter values. If iv is not nil it is reused.
func (p *FloatParameters) Values(iv []float64) (v []float64) {
	if iv == nil {
		v = make([]float64, len(*p))
	} else {
		v = iv
	}
	for i, par := range *p {
		v[i] = par.Get()
	}
	return
}

// ValuesInRange tests if all the values are within parameter bounds.
func (p *FloatParameters) ValuesInRange(vals []float64) bool {
	if len(vals) != len(*p) {
		panic("Incorrect number of parameters")
	}
	for i, par := range *p {
		if !par.ValueInRange(vals[i]) {
			return false
		}
	}
	return true
}

// SetValues sets all parameter values.
func (p *FloatParameters) SetValues(v []float64) error {
	if len(v) != len(*p) {
		return fmt.Errorf("incorrect number of parameters: %d instead of %d", len(v), len(*p))
	}
	for i, par := range *p {
		par.Set(v[i])
	}
	return nil
}

// Update copies values from another parameter list with the same
// layout.
func (p *FloatParameters) Update(pSrc *FloatParameters) {
	for i := range *p {
		(*p)[i].Set((*pSrc)[i].Get())
	}
}

// InRange tests if all the parameters are within their bounds.
func (p *FloatParameters) InRange() bool {
	for _, par := range *p {
		if !par.InRange() {
			return false
		}
	}
	return true
}

// LogPrior returns the sum of log priors of all the parameters.
func (p *FloatParameters) LogPrior() (lp float64) {
	for _, par := range *p {
		lp += par.Prior()
	}
	return
}

// Map returns parameter values by name.
func (p *FloatParameters) Map() map[string]float64 {
	m := make(map[string]float64, len(*p))
	for _, par := range *p {
		m[par.Name()] = par.Get()
	}
	return m
}

// SetFromMap sets parameter values by name. Every parameter has to
// be present in the map and within its bounds.
func (p *FloatParameters) SetFromMap(m map[string]float64) error {
	for _, par := range *p {
		v, ok := m[par.Name()]
		if !ok {
			return fmt.Errorf("no value for parameter %s", par.Name())
		}
		if !par.ValueInRange(v) {
			return fmt.Errorf("value %v of parameter %s is out of range [%v, %v]", v, par.Name(), par.GetMin(), par.GetMax())
		}
	}
	for _, par := range *p {
		par.Set(m[par.Name()])
	}
	return nil
}

// NamesString returns tab-separated parameter names.
func (p *FloatParameters) NamesString() (s string) {
	for i, par := range *p {
		if i != 0 {
			s += "\t"
		}
		s += par.Name()
	}
	return
}

// ValuesString returns tab-separated parameter values.
func (p *FloatParameters) ValuesString() (s string) {
	for i, par := range *p {
		if i != 0 {
			s += "\t"
		}
		s += par.String()
	}
	return
}

// MarshalJSON encodes parameters as a JSON object keeping the
// parameter order.
func (p FloatParameters) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, par := range p {
		if i != 0 {
			b.WriteByte(',')
		}
		name, err := json.Marshal(par.Name())
		if err != nil {
			return nil, err
		}
		b.Write(name)
		b.WriteByte(':')
		b.WriteString(strconv.FormatFloat(par.Get(), 'g', -1, 64))
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

// UnmarshalJSON sets parameter values from a JSON object. The
// parameters have to be created beforehand.
func (p *FloatParameters) UnmarshalJSON(data []byte) error {
	var m map[string]float64
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	return p.SetFromMap(m)
}

// BasicFloatParameter is the default FloatParameter implementation.
type BasicFloatParameter struct {
	*float64
	name      string
	priorFunc func(float64) float64
	min       float64
	max       float64
	onChange  func()
}

// NewBasicFloatParameter creates a new unbounded parameter.
func NewBasicFloatParameter(par *float64, name string) *BasicFloatParameter {
	return &BasicFloatParameter{
		float64:   par,
		name:      name,
		priorFunc: func(float64) float64 { return 0 },
		min:       math.Inf(-1),
		max:       math.Inf(+1),
	}
}

// BasicFloatParameterGenerator is a FloatParameterGenerator creating
// BasicFloatParameter.
func BasicFloatParameterGenerator(par *float64, name string) FloatParameter {
	return NewBasicFloatParameter(par, name)
}

func (p *BasicFloatParameter) SetMin(min float64) {
	p.min = min
}

func (p *BasicFloatParameter) SetMax(max float64) {
	p.max = max
}

func (p *BasicFloatParameter) SetPriorFunc(f func(float64) float64) {
	p.priorFunc = f
}

func (p *BasicFloatParameter) SetOnChange(f func()) {
	p.onChange = f
}

func (p *BasicFloatParameter) Get() float64 {
	return *p.float64
}

func (p *BasicFloatParameter) Set(v float64) {
	if *p.float64 == v {
		// do nothing if value has not changed
		return
	}
	*p.float64 = v
	if p.onChange != nil {
		p.onChange()
	}
}

func (p *BasicFloatParameter) GetMin() float64 {
	return p.min
}

func (p *BasicFloatParameter) GetMax() float64 {
	return p.max
}

func (p *BasicFloatParameter) ValueInRange(v float64) bool {
	if v < p.min || v > p.max {
		return false
	}
	return true
}

func (p *BasicFloatParameter) InRange() bool {
	return p.ValueInRange(*p.float64)
}

func (p *BasicFloatParameter) Name() string {
	return p.name
}

func (p *BasicFloatParameter) Prior() float64 {
	return p.priorFunc(*p.float64)
}

func (p *BasicFloatParameter) String() string {
	return strconv.FormatFloat(*p.float64, 'f', 6, 64)
}
