package optimize

import (
	"math"

	lbfgsb "github.com/idavydov/go-lbfgsb"
)

// LBFGSB is a limited-memory BFGS optimizer with bounds. The gradient
// is computed numerically.
type LBFGSB struct {
	BaseOptimizer
	dH   float64
	grad []float64
	stop bool
}

// NewLBFGSB creates a new LBFGSB optimizer.
func NewLBFGSB() (l *LBFGSB) {
	l = &LBFGSB{
		BaseOptimizer: BaseOptimizer{
			repPeriod: 10,
		},
		dH: 1e-6,
	}
	return
}

// Logger is called by the lbfgsb library after every iteration.
func (l *LBFGSB) Logger(info *lbfgsb.OptimizationIterationInformation) {
	l.i = info.Iteration
	if l.i%l.repPeriod == 0 {
		l.PrintLine(l.parameters, -info.F)
		l.SaveCheckpoint(false)
	}
	if l.signalled() {
		l.stop = true
	}
}

// EvaluateFunction returns the negative log-likelihood.
func (l *LBFGSB) EvaluateFunction(x []float64) float64 {
	if l.stop || !l.parameters.ValuesInRange(x) {
		return math.Inf(+1)
	}

	if err := l.parameters.SetValues(x); err != nil {
		panic(err)
	}

	L := l.Likelihood()
	l.calls++
	l.saveMax(l.parameters, L)
	return -L
}

// at returns the negative log-likelihood for x with parameter i
// set to v. The model itself is not changed.
func (l *LBFGSB) at(x []float64, i int, v float64) float64 {
	no := l.Optimizable.Copy()
	par := no.GetFloatParameters()
	if err := par.SetValues(x); err != nil {
		panic(err)
	}
	par[i].Set(v)
	l.calls++
	return -no.Likelihood()
}

// EvaluateGradient computes the gradient using central differences.
// At the parameter bounds one-sided differences are used, so the
// likelihood is never computed out of range.
func (l *LBFGSB) EvaluateGradient(x []float64) (grad []float64) {
	if l.grad == nil {
		l.grad = make([]float64, len(x))
	}
	grad = l.grad
	for i := range x {
		par := l.parameters[i]
		lo, hi := x[i]-l.dH, x[i]+l.dH
		if !par.ValueInRange(lo) {
			lo = x[i]
		}
		if !par.ValueInRange(hi) {
			hi = x[i]
		}
		if hi == lo {
			grad[i] = 0
			continue
		}
		grad[i] = (l.at(x, i, hi) - l.at(x, i, lo)) / (hi - lo)
	}
	return
}

// Run runs the optimization. In the end the model parameters are
// set to the best values found.
func (l *LBFGSB) Run(iterations int) {
	l.PrintHeader(l.parameters)
	bounds := make([][2]float64, len(l.parameters))
	x0 := l.parameters.Values(nil)

	for i, par := range l.parameters {
		bounds[i][0] = par.GetMin()
		bounds[i][1] = par.GetMax()
		x0[i] = math.Max(bounds[i][0], math.Min(bounds[i][1], x0[i]))
	}

	opt := new(lbfgsb.Lbfgsb)
	opt.SetApproximationSize(10)
	opt.SetFTolerance(1e-9)
	opt.SetGTolerance(1e-9)

	opt.SetBounds(bounds)
	opt.SetLogger(l.Logger)

	_, exitStatus := opt.Minimize(l, x0)
	log.Info("Exit status: ", exitStatus)
	l.setMax()

	log.Info("Finished LBFGSB")
	log.Noticef("Maximum likelihood: %v", l.maxL)
	log.Infof("Likelihood function calls: %v", l.calls)
	log.Infof("Parameter  names: %v", l.parameters.NamesString())
	log.Infof("Parameter values: %v", l.parameters.ValuesString())
	l.PrintFinal(l.parameters)
}
