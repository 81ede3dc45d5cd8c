package optimize

import (
	"math"
	"os"
	"testing"

	"github.com/op/go-logging"
)

func init() {
	logging.SetLevel(logging.WARNING, "optimize")
}

// quadratic has the maximum at (x0, y0).
type quadratic struct {
	x, y       float64
	x0, y0     float64
	parameters FloatParameters
	// strict makes the likelihood NaN out of the bounds
	strict bool
}

func newQuadratic(x0, y0 float64) *quadratic {
	q := &quadratic{x0: x0, y0: y0}
	q.setupParameters()
	return q
}

func (q *quadratic) setupParameters() {
	q.parameters = nil
	x := NewBasicFloatParameter(&q.x, "x")
	x.SetMin(-10)
	x.SetMax(10)
	y := NewBasicFloatParameter(&q.y, "y")
	y.SetMin(-10)
	y.SetMax(10)
	q.parameters.Append(x)
	q.parameters.Append(y)
}

func (q *quadratic) GetFloatParameters() FloatParameters {
	return q.parameters
}

func (q *quadratic) Likelihood() float64 {
	if q.strict && !q.parameters.InRange() {
		return math.NaN()
	}
	dx, dy := q.x-q.x0, q.y-q.y0
	return -dx*dx - 2*dy*dy
}

func (q *quadratic) Copy() Optimizable {
	n := &quadratic{x: q.x, y: q.y, x0: q.x0, y0: q.y0, strict: q.strict}
	n.setupParameters()
	return n
}

func smallDiff(a, b, tol float64) bool {
	return math.Abs(a-b) < tol
}

func TestSimplex(tst *testing.T) {
	q := newQuadratic(1.5, -2)
	ds := NewDS()
	ds.SetOptimizable(q)
	ds.Run(1000)

	if !smallDiff(q.x, 1.5, 1e-3) || !smallDiff(q.y, -2, 1e-3) {
		tst.Errorf("Wrong maximum: x=%v, y=%v", q.x, q.y)
	}
	if !smallDiff(ds.GetMaxL(), 0, 1e-6) {
		tst.Errorf("Wrong maximum likelihood: %v", ds.GetMaxL())
	}
	s := ds.Summary()
	if s.Calls == 0 {
		tst.Error("No likelihood calls recorded")
	}
	if !smallDiff(s.MaxLParameters["x"], q.x, 1e-12) {
		tst.Errorf("Summary mismatch: %v vs %v", s.MaxLParameters["x"], q.x)
	}
}

func TestSimplexAtBound(tst *testing.T) {
	// the maximum is outside of the bounds
	q := newQuadratic(20, 0)
	q.x = 9.5
	ds := NewDS()
	ds.SetOptimizable(q)
	ds.Run(1000)

	if !q.parameters.InRange() {
		tst.Errorf("Parameters out of range: %v", q.parameters.ValuesString())
	}
	if !smallDiff(q.x, 10, 1e-2) {
		tst.Errorf("Expected x near the upper bound, got %v", q.x)
	}
}

func TestNone(tst *testing.T) {
	q := newQuadratic(1, 1)
	n := NewNone()
	n.SetOptimizable(q)
	n.Run(10)
	if n.GetMaxL() != -3 {
		tst.Errorf("Wrong likelihood: %v", n.GetMaxL())
	}
	if q.x != 0 || q.y != 0 {
		tst.Errorf("Parameters changed: %v, %v", q.x, q.y)
	}
}

func TestOnChange(tst *testing.T) {
	v := 1.0
	calls := 0
	p := NewBasicFloatParameter(&v, "v")
	p.SetOnChange(func() { calls++ })
	p.Set(1)
	if calls != 0 {
		tst.Error("On change called for the same value")
	}
	p.Set(2)
	if calls != 1 || v != 2 {
		tst.Errorf("On change calls: %d, value: %v", calls, v)
	}
}

func TestSetFromMap(tst *testing.T) {
	q := newQuadratic(0, 0)
	if err := q.parameters.SetFromMap(map[string]float64{"x": 1}); err == nil {
		tst.Error("Expected an error for a missing parameter")
	}
	if err := q.parameters.SetFromMap(map[string]float64{"x": 1, "y": 11}); err == nil {
		tst.Error("Expected an error for an out of range value")
	}
	if q.x != 0 || q.y != 0 {
		tst.Error("Parameters changed after a failed update")
	}
	if err := q.parameters.SetFromMap(map[string]float64{"x": 1, "y": 2}); err != nil {
		tst.Error("Error: ", err)
	}
	if q.x != 1 || q.y != 2 {
		tst.Errorf("Wrong values: %v, %v", q.x, q.y)
	}
}

func TestPriors(tst *testing.T) {
	u := UniformPrior(0, 2, false, true)
	if !smallDiff(u(1), -math.Log(2), 1e-12) {
		tst.Errorf("Wrong uniform density: %v", u(1))
	}
	if !math.IsInf(u(0), -1) {
		tst.Error("Expected zero density at the excluded minimum")
	}
	e := ExponentialPrior(2, false)
	if !smallDiff(e(1), math.Log(2)-2, 1e-12) {
		tst.Errorf("Wrong exponential density: %v", e(1))
	}
	// gamma with shape 1 is exponential
	g := GammaPrior(1, 0.5, false)
	if !smallDiff(g(1), e(1), 1e-12) {
		tst.Errorf("Wrong gamma density: %v", g(1))
	}
}

type testCheckpointer struct {
	saves int
	final bool
	pars  map[string]float64
	lnL   float64
}

func (cp *testCheckpointer) Old() bool {
	return true
}

func (cp *testCheckpointer) Save(pars map[string]float64, lnL float64, iter int, final bool) error {
	cp.saves++
	cp.final = final
	cp.pars = pars
	cp.lnL = lnL
	return nil
}

func TestCheckpointer(tst *testing.T) {
	q := newQuadratic(1, 2)
	cp := &testCheckpointer{}
	ds := NewDS()
	ds.SetOptimizable(q)
	ds.SetCheckpointer(cp)
	ds.Run(100)

	if cp.saves < 2 {
		tst.Errorf("Expected intermediate and final checkpoints, got %d", cp.saves)
	}
	if !cp.final {
		tst.Error("Last checkpoint is not final")
	}
	if cp.lnL != ds.GetMaxL() || cp.pars["x"] != q.x || cp.pars["y"] != q.y {
		tst.Errorf("Wrong checkpoint: %v, lnL=%v", cp.pars, cp.lnL)
	}
}

func TestGradientAtBounds(tst *testing.T) {
	q := newQuadratic(1, 0)
	q.strict = true
	l := NewLBFGSB()
	l.SetOptimizable(q)

	// -lnL = (x-1)^2 + 2y^2
	for _, x := range [][]float64{{-10, 0}, {10, 3}, {0.5, -10}} {
		grad := l.EvaluateGradient(x)
		expected := []float64{2 * (x[0] - 1), 4 * x[1]}
		for i := range grad {
			if math.IsNaN(grad[i]) || !smallDiff(grad[i], expected[i], 1e-4) {
				tst.Errorf("x=%v: gradient %v, expected %v", x, grad, expected)
				break
			}
		}
	}
	if q.x != 0 || q.y != 0 {
		tst.Errorf("Gradient changed the model: %v, %v", q.x, q.y)
	}
}

func TestStopSignals(tst *testing.T) {
	opts := []Optimizer{NewDS(), NewNone()}
	for _, opt := range opts {
		opt.SetOptimizable(newQuadratic(1, 1))
		opt.WatchSignals(os.Interrupt)
		opt.Run(10)
	}
	if ds := opts[0].(*DS); ds.sig != nil {
		tst.Error("Simplex still watches signals")
	}
	if n := opts[1].(*None); n.sig != nil {
		tst.Error("None still watches signals")
	}
}
