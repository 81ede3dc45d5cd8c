package optimize

import (
	"math"
)

const (
	// TINY is the relative tolerance for the simplex convergence.
	TINY = 1e-10
	// SMALL is the tolerance for the convergence after restart.
	SMALL = 1e-6
)

// DS is the downhill simplex (Nelder-Mead) optimizer.
type DS struct {
	BaseOptimizer
	delta      float64
	ftol       float64
	repeat     bool
	oldL       float64
	points     []Optimizable
	psum       []float64
	parameters []FloatParameters
	l          []float64
	newOpt     Optimizable
	newPar     FloatParameters
}

// NewDS creates a new downhill simplex optimizer.
func NewDS() (ds *DS) {
	ds = &DS{
		delta: 1,
		ftol:  TINY,
	}
	ds.repPeriod = 10
	return
}

// SetDelta sets the initial simplex size.
func (ds *DS) SetDelta(delta float64) {
	ds.delta = delta
}

// likelihood computes likelihood if parameters are in range.
func (ds *DS) likelihood(opt Optimizable, par FloatParameters) float64 {
	if !par.InRange() {
		return math.Inf(-1)
	}
	ds.calls++
	return opt.Likelihood()
}

func (ds *DS) createSimplex(opt Optimizable, delta float64) {
	parameters := opt.GetFloatParameters()
	ds.points = make([]Optimizable, len(parameters)+1)
	ds.parameters = make([]FloatParameters, len(ds.points))
	ds.l = make([]float64, len(ds.points))
	ds.points[0] = opt
	ds.parameters[0] = parameters
	for i := 1; i < len(ds.points); i++ {
		point := opt.Copy()
		ds.points[i] = point
		ds.parameters[i] = point.GetFloatParameters()
	}
	for i := 0; i < len(parameters); i++ {
		parameter := ds.parameters[i+1][i]
		v := parameter.Get() + delta
		if !parameter.ValueInRange(v) {
			// step inside the bounds instead
			v = parameter.Get() - delta
		}
		parameter.Set(v)
	}
	for i := range ds.points {
		ds.l[i] = ds.likelihood(ds.points[i], ds.parameters[i])
	}
}

// amotry extrapolates by factor fac throught the face of the simplex accros from
// the low point, tries it, and replaces the low point if the new point is better.
func (ds *DS) amotry(ilo int, fac float64) float64 {
	if ds.newOpt == nil {
		ds.newOpt = ds.points[0].Copy()
		ds.newPar = ds.newOpt.GetFloatParameters()
	}
	ds.calcPsum()
	ndim := len(ds.newPar)
	fac1 := (1 - fac) / float64(ndim)
	fac2 := fac1 - fac
	for j := 0; j < ndim; j++ {
		ds.newPar[j].Set(ds.psum[j]*fac1 - ds.parameters[ilo][j].Get()*fac2)
	}
	l := ds.likelihood(ds.newOpt, ds.newPar)
	if l > ds.l[ilo] {
		ds.points[ilo], ds.newOpt = ds.newOpt, ds.points[ilo]
		ds.parameters[ilo], ds.newPar = ds.newPar, ds.parameters[ilo]
		ds.l[ilo] = l
	}
	return l
}

func (ds *DS) calcPsum() {
	if ds.psum == nil {
		ds.psum = make([]float64, len(ds.parameters[0]))
	}
	for i := range ds.psum {
		ds.psum[i] = 0
		for _, parameters := range ds.parameters {
			ds.psum[i] += parameters[i].Get()
		}
	}
}

// SetOptimizable sets the model and creates the initial simplex.
func (ds *DS) SetOptimizable(opt Optimizable) {
	ds.BaseOptimizer.SetOptimizable(opt)
	ds.createSimplex(opt, ds.delta)
}

// Run performs at most iterations simplex steps. In the end the
// model parameters are set to the best point.
func (ds *DS) Run(iterations int) {
	// Lowest (worst), next-lowest and highest points
	var ilo, inlo, ihi int
	var llo, lnlo, lhi float64
	ds.PrintHeader(ds.parameters[0])
Iter:
	for ds.i = 1; ds.i <= iterations; ds.i++ {
		ilo, ihi = 0, 0
		for i := range ds.points {
			if ds.l[i] >= ds.l[ihi] {
				ihi = i
			}
			if ds.l[i] < ds.l[ilo] {
				ilo = i
			}
		}
		inlo = ihi
		for i := range ds.points {
			if i != ilo && ds.l[i] < ds.l[inlo] {
				inlo = i
			}
		}
		llo, lnlo, lhi = ds.l[ilo], ds.l[inlo], ds.l[ihi]

		ds.saveMax(ds.parameters[ihi], lhi)
		ds.BaseOptimizer.l = lhi
		if ds.i%ds.repPeriod == 0 {
			log.Debugf("%d: L=%f (%f)", ds.i, lhi, lhi-llo)
			ds.PrintLine(ds.parameters[ihi], lhi)
			ds.SaveCheckpoint(false)
		}
		rtol := 2 * math.Abs(ds.l[ihi]-ds.l[ilo]) / (math.Abs(ds.l[ilo]) + math.Abs(ds.l[ihi]) + TINY)
		if rtol < ds.ftol {
			if ds.repeat && math.Abs(ds.oldL-lhi) < SMALL {
				break Iter
			}
			ds.repeat = true
			ds.oldL = lhi
			log.Infof("converged. retrying")
			ds.createSimplex(ds.points[ihi], ds.delta)
			continue
		}
		l := ds.amotry(ilo, -1)
		switch {
		case l >= lhi:
			ds.amotry(ilo, 2)
		case l <= lnlo:
			lsave := llo
			l := ds.amotry(ilo, 0.5)
			if l <= lsave {
				for i, point := range ds.points {
					if i != ihi {
						for j := range ds.parameters[i] {
							ds.parameters[i][j].Set(0.5 * (ds.parameters[i][j].Get() + ds.parameters[ihi][j].Get()))
						}
						ds.l[i] = ds.likelihood(point, ds.parameters[i])
					}
				}
			}
		}
		if ds.signalled() {
			break Iter
		}
	}
	if ds.i > iterations {
		log.Warningf("Iterations exceeded (%d)", iterations)
	}
	for i := range ds.points {
		ds.saveMax(ds.parameters[i], ds.l[i])
	}
	ds.setMax()

	log.Info("Finished downhill simplex")
	log.Noticef("Maximum likelihood: %v", ds.maxL)
	log.Infof("Parameter  names: %v", ds.BaseOptimizer.parameters.NamesString())
	log.Infof("Parameter values: %v", ds.BaseOptimizer.parameters.ValuesString())
	ds.PrintFinal(ds.BaseOptimizer.parameters)
}
