// Package optimize provides model parameters with priors and
// likelihood maximizers working on them.
package optimize

import (
	"fmt"
	"io"
	"math"
	"os"
	"os/signal"

	"github.com/op/go-logging"
)

// log is the global logging variable.
var log = logging.MustGetLogger("optimize")

// Optimizable is a model which likelihood can be maximized.
type Optimizable interface {
	// GetFloatParameters returns the parameters to optimize.
	GetFloatParameters() FloatParameters
	// Likelihood returns the log-likelihood for the current
	// parameter values.
	Likelihood() float64
	// Copy creates an independent copy of the model keeping the
	// parameter values.
	Copy() Optimizable
}

// Optimizer maximizes the likelihood of an Optimizable.
type Optimizer interface {
	SetOptimizable(Optimizable)
	SetOutput(io.Writer)
	SetReportPeriod(period int)
	WatchSignals(...os.Signal)
	SetCheckpointer(Checkpointer)
	Run(iterations int)
	GetMaxL() float64
	GetMaxLParameters() []float64
	Summary() Summary
}

// Checkpointer saves intermediate and final optimization results.
type Checkpointer interface {
	// Old returns true if the last checkpoint is outdated.
	Old() bool
	// Save saves parameter values.
	Save(parameters map[string]float64, lnL float64, iter int, final bool) error
}

// Summary stores the optimizer results.
type Summary struct {
	// MaxLnL is the maximum log likelihood found.
	MaxLnL float64 `json:"maxLnL"`
	// MaxLParameters are the parameter values for MaxLnL.
	MaxLParameters map[string]float64 `json:"maxLParameters"`
	// Iterations is the number of iterations performed.
	Iterations int `json:"iterations"`
	// Calls is the number of likelihood computations.
	Calls int `json:"likelihoodCalls"`
}

// BaseOptimizer stores the state common for all the optimizers.
type BaseOptimizer struct {
	Optimizable
	parameters FloatParameters
	i          int
	calls      int
	l          float64
	maxL       float64
	maxLPar    []float64
	repPeriod  int
	out        io.Writer
	sig        chan os.Signal
	stopped    bool
	cp         Checkpointer
	Quiet      bool
}

// SetOptimizable sets the model to optimize.
func (o *BaseOptimizer) SetOptimizable(opt Optimizable) {
	o.Optimizable = opt
	o.parameters = opt.GetFloatParameters()
	o.maxL = math.Inf(-1)
}

// SetOutput sets a writer for the optimization trajectory.
func (o *BaseOptimizer) SetOutput(out io.Writer) {
	o.out = out
}

// SetReportPeriod sets how often the trajectory is printed.
func (o *BaseOptimizer) SetReportPeriod(period int) {
	o.repPeriod = period
}

// WatchSignals stops the optimization gracefully on the signals.
func (o *BaseOptimizer) WatchSignals(sigs ...os.Signal) {
	o.sig = make(chan os.Signal, 1)
	signal.Notify(o.sig, sigs...)
}

// stopSignals stops watching the signals.
func (o *BaseOptimizer) stopSignals() {
	if o.sig != nil {
		signal.Stop(o.sig)
		o.sig = nil
	}
}

// signalled returns true if a watched signal was received.
func (o *BaseOptimizer) signalled() bool {
	select {
	case s := <-o.sig:
		log.Warningf("Received signal %v, exiting.", s)
		o.stopped = true
		return true
	default:
	}
	return false
}

// SetCheckpointer sets the checkpoint storage.
func (o *BaseOptimizer) SetCheckpointer(cp Checkpointer) {
	o.cp = cp
}

// SaveCheckpoint saves the best parameter values. Intermediate
// checkpoints are only saved if the previous one is old.
func (o *BaseOptimizer) SaveCheckpoint(final bool) {
	if o.cp == nil || o.maxLPar == nil || (!final && !o.cp.Old()) {
		return
	}
	if err := o.cp.Save(o.maxLMap(), o.maxL, o.i, final); err != nil {
		log.Error("Error saving checkpoint:", err)
	}
}

// saveMax remembers the parameter values if l is the best
// likelihood so far.
func (o *BaseOptimizer) saveMax(par FloatParameters, l float64) {
	if l > o.maxL || o.maxLPar == nil {
		o.maxL = l
		o.maxLPar = par.Values(o.maxLPar)
	}
}

// PrintHeader prints the trajectory header.
func (o *BaseOptimizer) PrintHeader(par FloatParameters) {
	if !o.Quiet && o.out != nil {
		fmt.Fprintf(o.out, "iteration\tlikelihood\t%s\n", par.NamesString())
	}
}

// PrintLine prints one line of the trajectory.
func (o *BaseOptimizer) PrintLine(par FloatParameters, l float64) {
	if !o.Quiet && o.out != nil {
		fmt.Fprintf(o.out, "%d\t%f\t%s\n", o.i, l, par.ValuesString())
	}
}

// PrintFinal logs the final parameter values.
func (o *BaseOptimizer) PrintFinal(par FloatParameters) {
	for _, p := range par {
		log.Infof("%s=%v", p.Name(), p.Get())
	}
}

// GetMaxL returns the maximum likelihood found.
func (o *BaseOptimizer) GetMaxL() float64 {
	return o.maxL
}

// GetMaxLParameters returns the parameter values for the maximum
// likelihood.
func (o *BaseOptimizer) GetMaxLParameters() []float64 {
	return o.maxLPar
}

// Summary returns the optimization summary.
func (o *BaseOptimizer) Summary() Summary {
	return Summary{
		MaxLnL:         o.maxL,
		MaxLParameters: o.maxLMap(),
		Iterations:     o.i,
		Calls:          o.calls,
	}
}

// maxLMap returns the best parameter values by name.
func (o *BaseOptimizer) maxLMap() map[string]float64 {
	m := make(map[string]float64, len(o.parameters))
	for i, par := range o.parameters {
		if i < len(o.maxLPar) {
			m[par.Name()] = o.maxLPar[i]
		}
	}
	return m
}

// setMax stops watching the signals, sets the model parameters to
// the best values found and saves the final checkpoint unless the
// optimization was interrupted.
func (o *BaseOptimizer) setMax() {
	o.stopSignals()
	if o.maxLPar != nil {
		if err := o.parameters.SetValues(o.maxLPar); err != nil {
			log.Error(err)
		}
	}
	o.SaveCheckpoint(!o.stopped)
}
