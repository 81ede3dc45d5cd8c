package main

import (
	"fmt"
	"io"
	"os"

	"bitbucket.org/Davydov/siterates/optimize"
)

// optimizerSettings stores settings for creation of a new optimizer.
type optimizerSettings struct {
	method     string
	iterations int
	report     int
	trajF      io.Writer
}

// newOptimizerSettings creates a new optimizerSettings from
// the command line parameters (global variables).
func newOptimizerSettings(traj io.Writer) *optimizerSettings {
	return &optimizerSettings{
		method:     *method,
		iterations: *iterations,
		report:     *report,
		trajF:      traj,
	}
}

// create creates and initializes a new optimizer.
func (o *optimizerSettings) create(m optimize.Optimizable) (optimize.Optimizer, error) {
	opt, err := o.getOptimizer()
	if err != nil {
		return nil, err
	}
	log.Debugf("Using %s optimization.", o.method)

	opt.SetOutput(o.trajF)
	opt.SetOptimizable(m)
	opt.SetReportPeriod(o.report)
	opt.WatchSignals(os.Interrupt)

	return opt, nil
}

// getOptimizer returns an optimizer from settings.
func (o *optimizerSettings) getOptimizer() (optimize.Optimizer, error) {
	switch o.method {
	case "lbfgsb":
		return optimize.NewLBFGSB(), nil
	case "simplex":
		return optimize.NewDS(), nil
	case "none":
		return optimize.NewNone(), nil
	}
	return nil, fmt.Errorf("Unknown optimization method: %s", o.method)
}
