package main

import (
	"bitbucket.org/Davydov/siterates/optimize"
	"bitbucket.org/Davydov/siterates/sitemodel"
)

// RunSummary stores information about the program call.
type RunSummary struct {
	// Version stores siterates version.
	Version string `json:"version"`
	// CommandLine is an array storing binary name and all command-line parameters.
	CommandLine []string `json:"commandLine"`
	// Command is the command name.
	Command string `json:"command"`
	// Time is the computations time in seconds.
	Time float64 `json:"time"`
	// Result is the command specific summary.
	Result interface{} `json:"result,omitempty"`
}

// AlignmentSummary stores alignment statistics.
type AlignmentSummary struct {
	Taxa        []string  `json:"taxa"`
	Sites       int       `json:"sites"`
	Uncertain   []string  `json:"uncertain,omitempty"`
	Fixed       int       `json:"fixed"`
	Ambiguous   int       `json:"ambiguous"`
	Frequencies []float64 `json:"frequencies"`
}

// PairSummary stores the result for a pair of taxa.
type PairSummary struct {
	TaxonA   string  `json:"taxonA"`
	TaxonB   string  `json:"taxonB"`
	Distance float64 `json:"distance"`
	LnL      float64 `json:"lnL"`
	// Restored is true if the result was read from a checkpoint.
	Restored  bool              `json:"restored,omitempty"`
	SiteModel sitemodel.Summary `json:"siteModel"`
	Optimizer *optimize.Summary `json:"optimizer,omitempty"`
}

// PairsSummary stores results of the pair command.
type PairsSummary struct {
	Alignment AlignmentSummary `json:"alignment"`
	Pairs     []PairSummary    `json:"pairs"`
}
