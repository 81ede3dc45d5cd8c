/*

Siterates computes across-site rate categories (discrete gamma with
an optional proportion of invariant sites), reads alignments with
certain or uncertain (probabilistic) sequences, and estimates
pairwise distances under the site model.

Print category rates and proportions:

	siterates --ncat 4 --shape 0.5 --pinv 0.2 rates

Summarize an alignment and print the most probable states:

	siterates align alignment.fst

Estimate pairwise distances:

	siterates --ncat 4 --shape 0.5 pair alignment.fst

To see all the options run:

	siterates --help

*/
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/op/go-logging"
	"gopkg.in/alecthomas/kingpin.v2"
)

// These three variables are set during the compilation.
var githash = ""
var gitbranch = ""
var buildstamp = ""
var version = fmt.Sprintf("branch: %s, revision: %s, build time: %s", gitbranch, githash, buildstamp)

// Logger settings.
var log = logging.MustGetLogger("siterates")
var formatter = logging.MustStringFormatter(`%{message}`)

// modules are the logging modules of all the packages.
var modules = []string{"siterates", "alignment", "sitemodel", "pairlh", "optimize", "checkpoint"}

// command-line options
var (
	// application
	app = kingpin.New("siterates", "site rate categories and probabilistic alignments").Version(version)

	// site model
	configF    = app.Flag("config", "site model configuration (YAML)").ExistingFile()
	substModel = app.Flag("subst", "substitution model (jc or f81), overrides the configuration").Enum("jc", "f81")
	ncat       = app.Flag("ncat", "number of gamma categories").Default("-1").Int()
	shape      = app.Flag("shape", "gamma shape parameter").Default("-1").Float64()
	pinv       = app.Flag("pinv", "proportion of invariant sites").Default("-1").Float64()
	mu         = app.Flag("mu", "overall rate multiplier").Default("-1").Float64()
	sepInv     = app.Flag("sepinv", "handle invariant sites separately instead of a zero-rate category").Bool()
	mean       = app.Flag("mean", "use category means instead of medians").Bool()
	alphabetN  = app.Flag("alphabet", "alphabet (nucleotide, aminoacid or binary)").Default("nucleotide").String()

	// input/output
	outLogF  = app.Flag("log", "write log to a file").String()
	logLevel = app.Flag("loglevel", "set loglevel "+
		"('critical', 'error', 'warning', 'notice', 'info', 'debug')").
		Default("notice").
		Enum("critical", "error", "warning", "notice", "info", "debug")
	jsonF = app.Flag("json", "write json output to a file").String()

	// rates command
	ratesCmd = app.Command("rates", "print category rates and proportions")

	// align command
	alignCmd   = app.Command("align", "summarize an alignment and print representative states")
	alignFileA = alignCmd.Arg("alignment", "sequence alignment (FASTA)").Required().ExistingFile()
	outF       = alignCmd.Flag("out", "write representative sequences to a file").String()

	// pair command
	pairCmd    = app.Command("pair", "estimate pairwise distances")
	alignFileP = pairCmd.Arg("alignment", "sequence alignment (FASTA)").Required().ExistingFile()
	taxa       = pairCmd.Flag("taxon", "taxon to compare (repeat twice), all pairs by default").Strings()
	hard       = pairCmd.Flag("hard", "use per-site categories instead of integrating across categories").Bool()
	siteCatF   = pairCmd.Flag("sitecat", "file with per-site categories (for -hard)").ExistingFile()
	fixSM      = pairCmd.Flag("fixsm", "do not optimize the site model parameters").Bool()
	method     = pairCmd.Flag("method", "optimization method to use "+
		"(lbfgsb: limited-memory Broyden–Fletcher–Goldfarb–Shanno with bounding constraints, "+
		"simplex: downhill simplex, "+
		"none: just compute likelihood, no optimization"+
		")").Default("lbfgsb").Enum("lbfgsb", "simplex", "none")
	iterations  = pairCmd.Flag("iter", "number of iterations").Default("10000").Int()
	report      = pairCmd.Flag("report", "report every N iterations").Default("10").Int()
	trajF       = pairCmd.Flag("trajectory", "write optimization trajectory to a file").String()
	checkpointF = pairCmd.Flag("checkpoint", "checkpoint database").String()
	cpSeconds   = pairCmd.Flag("cpseconds", "save checkpoint at most every N seconds").Default("60").Float64()
)

// setupLogging configures the logging backend and levels.
func setupLogging() (close func()) {
	logging.SetFormatter(formatter)

	close = func() {}
	var backend *logging.LogBackend
	if *outLogF != "" {
		f, err := os.OpenFile(*outLogF, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0666)
		if err != nil {
			log.Fatal("Error creating log file:", err)
		}
		close = func() { f.Close() }
		backend = logging.NewLogBackend(f, "", 0)
	} else {
		backend = logging.NewLogBackend(os.Stderr, "", 0)
	}
	logging.SetBackend(backend)

	level, err := logging.LogLevel(*logLevel)
	if err != nil {
		log.Fatal(err)
	}
	for _, module := range modules {
		logging.SetLevel(level, module)
	}
	return
}

// writeJSON writes the summary in json format.
func writeJSON(summary interface{}) {
	j, err := json.Marshal(summary)
	if err != nil {
		log.Error(err)
		return
	}
	log.Debug(string(j))
	f, err := os.Create(*jsonF)
	if err != nil {
		log.Error("Error creating json output file:", err)
		return
	}
	defer f.Close()
	if _, err := f.Write(j); err != nil {
		log.Error("Error writing json output file:", err)
	}
}

func main() {
	cmd := kingpin.MustParse(app.Parse(os.Args[1:]))

	closeLog := setupLogging()
	defer closeLog()

	// print revision
	log.Info(version)

	// print commandline
	log.Info("Command line:", os.Args)

	startTime := time.Now()
	summary := &RunSummary{
		Version:     version,
		CommandLine: os.Args,
		Command:     cmd,
	}

	switch cmd {
	case ratesCmd.FullCommand():
		summary.Result = runRates()
	case alignCmd.FullCommand():
		summary.Result = runAlign()
	case pairCmd.FullCommand():
		summary.Result = runPair()
	}

	deltaT := time.Since(startTime)
	log.Noticef("Running time: %v", deltaT)
	summary.Time = deltaT.Seconds()

	if *jsonF != "" {
		writeJSON(summary)
	}
}
