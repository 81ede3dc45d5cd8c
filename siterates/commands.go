package main

import (
	"fmt"
	"io"
	"os"

	bolt "go.etcd.io/bbolt"

	"bitbucket.org/Davydov/siterates/alignment"
	"bitbucket.org/Davydov/siterates/alphabet"
	"bitbucket.org/Davydov/siterates/bio"
	"bitbucket.org/Davydov/siterates/checkpoint"
	"bitbucket.org/Davydov/siterates/pairlh"
	"bitbucket.org/Davydov/siterates/sitemodel"
)

// getAlphabet returns the alphabet from the command line.
func getAlphabet() *alphabet.Alphabet {
	a, err := alphabet.ByName(*alphabetN)
	if err != nil {
		log.Fatal(err)
	}
	return a
}

// readAlignment reads a FASTA alignment.
func readAlignment(fn string, a *alphabet.Alphabet) *alignment.Alignment {
	f, err := os.Open(fn)
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()

	seqs, err := bio.ParseFasta(f)
	if err != nil {
		log.Fatal(err)
	}

	al, err := alignment.FromFasta(a, seqs)
	if err != nil {
		log.Fatal(err)
	}
	log.Infof("Read alignment of %d sequences, %d sites, %d fixed positions, %d ambiguous positions",
		al.TaxonCount(), al.SiteCount(), al.NFixed(), al.NAmbiguous())
	return al
}

// summarizeAlignment returns alignment statistics.
func summarizeAlignment(al *alignment.Alignment) AlignmentSummary {
	s := AlignmentSummary{
		Taxa:        al.Taxa(),
		Sites:       al.SiteCount(),
		Fixed:       al.NFixed(),
		Ambiguous:   al.NAmbiguous(),
		Frequencies: al.Frequencies(),
	}
	for i, taxon := range s.Taxa {
		if al.IsUncertain(i) {
			s.Uncertain = append(s.Uncertain, taxon)
		}
	}
	return s
}

// printRates prints the category table.
func printRates(w io.Writer, sm *sitemodel.SiteModel) {
	fmt.Fprintln(w, "category\trate\tproportion")
	rates := sm.CategoryRates(nil)
	props := sm.CategoryProportions(nil)
	for i := range rates {
		fmt.Fprintf(w, "%d\t%f\t%f\n", i, rates[i], props[i])
	}
	if !sm.InvariantIsCategory() && sm.ProportionInvariant() > 0 {
		fmt.Fprintf(w, "invariant\t%f\t%f\n", 0.0, sm.ProportionInvariant())
	}
}

// runRates prints rates and proportions of the site model.
func runRates() sitemodel.Summary {
	sm, err := newModelSettings().create(getAlphabet(), nil)
	if err != nil {
		log.Fatal(err)
	}
	printRates(os.Stdout, sm)
	return sm.Summary()
}

// runAlign prints the alignment summary and representative
// sequences.
func runAlign() AlignmentSummary {
	al := readAlignment(*alignFileA, getAlphabet())
	s := summarizeAlignment(al)
	log.Noticef("Frequencies: %v", s.Frequencies)
	if len(s.Uncertain) > 0 {
		log.Noticef("Uncertain sequences: %v", s.Uncertain)
	}

	w := os.Stdout
	if *outF != "" {
		f, err := os.Create(*outF)
		if err != nil {
			log.Fatal("Error creating output file:", err)
		}
		defer f.Close()
		w = f
	}
	fmt.Fprintln(w, al.String())
	return s
}

// pairs returns the pairs of taxa to compare.
func pairs(al *alignment.Alignment) (res [][2]int) {
	if len(*taxa) > 0 {
		if len(*taxa) != 2 {
			log.Fatal("Exactly two taxa should be specified")
		}
		var p [2]int
		for i, name := range *taxa {
			t, ok := al.TaxonIndex(name)
			if !ok {
				log.Fatalf("Unknown taxon: %s", name)
			}
			p[i] = t
		}
		return [][2]int{p}
	}
	for i := 0; i < al.TaxonCount(); i++ {
		for j := i + 1; j < al.TaxonCount(); j++ {
			res = append(res, [2]int{i, j})
		}
	}
	return
}

// runPair estimates distances for pairs of taxa.
func runPair() *PairsSummary {
	a := getAlphabet()
	al := readAlignment(*alignFileP, a)
	summary := &PairsSummary{Alignment: summarizeAlignment(al)}

	sm, err := newModelSettings().create(a, summary.Alignment.Frequencies)
	if err != nil {
		log.Fatal(err)
	}

	var db *bolt.DB
	if *checkpointF != "" {
		db, err = checkpoint.Open(*checkpointF)
		if err != nil {
			log.Fatal("Error opening checkpoint database:", err)
		}
		defer db.Close()
	}

	var traj io.Writer
	if *trajF != "" {
		f, err := os.Create(*trajF)
		if err != nil {
			log.Fatal("Error creating trajectory file:", err)
		}
		defer f.Close()
		traj = f
	}

	fmt.Println("taxonA\ttaxonB\tdistance\tlnL")
	for _, p := range pairs(al) {
		ps := estimatePair(al, sm.Copy(), p[0], p[1], db, traj)
		fmt.Printf("%s\t%s\t%f\t%f\n", ps.TaxonA, ps.TaxonB, ps.Distance, ps.LnL)
		summary.Pairs = append(summary.Pairs, ps)
	}
	return summary
}

// estimatePair estimates the distance between two taxa. A finished
// checkpoint is reused, an unfinished one is used as the starting
// point.
func estimatePair(al *alignment.Alignment, sm *sitemodel.SiteModel, x, y int, db *bolt.DB, traj io.Writer) (ps PairSummary) {
	m, err := pairlh.New(al, sm, x, y)
	if err != nil {
		log.Fatal(err)
	}
	m.SetFixedSiteModel(*fixSM)
	ps.TaxonA, ps.TaxonB = m.Taxa()
	log.Infof("Pair %s, %s", ps.TaxonA, ps.TaxonB)

	store := checkpoint.NewStore(db, checkpointKey(ps.TaxonA, ps.TaxonB, sm, *fixSM), *cpSeconds)
	data, err := store.Restore(m.GetFloatParameters())
	if err != nil {
		log.Error("Error restoring checkpoint:", err)
	}

	if data != nil && data.Final {
		ps.Restored = true
		ps.LnL = m.Likelihood()
	} else {
		opt, err := newOptimizerSettings(traj).create(m)
		if err != nil {
			log.Fatal(err)
		}
		opt.SetCheckpointer(store)
		opt.Run(*iterations)
		summary := opt.Summary()
		ps.Optimizer = &summary
		ps.LnL = opt.GetMaxL()
	}

	ps.Distance = m.Distance()
	ps.SiteModel = m.SiteModel().Summary()
	log.Noticef("%s\t%s\tdistance=%v\tlnL=%v", ps.TaxonA, ps.TaxonB, ps.Distance, ps.LnL)
	return
}

// checkpointKey identifies a pair estimation in the checkpoint
// database. Runs with a different site model setup do not share
// checkpoints.
func checkpointKey(taxonA, taxonB string, sm *sitemodel.SiteModel, fixed bool) string {
	return fmt.Sprintf("%s\t%s\tncat=%d,shape=%v,pinv=%v,mu=%v,invcat=%v,integrate=%v,median=%v,freq=%v,fixsm=%v",
		taxonA, taxonB, sm.GammaCategoryCount(), sm.Shape(), sm.ProportionInvariant(), sm.Mu(),
		sm.InvariantIsCategory(), sm.IntegrateAcrossCategories(), sm.Median(),
		sm.SubstitutionModel().Frequencies(), fixed)
}
