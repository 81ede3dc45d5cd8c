// plotrates creates a plot of site model category rates against
// the cumulative proportion of sites.
package main

import (
	"fmt"
	"os"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gopkg.in/alecthomas/kingpin.v2"

	"bitbucket.org/Davydov/siterates/alphabet"
	"bitbucket.org/Davydov/siterates/sitemodel"
	"bitbucket.org/Davydov/siterates/substmodel"
)

var (
	app       = kingpin.New("plotrates", "plot site model category rates")
	shape     = app.Flag("shape", "gamma shape parameter").Default("1").Float64()
	pinv      = app.Flag("pinv", "proportion of invariant sites").Default("0").Float64()
	k         = app.Flag("k", "number of gamma categories").Default("4").Int()
	mean      = app.Flag("mean", "use mean instead of median").Bool()
	outF      = app.Flag("out", "output file").Default("rates.png").String()
	compareKs = app.Flag("compare", "additional numbers of categories to plot").Ints()
)

// points returns cumulative proportions for category rates.
func points(sm *sitemodel.SiteModel) plotter.XYs {
	rates := sm.CategoryRates(nil)
	props := sm.CategoryProportions(nil)
	pts := make(plotter.XYs, len(rates))
	y := 0.0
	for i, r := range rates {
		y += props[i]
		pts[i].X = r
		pts[i].Y = y
	}
	return pts
}

func newSiteModel(ncat int) *sitemodel.SiteModel {
	c := sitemodel.DefaultConfig()
	c.SubstModel = substmodel.NewJukesCantor(4)
	c.CategoryCount = ncat
	c.Shape = *shape
	c.ProportionInvariant = *pinv
	c.Median = !*mean
	sm, err := sitemodel.New(c, alphabet.Nucleotide)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	return sm
}

func main() {
	kingpin.MustParse(app.Parse(os.Args[1:]))

	p := plot.New()
	p.Title.Text = fmt.Sprintf("shape=%v, pinv=%v", *shape, *pinv)
	p.X.Label.Text = "rate"
	p.Y.Label.Text = "cumulative proportion"

	var lines []interface{}
	for _, ncat := range append([]int{*k}, *compareKs...) {
		sm := newSiteModel(ncat)
		fmt.Println(ncat, sm.CategoryRates(nil))
		lines = append(lines, fmt.Sprintf("k=%d", ncat), points(sm))
	}

	if err := plotutil.AddLinePoints(p, lines...); err != nil {
		panic(err)
	}

	if err := p.Save(4*vg.Inch, 4*vg.Inch, *outF); err != nil {
		panic(err)
	}
}
