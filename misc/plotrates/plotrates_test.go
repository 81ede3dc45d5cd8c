package main

import (
	"math"
	"testing"

	"bitbucket.org/Davydov/siterates/alphabet"
	"bitbucket.org/Davydov/siterates/sitemodel"
	"bitbucket.org/Davydov/siterates/substmodel"
)

func TestPoints(tst *testing.T) {
	c := sitemodel.DefaultConfig()
	c.SubstModel = substmodel.NewJukesCantor(4)
	c.CategoryCount = 4
	c.Shape = 0.5
	c.ProportionInvariant = 0.2
	sm, err := sitemodel.New(c, alphabet.Nucleotide)
	if err != nil {
		tst.Fatal("Error: ", err)
	}
	pts := points(sm)
	if len(pts) != 5 {
		tst.Fatalf("Wrong number of points: %d", len(pts))
	}
	if pts[0].X != 0 || math.Abs(pts[0].Y-0.2) > 1e-12 {
		tst.Errorf("Wrong invariant point: %v", pts[0])
	}
	for i := 1; i < len(pts); i++ {
		if pts[i].X < pts[i-1].X || pts[i].Y < pts[i-1].Y {
			tst.Errorf("Points are not increasing: %v", pts)
		}
	}
	if math.Abs(pts[len(pts)-1].Y-1) > 1e-12 {
		tst.Errorf("Cumulative proportion is %v", pts[len(pts)-1].Y)
	}
}
