package isochrone

import "math"

// GAIA DR2 band names, matching the column naming of the upstream
// photometric library.
const (
	BandG  = "gaia_gmag"
	BandBP = "gaia_g_bpmag"
	BandRP = "gaia_g_rpmag"
)

// GAIABands returns the GAIA band set in catalog order.
func GAIABands() []string {
	return []string{BandG, BandBP, BandRP}
}

// DemoGAIA builds an approximate GAIA track from a smooth analytic
// main-sequence model: bolometric magnitude from an m^3.5
// mass-luminosity law with mild age and metallicity terms, and a
// mass-dependent BP-RP color. It is intended for tests and the CLI
// demo scenario, not for science; load a real tabulated grid for
// production runs.
func DemoGAIA() *Track {
	masses := logspace(0.08, 120, 40)
	ages := linspace(6.6, 10.2, 19)   // log10 yr
	fehs := linspace(-2.5, 0.5, 13)   // dex

	n := len(masses) * len(ages) * len(fehs)
	g := make([]float64, 0, n)
	bp := make([]float64, 0, n)
	rp := make([]float64, 0, n)

	for _, m := range masses {
		for _, age := range ages {
			for _, feh := range fehs {
				gm, color := demoGAIAMags(m, age, feh)
				g = append(g, gm)
				bp = append(bp, gm+0.45*color)
				rp = append(rp, gm-0.55*color)
			}
		}
	}

	track, err := NewTrack(masses, ages, fehs, map[string][]float64{
		BandG:  g,
		BandBP: bp,
		BandRP: rp,
	})
	if err != nil {
		panic("isochrone: demo grid construction: " + err.Error())
	}
	return track
}

func demoGAIAMags(mass, age, feh float64) (gmag, color float64) {
	// Mbol = 4.74 - 2.5 log10(L/Lsun), L ∝ m^3.5, dimmed slightly with
	// age and metal content.
	logL := 3.5 * math.Log10(mass)
	gmag = 4.74 - 2.5*logL + 0.15*(age-9.0) + 0.25*feh
	color = 0.8 - 1.1*math.Log10(mass) + 0.12*feh
	return gmag, color
}

func linspace(lo, hi float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = lo + (hi-lo)*float64(i)/float64(n-1)
	}
	out[n-1] = hi
	return out
}

func logspace(lo, hi float64, n int) []float64 {
	out := linspace(math.Log10(lo), math.Log10(hi), n)
	for i, v := range out {
		out[i] = math.Pow(10, v)
	}
	out[n-1] = hi
	return out
}
