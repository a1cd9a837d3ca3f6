// Package analysis provides catalog-level diagnostics.
//
// The package includes tools for characterizing a synthetic catalog:
//
//   - [LuminosityFunction]: star counts binned by magnitude
//   - [SpatialPowerSpectrum]: 1D clustering spectrum along an axis
//   - [ProjectionASCII]: terminal scatter plot of star positions
//
// # Sanity checks
//
// A quick look at the shape of a run:
//
//	lf, _ := analysis.LuminosityFunction(cat, isochrone.BandG, 20)
//	fmt.Println(analysis.ProjectionASCII(cat, 0, 1, 60, 20))
package analysis
