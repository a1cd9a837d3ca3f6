package analysis

import (
	"fmt"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"

	"github.com/san-kum/galsynth/internal/catalog"
)

// GridCounts bins star positions along one spatial axis (0=x, 1=y,
// 2=z) into equal-width cells spanning the catalog extent.
func GridCounts(cat *catalog.Catalog, axis, cells int) ([]float64, error) {
	if axis < 0 || axis > 2 {
		return nil, fmt.Errorf("analysis: axis %d out of range", axis)
	}
	if cells < 2 {
		return nil, fmt.Errorf("analysis: need at least two cells, got %d", cells)
	}
	if cat.Len() == 0 {
		return nil, fmt.Errorf("analysis: empty catalog")
	}

	lo := cat.Stars[0].Pos[axis]
	hi := lo
	for _, st := range cat.Stars[1:] {
		v := st.Pos[axis]
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	span := hi - lo
	if span == 0 {
		span = 1
	}

	grid := make([]float64, cells)
	for _, st := range cat.Stars {
		cell := int((st.Pos[axis] - lo) / span * float64(cells))
		if cell == cells {
			cell--
		}
		grid[cell]++
	}
	return grid, nil
}

// SpatialPowerSpectrum grids the catalog along one axis and returns
// |F_k|^2 of the cell counts for k = 0..cells/2. A flat spectrum away
// from k=0 means unclustered positions; excess power at low k means
// large-scale structure.
func SpatialPowerSpectrum(cat *catalog.Catalog, axis, cells int) ([]float64, error) {
	if cells&(cells-1) != 0 {
		return nil, fmt.Errorf("analysis: cell count %d is not a power of two", cells)
	}

	grid, err := GridCounts(cat, axis, cells)
	if err != nil {
		return nil, err
	}

	coeffs := fft.FFTReal(grid)
	power := make([]float64, cells/2+1)
	for k := range power {
		a := cmplx.Abs(coeffs[k])
		power[k] = a * a
	}
	return power, nil
}
