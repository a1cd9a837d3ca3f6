// Package errormodel appends photometric uncertainty columns to a
// finished catalog using the band system's magnitude error model, plus
// seeded noisy "observed" magnitudes. Append-only: intrinsic values
// stay untouched.
package errormodel

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/san-kum/galsynth/internal/catalog"
	"github.com/san-kum/galsynth/internal/photometry"
)

// ErrMissingBand indicates the catalog lacks a band the error model
// needs. A missing magnitude must never be read as zero.
var ErrMissingBand = errors.New("errormodel: required band not in catalog")

// Processor appends <band>_err and <band>_obs columns.
type Processor struct {
	sys  photometry.System
	seed int64
}

// New returns an error-model processor. The seed makes the simulated
// measurement noise reproducible.
func New(sys photometry.System, seed int64) *Processor {
	return &Processor{sys: sys, seed: seed}
}

func (pr *Processor) Name() string { return "errormodel" }

// Process walks stars in catalog order with a single seeded rng, so
// the appended noise is deterministic for a given catalog and seed.
// Stars outside the model's validity range get NaN columns.
func (pr *Processor) Process(ctx context.Context, c *catalog.Catalog) error {
	bands, err := pr.catalogBands(c)
	if err != nil {
		return err
	}

	n := c.Len()
	sigmas := make(map[string][]float64, len(bands))
	observed := make(map[string][]float64, len(bands))
	for _, band := range bands {
		sigmas[band] = make([]float64, n)
		observed[band] = make([]float64, n)
	}

	rng := rand.New(rand.NewSource(pr.seed))
	for i, st := range c.Stars {
		if err := ctx.Err(); err != nil {
			return err
		}

		errs := pr.sys.MagErr(st.Mags[pr.sys.RefBand])
		for _, band := range bands {
			sigma := errs[band]
			sigmas[band][i] = sigma
			deviate := rng.NormFloat64()
			if math.IsNaN(sigma) {
				observed[band][i] = math.NaN()
				continue
			}
			observed[band][i] = st.Mags[band] + sigma*deviate
		}
	}

	for _, band := range bands {
		if err := c.AddColumn(band+"_err", sigmas[band]); err != nil {
			return err
		}
		if err := c.AddColumn(band+"_obs", observed[band]); err != nil {
			return err
		}
	}
	return nil
}

// catalogBands restricts the processor to bands the catalog actually
// carries. The reference band is mandatory: it drives every band's
// uncertainty fit.
func (pr *Processor) catalogBands(c *catalog.Catalog) ([]string, error) {
	have := make(map[string]bool, len(c.Bands))
	for _, band := range c.Bands {
		have[band] = true
	}
	if !have[pr.sys.RefBand] {
		return nil, fmt.Errorf("%w: %s", ErrMissingBand, pr.sys.RefBand)
	}
	bands := make([]string, 0, len(pr.sys.Bands))
	for _, band := range pr.sys.Bands {
		if have[band] {
			bands = append(bands, band)
		}
	}
	return bands, nil
}
