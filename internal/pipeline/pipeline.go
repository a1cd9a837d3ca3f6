// Package pipeline sequences the synthetic-survey engine: build
// position- and velocity-space partition trees, estimate and combine
// kernel densities, sample each particle's stellar population, attach
// photometry, and assemble the star catalog. Post-processors then
// append extinction or uncertainty columns under the append-only
// contract.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/san-kum/galsynth/internal/catalog"
	"github.com/san-kum/galsynth/internal/density"
	"github.com/san-kum/galsynth/internal/imf"
	"github.com/san-kum/galsynth/internal/isochrone"
	"github.com/san-kum/galsynth/internal/kdtree"
	"github.com/san-kum/galsynth/internal/phasespace"
	"github.com/san-kum/galsynth/internal/sampler"
)

// Config is the full, explicit configuration of one run. No shared
// mutable state: the same Config can drive concurrent runs.
type Config struct {
	Seed    int64
	Workers int // defaults to runtime.NumCPU()

	IMF      *imf.IMF
	Track    *isochrone.Track
	Bands    []string
	Density  density.Params
	Combiner density.Combiner
	Sampling sampler.Params

	// Processors run in order over the assembled catalog.
	Processors []catalog.Processor

	// OnProgress, if set, is called after each particle's star set is
	// finished. It may be called from multiple goroutines.
	OnProgress func(done, total int)
}

func (cfg *Config) validate() error {
	if cfg.IMF == nil {
		return fmt.Errorf("%w: no IMF", ErrConfig)
	}
	if cfg.Track == nil {
		return fmt.Errorf("%w: no isochrone track", ErrConfig)
	}
	if len(cfg.Bands) == 0 {
		return fmt.Errorf("%w: no bands requested", ErrConfig)
	}
	for _, band := range cfg.Bands {
		if !cfg.Track.HasBand(band) {
			return fmt.Errorf("%w: band %s not loaded (%w)",
				ErrConfig, band, isochrone.ErrUnknownBand)
		}
	}
	if cfg.Workers < 0 {
		return fmt.Errorf("%w: negative worker count", ErrConfig)
	}
	return nil
}

// Run executes the full pipeline over the particle set and returns the
// assembled catalog. Per-particle sampling runs on a bounded worker
// pool; output order is by particle index regardless of scheduling, so
// results are deterministic for a given seed. Cancellation takes
// effect between particles: an aborted particle contributes nothing.
func Run(ctx context.Context, particles []phasespace.Particle, cfg Config) (*catalog.Catalog, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if err := validateParticles(particles); err != nil {
		return nil, err
	}

	field, err := estimateDensities(ctx, particles, cfg)
	if err != nil {
		return nil, err
	}

	smp, err := sampler.New(cfg.IMF, cfg.Sampling)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfig, err)
	}

	perParticle, excluded, err := sampleAll(ctx, particles, field, smp, cfg)
	if err != nil {
		return nil, err
	}

	cat := catalog.New(cfg.Bands)
	cat.Excluded = excluded
	id := 0
	for _, stars := range perParticle {
		for i := range stars {
			stars[i].ID = id
			id++
		}
		cat.Append(stars...)
	}

	for _, proc := range cfg.Processors {
		if err := proc.Process(ctx, cat); err != nil {
			return nil, fmt.Errorf("pipeline: processor %s: %w", proc.Name(), err)
		}
	}
	return cat, nil
}

func validateParticles(particles []phasespace.Particle) error {
	if len(particles) == 0 {
		return fmt.Errorf("%w: empty particle set", ErrInput)
	}
	for i, p := range particles {
		if p.Mass <= 0 || math.IsNaN(p.Mass) || math.IsInf(p.Mass, 0) {
			return fmt.Errorf("%w: particle %d has non-positive mass %g",
				ErrInput, i, p.Mass)
		}
		if !p.Pos.IsFinite() || !p.Vel.IsFinite() {
			return fmt.Errorf("%w: particle %d has non-finite coordinates",
				ErrInput, i)
		}
	}
	return nil
}

// estimateDensities builds both subspace trees and runs the estimator
// over each, concurrently. A subspace whose bounding volume collapses
// to zero (for example zero velocity dispersion) carries no density
// information and is skipped; if both collapse the particle set is
// degenerate.
func estimateDensities(ctx context.Context, particles []phasespace.Particle, cfg Config) (*density.Field, error) {
	est, err := density.NewEstimator(cfg.Density)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfig, err)
	}
	combiner := cfg.Combiner
	if combiner == nil {
		combiner = density.GeometricMean()
	}

	var (
		wg             sync.WaitGroup
		rhoPos, rhoVel []float64
		posErr, velErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		rhoPos, posErr = estimateSubspace(est, phasespace.Positions(particles))
	}()
	go func() {
		defer wg.Done()
		rhoVel, velErr = estimateSubspace(est, phasespace.Velocities(particles))
	}()
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if posErr != nil {
		return nil, fmt.Errorf("pipeline: position density: %w", posErr)
	}
	if velErr != nil {
		return nil, fmt.Errorf("pipeline: velocity density: %w", velErr)
	}
	if rhoPos == nil && rhoVel == nil {
		return nil, fmt.Errorf("%w: degenerate particle set (no spread in position or velocity)", ErrInput)
	}

	return density.CombineFields(combiner, rhoPos, rhoVel), nil
}

// estimateSubspace returns nil densities for a collapsed subspace.
func estimateSubspace(est *density.Estimator, points []phasespace.Vec3) ([]float64, error) {
	tree, err := kdtree.Build(points)
	if err != nil {
		return nil, err
	}
	if tree.Bounds().Volume() == 0 {
		return nil, nil
	}
	return est.Estimate(tree)
}

// sampleAll runs the per-particle sampling and photometry stage on a
// bounded worker pool. Results are stored by particle index so the
// final concatenation is order-independent of scheduling.
func sampleAll(
	ctx context.Context,
	particles []phasespace.Particle,
	field *density.Field,
	smp *sampler.Sampler,
	cfg Config,
) ([][]catalog.Star, int, error) {
	workers := cfg.Workers
	if workers == 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(particles) {
		workers = len(particles)
	}

	n := len(particles)
	results := make([][]catalog.Star, n)
	errs := make([]error, n)
	dropped := make([]int64, n)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var done atomic.Int64
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if runCtx.Err() != nil {
					return
				}
				stars, nd, err := sampleOne(particles[i], i, field, smp, cfg)
				if err != nil {
					errs[i] = err
					cancel()
					return
				}
				results[i] = stars
				dropped[i] = nd
				if cfg.OnProgress != nil {
					cfg.OnProgress(int(done.Add(1)), n)
				}
			}
		}()
	}

feed:
	for i := 0; i < n; i++ {
		select {
		case jobs <- i:
		case <-runCtx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	for _, err := range errs {
		if err != nil {
			return nil, 0, err
		}
	}

	excluded := 0
	for _, d := range dropped {
		excluded += int(d)
	}
	return results, excluded, nil
}

// sampleOne draws one particle's stars and interpolates their
// photometry. Stars outside the track's coverage are dropped and
// counted; any other interpolation failure aborts the run.
func sampleOne(
	p phasespace.Particle,
	i int,
	field *density.Field,
	smp *sampler.Sampler,
	cfg Config,
) ([]catalog.Star, int64, error) {
	d := sampler.Density{Phase: field.Phase[i]}
	if field.Pos != nil {
		d.Pos = field.Pos[i]
	}
	if field.Vel != nil {
		d.Vel = field.Vel[i]
	}

	stars, err := smp.Sample(i, p, d, cfg.Seed+int64(i))
	if err != nil {
		return nil, 0, fmt.Errorf("pipeline: particle %d: %w", i, err)
	}

	kept := stars[:0]
	var nDropped int64
	for _, st := range stars {
		mags, err := cfg.Track.Magnitudes(st.Mass, st.Age, st.FeH, cfg.Bands)
		if err != nil {
			var oor *isochrone.OutOfRangeError
			if errors.As(err, &oor) {
				nDropped++
				continue
			}
			return nil, 0, fmt.Errorf("pipeline: particle %d: %w", i, err)
		}
		st.Mags = mags
		kept = append(kept, st)
	}
	return kept, nDropped, nil
}
