// Package catalog defines the synthetic star record, the output
// catalog, and the append-only post-processing extension point used by
// the extinction and error-model collaborators.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/san-kum/galsynth/internal/phasespace"
)

// ErrColumnExists indicates an attempt to overwrite an existing
// catalog column. Post-processing is append-only: produced values are
// never altered.
var ErrColumnExists = errors.New("catalog: column already exists")

// ErrColumnLength indicates a column whose length does not match the
// star count.
var ErrColumnLength = errors.New("catalog: column length mismatch")

// Star is one resolved synthetic star. Immutable once appended to a
// catalog; ParentID is a weak back-reference to the particle that
// produced it.
type Star struct {
	ID       int
	ParentID int

	Pos  phasespace.Vec3 // kpc
	Vel  phasespace.Vec3 // km/s
	Mass float64         // solar masses

	// Copied verbatim from the parent particle.
	Age        float64
	FeH        float64
	Abundances []float64
	Log10NH    float64

	// Mags holds the intrinsic absolute magnitude per band.
	Mags map[string]float64
}

// Catalog is the assembled output of one pipeline run: the star set
// plus any columns appended by post-processors.
type Catalog struct {
	Stars []Star
	Bands []string

	// Excluded counts stars dropped because their (mass, age,
	// metallicity) fell outside the isochrone track.
	Excluded int

	columns map[string][]float64
	order   []string
}

// New returns an empty catalog for the given band set.
func New(bands []string) *Catalog {
	return &Catalog{
		Bands:   append([]string(nil), bands...),
		columns: make(map[string][]float64),
	}
}

// Append adds fully formed stars to the catalog.
func (c *Catalog) Append(stars ...Star) {
	c.Stars = append(c.Stars, stars...)
}

// Len returns the number of stars.
func (c *Catalog) Len() int { return len(c.Stars) }

// AddColumn appends one named column of per-star values. Re-adding an
// existing name or a mismatched length is an error; existing columns
// and star fields are never modified through this path.
func (c *Catalog) AddColumn(name string, vals []float64) error {
	if _, ok := c.columns[name]; ok {
		return fmt.Errorf("%w: %s", ErrColumnExists, name)
	}
	if len(vals) != len(c.Stars) {
		return fmt.Errorf("%w: %s has %d values for %d stars",
			ErrColumnLength, name, len(vals), len(c.Stars))
	}
	c.columns[name] = vals
	c.order = append(c.order, name)
	return nil
}

// Column returns a previously appended column by name.
func (c *Catalog) Column(name string) ([]float64, bool) {
	vals, ok := c.columns[name]
	return vals, ok
}

// ColumnNames lists appended columns in addition order.
func (c *Catalog) ColumnNames() []string {
	return append([]string(nil), c.order...)
}

// SortByProvenance orders stars by (parent particle, star id). Catalog
// assembly is concatenation, so this gives callers a deterministic
// order regardless of how stars were produced. Must be called before
// any columns are appended, since columns are positional.
func (c *Catalog) SortByProvenance() {
	sort.Slice(c.Stars, func(a, b int) bool {
		sa, sb := c.Stars[a], c.Stars[b]
		if sa.ParentID != sb.ParentID {
			return sa.ParentID < sb.ParentID
		}
		return sa.ID < sb.ID
	})
}

// Processor is the catalog-level extension point. Implementations may
// read every produced column and append new ones, but never alter
// already-produced values.
type Processor interface {
	Name() string
	Process(ctx context.Context, c *Catalog) error
}
