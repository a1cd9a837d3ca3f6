package pipeline_test

import (
	"context"
	"math"
	"math/rand"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/galsynth/internal/catalog"
	"github.com/san-kum/galsynth/internal/density"
	"github.com/san-kum/galsynth/internal/errormodel"
	"github.com/san-kum/galsynth/internal/extinction"
	"github.com/san-kum/galsynth/internal/imf"
	"github.com/san-kum/galsynth/internal/isochrone"
	"github.com/san-kum/galsynth/internal/phasespace"
	"github.com/san-kum/galsynth/internal/photometry"
	"github.com/san-kum/galsynth/internal/pipeline"
	"github.com/san-kum/galsynth/internal/sampler"
)

// log10 of 5 Gyr in years.
const age5Gyr = 9.6989700043

// uniformCube builds particles spread uniformly through a cube of the
// given side length (kpc), all with the same mass, age and
// metallicity, and zero velocity dispersion.
func uniformCube(n int, side, mass float64, seed int64) []phasespace.Particle {
	rng := rand.New(rand.NewSource(seed))
	particles := make([]phasespace.Particle, n)
	for i := range particles {
		particles[i] = phasespace.Particle{
			Pos: phasespace.Vec3{
				rng.Float64() * side,
				rng.Float64() * side,
				rng.Float64() * side,
			},
			Mass:    mass,
			Age:     age5Gyr,
			FeH:     -0.5,
			Log10NH: 20.0,
		}
	}
	return particles
}

func baseConfig() pipeline.Config {
	kroupa, err := imf.Kroupa(0.1, 100)
	Expect(err).NotTo(HaveOccurred())
	return pipeline.Config{
		Seed:    42,
		IMF:     kroupa,
		Track:   isochrone.DemoGAIA(),
		Bands:   isochrone.GAIABands(),
		Density: density.Params{Neighbors: 16},
	}
}

var _ = Describe("Run", func() {
	Context("with a uniform cube and zero velocity dispersion", func() {
		var (
			particles []phasespace.Particle
			cfg       pipeline.Config
			cat       *catalog.Catalog
		)

		BeforeEach(func() {
			particles = uniformCube(100, 10, 200, 1)
			cfg = baseConfig()

			var err error
			cat, err = pipeline.Run(context.Background(), particles, cfg)
			Expect(err).NotTo(HaveOccurred())
		})

		It("produces the expected star count for the IMF", func() {
			totalMass := 0.0
			for _, p := range particles {
				totalMass += p.Mass
			}
			expected := totalMass / cfg.IMF.MeanMass()
			Expect(float64(cat.Len())).To(BeNumerically("~", expected, 0.05*expected))
		})

		It("keeps every magnitude finite and every band populated", func() {
			for _, st := range cat.Stars {
				for _, band := range cfg.Bands {
					mag, ok := st.Mags[band]
					Expect(ok).To(BeTrue())
					Expect(math.IsNaN(mag) || math.IsInf(mag, 0)).To(BeFalse())
				}
			}
		})

		It("copies the collapsed velocity subspace exactly", func() {
			for _, st := range cat.Stars {
				Expect(st.Vel).To(Equal(phasespace.Vec3{}))
			}
		})

		It("copies age and metallicity verbatim", func() {
			for _, st := range cat.Stars {
				Expect(st.Age).To(Equal(age5Gyr))
				Expect(st.FeH).To(Equal(-0.5))
			}
		})

		It("assembles stars in particle order with sequential ids", func() {
			lastParent, lastID := -1, -1
			for _, st := range cat.Stars {
				Expect(st.ParentID).To(BeNumerically(">=", lastParent))
				Expect(st.ID).To(Equal(lastID + 1))
				lastParent, lastID = st.ParentID, st.ID
			}
		})

		It("conserves mass per particle to within one IMF draw", func() {
			perParticle := make(map[int]float64)
			for _, st := range cat.Stars {
				perParticle[st.ParentID] += st.Mass
			}
			for id, sum := range perParticle {
				Expect(sum).To(BeNumerically("~", particles[id].Mass, cfg.IMF.MaxMass()),
					"particle %d", id)
			}
		})
	})

	It("is deterministic for a fixed seed across worker counts", func() {
		particles := uniformCube(40, 10, 100, 2)

		run := func(workers int) *catalog.Catalog {
			cfg := baseConfig()
			cfg.Workers = workers
			cat, err := pipeline.Run(context.Background(), particles, cfg)
			Expect(err).NotTo(HaveOccurred())
			return cat
		}

		a, b, c := run(1), run(1), run(8)
		Expect(b.Len()).To(Equal(a.Len()))
		Expect(c.Len()).To(Equal(a.Len()))
		for i := range a.Stars {
			Expect(b.Stars[i].Mass).To(Equal(a.Stars[i].Mass))
			Expect(b.Stars[i].Pos).To(Equal(a.Stars[i].Pos))
			Expect(c.Stars[i].Mass).To(Equal(a.Stars[i].Mass))
			Expect(c.Stars[i].Pos).To(Equal(a.Stars[i].Pos))
		}
	})

	It("drops and counts stars outside the track coverage", func() {
		track, err := isochrone.NewTrack(
			[]float64{0.5, 2},
			[]float64{age5Gyr - 1, age5Gyr + 0.3},
			[]float64{-1, 0},
			map[string][]float64{"v": {5, 5, 5, 5, 1, 1, 1, 1}},
		)
		Expect(err).NotTo(HaveOccurred())

		cfg := baseConfig()
		cfg.Track = track
		cfg.Bands = []string{"v"}

		cat, err := pipeline.Run(context.Background(), uniformCube(30, 10, 100, 3), cfg)
		Expect(err).NotTo(HaveOccurred())
		Expect(cat.Excluded).To(BeNumerically(">", 0))
		for _, st := range cat.Stars {
			Expect(st.Mass).To(And(
				BeNumerically(">=", 0.5),
				BeNumerically("<=", 2.0),
			))
		}
	})

	It("runs append-only post-processors over the catalog", func() {
		sys, err := photometry.Lookup("GAIA")
		Expect(err).NotTo(HaveOccurred())

		cfg := baseConfig()
		cfg.Processors = []catalog.Processor{
			extinction.New(sys, extinction.Params{}),
			errormodel.New(sys, cfg.Seed),
		}

		cat, err := pipeline.Run(context.Background(), uniformCube(20, 10, 100, 4), cfg)
		Expect(err).NotTo(HaveOccurred())

		Expect(cat.ColumnNames()).To(ContainElements(
			"A_0",
			"A_"+isochrone.BandG,
			isochrone.BandG+"_ext",
			isochrone.BandG+"_err",
			isochrone.BandG+"_obs",
		))

		a0, ok := cat.Column("A_0")
		Expect(ok).To(BeTrue())
		Expect(a0).To(HaveLen(cat.Len()))
	})

	It("reports progress for every particle", func() {
		var mu sync.Mutex
		seen := 0

		cfg := baseConfig()
		cfg.OnProgress = func(done, total int) {
			mu.Lock()
			defer mu.Unlock()
			seen++
			Expect(total).To(Equal(25))
		}

		_, err := pipeline.Run(context.Background(), uniformCube(25, 10, 50, 5), cfg)
		Expect(err).NotTo(HaveOccurred())
		Expect(seen).To(Equal(25))
	})

	It("aborts between particles on cancellation", func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := pipeline.Run(ctx, uniformCube(10, 10, 100, 6), baseConfig())
		Expect(err).To(MatchError(context.Canceled))
	})

	Describe("input validation", func() {
		It("rejects an empty particle set", func() {
			_, err := pipeline.Run(context.Background(), nil, baseConfig())
			Expect(err).To(MatchError(pipeline.ErrInput))
		})

		It("rejects non-positive particle mass", func() {
			particles := uniformCube(5, 10, 100, 7)
			particles[3].Mass = -1
			_, err := pipeline.Run(context.Background(), particles, baseConfig())
			Expect(err).To(MatchError(pipeline.ErrInput))
		})

		It("rejects a fully degenerate particle set", func() {
			particles := make([]phasespace.Particle, 8)
			for i := range particles {
				particles[i] = phasespace.Particle{Mass: 100, Age: age5Gyr}
			}
			_, err := pipeline.Run(context.Background(), particles, baseConfig())
			Expect(err).To(MatchError(pipeline.ErrInput))
		})
	})

	Describe("configuration validation", func() {
		It("rejects a missing IMF", func() {
			cfg := baseConfig()
			cfg.IMF = nil
			_, err := pipeline.Run(context.Background(), uniformCube(5, 10, 100, 8), cfg)
			Expect(err).To(MatchError(pipeline.ErrConfig))
		})

		It("rejects an unloaded band", func() {
			cfg := baseConfig()
			cfg.Bands = append(cfg.Bands, "2mass_jmag")
			_, err := pipeline.Run(context.Background(), uniformCube(5, 10, 100, 9), cfg)
			Expect(err).To(MatchError(pipeline.ErrConfig))
			Expect(err).To(MatchError(isochrone.ErrUnknownBand))
		})

		It("rejects a bad sampling kernel through sampler construction", func() {
			cfg := baseConfig()
			cfg.Sampling = sampler.Params{PosScale: -1}
			_, err := pipeline.Run(context.Background(), uniformCube(5, 10, 100, 10), cfg)
			Expect(err).To(MatchError(pipeline.ErrConfig))
		})
	})
})
