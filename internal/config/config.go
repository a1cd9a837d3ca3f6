package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/galsynth/internal/density"
	"github.com/san-kum/galsynth/internal/imf"
	"github.com/san-kum/galsynth/internal/sampler"
)

const (
	DefaultName      = "survey"
	DefaultSeed      = 1
	DefaultNeighbors = 64
	DefaultMinMass   = 0.1
	DefaultMaxMass   = 100.0
	DefaultSystem    = "GAIA"
)

type Config struct {
	Name       string           `yaml:"name"`
	Seed       int64            `yaml:"seed"`
	Workers    int              `yaml:"workers"`
	IMF        IMFConfig        `yaml:"imf"`
	Density    DensityConfig    `yaml:"density"`
	Sampling   SamplingConfig   `yaml:"sampling"`
	Photometry PhotometryConfig `yaml:"photometry"`
	Extinction ExtinctionConfig `yaml:"extinction"`
	ErrorModel ErrorModelConfig `yaml:"error_model"`
}

type IMFConfig struct {
	Kind    string    `yaml:"kind"` // kroupa | broken-power-law
	MinMass float64   `yaml:"min_mass"`
	MaxMass float64   `yaml:"max_mass"`
	Breaks  []float64 `yaml:"breaks,omitempty"`
	Slopes  []float64 `yaml:"slopes,omitempty"`
}

type DensityConfig struct {
	Neighbors int    `yaml:"neighbors"`
	Kernel    string `yaml:"kernel"`    // gaussian | triangular | epanechnikov
	Bandwidth string `yaml:"bandwidth"` // farthest | leafsize
	Combine   string `yaml:"combine"`   // geometric-mean | product
}

type SamplingConfig struct {
	Kernel   string  `yaml:"kernel"` // gaussian | triangular | epanechnikov
	PosScale float64 `yaml:"pos_scale"`
	VelScale float64 `yaml:"vel_scale"`
}

type PhotometryConfig struct {
	System string   `yaml:"system"`
	Bands  []string `yaml:"bands,omitempty"` // empty selects all system bands
}

type ExtinctionConfig struct {
	Enabled bool    `yaml:"enabled"`
	QDust   float64 `yaml:"q_dust"`
	RV      float64 `yaml:"rv"`
}

type ErrorModelConfig struct {
	Enabled bool `yaml:"enabled"`
}

func DefaultConfig() *Config {
	return &Config{
		Name:    DefaultName,
		Seed:    DefaultSeed,
		Workers: 0, // auto
		IMF: IMFConfig{
			Kind:    "kroupa",
			MinMass: DefaultMinMass,
			MaxMass: DefaultMaxMass,
		},
		Density: DensityConfig{
			Neighbors: DefaultNeighbors,
			Kernel:    "gaussian",
			Bandwidth: "farthest",
			Combine:   "geometric-mean",
		},
		Sampling: SamplingConfig{
			Kernel:   "gaussian",
			PosScale: 1,
			VelScale: 1,
		},
		Photometry: PhotometryConfig{System: DefaultSystem},
		Extinction: ExtinctionConfig{Enabled: false},
		ErrorModel: ErrorModelConfig{Enabled: false},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// BuildIMF constructs the configured mass function.
func (c IMFConfig) BuildIMF() (*imf.IMF, error) {
	switch c.Kind {
	case "", "kroupa":
		return imf.Kroupa(c.MinMass, c.MaxMass)
	case "broken-power-law":
		return imf.New(c.Breaks, c.Slopes)
	default:
		return nil, fmt.Errorf("%w: unknown IMF kind %q", imf.ErrConfig, c.Kind)
	}
}

// BuildParams resolves the density-estimation tags.
func (c DensityConfig) BuildParams() (density.Params, density.Combiner, error) {
	kernel, err := density.KernelByName(c.Kernel)
	if err != nil {
		return density.Params{}, nil, err
	}
	combiner, err := density.CombinerByName(c.Combine)
	if err != nil {
		return density.Params{}, nil, err
	}
	return density.Params{
		Neighbors: c.Neighbors,
		Kernel:    kernel,
		Bandwidth: density.BandwidthPolicy(c.Bandwidth),
	}, combiner, nil
}

// BuildParams resolves the star-placement tags.
func (c SamplingConfig) BuildParams() (sampler.Params, error) {
	kernel, err := sampler.PlacementByName(c.Kernel)
	if err != nil {
		return sampler.Params{}, err
	}
	return sampler.Params{
		Kernel:   kernel,
		PosScale: c.PosScale,
		VelScale: c.VelScale,
	}, nil
}
