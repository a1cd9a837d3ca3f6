package config

// Presets are ready-made survey configurations.
var Presets = map[string]*Config{
	// The standard setup: Kroupa IMF over the full stellar mass range,
	// GAIA photometry, no post-processing.
	"gaia": {
		Name: "gaia",
		Seed: DefaultSeed,
		IMF:  IMFConfig{Kind: "kroupa", MinMass: 0.1, MaxMass: 100},
		Density: DensityConfig{
			Neighbors: 64, Kernel: "gaussian",
			Bandwidth: "farthest", Combine: "geometric-mean",
		},
		Sampling:   SamplingConfig{Kernel: "gaussian", PosScale: 1, VelScale: 1},
		Photometry: PhotometryConfig{System: "GAIA"},
	},

	// GAIA with dust extinction and DR2 measurement uncertainties
	// appended to the catalog.
	"gaia-observed": {
		Name: "gaia-observed",
		Seed: DefaultSeed,
		IMF:  IMFConfig{Kind: "kroupa", MinMass: 0.1, MaxMass: 100},
		Density: DensityConfig{
			Neighbors: 64, Kernel: "gaussian",
			Bandwidth: "farthest", Combine: "geometric-mean",
		},
		Sampling:   SamplingConfig{Kernel: "gaussian", PosScale: 1, VelScale: 1},
		Photometry: PhotometryConfig{System: "GAIA"},
		Extinction: ExtinctionConfig{Enabled: true},
		ErrorModel: ErrorModelConfig{Enabled: true},
	},

	// Compact kernels and a small neighbor count: faster and sharper,
	// for quick looks at small particle sets.
	"quick-look": {
		Name: "quick-look",
		Seed: DefaultSeed,
		IMF:  IMFConfig{Kind: "kroupa", MinMass: 0.1, MaxMass: 100},
		Density: DensityConfig{
			Neighbors: 16, Kernel: "epanechnikov",
			Bandwidth: "farthest", Combine: "geometric-mean",
		},
		Sampling:   SamplingConfig{Kernel: "triangular", PosScale: 1, VelScale: 1},
		Photometry: PhotometryConfig{System: "GAIA"},
	},
}

func GetPreset(name string) *Config {
	cfg, ok := Presets[name]
	if !ok {
		return nil
	}
	return cfg
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	return names
}
