package density

import "math"

// Kernel is a symmetric distance-decaying weight function used for
// density smoothing. Weight takes the scaled distance u = d/h and
// returns a non-negative weight; Weight(0) is the self weight.
// Normalization constants are irrelevant here since weights are
// renormalized over each neighborhood.
type Kernel interface {
	Name() string
	Weight(u float64) float64
}

type gaussianKernel struct{}

func (gaussianKernel) Name() string { return "gaussian" }
func (gaussianKernel) Weight(u float64) float64 {
	return math.Exp(-0.5 * u * u)
}

type triangularKernel struct{}

func (triangularKernel) Name() string { return "triangular" }
func (triangularKernel) Weight(u float64) float64 {
	if u >= 1 {
		return 0
	}
	return 1 - u
}

type epanechnikovKernel struct{}

func (epanechnikovKernel) Name() string { return "epanechnikov" }
func (epanechnikovKernel) Weight(u float64) float64 {
	if u >= 1 {
		return 0
	}
	return 1 - u*u
}

// Gaussian returns the default smoothing kernel.
func Gaussian() Kernel { return gaussianKernel{} }

// Triangular returns a compact linear falloff kernel.
func Triangular() Kernel { return triangularKernel{} }

// Epanechnikov returns the minimum-variance compact kernel.
func Epanechnikov() Kernel { return epanechnikovKernel{} }

// KernelByName resolves a configuration tag to a kernel.
func KernelByName(name string) (Kernel, error) {
	switch name {
	case "", "gaussian":
		return Gaussian(), nil
	case "triangular":
		return Triangular(), nil
	case "epanechnikov":
		return Epanechnikov(), nil
	default:
		return nil, &ConfigError{Field: "kernel", Value: name}
	}
}
