package fluid

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/interp"

	"flownet/model"
)

var ErrInvalidFluid = errors.New("fluid: invalid property set")

// 流体物性：密度、比热容、导热系数为常量，运动粘度随温度变化
type Properties struct {
	Name         string
	Density      float64
	HeatCapacity float64
	Conductivity float64

	viscosity interp.PiecewiseLinear
}

func NewProperties(f model.Fluid) (*Properties, error) {
	if f.Density <= 0 || f.HeatCapacity <= 0 || f.Conductivity <= 0 {
		return nil, fmt.Errorf("%w: density, heat capacity and conductivity must be positive (%s)", ErrInvalidFluid, f.Name)
	}
	if err := checkCurve(f.Viscosity); err != nil {
		return nil, fmt.Errorf("%w: viscosity of %s: %v", ErrInvalidFluid, f.Name, err)
	}
	p := &Properties{
		Name:         f.Name,
		Density:      f.Density,
		HeatCapacity: f.HeatCapacity,
		Conductivity: f.Conductivity,
	}
	if err := p.viscosity.Fit(f.Viscosity.X, f.Viscosity.Y); err != nil {
		return nil, fmt.Errorf("%w: viscosity of %s: %v", ErrInvalidFluid, f.Name, err)
	}
	return p, nil
}

// 运动粘度，m2/s；超出表格范围时取端点值
func (p *Properties) KinematicViscosity(t float64) float64 {
	return p.viscosity.Predict(t)
}

// 单位体积热容，J/m3K
func (p *Properties) VolumetricHeatCapacity() float64 {
	return p.Density * p.HeatCapacity
}

func checkCurve(c model.Curve) error {
	if len(c.X) < 2 || len(c.X) != len(c.Y) {
		return fmt.Errorf("need at least two points with matching lengths, got %d/%d", len(c.X), len(c.Y))
	}
	for i := 1; i < len(c.X); i++ {
		if c.X[i] <= c.X[i-1] {
			return fmt.Errorf("temperatures must be strictly increasing at index %d", i)
		}
	}
	for i, v := range c.Y {
		if v <= 0 {
			return fmt.Errorf("non-positive value at index %d", i)
		}
	}
	return nil
}

// 水，0 ~ 100 ℃
func Water() model.Fluid {
	return model.Fluid{
		Name:         "water",
		Density:      model.WaterDensity,
		HeatCapacity: model.WaterHeatCapacity,
		Conductivity: 0.59,
		Viscosity: model.Curve{
			X: []float64{273.15, 283.15, 293.15, 303.15, 313.15, 323.15, 333.15, 343.15, 353.15, 363.15, 373.15},
			Y: []float64{1.792e-6, 1.307e-6, 1.004e-6, 0.801e-6, 0.658e-6, 0.553e-6, 0.474e-6, 0.413e-6, 0.365e-6, 0.326e-6, 0.295e-6},
		},
	}
}
