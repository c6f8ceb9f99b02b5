package fluid

import "math"

const (
	laminarLimit   = 2300.0
	turbulentLimit = 1e4
)

// 无量纲换热准则
type Correlation interface {
	Reynolds(velocity, viscosity, diameter float64) float64
	Prandtl(viscosity, heatCapacity, conductivity, density float64) float64
	Nusselt(reynolds, prandtl, length, diameter float64) float64
}

// 圆管内强制对流：层流 Hausen，湍流 Gnielinski，过渡区线性插值
type Standard struct{}

func (Standard) Reynolds(velocity, viscosity, diameter float64) float64 {
	if velocity == 0 || viscosity <= 0 {
		return 0
	}
	return math.Abs(velocity) * diameter / viscosity
}

func (Standard) Prandtl(viscosity, heatCapacity, conductivity, density float64) float64 {
	return viscosity * heatCapacity * density / conductivity
}

func (Standard) Nusselt(reynolds, prandtl, length, diameter float64) float64 {
	switch {
	case reynolds < laminarLimit:
		return nusseltLaminar(reynolds, prandtl, length, diameter)
	case reynolds < turbulentLimit:
		gamma := (reynolds - laminarLimit) / (turbulentLimit - laminarLimit)
		return (1-gamma)*nusseltLaminar(laminarLimit, prandtl, length, diameter) +
			gamma*nusseltTurbulent(turbulentLimit, prandtl, length, diameter)
	default:
		return nusseltTurbulent(reynolds, prandtl, length, diameter)
	}
}

func nusseltLaminar(reynolds, prandtl, length, diameter float64) float64 {
	gz := reynolds * prandtl * diameter / length
	return 3.66 + 0.0668*gz/(1+0.04*math.Pow(gz, 2.0/3.0))
}

func nusseltTurbulent(reynolds, prandtl, length, diameter float64) float64 {
	zeta := math.Pow(1.8*math.Log10(reynolds)-1.5, -2)
	return zeta / 8 * reynolds * prandtl /
		(1 + 12.7*math.Sqrt(zeta/8)*(math.Pow(prandtl, 2.0/3.0)-1)) *
		(1 + math.Pow(diameter/length, 2.0/3.0))
}
