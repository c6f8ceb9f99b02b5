package element

import (
	"fmt"
	"math"

	"flownet/fluid"
	"flownet/model"
)

// 管内对流换热，按平均温度计算一次 Re/Pr/Nu
type pipeConvection struct {
	props *fluid.Properties
	corr  fluid.Correlation

	length        float64
	innerDiameter float64
	outerDiameter float64
	uValueWall    float64
	outerHTC      float64
	parallel      int

	velocity  float64
	viscosity float64
	reynolds  float64
	prandtl   float64
	nusselt   float64
	innerHTC  float64
}

func newPipeConvection(id int, p model.Pipe, props *fluid.Properties, opts Options, exchange bool) (pipeConvection, error) {
	if props == nil {
		return pipeConvection{}, fmt.Errorf("%w: pipe %d has no fluid", ErrInvalidParameter, id)
	}
	if p.Length <= 0 || p.InnerDiameter <= 0 {
		return pipeConvection{}, fmt.Errorf("%w: pipe %d needs positive length and inner diameter", ErrInvalidParameter, id)
	}
	if p.ParallelPipes < 0 {
		return pipeConvection{}, fmt.Errorf("%w: pipe %d parallel pipe count %d", ErrInvalidParameter, id, p.ParallelPipes)
	}
	if exchange {
		if p.UValueWall <= 0 {
			return pipeConvection{}, fmt.Errorf("%w: pipe %d wall U-value must be positive", ErrInvalidParameter, id)
		}
		if p.OuterHeatTransferCoefficient < 0 {
			return pipeConvection{}, fmt.Errorf("%w: pipe %d outer heat transfer coefficient is negative", ErrInvalidParameter, id)
		}
		if p.OuterHeatTransferCoefficient > 0 && p.OuterDiameter <= 0 {
			return pipeConvection{}, fmt.Errorf("%w: pipe %d outer heat transfer needs an outer diameter", ErrInvalidParameter, id)
		}
	}
	parallel := p.ParallelPipes
	if parallel == 0 {
		parallel = 1
	}
	return pipeConvection{
		props:         props,
		corr:          opts.correlation(),
		length:        p.Length,
		innerDiameter: p.InnerDiameter,
		outerDiameter: p.OuterDiameter,
		uValueWall:    p.UValueWall,
		outerHTC:      p.OuterHeatTransferCoefficient,
		parallel:      parallel,
	}, nil
}

func (c *pipeConvection) crossSection() float64 {
	return math.Pi * c.innerDiameter * c.innerDiameter / 4
}

// 所有并联管道的流体体积
func (c *pipeConvection) fluidVolume() float64 {
	return c.crossSection() * c.length * float64(c.parallel)
}

// massFlux 为所有并联管道的总流量
func (c *pipeConvection) update(massFlux, meanTemperature float64) {
	c.velocity = math.Abs(massFlux) / float64(c.parallel) / (c.props.Density * c.crossSection())
	c.viscosity = c.props.KinematicViscosity(meanTemperature)
	c.reynolds = c.corr.Reynolds(c.velocity, c.viscosity, c.innerDiameter)
	c.prandtl = c.corr.Prandtl(c.viscosity, c.props.HeatCapacity, c.props.Conductivity, c.props.Density)
	c.nusselt = c.corr.Nusselt(c.reynolds, c.prandtl, c.length, c.innerDiameter)
	c.innerHTC = c.nusselt * c.props.Conductivity / c.innerDiameter
}

func (c *pipeConvection) innerResistance() float64 {
	return 1 / (c.innerHTC * math.Pi * c.innerDiameter)
}

func (c *pipeConvection) outerResistance() float64 {
	if c.outerHTC <= 0 {
		return 0
	}
	return 1 / (c.outerHTC * math.Pi * c.outerDiameter)
}

// 单根管道 length 长度上的 UA，W/K；内外表面换热与管壁串联
func (c *pipeConvection) ua(length float64) float64 {
	return length / (c.innerResistance() + 1/c.uValueWall + c.outerResistance())
}

func (c *pipeConvection) quantities() []Quantity {
	return []Quantity{
		{Name: "Velocity", Unit: "m/s", Description: "Mean fluid velocity in one pipe"},
		{Name: "Viscosity", Unit: "m2/s", Description: "Kinematic viscosity at mean temperature"},
		{Name: "Reynolds", Unit: "---", Description: "Reynolds number"},
		{Name: "Prandtl", Unit: "---", Description: "Prandtl number"},
		{Name: "Nusselt", Unit: "---", Description: "Nusselt number"},
		{Name: "InnerHeatTransferCoefficient", Unit: "W/m2K", Description: "Convective coefficient at the inner pipe surface"},
	}
}

func (c *pipeConvection) quantityRefs() []*float64 {
	return []*float64{&c.velocity, &c.viscosity, &c.reynolds, &c.prandtl, &c.nusselt, &c.innerHTC}
}

// 集总稳态管道，整根管道的流体为一个状态
type StaticPipe struct {
	heatLossBase
	pipeConvection

	adiabatic bool
	ambient   Ref
	uaValue   float64
}

func NewStaticPipe(id int, p model.Pipe, props *fluid.Properties, opts Options) (*StaticPipe, error) {
	adiabatic := p.HeatExchange == model.HeatExchangeNone
	conv, err := newPipeConvection(id, p, props, opts, !adiabatic)
	if err != nil {
		return nil, err
	}
	base, err := newHeatLossBase(id, props, conv.fluidVolume(), opts)
	if err != nil {
		return nil, err
	}
	return &StaticPipe{
		heatLossBase:   base,
		pipeConvection: conv,
		adiabatic:      adiabatic,
	}, nil
}

func (sp *StaticPipe) InputReferences() []InputReference {
	if sp.adiabatic {
		return nil
	}
	return sp.inputRefs(InputAmbientTemperature)
}

func (sp *StaticPipe) SetInputValueRefs(refs []Ref) {
	checkRefs(sp.id, refs, len(sp.InputReferences()))
	if !sp.adiabatic {
		sp.ambient = refs[0]
	}
}

func (sp *StaticPipe) SetInflowTemperature(tInflow float64) {
	sp.mustHaveStates()
	sp.inflowTemperature = tInflow
	if sp.adiabatic {
		sp.heatLoss = 0
		return
	}
	sp.update(sp.massFlux, sp.meanTemperature)
	sp.uaValue = sp.ua(sp.length) * float64(sp.parallel)
	sp.heatLoss = sp.uaValue * (sp.meanTemperature - sp.ambient.Value())
}

func (sp *StaticPipe) UA() float64 {
	return sp.uaValue
}

func (sp *StaticPipe) Dependencies(ydot, y, mdot, tInflowLeft, tInflowRight Slot, deps []Edge) []Edge {
	if sp.adiabatic {
		return sp.baseDependencies(ydot, y, mdot, tInflowLeft, tInflowRight, deps)
	}
	return sp.baseDependencies(ydot, y, mdot, tInflowLeft, tInflowRight, deps, sp.ambient.Slot())
}

func (sp *StaticPipe) ModelQuantities() []Quantity {
	q := append(sp.heatLossBase.ModelQuantities(), sp.pipeConvection.quantities()...)
	return append(q, Quantity{Name: "UAValue", Unit: "W/K", Description: "Total thermal conductance of all parallel pipes"})
}

func (sp *StaticPipe) ModelQuantityValueRefs() []*float64 {
	refs := append(sp.heatLossBase.ModelQuantityValueRefs(), sp.pipeConvection.quantityRefs()...)
	return append(refs, &sp.uaValue)
}
