package element

import (
	"fmt"
	"math"

	"flownet/fluid"
	"flownet/model"
)

// 带效率损失的水泵，泵内流体为一个状态
//
// 机械功率 = |质量流量 / 密度 * 扬程|，电功率 = 机械功率 / 最大效率，
// 电机损失中的一部分加热流体（热损失为负），其余散失到环境。
type Pump struct {
	heatLossBase

	pressureHead    float64
	efficiency      float64
	fractionToFluid float64
	mechanicalPower float64
	electricalPower float64
	environmentLoss float64
}

func NewPump(id int, p model.Pump, volume float64, props *fluid.Properties, opts Options) (*Pump, error) {
	if p.MaximumEfficiency <= 0 || p.MaximumEfficiency > 1 {
		return nil, fmt.Errorf("%w: pump %d efficiency %g not in (0,1]", ErrInvalidParameter, id, p.MaximumEfficiency)
	}
	if p.FractionOfMotorInefficienciesToFluid < 0 || p.FractionOfMotorInefficienciesToFluid > 1 {
		return nil, fmt.Errorf("%w: pump %d fraction to fluid %g not in [0,1]", ErrInvalidParameter, id, p.FractionOfMotorInefficienciesToFluid)
	}
	base, err := newHeatLossBase(id, props, volume, opts)
	if err != nil {
		return nil, err
	}
	return &Pump{
		heatLossBase:    base,
		pressureHead:    p.PressureHead,
		efficiency:      p.MaximumEfficiency,
		fractionToFluid: p.FractionOfMotorInefficienciesToFluid,
	}, nil
}

func (pu *Pump) SetInflowTemperature(tInflow float64) {
	pu.mustHaveStates()
	pu.inflowTemperature = tInflow
	pu.mechanicalPower = math.Abs(pu.massFlux / pu.props.Density * pu.pressureHead)
	pu.electricalPower = pu.mechanicalPower / pu.efficiency
	loss := pu.electricalPower - pu.mechanicalPower
	pu.heatLoss = -pu.fractionToFluid * loss
	pu.environmentLoss = (1 - pu.fractionToFluid) * loss
}

func (pu *Pump) Dependencies(ydot, y, mdot, tInflowLeft, tInflowRight Slot, deps []Edge) []Edge {
	return pu.baseDependencies(ydot, y, mdot, tInflowLeft, tInflowRight, deps)
}

func (pu *Pump) ModelQuantities() []Quantity {
	return append(pu.heatLossBase.ModelQuantities(),
		Quantity{Name: "MechanicalPower", Unit: "W", Description: "Hydraulic power delivered to the fluid"},
		Quantity{Name: "ElectricalPower", Unit: "W", Description: "Electrical power drawn by the pump"},
		Quantity{Name: "PumpHeatToEnvironment", Unit: "W", Description: "Motor losses released to the environment"},
	)
}

func (pu *Pump) ModelQuantityValueRefs() []*float64 {
	return append(pu.heatLossBase.ModelQuantityValueRefs(), &pu.mechanicalPower, &pu.electricalPower, &pu.environmentLoss)
}
