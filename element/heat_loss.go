package element

import (
	"math"

	"flownet/fluid"
	"flownet/model"
)

// 由外部给定热损失的元件，可按最低出口温度限幅
type ExternalHeatLoss struct {
	heatLossBase

	minimumOutletTemperature float64

	external         Ref
	externalHeatLoss float64
}

func NewExternalHeatLoss(id int, p model.HeatLoss, volume float64, props *fluid.Properties, opts Options) (*ExternalHeatLoss, error) {
	base, err := newHeatLossBase(id, props, volume, opts)
	if err != nil {
		return nil, err
	}
	return &ExternalHeatLoss{
		heatLossBase:             base,
		minimumOutletTemperature: p.MinimumOutletTemperature,
	}, nil
}

func (e *ExternalHeatLoss) InputReferences() []InputReference {
	return e.inputRefs(InputHeatLoss)
}

func (e *ExternalHeatLoss) SetInputValueRefs(refs []Ref) {
	checkRefs(e.id, refs, 1)
	e.external = refs[0]
}

// 稳态出口温度不得低于最低出口温度：超出部分的取热被削减，入流温度已低于下限时不取热
func (e *ExternalHeatLoss) SetInflowTemperature(tInflow float64) {
	e.mustHaveStates()
	e.inflowTemperature = tInflow
	e.externalHeatLoss = e.external.Value()
	e.heatLoss = e.externalHeatLoss
	if e.minimumOutletTemperature <= 0 || e.heatLoss <= 0 {
		return
	}
	maxHeatLoss := math.Abs(e.massFlux) * e.props.HeatCapacity * (tInflow - e.minimumOutletTemperature)
	if maxHeatLoss <= 0 {
		e.heatLoss = 0
	} else if e.heatLoss > maxHeatLoss {
		e.heatLoss = maxHeatLoss
	}
}

func (e *ExternalHeatLoss) Dependencies(ydot, y, mdot, tInflowLeft, tInflowRight Slot, deps []Edge) []Edge {
	return e.baseDependencies(ydot, y, mdot, tInflowLeft, tInflowRight, deps, e.external.Slot())
}

func (e *ExternalHeatLoss) ModelQuantities() []Quantity {
	return append(e.heatLossBase.ModelQuantities(),
		Quantity{Name: "ExternalHeatLoss", Unit: "W", Description: "Heat loss requested before clipping"},
	)
}

func (e *ExternalHeatLoss) ModelQuantityValueRefs() []*float64 {
	return append(e.heatLossBase.ModelQuantityValueRefs(), &e.externalHeatLoss)
}
