package element

import (
	"fmt"
	"math"

	"flownet/fluid"
)

// 理想加热/冷却器：出口温度等于设定值，无内部状态
type IdealHeaterCooler struct {
	flowBase
	props *fluid.Properties

	setpoint           Ref
	outflowTemperature float64
	heatLoss           float64
}

func NewIdealHeaterCooler(id int, props *fluid.Properties, opts Options) (*IdealHeaterCooler, error) {
	if props == nil {
		return nil, fmt.Errorf("%w: heater %d has no fluid", ErrInvalidParameter, id)
	}
	return &IdealHeaterCooler{flowBase: newFlowBase(id, opts), props: props}, nil
}

func (h *IdealHeaterCooler) NInternalStates() int {
	return 0
}

func (h *IdealHeaterCooler) SetInitialTemperature(t0 float64) {
	h.outflowTemperature = t0
	h.initialized = true
}

func (h *IdealHeaterCooler) InitialInternalStates(y0 []float64) {
	h.mustBeInitialized()
	checkLength(h.id, "y0", y0, 0)
}

func (h *IdealHeaterCooler) SetInternalStates(y []float64) {
	checkLength(h.id, "y", y, 0)
	h.statesSet = true
}

func (h *IdealHeaterCooler) InputReferences() []InputReference {
	return h.inputRefs(InputSupplyTemperatureSchedule)
}

func (h *IdealHeaterCooler) SetInputValueRefs(refs []Ref) {
	checkRefs(h.id, refs, 1)
	h.setpoint = refs[0]
}

// 热损失由能量平衡反算，加热时为负
func (h *IdealHeaterCooler) SetInflowTemperature(tInflow float64) {
	h.inflowTemperature = tInflow
	h.outflowTemperature = h.setpoint.Value()
	h.heatLoss = math.Abs(h.massFlux) * h.props.HeatCapacity * (tInflow - h.outflowTemperature)
}

func (h *IdealHeaterCooler) InternalDerivatives(ydot []float64) {
	checkLength(h.id, "ydot", ydot, 0)
}

func (h *IdealHeaterCooler) OutflowTemperature() float64 {
	return h.outflowTemperature
}

func (h *IdealHeaterCooler) HeatLoss() float64 {
	return h.heatLoss
}

func (h *IdealHeaterCooler) Dependencies(ydot, y, mdot, tInflowLeft, tInflowRight Slot, deps []Edge) []Edge {
	setpoint := h.setpoint.Slot()
	deps = link(deps, QuantitySlot(h.id, quantityHeatLoss), mdot, tInflowLeft, tInflowRight, setpoint)
	deps = link(deps, tInflowLeft, setpoint)
	return link(deps, tInflowRight, setpoint)
}

func (h *IdealHeaterCooler) ModelQuantities() []Quantity {
	return []Quantity{
		{Name: "FlowElementHeatLoss", Unit: "W", Description: "Heat extracted from the fluid, negative when heating"},
		{Name: "InflowTemperature", Unit: "K", Description: "Fluid temperature at the upstream boundary"},
		{Name: "OutflowTemperature", Unit: "K", Description: "Supply temperature setpoint"},
	}
}

func (h *IdealHeaterCooler) ModelQuantityValueRefs() []*float64 {
	return []*float64{&h.heatLoss, &h.inflowTemperature, &h.outflowTemperature}
}
