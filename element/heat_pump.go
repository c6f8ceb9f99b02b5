package element

import (
	"fmt"
	"math"

	log "github.com/sirupsen/logrus"

	"flownet/fluid"
	"flownet/model"
)

// COP 计算方式
type COPModel int

const (
	COPCarnot COPModel = iota
	COPPolynomial
)

// 热泵接入网络的一侧
type Side int

const (
	SourceSide Side = iota // 蒸发器在网络中
	SupplySide             // 冷凝器在网络中
)

func (s Side) String() string {
	if s == SupplySide {
		return "supply"
	}
	return "source"
}

// 所有热泵公开的观测量
type heatPumpOutputs struct {
	cop                       float64
	electricalPower           float64
	condenserHeatFlux         float64
	evaporatorHeatFlux        float64
	condenserMeanTemperature  float64
	evaporatorMeanTemperature float64
	temperatureDifference     float64
}

func (o *heatPumpOutputs) zero() {
	o.cop = 0
	o.electricalPower = 0
	o.condenserHeatFlux = 0
	o.evaporatorHeatFlux = 0
}

func (o *heatPumpOutputs) COP() float64                { return o.cop }
func (o *heatPumpOutputs) ElectricalPower() float64    { return o.electricalPower }
func (o *heatPumpOutputs) CondenserHeatFlux() float64  { return o.condenserHeatFlux }
func (o *heatPumpOutputs) EvaporatorHeatFlux() float64 { return o.evaporatorHeatFlux }

func (o *heatPumpOutputs) outputQuantities() []Quantity {
	return []Quantity{
		{Name: "COP", Unit: "---", Description: "Coefficient of performance"},
		{Name: "ElectricalPower", Unit: "W", Description: "Electrical power of the compressor"},
		{Name: "CondenserHeatFlux", Unit: "W", Description: "Heat flux released at the condenser"},
		{Name: "EvaporatorHeatFlux", Unit: "W", Description: "Heat flux taken up at the evaporator"},
		{Name: "CondenserMeanTemperature", Unit: "K", Description: "Mean condenser temperature"},
		{Name: "EvaporatorMeanTemperature", Unit: "K", Description: "Mean evaporator temperature"},
		{Name: "TemperatureDifference", Unit: "K", Description: "Inlet minus outlet fluid temperature"},
	}
}

func (o *heatPumpOutputs) outputRefs() []*float64 {
	return []*float64{
		&o.cop, &o.electricalPower, &o.condenserHeatFlux, &o.evaporatorHeatFlux,
		&o.condenserMeanTemperature, &o.evaporatorMeanTemperature, &o.temperatureDifference,
	}
}

// 多项式的自变量为摄氏温度
func celsius(t float64) float64 {
	return t - model.ZeroCelsius
}

// 可变 COP 热泵：理想卡诺或多项式 COP，接在热源侧或供热侧
//
// 热源侧：蒸发器温度取流体平均温度，冷凝器温度与制热功率由外部给定，热损失为蒸发器取热；
// 供热侧：冷凝器温度取流体平均温度，蒸发器温度外部给定，冷凝器把流体加热到出口设定温度，热损失为负。
type HeatPumpVariable struct {
	heatLossBase
	heatPumpOutputs

	copModel         COPModel
	side             Side
	carnotEfficiency float64
	copCoefficients  model.CoefficientSet

	// 热源侧：冷凝器温度、制热功率；供热侧：蒸发器温度、冷凝器出口设定温度
	first  Ref
	second Ref
}

func NewHeatPumpVariable(id int, copModel COPModel, side Side, p model.HeatPump, volume float64, props *fluid.Properties, opts Options) (*HeatPumpVariable, error) {
	if copModel == COPCarnot && (p.CarnotEfficiency <= 0 || p.CarnotEfficiency > 1) {
		return nil, fmt.Errorf("%w: heat pump %d carnot efficiency %g not in (0,1]", ErrInvalidParameter, id, p.CarnotEfficiency)
	}
	base, err := newHeatLossBase(id, props, volume, opts)
	if err != nil {
		return nil, err
	}
	return &HeatPumpVariable{
		heatLossBase:     base,
		copModel:         copModel,
		side:             side,
		carnotEfficiency: p.CarnotEfficiency,
		copCoefficients:  p.COPCoefficients,
	}, nil
}

func (hp *HeatPumpVariable) InputReferences() []InputReference {
	if hp.side == SupplySide {
		return hp.inputRefs(InputEvaporatorMeanTemperature, InputCondenserOutletSetpoint)
	}
	return hp.inputRefs(InputCondenserMeanTemperature, InputHeatingPowerSchedule)
}

func (hp *HeatPumpVariable) SetInputValueRefs(refs []Ref) {
	checkRefs(hp.id, refs, 2)
	hp.first, hp.second = refs[0], refs[1]
}

// 无效工况返回 0 并记录诊断
func (hp *HeatPumpVariable) calculateCOP(tEvaporator, tCondenser float64) float64 {
	fields := log.Fields{
		"evaporatorTemperature": tEvaporator,
		"condenserTemperature":  tCondenser,
		"side":                  hp.side.String(),
	}
	switch hp.copModel {
	case COPCarnot:
		spread := tCondenser - tEvaporator
		if spread < model.MinCarnotTemperatureSpread {
			hp.diagnose("condenser/evaporator temperature spread below minimum, heat pump switched off", fields)
			return 0
		}
		hp.clearDiagnostic()
		return hp.carnotEfficiency * tCondenser / spread
	default:
		cop := hp.copCoefficients.Value(celsius(tEvaporator), celsius(tCondenser))
		if cop <= 1 {
			fields["cop"] = cop
			hp.diagnose("polynomial COP not above 1, heat pump switched off", fields)
			return 0
		}
		hp.clearDiagnostic()
		return cop
	}
}

func (hp *HeatPumpVariable) SetInflowTemperature(tInflow float64) {
	hp.mustHaveStates()
	hp.inflowTemperature = tInflow
	hp.temperatureDifference = tInflow - hp.meanTemperature

	if hp.side == SourceSide {
		hp.evaporatorMeanTemperature = hp.meanTemperature
		hp.condenserMeanTemperature = hp.first.Value()
		hp.cop = hp.calculateCOP(hp.evaporatorMeanTemperature, hp.condenserMeanTemperature)
		if hp.cop == 0 {
			hp.zero()
			hp.heatLoss = 0
			return
		}
		hp.condenserHeatFlux = math.Max(hp.second.Value(), 0)
		hp.electricalPower = hp.condenserHeatFlux / hp.cop
		hp.evaporatorHeatFlux = hp.condenserHeatFlux - hp.electricalPower
		hp.heatLoss = hp.evaporatorHeatFlux
		return
	}

	hp.condenserMeanTemperature = hp.meanTemperature
	hp.evaporatorMeanTemperature = hp.first.Value()
	hp.cop = hp.calculateCOP(hp.evaporatorMeanTemperature, hp.condenserMeanTemperature)
	if hp.cop == 0 {
		hp.zero()
		hp.heatLoss = 0
		return
	}
	hp.condenserHeatFlux = math.Max(math.Abs(hp.massFlux)*hp.props.HeatCapacity*(hp.second.Value()-tInflow), 0)
	hp.electricalPower = hp.condenserHeatFlux / hp.cop
	hp.evaporatorHeatFlux = hp.condenserHeatFlux - hp.electricalPower
	hp.heatLoss = -hp.condenserHeatFlux
}

func (hp *HeatPumpVariable) Dependencies(ydot, y, mdot, tInflowLeft, tInflowRight Slot, deps []Edge) []Edge {
	return hp.baseDependencies(ydot, y, mdot, tInflowLeft, tInflowRight, deps, hp.first.Slot(), hp.second.Slot())
}

func (hp *HeatPumpVariable) ModelQuantities() []Quantity {
	return append(hp.heatLossBase.ModelQuantities(), hp.outputQuantities()...)
}

func (hp *HeatPumpVariable) ModelQuantityValueRefs() []*float64 {
	return append(hp.heatLossBase.ModelQuantityValueRefs(), hp.outputRefs()...)
}

// 开关型热泵（热源侧）：冷凝器热流与电功率分别由多项式给出，由开关信号控制
type HeatPumpOnOff struct {
	heatLossBase
	heatPumpOutputs

	condenserCoefficients  model.CoefficientSet
	electricalCoefficients model.CoefficientSet

	onOff     Ref
	setpoint  Ref
	operation float64
}

func NewHeatPumpOnOff(id int, p model.HeatPump, volume float64, props *fluid.Properties, opts Options) (*HeatPumpOnOff, error) {
	base, err := newHeatLossBase(id, props, volume, opts)
	if err != nil {
		return nil, err
	}
	return &HeatPumpOnOff{
		heatLossBase:           base,
		condenserCoefficients:  p.CondenserHeatFluxCoefficients,
		electricalCoefficients: p.ElectricalPowerCoefficients,
	}, nil
}

func (hp *HeatPumpOnOff) InputReferences() []InputReference {
	return hp.inputRefs(InputHeatPumpOnOffSignal, InputCondenserOutletSetpoint)
}

func (hp *HeatPumpOnOff) SetInputValueRefs(refs []Ref) {
	checkRefs(hp.id, refs, 2)
	hp.onOff, hp.setpoint = refs[0], refs[1]
}

func (hp *HeatPumpOnOff) SetInflowTemperature(tInflow float64) {
	hp.mustHaveStates()
	hp.inflowTemperature = tInflow
	hp.temperatureDifference = tInflow - hp.meanTemperature
	hp.evaporatorMeanTemperature = hp.meanTemperature
	hp.condenserMeanTemperature = hp.setpoint.Value()

	hp.operation = 0
	if hp.onOff.Value() <= 0.5 {
		hp.zero()
		hp.heatLoss = 0
		hp.clearDiagnostic()
		return
	}
	hp.operation = 1
	if !evaluatePolynomials(&hp.flowBase, &hp.heatPumpOutputs, hp.condenserCoefficients, hp.electricalCoefficients, 1) {
		hp.heatLoss = 0
		return
	}
	hp.heatLoss = hp.evaporatorHeatFlux
}

// 由两组多项式计算冷凝器热流与电功率，COP 不大于 1 视为无效
func evaluatePolynomials(b *flowBase, o *heatPumpOutputs, condenser, electrical model.CoefficientSet, scale float64) bool {
	te, tc := celsius(o.evaporatorMeanTemperature), celsius(o.condenserMeanTemperature)
	qc := scale * condenser.Value(te, tc)
	pel := scale * electrical.Value(te, tc)
	if pel <= 0 || qc/pel <= 1 {
		o.zero()
		b.diagnose("polynomial heat pump operating point invalid, heat pump switched off", log.Fields{
			"evaporatorTemperature": o.evaporatorMeanTemperature,
			"condenserTemperature":  o.condenserMeanTemperature,
			"condenserHeatFlux":     qc,
			"electricalPower":       pel,
		})
		return false
	}
	b.clearDiagnostic()
	o.condenserHeatFlux = qc
	o.electricalPower = pel
	o.cop = qc / pel
	o.evaporatorHeatFlux = qc - pel
	return true
}

func (hp *HeatPumpOnOff) Dependencies(ydot, y, mdot, tInflowLeft, tInflowRight Slot, deps []Edge) []Edge {
	return hp.baseDependencies(ydot, y, mdot, tInflowLeft, tInflowRight, deps, hp.onOff.Slot(), hp.setpoint.Slot())
}

func (hp *HeatPumpOnOff) ModelQuantities() []Quantity {
	q := append(hp.heatLossBase.ModelQuantities(), hp.outputQuantities()...)
	return append(q, Quantity{Name: "OnOffSignal", Unit: "---", Description: "1 while the heat pump runs"})
}

func (hp *HeatPumpOnOff) ModelQuantityValueRefs() []*float64 {
	refs := append(hp.heatLossBase.ModelQuantityValueRefs(), hp.outputRefs()...)
	return append(refs, &hp.operation)
}
