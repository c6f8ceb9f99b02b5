package element

import (
	"fmt"
	"math"

	log "github.com/sirupsen/logrus"

	"flownet/fluid"
	"flownet/model"
)

// 热泵运行模式
type OperationMode int

const (
	ModeOff OperationMode = iota
	ModeHeating
	ModeDHW
)

func (m OperationMode) String() string {
	switch m {
	case ModeHeating:
		return "HEATING"
	case ModeDHW:
		return "DHW"
	}
	return "OFF"
}

// 默认参考工况 B0/W35
const (
	defaultReferenceEvaporatorTemperature = model.ZeroCelsius
	defaultReferenceCondenserTemperature  = model.ZeroCelsius + 35
)

type bufferTank struct {
	capacity    float64 // J/K
	low         float64
	high        float64
	initial     float64
	temperature float64
}

func newBufferTank(id int, name string, volume, low, high, initial, volumetricCapacity float64) (bufferTank, error) {
	if volume <= 0 {
		return bufferTank{}, fmt.Errorf("%w: heat pump %d %s buffer volume must be positive", ErrInvalidParameter, id, name)
	}
	if low >= high {
		return bufferTank{}, fmt.Errorf("%w: heat pump %d %s buffer low setpoint %g not below high setpoint %g", ErrInvalidParameter, id, name, low, high)
	}
	return bufferTank{
		capacity: volume * volumetricCapacity,
		low:      low,
		high:     high,
		initial:  initial,
	}, nil
}

// 带采暖缓冲罐和生活热水缓冲罐的开关型热泵（热源侧）
//
// 状态：[源侧流体能量, 采暖缓冲罐能量, 生活热水缓冲罐能量]。
// 运行模式只在时间步完成后按缓冲罐温度切换，步内保持不变。
type HeatPumpBuffer struct {
	heatLossBase
	heatPumpOutputs

	condenserCoefficients  model.CoefficientSet
	electricalCoefficients model.CoefficientSet
	scale                  float64

	heating bufferTank
	dhw     bufferTank

	mode      OperationMode
	modeValue float64

	heatingDemand      Ref
	dhwDemand          Ref
	heatingDemandValue float64
	dhwDemandValue     float64
}

func NewHeatPumpBuffer(id int, p model.HeatPump, volume float64, props *fluid.Properties, opts Options) (*HeatPumpBuffer, error) {
	if p.Buffer == nil {
		return nil, fmt.Errorf("%w: heat pump %d has no buffer parameters", ErrInvalidParameter, id)
	}
	base, err := newHeatLossBase(id, props, volume, opts)
	if err != nil {
		return nil, err
	}
	b := p.Buffer

	// 缓冲罐默认为水
	density, heatCapacity := b.Density, b.HeatCapacity
	if density <= 0 {
		density = model.WaterDensity
	}
	if heatCapacity <= 0 {
		heatCapacity = model.WaterHeatCapacity
	}
	heating, err := newBufferTank(id, "heating", b.HeatingBufferVolume, b.HeatingBufferLowSetpoint, b.HeatingBufferHighSetpoint, b.InitialHeatingBufferTemperature, density*heatCapacity)
	if err != nil {
		return nil, err
	}
	dhw, err := newBufferTank(id, "domestic hot water", b.DHWBufferVolume, b.DHWBufferLowSetpoint, b.DHWBufferHighSetpoint, b.InitialDHWBufferTemperature, density*heatCapacity)
	if err != nil {
		return nil, err
	}

	scale := 1.0
	if b.RatedHeatingPower > 0 {
		te, tc := b.ReferenceEvaporatorTemperature, b.ReferenceCondenserTemperature
		if te == 0 {
			te = defaultReferenceEvaporatorTemperature
		}
		if tc == 0 {
			tc = defaultReferenceCondenserTemperature
		}
		reference := p.CondenserHeatFluxCoefficients.Value(celsius(te), celsius(tc))
		if reference <= 0 {
			return nil, fmt.Errorf("%w: heat pump %d condenser polynomial is %g at the reference point", ErrInvalidParameter, id, reference)
		}
		scale = b.RatedHeatingPower / reference
	}

	return &HeatPumpBuffer{
		heatLossBase:           base,
		condenserCoefficients:  p.CondenserHeatFluxCoefficients,
		electricalCoefficients: p.ElectricalPowerCoefficients,
		scale:                  scale,
		heating:                heating,
		dhw:                    dhw,
	}, nil
}

func (hp *HeatPumpBuffer) NInternalStates() int {
	return 3
}

func (hp *HeatPumpBuffer) Mode() OperationMode {
	return hp.mode
}

func (hp *HeatPumpBuffer) ScalingFactor() float64 {
	return hp.scale
}

func (hp *HeatPumpBuffer) SetInitialTemperature(t0 float64) {
	hp.heatLossBase.SetInitialTemperature(t0)
	for _, tank := range []*bufferTank{&hp.heating, &hp.dhw} {
		tank.temperature = t0
		if tank.initial > 0 {
			tank.temperature = tank.initial
		}
	}
	hp.mode = ModeOff
	hp.modeValue = float64(ModeOff)
}

func (hp *HeatPumpBuffer) InitialInternalStates(y0 []float64) {
	hp.mustBeInitialized()
	checkLength(hp.id, "y0", y0, 3)
	y0[0] = hp.meanTemperature * hp.capacity()
	y0[1] = hp.heating.temperature * hp.heating.capacity
	y0[2] = hp.dhw.temperature * hp.dhw.capacity
}

func (hp *HeatPumpBuffer) SetInternalStates(y []float64) {
	checkLength(hp.id, "y", y, 3)
	hp.meanTemperature = y[0] / hp.capacity()
	hp.heating.temperature = y[1] / hp.heating.capacity
	hp.dhw.temperature = y[2] / hp.dhw.capacity
	hp.statesSet = true
}

func (hp *HeatPumpBuffer) InputReferences() []InputReference {
	return hp.inputRefs(InputHeatingBufferDemand, InputDomesticHotWaterBufferDemand)
}

func (hp *HeatPumpBuffer) SetInputValueRefs(refs []Ref) {
	checkRefs(hp.id, refs, 2)
	hp.heatingDemand, hp.dhwDemand = refs[0], refs[1]
}

func (hp *HeatPumpBuffer) SetInflowTemperature(tInflow float64) {
	hp.mustHaveStates()
	hp.inflowTemperature = tInflow
	hp.temperatureDifference = tInflow - hp.meanTemperature
	hp.heatingDemandValue = hp.heatingDemand.Value()
	hp.dhwDemandValue = hp.dhwDemand.Value()
	hp.evaporatorMeanTemperature = hp.meanTemperature

	switch hp.mode {
	case ModeHeating:
		hp.condenserMeanTemperature = hp.heating.temperature
	case ModeDHW:
		hp.condenserMeanTemperature = hp.dhw.temperature
	default:
		hp.condenserMeanTemperature = hp.heating.temperature
		hp.zero()
		hp.heatLoss = 0
		hp.clearDiagnostic()
		return
	}
	if !evaluatePolynomials(&hp.flowBase, &hp.heatPumpOutputs, hp.condenserCoefficients, hp.electricalCoefficients, hp.scale) {
		hp.heatLoss = 0
		return
	}
	hp.heatLoss = hp.evaporatorHeatFlux
}

func (hp *HeatPumpBuffer) InternalDerivatives(ydot []float64) {
	hp.mustHaveStates()
	checkLength(hp.id, "ydot", ydot, 3)
	ydot[0] = -hp.heatLoss + math.Abs(hp.massFlux)*hp.props.HeatCapacity*(hp.inflowTemperature-hp.meanTemperature)
	ydot[1] = -hp.heatingDemandValue
	ydot[2] = -hp.dhwDemandValue
	switch hp.mode {
	case ModeHeating:
		ydot[1] += hp.condenserHeatFlux
	case ModeDHW:
		ydot[2] += hp.condenserHeatFlux
	}
}

// 每步最多切换一次：以上一步的模式为起点，停机时生活热水优先
func (hp *HeatPumpBuffer) nextMode() OperationMode {
	switch hp.mode {
	case ModeOff:
		if hp.dhw.temperature < hp.dhw.low {
			return ModeDHW
		}
		if hp.heating.temperature < hp.heating.low {
			return ModeHeating
		}
	case ModeDHW:
		if hp.dhw.temperature > hp.dhw.high {
			return ModeOff
		}
	case ModeHeating:
		if hp.heating.temperature > hp.heating.high {
			return ModeOff
		}
	}
	return hp.mode
}

func (hp *HeatPumpBuffer) StepCompleted(t float64) {
	next := hp.nextMode()
	if next == hp.mode {
		return
	}
	hp.logger.WithFields(log.Fields{
		"time":                     t,
		"from":                     hp.mode.String(),
		"to":                       next.String(),
		"heatingBufferTemperature": hp.heating.temperature,
		"dhwBufferTemperature":     hp.dhw.temperature,
	}).Debug("heat pump operation mode changed")
	hp.mode = next
	hp.modeValue = float64(next)
}

// 冷凝器温度取自缓冲罐，三个导数都依赖于全部三个状态
func (hp *HeatPumpBuffer) Dependencies(ydot, y, mdot, tInflowLeft, tInflowRight Slot, deps []Edge) []Edge {
	deps = hp.baseDependencies(ydot, y, mdot, tInflowLeft, tInflowRight, deps, y.Offset(1), y.Offset(2))
	for _, out := range []Slot{ydot.Offset(1), ydot.Offset(2)} {
		deps = link(deps, out, y, y.Offset(1), y.Offset(2))
	}
	deps = link(deps, ydot.Offset(1), hp.heatingDemand.Slot())
	deps = link(deps, ydot.Offset(2), hp.dhwDemand.Slot())
	return deps
}

func (hp *HeatPumpBuffer) ModelQuantities() []Quantity {
	q := append(hp.heatLossBase.ModelQuantities(), hp.outputQuantities()...)
	return append(q,
		Quantity{Name: "OperationMode", Unit: "---", Description: "0 off, 1 space heating, 2 domestic hot water"},
		Quantity{Name: "HeatingBufferTemperature", Unit: "K", Description: "Space heating buffer temperature"},
		Quantity{Name: "DHWBufferTemperature", Unit: "K", Description: "Domestic hot water buffer temperature"},
		Quantity{Name: "HeatingBufferDemand", Unit: "W", Description: "Heat drawn from the space heating buffer"},
		Quantity{Name: "DHWBufferDemand", Unit: "W", Description: "Heat drawn from the domestic hot water buffer"},
	)
}

func (hp *HeatPumpBuffer) ModelQuantityValueRefs() []*float64 {
	refs := append(hp.heatLossBase.ModelQuantityValueRefs(), hp.outputRefs()...)
	return append(refs, &hp.modeValue, &hp.heating.temperature, &hp.dhw.temperature, &hp.heatingDemandValue, &hp.dhwDemandValue)
}
