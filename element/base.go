package element

import (
	"fmt"
	"math"

	log "github.com/sirupsen/logrus"

	"flownet/fluid"
)

// 输入引用名
const (
	InputAmbientTemperature           = "AmbientTemperature"
	InputSupplyTemperatureSchedule    = "SupplyTemperatureSchedule"
	InputHeatLoss                     = "HeatLoss"
	InputCondenserMeanTemperature     = "CondenserMeanTemperatureSchedule"
	InputEvaporatorMeanTemperature    = "EvaporatorMeanTemperatureSchedule"
	InputHeatingPowerSchedule         = "HeatingPowerSchedule"
	InputCondenserOutletSetpoint      = "CondenserOutletSetpointSchedule"
	InputHeatPumpOnOffSignal          = "HeatPumpOnOffSignalSchedule"
	InputHeatingBufferDemand          = "HeatingBufferDemand"
	InputDomesticHotWaterBufferDemand = "DomesticHotWaterBufferDemand"
)

// 基础观测量下标
const (
	quantityHeatLoss = iota
	quantityInflowTemperature
	quantityOutflowTemperature
	nBaseQuantities
)

type Options struct {
	Logger      log.FieldLogger
	Correlation fluid.Correlation
}

func (o Options) logger(id int) log.FieldLogger {
	if o.Logger != nil {
		return o.Logger.WithField("element", id)
	}
	return log.WithField("element", id)
}

func (o Options) correlation() fluid.Correlation {
	if o.Correlation != nil {
		return o.Correlation
	}
	return fluid.Standard{}
}

// 所有元件共有的部分
type flowBase struct {
	id                int
	massFlux          float64
	inflowTemperature float64

	initialized bool
	statesSet   bool

	logger log.FieldLogger

	diagnostics    int
	lastDiagnostic string
	invalid        bool
}

func newFlowBase(id int, opts Options) flowBase {
	return flowBase{id: id, logger: opts.logger(id)}
}

func (b *flowBase) ID() int {
	return b.id
}

func (b *flowBase) SetMassFlux(massFlux float64) {
	b.massFlux = massFlux
}

func (b *flowBase) InputReferences() []InputReference {
	return nil
}

func (b *flowBase) SetInputValueRefs(refs []Ref) {
	checkRefs(b.id, refs, 0)
}

func (b *flowBase) DiagnosticCount() int {
	return b.diagnostics
}

func (b *flowBase) LastDiagnostic() string {
	return b.lastDiagnostic
}

// 非致命诊断：每次计数，只在由正常变为异常时写日志
func (b *flowBase) diagnose(msg string, fields log.Fields) {
	b.diagnostics++
	b.lastDiagnostic = msg
	if !b.invalid {
		b.logger.WithFields(fields).Warn(msg)
	}
	b.invalid = true
}

func (b *flowBase) clearDiagnostic() {
	b.invalid = false
}

func (b *flowBase) mustBeInitialized() {
	if !b.initialized {
		panic(fmt.Sprintf("element %d: initial states requested before SetInitialTemperature", b.id))
	}
}

func (b *flowBase) mustHaveStates() {
	if !b.statesSet {
		panic(fmt.Sprintf("element %d: evaluated before SetInternalStates", b.id))
	}
}

func (b *flowBase) inputRefs(names ...string) []InputReference {
	refs := make([]InputReference, len(names))
	for i, name := range names {
		refs[i] = InputReference{ElementID: b.id, Name: name, Unit: inputUnit(name)}
	}
	return refs
}

func inputUnit(name string) string {
	switch name {
	case InputHeatLoss, InputHeatingPowerSchedule, InputHeatingBufferDemand, InputDomesticHotWaterBufferDemand:
		return "W"
	case InputHeatPumpOnOffSignal:
		return "---"
	}
	return "K"
}

func checkLength(id int, what string, v []float64, n int) {
	if len(v) != n {
		panic(fmt.Sprintf("element %d: %s has length %d, want %d", id, what, len(v), n))
	}
}

func checkRefs(id int, refs []Ref, n int) {
	if len(refs) != n {
		panic(fmt.Sprintf("element %d: got %d input references, declared %d", id, len(refs), n))
	}
	for i, r := range refs {
		if !r.Resolved() {
			panic(fmt.Sprintf("element %d: input reference %d is unresolved", id, i))
		}
	}
}

// 单容积元件的热损失记账层
type heatLossBase struct {
	flowBase
	props  *fluid.Properties
	volume float64

	meanTemperature float64
	heatLoss        float64
}

func newHeatLossBase(id int, props *fluid.Properties, volume float64, opts Options) (heatLossBase, error) {
	if props == nil {
		return heatLossBase{}, fmt.Errorf("%w: element %d has no fluid", ErrInvalidParameter, id)
	}
	if volume <= 0 {
		return heatLossBase{}, fmt.Errorf("%w: element %d volume must be positive, got %g", ErrInvalidParameter, id, volume)
	}
	return heatLossBase{
		flowBase: newFlowBase(id, opts),
		props:    props,
		volume:   volume,
	}, nil
}

func (b *heatLossBase) NInternalStates() int {
	return 1
}

func (b *heatLossBase) SetInitialTemperature(t0 float64) {
	b.meanTemperature = t0
	b.initialized = true
}

func (b *heatLossBase) InitialInternalStates(y0 []float64) {
	b.mustBeInitialized()
	checkLength(b.id, "y0", y0, 1)
	y0[0] = b.meanTemperature * b.capacity()
}

func (b *heatLossBase) SetInternalStates(y []float64) {
	checkLength(b.id, "y", y, 1)
	b.meanTemperature = y[0] / b.capacity()
	b.statesSet = true
}

func (b *heatLossBase) InternalDerivatives(ydot []float64) {
	b.mustHaveStates()
	checkLength(b.id, "ydot", ydot, 1)
	ydot[0] = -b.heatLoss + math.Abs(b.massFlux)*b.props.HeatCapacity*(b.inflowTemperature-b.meanTemperature)
}

func (b *heatLossBase) OutflowTemperature() float64 {
	b.mustHaveStates()
	return b.meanTemperature
}

func (b *heatLossBase) HeatLoss() float64 {
	return b.heatLoss
}

func (b *heatLossBase) MeanTemperature() float64 {
	return b.meanTemperature
}

// 热容，J/K
func (b *heatLossBase) capacity() float64 {
	return b.props.VolumetricHeatCapacity() * b.volume
}

func (b *heatLossBase) ModelQuantities() []Quantity {
	return []Quantity{
		{Name: "FlowElementHeatLoss", Unit: "W", Description: "Heat flux from fluid into the environment"},
		{Name: "InflowTemperature", Unit: "K", Description: "Fluid temperature at the upstream boundary"},
		{Name: "OutflowTemperature", Unit: "K", Description: "Fluid temperature delivered downstream"},
	}
}

func (b *heatLossBase) ModelQuantityValueRefs() []*float64 {
	return []*float64{&b.heatLoss, &b.inflowTemperature, &b.meanTemperature}
}

// 单容积元件的依赖：导数与热损失依赖于状态、流量、两侧入流温度及附加输入；出口温度即容积温度
func (b *heatLossBase) baseDependencies(ydot, y, mdot, left, right Slot, deps []Edge, inputs ...Slot) []Edge {
	heatLoss := QuantitySlot(b.id, quantityHeatLoss)
	deps = link(deps, ydot, y, mdot, left, right)
	deps = link(deps, ydot, inputs...)
	deps = link(deps, heatLoss, y, mdot, left, right)
	deps = link(deps, heatLoss, inputs...)
	deps = link(deps, left, y)
	deps = link(deps, right, y)
	return deps
}
