package element

import (
	"fmt"
	"math"

	"flownet/fluid"
	"flownet/model"
)

// 离散管道观测量下标，前三个与单容积元件一致
const (
	dynamicQuantityMean = nBaseQuantities + iota
	dynamicQuantityWallHeatLoss
)

// 控制容积个数：floor(length / maxWidth)，至少为 1
func discretization(length, maxWidth float64) int {
	n := int(math.Floor(length / maxWidth))
	if n < 1 {
		n = 1
	}
	return n
}

// 沿流动方向排列的控制容积
type volumeChain struct {
	n        int
	capacity float64 // 单个容积的热容，J/K

	temperatures       []float64
	meanTemperature    float64
	outflowTemperature float64
}

func newVolumeChain(n int, capacity float64) volumeChain {
	return volumeChain{
		n:            n,
		capacity:     capacity,
		temperatures: make([]float64, n),
	}
}

func (c *volumeChain) setTemperature(t0 float64) {
	for i := range c.temperatures {
		c.temperatures[i] = t0
	}
	c.meanTemperature = t0
	c.outflowTemperature = t0
}

func (c *volumeChain) write(y0 []float64) {
	for i, t := range c.temperatures {
		y0[i] = t * c.capacity
	}
}

func (c *volumeChain) read(y []float64) {
	sum := 0.0
	for i := range c.temperatures {
		c.temperatures[i] = y[i] / c.capacity
		sum += c.temperatures[i]
	}
	c.meanTemperature = sum / float64(c.n)
}

// 出口温度取决于流动方向
func (c *volumeChain) outflow(massFlux float64) float64 {
	if massFlux >= 0 {
		return c.temperatures[c.n-1]
	}
	return c.temperatures[0]
}

func (c *volumeChain) temperatureQuantities() ([]Quantity, []*float64) {
	q := make([]Quantity, c.n)
	refs := make([]*float64, c.n)
	for i := range c.temperatures {
		q[i] = Quantity{Name: fmt.Sprintf("Temperature[%d]", i), Unit: "K", Description: "Fluid temperature of one control volume"}
		refs[i] = &c.temperatures[i]
	}
	return q, refs
}

// 一阶迎风格式的对流项，写入 ydot
func advect(ydot, temps []float64, massFlux, heatCapacity, tInflow float64) {
	n := len(temps)
	if massFlux >= 0 {
		f := massFlux * heatCapacity
		ydot[0] = f * (tInflow - temps[0])
		for i := 1; i < n; i++ {
			ydot[i] = f * (temps[i-1] - temps[i])
		}
		return
	}
	f := -massFlux * heatCapacity
	ydot[n-1] = f * (tInflow - temps[n-1])
	for i := n - 2; i >= 0; i-- {
		ydot[i] = f * (temps[i+1] - temps[i])
	}
}

// 迎风格式的结构依赖：相邻容积、流量、边界入流温度；出口温度依赖首尾容积
func chainDependencies(deps []Edge, ydot, y, mdot, left, right Slot, n int) []Edge {
	for i := 0; i < n; i++ {
		out := ydot.Offset(i)
		deps = link(deps, out, y.Offset(i), mdot)
		if i > 0 {
			deps = link(deps, out, y.Offset(i-1))
		} else {
			deps = link(deps, out, left)
		}
		if i < n-1 {
			deps = link(deps, out, y.Offset(i+1))
		} else {
			deps = link(deps, out, right)
		}
	}
	deps = link(deps, left, y)
	deps = link(deps, right, y.Offset(n-1))
	return deps
}

func wallCapacity(id int, p model.Pipe, discLength float64, parallel int) (float64, error) {
	if p.WallDensity <= 0 || p.WallHeatCapacity <= 0 {
		if p.TrackWallCapacity {
			return 0, fmt.Errorf("%w: pipe %d tracks wall capacity without wall density and heat capacity", ErrInvalidParameter, id)
		}
		return 0, nil
	}
	if p.OuterDiameter <= p.InnerDiameter {
		return 0, fmt.Errorf("%w: pipe %d outer diameter must exceed inner diameter", ErrInvalidParameter, id)
	}
	area := math.Pi / 4 * (p.OuterDiameter*p.OuterDiameter - p.InnerDiameter*p.InnerDiameter)
	return p.WallDensity * p.WallHeatCapacity * area * discLength * float64(parallel), nil
}

// 离散动态管道
//
// 不单独跟踪管壁时，管壁热容并入流体当量体积；
// 跟踪管壁时，每个容积多一个管壁状态，热流经 流体->管壁->环境 两级传递，管壁热阻各分一半。
type DynamicPipe struct {
	flowBase
	pipeConvection
	volumeChain

	discLength   float64
	trackWall    bool
	wallCapacity float64

	heatLosses       []float64
	wallTemperatures []float64
	wallHeatLosses   []float64

	heatLoss      float64
	wallHeatLoss  float64
	uaSegment     float64
	uaWallAmbient float64

	ambient Ref
}

func NewDynamicPipe(id int, p model.Pipe, props *fluid.Properties, opts Options) (*DynamicPipe, error) {
	conv, err := newPipeConvection(id, p, props, opts, true)
	if err != nil {
		return nil, err
	}
	if p.MaxDiscretizationWidth <= 0 {
		return nil, fmt.Errorf("%w: pipe %d maximum discretization width must be positive", ErrInvalidParameter, id)
	}
	n := discretization(p.Length, p.MaxDiscretizationWidth)
	discLength := p.Length / float64(n)
	wallCap, err := wallCapacity(id, p, discLength, conv.parallel)
	if err != nil {
		return nil, err
	}

	fluidCap := props.VolumetricHeatCapacity() * conv.fluidVolume() / float64(n)
	if !p.TrackWallCapacity {
		fluidCap += wallCap
	}
	dp := &DynamicPipe{
		flowBase:       newFlowBase(id, opts),
		pipeConvection: conv,
		volumeChain:    newVolumeChain(n, fluidCap),
		discLength:     discLength,
		trackWall:      p.TrackWallCapacity,
		wallCapacity:   wallCap,
		heatLosses:     make([]float64, n),
	}
	if dp.trackWall {
		dp.wallTemperatures = make([]float64, n)
		dp.wallHeatLosses = make([]float64, n)
	}
	return dp, nil
}

func (dp *DynamicPipe) NInternalStates() int {
	if dp.trackWall {
		return 2 * dp.n
	}
	return dp.n
}

// 控制容积个数
func (dp *DynamicPipe) Volumes() int {
	return dp.n
}

func (dp *DynamicPipe) SetInitialTemperature(t0 float64) {
	dp.setTemperature(t0)
	for i := range dp.wallTemperatures {
		dp.wallTemperatures[i] = t0
	}
	dp.initialized = true
}

func (dp *DynamicPipe) InitialInternalStates(y0 []float64) {
	dp.mustBeInitialized()
	checkLength(dp.id, "y0", y0, dp.NInternalStates())
	dp.write(y0[:dp.n])
	for i, t := range dp.wallTemperatures {
		y0[dp.n+i] = t * dp.wallCapacity
	}
}

func (dp *DynamicPipe) SetInternalStates(y []float64) {
	checkLength(dp.id, "y", y, dp.NInternalStates())
	dp.read(y[:dp.n])
	for i := range dp.wallTemperatures {
		dp.wallTemperatures[i] = y[dp.n+i] / dp.wallCapacity
	}
	dp.statesSet = true
}

func (dp *DynamicPipe) InputReferences() []InputReference {
	return dp.inputRefs(InputAmbientTemperature)
}

func (dp *DynamicPipe) SetInputValueRefs(refs []Ref) {
	checkRefs(dp.id, refs, 1)
	dp.ambient = refs[0]
}

func (dp *DynamicPipe) SetInflowTemperature(tInflow float64) {
	dp.mustHaveStates()
	dp.inflowTemperature = tInflow
	dp.update(dp.massFlux, dp.meanTemperature)

	tAmbient := dp.ambient.Value()
	parallel := float64(dp.parallel)
	dp.heatLoss, dp.wallHeatLoss = 0, 0
	if !dp.trackWall {
		dp.uaSegment = dp.ua(dp.discLength) * parallel
		for i, t := range dp.temperatures {
			dp.heatLosses[i] = dp.uaSegment * (t - tAmbient)
			dp.heatLoss += dp.heatLosses[i]
		}
		dp.wallHeatLoss = dp.heatLoss
	} else {
		halfWall := 1 / (2 * dp.uValueWall)
		dp.uaSegment = dp.discLength / (dp.innerResistance() + halfWall) * parallel
		dp.uaWallAmbient = dp.discLength / (halfWall + dp.outerResistance()) * parallel
		for i, t := range dp.temperatures {
			tWall := dp.wallTemperatures[i]
			dp.heatLosses[i] = dp.uaSegment * (t - tWall)
			dp.wallHeatLosses[i] = dp.uaWallAmbient * (tWall - tAmbient)
			dp.heatLoss += dp.heatLosses[i]
			dp.wallHeatLoss += dp.wallHeatLosses[i]
		}
	}
	dp.outflowTemperature = dp.outflow(dp.massFlux)
}

func (dp *DynamicPipe) InternalDerivatives(ydot []float64) {
	dp.mustHaveStates()
	checkLength(dp.id, "ydot", ydot, dp.NInternalStates())
	fluidPart := ydot[:dp.n]
	advect(fluidPart, dp.temperatures, dp.massFlux, dp.props.HeatCapacity, dp.inflowTemperature)
	for i := range fluidPart {
		fluidPart[i] -= dp.heatLosses[i]
	}
	for i := range dp.wallHeatLosses {
		ydot[dp.n+i] = dp.heatLosses[i] - dp.wallHeatLosses[i]
	}
}

func (dp *DynamicPipe) OutflowTemperature() float64 {
	dp.mustHaveStates()
	return dp.outflow(dp.massFlux)
}

func (dp *DynamicPipe) HeatLoss() float64 {
	return dp.heatLoss
}

// 单个容积的热损失（跟踪管壁时为流体到管壁的热流）
func (dp *DynamicPipe) VolumeHeatLoss(i int) float64 {
	return dp.heatLosses[i]
}

// 对流换热系数由平均温度决定，因此每个容积的热损失都经平均温度依赖于全部流体状态
func (dp *DynamicPipe) Dependencies(ydot, y, mdot, tInflowLeft, tInflowRight Slot, deps []Edge) []Edge {
	mean := QuantitySlot(dp.id, dynamicQuantityMean)
	heatLoss := QuantitySlot(dp.id, quantityHeatLoss)
	ambient := dp.ambient.Slot()

	deps = chainDependencies(deps, ydot, y, mdot, tInflowLeft, tInflowRight, dp.n)
	for i := 0; i < dp.n; i++ {
		out := ydot.Offset(i)
		deps = link(deps, out, ambient, mean)
		deps = link(deps, mean, y.Offset(i))
		deps = link(deps, heatLoss, y.Offset(i))
		if dp.trackWall {
			wall := y.Offset(dp.n + i)
			deps = link(deps, out, wall)
			deps = link(deps, ydot.Offset(dp.n+i), y.Offset(i), wall, mdot, ambient, mean)
			deps = link(deps, heatLoss, wall)
		}
	}
	return link(deps, heatLoss, mdot, ambient, mean)
}

func (dp *DynamicPipe) ModelQuantities() []Quantity {
	q := []Quantity{
		{Name: "FlowElementHeatLoss", Unit: "W", Description: "Heat flux leaving the fluid"},
		{Name: "InflowTemperature", Unit: "K", Description: "Fluid temperature at the upstream boundary"},
		{Name: "OutflowTemperature", Unit: "K", Description: "Fluid temperature delivered downstream"},
		{Name: "MeanTemperature", Unit: "K", Description: "Mean fluid temperature of all volumes"},
		{Name: "WallHeatLoss", Unit: "W", Description: "Heat flux from the pipe wall into the environment"},
		{Name: "UAValueSegment", Unit: "W/K", Description: "Conductance of one segment from fluid to ambient or wall"},
	}
	q = append(q, dp.pipeConvection.quantities()...)
	temps, _ := dp.temperatureQuantities()
	return append(q, temps...)
}

func (dp *DynamicPipe) ModelQuantityValueRefs() []*float64 {
	refs := []*float64{&dp.heatLoss, &dp.inflowTemperature, &dp.outflowTemperature, &dp.meanTemperature, &dp.wallHeatLoss, &dp.uaSegment}
	refs = append(refs, dp.pipeConvection.quantityRefs()...)
	_, temps := dp.temperatureQuantities()
	return append(refs, temps...)
}

// 绝热离散管道，无换热项
type AdiabaticPipe struct {
	flowBase
	volumeChain
	props *fluid.Properties
}

func NewAdiabaticPipe(id int, p model.Pipe, props *fluid.Properties, opts Options) (*AdiabaticPipe, error) {
	conv, err := newPipeConvection(id, p, props, opts, false)
	if err != nil {
		return nil, err
	}
	if p.MaxDiscretizationWidth <= 0 {
		return nil, fmt.Errorf("%w: pipe %d maximum discretization width must be positive", ErrInvalidParameter, id)
	}
	n := discretization(p.Length, p.MaxDiscretizationWidth)
	discLength := p.Length / float64(n)
	p.TrackWallCapacity = false
	wallCap, err := wallCapacity(id, p, discLength, conv.parallel)
	if err != nil {
		return nil, err
	}
	capacity := props.VolumetricHeatCapacity()*conv.fluidVolume()/float64(n) + wallCap
	return &AdiabaticPipe{
		flowBase:    newFlowBase(id, opts),
		volumeChain: newVolumeChain(n, capacity),
		props:       props,
	}, nil
}

func (ap *AdiabaticPipe) NInternalStates() int {
	return ap.n
}

func (ap *AdiabaticPipe) SetInitialTemperature(t0 float64) {
	ap.setTemperature(t0)
	ap.initialized = true
}

func (ap *AdiabaticPipe) InitialInternalStates(y0 []float64) {
	ap.mustBeInitialized()
	checkLength(ap.id, "y0", y0, ap.n)
	ap.write(y0)
}

func (ap *AdiabaticPipe) SetInternalStates(y []float64) {
	checkLength(ap.id, "y", y, ap.n)
	ap.read(y)
	ap.statesSet = true
}

func (ap *AdiabaticPipe) SetInflowTemperature(tInflow float64) {
	ap.mustHaveStates()
	ap.inflowTemperature = tInflow
	ap.outflowTemperature = ap.outflow(ap.massFlux)
}

func (ap *AdiabaticPipe) InternalDerivatives(ydot []float64) {
	ap.mustHaveStates()
	checkLength(ap.id, "ydot", ydot, ap.n)
	advect(ydot, ap.temperatures, ap.massFlux, ap.props.HeatCapacity, ap.inflowTemperature)
}

func (ap *AdiabaticPipe) OutflowTemperature() float64 {
	ap.mustHaveStates()
	return ap.outflow(ap.massFlux)
}

func (ap *AdiabaticPipe) Dependencies(ydot, y, mdot, tInflowLeft, tInflowRight Slot, deps []Edge) []Edge {
	return chainDependencies(deps, ydot, y, mdot, tInflowLeft, tInflowRight, ap.n)
}

func (ap *AdiabaticPipe) ModelQuantities() []Quantity {
	q := []Quantity{
		{Name: "InflowTemperature", Unit: "K", Description: "Fluid temperature at the upstream boundary"},
		{Name: "OutflowTemperature", Unit: "K", Description: "Fluid temperature delivered downstream"},
		{Name: "MeanTemperature", Unit: "K", Description: "Mean fluid temperature of all volumes"},
	}
	temps, _ := ap.temperatureQuantities()
	return append(q, temps...)
}

func (ap *AdiabaticPipe) ModelQuantityValueRefs() []*float64 {
	refs := []*float64{&ap.inflowTemperature, &ap.outflowTemperature, &ap.meanTemperature}
	_, temps := ap.temperatureQuantities()
	return append(refs, temps...)
}
