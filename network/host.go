package network

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"

	"flownet/element"
	"flownet/fluid"
	"flownet/model"
)

var (
	ErrInvalidScenario = errors.New("network: invalid scenario")
	ErrUnknownSignal   = errors.New("network: unknown signal")
	ErrUnknownNode     = errors.New("network: unknown node")
)

// 输入引用 "node:<id>" 读取节点温度
const nodePrefix = "node:"

// 宿主结果表：[质量流量 | 节点温度 | 信号]
type results []float64

func (r results) Value(i int) float64 {
	return r[i]
}

type node struct {
	id   int
	name string
	// 定温节点的信号下标，-1 表示混合节点
	fixed int
}

type Options struct {
	Workers int
	Logger  log.FieldLogger
}

// Host 把元件连接成网络并计算全局导数
type Host struct {
	name   string
	props  *fluid.Properties
	logger log.FieldLogger

	elements []element.Element
	names    []string
	offsets  []int
	nStates  int
	inlet    []int
	outlet   []int
	// 质量流量：信号下标，-1 表示常量
	massFluxSignal []int
	massFluxValue  []float64
	nAlgebraic     int

	nodes     []node
	nodeIndex map[int]int

	signals     []*signal
	signalIndex map[string]int

	table results

	initialTemperature float64
	quantities         []model.QuantityInfo
	quantityRefs       []*float64

	exec *executor
}

func Build(s *model.Scenario, opts Options) (*Host, error) {
	props, err := fluid.NewProperties(s.Fluid)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", s.Name, err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("scenario", s.Name)
	}
	h := &Host{
		name:               s.Name,
		props:              props,
		logger:             logger,
		nodeIndex:          make(map[int]int),
		signalIndex:        make(map[string]int),
		initialTemperature: s.InitialTemperature,
	}
	if h.initialTemperature <= 0 {
		return nil, fmt.Errorf("%w: initial temperature must be positive (K), got %g", ErrInvalidScenario, s.InitialTemperature)
	}

	for i, sig := range s.Signals {
		if _, ok := h.signalIndex[sig.Name]; ok {
			return nil, fmt.Errorf("%w: duplicate signal %q", ErrInvalidScenario, sig.Name)
		}
		ns, err := newSignal(sig)
		if err != nil {
			return nil, err
		}
		h.signalIndex[sig.Name] = i
		h.signals = append(h.signals, ns)
	}

	for i, n := range s.Nodes {
		if _, ok := h.nodeIndex[n.ID]; ok {
			return nil, fmt.Errorf("%w: duplicate node id %d", ErrInvalidScenario, n.ID)
		}
		h.nodeIndex[n.ID] = i
		nd := node{id: n.ID, name: n.Name, fixed: -1}
		if n.TemperatureSignal != "" {
			k, ok := h.signalIndex[n.TemperatureSignal]
			if !ok {
				return nil, fmt.Errorf("%w: %q for node %d", ErrUnknownSignal, n.TemperatureSignal, n.ID)
			}
			nd.fixed = k
		}
		h.nodes = append(h.nodes, nd)
	}

	h.table = make(results, len(s.Elements)+len(s.Nodes)+len(s.Signals))

	ids := make(map[int]bool)
	eopts := element.Options{Logger: logger}
	for _, cfg := range s.Elements {
		if ids[cfg.ID] {
			return nil, fmt.Errorf("%w: duplicate element id %d", ErrInvalidScenario, cfg.ID)
		}
		ids[cfg.ID] = true
		if err := h.addElement(cfg, eopts); err != nil {
			return nil, err
		}
	}

	for k, e := range h.elements {
		if err := h.resolveInputs(e, s.Elements[k]); err != nil {
			return nil, err
		}
	}
	h.collectQuantities()
	h.exec = newExecutor(opts.Workers)

	logger.WithFields(log.Fields{
		"elements":   len(h.elements),
		"nodes":      len(h.nodes),
		"signals":    len(h.signals),
		"states":     h.nStates,
		"quantities": len(h.quantities),
	}).Info("network built")
	return h, nil
}

func (h *Host) addElement(cfg model.Element, opts element.Options) error {
	in, ok := h.nodeIndex[cfg.Inlet]
	if !ok {
		return fmt.Errorf("%w: element %d inlet %d", ErrUnknownNode, cfg.ID, cfg.Inlet)
	}
	out, ok := h.nodeIndex[cfg.Outlet]
	if !ok {
		return fmt.Errorf("%w: element %d outlet %d", ErrUnknownNode, cfg.ID, cfg.Outlet)
	}
	e, err := element.New(cfg, h.props, opts)
	if err != nil {
		return err
	}
	massFluxSignal := -1
	if cfg.MassFluxSignal != "" {
		i, ok := h.signalIndex[cfg.MassFluxSignal]
		if !ok {
			return fmt.Errorf("%w: %q for mass flux of element %d", ErrUnknownSignal, cfg.MassFluxSignal, cfg.ID)
		}
		massFluxSignal = i
	}

	name := cfg.Name
	if name == "" {
		name = fmt.Sprintf("%s(%d)", cfg.Model, cfg.ID)
	}
	h.elements = append(h.elements, e)
	h.names = append(h.names, name)
	h.offsets = append(h.offsets, h.nStates)
	h.nStates += e.NInternalStates()
	if e.NInternalStates() == 0 {
		h.nAlgebraic++
	}
	h.inlet = append(h.inlet, in)
	h.outlet = append(h.outlet, out)
	h.massFluxSignal = append(h.massFluxSignal, massFluxSignal)
	h.massFluxValue = append(h.massFluxValue, cfg.MassFlux)
	return nil
}

// 按元件配置中的 inputs 把声明的输入引用解析到结果表
func (h *Host) resolveInputs(e element.Element, cfg model.Element) error {
	decl := e.InputReferences()
	refs := make([]element.Ref, len(decl))
	for i, r := range decl {
		source, ok := cfg.Inputs[r.Name]
		if !ok {
			return fmt.Errorf("%w: element %d input %s is not bound", ErrUnknownSignal, cfg.ID, r.Name)
		}
		index, err := h.lookup(source)
		if err != nil {
			return fmt.Errorf("element %d input %s: %w", cfg.ID, r.Name, err)
		}
		refs[i] = element.NewRef(h.table, index)
	}
	e.SetInputValueRefs(refs)
	return nil
}

func (h *Host) lookup(source string) (int, error) {
	if strings.HasPrefix(source, nodePrefix) {
		id, err := strconv.Atoi(strings.TrimPrefix(source, nodePrefix))
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrUnknownNode, source)
		}
		n, ok := h.nodeIndex[id]
		if !ok {
			return 0, fmt.Errorf("%w: %d", ErrUnknownNode, id)
		}
		return h.nodeSlot(n), nil
	}
	i, ok := h.signalIndex[source]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownSignal, source)
	}
	return h.signalSlot(i), nil
}

func (h *Host) massFluxSlot(k int) int {
	return k
}

func (h *Host) nodeSlot(n int) int {
	return len(h.elements) + n
}

func (h *Host) signalSlot(i int) int {
	return len(h.elements) + len(h.nodes) + i
}

func (h *Host) NStates() int {
	return h.nStates
}

func (h *Host) Elements() []element.Element {
	return h.elements
}

// 元件在全局状态向量中的区间
func (h *Host) StateRange(k int) (int, int) {
	return h.offsets[k], h.offsets[k] + h.elements[k].NInternalStates()
}

func (h *Host) NodeTemperature(id int) (float64, error) {
	n, ok := h.nodeIndex[id]
	if !ok {
		return 0, fmt.Errorf("%w: %d", ErrUnknownNode, id)
	}
	return h.table[h.nodeSlot(n)], nil
}

// 全部元件以同一初始温度起步
func (h *Host) InitialStates() []float64 {
	y := make([]float64, h.nStates)
	for k, e := range h.elements {
		e.SetInitialTemperature(h.initialTemperature)
		lo, hi := h.StateRange(k)
		e.InitialInternalStates(y[lo:hi])
	}
	for n := range h.nodes {
		h.table[h.nodeSlot(n)] = h.initialTemperature
	}
	return y
}

// Evaluate 计算时刻 t、状态 y 下的全局导数
func (h *Host) Evaluate(t float64, y, ydot []float64) {
	if len(y) != h.nStates || len(ydot) != h.nStates {
		panic(fmt.Sprintf("network: state vector length %d/%d, want %d", len(y), len(ydot), h.nStates))
	}
	for i, s := range h.signals {
		h.table[h.signalSlot(i)] = s.at(t)
	}
	for k, e := range h.elements {
		m := h.massFluxValue[k]
		if i := h.massFluxSignal[k]; i >= 0 {
			m = h.table[h.signalSlot(i)]
		}
		h.table[h.massFluxSlot(k)] = m
		e.SetMassFlux(m)
		lo, hi := h.StateRange(k)
		e.SetInternalStates(y[lo:hi])
	}

	// 代数元件的出口温度取决于入流，逐遍传递
	for pass := 0; pass < h.nAlgebraic; pass++ {
		h.mixNodes()
		for k, e := range h.elements {
			if e.NInternalStates() == 0 {
				e.SetInflowTemperature(h.inflowTemperature(k))
			}
		}
	}
	h.mixNodes()

	h.exec.dispatchTask(0, len(h.elements), func(start, end int) {
		for k := start; k < end; k++ {
			e := h.elements[k]
			e.SetInflowTemperature(h.inflowTemperature(k))
			lo, hi := h.StateRange(k)
			e.InternalDerivatives(ydot[lo:hi])
		}
	})
}

// 按流量加权混合流入节点的元件出口温度；无流入时保持上一次的值
func (h *Host) mixNodes() {
	n := len(h.nodes)
	flux := make([]float64, n)
	energy := make([]float64, n)
	for k, e := range h.elements {
		m := h.table[h.massFluxSlot(k)]
		var to int
		switch {
		case m > 0:
			to = h.outlet[k]
		case m < 0:
			to = h.inlet[k]
		default:
			continue
		}
		flux[to] += math.Abs(m)
		energy[to] += math.Abs(m) * e.OutflowTemperature()
	}
	for i, nd := range h.nodes {
		slot := h.nodeSlot(i)
		switch {
		case nd.fixed >= 0:
			h.table[slot] = h.table[h.signalSlot(nd.fixed)]
		case flux[i] > 0:
			h.table[slot] = energy[i] / flux[i]
		}
	}
}

func (h *Host) inflowTemperature(k int) float64 {
	if h.table[h.massFluxSlot(k)] < 0 {
		return h.table[h.nodeSlot(h.outlet[k])]
	}
	return h.table[h.nodeSlot(h.inlet[k])]
}

// 时间步完成后通知有离散状态的元件
func (h *Host) StepCompleted(t float64) {
	for _, e := range h.elements {
		if c, ok := e.(element.StepCompleter); ok {
			c.StepCompleted(t)
		}
	}
}

// 累计诊断次数
func (h *Host) Diagnostics() map[string]int {
	d := make(map[string]int)
	for k, e := range h.elements {
		if dg, ok := e.(element.Diagnoser); ok && dg.DiagnosticCount() > 0 {
			d[h.names[k]] = dg.DiagnosticCount()
		}
	}
	return d
}

// 各换热元件当前的热损失，W，放热为正
func (h *Host) HeatLosses() map[string]float64 {
	losses := make(map[string]float64)
	for k, e := range h.elements {
		if ex, ok := e.(element.HeatExchanger); ok {
			losses[h.names[k]] = ex.HeatLoss()
		}
	}
	return losses
}

func (h *Host) collectQuantities() {
	add := func(owner, name, unit, desc string, ref *float64) {
		h.quantities = append(h.quantities, model.QuantityInfo{
			Index:       len(h.quantities),
			Element:     owner,
			Name:        name,
			Unit:        unit,
			Description: desc,
		})
		h.quantityRefs = append(h.quantityRefs, ref)
	}
	for k, e := range h.elements {
		add(h.names[k], "MassFlux", "kg/s", "Mass flux through the element", &h.table[h.massFluxSlot(k)])
		refs := e.ModelQuantityValueRefs()
		for i, q := range e.ModelQuantities() {
			add(h.names[k], q.Name, q.Unit, q.Description, refs[i])
		}
	}
	for i, nd := range h.nodes {
		name := nd.name
		if name == "" {
			name = fmt.Sprintf("node(%d)", nd.id)
		}
		add(name, "Temperature", "K", "Mixed fluid temperature at the node", &h.table[h.nodeSlot(i)])
	}
}

func (h *Host) Quantities() []model.QuantityInfo {
	return h.quantities
}

// 当前全部观测量的拷贝
func (h *Host) Snapshot(t float64) model.Snapshot {
	values := make([]float64, len(h.quantityRefs))
	for i, r := range h.quantityRefs {
		values[i] = *r
	}
	return model.Snapshot{Time: t, Values: values}
}

func (h *Host) Close() {
	h.exec.close()
}
