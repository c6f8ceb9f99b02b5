package network

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flownet/element"
	"flownet/fluid"
	"flownet/model"
)

// 供水 333.15 K -> 恒定热损失 -> 绝热管 -> 理想加热器
func chainScenario() *model.Scenario {
	return &model.Scenario{
		Name:               "chain",
		InitialTemperature: 313.15,
		Fluid:              fluid.Water(),
		Nodes: []model.Node{
			{ID: 1, Name: "supply", TemperatureSignal: "supply"},
			{ID: 2},
			{ID: 3},
			{ID: 4, Name: "return"},
		},
		Elements: []model.Element{
			{ID: 10, Name: "consumer", Model: model.ModelExternalHeatLoss, Inlet: 1, Outlet: 2, MassFlux: 0.1, Volume: 0.01,
				Inputs: map[string]string{element.InputHeatLoss: "load"}},
			{ID: 11, Name: "return pipe", Model: model.ModelDynamicPipe, Inlet: 2, Outlet: 3, MassFlux: 0.1,
				Pipe: &model.Pipe{Length: 10, InnerDiameter: 0.02, MaxDiscretizationWidth: 2}},
			{ID: 12, Name: "boiler", Model: model.ModelIdealHeaterCooler, Inlet: 3, Outlet: 4, MassFlux: 0.1,
				Inputs: map[string]string{element.InputSupplyTemperatureSchedule: "setpoint"}},
		},
		Signals: []model.Signal{
			{Name: "supply", Unit: "K", Value: 333.15},
			{Name: "load", Unit: "W", Value: 4180},
			{Name: "setpoint", Unit: "K", Value: 343.15},
		},
	}
}

func build(t testing.TB, s *model.Scenario, workers int) *Host {
	h, err := Build(s, Options{Workers: workers})
	require.NoError(t, err)
	t.Cleanup(h.Close)
	return h
}

func TestSignal(t *testing.T) {
	s, err := newSignal(model.Signal{Name: "c", Value: 3})
	require.NoError(t, err)
	assert.Equal(t, 3.0, s.at(100))

	s, err = newSignal(model.Signal{Name: "one", Times: []float64{5}, Values: []float64{7}})
	require.NoError(t, err)
	assert.Equal(t, 7.0, s.at(0))

	s, err = newSignal(model.Signal{Name: "ramp", Times: []float64{0, 10, 20}, Values: []float64{0, 100, 50}})
	require.NoError(t, err)
	assert.InDelta(t, 50, s.at(5), 1e-12)
	assert.InDelta(t, 75, s.at(15), 1e-12)
	// 超出范围取端点值
	assert.Equal(t, 0.0, s.at(-1))
	assert.Equal(t, 50.0, s.at(30))

	for _, bad := range []model.Signal{
		{},
		{Name: "x", Times: []float64{0, 1}, Values: []float64{1}},
		{Name: "x", Times: []float64{0, 0}, Values: []float64{1, 2}},
	} {
		_, err := newSignal(bad)
		assert.True(t, errors.Is(err, ErrInvalidScenario), "%+v", bad)
	}
}

func TestBuild(t *testing.T) {
	h := build(t, chainScenario(), 1)
	assert.Equal(t, 1+5, h.NStates())
	assert.Len(t, h.Elements(), 3)
	lo, hi := h.StateRange(1)
	assert.Equal(t, 1, lo)
	assert.Equal(t, 6, hi)
	lo, hi = h.StateRange(2)
	assert.Equal(t, lo, hi)

	q := h.Quantities()
	require.NotEmpty(t, q)
	assert.Equal(t, "consumer", q[0].Element)
	assert.Equal(t, "MassFlux", q[0].Name)
	last := q[len(q)-1]
	assert.Equal(t, "return", last.Element)
	assert.Equal(t, "Temperature", last.Name)
	for i, info := range q {
		assert.Equal(t, i, info.Index)
	}
	assert.Len(t, h.Snapshot(0).Values, len(q))
}

func TestBuildInvalid(t *testing.T) {
	cases := []struct {
		name   string
		modify func(s *model.Scenario)
		err    error
	}{
		{"duplicate node", func(s *model.Scenario) { s.Nodes[1].ID = 1 }, ErrInvalidScenario},
		{"duplicate element", func(s *model.Scenario) { s.Elements[1].ID = 10 }, ErrInvalidScenario},
		{"duplicate signal", func(s *model.Scenario) { s.Signals[1].Name = "supply" }, ErrInvalidScenario},
		{"unknown inlet", func(s *model.Scenario) { s.Elements[0].Inlet = 99 }, ErrUnknownNode},
		{"unknown node signal", func(s *model.Scenario) { s.Nodes[0].TemperatureSignal = "nope" }, ErrUnknownSignal},
		{"unbound input", func(s *model.Scenario) { s.Elements[0].Inputs = nil }, ErrUnknownSignal},
		{"unknown input signal", func(s *model.Scenario) { s.Elements[2].Inputs[element.InputSupplyTemperatureSchedule] = "nope" }, ErrUnknownSignal},
		{"unknown input node", func(s *model.Scenario) { s.Elements[2].Inputs[element.InputSupplyTemperatureSchedule] = "node:99" }, ErrUnknownNode},
		{"malformed input node", func(s *model.Scenario) { s.Elements[2].Inputs[element.InputSupplyTemperatureSchedule] = "node:x" }, ErrUnknownNode},
		{"unknown mass flux signal", func(s *model.Scenario) { s.Elements[0].MassFluxSignal = "nope" }, ErrUnknownSignal},
		{"invalid element", func(s *model.Scenario) { s.Elements[0].Volume = 0 }, element.ErrInvalidParameter},
		{"invalid fluid", func(s *model.Scenario) { s.Fluid.Density = 0 }, fluid.ErrInvalidFluid},
		{"no initial temperature", func(s *model.Scenario) { s.InitialTemperature = 0 }, ErrInvalidScenario},
	}
	for _, c := range cases {
		s := chainScenario()
		c.modify(s)
		_, err := Build(s, Options{})
		assert.True(t, errors.Is(err, c.err), "%s: %v", c.name, err)
	}
}

func TestEvaluateChain(t *testing.T) {
	h := build(t, chainScenario(), 1)
	y := h.InitialStates()
	ydot := make([]float64, len(y))
	h.Evaluate(0, y, ydot)

	supply, err := h.NodeTemperature(1)
	require.NoError(t, err)
	assert.Equal(t, 333.15, supply)
	// 各容积均为初始温度
	for _, id := range []int{2, 3} {
		tn, err := h.NodeTemperature(id)
		require.NoError(t, err)
		assert.InDelta(t, 313.15, tn, 1e-9)
	}
	// 加热器把出口定在设定值
	tn, err := h.NodeTemperature(4)
	require.NoError(t, err)
	assert.InDelta(t, 343.15, tn, 1e-9)

	// 用户容积：入流 333.15，热损失 4180 W
	assert.InDelta(t, -4180+0.1*4180*20, ydot[0], 1e-6)
	for _, d := range ydot[1:] {
		assert.InDelta(t, 0, d, 1e-6)
	}

	_, err = h.NodeTemperature(99)
	assert.True(t, errors.Is(err, ErrUnknownNode))
}

func TestHeatLosses(t *testing.T) {
	h := build(t, chainScenario(), 1)
	y := h.InitialStates()
	h.Evaluate(0, y, make([]float64, len(y)))
	losses := h.HeatLosses()
	// 绝热管不与外界换热
	assert.Len(t, losses, 2)
	assert.NotContains(t, losses, "return pipe")
	assert.InDelta(t, 4180, losses["consumer"], 1e-9)
	// 加热器把 313.15 K 的入流加热到设定值
	assert.InDelta(t, 0.1*4180*(313.15-343.15), losses["boiler"], 1e-6)
}

// 两路不同温度的流体在节点按流量加权混合
func TestEvaluateMixing(t *testing.T) {
	s := &model.Scenario{
		Name:               "mixing",
		InitialTemperature: 300,
		Fluid:              fluid.Water(),
		Nodes:              []model.Node{{ID: 1}, {ID: 2}, {ID: 3}},
		Elements: []model.Element{
			{ID: 1, Model: model.ModelStaticPipe, Inlet: 1, Outlet: 3, MassFlux: 0.3, Pipe: &model.Pipe{Length: 1, InnerDiameter: 0.02}},
			{ID: 2, Model: model.ModelStaticPipe, Inlet: 3, Outlet: 2, MassFlux: -0.1, Pipe: &model.Pipe{Length: 1, InnerDiameter: 0.02}},
			{ID: 3, Model: model.ModelStaticPipe, Inlet: 3, Outlet: 1, MassFlux: 0, Pipe: &model.Pipe{Length: 1, InnerDiameter: 0.02}},
		},
	}
	h := build(t, s, 1)
	y := h.InitialStates()
	c := y[0] / 300
	y[0] = 340 * c
	y[1] = 320 * c
	y[2] = 380 * c
	ydot := make([]float64, len(y))
	h.Evaluate(0, y, ydot)

	// 元件 2 反向流动，向入口节点 3 供水
	t3, err := h.NodeTemperature(3)
	require.NoError(t, err)
	assert.InDelta(t, (0.3*340+0.1*320)/0.4, t3, 1e-9)
	// 无流入的节点保持原值
	t1, err := h.NodeTemperature(1)
	require.NoError(t, err)
	assert.Equal(t, 300.0, t1)

	// 反向流动的元件从出口节点取入流
	assert.InDelta(t, 0.1*4180*(300-320), ydot[1], 1e-6)
	// 零流量元件导数为零
	assert.Equal(t, 0.0, ydot[2])
}

func TestEvaluateMassFluxSignal(t *testing.T) {
	s := chainScenario()
	s.Signals = append(s.Signals, model.Signal{Name: "flow", Unit: "kg/s", Times: []float64{0, 100}, Values: []float64{0.1, 0.3}})
	s.Elements[0].MassFluxSignal = "flow"
	h := build(t, s, 1)
	y := h.InitialStates()
	ydot := make([]float64, len(y))
	h.Evaluate(50, y, ydot)
	assert.InDelta(t, -4180+0.2*4180*20, ydot[0], 1e-6)
	assert.InDelta(t, 0.2, h.Snapshot(50).Values[0], 1e-12)
}

func TestEvaluateNodeInput(t *testing.T) {
	s := chainScenario()
	// 加热器设定值跟随供水节点
	s.Elements[2].Inputs[element.InputSupplyTemperatureSchedule] = "node:1"
	h := build(t, s, 1)
	y := h.InitialStates()
	h.Evaluate(0, y, make([]float64, len(y)))
	tn, err := h.NodeTemperature(4)
	require.NoError(t, err)
	assert.InDelta(t, 333.15, tn, 1e-9)
}

func TestEvaluateParallel(t *testing.T) {
	sequential := build(t, patternScenario(), 1)
	parallel := build(t, patternScenario(), 4)
	y := sequential.InitialStates()
	parallel.InitialStates()
	for i := range y {
		y[i] *= 1 + 0.01*float64(i%3)
	}
	want := make([]float64, len(y))
	got := make([]float64, len(y))
	for i := 0; i < 5; i++ {
		sequential.Evaluate(10, y, want)
		parallel.Evaluate(10, y, got)
		assert.Equal(t, want, got)
	}
}

func TestEvaluateLengthMismatchPanics(t *testing.T) {
	h := build(t, chainScenario(), 1)
	assert.Panics(t, func() { h.Evaluate(0, nil, nil) })
}
