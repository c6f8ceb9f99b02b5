package element

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flownet/model"
)

func TestPump(t *testing.T) {
	props := water(t)
	pu, err := NewPump(1, model.Pump{PressureHead: 1e5, MaximumEfficiency: 0.5, FractionOfMotorInefficienciesToFluid: 0.25}, 0.001, props, Options{})
	require.NoError(t, err)
	bind(pu)

	for _, massFlux := range []float64{0.5, -0.5} {
		ydot := evaluate(pu, initialStates(pu, 320), massFlux, 320)
		mechanical := 0.5 / model.WaterDensity * 1e5
		assert.InDelta(t, mechanical, pu.mechanicalPower, 1e-9)
		assert.InDelta(t, 2*mechanical, pu.electricalPower, 1e-9)
		// 一部分电机损失加热流体
		assert.InDelta(t, -0.25*mechanical, pu.HeatLoss(), 1e-9)
		assert.InDelta(t, 0.75*mechanical, pu.environmentLoss, 1e-9)
		assert.InDelta(t, pu.electricalPower-pu.mechanicalPower, pu.environmentLoss-pu.HeatLoss(), 1e-9)
		assert.InDelta(t, 0.25*mechanical, ydot[0], 1e-6)
	}

	evaluate(pu, initialStates(pu, 320), 0, 320)
	assert.Equal(t, 0.0, pu.electricalPower)
	assert.Equal(t, 0.0, pu.HeatLoss())
}

func TestPumpInvalid(t *testing.T) {
	props := water(t)
	for _, p := range []model.Pump{
		{MaximumEfficiency: 0},
		{MaximumEfficiency: 1.2},
		{MaximumEfficiency: 0.5, FractionOfMotorInefficienciesToFluid: -0.1},
		{MaximumEfficiency: 0.5, FractionOfMotorInefficienciesToFluid: 1.1},
	} {
		_, err := NewPump(1, p, 0.001, props, Options{})
		assert.True(t, errors.Is(err, ErrInvalidParameter))
	}
	_, err := NewPump(1, model.Pump{MaximumEfficiency: 0.5}, 0, props, Options{})
	assert.True(t, errors.Is(err, ErrInvalidParameter))
}

func TestIdealHeaterCooler(t *testing.T) {
	props := water(t)
	h, err := NewIdealHeaterCooler(1, props, Options{})
	require.NoError(t, err)
	tab := bind(h, 343.15)

	ydot := evaluate(h, initialStates(h, 300), 0.2, 313.15)
	assert.Empty(t, ydot)
	assert.Equal(t, 343.15, h.OutflowTemperature())
	// 加热时热损失为负
	assert.InDelta(t, -0.2*props.HeatCapacity*30, h.HeatLoss(), 1e-9)

	tab[0] = 283.15
	evaluate(h, nil, -0.2, 313.15)
	assert.Equal(t, 283.15, h.OutflowTemperature())
	assert.InDelta(t, 0.2*props.HeatCapacity*30, h.HeatLoss(), 1e-9)
}

// 经工厂创建，minimum 为 0 时不限幅
func newClipped(t *testing.T, minimum float64) (*ExternalHeatLoss, signals) {
	el, err := New(model.Element{ID: 1, Model: model.ModelExternalHeatLoss, Volume: 0.01,
		HeatLoss: &model.HeatLoss{MinimumOutletTemperature: minimum}}, water(t), Options{})
	require.NoError(t, err)
	e, ok := el.(*ExternalHeatLoss)
	require.True(t, ok)
	return e, bind(e, 0)
}

func TestExternalHeatLossClipping(t *testing.T) {
	props := water(t)
	e, tab := newClipped(t, 313.15)
	y := initialStates(e, 320)

	// 入流温度恰好等于最低出口温度
	tab[0] = 10000
	evaluate(e, y, 0.1, 313.15)
	assert.Equal(t, 0.0, e.HeatLoss())
	assert.Equal(t, 10000.0, e.externalHeatLoss)

	// 入流温度低于下限时不取热
	evaluate(e, y, 0.1, 303.15)
	assert.Equal(t, 0.0, e.HeatLoss())

	// 削减到恰好达到最低出口温度
	tab[0] = 10000
	evaluate(e, y, 0.1, 323.15)
	maxHeatLoss := 0.1 * props.HeatCapacity * 10
	assert.InDelta(t, maxHeatLoss, e.HeatLoss(), 1e-9)
	assert.InDelta(t, 313.15, 323.15-e.HeatLoss()/(0.1*props.HeatCapacity), 1e-9)

	tab[0] = 1000
	evaluate(e, y, 0.1, 323.15)
	assert.Equal(t, 1000.0, e.HeatLoss())

	// 加热不受限
	tab[0] = -500
	evaluate(e, y, 0.1, 303.15)
	assert.Equal(t, -500.0, e.HeatLoss())
}

func TestExternalHeatLossWithoutClipping(t *testing.T) {
	e, tab := newClipped(t, 0)
	tab[0] = 10000
	ydot := evaluate(e, initialStates(e, 320), 0.1, 313.15)
	assert.Equal(t, 10000.0, e.HeatLoss())
	assert.InDelta(t, -10000+0.1*model.WaterHeatCapacity*(313.15-320), ydot[0], 1e-6)
}
