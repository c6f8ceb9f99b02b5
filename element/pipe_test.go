package element

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"

	"flownet/model"
)

const (
	exampleMassFlux = 0.1
	exampleInflow   = 333.15
	exampleAmbient  = 293.15
)

func TestStaticPipeExample(t *testing.T) {
	props := water(t)
	sp, err := NewStaticPipe(1, examplePipe(), props, Options{})
	require.NoError(t, err)
	bind(sp, exampleAmbient)

	y := steadyState(t, sp, exampleMassFlux, exampleInflow)
	ydot := evaluate(sp, y, exampleMassFlux, exampleInflow)
	assert.InDelta(t, 0, ydot[0], 1e-6)

	mean := sp.MeanTemperature()
	enthalpy := exampleMassFlux * props.HeatCapacity * (exampleInflow - exampleAmbient)
	assert.Greater(t, sp.HeatLoss(), 0.0)
	assert.Less(t, sp.HeatLoss(), enthalpy)
	assert.InDelta(t, sp.UA()*(mean-exampleAmbient), sp.HeatLoss(), 1e-9)
	// 稳态时热损失等于焓流减少
	assert.InDelta(t, exampleMassFlux*props.HeatCapacity*(exampleInflow-mean), sp.HeatLoss(), 1e-5)
	assert.Equal(t, mean, sp.OutflowTemperature())
	// 紊流
	assert.Greater(t, sp.reynolds, 1e4)
}

func TestStaticPipeOuterResistance(t *testing.T) {
	props := water(t)
	inner := examplePipe()
	outer := inner
	outer.OuterDiameter = 0.025
	outer.OuterHeatTransferCoefficient = 10

	var ua []float64
	for i, p := range []model.Pipe{inner, outer} {
		sp, err := NewStaticPipe(i+1, p, props, Options{})
		require.NoError(t, err)
		bind(sp, exampleAmbient)
		evaluate(sp, initialStates(sp, 330), exampleMassFlux, exampleInflow)
		ua = append(ua, sp.UA())
	}
	// 外表面热阻串联后 UA 变小
	assert.Less(t, ua[1], ua[0])
	assert.InDelta(t, 1/(1/ua[0]+1/(10*math.Pi*0.025*10)), ua[1], 1e-9)
}

func TestStaticPipeParallel(t *testing.T) {
	props := water(t)
	single, err := NewStaticPipe(1, examplePipe(), props, Options{})
	require.NoError(t, err)
	p := examplePipe()
	p.ParallelPipes = 3
	triple, err := NewStaticPipe(2, p, props, Options{})
	require.NoError(t, err)
	bind(single, exampleAmbient)
	bind(triple, exampleAmbient)

	// 三根并联管道、三倍流量，每根管道的工况与单管相同
	evaluate(single, initialStates(single, 330), exampleMassFlux, exampleInflow)
	evaluate(triple, initialStates(triple, 330), 3*exampleMassFlux, exampleInflow)
	assert.InDelta(t, single.velocity, triple.velocity, 1e-12)
	assert.InDelta(t, 3*single.HeatLoss(), triple.HeatLoss(), 1e-9)
}

func TestStaticPipeAdiabatic(t *testing.T) {
	p := examplePipe()
	p.HeatExchange = model.HeatExchangeNone
	p.UValueWall = 0
	sp, err := NewStaticPipe(1, p, water(t), Options{})
	require.NoError(t, err)
	assert.Empty(t, sp.InputReferences())
	bind(sp)
	ydot := evaluate(sp, initialStates(sp, 330), exampleMassFlux, exampleInflow)
	assert.Equal(t, 0.0, sp.HeatLoss())
	assert.InDelta(t, exampleMassFlux*model.WaterHeatCapacity*(exampleInflow-330), ydot[0], 1e-9)
}

func TestPipeInvalid(t *testing.T) {
	props := water(t)
	p := examplePipe()
	p.UValueWall = 0
	_, err := NewStaticPipe(1, p, props, Options{})
	assert.True(t, errors.Is(err, ErrInvalidParameter))

	p = examplePipe()
	p.MaxDiscretizationWidth = 0
	_, err = NewDynamicPipe(1, p, props, Options{})
	assert.True(t, errors.Is(err, ErrInvalidParameter))

	p = examplePipe()
	p.TrackWallCapacity = true
	_, err = NewDynamicPipe(1, p, props, Options{})
	assert.True(t, errors.Is(err, ErrInvalidParameter))

	p = examplePipe()
	p.OuterHeatTransferCoefficient = 5
	_, err = NewStaticPipe(1, p, props, Options{})
	assert.True(t, errors.Is(err, ErrInvalidParameter))

	_, err = NewStaticPipe(1, examplePipe(), nil, Options{})
	assert.True(t, errors.Is(err, ErrInvalidParameter))
}

func TestDiscretization(t *testing.T) {
	assert.Equal(t, 1, discretization(10, 20))
	assert.Equal(t, 1, discretization(10, 10))
	assert.Equal(t, 3, discretization(10, 3))
	assert.Equal(t, 64, discretization(10, 10.0/64))
}

// 单个容积的动态管道与集总管道一致
func TestDynamicPipeSingleVolumeMatchesStaticPipe(t *testing.T) {
	props := water(t)
	sp, err := NewStaticPipe(1, examplePipe(), props, Options{})
	require.NoError(t, err)
	dp, err := NewDynamicPipe(2, examplePipe(), props, Options{})
	require.NoError(t, err)
	require.Equal(t, 1, dp.Volumes())
	bind(sp, exampleAmbient)
	bind(dp, exampleAmbient)

	ys := initialStates(sp, 320)
	yd := initialStates(dp, 320)
	assert.InDeltaSlice(t, ys, yd, 1e-6)
	assert.InDeltaSlice(t, evaluate(sp, ys, exampleMassFlux, exampleInflow), evaluate(dp, yd, exampleMassFlux, exampleInflow), 1e-9)
	assert.InDelta(t, sp.HeatLoss(), dp.HeatLoss(), 1e-9)
}

func nonUniformStates(dp *DynamicPipe, temps ...float64) []float64 {
	y := make([]float64, len(temps))
	for i, temp := range temps {
		y[i] = temp * dp.capacity
	}
	return y
}

func TestDynamicPipeZeroFlow(t *testing.T) {
	p := examplePipe()
	p.MaxDiscretizationWidth = 2
	dp, err := NewDynamicPipe(1, p, water(t), Options{})
	require.NoError(t, err)
	bind(dp, exampleAmbient)
	dp.SetInitialTemperature(330)

	ydot := evaluate(dp, nonUniformStates(dp, 340, 335, 330, 325, 320), 0, exampleInflow)
	assert.Equal(t, 0.0, dp.velocity)
	assert.Equal(t, 0.0, dp.reynolds)
	for i, v := range ydot {
		assert.False(t, math.IsNaN(v) || math.IsInf(v, 0))
		assert.Greater(t, dp.VolumeHeatLoss(i), 0.0)
		// 无对流项，只剩热损失
		assert.Equal(t, -dp.VolumeHeatLoss(i), v)
	}
	assert.InDelta(t, floats.Sum(dp.heatLosses), dp.HeatLoss(), 1e-9)
}

func TestDynamicPipeFlowReversal(t *testing.T) {
	p := examplePipe()
	p.MaxDiscretizationWidth = 2
	dp, err := NewDynamicPipe(1, p, water(t), Options{})
	require.NoError(t, err)
	bind(dp, exampleAmbient)
	dp.SetInitialTemperature(330)

	forward := evaluate(dp, nonUniformStates(dp, 340, 335, 330, 325, 320), exampleMassFlux, exampleInflow)
	assert.InDelta(t, 320.0, dp.OutflowTemperature(), 1e-9)

	backward := evaluate(dp, nonUniformStates(dp, 320, 325, 330, 335, 340), -exampleMassFlux, exampleInflow)
	assert.InDelta(t, 320.0, dp.OutflowTemperature(), 1e-9)

	n := len(forward)
	for i := range forward {
		assert.InDelta(t, forward[n-1-i], backward[i], 1e-6, "volume %d", i)
	}
}

// 加密离散后出口温度收敛到指数温度分布
func TestDynamicPipeConvergence(t *testing.T) {
	props := water(t)
	mcp := exampleMassFlux * props.HeatCapacity
	previous := math.Inf(1)
	for _, n := range []int{1, 2, 4, 8, 16, 32, 64} {
		p := examplePipe()
		p.MaxDiscretizationWidth = p.Length / float64(n)
		dp, err := NewDynamicPipe(1, p, props, Options{})
		require.NoError(t, err)
		require.Equal(t, n, dp.Volumes())
		bind(dp, exampleAmbient)

		y := steadyState(t, dp, exampleMassFlux, exampleInflow)
		evaluate(dp, y, exampleMassFlux, exampleInflow)
		ua := dp.uaSegment * float64(n)
		exact := exampleAmbient + (exampleInflow-exampleAmbient)*math.Exp(-ua/mcp)

		diff := dp.OutflowTemperature() - exact
		assert.Greater(t, diff, 0.0, "n=%d", n)
		assert.Less(t, diff, previous, "n=%d", n)
		previous = diff
	}
	assert.Less(t, previous, 0.01)
}

func wallPipe() model.Pipe {
	p := examplePipe()
	p.MaxDiscretizationWidth = 2.5
	p.OuterDiameter = 0.025
	p.OuterHeatTransferCoefficient = 10
	p.WallDensity = 7850
	p.WallHeatCapacity = 500
	return p
}

func TestDynamicPipeWallLumping(t *testing.T) {
	props := water(t)
	bare := examplePipe()
	bare.MaxDiscretizationWidth = 2.5
	plain, err := NewDynamicPipe(1, bare, props, Options{})
	require.NoError(t, err)
	lumped, err := NewDynamicPipe(2, wallPipe(), props, Options{})
	require.NoError(t, err)
	tracked := wallPipe()
	tracked.TrackWallCapacity = true
	wall, err := NewDynamicPipe(3, tracked, props, Options{})
	require.NoError(t, err)

	assert.Equal(t, 4, lumped.NInternalStates())
	assert.Equal(t, 8, wall.NInternalStates())
	// 管壁热容并入流体
	assert.InDelta(t, plain.capacity+lumped.wallCapacity, lumped.capacity, 1e-9)
	assert.InDelta(t, plain.capacity, wall.capacity, 1e-9)
	area := math.Pi / 4 * (0.025*0.025 - 0.02*0.02)
	assert.InDelta(t, 7850*500*area*2.5, wall.wallCapacity, 1e-6)
}

func TestDynamicPipeWallEnergyBalance(t *testing.T) {
	props := water(t)
	p := wallPipe()
	p.TrackWallCapacity = true
	dp, err := NewDynamicPipe(1, p, props, Options{})
	require.NoError(t, err)
	tab := bind(dp, exampleAmbient)

	// 全部处于环境温度且无流动时没有任何热流
	ydot := evaluate(dp, initialStates(dp, exampleAmbient), 0, exampleInflow)
	for _, v := range ydot {
		assert.InDelta(t, 0, v, 1e-9)
	}

	tab[0] = 283.15
	y := initialStates(dp, 320)
	ydot = evaluate(dp, y, exampleMassFlux, exampleInflow)
	n := dp.Volumes()
	for i := 0; i < n; i++ {
		assert.InDelta(t, dp.VolumeHeatLoss(i)-dp.wallHeatLosses[i], ydot[n+i], 1e-9)
	}
	// 流体与管壁合计：焓流差减去管壁向环境的散热
	total := floats.Sum(ydot)
	expected := exampleMassFlux*props.HeatCapacity*(exampleInflow-dp.OutflowTemperature()) - dp.wallHeatLoss
	assert.InDelta(t, expected, total, 1e-6)
	// 管壁初始与流体同温，流体到管壁无热流
	assert.InDelta(t, 0, dp.HeatLoss(), 1e-9)
	assert.Greater(t, dp.wallHeatLoss, 0.0)
}

func TestAdiabaticPipe(t *testing.T) {
	p := examplePipe()
	p.HeatExchange = model.HeatExchangeNone
	p.MaxDiscretizationWidth = 2
	ap, err := NewAdiabaticPipe(1, p, water(t), Options{})
	require.NoError(t, err)
	assert.Equal(t, 5, ap.NInternalStates())
	bind(ap)

	y := initialStates(ap, 320)
	ydot := evaluate(ap, y, exampleMassFlux, exampleInflow)
	// 只有第一个容积受入流影响
	assert.InDelta(t, exampleMassFlux*model.WaterHeatCapacity*(exampleInflow-320), ydot[0], 1e-8)
	for _, v := range ydot[1:] {
		assert.Equal(t, 0.0, v)
	}
	// 焓守恒
	ydot = evaluate(ap, nonUniformAdiabatic(ap, 330, 328, 326, 324, 322), exampleMassFlux, exampleInflow)
	assert.InDelta(t, exampleMassFlux*model.WaterHeatCapacity*(exampleInflow-322), floats.Sum(ydot), 1e-9)
}

func nonUniformAdiabatic(ap *AdiabaticPipe, temps ...float64) []float64 {
	y := make([]float64, len(temps))
	for i, temp := range temps {
		y[i] = temp * ap.capacity
	}
	return y
}

func BenchmarkDynamicPipe(b *testing.B) {
	p := examplePipe()
	p.MaxDiscretizationWidth = 0.1
	dp, err := NewDynamicPipe(1, p, water(b), Options{})
	if err != nil {
		b.Fatal(err)
	}
	bind(dp, exampleAmbient)
	y := initialStates(dp, 320)
	ydot := make([]float64, dp.NInternalStates())
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		dp.SetInternalStates(y)
		dp.SetMassFlux(exampleMassFlux)
		dp.SetInflowTemperature(exampleInflow)
		dp.InternalDerivatives(ydot)
	}
}
