package network

import (
	"errors"
	"fmt"
	"math"

	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

var ErrNewtonDiverged = errors.New("network: newton iteration did not converge")

// 隐式欧拉法，简化牛顿迭代（每步只计算一次雅可比矩阵）
type ImplicitEuler struct {
	host     *Host
	jacobian *Jacobian

	Tolerance     float64
	MaxIterations int

	jac  *mat.Dense
	iter *mat.Dense
	lu   mat.LU

	f, res, yn []float64
	dy         *mat.VecDense

	// 统计
	Steps       int
	Iterations  int
	Evaluations int
}

func NewImplicitEuler(h *Host, tolerance float64, maxIterations int) *ImplicitEuler {
	n := h.NStates()
	if tolerance <= 0 {
		tolerance = 1e-6
	}
	if maxIterations <= 0 {
		maxIterations = 10
	}
	ie := &ImplicitEuler{
		host:          h,
		Tolerance:     tolerance,
		MaxIterations: maxIterations,
		f:             make([]float64, n),
		res:           make([]float64, n),
		yn:            make([]float64, n),
	}
	if n > 0 {
		ie.jacobian = NewJacobian(h, h.Pattern())
		ie.jac = mat.NewDense(n, n, nil)
		ie.iter = mat.NewDense(n, n, nil)
		ie.dy = mat.NewVecDense(n, nil)
	}
	return ie
}

// Step 从 (t, y) 前进 dt，成功时 y 就地更新为新状态
func (ie *ImplicitEuler) Step(t, dt float64, y []float64) error {
	n := len(y)
	tn := t + dt
	if n == 0 {
		ie.host.Evaluate(tn, y, y)
		ie.host.StepCompleted(tn)
		ie.Steps++
		return nil
	}
	copy(ie.yn, y)

	// 迭代矩阵 I - dt*J
	ie.host.Evaluate(tn, y, ie.f)
	ie.jacobian.Compute(ie.jac, tn, y, ie.f)
	ie.Evaluations += 2 + ie.jacobian.pattern.Colors()
	ie.iter.Scale(-dt, ie.jac)
	for i := 0; i < n; i++ {
		ie.iter.Set(i, i, ie.iter.At(i, i)+1)
	}
	ie.lu.Factorize(ie.iter)
	if math.IsInf(ie.lu.Cond(), 1) {
		copy(y, ie.yn)
		return fmt.Errorf("%w: singular iteration matrix at t=%g", ErrNewtonDiverged, tn)
	}

	for it := 0; it < ie.MaxIterations; it++ {
		if it > 0 {
			ie.host.Evaluate(tn, y, ie.f)
			ie.Evaluations++
		}
		ie.Iterations++
		// G(y) = y - yn - dt*f(y)
		for i := range ie.res {
			ie.res[i] = y[i] - ie.yn[i] - dt*ie.f[i]
		}
		err := ie.lu.SolveVecTo(ie.dy, false, mat.NewVecDense(n, ie.res))
		var cond mat.Condition
		if err != nil && !errors.As(err, &cond) {
			copy(y, ie.yn)
			return fmt.Errorf("%w: %v", ErrNewtonDiverged, err)
		}
		dy := ie.dy.RawVector().Data
		floats.Sub(y, dy)
		if floats.HasNaN(y) {
			break
		}
		if ie.converged(dy, y) {
			// 接受前以新状态求值一次，使观测量与状态一致
			ie.host.Evaluate(tn, y, ie.f)
			ie.Evaluations++
			ie.host.StepCompleted(tn)
			ie.Steps++
			return nil
		}
	}

	copy(y, ie.yn)
	ie.host.logger.WithFields(log.Fields{
		"time":       tn,
		"step":       dt,
		"iterations": ie.MaxIterations,
	}).Warn("newton iteration did not converge")
	return fmt.Errorf("%w: t=%g dt=%g", ErrNewtonDiverged, tn, dt)
}

func (ie *ImplicitEuler) converged(dy, y []float64) bool {
	for i := range dy {
		if math.Abs(dy[i]) > ie.Tolerance*(1+math.Abs(y[i])) {
			return false
		}
	}
	return true
}
