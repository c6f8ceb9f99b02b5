package network

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// 着色前向差分雅可比矩阵：每种颜色只需一次额外求值
type Jacobian struct {
	host    *Host
	pattern *Pattern

	f0, f1 []float64
	yp     []float64
	steps  []float64
}

func NewJacobian(h *Host, p *Pattern) *Jacobian {
	n := h.NStates()
	return &Jacobian{
		host:    h,
		pattern: p,
		f0:      make([]float64, n),
		f1:      make([]float64, n),
		yp:      make([]float64, n),
		steps:   make([]float64, n),
	}
}

// Compute 在 (t, y) 处计算雅可比矩阵写入 dst，f0 为 y 处的导数
func (j *Jacobian) Compute(dst *mat.Dense, t float64, y, f0 []float64) {
	dst.Zero()
	eps := math.Sqrt(2.220446049250313e-16)
	for _, cols := range j.pattern.colors {
		copy(j.yp, y)
		for _, c := range cols {
			h := eps * math.Max(math.Abs(y[c]), 1)
			// 保证步长在浮点上精确
			j.yp[c] = y[c] + h
			j.steps[c] = j.yp[c] - y[c]
		}
		j.host.Evaluate(t, j.yp, j.f1)
		for _, c := range cols {
			for _, r := range j.pattern.cols[c] {
				dst.Set(r, c, (j.f1[r]-f0[r])/j.steps[c])
			}
		}
	}
	// 恢复元件内部状态
	j.host.Evaluate(t, y, j.f0)
}
