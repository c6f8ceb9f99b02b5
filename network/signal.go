package network

import (
	"fmt"

	"gonum.org/v1/gonum/interp"

	"flownet/model"
)

// 输入信号：常量，或按时间分段线性插值的序列
type signal struct {
	name string
	unit string

	constant bool
	value    float64
	series   interp.PiecewiseLinear
}

func newSignal(s model.Signal) (*signal, error) {
	if s.Name == "" {
		return nil, fmt.Errorf("%w: signal without name", ErrInvalidScenario)
	}
	sig := &signal{name: s.Name, unit: s.Unit}
	switch {
	case len(s.Times) == 0 && len(s.Values) == 0:
		sig.constant = true
		sig.value = s.Value
		return sig, nil
	case len(s.Times) != len(s.Values):
		return nil, fmt.Errorf("%w: signal %s has %d times and %d values", ErrInvalidScenario, s.Name, len(s.Times), len(s.Values))
	case len(s.Times) == 1:
		sig.constant = true
		sig.value = s.Values[0]
		return sig, nil
	}
	for i := 1; i < len(s.Times); i++ {
		if s.Times[i] <= s.Times[i-1] {
			return nil, fmt.Errorf("%w: signal %s times must be strictly increasing at index %d", ErrInvalidScenario, s.Name, i)
		}
	}
	if err := sig.series.Fit(s.Times, s.Values); err != nil {
		return nil, fmt.Errorf("%w: signal %s: %v", ErrInvalidScenario, s.Name, err)
	}
	return sig, nil
}

// 超出时间范围时取端点值
func (s *signal) at(t float64) float64 {
	if s.constant {
		return s.value
	}
	return s.series.Predict(t)
}
