package element

import (
	"fmt"

	"flownet/fluid"
	"flownet/model"
)

// 按模型名创建元件
func New(e model.Element, props *fluid.Properties, opts Options) (Element, error) {
	switch e.Model {
	case model.ModelStaticPipe, model.ModelDynamicPipe:
		if e.Pipe == nil {
			return nil, fmt.Errorf("%w: element %d (%s) needs pipe parameters", ErrInvalidParameter, e.ID, e.Model)
		}
		if e.Model == model.ModelStaticPipe {
			return NewStaticPipe(e.ID, *e.Pipe, props, opts)
		}
		if e.Pipe.HeatExchange == model.HeatExchangeNone {
			return NewAdiabaticPipe(e.ID, *e.Pipe, props, opts)
		}
		return NewDynamicPipe(e.ID, *e.Pipe, props, opts)
	case model.ModelPump:
		if e.Pump == nil {
			return nil, fmt.Errorf("%w: element %d (%s) needs pump parameters", ErrInvalidParameter, e.ID, e.Model)
		}
		return NewPump(e.ID, *e.Pump, e.Volume, props, opts)
	case model.ModelIdealHeaterCooler:
		return NewIdealHeaterCooler(e.ID, props, opts)
	case model.ModelExternalHeatLoss:
		var p model.HeatLoss
		if e.HeatLoss != nil {
			p = *e.HeatLoss
		}
		return NewExternalHeatLoss(e.ID, p, e.Volume, props, opts)
	}

	if e.HeatPump == nil {
		if isHeatPump(e.Model) {
			return nil, fmt.Errorf("%w: element %d (%s) needs heat pump parameters", ErrInvalidParameter, e.ID, e.Model)
		}
		return nil, fmt.Errorf("%w: element %d has unknown model %q", ErrInvalidParameter, e.ID, e.Model)
	}
	switch e.Model {
	case model.ModelHeatPumpCarnotSourceSide:
		return NewHeatPumpVariable(e.ID, COPCarnot, SourceSide, *e.HeatPump, e.Volume, props, opts)
	case model.ModelHeatPumpCarnotSupplySide:
		return NewHeatPumpVariable(e.ID, COPCarnot, SupplySide, *e.HeatPump, e.Volume, props, opts)
	case model.ModelHeatPumpPolynomialSourceSide:
		return NewHeatPumpVariable(e.ID, COPPolynomial, SourceSide, *e.HeatPump, e.Volume, props, opts)
	case model.ModelHeatPumpPolynomialSupplySide:
		return NewHeatPumpVariable(e.ID, COPPolynomial, SupplySide, *e.HeatPump, e.Volume, props, opts)
	case model.ModelHeatPumpOnOffSourceSide:
		return NewHeatPumpOnOff(e.ID, *e.HeatPump, e.Volume, props, opts)
	case model.ModelHeatPumpBufferSourceSide:
		return NewHeatPumpBuffer(e.ID, *e.HeatPump, e.Volume, props, opts)
	}
	return nil, fmt.Errorf("%w: element %d has unknown model %q", ErrInvalidParameter, e.ID, e.Model)
}

func isHeatPump(name string) bool {
	switch name {
	case model.ModelHeatPumpCarnotSourceSide, model.ModelHeatPumpCarnotSupplySide,
		model.ModelHeatPumpPolynomialSourceSide, model.ModelHeatPumpPolynomialSupplySide,
		model.ModelHeatPumpOnOffSourceSide, model.ModelHeatPumpBufferSourceSide:
		return true
	}
	return false
}
