package model

// 物理常量
const (
	// 摄氏度零点，K
	ZeroCelsius = 273.15

	// 卡诺热泵冷凝器与蒸发器之间的最小温差，K
	MinCarnotTemperatureSpread = 4.0

	// 水的默认物性，用于缓冲水箱
	WaterDensity      = 998.0
	WaterHeatCapacity = 4180.0
)

// 元件模型类型
const (
	ModelStaticPipe        = "StaticPipe"
	ModelDynamicPipe       = "DynamicPipe"
	ModelPump              = "Pump"
	ModelIdealHeaterCooler = "IdealHeaterCooler"
	ModelExternalHeatLoss  = "ExternalHeatLoss"

	ModelHeatPumpCarnotSourceSide     = "HeatPumpIdealCarnotSourceSide"
	ModelHeatPumpCarnotSupplySide     = "HeatPumpIdealCarnotSupplySide"
	ModelHeatPumpPolynomialSourceSide = "HeatPumpPolynomialSourceSide"
	ModelHeatPumpPolynomialSupplySide = "HeatPumpPolynomialSupplySide"
	ModelHeatPumpOnOffSourceSide      = "HeatPumpOnOffSourceSide"
	ModelHeatPumpBufferSourceSide     = "HeatPumpOnOffSourceSideWithBuffer"
)

// 管道换热边界类型
const (
	HeatExchangeNone        = ""
	HeatExchangeTemperature = "AmbientTemperature"
)
