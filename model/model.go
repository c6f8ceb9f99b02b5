package model

import (
	"encoding/json"
	"fmt"
	"os"
)

// 网络场景配置，由 json 文件读入
type Scenario struct {
	Name               string    `json:"name"`
	InitialTemperature float64   `json:"initial_temperature"`
	Fluid              Fluid     `json:"fluid"`
	Nodes              []Node    `json:"nodes"`
	Elements           []Element `json:"elements"`
	Signals            []Signal  `json:"signals"`
}

// 流体物性
type Fluid struct {
	Name         string  `json:"name"`
	Density      float64 `json:"density"`       // kg/m3
	HeatCapacity float64 `json:"heat_capacity"` // J/kgK
	Conductivity float64 `json:"conductivity"`  // W/mK
	Viscosity    Curve   `json:"viscosity"`     // 运动粘度 m2/s，自变量为温度 K
}

// 分段线性曲线
type Curve struct {
	X []float64 `json:"x"`
	Y []float64 `json:"y"`
}

// 网络节点
type Node struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	// 定温节点的温度信号，为空时由流入元件混合得到
	TemperatureSignal string `json:"temperature_signal"`
}

// 流动元件配置
type Element struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Model  string `json:"model"`
	Inlet  int    `json:"inlet"`
	Outlet int    `json:"outlet"`

	// 质量流量，kg/s，水力计算不在本模块内
	MassFlux       float64 `json:"mass_flux"`
	MassFluxSignal string  `json:"mass_flux_signal"`

	// 输入引用名 -> 信号名
	Inputs map[string]string `json:"inputs"`

	// 单容积元件的流体体积，m3
	Volume float64 `json:"volume"`

	Pipe     *Pipe     `json:"pipe,omitempty"`
	Pump     *Pump     `json:"pump,omitempty"`
	HeatLoss *HeatLoss `json:"heat_loss,omitempty"`
	HeatPump *HeatPump `json:"heat_pump,omitempty"`
}

// 管道参数
type Pipe struct {
	Length                       float64 `json:"length"`
	InnerDiameter                float64 `json:"inner_diameter"`
	OuterDiameter                float64 `json:"outer_diameter"`
	UValueWall                   float64 `json:"u_value_wall"` // W/mK
	OuterHeatTransferCoefficient float64 `json:"outer_heat_transfer_coefficient"`
	ParallelPipes                int     `json:"parallel_pipes"`
	MaxDiscretizationWidth       float64 `json:"max_discretization_width"`
	HeatExchange                 string  `json:"heat_exchange"`

	// 管壁热容
	WallDensity       float64 `json:"wall_density"`
	WallHeatCapacity  float64 `json:"wall_heat_capacity"`
	TrackWallCapacity bool    `json:"track_wall_capacity"`
}

// 水泵参数
type Pump struct {
	PressureHead                         float64 `json:"pressure_head"` // Pa
	MaximumEfficiency                    float64 `json:"maximum_efficiency"`
	FractionOfMotorInefficienciesToFluid float64 `json:"fraction_of_motor_inefficiencies_to_fluid"`
}

// 外部热损失元件参数
type HeatLoss struct {
	// K，大于 0 时按该温度限制取热
	MinimumOutletTemperature float64 `json:"minimum_outlet_temperature"`
}

// 热泵参数
type HeatPump struct {
	CarnotEfficiency float64        `json:"carnot_efficiency"`
	COPCoefficients  CoefficientSet `json:"cop_coefficients"`

	CondenserHeatFluxCoefficients CoefficientSet `json:"condenser_heat_flux_coefficients"`
	ElectricalPowerCoefficients   CoefficientSet `json:"electrical_power_coefficients"`

	Buffer *Buffer `json:"buffer,omitempty"`
}

// 热泵缓冲水箱参数
type Buffer struct {
	HeatingBufferVolume       float64 `json:"heating_buffer_volume"`
	HeatingBufferLowSetpoint  float64 `json:"heating_buffer_low_setpoint"`
	HeatingBufferHighSetpoint float64 `json:"heating_buffer_high_setpoint"`

	DHWBufferVolume       float64 `json:"dhw_buffer_volume"`
	DHWBufferLowSetpoint  float64 `json:"dhw_buffer_low_setpoint"`
	DHWBufferHighSetpoint float64 `json:"dhw_buffer_high_setpoint"`

	// 额定制热功率及其参考工况
	RatedHeatingPower              float64 `json:"rated_heating_power"`
	ReferenceEvaporatorTemperature float64 `json:"reference_evaporator_temperature"`
	ReferenceCondenserTemperature  float64 `json:"reference_condenser_temperature"`

	InitialHeatingBufferTemperature float64 `json:"initial_heating_buffer_temperature"`
	InitialDHWBufferTemperature     float64 `json:"initial_dhw_buffer_temperature"`

	// 为 0 时按水处理
	Density      float64 `json:"density"`
	HeatCapacity float64 `json:"heat_capacity"`
}

// 6 系数二元二次多项式：c0 + c1*x + c2*y + c3*x*y + c4*x^2 + c5*y^2
type CoefficientSet [6]float64

func (c CoefficientSet) Value(x, y float64) float64 {
	return c[0] + c[1]*x + c[2]*y + c[3]*x*y + c[4]*x*x + c[5]*y*y
}

// 信号：常量或随时间分段线性变化的序列
type Signal struct {
	Name   string    `json:"name"`
	Unit   string    `json:"unit"`
	Value  float64   `json:"value"`
	Times  []float64 `json:"times"`
	Values []float64 `json:"values"`
}

// 一个时间步的全部观测量
type Snapshot struct {
	Time   float64   `json:"time"`
	Values []float64 `json:"values"`
}

// 观测量描述
type QuantityInfo struct {
	Index       int    `json:"index"`
	Element     string `json:"element"`
	Name        string `json:"name"`
	Unit        string `json:"unit"`
	Description string `json:"description"`
}

// 前后端通信消息结构
type Msg struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario %s: %w", path, err)
	}
	var s Scenario
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode scenario %s: %w", path, err)
	}
	return &s, nil
}
