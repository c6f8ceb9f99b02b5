package element

import (
	"errors"
	"fmt"
)

// 流动元件的接口定义
//
// 宿主（网络）在每次求值时依次调用：
// SetInternalStates -> SetMassFlux -> SetInflowTemperature -> InternalDerivatives / OutflowTemperature。
// 依赖关系 Dependencies 只在网络建立时调用一次。

var ErrInvalidParameter = errors.New("element: invalid parameter")

// 值空间
type Space uint8

const (
	SpaceState      Space = iota // 全局状态向量 y
	SpaceDerivative              // 全局导数向量 ydot
	SpaceResult                  // 宿主结果表：质量流量、节点温度、信号
	SpaceQuantity                // 元件自身的观测量，Owner 为元件 ID
)

func (s Space) String() string {
	switch s {
	case SpaceState:
		return "y"
	case SpaceDerivative:
		return "ydot"
	case SpaceResult:
		return "result"
	case SpaceQuantity:
		return "quantity"
	}
	return fmt.Sprintf("space(%d)", uint8(s))
}

// Slot 指向宿主值空间中的一个标量
type Slot struct {
	Space Space
	Owner int
	Index int
}

func StateSlot(i int) Slot      { return Slot{Space: SpaceState, Index: i} }
func DerivativeSlot(i int) Slot { return Slot{Space: SpaceDerivative, Index: i} }
func ResultSlot(i int) Slot     { return Slot{Space: SpaceResult, Index: i} }

func QuantitySlot(owner, i int) Slot {
	return Slot{Space: SpaceQuantity, Owner: owner, Index: i}
}

// 同一空间内偏移
func (s Slot) Offset(i int) Slot {
	s.Index += i
	return s
}

func (s Slot) String() string {
	if s.Space == SpaceQuantity {
		return fmt.Sprintf("%s[%d:%d]", s.Space, s.Owner, s.Index)
	}
	return fmt.Sprintf("%s[%d]", s.Space, s.Index)
}

// Edge 表示 Output 对 Input 的偏导数可能非零
type Edge struct {
	Output Slot
	Input  Slot
}

func link(deps []Edge, out Slot, ins ...Slot) []Edge {
	for _, in := range ins {
		deps = append(deps, Edge{Output: out, Input: in})
	}
	return deps
}

// Table 宿主持有的结果表，元件只读
type Table interface {
	Value(index int) float64
}

// Ref 已解析的外部引用，建立网络时解析一次，之后按值传递
type Ref struct {
	table Table
	index int
}

func NewRef(table Table, index int) Ref {
	return Ref{table: table, index: index}
}

func (r Ref) Resolved() bool {
	return r.table != nil
}

func (r Ref) Value() float64 {
	if r.table == nil {
		panic("element: read through unresolved input reference")
	}
	return r.table.Value(r.index)
}

func (r Ref) Slot() Slot {
	if r.table == nil {
		panic("element: dependency on unresolved input reference")
	}
	return ResultSlot(r.index)
}

// 元件声明的输入引用，由宿主在自己的信号命名空间中解析
type InputReference struct {
	ElementID int
	Name      string
	Unit      string
}

// 观测量描述
type Quantity struct {
	Name        string
	Unit        string
	Description string
}

type Element interface {
	// 元件 ID
	ID() int

	// 内部状态个数，代数元件为 0
	NInternalStates() int

	// 设置初始温度，在第一次读取状态前调用一次
	SetInitialTemperature(t0 float64)

	// 写入初始状态（能量形式，T * rho * cp * V）
	InitialInternalStates(y0 []float64)

	// 由状态反算温度，每次求值最先调用
	SetInternalStates(y []float64)

	SetMassFlux(massFlux float64)

	// 核心物理计算
	SetInflowTemperature(tInflow float64)

	InternalDerivatives(ydot []float64)

	OutflowTemperature() float64

	InputReferences() []InputReference

	// refs 的个数和顺序必须与 InputReferences 一致
	SetInputValueRefs(refs []Ref)

	// 追加所有偏导数可能非零的 (输出, 输入) 对
	Dependencies(ydot, y, mdot, tInflowLeft, tInflowRight Slot, deps []Edge) []Edge

	ModelQuantities() []Quantity

	ModelQuantityValueRefs() []*float64
}

// 每个完成的时间步之后由宿主调用
type StepCompleter interface {
	StepCompleted(t float64)
}

// 与外界换热的元件
type HeatExchanger interface {
	HeatLoss() float64
}

// 记录非致命诊断信息的元件
type Diagnoser interface {
	DiagnosticCount() int
	LastDiagnostic() string
}
