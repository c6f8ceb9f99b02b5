package network

import (
	"sort"

	log "github.com/sirupsen/logrus"

	"flownet/element"
)

// 雅可比稀疏结构：每行（导数）非零的列（状态），以及列着色
type Pattern struct {
	n    int
	rows [][]int
	cols [][]int

	colors [][]int
}

// 元件局部 Slot 映射到宿主值空间
func (h *Host) elementSlots(k int) (ydot, y, mdot, left, right element.Slot) {
	off := h.offsets[k]
	return element.DerivativeSlot(off), element.StateSlot(off), element.ResultSlot(h.massFluxSlot(k)),
		element.ResultSlot(h.nodeSlot(h.inlet[k])), element.ResultSlot(h.nodeSlot(h.outlet[k]))
}

// 网络的全部依赖边，包括节点混合
func (h *Host) Dependencies() []element.Edge {
	fixed := make(map[element.Slot]bool)
	for i, nd := range h.nodes {
		if nd.fixed >= 0 {
			fixed[element.ResultSlot(h.nodeSlot(i))] = true
		}
	}
	var deps []element.Edge
	for k, e := range h.elements {
		ydot, y, mdot, left, right := h.elementSlots(k)
		for _, d := range e.Dependencies(ydot, y, mdot, left, right, nil) {
			if fixed[d.Output] {
				continue
			}
			deps = append(deps, d)
		}
		// 混合权重
		for _, n := range []element.Slot{left, right} {
			if !fixed[n] {
				deps = append(deps, element.Edge{Output: n, Input: mdot})
			}
		}
	}
	for i, nd := range h.nodes {
		if nd.fixed >= 0 {
			deps = append(deps, element.Edge{
				Output: element.ResultSlot(h.nodeSlot(i)),
				Input:  element.ResultSlot(h.signalSlot(nd.fixed)),
			})
		}
	}
	return deps
}

// 经由结果表和观测量的传递闭包得到导数对状态的结构
func (h *Host) Pattern() *Pattern {
	adj := make(map[element.Slot][]element.Slot)
	for _, d := range h.Dependencies() {
		adj[d.Output] = append(adj[d.Output], d.Input)
	}

	p := &Pattern{
		n:    h.nStates,
		rows: make([][]int, h.nStates),
		cols: make([][]int, h.nStates),
	}
	for r := 0; r < h.nStates; r++ {
		seen := map[element.Slot]bool{}
		states := map[int]bool{r: true}
		stack := []element.Slot{element.DerivativeSlot(r)}
		for len(stack) > 0 {
			s := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			for _, in := range adj[s] {
				if seen[in] {
					continue
				}
				seen[in] = true
				switch in.Space {
				case element.SpaceState:
					states[in.Index] = true
				case element.SpaceResult, element.SpaceQuantity:
					stack = append(stack, in)
				}
			}
		}
		for c := range states {
			p.rows[r] = append(p.rows[r], c)
		}
		sort.Ints(p.rows[r])
		for _, c := range p.rows[r] {
			p.cols[c] = append(p.cols[c], r)
		}
	}
	p.color()

	h.logger.WithFields(log.Fields{
		"states":   p.n,
		"nonzeros": p.NonZeros(),
		"colors":   len(p.colors),
	}).Info("jacobian pattern")
	return p
}

// 贪心着色：同色的列没有公共行
func (p *Pattern) color() {
	used := make([]map[int]bool, p.n)
	for r := range used {
		used[r] = map[int]bool{}
	}
	for c := 0; c < p.n; c++ {
		color := 0
		for ; ; color++ {
			free := true
			for _, r := range p.cols[c] {
				if used[r][color] {
					free = false
					break
				}
			}
			if free {
				break
			}
		}
		for _, r := range p.cols[c] {
			used[r][color] = true
		}
		if color == len(p.colors) {
			p.colors = append(p.colors, nil)
		}
		p.colors[color] = append(p.colors[color], c)
	}
}

func (p *Pattern) NonZeros() int {
	nz := 0
	for _, r := range p.rows {
		nz += len(r)
	}
	return nz
}

func (p *Pattern) Colors() int {
	return len(p.colors)
}

// 第 r 行非零的列
func (p *Pattern) Row(r int) []int {
	return p.rows[r]
}

func (p *Pattern) Has(r, c int) bool {
	i := sort.SearchInts(p.rows[r], c)
	return i < len(p.rows[r]) && p.rows[r][i] == c
}
