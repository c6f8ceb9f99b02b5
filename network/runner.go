package network

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	log "github.com/sirupsen/logrus"

	"flownet/deque"
	"flownet/model"
)

// 步长最多减半的次数
const maxHalvings = 10

type RunnerConfig struct {
	TimeStep      float64
	EndTime       float64
	Tolerance     float64
	MaxIterations int
	HistoryLength int
}

// Runner 推进模拟并保存每一步的观测量
type Runner struct {
	host       *Host
	integrator *ImplicitEuler
	cfg        RunnerConfig

	mu      sync.RWMutex
	history deque.Deque
	time    float64
	y       []float64
	running bool

	subscribers map[chan model.Snapshot]struct{}
}

func NewRunner(h *Host, cfg RunnerConfig) (*Runner, error) {
	if cfg.TimeStep <= 0 || cfg.EndTime <= 0 {
		return nil, fmt.Errorf("%w: time step %g and end time %g must be positive", ErrInvalidScenario, cfg.TimeStep, cfg.EndTime)
	}
	if cfg.HistoryLength <= 0 {
		cfg.HistoryLength = 1024
	}
	r := &Runner{
		host:        h,
		integrator:  NewImplicitEuler(h, cfg.Tolerance, cfg.MaxIterations),
		cfg:         cfg,
		history:     deque.NewArrDeque(cfg.HistoryLength),
		subscribers: make(map[chan model.Snapshot]struct{}),
	}
	r.Reset()
	return r, nil
}

// 回到初始状态并清空历史
func (r *Runner) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.y = r.host.InitialStates()
	r.time = 0
	r.host.Evaluate(0, r.y, make([]float64, len(r.y)))
	r.history.Clear()
	r.history.AddLast(r.host.Snapshot(0))
	r.host.logger.WithFields(log.Fields{"time": 0, "capacity": r.history.Capacity()}).Debug("history reset")
}

func (r *Runner) Quantities() []model.QuantityInfo {
	return r.host.Quantities()
}

// 订阅每一步的结果；消费跟不上时丢弃
func (r *Runner) Subscribe() (<-chan model.Snapshot, func()) {
	ch := make(chan model.Snapshot, 64)
	r.mu.Lock()
	r.subscribers[ch] = struct{}{}
	r.mu.Unlock()
	return ch, func() {
		r.mu.Lock()
		if _, ok := r.subscribers[ch]; ok {
			delete(r.subscribers, ch)
			close(ch)
		}
		r.mu.Unlock()
	}
}

func (r *Runner) Running() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.running
}

func (r *Runner) Time() float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.time
}

func (r *Runner) HeatLosses() map[string]float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.host.HeatLosses()
}

// 历史结果的拷贝，按时间顺序
func (r *Runner) History() []model.Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.history.IsEmpty() {
		return nil
	}
	out := make([]model.Snapshot, 0, r.history.Size())
	r.history.Traverse(func(i int, item *model.Snapshot) {
		out = append(out, *item)
	})
	return out
}

// Run 推进到结束时间或 ctx 取消；已到结束时间时直接返回
func (r *Runner) Run(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return errors.New("network: runner is already running")
	}
	r.running = true
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
	}()

	dt := r.cfg.TimeStep
	halvings := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		r.mu.Lock()
		t := r.time
		if t >= r.cfg.EndTime-1e-9*r.cfg.TimeStep {
			r.mu.Unlock()
			break
		}
		step := math.Min(dt, r.cfg.EndTime-t)
		err := r.integrator.Step(t, step, r.y)
		if err != nil {
			r.mu.Unlock()
			if !errors.Is(err, ErrNewtonDiverged) || halvings == maxHalvings {
				return fmt.Errorf("step at t=%g: %w", t, err)
			}
			halvings++
			dt /= 2
			continue
		}
		r.time = t + step
		snapshot := r.host.Snapshot(r.time)
		r.history.AddLast(snapshot)
		for ch := range r.subscribers {
			select {
			case ch <- snapshot:
			default:
			}
		}
		r.mu.Unlock()

		// 收敛后逐步恢复步长
		if halvings > 0 {
			halvings--
			dt *= 2
		}
	}

	total := 0.0
	for _, q := range r.HeatLosses() {
		total += q
	}
	r.mu.RLock()
	kept, full := r.history.Size(), r.history.IsFull()
	r.mu.RUnlock()
	r.host.logger.WithFields(log.Fields{
		"time":        r.Time(),
		"heatLoss":    total,
		"history":     kept,
		"historyFull": full,
		"steps":       r.integrator.Steps,
		"iterations":  r.integrator.Iterations,
		"evaluations": r.integrator.Evaluations,
		"diagnostics": r.host.Diagnostics(),
	}).Info("simulation finished")
	return nil
}
