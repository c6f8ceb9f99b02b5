package server

import (
	"context"
	"errors"
	"sync"

	log "github.com/sirupsen/logrus"

	"flownet/network"
)

var (
	ErrAlreadyRunning = errors.New("server: simulation is already running")
	ErrNotRunning     = errors.New("server: simulation is not running")
)

// 所有连接共享的一次模拟
type simulation struct {
	runner *network.Runner

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

func newSimulation(r *network.Runner) *simulation {
	return &simulation{runner: r}
}

func (s *simulation) start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return ErrAlreadyRunning
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	s.err = nil
	go func(done chan struct{}) {
		err := s.runner.Run(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			log.WithError(err).Error("simulation stopped")
		}
		s.mu.Lock()
		s.err = err
		s.cancel = nil
		s.mu.Unlock()
		close(done)
	}(s.done)
	return nil
}

// 阻塞到模拟协程退出
func (s *simulation) stop() error {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.mu.Unlock()
	if cancel == nil {
		return ErrNotRunning
	}
	cancel()
	<-done
	return nil
}

func (s *simulation) reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return ErrAlreadyRunning
	}
	s.runner.Reset()
	return nil
}

type status struct {
	Running bool    `json:"running"`
	Time    float64 `json:"time"`
	Error   string  `json:"error,omitempty"`
	// 元件名 -> 热损失，W
	HeatLosses map[string]float64 `json:"heat_losses"`
}

func (s *simulation) status() status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := status{Running: s.cancel != nil, Time: s.runner.Time(), HeatLosses: s.runner.HeatLosses()}
	if s.err != nil && !errors.Is(s.err, context.Canceled) {
		st.Error = s.err.Error()
	}
	return st
}
