package network

import (
	"sync"
	"time"
)

// 基于切片任务分配的并行执行器
//
// 一次求值把元件区间 [first, last) 切成若干子区间分发给 worker，
// 各元件只写自己的状态切片，不需要加锁。
type executor struct {
	dispatchChan chan task
	workers      int

	doneSoFar chan struct{}
	finish    chan struct{}
	start     chan task
	stop      chan struct{}
	once      sync.Once
}

type task struct {
	start int
	end   int
	f     func(start, end int)
}

func newExecutor(workers int) *executor {
	if workers < 1 {
		workers = 1
	}
	e := &executor{
		dispatchChan: make(chan task, 3*workers+1),
		workers:      workers,

		doneSoFar: make(chan struct{}, 3*workers+1),
		finish:    make(chan struct{}, 1),
		start:     make(chan task, 1),
		stop:      make(chan struct{}),
	}
	if workers > 1 {
		e.run()
	}
	return e
}

// 阻塞直到整个区间计算完成
func (e *executor) dispatchTask(first, last int, f func(start, end int)) time.Duration {
	start := time.Now()
	if last <= first {
		return 0
	}
	if e.workers == 1 || last-first < 2 {
		f(first, last)
		return time.Since(start)
	}
	e.start <- task{start: first, end: last, f: f}
	<-e.finish
	return time.Since(start)
}

func (e *executor) close() {
	e.once.Do(func() { close(e.stop) })
}

// 任务个数：每个 worker 两段（每段至少一个元件），余数逐个分配
func split(first, last, workers int) []task {
	total := last - first
	taskLen, remainder := total/workers, total%workers
	var tasks []task
	start := first
	if taskLen == 1 {
		for start < last-remainder {
			tasks = append(tasks, task{start: start, end: start + 1})
			start++
		}
	} else if taskLen > 1 {
		half1, half2 := taskLen/2, taskLen/2
		if taskLen%2 == 1 {
			half2++
		}
		for start < last-remainder {
			tasks = append(tasks, task{start: start, end: start + half1})
			start += half1
			tasks = append(tasks, task{start: start, end: start + half2})
			start += half2
		}
	}
	for i := 0; i < remainder; i++ {
		tasks = append(tasks, task{start: start, end: start + 1})
		start++
	}
	return tasks
}

func (e *executor) run() {
	go func() {
		totalTasks, doneSoFar := 0, 0
		for {
			select {
			case t := <-e.start:
				tasks := split(t.start, t.end, e.workers)
				totalTasks, doneSoFar = len(tasks), 0
				go func() {
					for _, sub := range tasks {
						sub.f = t.f
						select {
						case e.dispatchChan <- sub:
						case <-e.stop:
							return
						}
					}
				}()
			case <-e.doneSoFar:
				doneSoFar++
				if doneSoFar == totalTasks {
					e.finish <- struct{}{}
				}
			case <-e.stop:
				return
			}
		}
	}()

	for i := 0; i < e.workers; i++ {
		go func() {
			for {
				select {
				case t := <-e.dispatchChan:
					t.f(t.start, t.end)
					e.doneSoFar <- struct{}{}
				case <-e.stop:
					return
				}
			}
		}()
	}
}
