package util

import (
	"sync"

	"github.com/mohitkumar/eventflow/logger"
	"go.uber.org/zap"
)

type Job any

// Worker runs a fixed number of goroutines draining one job channel.
type Worker struct {
	name      string
	capacity  int
	instances int
	stop      chan struct{}
	stopOnce  sync.Once
	wg        *sync.WaitGroup
	handler   func(Job) error
	jobChan   chan Job

	mu sync.Mutex
	// backlog holds jobs that found the channel full, oldest first. A single
	// pump goroutine moves them into the channel while pumping is set.
	backlog []Job
	pumping bool
}

func NewWorker(name string, wg *sync.WaitGroup, handler func(Job) error, capacity int, instances int) *Worker {
	if instances < 1 {
		instances = 1
	}
	return &Worker{
		name:      name,
		capacity:  capacity,
		instances: instances,
		stop:      make(chan struct{}),
		wg:        wg,
		handler:   handler,
		jobChan:   make(chan Job, capacity),
	}
}

func (w *Worker) Start() {
	for i := 0; i < w.instances; i++ {
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			for {
				select {
				case job := <-w.jobChan:
					if err := w.handler(job); err != nil {
						logger.Error("error in executing job in worker", zap.String("worker", w.name), zap.Error(err))
					}
				case <-w.stop:
					return
				}
			}
		}()
	}
	logger.Debug("worker started", zap.String("worker", w.name), zap.Int("instances", w.instances))
}

// Submit enqueues a job without blocking the caller. Jobs are handed to the
// channel in submission order even when it is full; a route may submit to
// itself, so a blocking send could stall its own handlers.
func (w *Worker) Submit(job Job) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.pumping {
		select {
		case w.jobChan <- job:
			return
		case <-w.stop:
			return
		default:
		}
		w.pumping = true
		go w.pump()
	}
	w.backlog = append(w.backlog, job)
}

func (w *Worker) pump() {
	for {
		w.mu.Lock()
		if len(w.backlog) == 0 {
			w.pumping = false
			w.mu.Unlock()
			return
		}
		job := w.backlog[0]
		w.backlog[0] = nil
		w.backlog = w.backlog[1:]
		w.mu.Unlock()

		select {
		case w.jobChan <- job:
		case <-w.stop:
			w.mu.Lock()
			w.backlog = nil
			w.mu.Unlock()
			return
		}
	}
}

// Backlog is the number of jobs waiting for room in the channel.
func (w *Worker) Backlog() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.backlog)
}

func (w *Worker) Stop() {
	w.stopOnce.Do(func() {
		logger.Info("stopping worker", zap.String("worker", w.name))
		close(w.stop)
	})
}
