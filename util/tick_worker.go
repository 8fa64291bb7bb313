package util

import (
	"sync"
	"time"

	"github.com/mohitkumar/eventflow/logger"
	"go.uber.org/zap"
)

// TickWorker calls fn every interval on its own goroutine until stopped.
type TickWorker struct {
	name     string
	interval time.Duration
	fn       func()
	stop     chan struct{}
	once     sync.Once
	wg       sync.WaitGroup
}

func NewTickWorker(name string, interval time.Duration, fn func()) *TickWorker {
	return &TickWorker{
		name:     name,
		interval: interval,
		fn:       fn,
		stop:     make(chan struct{}),
	}
}

func (tw *TickWorker) Start() {
	ticker := time.NewTicker(tw.interval)
	tw.wg.Add(1)
	go func() {
		defer tw.wg.Done()
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				tw.fn()
			case <-tw.stop:
				logger.Debug("stopping tick worker", zap.String("worker", tw.name))
				return
			}
		}
	}()
	logger.Debug("tick worker started", zap.String("worker", tw.name), zap.Duration("interval", tw.interval))
}

// Stop waits for a running fn to return. Calling it more than once is safe.
func (tw *TickWorker) Stop() {
	tw.once.Do(func() {
		close(tw.stop)
	})
	tw.wg.Wait()
}
