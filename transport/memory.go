package transport

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/RussellLuo/timingwheel"
	"github.com/google/uuid"
	"github.com/mitchellh/copystructure"
	"github.com/mohitkumar/eventflow/logger"
	"github.com/mohitkumar/eventflow/util"
	"go.uber.org/zap"
)

const (
	inboxPrefix = "r."
	// deferred events are scheduled on a wheel with millisecond slots
	wheelTick = time.Millisecond
	wheelSize = 512
)

type route struct {
	name        string
	fn          Function
	interceptor bool
	worker      *util.Worker
}

// Memory is an in-process transport. Every registered route is served by its
// own pool of worker goroutines.
type Memory struct {
	mu       sync.RWMutex
	routes   map[string]*route
	inboxes  map[string]chan *Event
	wheel    *timingwheel.TimingWheel
	timers   map[string]*timingwheel.Timer
	capacity int
	wg       *sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
	stopOnce sync.Once
}

var _ Transport = new(Memory)

func NewMemory(capacity int) *Memory {
	if capacity < 1 {
		capacity = 256
	}
	ctx, cancel := context.WithCancel(context.Background())
	m := &Memory{
		routes:   make(map[string]*route),
		inboxes:  make(map[string]chan *Event),
		wheel:    timingwheel.NewTimingWheel(wheelTick, wheelSize),
		timers:   make(map[string]*timingwheel.Timer),
		capacity: capacity,
		wg:       &sync.WaitGroup{},
		ctx:      ctx,
		cancel:   cancel,
	}
	m.wheel.Start()
	return m
}

// Register serves name with fn; the function result is sent back to ReplyTo.
func (m *Memory) Register(name string, fn Function, instances int) error {
	return m.register(name, fn, instances, false)
}

// RegisterInterceptor serves name with fn without automatic replies.
func (m *Memory) RegisterInterceptor(name string, fn Function, instances int) error {
	return m.register(name, fn, instances, true)
}

func (m *Memory) register(name string, fn Function, instances int, interceptor bool) error {
	if name == "" || strings.HasPrefix(name, inboxPrefix) {
		return fmt.Errorf("invalid route name '%s'", name)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.routes[name]; ok {
		return fmt.Errorf("route %s already registered", name)
	}
	r := &route{name: name, fn: fn, interceptor: interceptor}
	r.worker = util.NewWorker(name, m.wg, func(job util.Job) error {
		return m.deliver(r, job.(*Event))
	}, m.capacity, instances)
	r.worker.Start()
	m.routes[name] = r
	logger.Info("route registered", zap.String("route", name), zap.Int("instances", instances))
	return nil
}

func (m *Memory) Release(name string) {
	m.mu.Lock()
	r, ok := m.routes[name]
	delete(m.routes, name)
	m.mu.Unlock()
	if ok {
		r.worker.Stop()
	}
}

func (m *Memory) Exists(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.routes[localRoute(name)]
	return ok
}

func (m *Memory) Send(ctx context.Context, evt *Event) error {
	if evt == nil || evt.To == "" {
		return errors.New("missing destination route")
	}
	to := localRoute(evt.To)
	m.mu.RLock()
	inbox, isInbox := m.inboxes[to]
	r, isRoute := m.routes[to]
	m.mu.RUnlock()
	e := copyEvent(evt)
	switch {
	case isInbox:
		select {
		case inbox <- e:
		default:
			logger.Warn("reply dropped - inbox already answered", zap.String("inbox", to), zap.String("cid", e.CorrelationId))
		}
		return nil
	case isRoute:
		r.worker.Submit(e)
		return nil
	}
	return RouteNotFoundError{Route: evt.To}
}

func (m *Memory) SendLater(evt *Event, at time.Time) (string, error) {
	if evt == nil || evt.To == "" {
		return "", errors.New("missing destination route")
	}
	handle := uuid.NewString()
	e := copyEvent(evt)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ctx.Err() != nil {
		return "", errors.New("transport stopped")
	}
	m.timers[handle] = m.wheel.AfterFunc(time.Until(at), func() {
		m.mu.Lock()
		delete(m.timers, handle)
		m.mu.Unlock()
		if err := m.Send(m.ctx, e); err != nil {
			logger.Error("unable to deliver deferred event", zap.String("route", e.To), zap.Error(err))
		}
	})
	return handle, nil
}

func (m *Memory) Cancel(handle string) {
	m.mu.Lock()
	timer, ok := m.timers[handle]
	delete(m.timers, handle)
	m.mu.Unlock()
	if ok {
		timer.Stop()
	}
}

func (m *Memory) Request(ctx context.Context, evt *Event, timeout time.Duration) (*Event, error) {
	inbox := inboxPrefix + uuid.NewString()
	ch := make(chan *Event, 1)
	m.mu.Lock()
	m.inboxes[inbox] = ch
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		delete(m.inboxes, inbox)
		m.mu.Unlock()
	}()

	req := *evt
	req.ReplyTo = inbox
	if req.CorrelationId == "" {
		req.CorrelationId = uuid.NewString()
	}
	if err := m.Send(ctx, &req); err != nil {
		return nil, err
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case reply := <-ch:
		return reply, nil
	case <-timer.C:
		return nil, TimeoutError{Route: evt.To, Timeout: timeout.Milliseconds()}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Stop cancels deferred events and stops every route.
func (m *Memory) Stop() {
	m.cancel()
	m.mu.Lock()
	for handle, timer := range m.timers {
		timer.Stop()
		delete(m.timers, handle)
	}
	m.stopOnce.Do(m.wheel.Stop)
	routes := make([]*route, 0, len(m.routes))
	for _, r := range m.routes {
		routes = append(routes, r)
	}
	m.routes = make(map[string]*route)
	m.mu.Unlock()
	for _, r := range routes {
		r.worker.Stop()
	}
	m.wg.Wait()
}

func (m *Memory) deliver(r *route, evt *Event) error {
	result, fnErr := m.invoke(r, evt)
	if r.interceptor || evt.ReplyTo == "" {
		if fnErr != nil {
			logger.Error("service failed", zap.String("route", r.name), zap.String("cid", evt.CorrelationId), zap.Error(fnErr))
		}
		return nil
	}
	reply := NewEvent(evt.ReplyTo)
	reply.From = r.name
	reply.CorrelationId = evt.CorrelationId
	if fnErr != nil {
		reply.Status = 500
		var appErr AppError
		if errors.As(fnErr, &appErr) && appErr.Status > 0 {
			reply.Status = appErr.Status
		}
		reply.Body = fnErr.Error()
		reply.Err = fnErr
	} else if out, ok := result.(*Event); ok {
		if out.Status > 0 {
			reply.Status = out.Status
		}
		for k, v := range out.Headers {
			reply.Headers[k] = v
		}
		reply.Body = out.Body
		reply.Err = out.Err
	} else {
		reply.Body = result
	}
	return m.Send(m.ctx, reply)
}

func (m *Memory) invoke(r *route, evt *Event) (result any, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%s panic: %v", r.name, p)
		}
	}()
	return r.fn(m.ctx, evt)
}

// localRoute drops an "@origin" suffix.
func localRoute(name string) string {
	if at := strings.IndexByte(name, '@'); at > 0 {
		return name[:at]
	}
	return name
}

func copyEvent(evt *Event) *Event {
	e := *evt
	if e.Id == "" {
		e.Id = uuid.NewString()
	}
	e.Headers = make(map[string]string, len(evt.Headers))
	for k, v := range evt.Headers {
		e.Headers[k] = v
	}
	if evt.Body != nil {
		body, err := copystructure.Copy(evt.Body)
		if err != nil {
			logger.Warn("unable to copy event body", zap.String("route", evt.To), zap.Error(err))
		} else {
			e.Body = body
		}
	}
	return &e
}
