package flow

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mohitkumar/eventflow/logger"
	"github.com/mohitkumar/eventflow/model"
	"github.com/mohitkumar/eventflow/transport"
	"go.uber.org/zap"
)

const (
	HeaderTimeout   = "timeout"
	HeaderFirstTask = "first_task"
)

// Scheduler delivers the timeout event of an instance.
type Scheduler interface {
	SendLater(evt *transport.Event, at time.Time) (string, error)
	Cancel(handle string)
}

// Instance is the state of one execution of a flow. Callers hold Lock while
// they read or change it.
type Instance struct {
	Id       string
	Cid      string
	ReplyTo  string
	ParentId string

	flow  *model.Flow
	input map[string]any
	model map[string]any
	start time.Time
	mu    *sync.Mutex

	pipeCounter int
	pipes       map[int]PipeInfo
	pending     map[string]string
	executions  int
	responded   bool
	ended       bool

	sched         Scheduler
	timeoutHandle string
	closeOnce     sync.Once
}

// NewInstance creates the instance and schedules its timeout. A sub-flow
// shares the lock of its parent because its model links to the parent model.
func NewInstance(f *model.Flow, cid string, replyTo string, parent *Instance, sched Scheduler) (*Instance, error) {
	id := NewId()
	inst := &Instance{
		Id:      id,
		Cid:     cid,
		ReplyTo: replyTo,
		flow:    f,
		input:   make(map[string]any),
		model:   make(map[string]any),
		start:   time.Now(),
		mu:      &sync.Mutex{},
		pipes:   make(map[int]PipeInfo),
		pending: make(map[string]string),
		sched:   sched,
	}
	inst.model["instance"] = id
	inst.model["cid"] = cid
	inst.model["flow"] = f.Id
	if parent != nil {
		inst.ParentId = parent.Id
		inst.model["parent"] = parent.model
		inst.mu = parent.mu
	}
	timeout := transport.NewEvent(model.TaskExecutorRoute)
	timeout.CorrelationId = id
	timeout.SetHeader(HeaderTimeout, "true")
	handle, err := sched.SendLater(timeout, inst.start.Add(f.TTL))
	if err != nil {
		return nil, err
	}
	inst.timeoutHandle = handle
	return inst, nil
}

func (i *Instance) Lock() {
	i.mu.Lock()
}

func (i *Instance) Unlock() {
	i.mu.Unlock()
}

func (i *Instance) Flow() *model.Flow {
	return i.flow
}

func (i *Instance) Input() map[string]any {
	return i.input
}

func (i *Instance) SetInput(input map[string]any) {
	if input == nil {
		input = make(map[string]any)
	}
	i.input = input
}

func (i *Instance) Model() map[string]any {
	return i.model
}

// Dataset is the namespace view of the instance used by input mapping.
func (i *Instance) Dataset() map[string]any {
	return map[string]any{"input": i.input, "model": i.model}
}

func (i *Instance) StartTime() time.Time {
	return i.start
}

func (i *Instance) NextPipeSeq() int {
	i.pipeCounter++
	return i.pipeCounter
}

func (i *Instance) PutPipe(seq int, p PipeInfo) {
	i.pipes[seq] = p
}

func (i *Instance) Pipe(seq int) (PipeInfo, bool) {
	p, ok := i.pipes[seq]
	return p, ok
}

func (i *Instance) RemovePipe(seq int) {
	delete(i.pipes, seq)
}

func (i *Instance) ClearPipes() {
	i.pipes = make(map[int]PipeInfo)
}

func (i *Instance) PipeCount() int {
	return len(i.pipes)
}

// AddPending records an outstanding call to task under correlation id cid.
func (i *Instance) AddPending(cid string, task string) {
	i.pending[cid] = task
	i.executions++
}

// TakePending removes the outstanding call cid and returns the task it was for.
func (i *Instance) TakePending(cid string) (string, bool) {
	task, ok := i.pending[cid]
	if ok {
		delete(i.pending, cid)
	}
	return task, ok
}

// ReleasePending drops every outstanding call and returns their ids.
func (i *Instance) ReleasePending() []string {
	ids := make([]string, 0, len(i.pending))
	for cid := range i.pending {
		ids = append(ids, cid)
	}
	i.pending = make(map[string]string)
	return ids
}

func (i *Instance) PendingCount() int {
	return len(i.pending)
}

// TaskCount is the number of task executions dispatched so far.
func (i *Instance) TaskCount() int {
	return i.executions
}

func (i *Instance) IsNotResponded() bool {
	return !i.responded
}

func (i *Instance) SetResponded() {
	i.responded = true
}

// MarkEnded returns true only for the first caller.
func (i *Instance) MarkEnded() bool {
	if i.ended {
		return false
	}
	i.ended = true
	return true
}

func (i *Instance) Ended() bool {
	return i.ended
}

// Close cancels the timeout. Only the first call has an effect.
func (i *Instance) Close() {
	i.closeOnce.Do(func() {
		if i.timeoutHandle != "" {
			i.sched.Cancel(i.timeoutHandle)
		}
		logger.Debug("flow instance closed", zap.String("flow", i.flow.Id), zap.String("instance", i.Id))
	})
}

// NewId is a date prefixed uuid without dashes.
func NewId() string {
	return time.Now().Format("20060102") + strings.ReplaceAll(uuid.NewString(), "-", "")
}
