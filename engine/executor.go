package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mohitkumar/eventflow/analytics"
	"github.com/mohitkumar/eventflow/flow"
	"github.com/mohitkumar/eventflow/logger"
	"github.com/mohitkumar/eventflow/mapping"
	"github.com/mohitkumar/eventflow/metrics"
	"github.com/mohitkumar/eventflow/model"
	"github.com/mohitkumar/eventflow/statemachine"
	"github.com/mohitkumar/eventflow/transport"
	"github.com/mohitkumar/eventflow/util"
	"go.uber.org/zap"
)

const (
	HeaderFlowId = "flow_id"
	HeaderParent = "parent"
)

var (
	decisionKey  = mapping.MustParsePath("decision")
	outputStatus = mapping.MustParsePath("output.status")
	outputHeader = mapping.MustParsePath("output.header")
	outputBody   = mapping.MustParsePath("output.body")
)

// flowError ends a flow with the given status.
type flowError struct {
	status  int
	message string
}

func (e *flowError) Error() string {
	return e.message
}

func abort(status int, format string, args ...any) error {
	return &flowError{status: status, message: fmt.Sprintf(format, args...)}
}

type FlowNotFoundError struct {
	Id string
}

func (e FlowNotFoundError) Error() string {
	return fmt.Sprintf("Flow %s not found", e.Id)
}

// TaskExecutor interprets flow instances. Every task reply comes back to
// HandleEvent, which advances the instance the reply belongs to.
type TaskExecutor struct {
	tp        transport.Transport
	flows     *flow.Registry
	mapper    *mapping.Mapper
	collector analytics.FlowDataCollector
	// refs maps the correlation id of an outstanding call to its instance.
	refs sync.Map
}

func NewTaskExecutor(tp transport.Transport, flows *flow.Registry, mapper *mapping.Mapper, collector analytics.FlowDataCollector) *TaskExecutor {
	if collector == nil {
		collector = analytics.NoopDataCollector{}
	}
	if mapper == nil {
		mapper = mapping.NewMapper(nil, nil, nil)
	}
	return &TaskExecutor{
		tp:        tp,
		flows:     flows,
		mapper:    mapper,
		collector: collector,
	}
}

// Launch creates an instance of flow flowId and triggers its first task. The
// final response goes to replyTo with correlation id cid.
func (e *TaskExecutor) Launch(ctx context.Context, flowId string, cid string, replyTo string, input map[string]any, parentId string) (*flow.Instance, error) {
	f, ok := e.flows.GetFlow(flowId)
	if !ok {
		return nil, FlowNotFoundError{Id: flowId}
	}
	var parent *flow.Instance
	if parentId != "" {
		if parent, ok = e.flows.GetInstance(parentId); !ok {
			return nil, fmt.Errorf("parent instance %s not found", parentId)
		}
	}
	if cid == "" {
		cid = uuid.NewString()
	}
	inst, err := flow.NewInstance(f, cid, replyTo, parent, e.tp)
	if err != nil {
		return nil, fmt.Errorf("unable to schedule flow timeout: %w", err)
	}
	inst.SetInput(input)
	e.flows.AddInstance(inst)

	trigger := transport.NewEvent(model.TaskExecutorRoute)
	trigger.CorrelationId = inst.Id
	trigger.SetHeader(flow.HeaderFirstTask, f.FirstTask)
	if err := e.tp.Send(ctx, trigger); err != nil {
		inst.Close()
		e.flows.CloseInstance(inst.Id)
		return nil, err
	}
	metrics.FlowsStarted.WithLabelValues(f.Id).Inc()
	logger.Info("flow started", zap.String("flow", f.Id), zap.String("instance", inst.Id), zap.String("parent", parentId))
	return inst, nil
}

// HandleEvent is the single entry point of the executor route.
func (e *TaskExecutor) HandleEvent(ctx context.Context, evt *transport.Event) (any, error) {
	cid, seq := splitCid(evt.CorrelationId)
	if cid == "" {
		logger.Error("event without correlation id dropped", zap.String("from", evt.From))
		return nil, nil
	}
	refId := cid
	if v, ok := e.refs.LoadAndDelete(cid); ok {
		refId = v.(string)
	}
	inst, ok := e.flows.GetInstance(refId)
	if !ok {
		logger.Warn("flow instance is invalid or expired", zap.String("instance", refId), zap.String("cid", evt.CorrelationId))
		return nil, nil
	}
	inst.Lock()
	defer inst.Unlock()
	if inst.Ended() {
		return nil, nil
	}
	f := inst.Flow()
	if cid == inst.Id {
		if _, ok := evt.Header(flow.HeaderTimeout); ok {
			logger.Warn("flow expired", zap.String("flow", f.Id), zap.String("instance", inst.Id))
			e.abortFlow(ctx, inst, 408, fmt.Sprintf("Flow timeout for %d ms", f.TTL.Milliseconds()))
			return nil, nil
		}
		if first, ok := evt.Header(flow.HeaderFirstTask); ok {
			e.finish(ctx, inst, e.executeTask(ctx, inst, first, -1, nil))
			return nil, nil
		}
		logger.Warn("unexpected event for flow instance", zap.String("flow", f.Id), zap.String("instance", inst.Id))
		return nil, nil
	}
	name, ok := inst.TakePending(cid)
	if !ok {
		logger.Warn("callback with unknown correlation id dropped", zap.String("flow", f.Id),
			zap.String("instance", inst.Id), zap.String("cid", evt.CorrelationId))
		return nil, nil
	}
	task, ok := f.Task(name)
	if !ok {
		e.abortFlow(ctx, inst, 500, fmt.Sprintf("Task %s not defined", name))
		return nil, nil
	}
	if evt.IsError() {
		e.finish(ctx, inst, e.handleError(ctx, inst, task, evt, seq))
	} else {
		e.finish(ctx, inst, e.handleCallback(ctx, inst, task, evt, seq))
	}
	return nil, nil
}

// finish aborts the instance when processing failed.
func (e *TaskExecutor) finish(ctx context.Context, inst *flow.Instance, err error) {
	if err == nil {
		return
	}
	status := 500
	var fe *flowError
	if errors.As(err, &fe) {
		status = fe.status
	}
	logger.Error("flow aborted", zap.String("flow", inst.Flow().Id), zap.String("instance", inst.Id),
		zap.Int("status", status), zap.Error(err))
	e.abortFlow(ctx, inst, status, err.Error())
}

func (e *TaskExecutor) handleError(ctx context.Context, inst *flow.Instance, task *model.Task, evt *transport.Event, seq int) error {
	if seq > 0 {
		if task.Exception != "" {
			inst.RemovePipe(seq)
		} else {
			inst.ClearPipes()
		}
	}
	handler := task.Exception
	if handler == "" {
		handler = inst.Flow().Exception
	}
	if handler != "" && handler != task.Name {
		message := evt.Body
		if message == nil {
			message = evt.ErrorMessage()
		}
		errData := map[string]any{
			"code":    evt.Status,
			"message": message,
			"task":    task.Name,
		}
		if evt.Err != nil {
			errData["stack"] = fmt.Sprintf("%+v", evt.Err)
		}
		return e.executeTask(ctx, inst, handler, -1, errData)
	}
	e.abortFlow(ctx, inst, evt.Status, evt.ErrorMessage())
	return nil
}

func (e *TaskExecutor) handleCallback(ctx context.Context, inst *flow.Instance, task *model.Task, evt *transport.Event, seq int) error {
	view := mapping.NewView(map[string]any{
		mapping.NamespaceInput:  inst.Input(),
		mapping.NamespaceModel:  inst.Model(),
		mapping.NamespaceStatus: evt.Status,
		mapping.NamespaceHeader: headerMap(evt.Headers),
		mapping.NamespaceResult: evt.Body,
	})
	for _, rule := range task.Output {
		e.mapOutput(ctx, inst, rule, view)
	}
	if seq > 0 {
		if p, ok := inst.Pipe(seq); ok {
			switch pipe := p.(type) {
			case *flow.JoinInfo:
				if pipe.Arrive() {
					inst.RemovePipe(seq)
					return e.executeTask(ctx, inst, pipe.JoinTask, -1, nil)
				}
				return nil
			case *flow.PipelineInfo:
				return e.nextPipelineStep(ctx, inst, pipe, view, seq)
			}
		}
	}
	switch task.Execution {
	case model.EXECUTION_RESPONSE:
		e.sendResponse(ctx, inst, task, view)
		return e.sequential(ctx, inst, task)
	case model.EXECUTION_END:
		e.sendResponse(ctx, inst, task, view)
		e.endFlow(inst, nil)
		return nil
	case model.EXECUTION_DECISION:
		return e.decision(ctx, inst, task, view)
	case model.EXECUTION_SEQUENTIAL, model.EXECUTION_JOIN:
		return e.sequential(ctx, inst, task)
	case model.EXECUTION_PARALLEL:
		for _, next := range task.NextSteps {
			if err := e.executeTask(ctx, inst, next, -1, nil); err != nil {
				return err
			}
		}
	case model.EXECUTION_FORK:
		if len(task.NextSteps) == 0 || task.JoinTask == "" {
			return nil
		}
		forkSeq := inst.NextPipeSeq()
		inst.PutPipe(forkSeq, &flow.JoinInfo{Forks: len(task.NextSteps), JoinTask: task.JoinTask})
		for _, next := range task.NextSteps {
			if err := e.executeTask(ctx, inst, next, forkSeq, nil); err != nil {
				return err
			}
		}
	case model.EXECUTION_PIPELINE:
		return e.startPipeline(ctx, inst, task, view)
	}
	return nil
}

func (e *TaskExecutor) sequential(ctx context.Context, inst *flow.Instance, task *model.Task) error {
	if len(task.NextSteps) == 0 {
		return nil
	}
	return e.executeTask(ctx, inst, task.NextSteps[0], -1, nil)
}

func (e *TaskExecutor) decision(ctx context.Context, inst *flow.Instance, task *model.Task, view *mapping.View) error {
	value, _ := view.Get(decisionKey)
	n := len(task.NextSteps) + 1
	switch v := value.(type) {
	case bool:
		n = 2
		if v {
			n = 1
		}
	case nil:
	default:
		if util.IsNumeric(v) {
			n = util.ToInt(v)
			if n < 1 {
				n = 1
			}
		}
	}
	if n > len(task.NextSteps) {
		if value == nil {
			value = "null"
		}
		return abort(500, "Task %s returned invalid decision (%v)", task.Name, value)
	}
	return e.executeTask(ctx, inst, task.NextSteps[n-1], -1, nil)
}

func (e *TaskExecutor) startPipeline(ctx context.Context, inst *flow.Instance, task *model.Task, view *mapping.View) error {
	if len(task.PipelineSteps) == 0 {
		return nil
	}
	valid := true
	if loop := task.Loop; loop != nil {
		switch loop.Type {
		case model.LOOP_WHILE:
			v, _ := view.Get(loop.WhileKey)
			valid = v == true
		case model.LOOP_FOR:
			if loop.Init != nil {
				view.Set(loop.Init.Key, loop.Init.Value)
			}
			valid = forCondition(loop, view)
		}
	}
	if !valid {
		return e.executeTask(ctx, inst, task.ExitTask(), -1, nil)
	}
	seq := inst.NextPipeSeq()
	p := flow.NewPipelineInfo(task)
	inst.PutPipe(seq, p)
	logger.Debug("pipeline begin", zap.String("flow", inst.Flow().Id), zap.String("instance", inst.Id),
		zap.Int("seq", seq), zap.String("step", p.StepName(0)))
	return e.executeTask(ctx, inst, p.StepName(0), seq, nil)
}

func (e *TaskExecutor) nextPipelineStep(ctx context.Context, inst *flow.Instance, p *flow.PipelineInfo, view *mapping.View, seq int) error {
	if p.IsCompleted() {
		return e.pipelineCompletion(ctx, inst, p, view, seq)
	}
	n := p.NextStep()
	if p.IsLastStep(n) {
		p.SetCompleted()
	}
	if cond := p.Task.Condition; cond != nil {
		if v, _ := view.Get(cond.Key); v == true {
			switch cond.Action {
			case model.CONDITION_BREAK:
				inst.RemovePipe(seq)
				return e.executeTask(ctx, inst, p.ExitTask(), -1, nil)
			case model.CONDITION_CONTINUE:
				p.SetCompleted()
				return e.pipelineCompletion(ctx, inst, p, view, seq)
			}
		}
	}
	if !p.HasStep(n) {
		return e.pipelineCompletion(ctx, inst, p, view, seq)
	}
	return e.executeTask(ctx, inst, p.StepName(n), seq, nil)
}

// pipelineCompletion runs the loop test and either restarts the pipeline or
// leaves it through the exit task.
func (e *TaskExecutor) pipelineCompletion(ctx context.Context, inst *flow.Instance, p *flow.PipelineInfo, view *mapping.View, seq int) error {
	iterate := false
	if loop := p.Task.Loop; loop != nil {
		switch loop.Type {
		case model.LOOP_WHILE:
			v, _ := view.Get(loop.WhileKey)
			iterate = v == true
		case model.LOOP_FOR:
			if s := loop.Sequencer; s != nil {
				v, _ := view.Get(s.Key)
				n := util.ToInt(v)
				if s.Increment {
					n++
				} else {
					n--
				}
				view.Set(s.Key, n)
			}
			iterate = forCondition(loop, view)
		}
	}
	if iterate {
		p.ResetPointer()
		return e.executeTask(ctx, inst, p.StepName(0), seq, nil)
	}
	inst.RemovePipe(seq)
	return e.executeTask(ctx, inst, p.ExitTask(), -1, nil)
}

func forCondition(loop *model.Loop, view *mapping.View) bool {
	if loop.Comparator == nil {
		return false
	}
	v, _ := view.Get(loop.Comparator.Key)
	return loop.Comparator.Holds(util.ToInt(v))
}

// executeTask maps the input of task name and dispatches it. A positive seq
// ties the call to a fork or pipeline entry.
func (e *TaskExecutor) executeTask(ctx context.Context, inst *flow.Instance, name string, seq int, errData map[string]any) error {
	if inst.Ended() {
		return nil
	}
	f := inst.Flow()
	task, ok := f.Task(name)
	if !ok {
		return abort(500, "Task %s not defined", name)
	}
	dataset := inst.Dataset()
	if errData != nil {
		dataset[mapping.NamespaceError] = errData
	}
	source := mapping.NewView(dataset)
	target := mapping.NewView(nil)
	headers := make(map[string]string)
	for _, rule := range task.Input {
		e.mapInput(ctx, inst, rule, source, target, headers)
	}

	delay := task.Delay
	if delay <= 0 && !task.DelayVar.IsZero() {
		if v, ok := source.Get(task.DelayVar); ok {
			d := time.Duration(util.ToLong(v)) * time.Millisecond
			if d > 0 && d < f.TTL {
				delay = d
			} else {
				logger.Warn("unable to schedule future task - invalid delay", zap.String("flow", f.Id),
					zap.String("task", task.Name), zap.String("delay", task.DelayVar.String()), zap.Any("value", v))
			}
		} else {
			logger.Warn("unable to schedule future task - delay variable not found", zap.String("flow", f.Id),
				zap.String("task", task.Name), zap.String("delay", task.DelayVar.String()))
		}
	}

	ref := flow.NewId()
	e.refs.Store(ref, inst.Id)
	inst.AddPending(ref, task.Name)
	cid := ref
	if seq > 0 {
		cid = fmt.Sprintf("%s#%d", ref, seq)
	}
	metrics.TasksDispatched.WithLabelValues(f.Id).Inc()

	if task.IsSubFlow() {
		sub, ok := e.flows.GetFlow(task.SubFlowId())
		if !ok {
			return abort(500, "%s not defined", task.Route)
		}
		body := target.Map()
		if len(headers) > 0 {
			body[mapping.NamespaceHeader] = headerMap(headers)
		}
		forward := transport.NewEvent(model.FlowManagerRoute)
		forward.From = model.TaskExecutorRoute
		forward.CorrelationId = uuid.NewString()
		forward.SetHeader(HeaderFlowId, sub.Id).SetHeader(HeaderParent, inst.Id)
		forward.Body = body
		go e.forward(ctx, forward, sub.TTL, cid)
		return nil
	}

	evt := transport.NewEvent(task.Route)
	evt.From = model.TaskExecutorRoute
	evt.ReplyTo = model.TaskExecutorRoute
	evt.CorrelationId = cid
	evt.Body = target.Map()
	for k, v := range headers {
		evt.SetHeader(k, v)
	}
	var err error
	if delay > 0 {
		_, err = e.tp.SendLater(evt, time.Now().Add(delay))
	} else {
		err = e.tp.Send(ctx, evt)
	}
	if err != nil {
		return abort(500, "Unable to execute task %s - %v", task.Name, err)
	}
	return nil
}

// forward runs a sub-flow and turns its response into a callback carrying
// the correlation id of the calling task.
func (e *TaskExecutor) forward(ctx context.Context, req *transport.Event, ttl time.Duration, cid string) {
	callback := transport.NewEvent(model.TaskExecutorRoute)
	callback.From = model.FlowManagerRoute
	callback.CorrelationId = cid
	reply, err := e.tp.Request(ctx, req, ttl)
	if err != nil {
		callback.Status = 500
		var timeout transport.TimeoutError
		if errors.As(err, &timeout) {
			callback.Status = 408
		}
		callback.Body = err.Error()
		callback.Err = err
	} else {
		callback.Status = reply.Status
		for k, v := range reply.Headers {
			callback.SetHeader(k, v)
		}
		callback.Body = reply.Body
		callback.Err = reply.Err
	}
	if err := e.tp.Send(ctx, callback); err != nil {
		logger.Error("unable to deliver sub-flow response", zap.String("cid", cid), zap.Error(err))
	}
}

func (e *TaskExecutor) mapInput(ctx context.Context, inst *flow.Instance, rule mapping.Rule, source *mapping.View, target *mapping.View, headers map[string]string) {
	value, ok := e.mapper.Value(rule.Source, source)
	t := rule.Target
	switch t.Kind {
	case mapping.TargetExt:
		e.callExternalStateMachine(ctx, inst, t.Key, value)
	case mapping.TargetFile:
		if ok {
			e.mapper.WriteFile(t, value)
		}
	case mapping.TargetAll:
		if !ok {
			return
		}
		if m, isMap := value.(map[string]any); isMap {
			target.Reload(m)
		} else {
			logger.Error("invalid input mapping - expect map", zap.String("rule", rule.Text), zap.String("actual", fmt.Sprintf("%T", value)))
		}
	case mapping.TargetHeaders:
		if !ok {
			return
		}
		if m, isMap := value.(map[string]any); isMap {
			for k, v := range m {
				headers[k] = util.ToText(v)
			}
		} else {
			logger.Error("invalid input mapping - expect map", zap.String("rule", rule.Text), zap.String("actual", fmt.Sprintf("%T", value)))
		}
	case mapping.TargetHeader:
		if ok {
			headers[t.Key] = util.ToText(value)
		}
	case mapping.TargetPath:
		if t.IsModel() {
			if ok {
				e.mapper.Set(t, value, source)
			} else {
				e.mapper.Remove(t, source)
			}
			return
		}
		if ok {
			e.mapper.Set(t, value, target)
		}
	}
}

func (e *TaskExecutor) mapOutput(ctx context.Context, inst *flow.Instance, rule mapping.Rule, view *mapping.View) {
	value, ok := e.mapper.Value(rule.Source, view)
	t := rule.Target
	if !ok {
		switch {
		case t.Kind == mapping.TargetExt:
			e.callExternalStateMachine(ctx, inst, t.Key, nil)
		case t.Kind == mapping.TargetPath && rule.Source.IsNamespace():
			e.mapper.Remove(t, view)
		}
		return
	}
	switch t.Kind {
	case mapping.TargetExt:
		e.callExternalStateMachine(ctx, inst, t.Key, value)
	case mapping.TargetFile:
		e.mapper.WriteFile(t, value)
	case mapping.TargetPath:
		if t.IsOutputStatus() {
			if code := util.ToInt(value); code < 100 || code > 599 {
				logger.Error("invalid output mapping - expect valid HTTP status code", zap.String("flow", inst.Flow().Id),
					zap.String("rule", rule.Text), zap.Any("actual", value))
				return
			}
		}
		if t.IsOutputHeader() {
			if _, isMap := value.(map[string]any); !isMap {
				logger.Error("invalid output mapping - expect map", zap.String("flow", inst.Flow().Id),
					zap.String("rule", rule.Text), zap.String("actual", fmt.Sprintf("%T", value)))
				return
			}
		}
		e.mapper.Set(t, value, view)
	}
}

func (e *TaskExecutor) callExternalStateMachine(ctx context.Context, inst *flow.Instance, key string, value any) {
	route := inst.Flow().ExternalStateMachine
	if route == "" {
		logger.Warn("external state machine not configured", zap.String("flow", inst.Flow().Id), zap.String("key", key))
		return
	}
	evt := transport.NewEvent(route)
	evt.From = model.TaskExecutorRoute
	evt.SetHeader(statemachine.HeaderKey, key)
	if value == nil {
		evt.SetHeader(statemachine.HeaderType, statemachine.TypeRemove)
	} else {
		evt.SetHeader(statemachine.HeaderType, statemachine.TypePut)
		evt.Body = value
	}
	if err := e.tp.Send(ctx, evt); err != nil {
		logger.Error("unable to update external state machine", zap.String("flow", inst.Flow().Id),
			zap.String("route", route), zap.String("key", key), zap.Error(err))
	}
}

func (e *TaskExecutor) sendResponse(ctx context.Context, inst *flow.Instance, task *model.Task, view *mapping.View) {
	if !inst.IsNotResponded() {
		return
	}
	inst.SetResponded()
	if inst.ReplyTo == "" {
		return
	}
	result := transport.NewEvent(inst.ReplyTo)
	result.From = model.TaskExecutorRoute
	result.CorrelationId = inst.Cid
	if status, ok := view.Get(outputStatus); ok {
		if code := util.ToInt(status); code > 0 {
			result.Status = code
		} else {
			logger.Warn("unable to set response status", zap.String("flow", inst.Flow().Id),
				zap.String("task", task.Name), zap.Any("status", status))
		}
	}
	if h, ok := view.Get(outputHeader); ok {
		if m, isMap := h.(map[string]any); isMap {
			for k, v := range m {
				result.SetHeader(k, util.ToText(v))
			}
		}
	}
	result.Body, _ = view.Get(outputBody)
	if err := e.tp.Send(ctx, result); err != nil {
		logger.Error("unable to send flow response", zap.String("flow", inst.Flow().Id),
			zap.String("instance", inst.Id), zap.String("replyTo", inst.ReplyTo), zap.Error(err))
	}
}

func (e *TaskExecutor) abortFlow(ctx context.Context, inst *flow.Instance, status int, message string) {
	if inst.IsNotResponded() {
		inst.SetResponded()
		if inst.ReplyTo != "" {
			e.replyError(ctx, inst.ReplyTo, inst.Cid, status, message)
		}
	}
	e.endFlow(inst, &flowError{status: status, message: message})
}

func (e *TaskExecutor) replyError(ctx context.Context, replyTo string, cid string, status int, message string) {
	evt := transport.NewEvent(replyTo)
	evt.From = model.TaskExecutorRoute
	evt.CorrelationId = cid
	evt.Status = status
	evt.Body = map[string]any{"status": status, "message": message, "type": "error"}
	if err := e.tp.Send(ctx, evt); err != nil {
		logger.Error("unable to send error response", zap.String("replyTo", replyTo), zap.String("cid", cid), zap.Error(err))
	}
}

// endFlow releases the instance. Only the first call for an instance acts;
// aborted is nil for a normal completion.
func (e *TaskExecutor) endFlow(inst *flow.Instance, aborted *flowError) {
	if !inst.MarkEnded() {
		return
	}
	inst.Close()
	e.flows.CloseInstance(inst.Id)
	for _, cid := range inst.ReleasePending() {
		e.refs.Delete(cid)
	}
	inst.ClearPipes()

	f := inst.Flow()
	tasks := inst.TaskCount()
	elapsed := time.Since(inst.StartTime())
	outcome := metrics.OutcomeCompleted
	if aborted != nil {
		outcome = metrics.OutcomeAborted
	}
	logger.Info("flow finished", zap.String("flow", f.Id), zap.String("instance", inst.Id),
		zap.String("outcome", outcome), zap.Int("tasks", tasks), zap.Duration("elapsed", elapsed))
	metrics.FlowsFinished.WithLabelValues(f.Id, outcome).Inc()
	metrics.FlowDuration.WithLabelValues(f.Id).Observe(elapsed.Seconds())
	if aborted != nil {
		e.collector.RecordFlowAborted(f.Id, inst.Id, aborted.status, aborted.message, tasks, elapsed)
	} else {
		e.collector.RecordFlowCompleted(f.Id, inst.Id, tasks, elapsed)
	}
}

// splitCid separates "uuid#seq". seq is -1 when absent.
func splitCid(cid string) (string, int) {
	hash := strings.IndexByte(cid, '#')
	if hash < 0 {
		return cid, -1
	}
	return cid[:hash], util.ToInt(cid[hash+1:])
}

func headerMap(headers map[string]string) map[string]any {
	m := make(map[string]any, len(headers))
	for k, v := range headers {
		m[k] = v
	}
	return m
}
