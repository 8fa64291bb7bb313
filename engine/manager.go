package engine

import (
	"context"
	"errors"

	"github.com/mohitkumar/eventflow/logger"
	"github.com/mohitkumar/eventflow/transport"
	"go.uber.org/zap"
)

// FlowManager serves the flow manager route: an event naming a flow in its
// flow_id header starts an instance of that flow. The flow answers the
// event's ReplyTo when it finishes.
type FlowManager struct {
	executor *TaskExecutor
}

func NewFlowManager(executor *TaskExecutor) *FlowManager {
	return &FlowManager{executor: executor}
}

func (m *FlowManager) HandleEvent(ctx context.Context, evt *transport.Event) (any, error) {
	flowId, _ := evt.Header(HeaderFlowId)
	if flowId == "" {
		m.reject(ctx, evt, 400, "Missing flow_id")
		return nil, nil
	}
	var input map[string]any
	switch body := evt.Body.(type) {
	case nil:
		input = make(map[string]any)
	case map[string]any:
		input = body
	default:
		m.reject(ctx, evt, 400, "Flow input must be a map")
		return nil, nil
	}
	parent, _ := evt.Header(HeaderParent)
	if _, err := m.executor.Launch(ctx, flowId, evt.CorrelationId, evt.ReplyTo, input, parent); err != nil {
		status := 500
		var notFound FlowNotFoundError
		if errors.As(err, &notFound) {
			status = 404
		}
		logger.Error("unable to start flow", zap.String("flow", flowId), zap.String("cid", evt.CorrelationId), zap.Error(err))
		m.reject(ctx, evt, status, err.Error())
	}
	return nil, nil
}

func (m *FlowManager) reject(ctx context.Context, evt *transport.Event, status int, message string) {
	if evt.ReplyTo == "" {
		return
	}
	m.executor.replyError(ctx, evt.ReplyTo, evt.CorrelationId, status, message)
}
