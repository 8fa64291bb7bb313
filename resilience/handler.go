package resilience

import (
	"context"
	"time"

	"github.com/mohitkumar/eventflow/logger"
	"github.com/mohitkumar/eventflow/transport"
	"go.uber.org/zap"
)

// Handler serves the resilience route. The throttle wait happens on the
// route's own workers.
type Handler struct {
	now func() time.Time
}

func NewHandler() *Handler {
	return &Handler{now: time.Now}
}

func (h *Handler) HandleEvent(ctx context.Context, evt *transport.Event) (any, error) {
	input, ok := evt.Body.(map[string]any)
	if !ok {
		input = make(map[string]any)
	}
	result, hold := Evaluate(input, h.now())
	if hold > 0 {
		timer := time.NewTimer(hold)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	logger.Debug("resilience decision", zap.String("cid", evt.CorrelationId), zap.Any("decision", result[DECISION]))
	return result, nil
}
