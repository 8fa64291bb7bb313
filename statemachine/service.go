package statemachine

import (
	"context"
	"fmt"

	"github.com/mohitkumar/eventflow/logger"
	"github.com/mohitkumar/eventflow/transport"
	"go.uber.org/zap"
)

// NewService exposes store as a route accepting put and remove events.
func NewService(store Store) transport.Function {
	return func(ctx context.Context, evt *transport.Event) (any, error) {
		key, _ := evt.Header(HeaderKey)
		if key == "" {
			return nil, transport.AppError{Status: 400, Message: "missing key"}
		}
		op, _ := evt.Header(HeaderType)
		switch op {
		case TypePut:
			if evt.Body == nil {
				return nil, store.Remove(ctx, key)
			}
			if err := store.Put(ctx, key, evt.Body); err != nil {
				return nil, err
			}
		case TypeRemove:
			if err := store.Remove(ctx, key); err != nil {
				return nil, err
			}
		default:
			return nil, transport.AppError{Status: 400, Message: fmt.Sprintf("type must be %s or %s", TypePut, TypeRemove)}
		}
		logger.Debug("state updated", zap.String("type", op), zap.String("key", key))
		return true, nil
	}
}
