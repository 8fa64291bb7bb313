package statemachine

import (
	"context"
	"fmt"
)

const (
	HeaderType = "type"
	HeaderKey  = "key"

	TypePut    = "put"
	TypeRemove = "remove"
)

// Store keeps state outside of a flow instance so that it outlives it.
type Store interface {
	Put(ctx context.Context, key string, value any) error
	Get(ctx context.Context, key string) (any, bool, error)
	Remove(ctx context.Context, key string) error
}

type StorageError struct {
	Message string
}

func (e StorageError) Error() string {
	return fmt.Sprintf("state machine storage error %s", e.Message)
}
