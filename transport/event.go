package transport

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/mohitkumar/eventflow/util"
)

// Event is the envelope exchanged between routes.
type Event struct {
	Id            string
	To            string
	From          string
	ReplyTo       string
	CorrelationId string
	Status        int
	Headers       map[string]string
	Body          any
	Err           error
}

func NewEvent(to string) *Event {
	return &Event{
		Id:      uuid.NewString(),
		To:      to,
		Status:  200,
		Headers: make(map[string]string),
	}
}

func (e *Event) SetHeader(key string, value string) *Event {
	if e.Headers == nil {
		e.Headers = make(map[string]string)
	}
	e.Headers[key] = value
	return e
}

func (e *Event) Header(key string) (string, bool) {
	v, ok := e.Headers[key]
	return v, ok
}

func (e *Event) IsError() bool {
	return e.Status >= 400 || e.Err != nil
}

// ErrorMessage is the text of a failed event: the carried error if any,
// otherwise the body.
func (e *Event) ErrorMessage() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return util.ToText(e.Body)
}

// AppError lets a service choose the status of its error reply.
type AppError struct {
	Status  int
	Message string
}

func (e AppError) Error() string {
	return e.Message
}

type RouteNotFoundError struct {
	Route string
}

func (e RouteNotFoundError) Error() string {
	return fmt.Sprintf("route %s not found", e.Route)
}

type TimeoutError struct {
	Route   string
	Timeout int64
}

func (e TimeoutError) Error() string {
	return fmt.Sprintf("timeout for %d ms", e.Timeout)
}
