package transport

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemoryTransport(t *testing.T) {
	for scenario, fn := range map[string]func(t *testing.T, m *Memory){
		"request gets function result":      testRequestReply,
		"app error sets reply status":       testRequestAppError,
		"event result sets status headers":  testRequestEventResult,
		"request times out":                 testRequestTimeout,
		"unknown route":                     testUnknownRoute,
		"send later delivers":               testSendLater,
		"cancelled send later is dropped":   testSendLaterCancel,
		"send later in the past delivers":   testSendLaterPast,
		"send later keeps due order":        testSendLaterOrder,
		"interceptor does not reply":        testInterceptor,
		"body is copied on send":            testBodyCopied,
		"panic becomes error reply":         testPanicReply,
		"origin suffix addresses the route": testOriginSuffix,
	} {
		t.Run(scenario, func(t *testing.T) {
			m := NewMemory(16)
			defer m.Stop()
			fn(t, m)
		})
	}
}

func echo(ctx context.Context, evt *Event) (any, error) {
	return evt.Body, nil
}

func testRequestReply(t *testing.T, m *Memory) {
	require.NoError(t, m.Register("echo", echo, 2))
	evt := NewEvent("echo")
	evt.Body = map[string]any{"hello": "world"}
	reply, err := m.Request(context.Background(), evt, time.Second)
	require.NoError(t, err)
	require.Equal(t, 200, reply.Status)
	require.Equal(t, "echo", reply.From)
	require.Equal(t, map[string]any{"hello": "world"}, reply.Body)
	require.NotEmpty(t, reply.CorrelationId)
}

func testRequestAppError(t *testing.T, m *Memory) {
	require.NoError(t, m.Register("fail", func(ctx context.Context, evt *Event) (any, error) {
		return nil, AppError{Status: 400, Message: "bad input"}
	}, 1))
	reply, err := m.Request(context.Background(), NewEvent("fail"), time.Second)
	require.NoError(t, err)
	require.Equal(t, 400, reply.Status)
	require.True(t, reply.IsError())
	require.Equal(t, "bad input", reply.ErrorMessage())
}

func testRequestEventResult(t *testing.T, m *Memory) {
	require.NoError(t, m.Register("custom", func(ctx context.Context, evt *Event) (any, error) {
		out := NewEvent("")
		out.Status = 201
		out.SetHeader("x-id", "7")
		out.Body = "created"
		return out, nil
	}, 1))
	reply, err := m.Request(context.Background(), NewEvent("custom"), time.Second)
	require.NoError(t, err)
	require.Equal(t, 201, reply.Status)
	require.Equal(t, "7", reply.Headers["x-id"])
	require.Equal(t, "created", reply.Body)
}

func testRequestTimeout(t *testing.T, m *Memory) {
	require.NoError(t, m.Register("slow", func(ctx context.Context, evt *Event) (any, error) {
		time.Sleep(200 * time.Millisecond)
		return "late", nil
	}, 1))
	_, err := m.Request(context.Background(), NewEvent("slow"), 20*time.Millisecond)
	var timeout TimeoutError
	require.True(t, errors.As(err, &timeout))
	require.Equal(t, int64(20), timeout.Timeout)
}

func testUnknownRoute(t *testing.T, m *Memory) {
	err := m.Send(context.Background(), NewEvent("nowhere"))
	var notFound RouteNotFoundError
	require.True(t, errors.As(err, &notFound))
	require.Equal(t, "nowhere", notFound.Route)
	require.Error(t, m.Send(context.Background(), &Event{}))
	require.Error(t, m.Register("", echo, 1))
	require.Error(t, m.Register("r.reserved", echo, 1))
	require.NoError(t, m.Register("echo", echo, 1))
	require.Error(t, m.Register("echo", echo, 1))
}

func collector(m *Memory, t *testing.T, name string) chan *Event {
	ch := make(chan *Event, 10)
	require.NoError(t, m.RegisterInterceptor(name, func(ctx context.Context, evt *Event) (any, error) {
		ch <- evt
		return nil, nil
	}, 1))
	return ch
}

func testSendLater(t *testing.T, m *Memory) {
	ch := collector(m, t, "sink")
	start := time.Now()
	_, err := m.SendLater(NewEvent("sink"), start.Add(50*time.Millisecond))
	require.NoError(t, err)
	select {
	case <-ch:
		// wheel slots are one tick wide
		require.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond-wheelTick)
	case <-time.After(time.Second):
		t.Fatal("deferred event not delivered")
	}
}

func testSendLaterCancel(t *testing.T, m *Memory) {
	ch := collector(m, t, "sink")
	handle, err := m.SendLater(NewEvent("sink"), time.Now().Add(30*time.Millisecond))
	require.NoError(t, err)
	m.Cancel(handle)
	m.Cancel(handle)
	select {
	case <-ch:
		t.Fatal("cancelled event delivered")
	case <-time.After(100 * time.Millisecond):
	}
}

func testSendLaterPast(t *testing.T, m *Memory) {
	ch := collector(m, t, "sink")
	_, err := m.SendLater(NewEvent("sink"), time.Now().Add(-time.Second))
	require.NoError(t, err)
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("overdue event not delivered")
	}
}

func testSendLaterOrder(t *testing.T, m *Memory) {
	ch := collector(m, t, "sink")
	now := time.Now()
	for i, delay := range []time.Duration{60, 20, 40} {
		evt := NewEvent("sink")
		evt.Body = i
		_, err := m.SendLater(evt, now.Add(delay*time.Millisecond))
		require.NoError(t, err)
	}
	var order []any
	for len(order) < 3 {
		select {
		case evt := <-ch:
			order = append(order, evt.Body)
		case <-time.After(time.Second):
			t.Fatal("deferred events not delivered")
		}
	}
	require.Equal(t, []any{1, 2, 0}, order)
}

func TestMemoryStopDropsDeferred(t *testing.T) {
	m := NewMemory(4)
	ch := collector(m, t, "sink")
	_, err := m.SendLater(NewEvent("sink"), time.Now().Add(20*time.Millisecond))
	require.NoError(t, err)
	m.Stop()
	m.Stop()

	_, err = m.SendLater(NewEvent("sink"), time.Now())
	require.Error(t, err)
	select {
	case <-ch:
		t.Fatal("event delivered after stop")
	case <-time.After(60 * time.Millisecond):
	}
}

func testInterceptor(t *testing.T, m *Memory) {
	replies := collector(m, t, "replies")
	require.NoError(t, m.RegisterInterceptor("quiet", func(ctx context.Context, evt *Event) (any, error) {
		return "ignored", nil
	}, 1))
	evt := NewEvent("quiet")
	evt.ReplyTo = "replies"
	require.NoError(t, m.Send(context.Background(), evt))
	select {
	case <-replies:
		t.Fatal("interceptor replied")
	case <-time.After(50 * time.Millisecond):
	}
}

func testBodyCopied(t *testing.T, m *Memory) {
	ch := collector(m, t, "sink")
	body := map[string]any{"n": 1}
	evt := NewEvent("sink")
	evt.Body = body
	require.NoError(t, m.Send(context.Background(), evt))
	body["n"] = 2
	received := <-ch
	require.Equal(t, map[string]any{"n": 1}, received.Body)
}

func testPanicReply(t *testing.T, m *Memory) {
	require.NoError(t, m.Register("boom", func(ctx context.Context, evt *Event) (any, error) {
		panic("broken")
	}, 1))
	reply, err := m.Request(context.Background(), NewEvent("boom"), time.Second)
	require.NoError(t, err)
	require.Equal(t, 500, reply.Status)
	require.Contains(t, reply.ErrorMessage(), "broken")
}

func testOriginSuffix(t *testing.T, m *Memory) {
	require.NoError(t, m.Register("echo", echo, 1))
	require.True(t, m.Exists("echo@node-1"))
	evt := NewEvent("echo@node-1")
	evt.Body = "hi"
	reply, err := m.Request(context.Background(), evt, time.Second)
	require.NoError(t, err)
	require.Equal(t, "hi", reply.Body)
}
