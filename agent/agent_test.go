package agent

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mohitkumar/eventflow/config"
	"github.com/mohitkumar/eventflow/engine"
	"github.com/mohitkumar/eventflow/model"
	"github.com/mohitkumar/eventflow/resilience"
	"github.com/mohitkumar/eventflow/transport"
	"github.com/stretchr/testify/require"
)

const stateFlow = `
flow: {id: remember, ttl: 2s}
first.task: save
tasks:
  - name: save
    process: v1.state
    input: ['input.value -> value', 'text(put) -> header.type', 'text(last) -> header.key']
    execution: sequential
    next: [answer]
  - name: answer
    process: v1.echo
    input: ['map(app.name) -> name']
    output: ['result -> output.body']
    execution: end
`

type staticConfig map[string]any

func (c staticConfig) Get(key string) any {
	return c[key]
}

func testConfig(t *testing.T) config.Config {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "remember.yml"), []byte(stateFlow), 0644))
	return config.Config{
		FlowsDir:            dir,
		ExecutorInstances:   2,
		ResilienceInstances: 2,
		StateMachine: config.StateMachineConfig{
			Type:  config.STATE_MACHINE_MEMORY,
			Route: "v1.state",
		},
	}
}

func TestAgent(t *testing.T) {
	a, err := New(testConfig(t), staticConfig{"app.name": "eventflow"})
	require.NoError(t, err)
	defer a.Shutdown()
	require.NoError(t, a.Start())

	require.Equal(t, []string{"remember"}, a.Flows().FlowIds())
	tp := a.Transport()
	require.True(t, tp.Exists(resilience.ServiceName))
	require.True(t, tp.Exists(model.TaskExecutorRoute))
	require.NoError(t, tp.Register("v1.echo", func(ctx context.Context, evt *transport.Event) (any, error) {
		return evt.Body, nil
	}, 1))

	req := transport.NewEvent(model.FlowManagerRoute).SetHeader(engine.HeaderFlowId, "remember")
	req.Body = map[string]any{"value": "x"}
	reply, err := tp.Request(context.Background(), req, 3*time.Second)
	require.NoError(t, err)
	require.Equal(t, 200, reply.Status)
	require.Equal(t, map[string]any{"name": "eventflow"}, reply.Body)

	require.NoError(t, a.Shutdown())
	require.NoError(t, a.Shutdown())
}

func TestAgentConfig(t *testing.T) {
	for scenario, mutate := range map[string]func(c *config.Config){
		"missing flows dir": func(c *config.Config) { c.FlowsDir = "" },
		"zero executors":    func(c *config.Config) { c.ExecutorInstances = 0 },
		"unknown store":     func(c *config.Config) { c.StateMachine.Type = "dynamo" },
		"redis without address": func(c *config.Config) {
			c.StateMachine.Type = config.STATE_MACHINE_REDIS
		},
		"flows dir not found": func(c *config.Config) { c.FlowsDir = filepath.Join(c.FlowsDir, "missing") },
	} {
		t.Run(scenario, func(t *testing.T) {
			conf := testConfig(t)
			mutate(&conf)
			_, err := New(conf, nil)
			require.Error(t, err)
		})
	}
}
