package metadata

import (
	"testing"
	"time"

	"github.com/mohitkumar/eventflow/model"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

const greetingFlow = `
flow:
  id: greetings
  description: greeting demo
  ttl: 10s
  exception: flow.exception
first.task: greeting.demo
tasks:
  - name: greeting.demo
    process: v1.greeting
    input:
      - 'input.body.user -> user'
      - 'bad rule without arrow'
    output:
      - 'result -> model.greeting'
    execution: sequential
    next: [loop.task]
  - name: loop.task
    process: no.op
    execution: pipeline
    pipeline: [step.a, step.b]
    next: [done]
    loop:
      statement: 'for (model.n = 0; model.n < 3; model.n++)'
      condition: 'if (model.quit) break'
  - name: step.a
    process: v1.step
    execution: sequential
    next: [done]
    delay: model.wait
  - name: step.b
    process: v1.step
    execution: sequential
    next: [done]
    delay: 250
  - name: done
    process: v1.done
    execution: end
  - name: flow.exception
    process: v1.exception
    execution: end
`

func TestParse(t *testing.T) {
	s := NewService(afero.NewMemMapFs())
	f, err := s.Parse([]byte(greetingFlow))
	require.NoError(t, err)
	require.Equal(t, "greetings", f.Id)
	require.Equal(t, 10*time.Second, f.TTL)
	require.Equal(t, "greeting.demo", f.FirstTask)
	require.Len(t, f.Tasks, 6)

	first := f.Tasks["greeting.demo"]
	require.Equal(t, "v1.greeting", first.Route)
	require.Len(t, first.Input, 1)
	require.Len(t, first.Output, 1)

	loop := f.Tasks["loop.task"]
	require.Equal(t, model.EXECUTION_PIPELINE, loop.Execution)
	require.Equal(t, "done", loop.ExitTask())
	require.Equal(t, model.LOOP_FOR, loop.Loop.Type)
	require.Equal(t, 0, loop.Loop.Init.Value)
	require.Equal(t, "<", loop.Loop.Comparator.Op)
	require.Equal(t, 3, loop.Loop.Comparator.Bound)
	require.True(t, loop.Loop.Sequencer.Increment)
	require.Equal(t, model.CONDITION_BREAK, loop.Condition.Action)
	require.Equal(t, "model.quit", loop.Condition.Key.String())

	require.Equal(t, "model.wait", f.Tasks["step.a"].DelayVar.String())
	require.Equal(t, 250*time.Millisecond, f.Tasks["step.b"].Delay)
}

func TestValidate(t *testing.T) {
	for scenario, tc := range map[string]struct {
		doc string
		msg string
	}{
		"missing ttl": {
			doc: "flow: {id: a}\nfirst.task: x\ntasks: [{process: x, execution: end}]",
			msg: "ttl must be positive",
		},
		"unknown first task": {
			doc: "flow: {id: a, ttl: 1000}\nfirst.task: y\ntasks: [{process: x, execution: end}]",
			msg: "first task y not defined",
		},
		"bad execution": {
			doc: "flow: {id: a, ttl: 1000}\nfirst.task: x\ntasks: [{process: x, execution: jump, next: [x]}]",
			msg: "invalid execution type 'jump'",
		},
		"undefined next": {
			doc: "flow: {id: a, ttl: 1000}\nfirst.task: x\ntasks: [{process: x, execution: sequential, next: [z]}]",
			msg: "next task z not defined",
		},
		"fork without join": {
			doc: "flow: {id: a, ttl: 1000}\nfirst.task: x\ntasks: [{process: x, execution: fork, next: [y]}, {process: y, execution: end}]",
			msg: "fork without join task",
		},
		"pipeline without exit": {
			doc: "flow: {id: a, ttl: 1000}\nfirst.task: x\ntasks: [{process: x, execution: pipeline, pipeline: [y]}, {process: y, execution: end}]",
			msg: "pipeline without exit task",
		},
		"delay variable namespace": {
			doc: "flow: {id: a, ttl: 1000}\nfirst.task: x\ntasks: [{process: x, execution: end, delay: result.wait}]",
			msg: "must be a model or input key",
		},
		"delay above ttl": {
			doc: "flow: {id: a, ttl: 1000}\nfirst.task: x\ntasks: [{process: x, execution: end, delay: 2000}]",
			msg: "delay must be less than flow ttl",
		},
		"for loop statement": {
			doc: "flow: {id: a, ttl: 1000}\nfirst.task: x\ntasks: [{process: x, execution: pipeline, pipeline: [x], next: [x], loop: {statement: 'for (model.n = 0; model.n; model.n++)'}}]",
			msg: "invalid comparator",
		},
		"duplicated task": {
			doc: "flow: {id: a, ttl: 1000}\nfirst.task: x\ntasks: [{process: x, execution: end}, {process: x, execution: end}]",
			msg: "task x is duplicated",
		},
	} {
		t.Run(scenario, func(t *testing.T) {
			_, err := NewService(nil).Parse([]byte(tc.doc))
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.msg)
		})
	}
}

func TestParseLoop(t *testing.T) {
	loop, err := ParseLoop("while (model.running)")
	require.NoError(t, err)
	require.Equal(t, model.LOOP_WHILE, loop.Type)
	require.Equal(t, "model.running", loop.WhileKey.String())

	loop, err = ParseLoop("for(model.i = 5; model.i >= 1; model.i--)")
	require.NoError(t, err)
	require.Equal(t, ">=", loop.Comparator.Op)
	require.False(t, loop.Sequencer.Increment)
	require.Equal(t, 5, loop.Init.Value)

	_, err = ParseLoop("until (model.x)")
	require.Error(t, err)
	_, err = ParseLoop("while (input.x)")
	require.Error(t, err)

	c, err := ParseCondition("if (model.skip) continue")
	require.NoError(t, err)
	require.Equal(t, model.CONDITION_CONTINUE, c.Action)
	_, err = ParseCondition("if (model.skip) return")
	require.Error(t, err)
}

func TestLoadDir(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "flows/greetings.yml", []byte(greetingFlow), 0644))
	require.NoError(t, afero.WriteFile(fs, "flows/broken.yaml", []byte("flow: {id: broken}"), 0644))
	require.NoError(t, afero.WriteFile(fs, "flows/readme.txt", []byte("ignored"), 0644))

	flows, err := NewService(fs).LoadDir("flows")
	require.NoError(t, err)
	require.Len(t, flows, 1)
	require.Equal(t, "greetings", flows[0].Id)

	_, err = NewService(fs).LoadDir("missing")
	require.Error(t, err)
}
