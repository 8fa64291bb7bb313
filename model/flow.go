package model

import (
	"strings"
	"time"

	"github.com/mohitkumar/eventflow/mapping"
)

const (
	TaskExecutorRoute = "task.executor"
	FlowManagerRoute  = "event.script.manager"
	FlowProtocol      = "flow://"
)

type ExecutionType string

const EXECUTION_SEQUENTIAL ExecutionType = "sequential"
const EXECUTION_PARALLEL ExecutionType = "parallel"
const EXECUTION_DECISION ExecutionType = "decision"
const EXECUTION_FORK ExecutionType = "fork"
const EXECUTION_JOIN ExecutionType = "join"
const EXECUTION_PIPELINE ExecutionType = "pipeline"
const EXECUTION_RESPONSE ExecutionType = "response"
const EXECUTION_END ExecutionType = "end"

func (e ExecutionType) Valid() bool {
	switch e {
	case EXECUTION_SEQUENTIAL, EXECUTION_PARALLEL, EXECUTION_DECISION, EXECUTION_FORK,
		EXECUTION_JOIN, EXECUTION_PIPELINE, EXECUTION_RESPONSE, EXECUTION_END:
		return true
	}
	return false
}

type LoopType string

const LOOP_NONE LoopType = ""
const LOOP_FOR LoopType = "for"
const LOOP_WHILE LoopType = "while"

type ConditionAction string

const CONDITION_BREAK ConditionAction = "break"
const CONDITION_CONTINUE ConditionAction = "continue"

// Assignment is the "model.n = 0" part of a for loop.
type Assignment struct {
	Key   mapping.Path
	Value int
}

// Comparison is the "model.n < 3" part of a for loop.
type Comparison struct {
	Key   mapping.Path
	Op    string
	Bound int
}

func (c Comparison) Holds(value int) bool {
	switch c.Op {
	case "<":
		return value < c.Bound
	case "<=":
		return value <= c.Bound
	case ">":
		return value > c.Bound
	case ">=":
		return value >= c.Bound
	}
	return false
}

// Sequencer is the "model.n++" part of a for loop.
type Sequencer struct {
	Key       mapping.Path
	Increment bool
}

type Loop struct {
	Type       LoopType
	Init       *Assignment
	Comparator *Comparison
	Sequencer  *Sequencer
	WhileKey   mapping.Path
}

// Condition is evaluated after each pipeline step.
type Condition struct {
	Key    mapping.Path
	Action ConditionAction
}

type Task struct {
	Name          string
	Route         string
	Description   string
	Execution     ExecutionType
	Input         []mapping.Rule
	Output        []mapping.Rule
	NextSteps     []string
	Exception     string
	Delay         time.Duration
	DelayVar      mapping.Path
	Loop          *Loop
	Condition     *Condition
	PipelineSteps []string
	JoinTask      string
}

// ExitTask is where a pipeline continues once its loop is over.
func (t *Task) ExitTask() string {
	if len(t.NextSteps) == 0 {
		return ""
	}
	return t.NextSteps[0]
}

func (t *Task) IsSubFlow() bool {
	return strings.HasPrefix(t.Route, FlowProtocol)
}

func (t *Task) SubFlowId() string {
	return strings.TrimPrefix(t.Route, FlowProtocol)
}

type Flow struct {
	Id                   string
	Description          string
	Tasks                map[string]*Task
	FirstTask            string
	Exception            string
	TTL                  time.Duration
	ExternalStateMachine string
}

func (f *Flow) Task(name string) (*Task, bool) {
	t, ok := f.Tasks[name]
	return t, ok
}
