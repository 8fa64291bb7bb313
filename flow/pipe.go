package flow

import "github.com/mohitkumar/eventflow/model"

// PipeInfo is either a *JoinInfo or a *PipelineInfo.
type PipeInfo interface {
	pipe()
}

// JoinInfo counts the replies of a fork until every branch has answered.
type JoinInfo struct {
	Forks    int
	Results  int
	JoinTask string
}

func (j *JoinInfo) pipe() {}

// Arrive records one branch reply and reports whether all branches are in.
func (j *JoinInfo) Arrive() bool {
	j.Results++
	return j.Results >= j.Forks
}

// PipelineInfo tracks the step pointer of a running pipeline.
type PipelineInfo struct {
	Task      *model.Task
	ptr       int
	completed bool
}

func NewPipelineInfo(task *model.Task) *PipelineInfo {
	return &PipelineInfo{Task: task}
}

func (p *PipelineInfo) pipe() {}

func (p *PipelineInfo) Pointer() int {
	return p.ptr
}

// NextStep advances the pointer.
func (p *PipelineInfo) NextStep() int {
	p.ptr++
	return p.ptr
}

func (p *PipelineInfo) IsLastStep(n int) bool {
	return n >= len(p.Task.PipelineSteps)-1
}

// HasStep reports whether n addresses a pipeline step.
func (p *PipelineInfo) HasStep(n int) bool {
	return n >= 0 && n < len(p.Task.PipelineSteps)
}

func (p *PipelineInfo) StepName(n int) string {
	return p.Task.PipelineSteps[n]
}

func (p *PipelineInfo) ResetPointer() {
	p.ptr = 0
	p.completed = false
}

func (p *PipelineInfo) SetCompleted() {
	p.completed = true
}

func (p *PipelineInfo) IsCompleted() bool {
	return p.completed
}

func (p *PipelineInfo) ExitTask() string {
	return p.Task.ExitTask()
}
