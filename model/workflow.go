package model

// FlowDefinition is the YAML form of a flow as it is written by users.
type FlowDefinition struct {
	Flow      FlowHeader `yaml:"flow"`
	FirstTask string     `yaml:"first.task"`
	Tasks     []TaskDef  `yaml:"tasks"`
}

type FlowHeader struct {
	Id                   string `yaml:"id"`
	Description          string `yaml:"description"`
	TTL                  string `yaml:"ttl"`
	Exception            string `yaml:"exception"`
	ExternalStateMachine string `yaml:"external.state.machine"`
}

type TaskDef struct {
	Name        string   `yaml:"name"`
	Process     string   `yaml:"process"`
	Description string   `yaml:"description"`
	Input       []string `yaml:"input"`
	Output      []string `yaml:"output"`
	Execution   string   `yaml:"execution"`
	Next        []string `yaml:"next"`
	Exception   string   `yaml:"exception"`
	Delay       string   `yaml:"delay"`
	Join        string   `yaml:"join"`
	Pipeline    []string `yaml:"pipeline"`
	Loop        *LoopDef `yaml:"loop"`
}

type LoopDef struct {
	Statement string `yaml:"statement"`
	Condition string `yaml:"condition"`
}
