package metadata

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/mohitkumar/eventflow/logger"
	"github.com/mohitkumar/eventflow/mapping"
	"github.com/mohitkumar/eventflow/model"
	"github.com/mohitkumar/eventflow/util"
	"github.com/spf13/afero"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Service turns YAML flow documents into validated flow graphs.
type Service struct {
	fs afero.Fs
}

func NewService(fs afero.Fs) *Service {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Service{fs: fs}
}

// LoadDir parses every yaml file in dir. A file that does not parse or
// validate is logged and left out.
func (s *Service) LoadDir(dir string) ([]*model.Flow, error) {
	entries, err := afero.ReadDir(s.fs, dir)
	if err != nil {
		return nil, fmt.Errorf("unable to read flow folder %s: %w", dir, err)
	}
	flows := make([]*model.Flow, 0, len(entries))
	ids := make(map[string]bool)
	for _, entry := range entries {
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if entry.IsDir() || (ext != ".yml" && ext != ".yaml") {
			continue
		}
		name := filepath.Join(dir, entry.Name())
		f, err := s.LoadFile(name)
		if err != nil {
			logger.Error("skipping flow", zap.String("file", name), zap.Error(err))
			continue
		}
		if ids[f.Id] {
			logger.Error("skipping flow - duplicated id", zap.String("file", name), zap.String("flow", f.Id))
			continue
		}
		ids[f.Id] = true
		flows = append(flows, f)
	}
	for _, f := range flows {
		for _, t := range f.Tasks {
			if t.IsSubFlow() && !ids[t.SubFlowId()] {
				logger.Warn("sub-flow not loaded", zap.String("flow", f.Id), zap.String("task", t.Name), zap.String("route", t.Route))
			}
		}
	}
	sort.Slice(flows, func(i, j int) bool { return flows[i].Id < flows[j].Id })
	logger.Info("flows loaded", zap.String("dir", dir), zap.Int("count", len(flows)))
	return flows, nil
}

func (s *Service) LoadFile(name string) (*model.Flow, error) {
	b, err := afero.ReadFile(s.fs, name)
	if err != nil {
		return nil, err
	}
	return s.Parse(b)
}

// Parse decodes and validates one flow document.
func (s *Service) Parse(b []byte) (*model.Flow, error) {
	var def model.FlowDefinition
	if err := yaml.Unmarshal(b, &def); err != nil {
		return nil, fmt.Errorf("invalid flow document: %w", err)
	}
	f, err := s.build(def)
	if err != nil {
		return nil, err
	}
	if err := s.Validate(f); err != nil {
		return nil, err
	}
	return f, nil
}

func (s *Service) build(def model.FlowDefinition) (*model.Flow, error) {
	ttl, err := parseTTL(def.Flow.TTL)
	if err != nil {
		return nil, fmt.Errorf("flow %s: %w", def.Flow.Id, err)
	}
	f := &model.Flow{
		Id:                   strings.TrimSpace(def.Flow.Id),
		Description:          def.Flow.Description,
		Tasks:                make(map[string]*model.Task, len(def.Tasks)),
		FirstTask:            strings.TrimSpace(def.FirstTask),
		Exception:            strings.TrimSpace(def.Flow.Exception),
		TTL:                  ttl,
		ExternalStateMachine: strings.TrimSpace(def.Flow.ExternalStateMachine),
	}
	var errs error
	for _, td := range def.Tasks {
		t, err := buildTask(td)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		if _, ok := f.Tasks[t.Name]; ok {
			errs = multierr.Append(errs, fmt.Errorf("task %s is duplicated", t.Name))
			continue
		}
		f.Tasks[t.Name] = t
	}
	if errs != nil {
		return nil, fmt.Errorf("flow %s: %w", f.Id, errs)
	}
	return f, nil
}

func buildTask(td model.TaskDef) (*model.Task, error) {
	route := strings.TrimSpace(td.Process)
	name := strings.TrimSpace(td.Name)
	if name == "" {
		name = route
	}
	if name == "" {
		return nil, fmt.Errorf("task without name and process")
	}
	if route == "" {
		return nil, fmt.Errorf("task %s has no process", name)
	}
	t := &model.Task{
		Name:          name,
		Route:         route,
		Description:   td.Description,
		Execution:     model.ExecutionType(strings.ToLower(strings.TrimSpace(td.Execution))),
		Input:         mapping.CompileAll(mapping.Input, name, td.Input),
		Output:        mapping.CompileAll(mapping.Output, name, td.Output),
		NextSteps:     trimAll(td.Next),
		Exception:     strings.TrimSpace(td.Exception),
		PipelineSteps: trimAll(td.Pipeline),
		JoinTask:      strings.TrimSpace(td.Join),
	}
	if d := strings.TrimSpace(td.Delay); d != "" {
		if util.IsNumeric(d) {
			t.Delay = time.Duration(util.ToLong(d)) * time.Millisecond
			if t.Delay <= 0 {
				return nil, fmt.Errorf("task %s has invalid delay %s", name, d)
			}
		} else {
			p, err := mapping.ParsePath(d)
			if err != nil {
				return nil, fmt.Errorf("task %s has invalid delay variable %s: %w", name, d, err)
			}
			t.DelayVar = p
		}
	}
	if td.Loop != nil {
		if st := strings.TrimSpace(td.Loop.Statement); st != "" {
			loop, err := ParseLoop(st)
			if err != nil {
				return nil, fmt.Errorf("task %s: %w", name, err)
			}
			t.Loop = loop
		}
		if cond := strings.TrimSpace(td.Loop.Condition); cond != "" {
			c, err := ParseCondition(cond)
			if err != nil {
				return nil, fmt.Errorf("task %s: %w", name, err)
			}
			t.Condition = c
		}
	}
	return t, nil
}

// Validate checks the graph of f and reports every problem found.
func (s *Service) Validate(f *model.Flow) error {
	var errs error
	if f.Id == "" {
		errs = multierr.Append(errs, fmt.Errorf("missing flow id"))
	}
	if f.TTL <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("flow ttl must be positive"))
	}
	if f.FirstTask == "" {
		errs = multierr.Append(errs, fmt.Errorf("missing first task"))
	} else if _, ok := f.Tasks[f.FirstTask]; !ok {
		errs = multierr.Append(errs, fmt.Errorf("first task %s not defined", f.FirstTask))
	}
	if f.Exception != "" {
		if _, ok := f.Tasks[f.Exception]; !ok {
			errs = multierr.Append(errs, fmt.Errorf("flow exception task %s not defined", f.Exception))
		}
	}
	names := make([]string, 0, len(f.Tasks))
	for name := range f.Tasks {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		errs = multierr.Append(errs, validateTask(f, f.Tasks[name]))
	}
	if errs != nil {
		if f.Id != "" {
			return fmt.Errorf("flow %s: %w", f.Id, errs)
		}
		return errs
	}
	return nil
}

func validateTask(f *model.Flow, t *model.Task) error {
	var errs error
	defined := func(kind string, ref string) {
		if _, ok := f.Tasks[ref]; !ok {
			errs = multierr.Append(errs, fmt.Errorf("task %s: %s task %s not defined", t.Name, kind, ref))
		}
	}
	if !t.Execution.Valid() {
		errs = multierr.Append(errs, fmt.Errorf("task %s: invalid execution type '%s'", t.Name, t.Execution))
	}
	for _, next := range t.NextSteps {
		defined("next", next)
	}
	if t.Exception != "" {
		defined("exception", t.Exception)
	}
	switch t.Execution {
	case model.EXECUTION_END:
	case model.EXECUTION_DECISION:
		if len(t.NextSteps) < 2 {
			errs = multierr.Append(errs, fmt.Errorf("task %s: decision needs at least two next tasks", t.Name))
		}
	case model.EXECUTION_FORK:
		if t.JoinTask == "" {
			errs = multierr.Append(errs, fmt.Errorf("task %s: fork without join task", t.Name))
		} else {
			defined("join", t.JoinTask)
		}
		if len(t.NextSteps) == 0 {
			errs = multierr.Append(errs, fmt.Errorf("task %s: fork without next tasks", t.Name))
		}
	case model.EXECUTION_PIPELINE:
		if len(t.PipelineSteps) == 0 {
			errs = multierr.Append(errs, fmt.Errorf("task %s: pipeline without steps", t.Name))
		}
		for _, step := range t.PipelineSteps {
			defined("pipeline", step)
		}
		if len(t.NextSteps) == 0 {
			errs = multierr.Append(errs, fmt.Errorf("task %s: pipeline without exit task", t.Name))
		}
	default:
		if t.Execution.Valid() && len(t.NextSteps) == 0 {
			errs = multierr.Append(errs, fmt.Errorf("task %s: %s task without next tasks", t.Name, t.Execution))
		}
	}
	if t.Loop != nil {
		if t.Execution != model.EXECUTION_PIPELINE {
			errs = multierr.Append(errs, fmt.Errorf("task %s: loop is only valid for a pipeline", t.Name))
		}
		if t.Loop.Type == model.LOOP_FOR && (t.Loop.Comparator == nil || t.Loop.Sequencer == nil) {
			errs = multierr.Append(errs, fmt.Errorf("task %s: for loop needs a comparator and a sequencer", t.Name))
		}
	}
	if t.Condition != nil && t.Execution != model.EXECUTION_PIPELINE {
		errs = multierr.Append(errs, fmt.Errorf("task %s: loop condition is only valid for a pipeline", t.Name))
	}
	if !t.DelayVar.IsZero() {
		ns := t.DelayVar.Namespace()
		if (ns != mapping.NamespaceModel && ns != mapping.NamespaceInput) || t.DelayVar.Depth() < 2 {
			errs = multierr.Append(errs, fmt.Errorf("task %s: delay variable %s must be a model or input key", t.Name, t.DelayVar))
		}
	}
	if t.Delay > 0 && f.TTL > 0 && t.Delay >= f.TTL {
		errs = multierr.Append(errs, fmt.Errorf("task %s: delay must be less than flow ttl", t.Name))
	}
	return errs
}

// parseTTL accepts a Go duration ("30s") or milliseconds.
func parseTTL(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if util.IsNumeric(s) {
		return time.Duration(util.ToLong(s)) * time.Millisecond, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid ttl '%s'", s)
	}
	return d, nil
}

func trimAll(list []string) []string {
	out := make([]string, 0, len(list))
	for _, s := range list {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
