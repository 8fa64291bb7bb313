package metadata

import (
	"fmt"
	"strings"

	"github.com/mohitkumar/eventflow/mapping"
	"github.com/mohitkumar/eventflow/model"
	"github.com/mohitkumar/eventflow/util"
)

var comparators = []string{"<=", ">=", "<", ">"}

// ParseLoop reads "for (model.n = 0; model.n < 3; model.n++)" or
// "while (model.running)".
func ParseLoop(statement string) (*model.Loop, error) {
	s := strings.TrimSpace(statement)
	keyword, inner, err := splitStatement(s)
	if err != nil {
		return nil, fmt.Errorf("invalid loop statement '%s' - %w", statement, err)
	}
	switch keyword {
	case "while":
		p, err := modelKey(inner)
		if err != nil {
			return nil, fmt.Errorf("invalid loop statement '%s' - %w", statement, err)
		}
		return &model.Loop{Type: model.LOOP_WHILE, WhileKey: p}, nil
	case "for":
		loop, err := parseFor(inner)
		if err != nil {
			return nil, fmt.Errorf("invalid loop statement '%s' - %w", statement, err)
		}
		return loop, nil
	}
	return nil, fmt.Errorf("invalid loop statement '%s' - must start with for or while", statement)
}

func parseFor(inner string) (*model.Loop, error) {
	parts := strings.Split(inner, ";")
	if len(parts) != 3 {
		return nil, fmt.Errorf("for needs initializer, comparator and sequencer")
	}
	loop := &model.Loop{Type: model.LOOP_FOR}
	if init := strings.TrimSpace(parts[0]); init != "" {
		eq := strings.IndexByte(init, '=')
		if eq <= 0 {
			return nil, fmt.Errorf("invalid initializer '%s'", init)
		}
		key, err := modelKey(init[:eq])
		if err != nil {
			return nil, err
		}
		value := strings.TrimSpace(init[eq+1:])
		if !util.IsNumeric(value) {
			return nil, fmt.Errorf("initializer value '%s' is not a number", value)
		}
		loop.Init = &model.Assignment{Key: key, Value: util.ToInt(value)}
	}
	cmp, err := parseComparison(strings.TrimSpace(parts[1]))
	if err != nil {
		return nil, err
	}
	loop.Comparator = cmp
	seq := strings.TrimSpace(parts[2])
	switch {
	case strings.HasSuffix(seq, "++"):
		key, err := modelKey(strings.TrimSuffix(seq, "++"))
		if err != nil {
			return nil, err
		}
		loop.Sequencer = &model.Sequencer{Key: key, Increment: true}
	case strings.HasSuffix(seq, "--"):
		key, err := modelKey(strings.TrimSuffix(seq, "--"))
		if err != nil {
			return nil, err
		}
		loop.Sequencer = &model.Sequencer{Key: key}
	default:
		return nil, fmt.Errorf("sequencer '%s' must use ++ or --", seq)
	}
	return loop, nil
}

func parseComparison(s string) (*model.Comparison, error) {
	for _, op := range comparators {
		idx := strings.Index(s, op)
		if idx <= 0 {
			continue
		}
		key, err := modelKey(s[:idx])
		if err != nil {
			return nil, err
		}
		bound := strings.TrimSpace(s[idx+len(op):])
		if !util.IsNumeric(bound) {
			return nil, fmt.Errorf("comparator bound '%s' is not a number", bound)
		}
		return &model.Comparison{Key: key, Op: op, Bound: util.ToInt(bound)}, nil
	}
	return nil, fmt.Errorf("invalid comparator '%s'", s)
}

// ParseCondition reads "if (model.quit) break" or "if (model.skip) continue".
func ParseCondition(condition string) (*model.Condition, error) {
	s := strings.TrimSpace(condition)
	end := strings.LastIndexByte(s, ')')
	if end < 0 {
		return nil, fmt.Errorf("invalid loop condition '%s' - missing close bracket", condition)
	}
	keyword, inner, err := splitStatement(s[:end+1])
	if err != nil || keyword != "if" {
		return nil, fmt.Errorf("invalid loop condition '%s' - must be if (model.key) break|continue", condition)
	}
	key, err := modelKey(inner)
	if err != nil {
		return nil, fmt.Errorf("invalid loop condition '%s' - %w", condition, err)
	}
	action := model.ConditionAction(strings.ToLower(strings.TrimSpace(s[end+1:])))
	if action != model.CONDITION_BREAK && action != model.CONDITION_CONTINUE {
		return nil, fmt.Errorf("invalid loop condition '%s' - action must be break or continue", condition)
	}
	return &model.Condition{Key: key, Action: action}, nil
}

// splitStatement splits "keyword (inner)" into its parts.
func splitStatement(s string) (string, string, error) {
	open := strings.IndexByte(s, '(')
	if open <= 0 || !strings.HasSuffix(s, ")") {
		return "", "", fmt.Errorf("expected keyword (...)")
	}
	return strings.ToLower(strings.TrimSpace(s[:open])), strings.TrimSpace(s[open+1 : len(s)-1]), nil
}

func modelKey(s string) (mapping.Path, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, mapping.NamespaceModel+".") {
		return mapping.Path{}, fmt.Errorf("'%s' is not a model variable", s)
	}
	return mapping.ParsePath(s)
}
