package mapping

import (
	"fmt"
	"strings"

	"github.com/mohitkumar/eventflow/logger"
	"github.com/mohitkumar/eventflow/util"
	"go.uber.org/zap"
)

// Direction tells whether a rule builds a task's outgoing payload or maps a
// task's result back into the flow.
type Direction int

const (
	Input Direction = iota
	Output
)

func (d Direction) String() string {
	if d == Output {
		return "output"
	}
	return "input"
}

const (
	NamespaceInput  = "input"
	NamespaceModel  = "model"
	NamespaceError  = "error"
	NamespaceHeader = "header"
	NamespaceStatus = "status"
	NamespaceResult = "result"

	extPrefix       = "ext:"
	filePrefix      = "file("
	classpathPrefix = "classpath("
	textPrefix      = "text:"
	binaryPrefix    = "binary:"
	separator       = "->"
)

var namespaces = map[Direction][]string{
	Input:  {NamespaceInput, NamespaceModel, NamespaceError},
	Output: {NamespaceInput, NamespaceModel, NamespaceHeader, NamespaceStatus, NamespaceResult},
}

type SourceKind int

const (
	SourceNamespace SourceKind = iota
	SourceConstant
	SourceConfig
	SourceFile
	SourceClasspath
)

type Source struct {
	Kind     SourceKind
	Path     Path
	Coercion *Coercion
	Value    any
	Ref      string
	Binary   bool
}

func (s Source) IsNamespace() bool {
	return s.Kind == SourceNamespace
}

type TargetKind int

const (
	TargetPath TargetKind = iota
	TargetAll
	TargetHeaders
	TargetHeader
	TargetExt
	TargetFile
)

type Target struct {
	Kind     TargetKind
	Path     Path
	Coercion *Coercion
	Key      string
}

func (t Target) IsModel() bool {
	return t.Kind == TargetPath && t.Path.Namespace() == NamespaceModel && t.Path.Depth() > 1
}

func (t Target) IsOutputStatus() bool {
	return t.Kind == TargetPath && t.Path.String() == "output.status"
}

func (t Target) IsOutputHeader() bool {
	return t.Kind == TargetPath && t.Path.String() == "output.header"
}

// Rule is one compiled "source -> target" mapping entry.
type Rule struct {
	Text   string
	Source Source
	Target Target
}

func (r Rule) String() string {
	return r.Text
}

func Compile(dir Direction, text string) (Rule, error) {
	sep := strings.Index(text, separator)
	if sep <= 0 {
		return Rule{}, fmt.Errorf("invalid %s mapping '%s' - missing '%s'", dir, text, separator)
	}
	lhs := strings.TrimSpace(text[:sep])
	rhs := strings.TrimSpace(text[sep+len(separator):])
	if lhs == "" || rhs == "" {
		return Rule{}, fmt.Errorf("invalid %s mapping '%s'", dir, text)
	}
	src, err := compileSource(dir, lhs)
	if err != nil {
		return Rule{}, fmt.Errorf("invalid %s mapping '%s' - %w", dir, text, err)
	}
	tgt, err := compileTarget(dir, rhs)
	if err != nil {
		return Rule{}, fmt.Errorf("invalid %s mapping '%s' - %w", dir, text, err)
	}
	return Rule{Text: text, Source: src, Target: tgt}, nil
}

// CompileAll compiles the rules of one task. Invalid entries are logged once
// and left out.
func CompileAll(dir Direction, owner string, texts []string) []Rule {
	rules := make([]Rule, 0, len(texts))
	for _, text := range texts {
		rule, err := Compile(dir, text)
		if err != nil {
			logger.Error("skipping mapping rule", zap.String("task", owner), zap.Error(err))
			continue
		}
		rules = append(rules, rule)
	}
	return rules
}

func isNamespace(dir Direction, lhs string) bool {
	for _, ns := range namespaces[dir] {
		if lhs == ns || strings.HasPrefix(lhs, ns+".") {
			return true
		}
	}
	return false
}

func compileSource(dir Direction, lhs string) (Source, error) {
	if isNamespace(dir, lhs) {
		if dir == Input && strings.HasPrefix(lhs, "input.header.") {
			lhs = strings.ToLower(lhs)
		}
		key, coercion, err := splitTyped(lhs)
		if err != nil {
			return Source{}, err
		}
		p, err := ParsePath(key)
		if err != nil {
			return Source{}, err
		}
		return Source{Kind: SourceNamespace, Path: p, Coercion: coercion}, nil
	}
	return compileConstant(lhs)
}

func compileConstant(lhs string) (Source, error) {
	open := strings.IndexByte(lhs, '(')
	if open <= 0 || !strings.HasSuffix(lhs, ")") {
		return Source{}, fmt.Errorf("'%s' is neither a namespace nor a typed constant", lhs)
	}
	kind := lhs[:open]
	inner := lhs[open+1 : len(lhs)-1]
	switch kind {
	case "text":
		return Source{Kind: SourceConstant, Value: inner}, nil
	case "int":
		return Source{Kind: SourceConstant, Value: util.ToInt(inner)}, nil
	case "long":
		return Source{Kind: SourceConstant, Value: util.ToLong(inner)}, nil
	case "float":
		return Source{Kind: SourceConstant, Value: util.ToFloat(inner)}, nil
	case "double":
		return Source{Kind: SourceConstant, Value: util.ToDouble(inner)}, nil
	case "boolean":
		return Source{Kind: SourceConstant, Value: strings.EqualFold(strings.TrimSpace(inner), "true")}, nil
	case "map":
		inner = strings.TrimSpace(inner)
		if !strings.Contains(inner, "=") {
			if inner == "" {
				return Source{}, fmt.Errorf("missing key in '%s'", lhs)
			}
			return Source{Kind: SourceConfig, Ref: inner}, nil
		}
		m := make(map[string]any)
		for _, kv := range strings.Split(inner, ",") {
			eq := strings.IndexByte(kv, '=')
			if eq <= 0 {
				return Source{}, fmt.Errorf("invalid key-value '%s' in '%s'", strings.TrimSpace(kv), lhs)
			}
			m[strings.TrimSpace(kv[:eq])] = strings.TrimSpace(kv[eq+1:])
		}
		return Source{Kind: SourceConstant, Value: m}, nil
	case "file", "classpath":
		name, binary := fileDescriptor(inner)
		if name == "" {
			return Source{}, fmt.Errorf("missing file name in '%s'", lhs)
		}
		k := SourceFile
		if kind == "classpath" {
			k = SourceClasspath
		}
		return Source{Kind: k, Ref: name, Binary: binary}, nil
	}
	return Source{}, fmt.Errorf("'%s' is neither a namespace nor a typed constant", lhs)
}

// fileDescriptor parses "text:/path", "binary:/path" or "/path" (binary).
func fileDescriptor(s string) (string, bool) {
	s = strings.TrimSpace(s)
	switch {
	case strings.HasPrefix(s, textPrefix):
		return strings.TrimSpace(s[len(textPrefix):]), false
	case strings.HasPrefix(s, binaryPrefix):
		return strings.TrimSpace(s[len(binaryPrefix):]), true
	}
	return s, true
}

func compileTarget(dir Direction, rhs string) (Target, error) {
	switch {
	case strings.HasPrefix(rhs, extPrefix):
		key := strings.TrimSpace(rhs[len(extPrefix):])
		if key == "" {
			return Target{}, fmt.Errorf("missing external state machine key")
		}
		return Target{Kind: TargetExt, Key: key}, nil
	case strings.HasPrefix(rhs, filePrefix):
		if !strings.HasSuffix(rhs, ")") {
			return Target{}, fmt.Errorf("invalid file '%s' - missing close bracket", rhs)
		}
		name, _ := fileDescriptor(rhs[len(filePrefix) : len(rhs)-1])
		if name == "" {
			return Target{}, fmt.Errorf("missing file name in '%s'", rhs)
		}
		return Target{Kind: TargetFile, Key: name}, nil
	case rhs == "*":
		if dir != Input {
			return Target{}, fmt.Errorf("'*' is only valid in input mapping")
		}
		return Target{Kind: TargetAll}, nil
	case dir == Input && rhs == NamespaceHeader:
		return Target{Kind: TargetHeaders}, nil
	case dir == Input && strings.HasPrefix(rhs, NamespaceHeader+"."):
		key := strings.TrimSpace(rhs[len(NamespaceHeader)+1:])
		if key == "" {
			return Target{}, fmt.Errorf("missing header name")
		}
		return Target{Kind: TargetHeader, Key: key}, nil
	}
	key, coercion, err := splitTyped(rhs)
	if err != nil {
		return Target{}, err
	}
	p, err := ParsePath(key)
	if err != nil {
		return Target{}, err
	}
	return Target{Kind: TargetPath, Path: p, Coercion: coercion}, nil
}

// splitTyped separates "model.key:type" into its key and coercion. Only model
// keys carry a type.
func splitTyped(s string) (string, *Coercion, error) {
	if !strings.HasPrefix(s, NamespaceModel+".") {
		return s, nil, nil
	}
	colon := strings.IndexByte(s, ':')
	if colon < 0 {
		return s, nil, nil
	}
	c, err := parseCoercion(s[colon+1:])
	if err != nil {
		return "", nil, err
	}
	return strings.TrimSpace(s[:colon]), c, nil
}
