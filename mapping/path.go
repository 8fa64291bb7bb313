package mapping

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/oliveagle/jsonpath"
)

type segment struct {
	key   string
	index int // -1 when the segment does not address a list element
}

// Path is a dotted key such as "model.user.name" or "result.items[0].id".
type Path struct {
	raw      string
	segments []segment
	lookup   *jsonpath.Compiled
}

func ParsePath(raw string) (Path, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Path{}, fmt.Errorf("empty key")
	}
	parts := strings.Split(raw, ".")
	segments := make([]segment, 0, len(parts))
	for _, p := range parts {
		seg, err := parseSegment(p)
		if err != nil {
			return Path{}, fmt.Errorf("invalid key '%s': %w", raw, err)
		}
		segments = append(segments, seg)
	}
	compiled, err := jsonpath.Compile("$." + raw)
	if err != nil {
		return Path{}, fmt.Errorf("invalid key '%s': %w", raw, err)
	}
	return Path{raw: raw, segments: segments, lookup: compiled}, nil
}

func MustParsePath(raw string) Path {
	p, err := ParsePath(raw)
	if err != nil {
		panic(err)
	}
	return p
}

func parseSegment(s string) (segment, error) {
	if s == "" {
		return segment{}, fmt.Errorf("empty segment")
	}
	open := strings.IndexByte(s, '[')
	if open < 0 {
		if strings.ContainsAny(s, "]") {
			return segment{}, fmt.Errorf("unbalanced bracket in '%s'", s)
		}
		return segment{key: s, index: -1}, nil
	}
	if open == 0 || !strings.HasSuffix(s, "]") {
		return segment{}, fmt.Errorf("invalid index in '%s'", s)
	}
	idx, err := strconv.Atoi(s[open+1 : len(s)-1])
	if err != nil || idx < 0 {
		return segment{}, fmt.Errorf("invalid index in '%s'", s)
	}
	return segment{key: s[:open], index: idx}, nil
}

func (p Path) String() string {
	return p.raw
}

func (p Path) IsZero() bool {
	return len(p.segments) == 0
}

// Namespace is the first key of the path.
func (p Path) Namespace() string {
	if len(p.segments) == 0 {
		return ""
	}
	return p.segments[0].key
}

// Depth is the number of dotted segments.
func (p Path) Depth() int {
	return len(p.segments)
}
