package mapping

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mohitkumar/eventflow/logger"
	"github.com/mohitkumar/eventflow/util"
	"go.uber.org/zap"
)

type CoercionKind int

const (
	CoerceText CoercionKind = iota + 1
	CoerceBinary
	CoerceB64
	CoerceInt
	CoerceLong
	CoerceFloat
	CoerceDouble
	CoerceBoolean
	CoerceSubstring
	CoerceAnd
	CoerceOr
	CoerceMatch
)

var simpleCoercions = map[string]CoercionKind{
	"text":    CoerceText,
	"binary":  CoerceBinary,
	"b64":     CoerceB64,
	"int":     CoerceInt,
	"long":    CoerceLong,
	"float":   CoerceFloat,
	"double":  CoerceDouble,
	"boolean": CoerceBoolean,
}

// Coercion is the compiled form of a ":type" suffix.
type Coercion struct {
	Kind CoercionKind
	raw  string

	start, end int  // substring bounds, end < 0 means up to the length
	other      Path // and/or operand
	match      string
	when       bool
}

func (c *Coercion) String() string {
	return c.raw
}

// Composite coercions evaluate to a value even when their input is absent.
func (c *Coercion) Composite() bool {
	switch c.Kind {
	case CoerceAnd, CoerceOr, CoerceMatch:
		return true
	}
	return false
}

func parseCoercion(s string) (*Coercion, error) {
	s = strings.TrimSpace(s)
	if kind, ok := simpleCoercions[s]; ok {
		return &Coercion{Kind: kind, raw: s}, nil
	}
	open := strings.IndexByte(s, '(')
	if open < 0 {
		return nil, fmt.Errorf("matching type must be substring(start, end), boolean, and, or, text, binary or b64")
	}
	if !strings.HasSuffix(s, ")") {
		return nil, fmt.Errorf("invalid type '%s' - missing close bracket", s)
	}
	name := strings.TrimSpace(s[:open])
	command := strings.TrimSpace(s[open+1 : len(s)-1])
	c := &Coercion{raw: s}
	switch name {
	case "substring":
		parts := splitAny(command, ", ")
		if len(parts) == 0 || len(parts) > 2 {
			return nil, fmt.Errorf("invalid syntax '%s'", s)
		}
		c.Kind = CoerceSubstring
		c.start = util.ToInt(parts[0])
		c.end = -1
		if len(parts) == 2 {
			c.end = util.ToInt(parts[1])
		}
	case "and", "or":
		if !strings.HasPrefix(command, "model.") {
			return nil, fmt.Errorf("'%s' is not a model variable", command)
		}
		p, err := ParsePath(command)
		if err != nil {
			return nil, err
		}
		c.Kind = CoerceAnd
		if name == "or" {
			c.Kind = CoerceOr
		}
		c.other = p
	case "boolean":
		parts := splitAny(command, ",=")
		if len(parts) == 0 || len(parts) > 2 {
			return nil, fmt.Errorf("invalid syntax '%s'", s)
		}
		c.Kind = CoerceMatch
		c.match = parts[0]
		c.when = len(parts) == 1 || strings.EqualFold(parts[1], "true")
	default:
		return nil, fmt.Errorf("matching type must be substring(start, end), boolean, and, or, text, binary or b64")
	}
	return c, nil
}

// Apply converts value. Data errors are logged and the value is returned as is.
func (c *Coercion) Apply(value any, view *View, where string) any {
	switch c.Kind {
	case CoerceMatch:
		text := "null"
		if value != nil {
			text = util.ToText(value)
		}
		if text == c.match {
			return c.when
		}
		return !c.when
	case CoerceAnd, CoerceOr:
		v1 := value != nil && strings.EqualFold(util.ToText(value), "true")
		v2 := false
		if view != nil {
			if other, ok := view.Get(c.other); ok {
				v2 = strings.EqualFold(util.ToText(other), "true")
			}
		}
		if c.Kind == CoerceAnd {
			return v1 && v2
		}
		return v1 || v2
	}
	if value == nil {
		return nil
	}
	switch c.Kind {
	case CoerceText:
		return util.ToText(value)
	case CoerceBinary:
		switch t := value.(type) {
		case []byte:
			return t
		case string:
			return []byte(t)
		case map[string]any, []any:
			b, err := json.Marshal(t)
			if err != nil {
				logger.Error("unable to do type conversion", zap.String("path", where), zap.Error(err))
				return value
			}
			return b
		}
		return []byte(fmt.Sprint(value))
	case CoerceBoolean:
		return strings.EqualFold(util.ToText(value), "true")
	case CoerceInt:
		return util.ToInt(value)
	case CoerceLong:
		return util.ToLong(value)
	case CoerceFloat:
		return util.ToFloat(value)
	case CoerceDouble:
		return util.ToDouble(value)
	case CoerceB64:
		switch t := value.(type) {
		case []byte:
			return base64.StdEncoding.EncodeToString(t)
		case string:
			b, err := base64.StdEncoding.DecodeString(t)
			if err != nil {
				logger.Error("unable to decode b64 text", zap.String("path", where), zap.Error(err))
				return value
			}
			return b
		}
		return value
	case CoerceSubstring:
		text, ok := value.(string)
		if !ok {
			logger.Error("unable to do substring", zap.String("path", where), zap.String("error", "value is not a string"))
			return value
		}
		runes := []rune(text)
		end := c.end
		if end < 0 {
			end = len(runes)
		}
		if end > c.start && c.start >= 0 && end <= len(runes) {
			return string(runes[c.start:end])
		}
		logger.Error("unable to do substring", zap.String("path", where), zap.String("error", "index out of bound"))
		return value
	}
	return value
}

// splitAny splits s on any of the separator characters and drops empty parts.
func splitAny(s string, separators string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return strings.ContainsRune(separators, r)
	})
	result := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			result = append(result, f)
		}
	}
	return result
}
