package mapping

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mohitkumar/eventflow/logger"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// ConfigReader resolves map(config.key) constants.
type ConfigReader interface {
	Get(key string) any
}

// Mapper evaluates compiled rules against views. File constants and file
// targets go through fs, classpath constants through resources.
type Mapper struct {
	fs        afero.Fs
	resources afero.Fs
	config    ConfigReader
}

func NewMapper(fs afero.Fs, resources afero.Fs, config ConfigReader) *Mapper {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if resources == nil {
		resources = afero.NewReadOnlyFs(afero.NewBasePathFs(afero.NewOsFs(), "resources"))
	}
	return &Mapper{fs: fs, resources: resources, config: config}
}

// Value resolves the source of a rule. Namespace sources read from view;
// typed constants ignore it.
func (m *Mapper) Value(src Source, view *View) (any, bool) {
	switch src.Kind {
	case SourceNamespace:
		value, ok := view.Get(src.Path)
		if !ok {
			return nil, false
		}
		if src.Coercion != nil {
			value = src.Coercion.Apply(value, view, src.Path.String())
		}
		return value, value != nil
	case SourceConstant:
		return src.Value, src.Value != nil
	case SourceConfig:
		if m.config == nil {
			return nil, false
		}
		value := m.config.Get(src.Ref)
		switch t := value.(type) {
		case map[string]any:
			return t, true
		case nil:
			return nil, false
		default:
			return map[string]any{src.Ref: t}, true
		}
	case SourceFile:
		return m.readFile(m.fs, src)
	case SourceClasspath:
		return m.readFile(m.resources, src)
	}
	return nil, false
}

func (m *Mapper) readFile(fs afero.Fs, src Source) (any, bool) {
	info, err := fs.Stat(src.Ref)
	if err != nil || info.IsDir() {
		logger.Warn("file not found", zap.String("file", src.Ref))
		return nil, false
	}
	b, err := afero.ReadFile(fs, src.Ref)
	if err != nil {
		logger.Error("unable to read file", zap.String("file", src.Ref), zap.Error(err))
		return nil, false
	}
	if src.Binary {
		return b, true
	}
	return string(b), true
}

// Set writes value to a path target, applying its coercion first.
func (m *Mapper) Set(t Target, value any, view *View) {
	if t.Kind != TargetPath {
		return
	}
	if t.Coercion != nil {
		value = t.Coercion.Apply(value, view, t.Path.String())
	}
	if value == nil {
		view.Remove(t.Path)
		return
	}
	view.Set(t.Path, value)
}

// Remove clears a path target. A composite coercion still yields a value for
// an absent input, which is stored instead.
func (m *Mapper) Remove(t Target, view *View) {
	if t.Kind != TargetPath {
		return
	}
	if t.Coercion != nil && t.Coercion.Composite() {
		if value := t.Coercion.Apply(nil, view, t.Path.String()); value != nil {
			view.Set(t.Path, value)
			return
		}
	}
	view.Remove(t.Path)
}

// WriteFile stores value in the file named by t, creating parent folders.
func (m *Mapper) WriteFile(t Target, value any) {
	if t.Kind != TargetFile || value == nil {
		return
	}
	if info, err := m.fs.Stat(t.Key); err == nil && info.IsDir() {
		logger.Warn("unable to write file - path is a folder", zap.String("file", t.Key))
		return
	}
	if err := m.fs.MkdirAll(filepath.Dir(t.Key), 0755); err != nil {
		logger.Error("unable to create folder", zap.String("file", t.Key), zap.Error(err))
		return
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	case map[string]any, []any:
		b, err := json.Marshal(v)
		if err != nil {
			logger.Error("unable to serialize file content", zap.String("file", t.Key), zap.Error(err))
			return
		}
		data = b
	default:
		data = []byte(fmt.Sprint(v))
	}
	if err := afero.WriteFile(m.fs, t.Key, data, os.FileMode(0644)); err != nil {
		logger.Error("unable to write file", zap.String("file", t.Key), zap.Error(err))
	}
}
