package profile

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/goccy/go-yaml"

	"github.com/jaydenhoang5291/ue-profile/internal/document"
)

// EncodeYAML writes v as YAML. Documents keep their member order.
func EncodeYAML(w io.Writer, v any) error {
	if doc, ok := v.(document.Value); ok {
		v = orderedYAML(doc)
	}
	enc := yaml.NewEncoder(w, yaml.Indent(2))
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to write YAML: %w", err)
	}
	return enc.Close()
}

// ExportYAML writes v to filename, creating parent directories.
func ExportYAML(filename string, v any) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	return EncodeYAML(f, v)
}

func orderedYAML(v document.Value) any {
	switch v.Kind() {
	case document.KindObject:
		out := make(yaml.MapSlice, 0, v.Len())
		for _, k := range v.Keys() {
			f, _ := v.Field(k)
			out = append(out, yaml.MapItem{Key: k, Value: orderedYAML(f)})
		}
		return out
	case document.KindArray:
		items := v.Items()
		out := make([]any, len(items))
		for i, it := range items {
			out[i] = orderedYAML(it)
		}
		return out
	default:
		return v.ToAny()
	}
}
