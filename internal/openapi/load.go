package openapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tarrence/oascli/specs"
)

// Parse reads a YAML or JSON document.
func Parse(data []byte) (*Document, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	if root.Kind == 0 {
		return nil, fmt.Errorf("parse document: empty input")
	}
	return NewDocument(&root)
}

// ReadSource returns the bytes of a file, or of stdin when path is "-".
func ReadSource(path string, stdin io.Reader) ([]byte, error) {
	if path == "-" {
		b, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return b, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return b, nil
}

// LoadEmbedded returns one of the bundled example files by base name.
func LoadEmbedded(name string) ([]byte, error) {
	b, err := specs.FS.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("read embedded %q: %w", name, err)
	}
	return b, nil
}

// Encode writes root as JSON when the target name ends in .json, YAML otherwise.
// JSON output orders keys alphabetically.
func Encode(w io.Writer, root *yaml.Node, name string) error {
	if strings.EqualFold(filepath.Ext(name), ".json") {
		var v any
		if err := root.Decode(&v); err != nil {
			return err
		}
		b, err := json.MarshalIndent(Normalize(v), "", "  ")
		if err != nil {
			return err
		}
		_, err = w.Write(append(b, '\n'))
		return err
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(root); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// Normalize converts map[any]any produced by generic YAML decoding into
// map[string]any so the value can be marshalled as JSON.
func Normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, e := range t {
			t[k] = Normalize(e)
		}
		return t
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[fmt.Sprint(k)] = Normalize(e)
		}
		return out
	case []any:
		for i, e := range t {
			t[i] = Normalize(e)
		}
		return t
	default:
		return v
	}
}
