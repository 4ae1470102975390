package property

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadYAML reads a YAML document from path and flattens it into a Map.
func LoadYAML(path string) (Map, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	m, err := ParseYAML(f)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return m, nil
}

// ParseYAML decodes one YAML document and flattens nested mappings into
// dotted paths:
//
//	server:
//	  executors:
//	    scheduled: 4      -> server.executors.scheduled = 4
//
// Sequences are kept as []any values at their path. An empty document yields
// an empty Map.
func ParseYAML(r io.Reader) (Map, error) {
	var doc map[string]any
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	m := make(Map)
	flatten(m, "", doc)
	return m, nil
}

func flatten(dst Map, prefix string, v any) {
	switch node := v.(type) {
	case map[string]any:
		for k, child := range node {
			flatten(dst, join(prefix, k), child)
		}
	case map[any]any:
		for k, child := range node {
			flatten(dst, join(prefix, fmt.Sprint(k)), child)
		}
	default:
		if prefix != "" {
			dst[Normalize(prefix)] = node
		}
	}
}

func join(prefix, key string) string {
	key = strings.TrimSpace(key)
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}
