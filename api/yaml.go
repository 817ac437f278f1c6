package api

import (
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

// FromYAML converts a parsed YAML node tree into a Value, preserving mapping
// key order. JSON documents parse through the same path since YAML is a
// superset.
func FromYAML(node *yaml.Node) (Value, error) {
	switch node.Kind {
	case yaml.DocumentNode:
		if len(node.Content) == 0 {
			return Null(), nil
		}
		return FromYAML(node.Content[0])
	case yaml.AliasNode:
		return FromYAML(node.Alias)
	case yaml.ScalarNode:
		return scalarFromYAML(node)
	case yaml.SequenceNode:
		seq := make([]Value, len(node.Content))
		for i, c := range node.Content {
			v, err := FromYAML(c)
			if err != nil {
				return Null(), err
			}
			seq[i] = v
		}
		return Seq(seq), nil
	case yaml.MappingNode:
		b := NewMap()
		for i := 0; i+1 < len(node.Content); i += 2 {
			key := node.Content[i]
			if key.Kind != yaml.ScalarNode {
				return Null(), fmt.Errorf("line %d: non-scalar mapping key", key.Line)
			}
			v, err := FromYAML(node.Content[i+1])
			if err != nil {
				return Null(), err
			}
			b.Set(key.Value, v)
		}
		return b.Value(), nil
	default:
		return Null(), fmt.Errorf("line %d: unsupported YAML node kind %d", node.Line, node.Kind)
	}
}

func scalarFromYAML(node *yaml.Node) (Value, error) {
	switch node.Tag {
	case "!!null":
		return Null(), nil
	case "!!bool":
		b, err := strconv.ParseBool(node.Value)
		if err != nil {
			return Null(), fmt.Errorf("line %d: bad bool %q", node.Line, node.Value)
		}
		return Bool(b), nil
	case "!!int", "!!float":
		f, err := strconv.ParseFloat(node.Value, 64)
		if err != nil {
			return Null(), fmt.Errorf("line %d: bad number %q", node.Line, node.Value)
		}
		return Number(f), nil
	default:
		return Str(node.Value), nil
	}
}

// ParseDocument parses a YAML or JSON document into a Value.
func ParseDocument(data []byte) (Value, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return Null(), fmt.Errorf("parse document: %w", err)
	}
	if root.Kind == 0 {
		return Null(), nil
	}
	return FromYAML(&root)
}
