package mask

import (
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

// UnmarshalYAML decodes any YAML node into a Value, keeping mapping order.
func (v *Value) UnmarshalYAML(node *yaml.Node) error {
	out, err := fromNode(node)
	if err != nil {
		return err
	}
	*v = out
	return nil
}

// MarshalYAML emits an ordered node tree.
func (v Value) MarshalYAML() (any, error) {
	return toNode(v), nil
}

func fromNode(node *yaml.Node) (Value, error) {
	if node == nil {
		return Null(), nil
	}
	switch node.Kind {
	case yaml.DocumentNode:
		if len(node.Content) == 0 {
			return Null(), nil
		}
		return fromNode(node.Content[0])
	case yaml.AliasNode:
		return fromNode(node.Alias)
	case yaml.SequenceNode:
		items := make([]Value, 0, len(node.Content))
		for _, child := range node.Content {
			item, err := fromNode(child)
			if err != nil {
				return Value{}, err
			}
			items = append(items, item)
		}
		return Value{kind: KindList, list: items}, nil
	case yaml.MappingNode:
		m := NewMap()
		for idx := 0; idx+1 < len(node.Content); idx += 2 {
			key := node.Content[idx].Value
			item, err := fromNode(node.Content[idx+1])
			if err != nil {
				return Value{}, err
			}
			m.Set(key, item)
		}
		return FromMap(m), nil
	case yaml.ScalarNode:
		switch node.ShortTag() {
		case "!!null":
			return Null(), nil
		case "!!bool":
			var b bool
			if err := node.Decode(&b); err != nil {
				return Value{}, fmt.Errorf("mask: decode yaml bool at line %d: %w", node.Line, err)
			}
			return Bool(b), nil
		case "!!int":
			var i int64
			if err := node.Decode(&i); err != nil {
				return Value{}, fmt.Errorf("mask: decode yaml int at line %d: %w", node.Line, err)
			}
			return Int(i), nil
		case "!!float":
			var f float64
			if err := node.Decode(&f); err != nil {
				return Value{}, fmt.Errorf("mask: decode yaml float at line %d: %w", node.Line, err)
			}
			return Float(f), nil
		default:
			return String(node.Value), nil
		}
	default:
		return Value{}, fmt.Errorf("mask: unsupported yaml node kind %d", node.Kind)
	}
}

func toNode(v Value) *yaml.Node {
	switch v.kind {
	case KindNull:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
	case KindBool:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(v.b)}
	case KindInt:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.FormatInt(v.i, 10)}
	case KindFloat:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: formatFloat(v.f)}
	case KindString:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v.s}
	case KindList:
		node := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, item := range v.list {
			node.Content = append(node.Content, toNode(item))
		}
		return node
	case KindMap:
		node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		v.m.Range(func(key string, value Value) bool {
			node.Content = append(node.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
				toNode(value),
			)
			return true
		})
		return node
	default:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
	}
}
