package core

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// ParseRule parses a rule document (JSON or YAML) into a typed tree.
//
// The document is a mapping whose keys are connective names or field paths.
// A connective maps to a list of child mappings or to a mapping of children;
// a field path maps to a string or a list of strings. A mapping with several
// keys contributes one child per key in document order, and a root with
// several keys is an implicit AND. An empty document ({}, [], null or blank)
// yields a nil tree, meaning no rule.
//
// Fragments that cannot be interpreted become *Malformed nodes rather than
// errors. Errors are returned only for unparseable documents and for trees
// that exceed limits.
func ParseRule(data []byte, limits RuleLimits) (RuleNode, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		// Some valid JSON (e.g. tab-indented) is not valid YAML.
		var v interface{}
		if jsonErr := json.Unmarshal(data, &v); jsonErr != nil {
			return nil, fmt.Errorf("%w: %v", ErrRuleSyntax, err)
		}
		return RuleFromValue(v, limits)
	}

	return buildRule(&doc, limits)
}

// RuleFromValue builds a tree from already decoded values such as the result
// of json.Unmarshal into interface{}. Go maps carry no key order, so keys are
// visited in sorted order.
func RuleFromValue(v interface{}, limits RuleLimits) (RuleNode, error) {
	if v == nil {
		return nil, nil
	}
	var doc yaml.Node
	if err := doc.Encode(v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRuleSyntax, err)
	}
	return buildRule(&doc, limits)
}

func buildRule(doc *yaml.Node, limits RuleLimits) (RuleNode, error) {
	root := resolve(doc)
	if root.Kind == yaml.DocumentNode {
		if len(root.Content) == 0 {
			return nil, nil
		}
		root = resolve(root.Content[0])
	}

	b := &ruleBuilder{limits: limits.withDefaults()}

	var entries []RuleNode
	var err error
	switch root.Kind {
	case yaml.ScalarNode:
		if root.Tag == "!!null" {
			return nil, nil
		}
		return &Malformed{Reason: "rule document must be a mapping"}, nil
	case yaml.SequenceNode:
		entries, err = b.children(root, 1)
	default:
		entries, err = b.entries(root, 1)
	}
	if err != nil {
		return nil, err
	}

	switch len(entries) {
	case 0:
		return nil, nil
	case 1:
		return entries[0], nil
	default:
		return &Connective{Op: OpAND, Children: entries}, nil
	}
}

type ruleBuilder struct {
	limits RuleLimits
	count  int
}

func (b *ruleBuilder) take(n int) error {
	b.count += n
	if b.count > b.limits.MaxNodes {
		return fmt.Errorf("%w (limit %d)", ErrRuleTooLarge, b.limits.MaxNodes)
	}
	return nil
}

// entries turns each key of a mapping into one node at the given depth.
func (b *ruleBuilder) entries(n *yaml.Node, depth int) ([]RuleNode, error) {
	n = resolve(n)
	if n.Kind != yaml.MappingNode {
		if err := b.take(1); err != nil {
			return nil, err
		}
		return []RuleNode{&Malformed{Reason: "expected a mapping"}}, nil
	}

	nodes := make([]RuleNode, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		node, err := b.entry(resolve(n.Content[i]).Value, resolve(n.Content[i+1]), depth)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

// children collects the nodes of a connective value: the entries of a
// mapping, or the concatenated entries of each mapping in a list.
func (b *ruleBuilder) children(n *yaml.Node, depth int) ([]RuleNode, error) {
	if n.Kind == yaml.MappingNode {
		return b.entries(n, depth)
	}

	var nodes []RuleNode
	for _, item := range n.Content {
		more, err := b.entries(item, depth)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, more...)
	}
	return nodes, nil
}

func (b *ruleBuilder) entry(key string, val *yaml.Node, depth int) (RuleNode, error) {
	if depth > b.limits.MaxDepth {
		return nil, fmt.Errorf("%w (limit %d)", ErrRuleTooDeep, b.limits.MaxDepth)
	}
	if err := b.take(1); err != nil {
		return nil, err
	}

	if op, ok := ParseOperator(key); ok {
		if val.Kind != yaml.MappingNode && val.Kind != yaml.SequenceNode {
			return &Malformed{Key: key, Reason: "connective value must be a list or mapping"}, nil
		}
		children, err := b.children(val, depth+1)
		if err != nil {
			return nil, err
		}
		return &Connective{Op: op, Children: children}, nil
	}

	values, ok := scalarValues(val)
	if !ok {
		return &Malformed{Key: key, Reason: "lookup value must be a string or list of strings"}, nil
	}
	if err := b.take(len(values)); err != nil {
		return nil, err
	}
	return &Predicate{Field: FieldPath(key), Values: values}, nil
}

func scalarValues(n *yaml.Node) ([]string, bool) {
	switch n.Kind {
	case yaml.ScalarNode:
		if n.Tag == "!!null" {
			return nil, false
		}
		return []string{n.Value}, true
	case yaml.SequenceNode:
		values := make([]string, 0, len(n.Content))
		for _, item := range n.Content {
			item = resolve(item)
			if item.Kind != yaml.ScalarNode || item.Tag == "!!null" {
				return nil, false
			}
			values = append(values, item.Value)
		}
		return values, true
	default:
		return nil, false
	}
}

func resolve(n *yaml.Node) *yaml.Node {
	for n != nil && n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	return n
}

// MarshalRule encodes a tree in the list form of the external representation,
// e.g. {"AND":[{"NOT":[{"EventTag.name":["%osint%"]}]}]}. A nil tree encodes
// as []. Malformed nodes cannot be encoded.
func MarshalRule(node RuleNode) ([]byte, error) {
	if node == nil {
		return []byte("[]"), nil
	}
	v, err := ruleValue(node)
	if err != nil {
		return nil, err
	}
	return json.Marshal(v)
}

func ruleValue(node RuleNode) (map[string]interface{}, error) {
	switch n := node.(type) {
	case *Connective:
		children := make([]interface{}, 0, len(n.Children))
		for _, child := range n.Children {
			v, err := ruleValue(child)
			if err != nil {
				return nil, err
			}
			children = append(children, v)
		}
		return map[string]interface{}{string(n.Op): children}, nil
	case *Predicate:
		values := n.Values
		if values == nil {
			values = []string{}
		}
		return map[string]interface{}{string(n.Field): values}, nil
	case *Malformed:
		return nil, &RuleError{Path: n.Key, Reason: n.Reason}
	default:
		return nil, fmt.Errorf("%w: unsupported node type %T", ErrInvalidRule, node)
	}
}
