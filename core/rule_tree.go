package core

import (
	"fmt"
	"strings"
)

// Operator is a boolean connective name.
type Operator string

const (
	OpAND Operator = "AND"
	OpOR  Operator = "OR"
	OpNOT Operator = "NOT"
)

// ParseOperator maps a rule key to a connective. Matching is case-sensitive.
func ParseOperator(s string) (Operator, bool) {
	switch Operator(s) {
	case OpAND, OpOR, OpNOT:
		return Operator(s), true
	default:
		return "", false
	}
}

// NodeKind discriminates the variants of RuleNode.
type NodeKind int

const (
	KindConnective NodeKind = iota
	KindPredicate
	KindMalformed
)

// String returns the string representation of the node kind.
func (k NodeKind) String() string {
	switch k {
	case KindConnective:
		return "connective"
	case KindPredicate:
		return "predicate"
	case KindMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// RuleNode is a node of a parsed rule tree. The variants are *Connective,
// *Predicate and *Malformed; the set is closed.
type RuleNode interface {
	Kind() NodeKind
	ruleNode()
}

// Connective combines the results of its children in order.
type Connective struct {
	Op       Operator
	Children []RuleNode
}

// Predicate tests the values found at Field against Values.
// Field may be a path outside KnownFieldPaths; such predicates never match.
type Predicate struct {
	Field  FieldPath
	Values []string
}

// Malformed stands in for a rule fragment that could not be interpreted.
// It always evaluates to false.
type Malformed struct {
	Key    string
	Reason string
}

func (*Connective) Kind() NodeKind { return KindConnective }
func (*Predicate) Kind() NodeKind  { return KindPredicate }
func (*Malformed) Kind() NodeKind  { return KindMalformed }

func (*Connective) ruleNode() {}
func (*Predicate) ruleNode()  {}
func (*Malformed) ruleNode()  {}

// RuleLimits bounds the size of rule trees accepted by the parser.
type RuleLimits struct {
	// MaxDepth is the deepest nesting level allowed; the root entries are level 1
	MaxDepth int
	// MaxNodes bounds the number of nodes plus lookup values in one tree
	MaxNodes int
}

const (
	DefaultMaxRuleDepth = 32
	DefaultMaxRuleNodes = 1024
)

// DefaultRuleLimits returns the limits used when none are configured.
func DefaultRuleLimits() RuleLimits {
	return RuleLimits{
		MaxDepth: DefaultMaxRuleDepth,
		MaxNodes: DefaultMaxRuleNodes,
	}
}

func (l RuleLimits) withDefaults() RuleLimits {
	if l.MaxDepth <= 0 {
		l.MaxDepth = DefaultMaxRuleDepth
	}
	if l.MaxNodes <= 0 {
		l.MaxNodes = DefaultMaxRuleNodes
	}
	return l
}

// ValidateRule walks a parsed tree and returns a *RuleError for the first
// malformed node, unknown field path or predicate without lookup values.
// A nil tree is valid.
func ValidateRule(node RuleNode) error {
	return validateNode(node, "")
}

func validateNode(node RuleNode, path string) error {
	switch n := node.(type) {
	case nil:
		return nil
	case *Connective:
		for i, child := range n.Children {
			if err := validateNode(child, fmt.Sprintf("%s%s[%d]", prefix(path), n.Op, i)); err != nil {
				return err
			}
		}
		return nil
	case *Predicate:
		p := prefix(path) + string(n.Field)
		if !n.Field.IsKnown() {
			return &RuleError{Path: p, Reason: fmt.Sprintf("unknown field path %q", n.Field)}
		}
		if len(n.Values) == 0 {
			return &RuleError{Path: p, Reason: "no lookup values"}
		}
		return nil
	case *Malformed:
		return &RuleError{Path: prefix(path) + n.Key, Reason: n.Reason}
	default:
		return &RuleError{Path: path, Reason: fmt.Sprintf("unsupported node type %T", node)}
	}
}

func prefix(path string) string {
	if path == "" {
		return ""
	}
	return path + "."
}

// CountNodes returns the number of nodes in a tree, not counting lookup values.
func CountNodes(node RuleNode) int {
	switch n := node.(type) {
	case *Connective:
		count := 1
		for _, child := range n.Children {
			count += CountNodes(child)
		}
		return count
	case *Predicate, *Malformed:
		return 1
	default:
		return 0
	}
}

// FormatRule renders a tree as an indented outline, one node per line.
func FormatRule(node RuleNode) string {
	if node == nil {
		return "(no rule)\n"
	}
	var sb strings.Builder
	formatNode(&sb, node, 0)
	return sb.String()
}

func formatNode(sb *strings.Builder, node RuleNode, depth int) {
	indent := strings.Repeat("  ", depth)
	switch n := node.(type) {
	case *Connective:
		fmt.Fprintf(sb, "%s%s\n", indent, n.Op)
		for _, child := range n.Children {
			formatNode(sb, child, depth+1)
		}
	case *Predicate:
		fmt.Fprintf(sb, "%s%s in [%s]\n", indent, n.Field, strings.Join(n.Values, ", "))
	case *Malformed:
		fmt.Fprintf(sb, "%s!malformed %q: %s\n", indent, n.Key, n.Reason)
	}
}
