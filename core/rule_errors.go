package core

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRule is returned when a rule document fails strict validation
	ErrInvalidRule = errors.New("invalid rule")

	// ErrRuleSyntax is returned when a rule document is not valid JSON or YAML
	ErrRuleSyntax = errors.New("rule document is not valid JSON or YAML")

	// ErrRuleTooDeep is returned when a rule tree nests deeper than the configured limit
	ErrRuleTooDeep = errors.New("rule tree exceeds maximum depth")

	// ErrRuleTooLarge is returned when a rule tree has more nodes than the configured limit
	ErrRuleTooLarge = errors.New("rule tree exceeds maximum node count")

	// ErrUnknownSetting is returned for setting names outside the valid settings registry
	ErrUnknownSetting = errors.New("unknown user setting")
)

// RuleError describes a structural fault at a specific location in a rule tree.
// It matches ErrInvalidRule with errors.Is.
type RuleError struct {
	// Path locates the offending node, e.g. "AND[0].NOT[1]"
	Path string
	// Reason describes what is wrong with the node
	Reason string
}

// Error implements the error interface for RuleError.
func (e *RuleError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("invalid rule: %s", e.Reason)
	}
	return fmt.Sprintf("invalid rule at %s: %s", e.Path, e.Reason)
}

// Unwrap returns ErrInvalidRule so callers can match on the sentinel.
func (e *RuleError) Unwrap() error {
	return ErrInvalidRule
}

// Is reports whether target is a RuleError for the same path.
func (e *RuleError) Is(target error) bool {
	t, ok := target.(*RuleError)
	if !ok {
		return false
	}
	return e.Path == t.Path
}
