package detect

import (
	"time"

	"alertfilter/core"
	"alertfilter/metrics"

	"go.uber.org/zap"
)

// Evaluation outcomes reported to metrics.
const (
	ResultMatch          = "match"
	ResultNoMatch        = "no_match"
	ResultNoRule         = "no_rule"
	ResultBudgetExceeded = "budget_exceeded"
)

// Evaluator decides whether an event satisfies a parsed rule tree.
//
// Connectives fold their children left to right, seeded with the first
// child's result:
//   - OR:  running || next
//   - AND: running && next
//   - NOT: seeded with !first, then running && !next, i.e. true only when
//     no child holds (NOR over the children)
//
// Connectives without children evaluate to their identity: AND and NOT are
// true, OR is false. Malformed nodes evaluate to false.
//
// An Evaluator holds no per-call state and is safe for concurrent use.
type Evaluator struct {
	logger   *zap.SugaredLogger
	maxNodes int
}

// EvaluatorOption configures an Evaluator.
type EvaluatorOption func(*Evaluator)

// WithMaxNodes caps the number of nodes visited in one evaluation. A call
// that exceeds the cap returns false.
func WithMaxNodes(n int) EvaluatorOption {
	return func(e *Evaluator) {
		if n > 0 {
			e.maxNodes = n
		}
	}
}

// NewEvaluator creates an evaluator. A nil logger disables logging.
func NewEvaluator(logger *zap.SugaredLogger, opts ...EvaluatorOption) *Evaluator {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	e := &Evaluator{
		logger:   logger,
		maxNodes: core.DefaultMaxRuleNodes,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate returns the boolean result of rule against event. A nil rule
// evaluates to false; callers treating "no rule" as permissive must check
// for nil first.
func (e *Evaluator) Evaluate(rule core.RuleNode, event *core.Event) bool {
	start := time.Now()

	if rule == nil {
		metrics.RecordRuleEvaluation(ResultNoRule, time.Since(start).Seconds())
		return false
	}

	state := &evalState{
		event:     event,
		budget:    e.maxNodes,
		norm:      newNormalizer(),
		extracted: make(map[core.FieldPath][]string),
		logger:    e.logger,
	}
	matched := state.eval(rule)

	result := ResultNoMatch
	switch {
	case state.exceeded:
		matched = false
		result = ResultBudgetExceeded
		e.logger.Warnw("Rule evaluation exceeded node budget",
			"budget", e.maxNodes,
			"nodes", core.CountNodes(rule))
	case matched:
		result = ResultMatch
	}
	metrics.RecordRuleEvaluation(result, time.Since(start).Seconds())

	return matched
}

// evalState carries the per-call budget and the normalized extraction cache.
type evalState struct {
	event     *core.Event
	budget    int
	visited   int
	exceeded  bool
	norm      *normalizer
	extracted map[core.FieldPath][]string
	logger    *zap.SugaredLogger
}

func (s *evalState) eval(node core.RuleNode) bool {
	if s.exceeded {
		return false
	}
	s.visited++
	if s.visited > s.budget {
		s.exceeded = true
		return false
	}

	switch n := node.(type) {
	case *core.Connective:
		return s.connective(n)
	case *core.Predicate:
		return s.predicate(n)
	case *core.Malformed:
		return false
	default:
		return false
	}
}

func (s *evalState) connective(c *core.Connective) bool {
	if len(c.Children) == 0 {
		return emptyConnective(c.Op)
	}

	first := s.eval(c.Children[0])
	var running bool
	switch c.Op {
	case core.OpAND, core.OpOR:
		running = first
	case core.OpNOT:
		running = !first
	default:
		s.logger.Debugw("Unknown connective evaluates to false", "operator", c.Op)
		return false
	}

	for _, child := range c.Children[1:] {
		// Later children cannot change a settled result.
		if (c.Op == core.OpOR && running) || (c.Op != core.OpOR && !running) {
			break
		}
		next := s.eval(child)
		switch c.Op {
		case core.OpAND:
			running = running && next
		case core.OpOR:
			running = running || next
		case core.OpNOT:
			running = running && !next
		}
	}
	return running
}

// emptyConnective returns the identity of op over zero children.
func emptyConnective(op core.Operator) bool {
	switch op {
	case core.OpAND, core.OpNOT:
		return true
	default:
		return false
	}
}

func (s *evalState) predicate(p *core.Predicate) bool {
	if len(p.Values) == 0 {
		return false
	}
	values := s.values(p.Field)
	if len(values) == 0 {
		return false
	}

	for _, raw := range p.Values {
		l := s.norm.parseLookup(raw)
		for _, v := range values {
			if l.matches(v) {
				return true
			}
		}
	}
	return false
}

// values returns the normalized values at path, extracting each path once per call.
func (s *evalState) values(path core.FieldPath) []string {
	if v, ok := s.extracted[path]; ok {
		return v
	}
	raw := core.ExtractValues(path, s.event)
	normalized := make([]string, len(raw))
	for i, v := range raw {
		normalized[i] = s.norm.normalize(v)
	}
	s.extracted[path] = normalized
	return normalized
}
