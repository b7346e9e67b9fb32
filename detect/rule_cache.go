package detect

import (
	"errors"
	"time"

	"alertfilter/core"
	"alertfilter/metrics"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"
)

// RuleCacheConfig holds configuration options for the parsed rule cache.
type RuleCacheConfig struct {
	// MaxEntries is the maximum number of parsed rules to keep (0 = use default)
	MaxEntries int
	// TTL is the time-to-live for cache entries (0 = no expiration)
	TTL time.Duration
	// Limits bounds the trees the cache will parse
	Limits core.RuleLimits
}

// DefaultRuleCacheConfig returns the defaults used by the service.
func DefaultRuleCacheConfig() RuleCacheConfig {
	return RuleCacheConfig{
		MaxEntries: 1000,
		TTL:        30 * time.Minute,
		Limits:     core.DefaultRuleLimits(),
	}
}

// cachedRule is a parse result together with the document it came from.
// Parse failures are cached too so a broken stored rule is parsed once.
type cachedRule struct {
	source string
	node   core.RuleNode
	err    error
}

// RuleCache memoizes parsed rule trees by key. An entry is reused only
// while the stored document is byte-identical to the one that produced it,
// so writes from other processes are picked up on the next lookup.
//
// RuleCache is safe for concurrent use.
type RuleCache struct {
	lru    *expirable.LRU[string, cachedRule]
	limits core.RuleLimits
	logger *zap.SugaredLogger
}

// NewRuleCache creates a parsed rule cache.
func NewRuleCache(cfg RuleCacheConfig, logger *zap.SugaredLogger) *RuleCache {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = DefaultRuleCacheConfig().MaxEntries
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &RuleCache{
		lru:    expirable.NewLRU[string, cachedRule](cfg.MaxEntries, nil, cfg.TTL),
		limits: cfg.Limits,
		logger: logger,
	}
}

// Get returns the parsed tree for document, parsing it on a miss.
func (c *RuleCache) Get(key string, document []byte) (core.RuleNode, error) {
	if entry, ok := c.lru.Get(key); ok && entry.source == string(document) {
		metrics.CacheHits.WithLabelValues("rules").Inc()
		return entry.node, entry.err
	}
	metrics.CacheMisses.WithLabelValues("rules").Inc()

	node, err := core.ParseRule(document, c.limits)
	if err != nil {
		metrics.RecordParseError(parseErrorReason(err))
		c.logger.Warnw("Stored rule failed to parse", "key", key, "error", err)
	}

	c.lru.Add(key, cachedRule{source: string(document), node: node, err: err})
	metrics.UpdateRuleCacheSize(c.lru.Len())
	return node, err
}

// Invalidate drops the entry for key.
func (c *RuleCache) Invalidate(key string) {
	c.lru.Remove(key)
	metrics.UpdateRuleCacheSize(c.lru.Len())
}

// Purge drops all entries.
func (c *RuleCache) Purge() {
	c.lru.Purge()
	metrics.UpdateRuleCacheSize(0)
}

// Len returns the number of cached entries.
func (c *RuleCache) Len() int {
	return c.lru.Len()
}

func parseErrorReason(err error) string {
	switch {
	case errors.Is(err, core.ErrRuleSyntax):
		return "syntax"
	case errors.Is(err, core.ErrRuleTooDeep):
		return "too_deep"
	case errors.Is(err, core.ErrRuleTooLarge):
		return "too_large"
	default:
		return "other"
	}
}
