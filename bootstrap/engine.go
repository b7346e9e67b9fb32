package bootstrap

import (
	"alertfilter/config"
	"alertfilter/core"
	"alertfilter/detect"

	"go.uber.org/zap"
)

// EngineComponents holds the rule evaluator and the parsed rule cache.
type EngineComponents struct {
	Limits    core.RuleLimits
	Evaluator *detect.Evaluator
	RuleCache *detect.RuleCache
}

// RuleLimits converts the engine configuration into parser limits.
func RuleLimits(cfg *config.Config) core.RuleLimits {
	return core.RuleLimits{
		MaxDepth: cfg.Engine.MaxDepth,
		MaxNodes: cfg.Engine.MaxNodes,
	}
}

// InitEngine creates the evaluator and the rule cache from configuration.
func InitEngine(cfg *config.Config, sugar *zap.SugaredLogger) *EngineComponents {
	limits := RuleLimits(cfg)

	evaluator := detect.NewEvaluator(sugar, detect.WithMaxNodes(cfg.Engine.MaxNodes))
	ruleCache := detect.NewRuleCache(detect.RuleCacheConfig{
		MaxEntries: cfg.Engine.CacheSize,
		TTL:        cfg.Engine.CacheTTL,
		Limits:     limits,
	}, sugar)

	sugar.Infow("Rule engine initialized",
		"max_depth", limits.MaxDepth,
		"max_nodes", limits.MaxNodes,
		"cache_size", cfg.Engine.CacheSize,
		"cache_ttl", cfg.Engine.CacheTTL)

	return &EngineComponents{
		Limits:    limits,
		Evaluator: evaluator,
		RuleCache: ruleCache,
	}
}
