package bootstrap

import (
	"fmt"
	"os"

	"alertfilter/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// InitLogger initializes the zap logger with colored console output on
// stderr, keeping stdout free for command output.
func InitLogger(level zapcore.Level) (*zap.Logger, *zap.SugaredLogger, error) {
	encoderConfig := zap.NewDevelopmentEncoderConfig()
	encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.Lock(zapcore.AddSync(os.Stderr)),
		level,
	)

	logger := zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	return logger, logger.Sugar(), nil
}

// InitConfig loads the application configuration from path, or from the
// default locations when path is empty.
func InitConfig(path string, sugar *zap.SugaredLogger) (*config.Config, error) {
	cfg, err := config.LoadConfigFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if cfg.ConfigFileUsed() == "" {
		sugar.Info("No config file found, using defaults and env vars")
	} else {
		sugar.Infow("Config file loaded", "path", cfg.ConfigFileUsed())
	}

	startupMode := cfg.StartupMode
	if startupMode == "" {
		startupMode = config.StartupModeStrict
	}
	sugar.Infow("Startup mode",
		"mode", string(startupMode),
		"description", func() string {
			if startupMode == config.StartupModeGraceful {
				return "will continue without the Redis cache if it is unreachable"
			}
			return "will fail fast on any initialization error"
		}())

	sugar.Infow("Config loaded",
		"data_dir", cfg.GetDataDir(),
		"sqlite_path", cfg.GetSQLitePath(),
		"listen_addr", cfg.ListenAddr(),
		"auth_enabled", cfg.Auth.Enabled,
		"redis_enabled", cfg.Redis.Enabled,
		"max_rule_depth", cfg.Engine.MaxDepth,
		"max_rule_nodes", cfg.Engine.MaxNodes)

	if !cfg.Auth.Enabled {
		sugar.Warn("API authentication is disabled; the X-User-ID header is trusted as the acting user")
	}

	return cfg, nil
}
