package logger

import (
	"fmt"

	"github.com/thetyagiayush/warhol-ringmaster/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds the console logger. JSON output is used in production or
// when logging.format is json; otherwise a colored development console.
// logging.output selects stdout, stderr or a file path.
func NewLogger(cfg *config.LoggingConfig, appCfg *config.AppConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid logging.level %q: %w", cfg.Level, err)
	}

	var zapCfg zap.Config
	if cfg.Format == "json" || appCfg.Environment == "production" {
		zapCfg = zap.NewProductionConfig()
		zapCfg.EncoderConfig.TimeKey = "ts"
		zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	if cfg.Output != "" {
		zapCfg.OutputPaths = []string{cfg.Output}
	}

	zapCfg.InitialFields = map[string]interface{}{
		"app":         appCfg.Name,
		"environment": appCfg.Environment,
	}

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	return logger, nil
}

// WithRequest adds request context to logger
func WithRequest(logger *zap.Logger, method, path, requestID string) *zap.Logger {
	return logger.With(
		zap.String("method", method),
		zap.String("path", path),
		zap.String("request_id", requestID),
	)
}

// WithBackendCall scopes logger to one calling backend request
func WithBackendCall(logger *zap.Logger, op, method, path string) *zap.Logger {
	return logger.Named("backend").With(
		zap.String("operation", op),
		zap.String("method", method),
		zap.String("path", path),
	)
}

// WithBlast adds dispatch context to logger
func WithBlast(logger *zap.Logger, runID string, recipients, batches int) *zap.Logger {
	return logger.Named("blast").With(
		zap.String("run_id", runID),
		zap.Int("recipients", recipients),
		zap.Int("total_batches", batches),
	)
}
