package logger

import (
	"go.uber.org/zap"
)

// New builds a production-configured sugared logger tagged with the service
// name. Repeated messages (e.g. per-write admission rejections under sustained
// pressure) are calmed by zap's built-in sampling.
func New(service string) *zap.SugaredLogger {
	config := zap.NewProductionConfig()
	config.DisableStacktrace = true
	config.OutputPaths = []string{"stderr"}

	log := zap.Must(config.Build())
	return log.Sugar().With("service", service)
}
