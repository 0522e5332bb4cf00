package telemetry

import "go.uber.org/zap"

// NewLogger returns a development logger (console, debug level) or the
// production JSON logger.
func NewLogger(development bool) (*zap.Logger, error) {
	if development {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
