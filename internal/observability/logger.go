package observability

import (
	"fmt"

	"go.uber.org/zap"
)

// NewLogger builds the process logger. "json" selects the production encoder;
// anything else gets the human-readable development logger.
func NewLogger(format string) (*zap.Logger, error) {
	var (
		logger *zap.Logger
		err    error
	)

	if format == "json" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}

	if err != nil {
		return nil, fmt.Errorf("build %s logger: %w", format, err)
	}

	return logger, nil
}
