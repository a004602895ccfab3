package config

import (
	"go.uber.org/zap"
)

// NewLogger builds the application logger. Production config (JSON,
// info level) everywhere except dev, which gets the human console
// encoder with debug enabled.
func NewLogger(env string) (*zap.Logger, error) {
	if env == "dev" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
