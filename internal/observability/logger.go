package observability

import (
	"go.uber.org/zap"
)

// NewLogger builds the process-wide structured logger. Development mode uses
// console encoding; anything else gets production JSON output.
func NewLogger(env string) (*zap.Logger, error) {
	if env == "development" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
