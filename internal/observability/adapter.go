package observability

import "github.com/rs/zerolog"

// CallLogger adapts a zerolog.Logger to orchestrator.Logger's narrow
// interface so Controller and its collaborators can log through the
// process-wide structured logger without importing zerolog directly.
type CallLogger struct {
	log zerolog.Logger
}

func NewCallLogger(log zerolog.Logger) *CallLogger {
	return &CallLogger{log: log}
}

func (c *CallLogger) Debug(msg string, args ...interface{}) { c.log.Debug().Msgf(msg, args...) }
func (c *CallLogger) Info(msg string, args ...interface{})  { c.log.Info().Msgf(msg, args...) }
func (c *CallLogger) Warn(msg string, args ...interface{})  { c.log.Warn().Msgf(msg, args...) }
func (c *CallLogger) Error(msg string, args ...interface{}) { c.log.Error().Msgf(msg, args...) }
