package migrate

import "time"

// StepLogEvent describes one resolution step for logging.
type StepLogEvent struct {
	RunID       string
	Kind        string
	FromVersion int64
	ToVersion   int64
	Duration    time.Duration
	Err         error
}

// StepLogger records resolution steps.
type StepLogger interface {
	LogStep(StepLogEvent)
}

// StepLoggerFunc adapts a function to StepLogger.
type StepLoggerFunc func(StepLogEvent)

// LogStep implements StepLogger.
func (f StepLoggerFunc) LogStep(event StepLogEvent) {
	if f != nil {
		f(event)
	}
}

type noopStepLogger struct{}

func (noopStepLogger) LogStep(StepLogEvent) {}

// WithStepLogger attaches a step logger to the migrator configuration.
func WithStepLogger(logger StepLogger) Option {
	return func(cfg *migratorConfig) {
		if logger == nil {
			cfg.logger = noopStepLogger{}
			return
		}
		cfg.logger = logger
	}
}
