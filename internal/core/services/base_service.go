package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/SscSPs/koperasi_core/internal/platform/clock"
	"github.com/SscSPs/koperasi_core/internal/platform/logging"
	"github.com/google/uuid"
)

// BaseService provides common functionality for all services
type BaseService struct {
	clock clock.Clock
	newID func() string
}

// serviceOptions collects the optional dependencies shared by all services.
type serviceOptions struct {
	clock    clock.Clock
	newID    func() string
	observer CalculationObserver
}

// ServiceOption is a functional option for configuring services.
type ServiceOption func(*serviceOptions)

// WithClock replaces the wall clock.
func WithClock(c clock.Clock) ServiceOption {
	return func(o *serviceOptions) {
		o.clock = c
	}
}

// WithIDGenerator replaces uuid.NewString as the id source.
func WithIDGenerator(fn func() string) ServiceOption {
	return func(o *serviceOptions) {
		o.newID = fn
	}
}

// WithCalculationObserver receives SHU calculation progress.
func WithCalculationObserver(observer CalculationObserver) ServiceOption {
	return func(o *serviceOptions) {
		o.observer = observer
	}
}

func applyOptions(options []ServiceOption) serviceOptions {
	opts := serviceOptions{
		clock: clock.System{},
		newID: uuid.NewString,
	}
	for _, option := range options {
		option(&opts)
	}
	return opts
}

func newBaseService(opts serviceOptions) BaseService {
	return BaseService{clock: opts.clock, newID: opts.newID}
}

// now returns the current time truncated to microseconds, the precision
// PostgreSQL stores.
func (s *BaseService) now() time.Time {
	return s.clock.Now().UTC().Truncate(time.Microsecond)
}

// GetLogger gets the logger from context or returns a default one
func (s *BaseService) GetLogger(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx)
}

// LogError logs an error with consistent formatting
func (s *BaseService) LogError(ctx context.Context, err error, msg string, keyvals ...any) {
	logger := s.GetLogger(ctx)
	args := make([]any, 0, len(keyvals)+2)
	args = append(args, slog.String("error", err.Error()))
	args = append(args, keyvals...)
	logger.Error(msg, args...)
}

// LogInfo logs an info message with consistent formatting
func (s *BaseService) LogInfo(ctx context.Context, msg string, keyvals ...any) {
	logger := s.GetLogger(ctx)
	logger.Info(msg, keyvals...)
}

// LogDebug logs a debug message with consistent formatting
func (s *BaseService) LogDebug(ctx context.Context, msg string, keyvals ...any) {
	logger := s.GetLogger(ctx)
	logger.Debug(msg, keyvals...)
}
