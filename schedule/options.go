package schedule

import (
	"fmt"
	"time"

	"github.com/goliatone/go-dispatch"
)

const (
	ErrCodeEmptyExpression   = "EMPTY_EXPRESSION"
	ErrCodeInvalidExpression = "INVALID_EXPRESSION"
	ErrCodeNilTrigger        = "NIL_TRIGGER"
)

// Parser represents a cron expression parser type
type Parser int

const (
	// StandardParser accepts five-field expressions.
	StandardParser Parser = iota
	// SecondsParser accepts six-field expressions with a leading seconds
	// field.
	SecondsParser
)

// Option defines the functional option type for the scheduler
type Option func(*Scheduler)

// WithLocation sets the timezone location for the scheduler
func WithLocation(loc *time.Location) Option {
	return func(s *Scheduler) {
		s.location = loc
	}
}

// WithLogger sets a custom logger for the scheduler
func WithLogger(logger dispatch.Logger) Option {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

// WithErrorHandler sets a custom error handler for the scheduler
func WithErrorHandler(handler func(error)) Option {
	return func(s *Scheduler) {
		s.errorHandler = handler
	}
}

// WithParser sets the type of cron expression parser to use
func WithParser(p Parser) Option {
	return func(s *Scheduler) {
		s.parser = p
	}
}

// loggerAdapter adapts our Logger interface to robfig/cron's logger
type loggerAdapter struct {
	logger dispatch.Logger
}

func (l *loggerAdapter) Info(msg string, args ...interface{}) {
	l.logger.Debug(msg, args...)
}

func (l *loggerAdapter) Error(err error, msg string, args ...interface{}) {
	if err != nil {
		l.logger.Error(fmt.Sprintf("%s: %v", fmt.Sprintf(msg, args...), err))
		return
	}
	l.logger.Error(msg, args...)
}

// errorHandlerAdapter adapts a simple error handler function to implement cron.Logger
type errorHandlerAdapter struct {
	handler func(error)
}

func (e *errorHandlerAdapter) Info(msg string, args ...interface{}) {}

func (e *errorHandlerAdapter) Error(err error, msg string, args ...interface{}) {
	if e.handler == nil {
		return
	}
	if err != nil {
		e.handler(err)
		return
	}
	e.handler(fmt.Errorf(msg, args...))
}
