package dispatch

import (
	"github.com/goliatone/go-logger/glog"
)

// GlogAdapter bridges a go-logger instance into the engine's Logger
// contract so hosts already carrying glog can inject it directly.
type GlogAdapter struct {
	logger glog.Logger
}

// NewGlogAdapter wraps logger; a nil logger falls back to FmtLogger
// behavior through the zero-value guard on each call.
func NewGlogAdapter(logger glog.Logger) *GlogAdapter {
	return &GlogAdapter{logger: logger}
}

func (a *GlogAdapter) Debug(msg string, args ...any) {
	if a == nil || a.logger == nil {
		NewFmtLogger(nil).Debug(msg, args...)
		return
	}
	a.logger.Debug(msg, args...)
}

func (a *GlogAdapter) Info(msg string, args ...any) {
	if a == nil || a.logger == nil {
		NewFmtLogger(nil).Info(msg, args...)
		return
	}
	a.logger.Info(msg, args...)
}

func (a *GlogAdapter) Warn(msg string, args ...any) {
	if a == nil || a.logger == nil {
		NewFmtLogger(nil).Warn(msg, args...)
		return
	}
	a.logger.Warn(msg, args...)
}

func (a *GlogAdapter) Error(msg string, args ...any) {
	if a == nil || a.logger == nil {
		NewFmtLogger(nil).Error(msg, args...)
		return
	}
	a.logger.Error(msg, args...)
}
