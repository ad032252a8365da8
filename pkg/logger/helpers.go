package logger

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// LogRequest logs an outbound HTTP request
func LogRequest(method, url string, statusCode int, duration time.Duration) {
	fields := map[string]interface{}{
		"method":      method,
		"url":         url,
		"status_code": statusCode,
		"duration":    duration,
	}
	if statusCode >= 400 || statusCode == 0 {
		GetLogger().WarnWithFields("HTTP request failed", fields)
		return
	}
	GetLogger().DebugWithFields("HTTP request completed", fields)
}

// LogComponentStart logs component startup
func LogComponentStart(component string, config map[string]interface{}) {
	fields := map[string]interface{}{"component": component}
	for k, v := range config {
		fields[k] = v
	}
	GetLogger().InfoWithFields("component started", fields)
}

// LogComponentStop logs component shutdown
func LogComponentStop(component string, reason string) {
	GetLogger().InfoWithFields("component stopped", map[string]interface{}{
		"component": component,
		"reason":    reason,
	})
}

// NewNopLogger returns a logger that discards everything
func NewNopLogger() Logger {
	return &nopLogger{}
}

type nopLogger struct{}

func (n *nopLogger) Debug(msg string)                                          {}
func (n *nopLogger) Info(msg string)                                           {}
func (n *nopLogger) Warn(msg string)                                           {}
func (n *nopLogger) Error(msg string)                                          {}
func (n *nopLogger) Fatal(msg string)                                          {}
func (n *nopLogger) WithField(key string, value interface{}) Logger            { return n }
func (n *nopLogger) WithFields(fields map[string]interface{}) Logger           { return n }
func (n *nopLogger) WithError(err error) Logger                                { return n }
func (n *nopLogger) WithContext(ctx context.Context) Logger                    { return n }
func (n *nopLogger) DebugWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) InfoWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) WarnWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) ErrorWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) FatalWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) GetZerolog() *zerolog.Logger                               { return nil }
