package logger

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"time"

	c "sft-ticketing-backend/context"

	"github.com/sirupsen/logrus"
)

var logger *logrus.Logger

const (
	CorrelationId = "correlation_id"
	Identity      = "identity"
)

var newlines = regexp.MustCompile(`(\n)|(\r\n)`)

func init() {
	logger = logrus.New()
	logger.SetOutput(os.Stdout)
}

// Configure sets the level and output format. Unknown levels keep the current one.
func Configure(level string, json bool) {
	if lvl, err := logrus.ParseLevel(level); err == nil {
		logger.SetLevel(lvl)
	}
	if json {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
}

func entry(ctx context.Context) *logrus.Entry {
	e := logger.WithField(CorrelationId, c.GetContextValue(ctx, c.ContextKeyCorrelationID))
	if id := c.GetContextValue(ctx, c.ContextKeyIdentity); id != "" {
		e = e.WithField(Identity, id)
	}
	return e
}

func Fatalf(ctx context.Context, format string, args ...interface{}) {
	entry(ctx).Fatalf(format, args...)
}

func Infof(ctx context.Context, format string, args ...interface{}) {
	entry(ctx).Infof(format, args...)
}

func Info(ctx context.Context, msg string) {
	entry(ctx).Info(msg)
}

func Debugf(ctx context.Context, format string, args ...interface{}) {
	entry(ctx).Debug(escapeString(format, args...))
}

func Warnf(ctx context.Context, format string, args ...interface{}) {
	entry(ctx).Warnf(format, args...)
}

func Errorf(ctx context.Context, format string, args ...interface{}) {
	entry(ctx).Error(escapeString(format, args...))
}

// LogExecutionTime is meant to be deferred with the start time of the measured call.
func LogExecutionTime(ctx context.Context, start time.Time, msg string) {
	entry(ctx).WithField("elapsed_ms", time.Since(start).Milliseconds()).Infof("%s took %s", msg, time.Since(start))
}

func escapeString(format string, args ...interface{}) string {
	errorMessage := fmt.Sprintf(format, args...)
	return newlines.ReplaceAllString(errorMessage, "\\n ")
}
