package sweeper

import (
	"time"

	"go.uber.org/zap"
)

// every is a cron.Schedule that fires a constant interval after each run.
// Unlike cron.Every it keeps sub-second precision.
type every time.Duration

// Next implements cron.Schedule.
func (d every) Next(t time.Time) time.Time {
	return t.Add(time.Duration(d))
}

// cronLogger adapts zap to cron.Logger. Scheduler chatter goes to debug.
type cronLogger struct {
	logger *zap.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}
