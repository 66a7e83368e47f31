package logger

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// GormAdapter bridges gorm's logger interface to zap
type GormAdapter struct {
	logger        *zap.Logger
	level         gormlogger.LogLevel
	slowThreshold time.Duration
}

// NewGormAdapter creates a gorm logger backed by zap
func NewGormAdapter(logger *zap.Logger) *GormAdapter {
	return &GormAdapter{
		logger:        logger,
		level:         gormlogger.Warn,
		slowThreshold: 200 * time.Millisecond,
	}
}

// LogMode returns a copy with the given log level
func (a *GormAdapter) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *a
	clone.level = level
	return &clone
}

// Info logs informational messages
func (a *GormAdapter) Info(_ context.Context, msg string, args ...interface{}) {
	if a.level >= gormlogger.Info {
		a.logger.Sugar().Infof(msg, args...)
	}
}

// Warn logs warning messages
func (a *GormAdapter) Warn(_ context.Context, msg string, args ...interface{}) {
	if a.level >= gormlogger.Warn {
		a.logger.Sugar().Warnf(msg, args...)
	}
}

// Error logs error messages
func (a *GormAdapter) Error(_ context.Context, msg string, args ...interface{}) {
	if a.level >= gormlogger.Error {
		a.logger.Sugar().Errorf(msg, args...)
	}
}

// Trace logs SQL execution with timing; slow queries and errors are promoted
func (a *GormAdapter) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if a.level <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()
	fields := []zap.Field{
		zap.Duration("elapsed", elapsed),
		zap.Int64("rows", rows),
		zap.String("sql", sql),
	}

	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && a.level >= gormlogger.Error:
		a.logger.Error("sql error", append(fields, zap.Error(err))...)
	case elapsed > a.slowThreshold && a.level >= gormlogger.Warn:
		a.logger.Warn("slow sql", fields...)
	case a.level >= gormlogger.Info:
		a.logger.Debug("sql", fields...)
	}
}
