package utils

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"gorm.io/gorm/logger"
)

const modulePrefix = "pharmacist/"

// SQLLogger wraps a gorm logger. Queries matching a quiet pattern are dropped unless they failed,
// and every logged statement is tagged with the application function that issued it.
type SQLLogger struct {
	logger.Interface
	quiet []string
}

func NewSQLLogger(l logger.Interface, quietPatterns ...string) *SQLLogger {
	return &SQLLogger{Interface: l, quiet: quietPatterns}
}

// LogMode implements logger.Interface
func (l *SQLLogger) LogMode(level logger.LogLevel) logger.Interface {
	return &SQLLogger{Interface: l.Interface.LogMode(level), quiet: l.quiet}
}

// Trace implements logger.Interface
func (l *SQLLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	sql, rows := fc()

	if err == nil && l.isQuiet(sql) {
		return
	}

	if origin := queryOrigin(); origin != "" {
		sql = "[" + origin + "] " + sql
	}
	l.Interface.Trace(ctx, begin, func() (string, int64) { return sql, rows }, err)
}

func (l *SQLLogger) isQuiet(sql string) bool {
	for _, pattern := range l.quiet {
		if strings.Contains(sql, pattern) {
			return true
		}
	}
	return false
}

// queryOrigin returns "Func file:line" of the first application frame outside the database plumbing
func queryOrigin() string {
	pcs := make([]uintptr, 32)
	n := runtime.Callers(3, pcs)
	frames := runtime.CallersFrames(pcs[:n])

	for {
		frame, more := frames.Next()
		if isApplicationFrame(frame.Function) {
			name := frame.Function[strings.LastIndexByte(frame.Function, '/')+1:]
			return fmt.Sprintf("%s %s:%d", name, filepath.Base(frame.File), frame.Line)
		}
		if !more {
			return ""
		}
	}
}

func isApplicationFrame(function string) bool {
	if !strings.HasPrefix(function, modulePrefix) {
		return false
	}
	return !strings.HasPrefix(function, modulePrefix+"internal/database") &&
		!strings.HasPrefix(function, modulePrefix+"internal/utils")
}
