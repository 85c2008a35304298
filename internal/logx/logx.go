// Package logx is the ambient logging layer shared by the packer and
// unpacker. It wraps log/slog the way rclone's fs/log package does,
// adding syslog-style levels that slog doesn't define out of the box.
package logx

import (
	"context"
	"fmt"
	"log/slog"
	"os"
)

// Extra levels beyond the four slog defines, spaced so they sort
// correctly alongside slog.LevelDebug..slog.LevelError. Ordering mirrors
// rclone's own level set: NOTICE sits between INFO and WARNING, and
// ALERT/EMERGENCY sit above CRITICAL.
const (
	LevelNotice    = slog.Level(2)
	LevelCritical  = slog.Level(10)
	LevelAlert     = slog.Level(12)
	LevelEmergency = slog.Level(14)
)

var logger = slog.New(newHandler(slog.LevelInfo))

func newHandler(level slog.Level) slog.Handler {
	return slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey {
				if lvl, ok := a.Value.Any().(slog.Level); ok {
					a.Value = slog.StringValue(levelString(lvl))
				}
			}
			return a
		},
	})
}

func levelString(l slog.Level) string {
	switch {
	case l < slog.LevelInfo:
		return "DEBUG"
	case l < LevelNotice:
		return "INFO"
	case l < slog.LevelWarn:
		return "NOTICE"
	case l < slog.LevelError:
		return "WARNING"
	case l < LevelCritical:
		return "ERROR"
	case l < LevelAlert:
		return "CRITICAL"
	case l < LevelEmergency:
		return "ALERT"
	default:
		return "EMERGENCY"
	}
}

// SetVerbose raises the logger to debug level, the CLI's one knob.
func SetVerbose(v bool) {
	lvl := slog.LevelInfo
	if v {
		lvl = slog.LevelDebug
	}
	logger = slog.New(newHandler(lvl))
}

// Debugf logs at debug level, for the chatter a re-run with -v wants.
func Debugf(format string, args ...any) { logger.Debug(fmt.Sprintf(format, args...)) }

// Infof logs a normal progress line.
func Infof(format string, args ...any) { logger.Info(fmt.Sprintf(format, args...)) }

// Errorf logs a failure that aborts the current operation.
func Errorf(format string, args ...any) { logger.Error(fmt.Sprintf(format, args...)) }

// Noticef logs a condition worth surfacing that isn't itself a problem.
func Noticef(format string, args ...any) { logAt(LevelNotice, format, args...) }

// Criticalf logs a failure more severe than Errorf: the process can't
// continue in any useful state.
func Criticalf(format string, args ...any) { logAt(LevelCritical, format, args...) }

// Alertf logs a condition requiring immediate attention.
func Alertf(format string, args ...any) { logAt(LevelAlert, format, args...) }

// Emergencyf logs a condition making the process unusable.
func Emergencyf(format string, args ...any) { logAt(LevelEmergency, format, args...) }

func logAt(level slog.Level, format string, args ...any) {
	logger.Log(context.Background(), level, fmt.Sprintf(format, args...))
}
