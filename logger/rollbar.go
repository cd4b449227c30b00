package logger

import (
	"fmt"
	"io"
	"log"

	"github.com/rollbar/rollbar-go"
)

// Logger is the logging surface handed to services and workers.
// args may hold errors, map[string]interface{} extras or plain values.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

// RollbarLogger prints to a std logger and reports to Rollbar when a token is set.
type RollbarLogger struct {
	std    *log.Logger
	report bool
}

var _ Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(std *log.Logger, token, env string) *RollbarLogger {
	report := token != ""
	if report {
		rollbar.SetToken(token)
		rollbar.SetEnvironment(env)
	}
	rollbar.SetEnabled(report)
	return &RollbarLogger{std: std, report: report}
}

// NewDiscard returns a logger that drops everything.
func NewDiscard() *RollbarLogger {
	return &RollbarLogger{std: log.New(io.Discard, "", 0)}
}

// Close flushes pending Rollbar items.
func (l *RollbarLogger) Close() {
	if l.report {
		rollbar.Wait()
	}
}

// expected fmt: msg | error, map[string]interface{}
// rollbar.Log treats every string as the message and every int as a stack
// skip, so positional values are stringified into extras["args"].
func prepare(msg string, args []interface{}) []interface{} {
	var (
		err    error
		values []string
	)
	extras := map[string]interface{}{}
	for _, arg := range args {
		switch v := arg.(type) {
		case error:
			if err == nil {
				err = v
				continue
			}
			values = append(values, v.Error())
		case map[string]interface{}:
			for k, val := range v {
				extras[k] = val
			}
		default:
			values = append(values, fmt.Sprint(v))
		}
	}
	if len(values) > 0 {
		extras["args"] = values
	}

	out := []interface{}{msg}
	if err != nil {
		extras["message"] = msg
		out = append(out, err)
	}
	if len(extras) > 0 {
		out = append(out, extras)
	}
	return out
}

func (l *RollbarLogger) print(msg string, args []interface{}) {
	if len(args) == 0 {
		l.std.Println(msg)
		return
	}
	l.std.Println(append([]interface{}{msg}, args...)...)
}

func (l *RollbarLogger) Debug(msg string, args ...interface{}) {
	l.print(msg, args)
}

func (l *RollbarLogger) Info(msg string, args ...interface{}) {
	if l.report {
		rollbar.Info(prepare(msg, args)...)
	}
	l.print(msg, args)
}

func (l *RollbarLogger) Warn(msg string, args ...interface{}) {
	if l.report {
		rollbar.Warning(prepare(msg, args)...)
	}
	l.print(msg, args)
}

func (l *RollbarLogger) Error(msg string, args ...interface{}) {
	if l.report {
		rollbar.Error(prepare(msg, args)...)
	}
	l.print(msg, args)
}
