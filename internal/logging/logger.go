// Package logging provides the structured logger used across ados core.
//
// It is intentionally small: a single writer guarded by a mutex, a closed
// set of severity levels, and a key-value Field API. Subsystems obtain a
// per-component *Logger (via With or a fresh Config) rather than sharing a
// single global name, so log lines can be traced back to the lifecycle
// phase or executor that emitted them.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Level is the severity of a log line.
type Level int

const (
	Debug Level = iota
	Info
	Warn
	Error
	Fatal
)

var levelNames = map[Level]string{
	Debug: "DEBUG",
	Info:  "INFO",
	Warn:  "WARN",
	Error: "ERROR",
	Fatal: "FATAL",
}

// Field is a structured key-value pair attached to a log line.
type Field struct {
	Key   string
	Value any
}

func (f Field) format() string {
	switch v := f.Value.(type) {
	case string:
		return fmt.Sprintf("%q", v)
	case error:
		return fmt.Sprintf("%q", v.Error())
	case time.Duration:
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}

func String(key, value string) Field   { return Field{Key: key, Value: value} }
func Int(key string, value int) Field  { return Field{Key: key, Value: value} }
func Uint32(key string, value uint32) Field {
	return Field{Key: key, Value: value}
}
func Uint64(key string, value uint64) Field { return Field{Key: key, Value: value} }
func Err(err error) Field                   { return Field{Key: "error", Value: err} }
func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value}
}
func Any(key string, value any) Field { return Field{Key: key, Value: value} }

// Config configures a Logger instance.
type Config struct {
	Level      Level
	Component  string
	Output     io.Writer
	TimeFormat string
}

// Logger is a minimal structured logger: one writer, one mutex, five levels.
type Logger struct {
	mu         sync.Mutex
	level      Level
	component  string
	output     io.Writer
	timeFormat string
}

// New builds a Logger from Config, filling in defaults for the zero values.
func New(cfg Config) *Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}
	if cfg.TimeFormat == "" {
		cfg.TimeFormat = "2006-01-02T15:04:05.000Z07:00"
	}
	return &Logger{
		level:      cfg.Level,
		component:  cfg.Component,
		output:     cfg.Output,
		timeFormat: cfg.TimeFormat,
	}
}

// Default builds an Info-level Logger tagged with component, writing to
// stderr.
func Default(component string) *Logger {
	return New(Config{Level: Info, Component: component})
}

// With returns a copy of l scoped to a different component name, e.g. a
// subsystem deriving its own logger from the core's.
func (l *Logger) With(component string) *Logger {
	return &Logger{
		level:      l.level,
		component:  component,
		output:     l.output,
		timeFormat: l.timeFormat,
	}
}

func (l *Logger) Debug(msg string, fields ...Field) { l.log(Debug, msg, fields...) }
func (l *Logger) Info(msg string, fields ...Field)  { l.log(Info, msg, fields...) }
func (l *Logger) Warn(msg string, fields ...Field)  { l.log(Warn, msg, fields...) }
func (l *Logger) Error(msg string, fields ...Field) { l.log(Error, msg, fields...) }

// Fatal logs at fatal severity without exiting the process: a task or hook
// that fails stays within the failing goroutine's control, and the executor
// that ran it logs fatal and carries on rather than tearing down the caller.
func (l *Logger) Fatal(msg string, fields ...Field) { l.log(Fatal, msg, fields...) }

func (l *Logger) log(level Level, msg string, fields ...Field) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if level < l.level {
		return
	}

	var b strings.Builder
	b.WriteString("[")
	b.WriteString(time.Now().Format(l.timeFormat))
	b.WriteString("] [")
	b.WriteString(fmt.Sprintf("%-5s", levelNames[level]))
	b.WriteString("]")
	if l.component != "" {
		b.WriteString(" [")
		b.WriteString(l.component)
		b.WriteString("]")
	}
	b.WriteString(" ")
	b.WriteString(msg)

	for _, f := range fields {
		b.WriteString(" ")
		b.WriteString(f.Key)
		b.WriteString("=")
		b.WriteString(f.format())
	}

	b.WriteString("\n")
	_, _ = l.output.Write([]byte(b.String()))
}
