package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"golang.org/x/term"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger interface defines the logging methods
type Logger interface {
	Info(format string, args ...any)
	Debug(format string, args ...any)
	Success(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
	SetOutput(out io.Writer)
	SetErrorOutput(out io.Writer)
	SetLogFile(path string)
	SetVerbose(enabled bool)
	SetQuiet(enabled bool)
	IsVerbose() bool
	IsQuiet() bool
	Close() error
}

// ConsoleLogger writes human readable lines to stdout/stderr and, optionally,
// mirrors every line without colours into a rotating log file.
type ConsoleLogger struct {
	output      io.Writer
	errOut      io.Writer
	file        *lumberjack.Logger
	colors      bool
	verboseMode bool
	quietMode   bool
	mu          sync.Mutex
}

var (
	instance Logger
	once     sync.Once
)

// NewConsoleLogger builds a logger writing to out and errOut.
// Colours are enabled only when out is a terminal.
func NewConsoleLogger(out, errOut io.Writer) *ConsoleLogger {
	return &ConsoleLogger{
		output: out,
		errOut: errOut,
		colors: isTerminal(out),
	}
}

// GetLogger returns the singleton instance
func GetLogger() Logger {
	once.Do(func() {
		instance = NewConsoleLogger(os.Stdout, os.Stderr)
	})
	return instance
}

func SetVerbose(verbose bool) { GetLogger().SetVerbose(verbose) }
func IsVerbose() bool         { return GetLogger().IsVerbose() }
func SetQuiet(quiet bool)     { GetLogger().SetQuiet(quiet) }
func IsQuiet() bool           { return GetLogger().IsQuiet() }
func SetLogFile(path string)  { GetLogger().SetLogFile(path) }
func Close() error            { return GetLogger().Close() }

// Global helper functions for convenience
func Info(format string, args ...any)    { GetLogger().Info(format, args...) }
func Debug(format string, args ...any)   { GetLogger().Debug(format, args...) }
func Success(format string, args ...any) { GetLogger().Success(format, args...) }
func Warn(format string, args ...any)    { GetLogger().Warn(format, args...) }
func Error(format string, args ...any)   { GetLogger().Error(format, args...) }

// -------------------- Implementation --------------------

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func (l *ConsoleLogger) SetOutput(out io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.output = out
	l.colors = isTerminal(out)
}

func (l *ConsoleLogger) SetErrorOutput(out io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errOut = out
}

// SetLogFile mirrors log lines into path, rotated at 10 MB with 3 backups.
// An empty path disables the file.
func (l *ConsoleLogger) SetLogFile(path string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		l.file.Close()
		l.file = nil
	}
	if path == "" {
		return
	}
	l.file = &lumberjack.Logger{
		Filename:   path,
		MaxSize:    10,
		MaxBackups: 3,
		MaxAge:     28,
	}
}

func (l *ConsoleLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

func (l *ConsoleLogger) SetVerbose(enabled bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.verboseMode = enabled
}

func (l *ConsoleLogger) IsVerbose() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.verboseMode
}

func (l *ConsoleLogger) SetQuiet(enabled bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.quietMode = enabled
}

func (l *ConsoleLogger) IsQuiet() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.quietMode
}

func timestamp() string {
	return time.Now().Format("2006-01-02 15:04:05.000")
}

type level struct {
	icon  string
	plain string
	color string
}

var (
	levelInfo    = level{"ℹ️", "INFO", blueColor}
	levelDebug   = level{"🔍", "DEBUG", grayColor}
	levelSuccess = level{"✓", "SUCCESS", greenColor}
	levelWarn    = level{"⚠", "WARN", yellowColor}
	levelError   = level{"✗", "ERROR", redColor}
)

const (
	blueColor   = "\033[34m"
	greenColor  = "\033[32m"
	yellowColor = "\033[33m"
	redColor    = "\033[31m"
	grayColor   = "\033[90m"
	resetColor  = "\033[0m"
)

func (l *ConsoleLogger) log(toErr, console bool, lv level, format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()

	msg := fmt.Sprintf(format, args...)
	ts := timestamp()

	if console {
		out := l.output
		if toErr {
			out = l.errOut
		}
		prefix := lv.plain
		if lv == levelDebug {
			prefix = fmt.Sprintf("[%s] %s", ts, prefix)
		}
		switch {
		case l.colors && lv == levelDebug:
			fmt.Fprintf(out, "%s[%s] %s %s%s\n", lv.color, ts, lv.icon, msg, resetColor)
		case l.colors:
			fmt.Fprintf(out, "%s%s %s%s\n", lv.color, lv.icon, msg, resetColor)
		default:
			fmt.Fprintf(out, "%s %s\n", prefix, msg)
		}
	}

	if l.file != nil {
		fmt.Fprintf(l.file, "%s %-7s %s\n", ts, lv.plain, msg)
	}
}

func (l *ConsoleLogger) Info(format string, args ...any) {
	l.log(false, !l.IsQuiet(), levelInfo, format, args...)
}

func (l *ConsoleLogger) Debug(format string, args ...any) {
	if !l.IsVerbose() {
		return
	}
	l.log(false, true, levelDebug, format, args...)
}

func (l *ConsoleLogger) Success(format string, args ...any) {
	l.log(false, !l.IsQuiet(), levelSuccess, format, args...)
}

func (l *ConsoleLogger) Warn(format string, args ...any) {
	l.log(false, !l.IsQuiet(), levelWarn, format, args...)
}

func (l *ConsoleLogger) Error(format string, args ...any) {
	l.log(true, true, levelError, format, args...)
}
