package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Logger handles leveled logging to the console with optional file output.
// Console output is human readable, the file sink is always JSON.
type Logger struct {
	Verbose bool
	mu      sync.Mutex
	console zerolog.Logger
	errOut  zerolog.Logger
	file    *zerolog.Logger
	fileLog *os.File
	hasBar  bool
}

// Options configures a Logger beyond the verbose switch.
type Options struct {
	Verbose bool
	Level   string // debug, info, warn, error
	Format  string // text, json
	Out     io.Writer
	ErrOut  io.Writer
}

// New creates a new Logger instance
func New(verbose bool) *Logger {
	return NewWithOptions(Options{Verbose: verbose})
}

// NewWithOptions creates a Logger from explicit options. Verbose forces the
// console level down to debug.
func NewWithOptions(opts Options) *Logger {
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	errOut := opts.ErrOut
	if errOut == nil {
		errOut = os.Stderr
	}

	level, err := zerolog.ParseLevel(opts.Level)
	if err != nil || opts.Level == "" {
		level = zerolog.InfoLevel
	}
	if opts.Verbose {
		level = zerolog.DebugLevel
	}

	return &Logger{
		Verbose: opts.Verbose,
		console: newZerolog(out, opts.Format).Level(level),
		errOut:  newZerolog(errOut, opts.Format).Level(zerolog.ErrorLevel),
	}
}

func newZerolog(w io.Writer, format string) zerolog.Logger {
	if format == "json" {
		return zerolog.New(w).With().Timestamp().Logger()
	}
	return zerolog.New(zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.TimeOnly,
		NoColor:    true,
	}).With().Timestamp().Logger()
}

// SetFileLog enables logging to a file
func (l *Logger) SetFileLog(path string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	fl := zerolog.New(f).Level(zerolog.DebugLevel).With().Timestamp().Logger()
	l.fileLog = f
	l.file = &fl
	return nil
}

// SetProgressBar indicates that a progress bar is active
func (l *Logger) SetProgressBar(active bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.hasBar = active
}

// Close closes the log file if open
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.fileLog != nil {
		err := l.fileLog.Close()
		l.fileLog = nil
		l.file = nil
		return err
	}
	return nil
}

// Info logs informational messages
func (l *Logger) Info(format string, args ...interface{}) {
	l.log(zerolog.InfoLevel, format, args...)
}

// Debug logs detailed messages. They reach the console only in verbose mode
// but always land in the log file.
func (l *Logger) Debug(format string, args ...interface{}) {
	l.log(zerolog.DebugLevel, format, args...)
}

// Warn logs warning messages
func (l *Logger) Warn(format string, args ...interface{}) {
	l.log(zerolog.WarnLevel, format, args...)
}

// Error logs error messages to stderr
func (l *Logger) Error(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	msg := fmt.Sprintf(format, args...)
	l.errOut.Error().Msg(msg)
	if l.file != nil {
		l.file.Error().Msg(msg)
	}
}

func (l *Logger) log(level zerolog.Level, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	msg := fmt.Sprintf(format, args...)

	// Keep the console quiet while a transport bar owns the line.
	if l.Verbose || !l.hasBar {
		l.console.WithLevel(level).Msg(msg)
	}

	if l.file != nil {
		l.file.WithLevel(level).Msg(msg)
	}
}
