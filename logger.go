package openseastream

import (
	"log"
	"os"
)

// Logger is the logging surface the client writes to. Plug in an adapter
// for your logging stack, or keep the silent default.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

type silentLogger struct{}

// NewSilentLogger returns a Logger that discards everything. This is the
// default.
func NewSilentLogger() Logger {
	return silentLogger{}
}

func (silentLogger) Debug(string, ...any) {}
func (silentLogger) Info(string, ...any)  {}
func (silentLogger) Warn(string, ...any)  {}
func (silentLogger) Error(string, ...any) {}

type stdLogger struct {
	l *log.Logger
}

// NewLogger returns a Logger backed by the standard library log package,
// writing to stderr.
func NewLogger() Logger {
	return &stdLogger{l: log.New(os.Stderr, "", log.LstdFlags)}
}

func (s *stdLogger) Debug(format string, args ...any) { s.l.Printf("[DEBUG] "+format, args...) }
func (s *stdLogger) Info(format string, args ...any)  { s.l.Printf("[INFO] "+format, args...) }
func (s *stdLogger) Warn(format string, args ...any)  { s.l.Printf("[WARN] "+format, args...) }
func (s *stdLogger) Error(format string, args ...any) { s.l.Printf("[ERROR] "+format, args...) }
