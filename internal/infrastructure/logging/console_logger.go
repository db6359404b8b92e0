package logging

import (
	"io"
	"log"
	"sync"

	"github.com/MirageTurtle/dify-marketplace-collections/internal/core/ports"
)

// severityRank orders levels for threshold checks
var severityRank = map[ports.LogLevel]int{
	ports.LogLevelDebug: 0,
	ports.LogLevelInfo:  1,
	ports.LogLevelWarn:  2,
	ports.LogLevelError: 3,
}

// ConsoleLogger implements ports.LoggingGateway over a standard logger
type ConsoleLogger struct {
	logger *log.Logger
	mu     sync.RWMutex
	level  ports.LogLevel
}

// NewConsoleLogger creates a console logger writing to out. Debug lines are
// suppressed unless debug is set.
func NewConsoleLogger(out io.Writer, debug bool) *ConsoleLogger {
	level := ports.LogLevelInfo
	if debug {
		level = ports.LogLevelDebug
	}
	return &ConsoleLogger{
		logger: log.New(out, "[difymirror] ", log.LstdFlags),
		level:  level,
	}
}

// Log logs a message with the specified level
func (l *ConsoleLogger) Log(level ports.LogLevel, message string, fields map[string]interface{}) {
	if !l.shouldLog(level) {
		return
	}

	levelStr := "INFO"
	switch level {
	case ports.LogLevelError:
		levelStr = "ERROR"
	case ports.LogLevelWarn:
		levelStr = "WARN"
	case ports.LogLevelInfo:
		levelStr = "INFO"
	case ports.LogLevelDebug:
		levelStr = "DEBUG"
	}

	if fields != nil {
		l.logger.Printf("%s: %s (fields: %v)", levelStr, message, fields)
	} else {
		l.logger.Printf("%s: %s", levelStr, message)
	}
}

// LogError logs an error
func (l *ConsoleLogger) LogError(err error, message string, fields map[string]interface{}) {
	if !l.shouldLog(ports.LogLevelError) {
		return
	}

	if fields != nil {
		l.logger.Printf("ERROR: %s: %v (fields: %v)", message, err, fields)
	} else {
		l.logger.Printf("ERROR: %s: %v", message, err)
	}
}

// SetLogLevel sets the logging level
func (l *ConsoleLogger) SetLogLevel(level ports.LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// GetLogLevel returns the current logging level
func (l *ConsoleLogger) GetLogLevel() ports.LogLevel {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.level
}

// shouldLog determines if a message should be logged at the current level
func (l *ConsoleLogger) shouldLog(level ports.LogLevel) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return severityRank[level] >= severityRank[l.level]
}

// NopLogger implements ports.LoggingGateway and discards everything. Used in
// tests and wherever output must stay quiet.
type NopLogger struct{}

// NewNopLogger creates a logger that discards all messages
func NewNopLogger() *NopLogger {
	return &NopLogger{}
}

// Log discards the message
func (n *NopLogger) Log(level ports.LogLevel, message string, fields map[string]interface{}) {}

// LogError discards the error
func (n *NopLogger) LogError(err error, message string, fields map[string]interface{}) {}

// SetLogLevel does nothing
func (n *NopLogger) SetLogLevel(level ports.LogLevel) {}

// GetLogLevel always reports the error level
func (n *NopLogger) GetLogLevel() ports.LogLevel {
	return ports.LogLevelError
}

// Interface guards
var (
	_ ports.LoggingGateway = (*ConsoleLogger)(nil)
	_ ports.LoggingGateway = (*NopLogger)(nil)
)
