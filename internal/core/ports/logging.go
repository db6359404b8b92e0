package ports

// LoggingGateway defines the interface for logging operations
type LoggingGateway interface {
	// Log logs a message with the specified level
	Log(level LogLevel, message string, fields map[string]interface{})

	// LogError logs an error
	LogError(err error, message string, fields map[string]interface{})

	// SetLogLevel sets the logging level
	SetLogLevel(level LogLevel)

	// GetLogLevel returns the current logging level
	GetLogLevel() LogLevel
}

// LogLevel defines the logging level
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)
