package pkg

import (
	"io"
	"sync"

	"github.com/sirupsen/logrus"
)

// Component identifies a transport subsystem for log filtering.
type Component string

// Transport component identifiers.
const (
	ComponentShm   Component = "shm"
	ComponentFifo  Component = "fifo"
	ComponentProto Component = "proto"
	ComponentHost  Component = "host"
	ComponentChild Component = "child"
	ComponentAudio Component = "audio"
)

// LogFormat specifies the output format for logging.
type LogFormat int

// Log format options.
const (
	LogFormatText LogFormat = iota // Text format (default)
	LogFormatJSON                  // JSON format
)

var (
	// DefaultLogger is the default logger used by the transport.
	DefaultLogger *logrus.Logger

	// logMutex protects logger configuration.
	logMutex sync.RWMutex
)

func init() {
	DefaultLogger = logrus.New()
	DefaultLogger.SetLevel(logrus.WarnLevel)
}

// SetLogLevel sets the minimum log level for all transport logging.
func SetLogLevel(level logrus.Level) {
	logMutex.Lock()
	defer logMutex.Unlock()
	DefaultLogger.SetLevel(level)
}

// GetLogLevel returns the current minimum log level.
func GetLogLevel() logrus.Level {
	logMutex.RLock()
	defer logMutex.RUnlock()
	return DefaultLogger.GetLevel()
}

// SetLogger replaces the default logger with a custom logger.
func SetLogger(logger *logrus.Logger) {
	logMutex.Lock()
	defer logMutex.Unlock()
	DefaultLogger = logger
}

// SetLogFormat configures the default logger's formatter.
func SetLogFormat(format LogFormat) {
	logMutex.Lock()
	defer logMutex.Unlock()
	switch format {
	case LogFormatJSON:
		DefaultLogger.SetFormatter(&logrus.JSONFormatter{})
	default:
		DefaultLogger.SetFormatter(&logrus.TextFormatter{})
	}
}

// NewLogger creates a new logger writing to the given writer at the given level.
func NewLogger(w io.Writer, level logrus.Level) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(w)
	logger.SetLevel(level)
	return logger
}

// logFields builds logrus.Fields from alternating key/value args plus the
// component tag. A trailing key without a value is dropped.
func logFields(component Component, args []any) logrus.Fields {
	f := logrus.Fields{"component": string(component)}
	for i := 0; i+1 < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			continue
		}
		f[key] = args[i+1]
	}
	return f
}

// LogDebug logs a debug message with the given component.
func LogDebug(component Component, msg string, args ...any) {
	logMutex.RLock()
	logger := DefaultLogger
	logMutex.RUnlock()
	logger.WithFields(logFields(component, args)).Debug(msg)
}

// LogInfo logs an info message with the given component.
func LogInfo(component Component, msg string, args ...any) {
	logMutex.RLock()
	logger := DefaultLogger
	logMutex.RUnlock()
	logger.WithFields(logFields(component, args)).Info(msg)
}

// LogWarn logs a warning message with the given component.
func LogWarn(component Component, msg string, args ...any) {
	logMutex.RLock()
	logger := DefaultLogger
	logMutex.RUnlock()
	logger.WithFields(logFields(component, args)).Warn(msg)
}

// LogError logs an error message with the given component.
func LogError(component Component, msg string, args ...any) {
	logMutex.RLock()
	logger := DefaultLogger
	logMutex.RUnlock()
	logger.WithFields(logFields(component, args)).Error(msg)
}
