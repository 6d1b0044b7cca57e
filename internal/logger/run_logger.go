package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Logger writes the backtest run log: one file per strategy and run date.
type Logger struct {
	strategy string
	logFile  *os.File
	logger   *log.Logger
	mu       sync.Mutex
}

// LogLevel represents different types of log entries
type LogLevel string

const (
	LogLevelInfo    LogLevel = "INFO"
	LogLevelWarning LogLevel = "WARN"
	LogLevelError   LogLevel = "ERROR"
	LogLevelTrade   LogLevel = "TRADE"
	LogLevelStatus  LogLevel = "STATUS"
)

// NewLogger creates a file logger for the given strategy name under logs/.
func NewLogger(strategy string) (*Logger, error) {
	logDir := "logs"
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	filename := fmt.Sprintf("%s_%s.log", strategy, time.Now().Format("2006-01-02"))
	logPath := filepath.Join(logDir, filename)

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	l := &Logger{
		strategy: strategy,
		logFile:  file,
		logger:   log.New(file, "", 0),
	}
	l.writeSessionHeader()
	return l, nil
}

// NewWriterLogger creates a logger that writes to an arbitrary writer.
// Used by tests and console-only runs.
func NewWriterLogger(strategy string, w io.Writer) *Logger {
	return &Logger{
		strategy: strategy,
		logger:   log.New(w, "", 0),
	}
}

func (l *Logger) writeSessionHeader() {
	l.mu.Lock()
	defer l.mu.Unlock()

	header := fmt.Sprintf(`
================================================================================
BACKTEST RUN STARTED
================================================================================
Strategy: %s
Started: %s
================================================================================
`, l.strategy, time.Now().Format("2006-01-02 15:04:05"))

	l.logger.Print(header)
}

// Log writes a formatted log entry with the specified level
func (l *Logger) Log(level LogLevel, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	message := fmt.Sprintf(format, args...)
	l.logger.Println(fmt.Sprintf("[%s] [%s] %s", timestamp, level, message))
}

// Info logs an info message
func (l *Logger) Info(format string, args ...interface{}) {
	l.Log(LogLevelInfo, format, args...)
}

// Warning logs a warning message
func (l *Logger) Warning(format string, args ...interface{}) {
	l.Log(LogLevelWarning, format, args...)
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	l.Log(LogLevelError, format, args...)
}

// Trade logs an executed or rejected order
func (l *Logger) Trade(format string, args ...interface{}) {
	l.Log(LogLevelTrade, format, args...)
}

// Status logs session-level account status
func (l *Logger) Status(format string, args ...interface{}) {
	l.Log(LogLevelStatus, format, args...)
}

// LogSessionStatus logs the end-of-session account state.
func (l *Logger) LogSessionStatus(tradeDate time.Time, heldCount int, cash, positionValue, totalAssets float64) {
	l.Status("session %s closed | held: %d | cash: %.2f | positions: %.2f | total: %.2f",
		tradeDate.Format("2006-01-02"), heldCount, cash, positionValue, totalAssets)
}

// Close flushes and closes the underlying log file.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.logFile == nil {
		return nil
	}
	return l.logFile.Close()
}
