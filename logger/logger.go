package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger handles application logging. It always writes to stderr and, after
// Init, also to a dated run file in the log directory.
type Logger struct {
	mu    sync.Mutex
	level zap.AtomicLevel
	zap   *zap.Logger
	file  *os.File
}

// NewLogger creates a console logger at the given level ("debug", "info", ...).
func NewLogger(level string) (*Logger, error) {
	lvl := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if level != "" {
		if err := lvl.UnmarshalText([]byte(level)); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", level, err)
		}
	}
	l := &Logger{level: lvl}
	l.zap = zap.New(l.consoleCore(), zap.AddCaller())
	return l, nil
}

// NewNop returns a logger that discards everything. Used by tests.
func NewNop() *Logger {
	return &Logger{level: zap.NewAtomicLevel(), zap: zap.NewNop()}
}

func (l *Logger) consoleCore() zapcore.Core {
	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
	return zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.Lock(os.Stderr), l.level)
}

// Init adds a file sink in logDir. Each run of the day gets its own file:
// textdeck_<date>_<n>.log.
func (l *Logger) Init(logDir string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(logDir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	if l.file != nil {
		l.file.Close()
	}

	dateStr := time.Now().Format("2006-01-02")
	pattern := filepath.Join(logDir, fmt.Sprintf("textdeck_%s_*.log", dateStr))
	matches, _ := filepath.Glob(pattern)
	runCount := len(matches) + 1
	filename := filepath.Join(logDir, fmt.Sprintf("textdeck_%s_%d.log", dateStr, runCount))

	f, err := os.OpenFile(filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	l.file = f

	fileCore := zapcore.NewCore(
		zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
		zapcore.AddSync(f),
		l.level,
	)
	l.zap = zap.New(zapcore.NewTee(l.consoleCore(), fileCore), zap.AddCaller())
	l.zap.Info("App Started", zap.String("log_file", filename))
	return nil
}

// Zap returns the structured logger handed to components.
func (l *Logger) Zap() *zap.Logger {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.zap
}

// Log writes a plain message at info level.
func (l *Logger) Log(message string) {
	l.Zap().Info(message)
}

// Logf writes a formatted message at info level.
func (l *Logger) Logf(format string, args ...interface{}) {
	l.Zap().Info(fmt.Sprintf(format, args...))
}

// Close flushes and closes the log file.
func (l *Logger) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	_ = l.zap.Sync()
	if l.file != nil {
		l.zap.Info("Logging disabled or App stopped.")
		l.file.Close()
		l.file = nil
		l.zap = zap.New(l.consoleCore(), zap.AddCaller())
	}
}
