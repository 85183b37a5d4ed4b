// Package logging provides category-scoped logging for the memory engine.
//
// In production (CORTEX_DEBUG unset) logging is a silent no-op: the engine
// relies on the RPC adapter's zap logger for stderr diagnostics. Setting
// CORTEX_DEBUG=1 appends structured per-category lines to ./cortex.log so a
// long-running session can be inspected after the fact. Log lines never
// reach standard output: that stream is reserved for JSON-RPC frames.
package logging

import (
	"fmt"
	"log"
	"os"
	"sync"
	"time"
)

// Category groups related log lines so a reader can grep one subsystem.
type Category string

const (
	CategoryBoot      Category = "boot"
	CategoryStore     Category = "store"
	CategoryEmbedding Category = "embedding"
	CategoryQuality   Category = "quality"
	CategoryMemory    Category = "memory"
	CategoryRetriever Category = "retriever"
	CategoryRanker    Category = "ranker"
	CategoryAging     Category = "aging"
	CategoryAssembler Category = "assembler"
	CategoryRPC       Category = "rpc"
)

// Level is a logging severity.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// Logger writes lines for one category to the shared log file.
type Logger struct {
	category Category
}

var (
	mu       sync.Mutex
	file     *os.File
	stdlog   *log.Logger
	enabled  bool
	initOnce sync.Once
)

// Initialize opens ./cortex.log (relative to workDir) when CORTEX_DEBUG=1 is
// set. It is safe to call more than once; only the first call takes effect.
func Initialize(workDir string) error {
	var err error
	initOnce.Do(func() {
		if os.Getenv("CORTEX_DEBUG") != "1" {
			return
		}
		path := "cortex.log"
		if workDir != "" {
			path = workDir + string(os.PathSeparator) + "cortex.log"
		}
		var f *os.File
		f, err = os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			err = fmt.Errorf("open cortex.log: %w", err)
			return
		}
		mu.Lock()
		file = f
		stdlog = log.New(f, "", log.Ldate|log.Ltime|log.Lmicroseconds)
		enabled = true
		mu.Unlock()
	})
	return err
}

// IsDebugMode reports whether file logging is currently active.
func IsDebugMode() bool {
	mu.Lock()
	defer mu.Unlock()
	return enabled
}

// Close flushes and closes the log file. Safe to call when not initialized.
func Close() {
	mu.Lock()
	defer mu.Unlock()
	if file != nil {
		_ = file.Close()
		file = nil
		stdlog = nil
		enabled = false
	}
}

// Get returns a logger scoped to category. The returned value is cheap and
// need not be cached by callers.
func Get(category Category) *Logger {
	return &Logger{category: category}
}

func (l *Logger) write(level Level, format string, args ...interface{}) {
	mu.Lock()
	lg := stdlog
	mu.Unlock()
	if lg == nil {
		return
	}
	msg := fmt.Sprintf(format, args...)
	lg.Printf("[%s] [%s] %s", levelTag(level), l.category, msg)
}

func levelTag(l Level) string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "INFO"
	}
}

func (l *Logger) Debug(format string, args ...interface{}) { l.write(LevelDebug, format, args...) }
func (l *Logger) Info(format string, args ...interface{})  { l.write(LevelInfo, format, args...) }
func (l *Logger) Warn(format string, args ...interface{})  { l.write(LevelWarn, format, args...) }
func (l *Logger) Error(format string, args ...interface{}) { l.write(LevelError, format, args...) }

// Timer measures and logs the duration of an operation at Debug level, or at
// Warn level when it exceeds an optional threshold.
type Timer struct {
	category  Category
	operation string
	start     time.Time
}

// StartTimer begins timing an operation in category.
func StartTimer(category Category, operation string) *Timer {
	return &Timer{category: category, operation: operation, start: time.Now()}
}

// Stop logs the elapsed duration at Debug level and returns it.
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Debug("%s completed in %v", t.operation, elapsed)
	return elapsed
}

// StopWithThreshold logs at Warn level if elapsed exceeds threshold, else Debug.
func (t *Timer) StopWithThreshold(threshold time.Duration) time.Duration {
	elapsed := time.Since(t.start)
	if elapsed > threshold {
		Get(t.category).Warn("%s took %v (threshold %v)", t.operation, elapsed, threshold)
	} else {
		Get(t.category).Debug("%s completed in %v", t.operation, elapsed)
	}
	return elapsed
}
