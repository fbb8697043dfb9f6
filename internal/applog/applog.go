package applog

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	maxFileSizeMB = 5
	maxBackups    = 3
	maxValueLen   = 200
	truncSuffix   = "…"
)

var (
	mu     sync.Mutex
	logger *zerolog.Logger
	sink   *lumberjack.Logger
)

// Init opens the rotating log file in dir. Call once at startup.
// Until then every log call is a no-op.
func Init(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	lj := &lumberjack.Logger{
		Filename:   filepath.Join(dir, "tabsieb.log"),
		MaxSize:    maxFileSizeMB,
		MaxBackups: maxBackups,
	}
	zerolog.TimeFieldFormat = time.RFC3339Nano
	l := zerolog.New(lj).With().Timestamp().Logger()

	mu.Lock()
	logger = &l
	sink = lj
	mu.Unlock()
	return nil
}

// SetLogger routes log calls to l instead of a file. Tests use it to capture
// output in a buffer.
func SetLogger(l zerolog.Logger) {
	mu.Lock()
	logger = &l
	sink = nil
	mu.Unlock()
}

// Close flushes and closes the log file.
func Close() {
	mu.Lock()
	defer mu.Unlock()
	if sink != nil {
		sink.Close()
		sink = nil
	}
	logger = nil
}

// Info logs a structured event line.
//
//	applog.Info("ws.connected", "remote", addr)
//	applog.Info("windows.closed", "window", 7, "tabs", 12)
func Info(event string, kv ...any) {
	write(zerolog.InfoLevel, event, nil, kv)
}

// Error logs an event with an error.
//
//	applog.Error("history.load", err, "range", "week")
func Error(event string, err error, kv ...any) {
	write(zerolog.ErrorLevel, event, err, kv)
}

func write(level zerolog.Level, event string, err error, kv []any) {
	mu.Lock()
	l := logger
	mu.Unlock()
	if l == nil {
		return
	}

	e := l.WithLevel(level).Str("event", event)
	if err != nil {
		e = e.Str("err", truncate(err.Error()))
	}
	for i := 0; i+1 < len(kv); i += 2 {
		key := fmt.Sprint(kv[i])
		switch v := kv[i+1].(type) {
		case int:
			e = e.Int(key, v)
		case int64:
			e = e.Int64(key, v)
		case bool:
			e = e.Bool(key, v)
		case time.Duration:
			e = e.Dur(key, v)
		default:
			e = e.Str(key, truncate(fmt.Sprint(v)))
		}
	}
	e.Send()
}

func truncate(s string) string {
	r := []rune(s)
	if len(r) > maxValueLen {
		return string(r[:maxValueLen]) + truncSuffix
	}
	return s
}
