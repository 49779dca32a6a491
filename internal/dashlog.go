package internal

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

const (
	DEBUG = "Debug"
	INFO  = "Info"
	WARN  = "Warn"
	ERROR = "Error"
)

// Rotated log files are capped at this size before being renumbered.
var LogRotateSize int64 = 1024 * 1024

var (
	logMu  sync.RWMutex
	logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "2006-01-02 15:04:05.0"}).
		With().Timestamp().Logger()
)

// InitLogging configures the process logger from cfg. Output always goes to
// stdout; when cfg.File is set it is also appended to a rotating file.
func InitLogging(cfg LogConfig) error {
	var out io.Writer = os.Stdout
	if cfg.Format != "json" {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "2006-01-02 15:04:05.0"}
	}
	writers := []io.Writer{out}
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0775); err != nil {
			return fmt.Errorf("create log dir: %w", err)
		}
		rf, err := newRotatingFile(cfg.File, LogRotateSize)
		if err != nil {
			return err
		}
		writers = append(writers, rf)
	}
	l := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(parseLogLevel(cfg.Level)).
		With().Timestamp().Logger()
	SetLogger(l)
	return nil
}

// SetLogger replaces the process logger.
func SetLogger(l zerolog.Logger) {
	logMu.Lock()
	logger = l
	logMu.Unlock()
}

func parseLogLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// DashLog writes one formatted message tagged with the component name.
// level is one of Debug, Info, Warn, Error.
func DashLog(level, component, message string, args ...interface{}) {
	logMu.RLock()
	l := logger
	logMu.RUnlock()
	l.WithLevel(parseLogLevel(level)).Str("component", component).Msgf(message, args...)
}

// CheckErrLog logs the error with context and returns it (for propagation)
func CheckErrLog(level, component, context string, err error) error {
	if err != nil {
		DashLog(level, component, "%s: %v", context, err)
	}
	return err
}

// rotatingFile appends to path and, once it grows past max bytes, shifts
// name.txt -> name-1.txt -> name-2.txt ... and starts a fresh file.
type rotatingFile struct {
	mu   sync.Mutex
	path string
	max  int64
	f    *os.File
	size int64
}

func newRotatingFile(path string, max int64) (*rotatingFile, error) {
	r := &rotatingFile{path: path, max: max}
	if err := r.open(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *rotatingFile) open() error {
	f, err := os.OpenFile(r.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("stat log file: %w", err)
	}
	r.f = f
	r.size = fi.Size()
	return nil
}

func (r *rotatingFile) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.f == nil {
		return 0, os.ErrClosed
	}
	n, err := r.f.Write(p)
	r.size += int64(n)
	if err == nil && r.size > r.max {
		if rerr := r.rotate(); rerr != nil {
			fmt.Fprintf(os.Stderr, "[DashLog] rotation failed: %v\n", rerr)
		}
	}
	return n, err
}

func (r *rotatingFile) rotate() error {
	r.f.Close()
	r.f = nil
	ext := filepath.Ext(r.path)
	base := strings.TrimSuffix(r.path, ext)
	files, _ := filepath.Glob(base + "-*" + ext)
	nums := make([]int, 0, len(files))
	for _, f := range files {
		var n int
		if _, err := fmt.Sscanf(strings.TrimSuffix(strings.TrimPrefix(f, base+"-"), ext), "%d", &n); err == nil && n > 0 {
			nums = append(nums, n)
		}
	}
	// Renumber from highest to lowest so nothing is overwritten.
	sort.Sort(sort.Reverse(sort.IntSlice(nums)))
	for _, n := range nums {
		_ = os.Rename(fmt.Sprintf("%s-%d%s", base, n, ext), fmt.Sprintf("%s-%d%s", base, n+1, ext))
	}
	if err := os.Rename(r.path, fmt.Sprintf("%s-1%s", base, ext)); err != nil {
		return err
	}
	return r.open()
}
