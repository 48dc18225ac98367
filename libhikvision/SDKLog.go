package libhikvision

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// SDK log levels
const (
	SDKLogOff   = 0 // no log file is written
	SDKLogError = 1 // errors only
	SDKLogInfo  = 2 // errors and lifecycle information
	SDKLogDebug = 3 // everything
)

const (
	sdkLogPrefix = "hikcam_"
	sdkLogSuffix = ".log"

	// DefaultSDKLogDir is the directory the SDK log is written to
	DefaultSDKLogDir = "sdklog"
	// DefaultSDKLogFiles is the number of log files kept when AutoDelete is set
	DefaultSDKLogFiles = 10
)

// SDKLogConfig controls the diagnostic log file written during a session
type SDKLogConfig struct {
	Level      int    `yaml:"level"`
	Dir        string `yaml:"dir"`
	AutoDelete bool   `yaml:"auto_delete"`
	MaxFiles   int    `yaml:"max_files"`
}

// DefaultSDKLogConfig logs everything to DefaultSDKLogDir and prunes old files
func DefaultSDKLogConfig() SDKLogConfig {
	return SDKLogConfig{
		Level:      SDKLogDebug,
		Dir:        DefaultSDKLogDir,
		AutoDelete: true,
		MaxFiles:   DefaultSDKLogFiles,
	}
}

// SDKLog is an open diagnostic log file
type SDKLog struct {
	file   *os.File
	logger zerolog.Logger
}

// OpenSDKLog creates the log directory and opens today's log file for appending.
// With level SDKLogOff nothing is created and the returned log discards everything.
func OpenSDKLog(cfg SDKLogConfig) (*SDKLog, error) {
	if cfg.Level <= SDKLogOff {
		return &SDKLog{logger: zerolog.Nop()}, nil
	}
	if cfg.Dir == "" {
		cfg.Dir = DefaultSDKLogDir
	}

	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create SDK log directory: %w", err)
	}

	name := filepath.Join(cfg.Dir, sdkLogPrefix+time.Now().Format("20060102")+sdkLogSuffix)
	file, err := os.OpenFile(name, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open SDK log: %w", err)
	}

	if cfg.AutoDelete {
		maxFiles := cfg.MaxFiles
		if maxFiles <= 0 {
			maxFiles = DefaultSDKLogFiles
		}
		if err := pruneSDKLogs(cfg.Dir, maxFiles); err != nil {
			file.Close()
			return nil, err
		}
	}

	logger := zerolog.New(file).
		Level(sdkLogLevel(cfg.Level)).
		With().
		Timestamp().
		Logger()

	return &SDKLog{file: file, logger: logger}, nil
}

func sdkLogLevel(level int) zerolog.Level {
	switch {
	case level >= SDKLogDebug:
		return zerolog.DebugLevel
	case level == SDKLogInfo:
		return zerolog.InfoLevel
	default:
		return zerolog.ErrorLevel
	}
}

// pruneSDKLogs removes the oldest log files so that at most keep remain
func pruneSDKLogs(dir string, keep int) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read SDK log directory: %w", err)
	}

	logs := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.Type().IsRegular() && strings.HasPrefix(name, sdkLogPrefix) && strings.HasSuffix(name, sdkLogSuffix) {
			logs = append(logs, name)
		}
	}
	if len(logs) <= keep {
		return nil
	}

	// file names embed the date, lexical order is age order
	sort.Strings(logs)
	for _, name := range logs[:len(logs)-keep] {
		if err := os.Remove(filepath.Join(dir, name)); err != nil {
			return fmt.Errorf("remove old SDK log: %w", err)
		}
	}
	return nil
}

// Logger returns the logger writing to this file
func (l *SDKLog) Logger() zerolog.Logger {
	return l.logger
}

// Path returns the log file path, empty when logging is off
func (l *SDKLog) Path() string {
	if l.file == nil {
		return ""
	}
	return l.file.Name()
}

// Close closes the log file
func (l *SDKLog) Close() error {
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	l.logger = zerolog.Nop()
	return err
}
