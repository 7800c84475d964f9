package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"

	"github.com/grovetools/devsync/config"
	"github.com/grovetools/devsync/pkg/paths"
)

var (
	loggers   = make(map[string]*logrus.Entry)
	loggersMu sync.Mutex

	// override is set by Configure and replaces the lookup of devsync.yml.
	override *Config

	files = make(map[string]*os.File)
)

// NewLogger creates and returns a pre-configured logger for a specific component.
// It uses a singleton pattern per component to avoid re-initializing.
func NewLogger(component string) *logrus.Entry {
	loggersMu.Lock()
	defer loggersMu.Unlock()

	if logger, exists := loggers[component]; exists {
		return logger
	}

	logger := logrus.New()
	apply(logger, currentConfig())

	entry := logger.WithField("component", component)
	loggers[component] = entry
	return entry
}

// Configure applies the logging section of cfg to every logger created so
// far and to those created later. It is called on startup with the loaded
// configuration and again whenever the configuration is reloaded.
func Configure(cfg *config.Config) error {
	var logCfg Config
	if cfg != nil {
		if err := cfg.UnmarshalExtension("logging", &logCfg); err != nil {
			return err
		}
	}

	loggersMu.Lock()
	defer loggersMu.Unlock()
	override = &logCfg
	for _, entry := range loggers {
		apply(entry.Logger, logCfg)
	}
	return nil
}

// Reset drops every cached logger and configuration override.
func Reset() {
	loggersMu.Lock()
	defer loggersMu.Unlock()
	loggers = make(map[string]*logrus.Entry)
	override = nil
	for path, f := range files {
		f.Close()
		delete(files, path)
	}
}

// LogFilePath returns the file the file sink writes to for cfg.
func LogFilePath(cfg Config) string {
	if cfg.File.Path != "" {
		return expandPath(cfg.File.Path)
	}
	dir := paths.LogDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, fmt.Sprintf("devsync-%s.log", time.Now().Format("2006-01-02")))
}

// CurrentConfig returns the logging configuration in effect.
func CurrentConfig() Config {
	loggersMu.Lock()
	defer loggersMu.Unlock()
	return currentConfig()
}

func currentConfig() Config {
	if override != nil {
		return *override
	}
	var logCfg Config
	cfg, err := config.LoadDefault()
	if err == nil {
		// Use UnmarshalExtension to safely decode the logging part
		if err := cfg.UnmarshalExtension("logging", &logCfg); err != nil {
			logrus.Warnf("Failed to parse 'logging' config: %v", err)
		}
	}
	return logCfg
}

// apply configures logger from logCfg. Callers hold loggersMu.
func apply(logger *logrus.Logger, logCfg Config) {
	levelStr := "info"
	if env := os.Getenv("DEVSYNC_LOG_LEVEL"); env != "" {
		levelStr = env
	} else if logCfg.Level != "" {
		levelStr = logCfg.Level
	}
	level, err := logrus.ParseLevel(levelStr)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	logger.SetReportCaller(os.Getenv("DEVSYNC_LOG_CALLER") == "true" || logCfg.ReportCaller)

	var stderrFormatter logrus.Formatter
	switch logCfg.Format.Preset {
	case "json":
		stderrFormatter = &logrus.JSONFormatter{}
	case "simple":
		stderrFormatter = &TextFormatter{Config: FormatConfig{
			DisableTimestamp: true,
			DisableComponent: true,
		}}
	default:
		stderrFormatter = &TextFormatter{Config: logCfg.Format}
	}

	stderrMode := "always"
	if logCfg.Format.StructuredToStderr != "" {
		stderrMode = logCfg.Format.StructuredToStderr
	}
	shouldLogToStderr := false
	switch stderrMode {
	case "always":
		shouldLogToStderr = true
	case "never":
	case "auto":
		// Only show structured logs when debugging or when stderr is not
		// an interactive terminal.
		isDebug := os.Getenv("DEVSYNC_DEBUG") == "1" || level == logrus.DebugLevel
		isInteractive := isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())
		shouldLogToStderr = isDebug || !isInteractive
	}

	logger.SetFormatter(stderrFormatter)
	if shouldLogToStderr {
		logger.SetOutput(GetGlobalOutput())
	} else {
		logger.SetOutput(io.Discard)
	}

	hooks := make(logrus.LevelHooks)
	if f := openLogFile(logger, logCfg); f != nil {
		var fileFormatter logrus.Formatter = &TextFormatter{Config: logCfg.Format, NoColor: true}
		if logCfg.File.Format == "json" {
			fileFormatter = &logrus.JSONFormatter{}
		}
		hooks.Add(&fileHook{w: f, formatter: fileFormatter})
	}
	logger.ReplaceHooks(hooks)
}

// fileHook writes every entry to the log file with its own formatter, so
// the file stays free of terminal styling.
type fileHook struct {
	mu        sync.Mutex
	w         io.Writer
	formatter logrus.Formatter
}

func (h *fileHook) Levels() []logrus.Level { return logrus.AllLevels }

func (h *fileHook) Fire(entry *logrus.Entry) error {
	line, err := h.formatter.Format(entry)
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	_, err = h.w.Write(line)
	return err
}

// openLogFile returns the shared handle of the configured log file.
// Failures only warn when the sink was explicitly enabled.
func openLogFile(logger *logrus.Logger, logCfg Config) *os.File {
	path := LogFilePath(logCfg)
	if path == "" {
		return nil
	}
	if f, ok := files[path]; ok {
		return f
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		if logCfg.File.Enabled {
			logger.Warnf("Failed to create log directory %s: %v", filepath.Dir(path), err)
		}
		return nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		if logCfg.File.Enabled {
			logger.Warnf("Failed to open log file %s: %v", path, err)
		}
		return nil
	}
	files[path] = f
	return f
}

// expandPath expands tilde in file paths
func expandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}
