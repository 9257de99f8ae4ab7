// Package logging builds the process-wide structured logger: a Tee of a
// human-readable (or JSON) console core on stderr and a JSON core writing
// to a size- and age-rotated file under a logs directory.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures logger construction.
type Options struct {
	// Level is the minimum level emitted ("debug", "info", "warn", "error").
	Level string
	// JSON forces JSON encoding on the console core too (for log-pipeline
	// ingestion instead of human-readable development output).
	JSON bool
	// Dir is the directory rotated log files are written under. Defaults to
	// "logs".
	Dir string
	// Prefix names the rotated log file, e.g. "scrape" -> logs/scrape.log.
	Prefix string
}

// New builds a *zap.SugaredLogger writing to both stderr and a rotated file.
func New(opts Options) (*zap.SugaredLogger, func(), error) {
	if opts.Dir == "" {
		opts.Dir = "logs"
	}
	if opts.Prefix == "" {
		opts.Prefix = "scrape"
	}
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("creating log directory: %w", err)
	}

	level, err := zapcore.ParseLevel(opts.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderCfg.TimeKey = "ts"

	var consoleEncoder zapcore.Encoder
	if opts.JSON {
		consoleEncoder = zapcore.NewJSONEncoder(encoderCfg)
	} else {
		devCfg := encoderCfg
		devCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		consoleEncoder = zapcore.NewConsoleEncoder(devCfg)
	}

	fileWriter := zapcore.AddSync(&lumberjack.Logger{
		Filename:   filepath.Join(opts.Dir, opts.Prefix+".log"),
		MaxSize:    50, // megabytes
		MaxBackups: 5,
		MaxAge:     30, // days
		Compress:   true,
	})

	core := zapcore.NewTee(
		zapcore.NewCore(consoleEncoder, zapcore.Lock(os.Stderr), level),
		zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), fileWriter, level),
	)

	logger := zap.New(core, zap.AddCaller())
	sugar := logger.Sugar()

	cleanup := func() {
		_ = logger.Sync()
	}
	return sugar, cleanup, nil
}

// Nop returns a logger that discards everything, for use in tests.
func Nop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

// RunTimestamp is the shared "started at" stamp a caller may use to derive
// output/log filenames. Callers capture this once at process start.
func RunTimestamp() string {
	return time.Now().Format("20060102_150405")
}
