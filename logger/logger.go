package logger

import (
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the process-wide logger. Tests replace it with zap.NewNop().
var Logger = zap.NewNop()

// InitLogger builds the JSON logger. An empty logFile logs to stderr,
// leaving stdout for the tool's own output. Callers Sync the logger before exit.
func InitLogger(logFile string, level string) error {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "time"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder

	atom := zap.NewAtomicLevel()
	if err := atom.UnmarshalText([]byte(level)); err != nil {
		return err
	}

	var out zapcore.WriteSyncer = os.Stderr
	if logFile != "" {
		// Open or create the log file
		file, err := os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return err
		}
		out = file
	}
	// Buffered so logging from event callbacks never waits on the disk.
	// Logger.Sync flushes; entries above error level flush immediately.
	writeSyncer := &zapcore.BufferedWriteSyncer{WS: out, FlushInterval: time.Second}

	encoder := zapcore.NewJSONEncoder(cfg)

	core := zapcore.NewCore(encoder, writeSyncer, atom)
	Logger = zap.New(core, zap.AddCaller())

	return nil
}
