package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// New builds the process logger. Release mode writes JSON to stdout and a
// rotated file under logs/; otherwise a development console logger is used.
func New() (*zap.Logger, error) {
	if os.Getenv("GIN_MODE") != "release" {
		return zap.NewDevelopment()
	}
	if err := os.MkdirAll("logs", 0o755); err != nil {
		return nil, err
	}
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderCfg),
		zapcore.NewMultiWriteSyncer(
			zapcore.AddSync(os.Stdout),
			zapcore.AddSync(&lumberjack.Logger{
				Filename:   "logs/notifyd.log",
				MaxSize:    20,
				MaxBackups: 5,
				MaxAge:     14,
				Compress:   true,
			}),
		),
		zap.InfoLevel,
	)
	return zap.New(core, zap.AddCaller()).Named("notifyd"), nil
}
