package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	AppLogger   *zap.Logger
	ErrorLogger *zap.Logger
)

func init() {
	// Tests and tools may use the loggers without calling Init.
	AppLogger = zap.NewNop()
	ErrorLogger = zap.NewNop()
}

// ensureLogsDir makes sure the ./logs folder exists
func ensureLogsDir() {
	if err := os.MkdirAll("./logs", os.ModePerm); err != nil {
		panic("Failed to create logs directory: " + err.Error())
	}
}

// Init sets up JSON file loggers with rotation plus console output for
// the app log.
func Init() {
	ensureLogsDir()
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder := zapcore.NewJSONEncoder(encoderConfig)

	appCore := zapcore.NewTee(
		zapcore.NewCore(encoder,
			zapcore.AddSync(&lumberjack.Logger{
				Filename: "./logs/app.log", MaxSize: 100, MaxAge: 28, Compress: true,
			}),
			zap.InfoLevel,
		),
		zapcore.NewCore(encoder, zapcore.AddSync(os.Stdout), zap.InfoLevel),
	)
	AppLogger = zap.New(appCore)

	errorCore := zapcore.NewCore(encoder,
		zapcore.AddSync(&lumberjack.Logger{
			Filename: "./logs/error.log", MaxSize: 100, MaxAge: 30, Compress: true,
		}),
		zap.ErrorLevel,
	)
	ErrorLogger = zap.New(errorCore)
}
