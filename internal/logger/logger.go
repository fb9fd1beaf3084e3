package logger

import (
	"net/http"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const timeLayout = "2006/01/02 15:04:05"

// до вызова Init логи отбрасываются
var Logger = zap.NewNop()

// Options - параметры логгера, файл пишется с ротацией
type Options struct {
	Level       string
	Development bool
	File        string
	MaxSizeMB   int
	MaxBackups  int
	MaxAgeDays  int
	Compress    bool
}

func Init(opts Options) error {
	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if opts.Level != "" {
		parsed, err := zap.ParseAtomicLevel(opts.Level)
		if err != nil {
			return err
		}
		level = parsed
	}

	var encoderConfig zapcore.EncoderConfig
	if opts.Development {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
	}
	encoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout(timeLayout)

	var consoleEncoder zapcore.Encoder
	if opts.Development {
		consoleEncoder = zapcore.NewConsoleEncoder(encoderConfig)
	} else {
		consoleEncoder = zapcore.NewJSONEncoder(encoderConfig)
	}

	cores := []zapcore.Core{
		zapcore.NewCore(consoleEncoder, zapcore.Lock(os.Stdout), level),
	}

	if opts.File != "" {
		fileConfig := zap.NewProductionEncoderConfig()
		fileConfig.EncodeTime = zapcore.TimeEncoderOfLayout(timeLayout)

		writer := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
			Compress:   opts.Compress,
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(fileConfig), zapcore.AddSync(writer), level))
	}

	zapOpts := []zap.Option{zap.AddCaller(), zap.AddCallerSkip(1)}
	if opts.Development {
		zapOpts = append(zapOpts, zap.Development())
	}

	Logger = zap.New(zapcore.NewTee(cores...), zapOpts...)
	return nil
}

func Sync() {
	_ = Logger.Sync()
}

func Info(msg string, fields ...zap.Field) {
	Logger.Info(msg, fields...)
}

func Debug(msg string, fields ...zap.Field) {
	Logger.Debug(msg, fields...)
}

func Log(lvl zapcore.Level, msg string, fields ...zap.Field) {
	Logger.Log(lvl, msg, fields...)
}

func HttpRequestInfo(r *http.Request, msg string, fields ...zap.Field) {
	allFields := []zap.Field{
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("query", r.URL.RawQuery),
		zap.String("client_ip", r.RemoteAddr),
	}
	allFields = append(allFields, fields...)
	Logger.Info(msg, allFields...)
}

func Error(msg string, err error, fields ...zap.Field) {
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	Logger.Error(msg, fields...)
}

func Warn(msg string, fields ...zap.Field) {
	Logger.Warn(msg, fields...)
}
