package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/jmx-collector/pkg/config"
	"github.com/jmx-collector/pkg/goid"
)

type Logger = zap.Logger

var (
	// 未初始化前使用 Nop，避免库代码和单测在 Init 之前 panic
	baseLogger        = zap.NewNop()
	loggerInitOnce    sync.Once
	loggerInitialized bool
	mu                sync.RWMutex
)

// InitLogger 初始化全局日志：控制台彩色输出 + JSON 按天滚动文件
func InitLogger(cfg *config.ZapLogConfig) (*zap.Logger, error) {
	var err error
	loggerInitOnce.Do(func() {
		level := parseLevel(cfg.Level)

		if err = os.MkdirAll(cfg.Path, 0755); err != nil {
			return
		}

		maxAge := cfg.MaxAge
		if maxAge <= 0 {
			maxAge = 7
		}
		maxSize := cfg.MaxSize
		if maxSize <= 0 {
			maxSize = 100
		}
		writer, wErr := rotatelogs.New(
			filepath.Join(cfg.Path, "jmx-collector-%Y%m%d.log"),
			rotatelogs.WithMaxAge(time.Duration(maxAge)*24*time.Hour),
			rotatelogs.WithRotationTime(24*time.Hour),
			rotatelogs.WithRotationSize(int64(maxSize)*1024*1024),
		)
		if wErr != nil {
			err = wErr
			return
		}

		var consoleEncoder zapcore.Encoder
		if cfg.Format == "json" {
			consoleEncoder = zapcore.NewJSONEncoder(jsonEncoderConfig())
		} else {
			consoleEncoder = zapcore.NewConsoleEncoder(consoleEncoderConfig())
		}

		core := zapcore.NewTee(
			zapcore.NewCore(consoleEncoder, zapcore.AddSync(os.Stdout), level),
			zapcore.NewCore(zapcore.NewJSONEncoder(jsonEncoderConfig()), zapcore.AddSync(writer), level),
		)

		mu.Lock()
		baseLogger = zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
		loggerInitialized = true
		mu.Unlock()
	})
	if err != nil {
		return nil, err
	}
	return GetLogger(), nil
}

func parseLevel(s string) zapcore.Level {
	switch strings.ToLower(s) {
	case "dbg", "debug":
		return zapcore.DebugLevel
	case "war", "warn":
		return zapcore.WarnLevel
	case "err", "error":
		return zapcore.ErrorLevel
	case "pan", "panic":
		return zapcore.PanicLevel
	case "fat", "fatal":
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

func consoleEncoderConfig() zapcore.EncoderConfig {
	// 控制台彩色时间
	customTimeEncoderConsole := func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(fmt.Sprintf("\033[34m%s\033[0m", t.Format("2006-01-02 15:04:05.000 -07:00")))
	}

	coloredLevelEncoder := func(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
		var levelStr string
		switch level {
		case zapcore.DebugLevel:
			levelStr = "\033[36mDEBUG\033[0m"
		case zapcore.InfoLevel:
			levelStr = "\033[32mINFO \033[0m"
		case zapcore.WarnLevel:
			levelStr = "\033[33mWARN \033[0m"
		case zapcore.ErrorLevel:
			levelStr = "\033[31mERROR\033[0m"
		case zapcore.DPanicLevel, zapcore.PanicLevel, zapcore.FatalLevel:
			levelStr = "\033[35m" + level.CapitalString() + "\033[0m"
		default:
			levelStr = "UNK  "
		}
		enc.AppendString(levelStr)
	}

	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.ConsoleSeparator = " "
	encCfg.EncodeLevel = coloredLevelEncoder
	encCfg.EncodeTime = customTimeEncoderConsole
	// Caller 两级路径
	encCfg.EncodeCaller = func(c zapcore.EntryCaller, enc zapcore.PrimitiveArrayEncoder) {
		rel := filepath.Join(filepath.Base(filepath.Dir(c.File)), filepath.Base(c.File))
		enc.AppendString(fmt.Sprintf("%s:%d", rel, c.Line))
	}
	return encCfg
}

func jsonEncoderConfig() zapcore.EncoderConfig {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "timestamp"
	encCfg.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(t.Format("2006-01-02 15:04:05.000 -07:00"))
	}
	encCfg.EncodeLevel = zapcore.LowercaseLevelEncoder
	return encCfg
}

// GetLogger 返回全局 zap.Logger（未初始化时为 Nop）
func GetLogger() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return baseLogger
}

// Named 为组件创建子 logger，组件内部通过依赖注入持有
func Named(component string) *zap.Logger {
	return GetLogger().Named(component).With(zap.String("component", component))
}

// Initialized 是否已经完成 InitLogger
func Initialized() bool {
	mu.RLock()
	defer mu.RUnlock()
	return loggerInitialized
}

func log(level zapcore.Level, msg string, fields ...zapcore.Field) {
	l := GetLogger().WithOptions(zap.AddCallerSkip(2))
	fields = append(fields, zap.String("goid", strconv.FormatUint(goid.GetGID(), 10)))
	if ce := l.Check(level, msg); ce != nil {
		ce.Write(fields...)
	}
}

func Debug(msg string, fields ...zapcore.Field) { log(zap.DebugLevel, msg, fields...) }
func Info(msg string, fields ...zapcore.Field)  { log(zap.InfoLevel, msg, fields...) }
func Warn(msg string, fields ...zapcore.Field)  { log(zap.WarnLevel, msg, fields...) }
func Error(msg string, fields ...zapcore.Field) { log(zap.ErrorLevel, msg, fields...) }
func Panic(msg string, fields ...zapcore.Field) { log(zap.PanicLevel, msg, fields...) }
func Fatal(msg string, fields ...zapcore.Field) { log(zap.FatalLevel, msg, fields...) }

// Sync 刷盘，未初始化时直接返回
func Sync() error {
	if !Initialized() {
		return nil
	}
	return GetLogger().Sync()
}
