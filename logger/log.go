package logger

import (
	"fmt"
	"os"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	Log   *zap.Logger
	level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	ptr   atomic.Pointer[zap.Logger]
)

func init() {
	encCfg := zapcore.EncoderConfig{
		TimeKey:       "ts",
		LevelKey:      "level",
		NameKey:       "logger",
		CallerKey:     "caller",
		MessageKey:    "msg",
		StacktraceKey: "stack",
		LineEnding:    zapcore.DefaultLineEnding,
		EncodeTime:    zapcore.ISO8601TimeEncoder,
		EncodeLevel:   zapcore.CapitalColorLevelEncoder, // 彩色等级
		EncodeCaller:  zapcore.ShortCallerEncoder,
	}

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encCfg),
		zapcore.AddSync(os.Stdout),
		level,
	)

	Replace(zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)))
}

// Replace 替换全局 logger（测试里可换成 zaptest / zap.NewNop）
func Replace(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	Log = l
	ptr.Store(l)
}

// SetLevel 动态调整日志级别："debug" / "info" / "warn" / "error"
func SetLevel(s string) error {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var lv zapcore.Level
	if err := lv.UnmarshalText([]byte(strings.ToLower(s))); err != nil {
		return err
	}
	level.SetLevel(lv)
	return nil
}

// L 返回带名字的子 logger，调用方直接使用，不跳过调用栈
func L(name string) *zap.Logger {
	return ptr.Load().WithOptions(zap.AddCallerSkip(-1)).Named(name)
}

// 快捷方法
func Info(msg string, fields ...zap.Field) { ptr.Load().Info(msg, fields...) }
func Infof(format string, args ...interface{}) {
	ptr.Load().Info(fmt.Sprintf(format, args...))
}
func Warn(msg string, fields ...zap.Field)  { ptr.Load().Warn(msg, fields...) }
func Error(msg string, fields ...zap.Field) { ptr.Load().Error(msg, fields...) }

func Errorf(format string, args ...interface{}) {
	ptr.Load().Error(fmt.Sprintf(format, args...))
}

func Debug(msg string, fields ...zap.Field) { ptr.Load().Debug(msg, fields...) }

func Sync() error {
	return ptr.Load().Sync()
}
