package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"gp-directory/internal/core/config"
)

// Options 日志输出参数；File 为 nil 时只写 stdout
type Options struct {
	Level string // debug / info / warn / error
	JSON  bool
	Dev   bool // DPanic 直接 panic，控制台带颜色
	File  *lumberjack.Logger
}

// FromConfig 两个二进制共用：log.* + app.env
func FromConfig(c *config.Config) (*zap.Logger, func()) {
	o := Options{
		Level: c.Log.Level,
		JSON:  c.Log.JSON,
		Dev:   c.App.Env == "dev",
	}
	if f := c.Log.File; f.Enable {
		o.File = &lumberjack.Logger{
			Filename:   f.Filename,
			MaxSize:    max(1, f.MaxSizeMB),
			MaxBackups: max(0, f.MaxBackups),
			MaxAge:     max(0, f.MaxAgeDays),
			Compress:   f.Compress,
		}
	}
	return New(o)
}

func New(o Options) (*zap.Logger, func()) {
	lvl, err := zapcore.ParseLevel(o.Level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	enc := encoder(o)

	cores := []zapcore.Core{zapcore.NewCore(enc, zapcore.Lock(os.Stdout), lvl)}
	if o.File != nil {
		cores = append(cores, zapcore.NewCore(enc, zapcore.AddSync(o.File), lvl))
	}

	// 同一秒内同一条消息超过 100 次后开始抽样
	core := zapcore.NewSamplerWithOptions(zapcore.NewTee(cores...), time.Second, 100, 100)
	zopts := []zap.Option{zap.AddCaller()}
	if o.Dev {
		zopts = append(zopts, zap.Development())
	}
	l := zap.New(core, zopts...)

	return l, func() {
		_ = l.Sync()
		if o.File != nil {
			_ = o.File.Close()
		}
	}
}

func encoder(o Options) zapcore.Encoder {
	if o.JSON {
		ec := zap.NewProductionEncoderConfig()
		ec.TimeKey = "ts"
		ec.EncodeTime = zapcore.ISO8601TimeEncoder
		ec.EncodeCaller = zapcore.ShortCallerEncoder
		return zapcore.NewJSONEncoder(ec)
	}
	ec := zap.NewDevelopmentEncoderConfig()
	ec.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05.000")
	ec.EncodeCaller = zapcore.ShortCallerEncoder
	if o.Dev {
		ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		ec.EncodeLevel = zapcore.CapitalLevelEncoder
	}
	return zapcore.NewConsoleEncoder(ec)
}

// levelWriter 把按行写入的文本转成一条日志
type levelWriter struct {
	l     *zap.Logger
	level zapcore.Level
}

func (w levelWriter) Write(p []byte) (int, error) {
	if ce := w.l.Check(w.level, strings.TrimRight(string(p), "\r\n")); ce != nil {
		ce.Write()
	}
	return len(p), nil
}

// ToWriter 供 gin.DefaultWriter 等 io.Writer 出口接入 zap
func ToWriter(l *zap.Logger, level zapcore.Level) io.Writer {
	return levelWriter{l: l, level: level}
}

// RedirectStdLog 标准库 log 输出转到 zap，返回还原函数
func RedirectStdLog(l *zap.Logger, level zapcore.Level) func() {
	undo, err := zap.RedirectStdLogAt(l, level)
	if err != nil {
		return func() {}
	}
	return undo
}
