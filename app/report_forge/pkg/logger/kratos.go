package logger

import (
	"fmt"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/sirupsen/logrus"
)

// kratosLogger 把 kratos 的 log.Logger 接口桥接到 logrus
type kratosLogger struct {
	l *logrus.Logger
}

// NewKratosLogger 让 HTTP 服务与引擎写入同一个日志出口
func NewKratosLogger(l *logrus.Logger) log.Logger {
	if l == nil {
		l = Default()
	}
	return &kratosLogger{l: l}
}

// Log 实现 log.Logger
func (k *kratosLogger) Log(level log.Level, keyvals ...interface{}) error {
	if len(keyvals) == 0 {
		return nil
	}
	if len(keyvals)%2 != 0 {
		keyvals = append(keyvals, "KEYVALS UNPAIRED")
	}

	fields := make(logrus.Fields, len(keyvals)/2)
	var msg string
	for i := 0; i < len(keyvals); i += 2 {
		key := fmt.Sprint(keyvals[i])
		if key == log.DefaultMessageKey {
			msg = fmt.Sprint(keyvals[i+1])
			continue
		}
		fields[key] = keyvals[i+1]
	}

	entry := k.l.WithFields(fields)
	switch level {
	case log.LevelDebug:
		entry.Debug(msg)
	case log.LevelWarn:
		entry.Warn(msg)
	case log.LevelError:
		entry.Error(msg)
	case log.LevelFatal:
		// kratos 的 Fatal 由调用方决定是否退出，这里只记录
		entry.Error(msg)
	default:
		entry.Info(msg)
	}
	return nil
}
