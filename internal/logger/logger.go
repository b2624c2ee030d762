package logger

import (
	"github.com/sirupsen/logrus"
)

// Log глобальный логгер. До вызова Init пишет в stderr с уровнем info.
var Log = logrus.New()

// Init инициализирует структурированный логгер.
func Init(level string) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	Log.SetLevel(lvl)

	// Используем JSON формат для production, text для development
	Log.SetFormatter(&logrus.JSONFormatter{})
}

// SetTextFormatter устанавливает текстовый формат логов (для development).
func SetTextFormatter() {
	Log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
}

// Component возвращает логгер с полем component.
func Component(name string) *logrus.Entry {
	return Log.WithField("component", name)
}

// LeveledLogger адаптирует logrus к интерфейсу retryablehttp.LeveledLogger.
type LeveledLogger struct {
	Entry *logrus.Entry
}

// Error понижается до warn: промежуточные ошибки повторяются.
func (l LeveledLogger) Error(msg string, keysAndValues ...interface{}) {
	l.Entry.WithFields(fields(keysAndValues)).Warn(msg)
}

func (l LeveledLogger) Info(msg string, keysAndValues ...interface{}) {
	l.Entry.WithFields(fields(keysAndValues)).Info(msg)
}

func (l LeveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.Entry.WithFields(fields(keysAndValues)).Debug(msg)
}

func (l LeveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.Entry.WithFields(fields(keysAndValues)).Warn(msg)
}

func fields(keysAndValues []interface{}) logrus.Fields {
	f := logrus.Fields{}
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		f[key] = keysAndValues[i+1]
	}
	return f
}
