package logger

import (
	"github.com/sirupsen/logrus"
)

var Log = logrus.StandardLogger()

// Init инициализирует структурированный логгер. Формат по умолчанию JSON.
func Init(level string) *logrus.Logger {
	Log = logrus.New()

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	Log.SetLevel(lvl)
	Log.SetFormatter(&logrus.JSONFormatter{})

	return Log
}

// SetTextFormatter устанавливает текстовый формат логов (для development).
func SetTextFormatter() {
	Log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
}

// Component возвращает логгер с полем component, по нему фильтруются логи подсистем.
func Component(name string) logrus.FieldLogger {
	return Log.WithField("component", name)
}
