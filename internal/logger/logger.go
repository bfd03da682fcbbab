package logger

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// New инициализирует логгер. level - уровень логирования в формате logrus ("debug", "warn", ...), пустое или
// некорректное значение оставляет уровень окружения: info в продакшн, debug в остальных.
func New(output io.Writer, level string) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(output)
	l.SetFormatter(new(logrus.JSONFormatter))
	l.SetLevel(logrus.InfoLevel)

	// перезаписываем ряд настроек для окружений отличных от продакшн
	if os.Getenv("GIN_MODE") != "release" {
		l.SetLevel(logrus.DebugLevel)
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	if level != "" {
		parsed, err := logrus.ParseLevel(level)
		if err != nil {
			l.WithError(err).Warnf("unknown log level '%s', keeping '%s'", level, l.GetLevel())
			return l
		}
		l.SetLevel(parsed)
	}

	return l
}

// Component возвращает логгер компонента приложения.
func Component(l *logrus.Logger, name string) *logrus.Entry {
	return l.WithField("component", name)
}
