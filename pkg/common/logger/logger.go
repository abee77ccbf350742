package logger

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Log is usable before Init for code paths (and tests) that run without
// the full service bootstrap; Init applies the production configuration.
var Log = logrus.New()

func Init() {
	Log.SetOutput(os.Stdout)
	Log.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
	})

	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		level = "info"
	}

	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	Log.SetLevel(logLevel)
}

func WithField(key string, value interface{}) *logrus.Entry {
	return Log.WithField(key, value)
}

func WithFields(fields logrus.Fields) *logrus.Entry {
	return Log.WithFields(fields)
}

func WithError(err error) *logrus.Entry {
	return Log.WithError(err)
}

// WithOrder tags an entry with the internal order id, the field every
// fulfillment log line is correlated on.
func WithOrder(orderID string) *logrus.Entry {
	return Log.WithField("order_id", orderID)
}
