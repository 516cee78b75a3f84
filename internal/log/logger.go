package log

import (
	"fmt"
	"io"
	"os"

	"github.com/bombsimon/logrusr/v4"
	"github.com/go-logr/logr"
	"github.com/sirupsen/logrus"

	"github.com/conference-manager/meeting-publisher/internal/config"
)

const name = "meeting-publisher"

// logger discards everything until Init is called
var logger = logr.Discard()

func Init(conf config.Logs) error {
	ret, err := New(conf, os.Stdout)
	if err != nil {
		return err
	}

	logger = ret

	return nil
}

// New builds a logr.Logger backed by logrus. conf.Level is the highest logr verbosity printed.
func New(conf config.Logs, out io.Writer) (logr.Logger, error) {
	if conf.Level < 0 {
		return logr.Logger{}, fmt.Errorf("unexpected log level %d", conf.Level)
	}

	loggerImpl := logrus.New()

	loggerImpl.SetLevel(logrus.Level(conf.Level + int(logrus.InfoLevel)))
	loggerImpl.SetOutput(out)

	switch conf.Encoder {
	case config.EncoderTypeConsole:
		loggerImpl.SetFormatter(&logrus.TextFormatter{
			DisableColors: true,
		})
	case config.EncoderTypeJson:
		loggerImpl.SetFormatter(&logrus.JSONFormatter{})
	default:
		return logr.Logger{}, fmt.Errorf("unexpected encoder value %v", conf.Encoder)
	}

	return logrusr.New(loggerImpl, logrusr.WithReportCaller()).WithName(name), nil
}

func Logger() logr.Logger {
	return logger
}
