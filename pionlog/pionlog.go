package pionlog

import (
	"github.com/pion/logging"
	"github.com/sirupsen/logrus"
)

// Factory adapts a logrus logger to pion's logging.LoggerFactory, so pion
// components share the application log stream.
type Factory struct {
	log *logrus.Entry
}

var _ logging.LoggerFactory = &Factory{}

func NewFactory(log *logrus.Entry) *Factory {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	return &Factory{
		log: log.WithField("source", "pion"),
	}
}

func (f *Factory) NewLogger(subsystem string) logging.LeveledLogger {
	return &pionLogger{
		log: f.log.WithField("subsystem", subsystem),
	}
}

type pionLogger struct {
	log *logrus.Entry
}

func (p *pionLogger) Trace(msg string) {
	p.log.Trace(msg)
}

func (p *pionLogger) Tracef(format string, args ...interface{}) {
	p.log.Tracef(format, args...)
}

func (p *pionLogger) Debug(msg string) {
	p.log.Debug(msg)
}

func (p *pionLogger) Debugf(format string, args ...interface{}) {
	p.log.Debugf(format, args...)
}

func (p *pionLogger) Info(msg string) {
	p.log.Info(msg)
}

func (p *pionLogger) Infof(format string, args ...interface{}) {
	p.log.Infof(format, args...)
}

func (p *pionLogger) Warn(msg string) {
	p.log.Warn(msg)
}

func (p *pionLogger) Warnf(format string, args ...interface{}) {
	p.log.Warnf(format, args...)
}

func (p *pionLogger) Error(msg string) {
	p.log.Error(msg)
}

func (p *pionLogger) Errorf(format string, args ...interface{}) {
	p.log.Errorf(format, args...)
}
