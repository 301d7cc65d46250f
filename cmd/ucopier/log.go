package main

import (
	"fmt"

	"github.com/moffa90/go-copier/transfer"
	"github.com/sirupsen/logrus"
)

// logger adapts logrus to transfer.Logger. Key/value pairs become fields.
type logger struct {
	l logrus.FieldLogger
}

var _ transfer.Logger = logger{}

func fields(keysAndValues []interface{}) logrus.Fields {
	f := make(logrus.Fields, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		f[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	if len(keysAndValues)%2 == 1 {
		f["extra"] = keysAndValues[len(keysAndValues)-1]
	}
	return f
}

func (l logger) Debug(msg string, keysAndValues ...interface{}) {
	l.l.WithFields(fields(keysAndValues)).Debug(msg)
}

func (l logger) Info(msg string, keysAndValues ...interface{}) {
	l.l.WithFields(fields(keysAndValues)).Info(msg)
}

func (l logger) Error(msg string, keysAndValues ...interface{}) {
	l.l.WithFields(fields(keysAndValues)).Error(msg)
}
