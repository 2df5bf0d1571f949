// Package aqtlog provides the structured loggers used throughout aqt-go,
// mirroring the aqt.<component> logger hierarchy of the original
// implementation with logrus fields instead of Python's logging module.
package aqtlog

import (
	"os"

	"github.com/sirupsen/logrus"
)

var root = newRoot()

func newRoot() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if os.Getenv("AQT_DEBUG") == "1" {
		l.SetLevel(logrus.DebugLevel)
	}
	return l
}

// SetDebug raises or lowers the root logger's level, invoked by the CLI's
// -v flag.
func SetDebug(debug bool) {
	if debug {
		root.SetLevel(logrus.DebugLevel)
	} else {
		root.SetLevel(logrus.InfoLevel)
	}
}

// For returns a logger scoped to the named component (e.g. "resolver",
// "installer", "patcher"), analogous to logging.getLogger("aqt.resolver").
func For(component string) *logrus.Entry {
	return root.WithField("component", component)
}
