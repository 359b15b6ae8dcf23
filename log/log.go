// Package log provides loggers for tone pipelines and commands.
package log

import (
	"os"
	"strconv"

	"github.com/sirupsen/logrus"
)

// DebugEnv is the environment variable that enables debug level.
const DebugEnv = "TONE_DEBUG"

var debug bool

func init() {
	var err error
	debug, err = strconv.ParseBool(os.Getenv(DebugEnv))
	if err != nil {
		debug = false
	}
}

// GetLogger returns a new logger instance. Debug level is enabled if
// TONE_DEBUG is set to a true value.
func GetLogger() *logrus.Logger {
	l := logrus.New()
	if debug {
		l.SetLevel(logrus.DebugLevel)
	}
	return l
}

// SetDebug overrides the level of loggers returned by GetLogger.
func SetDebug(enabled bool) {
	debug = enabled
}

// Fields returns an entry of the logger annotated with the pipeline name
// and id.
func Fields(l *logrus.Logger, name, id string) *logrus.Entry {
	return l.WithFields(logrus.Fields{
		"pipe": name,
		"id":   id,
	})
}
