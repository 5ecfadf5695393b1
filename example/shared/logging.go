package shared

import (
	"os"

	"github.com/sirupsen/logrus"
)

// NewLogger logs to stdout at info level, or at debug level with verbose
// set, which also traces every fragment.
func NewLogger(verbose bool) *logrus.Logger {
	level := logrus.InfoLevel
	if verbose {
		level = logrus.DebugLevel
	}
	return &logrus.Logger{
		Out:   os.Stdout,
		Level: level,
		Formatter: &logrus.TextFormatter{
			FullTimestamp: true,
		},
	}
}
