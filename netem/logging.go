package netem

import (
	"os"

	"github.com/sirupsen/logrus"
)

var log = &logrus.Logger{
	Out:   os.Stderr,
	Level: logrus.WarnLevel,
	Formatter: &logrus.TextFormatter{
		FullTimestamp: true,
	},
}

// SetLogger replaces the logger reporting emulated faults. Faults are logged
// at debug level.
func SetLogger(l *logrus.Logger) {
	if l != nil {
		log = l
	}
}
