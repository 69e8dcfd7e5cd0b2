package ipmi

import "github.com/sirupsen/logrus"

// NewLogger returns a logrus.Logger configured the way this client
// expects its Arguments.Logger to look: text formatter and full
// timestamps. The level is left at logrus's default; no environment
// variable is consulted. Callers that want JSON
// output or a different level should build their own *logrus.Logger
// and set it on Arguments directly; this constructor only exists so
// NewClient has something sane to default to.
func NewLogger() *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	return log
}
