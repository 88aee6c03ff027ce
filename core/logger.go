package core

import "github.com/sirupsen/logrus"

// stdLogger is the package default, used by components that are not handed
// their own *logrus.Logger — the same fallback shape as the teacher's
// internal/charity_pool_management.go NewCharityPoolManager(nil logger).
var stdLogger = logrus.StandardLogger()

// SetLogger replaces the package default logger.
func SetLogger(l *logrus.Logger) {
	stdLogger = l
}
