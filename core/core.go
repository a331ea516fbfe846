package core

import "github.com/hupe1980/mahd/logging"

// EnsureLogger returns l, substituting a NoOpLogger when l is nil so callers
// can log unconditionally.
func EnsureLogger(l logging.Logger) logging.Logger {
	if l == nil {
		return logging.NoOpLogger{}
	}
	return l
}
