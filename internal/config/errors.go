package config

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedFormat is returned for files with an unknown extension.
	ErrUnsupportedFormat = errors.New("unsupported configuration format")

	// ErrWatcherClosed is returned when using a closed Watcher.
	ErrWatcherClosed = errors.New("watcher is closed")
)

// ParseError reports a file that could not be decoded.
type ParseError struct {
	Path    string
	Message string
	Err     error
}

// Error implements error.
func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing %s: %s", e.Path, e.Message)
}

// Unwrap returns the underlying decoder error.
func (e *ParseError) Unwrap() error {
	return e.Err
}
