//go:build !linux

package serial

import (
	"fmt"
	"runtime"
)

// SerialReader is only implemented on Linux.
type SerialReader struct {
	config Config
}

// Open always fails on platforms other than Linux.
func Open(cfg Config) (*SerialReader, error) {
	return nil, fmt.Errorf("open %s: serial not supported on %s", cfg.Device, runtime.GOOS)
}

// Config returns the configuration the reader was created with.
func (s *SerialReader) Config() Config { return s.config }

// ReadLine always reports ErrClosed.
func (s *SerialReader) ReadLine() (string, error) { return "", ErrClosed }

// Close is a no-op.
func (s *SerialReader) Close() error { return nil }
