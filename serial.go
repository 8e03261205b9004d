package serial

import (
	"errors"
	"time"
)

var (
	// ErrTimeout is returned by ReadLine when no complete line arrived within
	// Config.ReadTimeout. Partial data is kept for the next call.
	ErrTimeout = errors.New("serialreader: read timeout")

	// ErrClosed is returned by ReadLine once Close has been called.
	ErrClosed = errors.New("serialreader closed")

	// ErrLineTooLong is returned when a line exceeds Config.MaxLineLength.
	// The whole line, up to and including its delimiter, is discarded.
	ErrLineTooLong = errors.New("serialreader: line too long")
)

// Defaults applied by Open to zero Config fields.
const (
	DefaultDelimiter     = "\n"
	DefaultReadTimeout   = time.Second
	DefaultMaxLineLength = 4096
)

// Config holds configuration parameters for opening a serial port.
type Config struct {
	Device        string
	BaudRate      int
	Delimiter     string        // default "\n"
	ReadTimeout   time.Duration // default 1s
	MaxLineLength int           // default 4096
}

func (c Config) withDefaults() Config {
	if c.Delimiter == "" {
		c.Delimiter = DefaultDelimiter
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = DefaultReadTimeout
	}
	if c.MaxLineLength <= 0 {
		c.MaxLineLength = DefaultMaxLineLength
	}
	return c
}

// ReadLinesLoop continuously reads lines from the serial port and invokes onLine for each complete line.
// Timeouts and over-long lines are skipped. The loop returns quietly after Close;
// any other error is passed to onError and the loop exits.
func (s *SerialReader) ReadLinesLoop(onLine func(string), onError func(error)) {
	for {
		line, err := s.ReadLine()
		switch {
		case err == nil:
			onLine(line)
		case errors.Is(err, ErrTimeout), errors.Is(err, ErrLineTooLong):
			continue
		case errors.Is(err, ErrClosed):
			return
		default:
			onError(err)
			return
		}
	}
}
