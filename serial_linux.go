//go:build linux

package serial

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"os"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// SerialReader provides killable, line-oriented access to a Linux serial port.
// ReadLine is meant to be driven by one goroutine; Close may be called from any.
type SerialReader struct {
	file      *os.File
	fd        int
	done      chan struct{}
	closeOnce sync.Once
	config    Config
	pipeR     int // self-pipe read fd
	pipeW     int // self-pipe write fd

	mu         sync.Mutex // held by ReadLine, taken by Close before releasing fds
	buf        []byte
	pending    []byte
	discarding bool // dropping the rest of an over-long line
}

// Open opens a serial port using the provided Config and returns a SerialReader.
// The port is configured for raw 8N1 operation at cfg.BaudRate.
func Open(cfg Config) (*SerialReader, error) {
	cfg = cfg.withDefaults()

	speed, err := baudToUnix(cfg.BaudRate)
	if err != nil {
		return nil, err
	}

	// O_NONBLOCK so open does not wait for carrier detect.
	fd, err := unix.Open(cfg.Device, unix.O_RDWR|unix.O_NOCTTY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Device, err)
	}
	ok := false
	defer func() {
		if !ok {
			_ = unix.Close(fd)
		}
	}()

	termios, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return nil, fmt.Errorf("get termios: %w", err)
	}

	// Raw mode
	termios.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP | unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON
	termios.Oflag &^= unix.OPOST
	termios.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN
	termios.Cflag &^= unix.CSIZE | unix.PARENB
	termios.Cflag |= unix.CS8 | unix.CREAD | unix.CLOCAL

	termios.Cflag &^= unix.CBAUD
	termios.Cflag |= speed
	termios.Ispeed = speed
	termios.Ospeed = speed

	// Reads only happen after poll reports data, so VMIN=1 never blocks.
	termios.Cc[unix.VMIN] = 1
	termios.Cc[unix.VTIME] = 0

	if err := unix.IoctlSetTermios(fd, unix.TCSETS, termios); err != nil {
		return nil, fmt.Errorf("set termios: %w", err)
	}

	if err := unix.SetNonblock(fd, false); err != nil {
		return nil, fmt.Errorf("set blocking: %w", err)
	}

	pipeFds := make([]int, 2)
	if err := unix.Pipe2(pipeFds, unix.O_CLOEXEC); err != nil {
		return nil, fmt.Errorf("pipe: %w", err)
	}

	file := os.NewFile(uintptr(fd), cfg.Device)
	if file == nil {
		_ = unix.Close(pipeFds[0])
		_ = unix.Close(pipeFds[1])
		return nil, fmt.Errorf("os.NewFile failed")
	}
	ok = true

	return &SerialReader{
		file:   file,
		fd:     fd,
		done:   make(chan struct{}),
		config: cfg,
		pipeR:  pipeFds[0],
		pipeW:  pipeFds[1],
		buf:    make([]byte, 4096),
	}, nil
}

// Config returns the effective configuration, defaults applied.
func (s *SerialReader) Config() Config { return s.config }

// ReadLine returns the next line without its delimiter.
//
// It waits at most Config.ReadTimeout for data and returns ErrTimeout when
// nothing completes a line in that window; bytes already received stay
// buffered. A line longer than Config.MaxLineLength yields ErrLineTooLong
// once and is never returned, not even in part. After Close it returns ErrClosed. Device errors, hang-ups and
// EOF are returned as-is.
func (s *SerialReader) ReadLine() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deadline := time.Now().Add(s.config.ReadTimeout)
	for {
		select {
		case <-s.done:
			return "", ErrClosed
		default:
		}

		line, ok, err := s.nextLine()
		if err != nil {
			return "", err
		}
		if ok {
			return line, nil
		}

		wait := time.Until(deadline)
		if wait <= 0 {
			return "", ErrTimeout
		}

		pfd := []unix.PollFd{
			{Fd: int32(s.fd), Events: unix.POLLIN},
			{Fd: int32(s.pipeR), Events: unix.POLLIN},
		}
		n, err := unix.Poll(pfd, pollMillis(wait))
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return "", fmt.Errorf("poll: %w", err)
		}
		if n == 0 {
			return "", ErrTimeout
		}
		if pfd[1].Revents != 0 {
			return "", ErrClosed
		}
		if pfd[0].Revents&unix.POLLNVAL != 0 {
			return "", fmt.Errorf("poll %s: invalid descriptor", s.config.Device)
		}
		if pfd[0].Revents&(unix.POLLIN|unix.POLLHUP|unix.POLLERR) != 0 {
			n, err := s.file.Read(s.buf)
			if n > 0 {
				s.pending = append(s.pending, s.buf[:n]...)
			}
			if err != nil {
				select {
				case <-s.done:
					return "", ErrClosed
				default:
				}
				return "", err
			}
		}
	}
}

// nextLine takes the next complete line out of pending. It reports
// ErrLineTooLong once per over-long line and then skips that line's
// remaining bytes through the next delimiter.
func (s *SerialReader) nextLine() (string, bool, error) {
	delim := []byte(s.config.Delimiter)
	for {
		idx := bytes.Index(s.pending, delim)
		if idx < 0 {
			if !s.discarding && len(s.pending) <= s.config.MaxLineLength {
				return "", false, nil
			}
			// Keep a possibly split delimiter.
			keep := min(len(delim)-1, len(s.pending))
			s.pending = append(s.pending[:0], s.pending[len(s.pending)-keep:]...)
			if s.discarding {
				return "", false, nil
			}
			s.discarding = true
			return "", false, ErrLineTooLong
		}

		skip := s.discarding
		tooLong := idx > s.config.MaxLineLength
		var line string
		if !skip && !tooLong {
			line = string(s.pending[:idx])
		}
		s.pending = append(s.pending[:0], s.pending[idx+len(delim):]...)
		s.discarding = false

		switch {
		case skip:
			continue
		case tooLong:
			return "", false, ErrLineTooLong
		}
		return line, true, nil
	}
}

// Close closes the serial port and unblocks any ReadLine/ReadLinesLoop calls.
// Safe to call multiple times; subsequent calls are no-ops.
func (s *SerialReader) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		// Wake up poll using self-pipe
		_, _ = unix.Write(s.pipeW, []byte{1})

		s.mu.Lock()
		defer s.mu.Unlock()
		err = s.file.Close()
		_ = unix.Close(s.pipeR)
		_ = unix.Close(s.pipeW)
	})
	return err
}

// pollMillis rounds d up to whole milliseconds, capped at the largest
// timeout poll(2) accepts.
func pollMillis(d time.Duration) int {
	ms := (d + time.Millisecond - 1) / time.Millisecond
	if ms > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(ms)
}

func baudToUnix(baud int) (uint32, error) {
	switch baud {
	case 1200:
		return unix.B1200, nil
	case 2400:
		return unix.B2400, nil
	case 4800:
		return unix.B4800, nil
	case 9600:
		return unix.B9600, nil
	case 19200:
		return unix.B19200, nil
	case 38400:
		return unix.B38400, nil
	case 57600:
		return unix.B57600, nil
	case 115200:
		return unix.B115200, nil
	case 230400:
		return unix.B230400, nil
	case 460800:
		return unix.B460800, nil
	case 921600:
		return unix.B921600, nil
	default:
		return 0, fmt.Errorf("unsupported baud %d", baud)
	}
}
