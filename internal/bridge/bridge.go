// Package bridge streams tag readings from a serial line source to a writer.
package bridge

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	serial "github.com/luhtfiimanal/go-rfid-serial"
	"github.com/luhtfiimanal/go-rfid-serial/internal/tag"
)

var (
	// ErrSerialFault wraps a read failure from the serial link.
	ErrSerialFault = errors.New("serial fault")

	// ErrOutput wraps a failure writing readings to the output.
	ErrOutput = errors.New("output write failed")
)

// LineSource is a line-oriented connection to the reader.
// ReadLine must return serial.ErrTimeout when idle and must be unblocked by Close.
type LineSource interface {
	ReadLine() (string, error)
	Close() error
}

// Stats counts what happened during one Run.
type Stats struct {
	Lines     uint64 // complete lines received
	Emitted   uint64 // readings written to the output
	Discarded uint64 // lines without the ID: prefix
	Malformed uint64 // lines that were not text, or too long
}

// Bridge reads lines from a LineSource and writes one tag reading per line to out.
type Bridge struct {
	src LineSource
	out *bufio.Writer
	log zerolog.Logger

	lines     atomic.Uint64
	emitted   atomic.Uint64
	discarded atomic.Uint64
	malformed atomic.Uint64
}

// New returns a Bridge that writes readings from src to out.
func New(src LineSource, out io.Writer, logger zerolog.Logger) *Bridge {
	return &Bridge{
		src: src,
		out: bufio.NewWriter(out),
		log: logger,
	}
}

// Run reads until ctx is cancelled or the source fails. It owns the source
// and closes it exactly once before returning.
//
// Cancellation is a clean exit and returns nil. A read failure returns an
// error wrapping ErrSerialFault; an output failure one wrapping ErrOutput.
func (b *Bridge) Run(ctx context.Context) error {
	closeSource := sync.OnceValue(b.src.Close)
	stop := context.AfterFunc(ctx, func() { _ = closeSource() })
	defer func() {
		stop()
		if cerr := closeSource(); cerr != nil {
			b.log.Debug().Err(cerr).Msg("close serial port")
		}
		st := b.Stats()
		b.log.Info().
			Uint64("lines", st.Lines).
			Uint64("emitted", st.Emitted).
			Uint64("discarded", st.Discarded).
			Uint64("malformed", st.Malformed).
			Msg("reader stopped")
	}()

	for {
		line, rerr := b.src.ReadLine()
		if rerr != nil {
			if ctx.Err() != nil {
				b.log.Info().Msg("Exiting...")
				return nil
			}
			switch {
			case errors.Is(rerr, serial.ErrTimeout):
				continue
			case errors.Is(rerr, serial.ErrLineTooLong):
				b.malformed.Add(1)
				b.log.Warn().Msg("dropped over-long line")
				continue
			}
			b.log.Error().Err(rerr).Msg("Serial error")
			return fmt.Errorf("%w: %w", ErrSerialFault, rerr)
		}
		b.lines.Add(1)

		// A line already received is emitted even if shutdown started meanwhile.
		reading, perr := tag.Parse(line)
		switch {
		case errors.Is(perr, tag.ErrNotTag):
			b.discarded.Add(1)
			b.log.Debug().Str("line", line).Msg("ignored line")
			continue
		case errors.Is(perr, tag.ErrMalformed):
			b.malformed.Add(1)
			b.log.Warn().Hex("raw", []byte(line)).Msg("skipped non-text line")
			continue
		}

		if err := b.emit(reading); err != nil {
			b.log.Error().Err(err).Msg("Output error")
			return fmt.Errorf("%w: %w", ErrOutput, err)
		}
	}
}

func (b *Bridge) emit(r tag.Reading) error {
	if _, err := b.out.WriteString(r.String()); err != nil {
		return err
	}
	if err := b.out.WriteByte('\n'); err != nil {
		return err
	}
	if err := b.out.Flush(); err != nil {
		return err
	}
	b.emitted.Add(1)
	return nil
}

// Stats returns a snapshot of the counters.
func (b *Bridge) Stats() Stats {
	return Stats{
		Lines:     b.lines.Load(),
		Emitted:   b.emitted.Load(),
		Discarded: b.discarded.Load(),
		Malformed: b.malformed.Load(),
	}
}
