// Command rfid-reader streams tag IDs from a serial RFID reader to stdout.
//
// The reader sends lines of the form "ID:<value>"; every such line becomes
// one "<value>" line on stdout, flushed immediately so the output can be
// piped into another process. Diagnostics go to stderr.
//
// Exit status: 0 after an interrupt, 1 on a serial fault, 2 on a usage or
// configuration error.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	serial "github.com/luhtfiimanal/go-rfid-serial"
	"github.com/luhtfiimanal/go-rfid-serial/internal/bridge"
	"github.com/luhtfiimanal/go-rfid-serial/internal/config"
	"github.com/luhtfiimanal/go-rfid-serial/internal/logging"
)

const (
	exitOK    = 0
	exitFault = 1
	exitUsage = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("rfid-reader", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		configPath  = fs.String("config", "", "Path to YAML config (optional)")
		port        = fs.String("port", "", fmt.Sprintf("Serial device (default %s; Linux /dev/ttyUSB0, macOS /dev/tty.usbserial, Windows COM3)", config.DefaultPort(runtime.GOOS)))
		baud        = fs.Int("baud", 0, "Baud rate, must match the reader (default 9600)")
		readTimeout = fs.Duration("read-timeout", 0, "Max wait per read before re-checking for shutdown (default 1s)")
		logLevel    = fs.String("log-level", "", "trace, debug, info, warn or error (default info)")
		logFile     = fs.String("log-file", "", "Also write diagnostics as JSON to this rotating file")
	)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "config load failed: %v\n", err)
		return exitUsage
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "port":
			cfg.Serial.Port = *port
		case "baud":
			cfg.Serial.Baud = *baud
		case "read-timeout":
			cfg.Serial.ReadTimeout = *readTimeout
		case "log-level":
			cfg.Log.Level = *logLevel
		case "log-file":
			cfg.Log.File = *logFile
		}
	})
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "invalid config: %v\n", err)
		return exitUsage
	}

	logger, closer, err := logging.New(logging.Options{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	}, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "logger init failed: %v\n", err)
		return exitUsage
	}
	defer closer.Close()

	reader, err := serial.Open(serial.Config{
		Device:        cfg.Serial.Port,
		BaudRate:      cfg.Serial.Baud,
		Delimiter:     cfg.Serial.Delimiter,
		ReadTimeout:   cfg.Serial.ReadTimeout,
		MaxLineLength: cfg.Serial.MaxLineLength,
	})
	if err != nil {
		logger.Error().Err(err).Str("port", cfg.Serial.Port).Int("baud", cfg.Serial.Baud).Msg("Serial error: connection failed")
		return exitFault
	}
	logger.Info().
		Str("port", cfg.Serial.Port).
		Int("baud", cfg.Serial.Baud).
		Str("read_timeout", cfg.Serial.ReadTimeout.Round(time.Millisecond).String()).
		Msg("RFID Reader connected.")

	if err := bridge.New(reader, stdout, logger).Run(ctx); err != nil {
		return exitFault
	}
	return exitOK
}
