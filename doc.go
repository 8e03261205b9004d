// Package serial provides a minimal, Linux-only serial port line reader
// for devices that emit newline-delimited text, such as RFID readers.
//
// Features:
//   - Raw termios configuration through golang.org/x/sys/unix
//   - Line-based reading with a configurable delimiter (default: \n)
//   - Bounded reads: ReadLine gives up after Config.ReadTimeout with ErrTimeout
//   - Self-pipe mechanism so Close unblocks a pending ReadLine
//   - PTY-based tests for reliability
//
// This package does **not** support Windows or macOS; Open returns an error there.
//
// Example usage:
//
//	cfg := serial.Config{
//	    Device:      "/dev/ttyUSB0",
//	    BaudRate:    9600,
//	    ReadTimeout: time.Second,
//	}
//	reader, err := serial.Open(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer reader.Close()
//
//	for {
//	    line, err := reader.ReadLine()
//	    if errors.Is(err, serial.ErrTimeout) {
//	        continue
//	    }
//	    if err != nil {
//	        log.Println("Read error:", err)
//	        return
//	    }
//	    fmt.Println("Received:", line)
//	}
//
// To stop reading, call reader.Close() from another goroutine.
package serial
