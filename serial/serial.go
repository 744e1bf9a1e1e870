// Package serial provides a comm.Transport backed by a physical serial
// port, connecting the pktio worker to the modem hardware.
package serial

import (
	tarmserial "github.com/tarm/serial"
)

// Config is the serial port configuration; see defaultConfig for the
// platform-specific defaults (serial_linux.go, serial_darwin.go,
// serial_windows.go).
type Config struct {
	port string
	baud int
}

// Option modifies a Config used by New.
type Option func(*Config)

// WithPort overrides the default serial device path.
func WithPort(port string) Option {
	return func(c *Config) { c.port = port }
}

// WithBaud overrides the default baud rate.
func WithBaud(baud int) Option {
	return func(c *Config) { c.baud = baud }
}

// New opens a serial port as a comm.Transport, defaulting to the
// platform's usual modem device and 115200 baud.
func New(opts ...Option) (*tarmserial.Port, error) {
	cfg := defaultConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	p, err := tarmserial.OpenPort(&tarmserial.Config{Name: cfg.port, Baud: cfg.baud})
	if err != nil {
		return nil, err
	}
	return p, nil
}
