// Package trace provides a decorator for a comm.Transport that logs every
// read and write through a structured logger, for diagnosing AT command
// sessions without a hardware sniffer.
package trace

import (
	"github.com/sirupsen/logrus"

	"github.com/modemcore/cellular/comm"
)

// Trace wraps a comm.Transport, logging every Read and Write through l.
type Trace struct {
	t    comm.Transport
	l    logrus.FieldLogger
	wfmt string
	rfmt string
}

// Option modifies a Trace object created by New.
type Option func(*Trace)

// New creates a Trace over t. The default logger is logrus's standard
// logger; WithLogger overrides it.
func New(t comm.Transport, opts ...Option) *Trace {
	tr := &Trace{t: t, l: logrus.StandardLogger(), wfmt: "w: %s", rfmt: "r: %s"}
	for _, opt := range opts {
		opt(tr)
	}
	return tr
}

// WithLogger sets the logger used for read/write trace entries.
func WithLogger(l logrus.FieldLogger) Option {
	return func(t *Trace) { t.l = l }
}

// WithReadFormat sets the logrus message format used for read logs.
func WithReadFormat(format string) Option {
	return func(t *Trace) { t.rfmt = format }
}

// WithWriteFormat sets the logrus message format used for write logs.
func WithWriteFormat(format string) Option {
	return func(t *Trace) { t.wfmt = format }
}

func (t *Trace) Read(p []byte) (n int, err error) {
	n, err = t.t.Read(p)
	if n > 0 {
		t.l.Debugf(t.rfmt, p[:n])
	}
	return n, err
}

func (t *Trace) Write(p []byte) (n int, err error) {
	n, err = t.t.Write(p)
	if n > 0 {
		t.l.Debugf(t.wfmt, p[:n])
	}
	return n, err
}

// Close closes the underlying transport.
func (t *Trace) Close() error {
	return t.t.Close()
}
