// Package atbroker serializes AT command requests over a pktio.Worker and
// turns its raw Response into a typed error the way package at's newError
// does, adding a correlation id to every request for log correlation.
package atbroker

import (
	"context"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/xid"
	"github.com/sirupsen/logrus"

	"github.com/modemcore/cellular/pktio"
)

// CMEError indicates a +CME ERROR was returned by the modem. The value is
// the error text following the "+CME ERROR:" prefix.
type CMEError string

// CMSError indicates a +CMS ERROR was returned by the modem. The value is
// the error text following the "+CMS ERROR:" prefix.
type CMSError string

func (e CMEError) Error() string { return "+CME ERROR:" + string(e) }
func (e CMSError) Error() string { return "+CMS ERROR:" + string(e) }

var (
	// ErrError indicates the modem returned a bare AT ERROR.
	ErrError = errors.New("atbroker: ERROR")
	// ErrClosed indicates the broker's underlying worker has shut down.
	ErrClosed = errors.New("atbroker: closed")
)

// Command is one AT command to issue, in the shape atbroker's caller
// already knows how to build: the body (no "AT" prefix, no terminator),
// its response Kind, and the prefix expected on its info lines, if any.
type Command struct {
	Body           string
	Kind           pktio.Kind
	ExpectedPrefix string
}

// Result is one command's outcome: the info lines returned between the
// command and the final status line, and the correlation id the command
// was logged under.
type Result struct {
	Lines         []string
	CorrelationID string
}

// Broker serializes AT commands onto one pktio.Worker, matching the
// "one outstanding command at a time" invariant of the driver core (the
// request lock of §5). Broker holds that lock as an ordinary sync.Mutex
// for the whole of each Send, and the worker takes its own response lock
// only inside Dispatch, so the locks are always acquired request lock
// first, response lock second.
type Broker struct {
	worker *pktio.Worker
	logger logrus.FieldLogger

	reqMu sync.Mutex
}

// New builds a Broker over worker. logger may be nil to disable logging.
func New(worker *pktio.Worker, logger logrus.FieldLogger) *Broker {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Broker{worker: worker, logger: logger}
}

// Send issues cmd and waits for its terminator, translating a failing
// status into ErrError, CMEError or CMSError the way the original
// newError does.
func (b *Broker) Send(ctx context.Context, cmd Command) (Result, error) {
	b.reqMu.Lock()
	defer b.reqMu.Unlock()

	id := xid.New().String()
	log := b.logger.WithField("corr_id", id).WithField("cmd", cmd.Body)
	log.Debug("atbroker: sending command")

	resp, err := b.worker.Dispatch(ctx, pktio.Request{
		Cmd:            cmd.Body,
		Kind:           cmd.Kind,
		ExpectedPrefix: cmd.ExpectedPrefix,
	})
	if err != nil {
		if errors.Is(err, pktio.ErrClosed) {
			log.Debug("atbroker: worker closed")
			return Result{CorrelationID: id}, ErrClosed
		}
		log.WithError(err).Debug("atbroker: command did not complete")
		return Result{CorrelationID: id}, err
	}

	lines := make([]string, 0, len(resp.Lines))
	for _, l := range resp.Lines {
		if !l.IsRaw() {
			lines = append(lines, l.Text)
		}
	}
	result := Result{Lines: lines, CorrelationID: id}

	if !resp.Status {
		log.WithField("terminator", resp.Terminator).Debug("atbroker: command returned error")
		return result, statusError(resp.Terminator)
	}
	log.Debug("atbroker: command completed")
	return result, nil
}

// statusError classifies a failing terminator line into ErrError, CMEError
// or CMSError, mirroring package at's newError.
func statusError(terminator string) error {
	switch {
	case strings.HasPrefix(terminator, "+CME ERROR:"):
		return CMEError(strings.TrimSpace(terminator[len("+CME ERROR:"):]))
	case strings.HasPrefix(terminator, "+CMS ERROR:"):
		return CMSError(strings.TrimSpace(terminator[len("+CMS ERROR:"):]))
	default:
		return ErrError
	}
}
