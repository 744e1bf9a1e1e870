package pktio

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/modemcore/cellular/comm"
	"github.com/modemcore/cellular/metrics"
)

// ErrClosed is returned by Dispatch once the worker has shut down, and by
// any Dispatch call still waiting on a terminator when that happens.
var ErrClosed = errors.New("pktio: worker closed")

// ErrBadRequest is returned when a Request's Kind requires a prefix that
// was not supplied.
var ErrBadRequest = errors.New("pktio: request requires an expected prefix")

// DataPrefixFunc inspects the line that announced a binary data block (the
// last intermediate line fed to a MultiDataWithoutPrefix command) and
// reports how many bytes of raw data follow it, if any. A typical
// implementation greps the line for a length field specific to the
// command, e.g. "+QFDWL: 128".
type DataPrefixFunc func(announceLine string) (length int, ok bool)

// Request describes one AT command to send and how to interpret its
// response.
type Request struct {
	// Cmd is the command body without the leading "AT" and without a
	// trailing terminator; the worker appends "AT" + Cmd + "\r".
	Cmd string
	Kind           Kind
	ExpectedPrefix string
}

// Option configures a Worker at construction time.
type Option func(*Worker)

// WithReadBufferSize sets the chunk size used for each Transport.Read call.
func WithReadBufferSize(n int) Option {
	return func(w *Worker) {
		if n > 0 {
			w.readBufSize = n
		}
	}
}

// WithLogger attaches a structured logger; nil (the default) disables
// logging.
func WithLogger(l logrus.FieldLogger) Option {
	return func(w *Worker) { w.logger = l }
}

// WithCollector attaches a metrics collector; nil (the default) disables
// instrumentation.
func WithCollector(c *metrics.Collector) Option {
	return func(w *Worker) { w.collector = c }
}

// WithDataPrefixFunc installs the callback used to discover the length of
// a MultiDataWithoutPrefix command's binary block (§4.4.1). Required only
// for modem adaptations that issue such commands.
func WithDataPrefixFunc(f DataPrefixFunc) Option {
	return func(w *Worker) { w.dataPrefixFn = f }
}

// inflight tracks the command currently occupying the response path.
type inflight struct {
	acc       *accumulator
	resultCh  chan result
	abandoned bool
}

type result struct {
	resp Response
	err  error
}

// Worker is the packet I/O engine: a dedicated goroutine that reads a
// comm.Transport, reassembles lines (and, mid-command, fixed-length binary
// blocks), classifies each one, and routes it to either the in-flight
// command's accumulator or the URC handler (driver core §4.4).
//
// Worker serializes access to its read-side state with a single mutex —
// the "response lock" of the source design. Dispatch callers never hold
// it while waiting on a terminator; they release it immediately after
// registering the in-flight record, the same hand-off the original
// request/response/at-data lock ordering describes.
type Worker struct {
	transport    comm.Transport
	table        TokenTable
	onURC        func(line string)
	onUndefined  func(line string)
	dataPrefixFn DataPrefixFunc
	logger       logrus.FieldLogger
	collector    *metrics.Collector
	readBufSize  int

	mu            sync.Mutex
	inFlight      *inflight
	unread        []byte
	dataRemaining int

	closed    chan struct{}
	closeOnce sync.Once
	done      chan struct{}
}

// NewWorker builds a Worker over transport. onURC is invoked, on the
// worker's own goroutine, for every line classified UNSOLICITED; onURC
// must not block. onUndefined, if non-nil, is invoked for every line
// classified UNDEFINED (by default these are only logged and dropped).
func NewWorker(transport comm.Transport, table TokenTable, onURC func(line string), onUndefined func(line string), opts ...Option) *Worker {
	w := &Worker{
		transport:   transport,
		table:       table,
		onURC:       onURC,
		onUndefined: onUndefined,
		readBufSize: 512,
		closed:      make(chan struct{}),
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start launches the read loop on its own goroutine. Callers must call
// Start exactly once before the first Dispatch.
func (w *Worker) Start() {
	go w.readLoop()
}

// Done returns a channel closed once the read loop has exited, whether
// because Shutdown was called or the transport returned a read error.
func (w *Worker) Done() <-chan struct{} {
	return w.done
}

// Shutdown closes the underlying transport, which unblocks the read loop's
// pending Read and causes it to exit, and waits for that exit.
func (w *Worker) Shutdown() error {
	err := w.transport.Close()
	<-w.done
	return err
}

// Dispatch writes req to the transport and blocks until a terminator is
// received, ctx is done, or the worker shuts down. Only one Dispatch may
// be outstanding at a time; callers are responsible for that serialization
// (the atbroker package provides it via its own request lock) — Dispatch
// itself only guards the bookkeeping, not concurrent callers.
func (w *Worker) Dispatch(ctx context.Context, req Request) (Response, error) {
	if req.Kind.RequiresPrefix() && req.ExpectedPrefix == "" {
		return Response{}, ErrBadRequest
	}

	infl := &inflight{
		acc:      newAccumulator(req.Kind, req.ExpectedPrefix),
		resultCh: make(chan result, 1),
	}

	w.mu.Lock()
	select {
	case <-w.closed:
		w.mu.Unlock()
		return Response{}, ErrClosed
	default:
	}
	w.inFlight = infl
	w.mu.Unlock()

	line := "AT" + req.Cmd + "\r"
	if _, err := w.transport.Write([]byte(line)); err != nil {
		w.mu.Lock()
		if w.inFlight == infl {
			w.inFlight = nil
		}
		w.mu.Unlock()
		return Response{}, errors.WithMessage(err, "pktio: write command")
	}
	w.collector.CommandSent()

	select {
	case res := <-infl.resultCh:
		return res.resp, res.err
	case <-ctx.Done():
		w.mu.Lock()
		if w.inFlight == infl {
			infl.abandoned = true
		}
		w.mu.Unlock()
		return Response{}, ctx.Err()
	case <-w.closed:
		return Response{}, ErrClosed
	}
}

func (w *Worker) readLoop() {
	defer close(w.done)
	chunk := make([]byte, w.readBufSize)
	for {
		n, err := w.transport.Read(chunk)
		if err != nil {
			w.shutdown()
			return
		}
		if n == 0 {
			continue
		}
		w.mu.Lock()
		w.unread = append(w.unread, chunk[:n]...)
		w.drainLocked()
		w.mu.Unlock()
	}
}

func (w *Worker) shutdown() {
	w.closeOnce.Do(func() {
		close(w.closed)
		w.mu.Lock()
		infl := w.inFlight
		w.inFlight = nil
		w.mu.Unlock()
		if infl != nil {
			select {
			case infl.resultCh <- result{err: ErrClosed}:
			default:
			}
		}
	})
}

// drainLocked processes every complete line (and any fixed-length binary
// block) currently available in w.unread. It must be called with w.mu
// held.
func (w *Worker) drainLocked() {
	for {
		if w.dataRemaining > 0 {
			if !w.drainDataLocked() {
				return
			}
			continue
		}

		i := 0
		for i < len(w.unread) && (w.unread[i] == '\r' || w.unread[i] == '\n' || w.unread[i] == 0) {
			i++
		}
		w.unread = w.unread[i:]
		if len(w.unread) == 0 {
			w.unread = nil
		}

		idx := indexCRLF(w.unread)
		if idx < 0 {
			return
		}
		line := string(w.unread[:idx])
		w.unread = w.unread[idx+2:]
		w.dispatchLineLocked(line)
	}
}

// drainDataLocked consumes a pending fixed-length binary block (§4.4.1).
// It returns false when fewer than dataRemaining bytes are available yet,
// which parks draining until the next Read delivers more.
func (w *Worker) drainDataLocked() bool {
	if len(w.unread) < w.dataRemaining {
		return false
	}
	data := w.unread[:w.dataRemaining]
	if w.inFlight != nil {
		w.inFlight.acc.appendRaw(data)
	}
	w.unread = w.unread[w.dataRemaining:]
	w.dataRemaining = 0
	return true
}

func (w *Worker) dispatchLineLocked(line string) {
	inFlight := w.inFlight != nil
	prefix := ""
	if inFlight {
		prefix = w.inFlight.acc.expectedPrefix
	}
	switch Classify(w.table, line, prefix, inFlight) {
	case Unsolicited:
		w.collector.URCDispatched(atPrefixOf(line))
		if w.onURC != nil {
			w.onURC(line)
		}
	case Solicited:
		w.handleSolicitedLocked(line)
	default:
		w.collector.LineUndefined()
		if w.logger != nil {
			w.logger.WithField("line", line).Debug("pktio: undefined line")
		}
		if w.onUndefined != nil {
			w.onUndefined(line)
		}
	}
}

func (w *Worker) handleSolicitedLocked(line string) {
	infl := w.inFlight
	if infl == nil {
		// Classify cannot report Solicited with no in-flight command; kept
		// defensive rather than panicking on a future classifier change.
		return
	}

	res := infl.acc.feed(w.table, line)

	switch {
	case res.err != nil:
		w.completeLocked(infl, result{err: res.err})
	case res.pendingData:
		if w.dataPrefixFn != nil {
			if n, ok := w.dataPrefixFn(line); ok && n > 0 {
				w.dataRemaining = n
			}
		}
	case res.terminated:
		status := "error"
		if infl.acc.resp.Status {
			status = "ok"
		}
		w.collector.CommandCompleted(status, 0)
		w.completeLocked(infl, result{resp: infl.acc.resp})
	}
}

// completeLocked clears the in-flight record and, unless it was abandoned
// by a timed-out Dispatch caller, delivers res. An abandoned command's
// late terminator is consumed silently — the caller already gave up.
func (w *Worker) completeLocked(infl *inflight, res result) {
	if w.inFlight == infl {
		w.inFlight = nil
	}
	if infl.abandoned {
		if w.logger != nil {
			w.logger.Debug("pktio: discarding late response for an abandoned command")
		}
		return
	}
	select {
	case infl.resultCh <- res:
	default:
	}
}

// indexCRLF returns the index of the first "\r\n" in b, or -1.
func indexCRLF(b []byte) int {
	for i := 0; i+1 < len(b); i++ {
		if b[i] == '\r' && b[i+1] == '\n' {
			return i
		}
	}
	return -1
}

// atPrefixOf extracts the leading "+NAME" token of a URC line for metric
// labeling, e.g. "+CREG: 1,1" -> "+CREG". Lines without a recognizable
// prefix (e.g. "RING") are returned unchanged.
func atPrefixOf(line string) string {
	i := 0
	for i < len(line) && line[i] == ' ' {
		i++
	}
	start := i
	for i < len(line) {
		switch line[i] {
		case ':', ' ':
			return line[start:i]
		}
		i++
	}
	return line[start:]
}
