// Package cellular is the public entry point of the driver core: it wires
// a comm.Transport, a pktio.Worker, an atbroker.Broker and a reg.State
// together into a Context and exposes the synchronous query API and URC
// registration hooks described by the driver core's external interface
// (§6). It is the Go analogue of the original's CellularContext_t plus
// Cellular_Init/Cellular_Cleanup.
package cellular

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/modemcore/cellular/atbroker"
	"github.com/modemcore/cellular/comm"
	"github.com/modemcore/cellular/metrics"
	"github.com/modemcore/cellular/pktio"
	"github.com/modemcore/cellular/reg"
)

// defaultMaxSockets mirrors CELLULAR_NUM_SOCKET_MAX in the original; this
// module implements no socket layer. The configured ceiling is kept in the
// Context's unexported Config; no exported method returns it (§4.10).
const defaultMaxSockets = 6

// Config holds the options recognized at Init time (§3 "Configuration").
type Config struct {
	readBufferSize int
	maxSockets     int
	logger         logrus.FieldLogger
	collector      *metrics.Collector
	tokens         pktio.TokenTable
	dataPrefixFn   pktio.DataPrefixFunc
}

// Option configures a Context at Init time, following the teacher's
// trace.Option pattern.
type Option func(*Config)

// WithReadBufferSize sets the worker's per-Read chunk size (READ_BUF).
func WithReadBufferSize(n int) Option {
	return func(c *Config) { c.readBufferSize = n }
}

// WithMaxSockets sets the socket-layer ceiling (MAX_SOCKETS) stored in the
// Context's Config; this module defines no socket operations of its own
// and nothing in it reads the value back (§4.10).
func WithMaxSockets(n int) Option {
	return func(c *Config) { c.maxSockets = n }
}

// WithLogger attaches a structured logger used for registration events,
// undefined lines, discarded late responses and each command's send,
// completion or failure (including timeouts). URC dispatch itself is not
// logged. Defaults to logrus.StandardLogger().
func WithLogger(l logrus.FieldLogger) Option {
	return func(c *Config) { c.logger = l }
}

// WithCollector attaches a Prometheus collector. Nil (the default)
// disables instrumentation entirely.
func WithCollector(col *metrics.Collector) Option {
	return func(c *Config) { c.collector = col }
}

// WithTokenTable overrides the terminator vocabulary consulted by the
// worker (§4.3); the default covers plain 3GPP TS 27.007 OK/ERROR/+CME
// ERROR/+CMS ERROR terminators.
func WithTokenTable(t pktio.TokenTable) Option {
	return func(c *Config) { c.tokens = t }
}

// WithDataPrefixFunc installs the callback used to size a
// MultiDataWithoutPrefix command's binary block; required only by modem
// adaptations that issue such commands (§4.4.1).
func WithDataPrefixFunc(f pktio.DataPrefixFunc) Option {
	return func(c *Config) { c.dataPrefixFn = f }
}

// defaultTokenTable is the 3GPP TS 27.007 terminator vocabulary common to
// every modem adaptation this core has been built against.
func defaultTokenTable() pktio.TokenTable {
	return pktio.TokenTable{
		Success: []string{"OK"},
		Error:   []string{"ERROR", "+CME ERROR:", "+CMS ERROR:", "NO CARRIER", "NO ANSWER"},
		URCWithoutPrefix: []string{
			"RING", "NO CARRIER", "NO DIALTONE", "BUSY",
		},
	}
}

// ModemEventCallback is invoked for every unsolicited line that is not
// routed to the registration tracker or to an installed PDN or
// signal-strength callback, the Go realization of
// CellularModemEventCallback_t (§4.11).
type ModemEventCallback func(line string)

// RegistrationCallback is invoked after every CS or PS registration state
// change (§4.6, reg.Event).
type RegistrationCallback func(reg.Event)

// GenericURCCallback is invoked for every unsolicited line that does not
// match the registration prefixes and is not claimed by a more specific
// callback.
type GenericURCCallback func(line string)

// Context is the driver core handle returned by Init: the worker, broker
// and registration state wired together over one transport. A Context is
// safe for concurrent use by multiple goroutines; all blocking calls take
// a context.Context deadline.
type Context struct {
	cfg    Config
	worker *pktio.Worker
	broker *atbroker.Broker
	regSt  *reg.State
	logger logrus.FieldLogger

	mu        sync.RWMutex
	closed    bool
	onModem   ModemEventCallback
	onPDN     GenericURCCallback
	onSignal  GenericURCCallback
	onGeneric GenericURCCallback
	onReg     RegistrationCallback
}

// Init brings up a Context over transport: starts the pktio worker, the
// AT broker and the registration tracker. There is no process-wide
// global state to reject a second Init against (unlike the original's
// CellularContext_t singleton) — each call returns an independent
// Context; Cleanup is idempotent and safe to defer.
func Init(transport comm.Transport, opts ...Option) (*Context, error) {
	if transport == nil {
		return nil, ErrBadParameter
	}
	cfg := Config{
		readBufferSize: 1024,
		maxSockets:     defaultMaxSockets,
		logger:         logrus.StandardLogger(),
		tokens:         defaultTokenTable(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	ctx := &Context{cfg: cfg, logger: cfg.logger}

	ctx.regSt = reg.NewState(func(ev reg.Event) {
		ctx.logger.WithField("domain", domainLabel(ev.Domain)).
			WithField("cs", ev.Record.CSRegStatus).
			WithField("ps", ev.Record.PSRegStatus).
			Debug("cellular: registration event")
		if cfg.collector != nil {
			cfg.collector.RegistrationEvent(domainLabel(ev.Domain), statusLabel(ev.Record))
		}
		ctx.mu.RLock()
		cb := ctx.onReg
		ctx.mu.RUnlock()
		if cb != nil {
			cb(ev)
		}
	})

	var workerOpts []pktio.Option
	if cfg.readBufferSize > 0 {
		workerOpts = append(workerOpts, pktio.WithReadBufferSize(cfg.readBufferSize))
	}
	if cfg.logger != nil {
		workerOpts = append(workerOpts, pktio.WithLogger(cfg.logger))
	}
	if cfg.collector != nil {
		workerOpts = append(workerOpts, pktio.WithCollector(cfg.collector))
	}
	if cfg.dataPrefixFn != nil {
		workerOpts = append(workerOpts, pktio.WithDataPrefixFunc(cfg.dataPrefixFn))
	}

	worker := pktio.NewWorker(transport, cfg.tokens, ctx.dispatchURC, ctx.dispatchUndefined, workerOpts...)
	worker.Start()
	ctx.worker = worker
	ctx.broker = atbroker.New(worker, cfg.logger)

	return ctx, nil
}

// Cleanup tears down the Context: shuts down the worker (which closes the
// transport) and marks the Context unusable. Cleanup is idempotent and
// safe to call from a defer; subsequent calls return nil.
func (c *Context) Cleanup() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.worker.Shutdown()
}

func (c *Context) checkOpen() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrInvalidHandle
	}
	return nil
}

// RegisterModemEventCallback installs the callback invoked for every
// unsolicited line not routed to the registration tracker or to an
// installed PDN or signal-strength callback (§4.11), e.g. a spontaneous
// "+CFUN: 0" modem reset notice. It receives the same lines as the generic
// callback, after it.
func (c *Context) RegisterModemEventCallback(cb ModemEventCallback) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onModem = cb
}

// RegisterUrcNetworkRegistrationCallback installs the callback invoked
// after every CS/PS registration state change.
func (c *Context) RegisterUrcNetworkRegistrationCallback(cb RegistrationCallback) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onReg = cb
}

// RegisterUrcPdnEventCallback installs the callback invoked for a
// +CGEV-prefixed PDN event line.
func (c *Context) RegisterUrcPdnEventCallback(cb GenericURCCallback) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onPDN = cb
}

// RegisterUrcSignalStrengthChangedCallback installs the callback invoked
// for a +CIEV/+CSQ-style signal-strength URC line.
func (c *Context) RegisterUrcSignalStrengthChangedCallback(cb GenericURCCallback) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onSignal = cb
}

// RegisterUrcGenericCallback installs the fallback callback invoked for
// any unsolicited line claimed by none of the more specific callbacks.
func (c *Context) RegisterUrcGenericCallback(cb GenericURCCallback) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onGeneric = cb
}

// dispatchURC routes one line classified UNSOLICITED by the worker to the
// registration tracker or the most specific matching callback.
func (c *Context) dispatchURC(line string) {
	switch {
	case matchesPrefix(line, "+CREG:"):
		_ = c.regSt.ApplyLine(reg.DomainCS, line, true)
		return
	case matchesPrefix(line, "+CGREG:"), matchesPrefix(line, "+CEREG:"):
		_ = c.regSt.ApplyLine(reg.DomainPS, line, true)
		return
	case matchesPrefix(line, "+CGEV:"):
		c.mu.RLock()
		cb := c.onPDN
		c.mu.RUnlock()
		if cb != nil {
			cb(line)
			return
		}
	case matchesPrefix(line, "+CIEV:"), matchesPrefix(line, "+CSQ:"):
		c.mu.RLock()
		cb := c.onSignal
		c.mu.RUnlock()
		if cb != nil {
			cb(line)
			return
		}
	}
	c.mu.RLock()
	generic := c.onGeneric
	modem := c.onModem
	c.mu.RUnlock()
	if generic != nil {
		generic(line)
	}
	if modem != nil {
		modem(line)
	}
}

// dispatchUndefined handles a line the worker could classify as neither a
// solicited response nor a known URC prefix — logged only, per §4.
func (c *Context) dispatchUndefined(line string) {
	if c.logger != nil {
		c.logger.WithField("line", line).Debug("cellular: undefined line")
	}
}

func matchesPrefix(line, prefix string) bool {
	return len(line) >= len(prefix) && line[:len(prefix)] == prefix
}

func domainLabel(d reg.Domain) string {
	if d == reg.DomainCS {
		return "cs"
	}
	return "ps"
}

func statusLabel(r reg.Record) string {
	if r.CSRegStatus == reg.Denied || r.PSRegStatus == reg.Denied {
		return "denied"
	}
	return "changed"
}
