// Package ksession implements the asynchronous session layer that
// multiplexes sync requests, async sends, and server-pushed messages
// over a single framed connection (§4.3).
//
// Framing runs over bufiox.Reader/Writer (via DefaultReader/DefaultWriter
// wrapping a net.Conn) for buffered zero-copy I/O, and handler dispatch
// goes through a worker pool (internal/gopool) so the reader goroutine
// never blocks on handler work — required for bidirectional RPC (§9
// "Bidirectional RPC"): a handler-initiated sync request must be able to
// await its own response while the same reader keeps servicing other
// inbound frames.
package ksession

import (
	"context"
	"io"
	"net"
	"sync"

	"go.uber.org/zap"

	"github.com/kxipc/kxipc/bufiox"
	"github.com/kxipc/kxipc/internal/gopool"
	"github.com/kxipc/kxipc/kcompress"
	"github.com/kxipc/kxipc/kerr"
	"github.com/kxipc/kxipc/kval"
	"github.com/kxipc/kxipc/kwire"
	"github.com/kxipc/kxipc/symtab"
)

// SyncHandler answers a peer-initiated sync request. An error return is
// sent to the peer as a remote-error value (§4.3.4); it is never
// surfaced as a Go error to the reader loop.
type SyncHandler func(ctx context.Context, req kval.Value) (kval.Value, error)

// AsyncHandler handles a peer-initiated async message. It returns
// nothing and no reply is sent; a panic in it is recovered and reported
// by the dispatch pool (§4.3.4).
type AsyncHandler func(ctx context.Context, msg kval.Value)

// Handlers installs server-pushed-message behavior on a Session. Either
// field may be nil.
type Handlers struct {
	OnSync  SyncHandler
	OnAsync AsyncHandler
}

type pendingResult struct {
	v   kval.Value
	err error
}

// Session wraps one framed connection and multiplexes sync completions,
// async sends, and (if Handlers is installed) server-pushed requests.
type Session struct {
	conn net.Conn
	r    *bufiox.DefaultReader

	wmu sync.Mutex
	w   *bufiox.DefaultWriter

	ctx      *symtab.Table
	handlers Handlers
	pool     *gopool.GoPool
	log      *zap.Logger

	pendingMu sync.Mutex
	pending   []chan pendingResult

	closeOnce sync.Once
	closed    chan struct{}
	closeErr  error
}

// Option configures a Session at construction time.
type Option func(*Session)

// WithHandlers installs server-pushed-message handlers, which the
// reader loop started by New dispatches to (§4.3.4).
func WithHandlers(h Handlers) Option {
	return func(s *Session) { s.handlers = h }
}

// WithLogger overrides the session's logger (default: zap.NewNop()).
func WithLogger(l *zap.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.log = l
		}
	}
}

// WithGoPool overrides the handler-dispatch pool (default: a fresh pool
// per session).
func WithGoPool(p *gopool.GoPool) Option {
	return func(s *Session) { s.pool = p }
}

// New wraps conn in a Session bound to ctx for symbol resolution and
// starts its background reader loop. The reader loop runs regardless of
// whether Handlers are installed: it is also how sync_request responses
// and async pushes get delivered.
func New(conn net.Conn, ctx *symtab.Table, opts ...Option) *Session {
	s := &Session{
		conn:   conn,
		r:      bufiox.NewDefaultReader(conn),
		w:      bufiox.NewDefaultWriter(conn),
		ctx:    ctx,
		pool:   gopool.NewGoPool("ksession", nil),
		log:    zap.NewNop(),
		closed: make(chan struct{}),
	}
	for _, o := range opts {
		o(s)
	}
	go s.readLoop()
	return s
}

// Context returns the symbol table backing this session's values.
func (s *Session) Context() *symtab.Table { return s.ctx }

// Done returns a channel closed once the session is closed.
func (s *Session) Done() <-chan struct{} { return s.closed }

// Err returns the error that caused the session to close, or nil if it
// hasn't closed or was closed cleanly.
func (s *Session) Err() error {
	select {
	case <-s.closed:
		return s.closeErr
	default:
		return nil
	}
}

// write serializes and sends a single framed message (§4.3.2).
func (s *Session) write(v kval.Value, mt kwire.MsgType) error {
	buf, err := kwire.Encode(v, mt)
	if err != nil {
		return err
	}
	s.wmu.Lock()
	defer s.wmu.Unlock()
	if _, err := s.w.WriteBinary(buf); err != nil {
		return err
	}
	return s.w.Flush()
}

// AsyncSend writes v as an async (msgtype 0) message and registers no
// completion (§4.3.2).
func (s *Session) AsyncSend(v kval.Value) error {
	select {
	case <-s.closed:
		return kerr.New(kerr.ConnectionClosed, "AsyncSend: session closed")
	default:
	}
	return s.write(v, kwire.Async)
}

// SyncRequest writes v as a sync message, appends a pending-completion
// slot to the FIFO queue, and blocks until the matching response arrives,
// ctx is done, or the session closes (§4.3.2/§4.3.3).
func (s *Session) SyncRequest(ctx context.Context, v kval.Value) (kval.Value, error) {
	ch := make(chan pendingResult, 1)

	s.pendingMu.Lock()
	select {
	case <-s.closed:
		s.pendingMu.Unlock()
		return kval.Value{}, kerr.New(kerr.ConnectionClosed, "SyncRequest: session closed")
	default:
	}
	s.pending = append(s.pending, ch)
	s.pendingMu.Unlock()

	if err := s.write(v, kwire.Sync); err != nil {
		return kval.Value{}, err
	}

	select {
	case r := <-ch:
		return r.v, r.err
	case <-ctx.Done():
		return kval.Value{}, ctx.Err()
	case <-s.closed:
		return kval.Value{}, kerr.New(kerr.ConnectionClosed, "SyncRequest: session closed")
	}
}

// Close shuts down the session, cascading err (or ConnectionClosed if
// nil) to every outstanding completion (§4.3.5).
func (s *Session) Close(err error) error {
	s.closeOnce.Do(func() {
		if err == nil {
			err = kerr.New(kerr.ConnectionClosed, "session closed")
		}
		s.closeErr = err
		close(s.closed)
		_ = s.conn.Close()

		s.pendingMu.Lock()
		pending := s.pending
		s.pending = nil
		s.pendingMu.Unlock()
		for _, ch := range pending {
			ch <- pendingResult{err: err}
		}
	})
	return nil
}

func (s *Session) popPending() (chan pendingResult, bool) {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	if len(s.pending) == 0 {
		return nil, false
	}
	ch := s.pending[0]
	s.pending = s.pending[1:]
	return ch, true
}

// readLoop is the single background reader task (§4.3.4): it never
// blocks on handler work, so a sync request issued from within a handler
// can be serviced by this same loop while the handler awaits it.
func (s *Session) readLoop() {
	for {
		hdr, err := s.r.Next(kwire.HeaderSize)
		if err != nil {
			s.Close(closeErrFor(err))
			return
		}
		h, err := kwire.ParseHeader(hdr)
		if err != nil {
			s.Close(err)
			return
		}

		bodyLen := int(h.MsgLen) - kwire.HeaderSize
		var body []byte
		if bodyLen > 0 {
			body, err = s.r.Next(bodyLen)
			if err != nil {
				s.Close(closeErrFor(err))
				return
			}
		}
		payload := body
		if h.Flags == kwire.FlagsCompressed {
			payload, err = kcompress.Decompress(body)
			if err != nil {
				s.Close(err)
				return
			}
		}
		v, err := kwire.DecodeValue(payload, s.ctx)
		s.r.Release(err)
		if err != nil {
			s.Close(err)
			return
		}

		s.dispatch(h.MsgType, v)
	}
}

func closeErrFor(err error) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return kerr.Wrap(kerr.ConnectionClosed, err, "unexpected end of stream mid-frame")
	}
	return err
}

func (s *Session) dispatch(mt kwire.MsgType, v kval.Value) {
	switch mt {
	case kwire.Response:
		ch, ok := s.popPending()
		if !ok {
			s.Close(kerr.New(kerr.ProtocolError, "RESPONSE received with no pending sync request"))
			return
		}
		if v.IsError() {
			msg, _ := v.ErrorMsg()
			ch <- pendingResult{err: kerr.New(kerr.RemoteError, msg)}
			return
		}
		ch <- pendingResult{v: v}

	case kwire.Sync:
		s.pool.Go(func() { s.serveSync(v) })

	case kwire.Async:
		s.pool.Go(func() { s.serveAsync(v) })

	default:
		s.log.Warn("ksession: unknown msgtype", zap.Uint8("msgtype", uint8(mt)))
	}
}

func (s *Session) serveSync(v kval.Value) {
	if s.handlers.OnSync == nil {
		_ = s.write(kval.KError("no sync handler installed"), kwire.Response)
		return
	}
	result, err := s.handlers.OnSync(context.Background(), v)
	if err != nil {
		_ = s.write(kval.KError(err.Error()), kwire.Response)
		return
	}
	if err := s.write(result, kwire.Response); err != nil {
		s.log.Error("ksession: failed to send sync response", zap.Error(err))
	}
}

func (s *Session) serveAsync(v kval.Value) {
	if s.handlers.OnAsync == nil {
		return
	}
	s.handlers.OnAsync(context.Background(), v)
}
