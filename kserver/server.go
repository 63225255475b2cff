// Package kserver implements the accept loop side of the protocol: bind
// a listener, run the login handshake on each inbound connection with a
// deadline, then hand it off to ksession for framed request/response
// and server-pushed-message handling.
//
// Configuration is read from environment variables per §6.4 into a
// plain struct with overridable fields, rather than a global singleton.
package kserver

import (
	"net"
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/kxipc/kxipc/khandshake"
	"github.com/kxipc/kxipc/ksession"
	"github.com/kxipc/kxipc/symtab"
)

// Config controls listener and login behavior. Zero-value fields fall
// back to fixed defaults when passed to Listen; the environment is read
// only by FromEnv.
type Config struct {
	// Port is the TCP listen port. Zero means DefaultPort; FromEnv fills
	// it from QPORT.
	Port int
	// Password, if non-empty, is checked against the handshake's
	// credential string via khandshake.ConstantTimeEquals. FromEnv fills
	// it from QPASSWORD. Empty accepts any credentials.
	Password string
	// LoginDeadline bounds how long a connection may take to complete
	// the handshake before it is closed. Defaults to khandshake.DefaultDeadline.
	LoginDeadline time.Duration
	// Handlers installs the sync/async callbacks for every accepted
	// session.
	Handlers ksession.Handlers
	// Logger receives connection lifecycle and handshake failures.
	// Defaults to zap.NewNop().
	Logger *zap.Logger
}

// DefaultPort is the fallback listen port when QPORT is unset (§6.4).
const DefaultPort = 8890

// FromEnv populates a Config's Port and Password from QPORT/QPASSWORD
// (§6.4), leaving other fields at their zero value.
func FromEnv() Config {
	cfg := Config{Port: DefaultPort}
	if v := os.Getenv("QPORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Port = n
		}
	}
	cfg.Password = os.Getenv("QPASSWORD")
	return cfg
}

func (c Config) withDefaults() Config {
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.LoginDeadline <= 0 {
		c.LoginDeadline = khandshake.DefaultDeadline
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	return c
}

// Server listens for connections and, per §6's external interface,
// authenticates and hands each one to a ksession.Session.
type Server struct {
	cfg Config
	ln  net.Listener
}

// Listen binds a TCP listener on cfg.Port (or its default).
func Listen(cfg Config) (*Server, error) {
	cfg = cfg.withDefaults()
	ln, err := net.Listen("tcp", net.JoinHostPort("", strconv.Itoa(cfg.Port)))
	if err != nil {
		return nil, err
	}
	return &Server{cfg: cfg, ln: ln}, nil
}

// Addr returns the listener's bound address.
func (s *Server) Addr() net.Addr { return s.ln.Addr() }

// Close stops accepting new connections.
func (s *Server) Close() error { return s.ln.Close() }

// Serve accepts connections until the listener is closed, handshaking
// and wiring up a Session for each one in its own goroutine. It returns
// the Accept error that stopped the loop (nil never happens; a closed
// listener returns a non-nil net.OpError).
func (s *Server) Serve() error {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return err
		}
		go s.handleConn(conn)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	log := s.cfg.Logger.With(zap.String("remote", conn.RemoteAddr().String()))

	validate := func(user, password string) bool {
		if s.cfg.Password == "" {
			return true
		}
		return khandshake.ConstantTimeEquals(password, s.cfg.Password)
	}

	version, user, err := khandshake.ServerLogin(conn, validate, khandshake.MaxVersion, s.cfg.LoginDeadline)
	if err != nil {
		log.Info("kserver: handshake failed", zap.Error(err))
		conn.Close()
		return
	}
	log.Debug("kserver: handshake complete", zap.String("user", user), zap.Uint8("version", version))

	sess := ksession.New(conn, symtab.New(),
		ksession.WithHandlers(s.cfg.Handlers),
		ksession.WithLogger(log),
	)
	<-sess.Done()
	log.Debug("kserver: session closed", zap.Error(sess.Err()))
}
