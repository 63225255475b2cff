// Package kclient provides a convenience dialer that performs the TCP
// connect, login handshake (§4.4), and session construction (§4.3) in
// one call, handing back a single ready-to-use session rather than
// separate dial/handshake/wrap steps the caller must sequence themselves.
package kclient

import (
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kxipc/kxipc/kerr"
	"github.com/kxipc/kxipc/khandshake"
	"github.com/kxipc/kxipc/ksession"
	"github.com/kxipc/kxipc/symtab"
)

// DefaultPort is the default kdb+ listen port (§6.4).
const DefaultPort = 8890

// Options configures Dial/Connect beyond the bare address.
type Options struct {
	User            string
	Password        string
	Version         byte
	HandshakeWindow time.Duration
	DialTimeout     time.Duration
	Handlers        ksession.Handlers
	Logger          *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.Version == 0 {
		o.Version = khandshake.MaxVersion
	}
	if o.HandshakeWindow <= 0 {
		o.HandshakeWindow = khandshake.DefaultDeadline
	}
	if o.DialTimeout <= 0 {
		o.DialTimeout = 10 * time.Second
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// Dial parses a kdb://[user[:password]@]host[:port] URI (§6.3), falling
// back to DefaultPort when no port is given, connects, and performs the
// login handshake.
func Dial(uri string, opts Options) (*ksession.Session, error) {
	host, port, user, password, err := parseURI(uri)
	if err != nil {
		return nil, err
	}
	if opts.User == "" {
		opts.User = user
	}
	if opts.Password == "" {
		opts.Password = password
	}
	return Connect(net.JoinHostPort(host, strconv.Itoa(port)), opts)
}

// Connect dials addr directly (host:port, no URI parsing) and performs
// the login handshake with the given options.
func Connect(addr string, opts Options) (*ksession.Session, error) {
	opts = opts.withDefaults()

	conn, err := net.DialTimeout("tcp", addr, opts.DialTimeout)
	if err != nil {
		return nil, err
	}

	if _, err := khandshake.ClientLogin(conn, opts.User, opts.Password, opts.Version, opts.HandshakeWindow); err != nil {
		conn.Close()
		return nil, err
	}

	sess := ksession.New(conn, symtab.New(),
		ksession.WithHandlers(opts.Handlers),
		ksession.WithLogger(opts.Logger),
	)
	return sess, nil
}

// parseURI splits a kdb:// connection string into its components. An
// absent port defaults to DefaultPort; absent user/password are
// returned as empty strings, letting the caller's explicit Options
// override or leave them blank (§6.3: "missing scheme fields fall back
// to explicit parameters").
func parseURI(raw string) (host string, port int, user, password string, err error) {
	if !strings.Contains(raw, "://") {
		raw = "kdb://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", 0, "", "", kerr.Wrap(kerr.ProtocolError, err, "kclient: invalid URI")
	}
	if u.Scheme != "" && u.Scheme != "kdb" {
		return "", 0, "", "", kerr.Newf(kerr.ProtocolError, "kclient: unsupported scheme %q", u.Scheme)
	}

	host = u.Hostname()
	if host == "" {
		return "", 0, "", "", kerr.New(kerr.ProtocolError, "kclient: URI missing host")
	}
	port = DefaultPort
	if p := u.Port(); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil {
			return "", 0, "", "", kerr.Wrap(kerr.ProtocolError, err, "kclient: invalid port")
		}
		port = n
	}
	if u.User != nil {
		user = u.User.Username()
		password, _ = u.User.Password()
	}
	return host, port, user, password, nil
}
