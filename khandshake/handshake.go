// Package khandshake implements the kdb+ IPC login handshake (§4.4): a
// credential string, a single protocol-version byte, and a NUL
// terminator, exchanged before any framed message flows.
//
// Reads use an explicit deadline on the raw net.Conn, since this runs
// before any framing or buffered I/O is set up. The byte-at-a-time NUL
// scan and constant-time credential comparison are written directly
// against crypto/subtle and the stdlib net package, since this is exactly
// the boundary (credential comparison) where a hand-rolled or cleverly-
// optimized equality check is actively wrong for security reasons.
package khandshake

import (
	"bytes"
	"crypto/subtle"
	"net"
	"time"

	"github.com/kxipc/kxipc/kerr"
)

// DefaultDeadline is the handshake completion deadline used if none is
// given explicitly (§4.4: "a configurable deadline (default 10s)").
const DefaultDeadline = 10 * time.Second

// MaxVersion is the highest protocol version this module negotiates.
const MaxVersion byte = 3

// ClientLogin sends the credential string, proposes version, and reads
// back the accepted version. EOF while awaiting the response is
// reported as kerr.CredentialsError, per §4.4.
func ClientLogin(conn net.Conn, user, password string, version byte, deadline time.Duration) (accepted byte, err error) {
	if deadline <= 0 {
		deadline = DefaultDeadline
	}
	if err := conn.SetDeadline(time.Now().Add(deadline)); err != nil {
		return 0, err
	}
	defer conn.SetDeadline(time.Time{})

	cred := user
	if password != "" {
		cred = user + ":" + password
	}
	buf := make([]byte, 0, len(cred)+2)
	buf = append(buf, cred...)
	buf = append(buf, version, 0)

	if _, err := conn.Write(buf); err != nil {
		return 0, err
	}

	var resp [1]byte
	if _, err := conn.Read(resp[:]); err != nil {
		return 0, kerr.Wrap(kerr.CredentialsError, err, "login rejected or connection closed before response")
	}
	return resp[0], nil
}

// Validator checks a user/password pair extracted from the credential
// string. A nil Validator passed to ServerLogin accepts any
// credentials (§4.4: "otherwise accept").
type Validator func(user, password string) bool

// ServerLogin reads the credential string up to the NUL terminator,
// parses out the proposed version (§4.4's "byte preceding NUL" rule),
// validates credentials, and on success writes back the accepted
// version (min of proposed and maxVersion). On failure it returns
// kerr.CredentialsError without writing a reply; the caller is
// responsible for closing the connection in that case.
func ServerLogin(conn net.Conn, validate Validator, maxVersion byte, deadline time.Duration) (version byte, user string, err error) {
	if deadline <= 0 {
		deadline = DefaultDeadline
	}
	if err := conn.SetDeadline(time.Now().Add(deadline)); err != nil {
		return 0, "", err
	}
	defer conn.SetDeadline(time.Time{})

	raw, err := readUntilNUL(conn)
	if err != nil {
		return 0, "", kerr.Wrap(kerr.CredentialsError, err, "login: failed to read credential string")
	}

	version, cred := splitVersion(raw)
	if version > maxVersion {
		version = maxVersion
	}

	user, password := splitCredential(cred)
	if !checkCredentials(validate, user, password) {
		return 0, "", kerr.New(kerr.CredentialsError, "login: credential check failed")
	}

	if err := conn.SetDeadline(time.Now().Add(deadline)); err != nil {
		return 0, "", err
	}
	if _, err := conn.Write([]byte{version}); err != nil {
		return 0, "", err
	}
	return version, user, nil
}

func readUntilNUL(conn net.Conn) ([]byte, error) {
	var buf []byte
	var b [1]byte
	for {
		if _, err := conn.Read(b[:]); err != nil {
			return nil, err
		}
		if b[0] == 0 {
			return buf, nil
		}
		buf = append(buf, b[0])
	}
}

// splitVersion applies §4.4's rule: if the last byte has value < 32 it
// is the proposed version and the remainder is the credential string;
// otherwise there is no version byte and the whole input is credentials
// (version 0).
func splitVersion(raw []byte) (version byte, cred []byte) {
	if len(raw) == 0 {
		return 0, raw
	}
	last := raw[len(raw)-1]
	if last < 32 {
		return last, raw[:len(raw)-1]
	}
	return 0, raw
}

func splitCredential(cred []byte) (user, password string) {
	if i := bytes.IndexByte(cred, ':'); i >= 0 {
		return string(cred[:i]), string(cred[i+1:])
	}
	return string(cred), ""
}

func checkCredentials(validate Validator, user, password string) bool {
	if validate == nil {
		return true
	}
	return validate(user, password)
}

// ConstantTimeEquals compares two credential strings without leaking
// timing information about where they first differ, for Validator
// implementations backed by a single configured password.
func ConstantTimeEquals(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
