package khandshake

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandshakeSuccess(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	done := make(chan struct{})
	var version byte
	var user string
	var err error
	go func() {
		defer close(done)
		version, user, err = ServerLogin(serverConn, func(u, p string) bool {
			return u == "quser" && ConstantTimeEquals(p, "qpass")
		}, MaxVersion, time.Second)
	}()

	accepted, cerr := ClientLogin(clientConn, "quser", "qpass", 3, time.Second)
	<-done

	require.NoError(t, cerr)
	require.NoError(t, err)
	assert.Equal(t, byte(3), accepted)
	assert.Equal(t, byte(3), version)
	assert.Equal(t, "quser", user)
}

func TestHandshakeVersionClamped(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		ServerLogin(serverConn, nil, 1, time.Second)
	}()

	accepted, err := ClientLogin(clientConn, "quser", "", 3, time.Second)
	<-done

	require.NoError(t, err)
	assert.Equal(t, byte(1), accepted)
}

func TestHandshakeNoPasswordAcceptsAnyCredentials(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	done := make(chan struct{})
	var user string
	go func() {
		defer close(done)
		_, user, _ = ServerLogin(serverConn, nil, MaxVersion, time.Second)
	}()

	_, err := ClientLogin(clientConn, "anybody", "whatever", 1, time.Second)
	<-done

	require.NoError(t, err)
	assert.Equal(t, "anybody", user)
}

func TestHandshakeBadCredentialsClosesWithoutReply(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _, err := ServerLogin(serverConn, func(u, p string) bool { return false }, MaxVersion, time.Second)
		require.Error(t, err)
		serverConn.Close()
	}()

	_, err := ClientLogin(clientConn, "quser", "wrong", 3, time.Second)
	<-done

	require.Error(t, err)
	assert.ErrorContains(t, err, "login rejected")
}

func TestSplitVersion(t *testing.T) {
	version, cred := splitVersion([]byte("user:pass\x03"))
	assert.Equal(t, byte(3), version)
	assert.Equal(t, "user:pass", string(cred))

	version, cred = splitVersion([]byte("user:pass"))
	assert.Equal(t, byte(0), version)
	assert.Equal(t, "user:pass", string(cred))
}

func TestSplitCredential(t *testing.T) {
	user, pass := splitCredential([]byte("user:pass"))
	assert.Equal(t, "user", user)
	assert.Equal(t, "pass", pass)

	user, pass = splitCredential([]byte("user"))
	assert.Equal(t, "user", user)
	assert.Equal(t, "", pass)
}
