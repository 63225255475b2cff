package ksession

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kxipc/kxipc/kval"
	"github.com/kxipc/kxipc/symtab"
)

func TestSessionSyncAsyncOrdering(t *testing.T) {
	clientConn, serverConn := net.Pipe()

	asyncCh := make(chan kval.Value, 1)
	client := New(clientConn, symtab.New(), WithHandlers(Handlers{
		OnAsync: func(_ context.Context, v kval.Value) { asyncCh <- v },
	}))
	defer client.Close(nil)

	var server *Session
	server = New(serverConn, symtab.New(), WithHandlers(Handlers{
		OnSync: func(_ context.Context, _ kval.Value) (kval.Value, error) {
			require.NoError(t, server.AsyncSend(kval.KLong(1)))
			return kval.KLong(2), nil
		},
	}))
	defer server.Close(nil)

	result, err := client.SyncRequest(context.Background(), kval.KInt(0))
	require.NoError(t, err)
	n, err := result.AJ()
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	select {
	case v := <-asyncCh:
		m, err := v.AJ()
		require.NoError(t, err)
		assert.EqualValues(t, 1, m)
	case <-time.After(2 * time.Second):
		t.Fatal("async message never observed")
	}
}

func TestSessionCloseCascadesToPending(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer serverConn.Close()

	client := New(clientConn, symtab.New())

	done := make(chan error, 1)
	go func() {
		_, err := client.SyncRequest(context.Background(), kval.KInt(1))
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	client.Close(nil)

	select {
	case err := <-done:
		require.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("SyncRequest never resolved after Close")
	}
}

func TestSessionRemoteErrorResponse(t *testing.T) {
	clientConn, serverConn := net.Pipe()

	client := New(clientConn, symtab.New())
	defer client.Close(nil)

	server := New(serverConn, symtab.New(), WithHandlers(Handlers{
		OnSync: func(_ context.Context, _ kval.Value) (kval.Value, error) {
			return kval.Value{}, assertErr{"bad request"}
		},
	}))
	defer server.Close(nil)

	_, err := client.SyncRequest(context.Background(), kval.KInt(0))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad request")
}

type assertErr struct{ msg string }

func (e assertErr) Error() string { return e.msg }
