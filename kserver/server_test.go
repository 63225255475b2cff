package kserver

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kxipc/kxipc/kclient"
	"github.com/kxipc/kxipc/ksession"
	"github.com/kxipc/kxipc/kval"
)

func TestServeHandshakeAndSyncRequest(t *testing.T) {
	srv, err := Listen(Config{
		Port:     0,
		Password: "secret",
		Handlers: ksession.Handlers{
			OnSync: func(_ context.Context, req kval.Value) (kval.Value, error) {
				n, err := req.AJ()
				require.NoError(t, err)
				return kval.KLong(n + 1), nil
			},
		},
	})
	require.NoError(t, err)
	defer srv.Close()

	go srv.Serve()

	sess, err := kclient.Connect(srv.Addr().String(), kclient.Options{
		User:     "tester",
		Password: "secret",
	})
	require.NoError(t, err)
	defer sess.Close(nil)

	result, err := sess.SyncRequest(context.Background(), kval.KLong(41))
	require.NoError(t, err)
	n, err := result.AJ()
	require.NoError(t, err)
	assert.EqualValues(t, 42, n)
}

func TestServeRejectsBadPassword(t *testing.T) {
	srv, err := Listen(Config{Port: 0, Password: "secret"})
	require.NoError(t, err)
	defer srv.Close()

	go srv.Serve()

	_, err = kclient.Connect(srv.Addr().String(), kclient.Options{
		User:            "tester",
		Password:        "wrong",
		HandshakeWindow: time.Second,
	})
	require.Error(t, err)
}
