package gopool

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGoPoolDispatch(t *testing.T) {
	p := NewGoPool("test", nil)

	n := 10
	var wg sync.WaitGroup
	wg.Add(n)
	var v int32
	for i := 0; i < n; i++ {
		p.Go(func() {
			atomic.AddInt32(&v, 1)
			wg.Done()
		})
	}
	wg.Wait()
	require.Equal(t, int32(n), atomic.LoadInt32(&v))
}

func TestGoPoolPanicHandler(t *testing.T) {
	p := NewGoPool("test-panic", nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	x := "boom"
	p.SetPanicHandler(func(c context.Context, r interface{}) {
		defer wg.Done()
		require.Equal(t, x, r)
		require.Same(t, ctx, c)
	})
	p.CtxGo(ctx, func() {
		panic(x)
	})
	wg.Wait()
}

func TestGoPoolWorkerMaxAge(t *testing.T) {
	o := DefaultOption()
	o.WorkerMaxAge = 50 * time.Millisecond
	p := NewGoPool("test-ticker", o)
	for i := 0; i < 5; i++ {
		p.Go(func() { time.Sleep(o.WorkerMaxAge) })
	}
	time.Sleep(o.WorkerMaxAge / 10)
	require.Equal(t, 5, p.CurrentWorkers())
	time.Sleep(2 * o.WorkerMaxAge)
	require.Equal(t, 0, p.CurrentWorkers())
}
