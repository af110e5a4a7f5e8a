package queue

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_RunsAllTasks(t *testing.T) {
	m := NewManager(3, 4)

	var (
		wg    sync.WaitGroup
		count int32
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		require.NoError(t, m.Submit(context.Background(), func() {
			defer wg.Done()
			atomic.AddInt32(&count, 1)
		}))
	}
	wg.Wait()
	m.Close()

	assert.Equal(t, int32(20), count)
	status := m.GetQueueStatus()
	assert.Equal(t, int64(20), status.ProcessedCount)
	assert.Equal(t, 3, status.Workers)
	assert.Equal(t, 4, status.MaxQueueSize)
}

func TestManager_BoundsConcurrency(t *testing.T) {
	m := NewManager(2, 10)
	defer m.Close()

	var (
		wg             sync.WaitGroup
		inflight, peak int32
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		require.NoError(t, m.Submit(context.Background(), func() {
			defer wg.Done()
			n := atomic.AddInt32(&inflight, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&inflight, -1)
		}))
	}
	wg.Wait()

	assert.LessOrEqual(t, peak, int32(2))
}

func TestManager_SubmitHonorsContext(t *testing.T) {
	m := NewManager(1, 0)
	defer m.Close()

	release := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, m.Submit(context.Background(), func() {
		close(started)
		<-release
	}))
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := m.Submit(ctx, func() {})
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
}

func TestManager_ClosedRejectsAndRecoversPanics(t *testing.T) {
	m := NewManager(1, 1)

	done := make(chan struct{})
	require.NoError(t, m.Submit(context.Background(), func() { panic("boom") }))
	require.NoError(t, m.Submit(context.Background(), func() { close(done) }))
	<-done

	m.Close()
	m.Close()
	assert.ErrorIs(t, m.Submit(context.Background(), func() {}), ErrClosed)
}
