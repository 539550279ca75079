package lock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fatura/internal/domain"
)

func TestMemoryLocker_SecondAcquireFails(t *testing.T) {
	l := NewMemoryLocker()
	id := uuid.New()

	release, err := l.Acquire(context.Background(), id)
	require.NoError(t, err)

	_, err = l.Acquire(context.Background(), id)
	assert.ErrorIs(t, err, domain.ErrInvoiceLocked)

	other, err := l.Acquire(context.Background(), uuid.New())
	require.NoError(t, err)
	other()

	release()
	release()

	again, err := l.Acquire(context.Background(), id)
	require.NoError(t, err)
	again()
}

func TestMemoryLocker_Concurrent(t *testing.T) {
	l := NewMemoryLocker()
	id := uuid.New()

	var won int32
	var wg sync.WaitGroup
	start := make(chan struct{})
	releases := make(chan func(), 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if release, err := l.Acquire(context.Background(), id); err == nil {
				atomic.AddInt32(&won, 1)
				releases <- release
			}
		}()
	}
	close(start)
	wg.Wait()
	close(releases)

	assert.Equal(t, int32(1), won)
	for r := range releases {
		r()
	}
}

func TestRedisLocker_UnreachableServer(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 200 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()
	l := NewRedisLockerWithClient(client, 0, nil)
	assert.Equal(t, 5*time.Minute, l.ttl)

	_, err := l.Acquire(context.Background(), uuid.New())
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrInvoiceLocked)
}
