package notifier

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/businas/qwallet-bot/internal/models/modelqueue"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakyCourier fails the first failures[chatID] delivery attempts per chat.
type flakyCourier struct {
	mu        sync.Mutex
	failures  map[int64]int
	attempts  map[int64]int
	delivered map[int64]int
}

func newFlakyCourier(failures map[int64]int) *flakyCourier {
	return &flakyCourier{
		failures:  failures,
		attempts:  make(map[int64]int),
		delivered: make(map[int64]int),
	}
}

func (c *flakyCourier) Deliver(entry modelqueue.NotificationQueueEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.attempts[entry.ChatID]++
	if c.attempts[entry.ChatID] <= c.failures[entry.ChatID] {
		return errors.New("telegram is unreachable")
	}
	c.delivered[entry.ChatID]++
	return nil
}

func (c *flakyCourier) deliveredTo(chatID int64) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.delivered[chatID]
}

func (c *flakyCourier) attemptsFor(chatID int64) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempts[chatID]
}

func startTestNotifier(t *testing.T, courier *flakyCourier, retryNumber int) (chan modelqueue.NotificationQueueEntry, func()) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	wg := &sync.WaitGroup{}
	log := zerolog.Nop()
	queue := make(chan modelqueue.NotificationQueueEntry, 16)
	InitNotifier(ctx, queue, &log, wg, courier, 2, retryNumber).ListenAndDeliver()
	return queue, func() {
		cancel()
		wg.Wait()
	}
}

func TestDelivery(t *testing.T) {
	courier := newFlakyCourier(nil)
	queue, stop := startTestNotifier(t, courier, 3)
	defer stop()

	for chatID := int64(1); chatID <= 3; chatID++ {
		queue <- modelqueue.NotificationQueueEntry{ChatID: chatID, Text: "hello"}
	}
	require.Eventually(t, func() bool {
		return courier.deliveredTo(1) == 1 && courier.deliveredTo(2) == 1 && courier.deliveredTo(3) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestDeliveryRetriesTransientFailures(t *testing.T) {
	courier := newFlakyCourier(map[int64]int{1: 2})
	queue, stop := startTestNotifier(t, courier, 3)
	defer stop()

	queue <- modelqueue.NotificationQueueEntry{ChatID: 1, Text: "hello"}
	require.Eventually(t, func() bool {
		return courier.deliveredTo(1) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 3, courier.attemptsFor(1))
}

func TestDeliveryAbandonsAfterRetryLimit(t *testing.T) {
	courier := newFlakyCourier(map[int64]int{1: 100})
	queue, stop := startTestNotifier(t, courier, 2)
	defer stop()

	queue <- modelqueue.NotificationQueueEntry{ChatID: 1, Text: "hello"}
	queue <- modelqueue.NotificationQueueEntry{ChatID: 2, Text: "hello"}

	// the failing recipient never blocks delivery to the healthy one
	require.Eventually(t, func() bool {
		return courier.deliveredTo(2) == 1
	}, 2*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool {
		return courier.attemptsFor(1) == 3
	}, 2*time.Second, 10*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 3, courier.attemptsFor(1))
	assert.Equal(t, 0, courier.deliveredTo(1))
}

func TestShutdownWhileRetrying(t *testing.T) {
	// a worker may be requeueing a failed delivery when the context is
	// cancelled; shutdown must still terminate cleanly
	courier := newFlakyCourier(map[int64]int{1: 100, 2: 100, 3: 100})
	queue, stop := startTestNotifier(t, courier, 1000)
	for chatID := int64(1); chatID <= 3; chatID++ {
		queue <- modelqueue.NotificationQueueEntry{ChatID: chatID, Text: "hello"}
	}
	require.Eventually(t, func() bool {
		return courier.attemptsFor(1) > 0
	}, 2*time.Second, time.Millisecond)
	stop()
}
