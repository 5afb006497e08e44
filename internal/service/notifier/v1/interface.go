// Package notifier defines the outbound notification delivery pool.
package notifier

import (
	"github.com/businas/qwallet-bot/internal/models/modelqueue"
)

// Courier delivers one notification to its recipient; the transport adapter
// implements it.
type Courier interface {
	Deliver(entry modelqueue.NotificationQueueEntry) error
}
