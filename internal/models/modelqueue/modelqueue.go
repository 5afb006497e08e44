// Package modelqueue provides types for queueing pieces of data.

package modelqueue

type InlineAction struct {
	Label string
	Token string
}

type NotificationQueueEntry struct {
	ChatID     int64
	Text       string
	Actions    []InlineAction
	RetryCount int
}
