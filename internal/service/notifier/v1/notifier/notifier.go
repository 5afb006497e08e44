package notifier

import (
	"context"
	"fmt"
	"sync"

	"github.com/businas/qwallet-bot/internal/models/modelqueue"
	notifierService "github.com/businas/qwallet-bot/internal/service/notifier/v1"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

type Notifier struct {
	ctx          context.Context
	log          *zerolog.Logger
	queue        chan modelqueue.NotificationQueueEntry
	wg           *sync.WaitGroup
	courier      notifierService.Courier
	workerNumber int
	retryNumber  int
}

type DeliveryWorker struct {
	ID          int
	ctx         context.Context
	log         *zerolog.Logger
	queue       chan modelqueue.NotificationQueueEntry
	courier     notifierService.Courier
	retryNumber int
}

func InitNotifier(ctx context.Context, queue chan modelqueue.NotificationQueueEntry, log *zerolog.Logger, wg *sync.WaitGroup, courier notifierService.Courier, workerNumber int, retryNumber int) *Notifier {
	notifier := Notifier{
		ctx:          ctx,
		log:          log,
		queue:        queue,
		wg:           wg,
		courier:      courier,
		workerNumber: workerNumber,
		retryNumber:  retryNumber,
	}
	return &notifier
}

func (n *Notifier) ListenAndDeliver() {
	n.wg.Add(1)
	go func() {
		n.log.Info().Msg("started listening to notification queue")
		defer n.wg.Done()
		g, _ := errgroup.WithContext(n.ctx)
		for i := 0; i < n.workerNumber; i++ {
			w := &DeliveryWorker{ID: i, ctx: n.ctx, log: n.log, queue: n.queue, courier: n.courier, retryNumber: n.retryNumber}
			g.Go(w.deliverAsync)
		}
		// the queue is never closed: a worker mid-retry may still requeue
		// into it, so workers exit on ctx.Done instead
		<-n.ctx.Done()
		err := g.Wait()
		if err != nil {
			n.log.Fatal().Err(err).Msg("closing errgroup failed")
		}
		n.log.Info().Msg("stopped listening to notification queue")
	}()
}

// deliverAsync drains the queue. A failed delivery is requeued with an
// incremented retry count until the retry limit, then abandoned; one
// recipient failing never aborts delivery to the rest.
func (w *DeliveryWorker) deliverAsync() error {
	for {
		var entry modelqueue.NotificationQueueEntry
		select {
		case <-w.ctx.Done():
			return nil
		case entry = <-w.queue:
		}
		err := w.courier.Deliver(entry)
		if err == nil {
			continue
		}
		if entry.RetryCount >= w.retryNumber {
			w.log.Warn().Msg(fmt.Sprintf("WID %v, chat %v, delivery abandoned due to retry limit exceeding", w.ID, entry.ChatID))
			continue
		}
		w.log.Warn().Msg(fmt.Sprintf("WID %v, chat %v, could not deliver, sending back to queue", w.ID, entry.ChatID))
		entry.RetryCount += 1
		select {
		case w.queue <- entry:
		case <-w.ctx.Done():
			return nil
		}
	}
}
