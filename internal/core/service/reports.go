package service

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

type telephonyReport struct {
	what string
	fn   func(ctx context.Context) error
}

// reportQueue delivers telephony reports one at a time, in the order the
// manager produced them. push never blocks.
type reportQueue struct {
	mu     sync.Mutex
	items  []telephonyReport
	pushed int
	wake   chan struct{}
}

func newReportQueue() *reportQueue {
	return &reportQueue{wake: make(chan struct{}, 1)}
}

func (q *reportQueue) push(r telephonyReport) {
	q.mu.Lock()
	q.items = append(q.items, r)
	q.pushed++
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// total returns how many reports were ever queued.
func (q *reportQueue) total() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pushed
}

func (q *reportQueue) take() []telephonyReport {
	q.mu.Lock()
	defer q.mu.Unlock()
	items := q.items
	q.items = nil
	return items
}

// run delivers reports until stop is closed, then flushes what is left.
func (q *reportQueue) run(stop <-chan struct{}) {
	for {
		select {
		case <-q.wake:
			q.deliver(q.take())
		case <-stop:
			q.deliver(q.take())
			return
		}
	}
}

func (q *reportQueue) deliver(items []telephonyReport) {
	for _, r := range items {
		ctx, cancel := context.WithTimeout(context.Background(), reportTimeout)
		if err := r.fn(ctx); err != nil {
			log.Warn().Err(err).Str("report", r.what).Msg("Telephony report failed")
		}
		cancel()
	}
}
