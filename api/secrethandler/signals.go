package secrethandler

import (
	"log/slog"
	"sync"

	"github.com/ruteri/secret-service/interfaces"
)

// DefaultSignalQueueCapacity bounds the number of undelivered signals kept per caller.
const DefaultSignalQueueCapacity = 64

// SignalQueue implements interfaces.SignalEmitter for the HTTP binding by
// queueing Completed signals per caller until they are fetched. Signals for
// callers of other transports are ignored. When a caller's queue is full the
// oldest signal is dropped.
type SignalQueue struct {
	mu       sync.Mutex
	capacity int
	queues   map[interfaces.Caller][]interfaces.CompletedSignal
	log      *slog.Logger
}

// NewSignalQueue creates a queue keeping at most capacity signals per caller.
func NewSignalQueue(capacity int, log *slog.Logger) *SignalQueue {
	if capacity <= 0 {
		capacity = DefaultSignalQueueCapacity
	}
	return &SignalQueue{
		capacity: capacity,
		queues:   make(map[interfaces.Caller][]interfaces.CompletedSignal),
		log:      log,
	}
}

// EmitCompleted queues signal for caller.
func (q *SignalQueue) EmitCompleted(caller interfaces.Caller, signal interfaces.CompletedSignal) {
	if !caller.IsHTTP() {
		return
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	queue := q.queues[caller]
	if len(queue) >= q.capacity {
		q.log.Warn("Signal queue full, dropping oldest signal",
			"caller", caller,
			"dropped", queue[0].Prompt)
		queue = queue[1:]
	}
	q.queues[caller] = append(queue, signal)
}

// Drain returns and removes every signal queued for caller, oldest first.
func (q *SignalQueue) Drain(caller interfaces.Caller) []interfaces.CompletedSignal {
	q.mu.Lock()
	defer q.mu.Unlock()

	queue := q.queues[caller]
	delete(q.queues, caller)
	if queue == nil {
		return []interfaces.CompletedSignal{}
	}
	return queue
}

// Forget drops everything queued for caller.
func (q *SignalQueue) Forget(caller interfaces.Caller) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.queues, caller)
}
