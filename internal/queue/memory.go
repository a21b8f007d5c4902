package queue

import (
	"context"
	"sync"
	"time"

	"github.com/dkeye/confcore/internal/domain"
	"github.com/rs/zerolog"
)

// MemoryQueue is the in-process fallback used when NATS is unreachable
// (spec §4.C "In-memory fallback"). Immediate jobs are pushed onto a
// buffered per-queue channel drained by a small worker pool; delayed jobs are
// scheduled with time.AfterFunc so cancellation can stop a pending timer
// outright.
type MemoryQueue struct {
	log zerolog.Logger

	mu       sync.Mutex
	handlers map[domain.QueueName]Handler
	timers   map[string]*time.Timer
	closed   bool

	work map[domain.QueueName]chan domain.Job
	wg   sync.WaitGroup
}

func NewMemoryQueue(log zerolog.Logger) *MemoryQueue {
	return &MemoryQueue{
		log:      log.With().Str("component", "memory_queue").Logger(),
		handlers: make(map[domain.QueueName]Handler),
		timers:   make(map[string]*time.Timer),
		work:     make(map[domain.QueueName]chan domain.Job),
	}
}

func (q *MemoryQueue) Subscribe(queue domain.QueueName, concurrency int, h Handler) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[queue] = h
	ch := make(chan domain.Job, 256)
	q.work[queue] = ch
	for i := 0; i < concurrency; i++ {
		q.wg.Add(1)
		go q.worker(queue, ch, h)
	}
	return nil
}

func (q *MemoryQueue) worker(queue domain.QueueName, ch chan domain.Job, h Handler) {
	defer q.wg.Done()
	for job := range ch {
		q.runWithRetry(job, h)
	}
}

func (q *MemoryQueue) runWithRetry(job domain.Job, h Handler) {
	attempt := 1
	for {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := h(ctx, job)
		cancel()
		if err == nil {
			return
		}
		job.AttemptsRemaining--
		if job.AttemptsRemaining <= 0 {
			q.log.Error().Err(err).Str("job_id", job.ID).Str("queue", string(job.Queue)).Msg("job dead-lettered")
			return
		}
		delay := Backoff(job.BackoffBase, attempt)
		q.log.Warn().Err(err).Str("job_id", job.ID).Dur("retry_in", delay).Msg("job failed, retrying")
		time.Sleep(delay)
		attempt++
	}
}

func (q *MemoryQueue) Enqueue(ctx context.Context, job domain.Job) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrClosed
	}
	if job.ID != "" {
		if _, exists := q.timers[job.ID]; exists {
			q.mu.Unlock()
			return nil
		}
	}
	ch, ok := q.work[job.Queue]
	q.mu.Unlock()
	if !ok {
		return nil
	}

	delay := time.Until(job.NotBefore)
	if delay <= 0 {
		ch <- job
		return nil
	}

	timer := time.AfterFunc(delay, func() {
		q.mu.Lock()
		if job.ID != "" {
			delete(q.timers, job.ID)
		}
		closed := q.closed
		q.mu.Unlock()
		if !closed {
			ch <- job
		}
	})
	if job.ID != "" {
		q.mu.Lock()
		q.timers[job.ID] = timer
		q.mu.Unlock()
	}
	return nil
}

func (q *MemoryQueue) Cancel(ctx context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if t, ok := q.timers[id]; ok {
		t.Stop()
		delete(q.timers, id)
	}
	return nil
}

func (q *MemoryQueue) Close(ctx context.Context) error {
	q.mu.Lock()
	q.closed = true
	for _, t := range q.timers {
		t.Stop()
	}
	for _, ch := range q.work {
		close(ch)
	}
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
