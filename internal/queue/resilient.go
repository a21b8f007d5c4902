package queue

import (
	"context"

	"github.com/dkeye/confcore/internal/domain"
	"github.com/rs/zerolog"
)

// Resilient wraps a durable Queue with a MemoryQueue fallback so that an
// Enqueue call always succeeds even if the durable broker is down (spec
// §4.C "In-memory fallback"). Subscribe registers the handler on both
// backends; whichever one actually receives a given job runs it.
type Resilient struct {
	log      zerolog.Logger
	durable  Queue
	fallback *MemoryQueue
}

func NewResilient(durable Queue, log zerolog.Logger) *Resilient {
	return &Resilient{
		log:      log.With().Str("component", "resilient_queue").Logger(),
		durable:  durable,
		fallback: NewMemoryQueue(log),
	}
}

func (r *Resilient) Enqueue(ctx context.Context, job domain.Job) error {
	if r.durable != nil {
		if err := r.durable.Enqueue(ctx, job); err == nil {
			return nil
		} else {
			r.log.Warn().Err(err).Str("queue", string(job.Queue)).Msg("durable enqueue failed, falling back to memory queue")
		}
	}
	return r.fallback.Enqueue(ctx, job)
}

func (r *Resilient) Cancel(ctx context.Context, id string) error {
	if r.durable != nil {
		_ = r.durable.Cancel(ctx, id)
	}
	return r.fallback.Cancel(ctx, id)
}

func (r *Resilient) Subscribe(queue domain.QueueName, concurrency int, h Handler) error {
	if r.durable != nil {
		if err := r.durable.Subscribe(queue, concurrency, h); err != nil {
			r.log.Warn().Err(err).Str("queue", string(queue)).Msg("durable subscribe failed, running on memory queue only")
		}
	}
	return r.fallback.Subscribe(queue, concurrency, h)
}

func (r *Resilient) Close(ctx context.Context) error {
	if r.durable != nil {
		_ = r.durable.Close(ctx)
	}
	return r.fallback.Close(ctx)
}
