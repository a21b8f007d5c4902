// Package queue implements the Job Queue (spec §4.C): four named queues
// with retry/backoff and an in-memory fallback that keeps the product
// working single-node when the durable broker is unavailable.
package queue

import (
	"context"
	"time"

	"github.com/dkeye/confcore/internal/domain"
)

// Handler processes one job. Returning an error triggers the queue's retry
// policy; returning nil acks the job.
type Handler func(ctx context.Context, job domain.Job) error

// Queue is the persistence-agnostic contract both backends satisfy.
type Queue interface {
	// Enqueue submits a job for immediate or delayed (NotBefore) execution.
	// A non-empty Job.ID is used for deduplication, and how far that goes
	// depends on the backend: NATSQueue sends it as a Nats-Msg-Id, which
	// JetStream deduplicates within its dedup window; MemoryQueue treats a
	// repeat ID as a no-op only while a delayed job with that ID is still
	// waiting on its timer, and does not deduplicate immediate or running jobs.
	Enqueue(ctx context.Context, job domain.Job) error

	// Cancel removes a pending (not yet started) job by ID. No-op if the job
	// already ran or does not exist.
	Cancel(ctx context.Context, id string) error

	// Subscribe registers the handler that processes jobs from a queue,
	// starting the given number of concurrent workers.
	Subscribe(queue domain.QueueName, concurrency int, h Handler) error

	// Close stops all workers, letting in-flight jobs finish up to the
	// given deadline, then rejects further enqueues.
	Close(ctx context.Context) error
}

// Backoff computes the exponential retry delay for the given attempt number
// (1-indexed) off a per-queue base delay, per spec §4.C.
func Backoff(base time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
	}
	return d
}

// DefaultAttempts returns the retry budget for a queue per spec §4.C.
func DefaultAttempts(q domain.QueueName) int {
	switch q {
	case domain.QueueEmail, domain.QueueReminder:
		return 3
	case domain.QueueMoMGen, domain.QueueRecording:
		return 2
	default:
		return 1
	}
}

// BaseDelay returns the per-queue exponential-backoff base delay.
func BaseDelay(q domain.QueueName) time.Duration {
	switch q {
	case domain.QueueEmail:
		return 5 * time.Second
	case domain.QueueMoMGen:
		return 10 * time.Second
	case domain.QueueRecording:
		return 5 * time.Second
	default:
		return 5 * time.Second
	}
}

// Concurrency returns the worker-pool size per queue per spec §4.C.
func Concurrency(q domain.QueueName) int {
	switch q {
	case domain.QueueEmail:
		return 5
	case domain.QueueMoMGen, domain.QueueRecording:
		return 2
	default:
		return 3
	}
}
