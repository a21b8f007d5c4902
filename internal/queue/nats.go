package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/dkeye/confcore/internal/domain"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog"
)

// NATSQueue durably persists jobs via JetStream, one stream per named queue,
// grounded on mauriciozanettisalomao-lfx-v1-sync-helper's nats_client.go
// connection pattern, generalized from request/reply to a durable
// publish/consume worker pool.
type NATSQueue struct {
	log  zerolog.Logger
	nc   *nats.Conn
	js   jetstream.JetStream
	cons map[domain.QueueName]jetstream.ConsumeContext
}

func Connect(url string, log zerolog.Logger) (*NATSQueue, error) {
	nc, err := nats.Connect(url,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn().Err(err).Msg("nats disconnected")
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			log.Info().Msg("nats reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("init jetstream: %w", err)
	}
	q := &NATSQueue{
		log:  log.With().Str("component", "nats_queue").Logger(),
		nc:   nc,
		js:   js,
		cons: make(map[domain.QueueName]jetstream.ConsumeContext),
	}
	if err := q.ensureStreams(context.Background()); err != nil {
		nc.Close()
		return nil, err
	}
	return q, nil
}

var allQueues = []domain.QueueName{
	domain.QueueEmail, domain.QueueReminder, domain.QueueMoMGen, domain.QueueRecording,
}

func streamName(q domain.QueueName) string { return "JOBS_" + string(q) }
func subject(q domain.QueueName) string    { return "jobs." + string(q) }

func (q *NATSQueue) ensureStreams(ctx context.Context) error {
	for _, name := range allQueues {
		_, err := q.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
			Name:      streamName(name),
			Subjects:  []string{subject(name)},
			Retention: jetstream.WorkQueuePolicy,
			Storage:   jetstream.FileStorage,
			MaxAge:    24 * time.Hour,
		})
		if err != nil {
			return fmt.Errorf("create stream %s: %w", name, err)
		}
	}
	return nil
}

// Enqueue publishes the job. A non-empty job.ID is sent as a Nats-Msg-Id
// header, which JetStream deduplicates within its default dedup window.
func (q *NATSQueue) Enqueue(ctx context.Context, job domain.Job) error {
	msg := nats.NewMsg(subject(job.Queue))
	msg.Data = job.Payload
	if job.ID != "" {
		msg.Header.Set(nats.MsgIdHdr, job.ID)
	}
	msg.Header.Set("X-Job-Type", string(job.Type))
	msg.Header.Set("X-Attempts-Remaining", fmt.Sprintf("%d", job.AttemptsRemaining))
	msg.Header.Set("X-Backoff-Base-Ms", fmt.Sprintf("%d", job.BackoffBase.Milliseconds()))

	delay := time.Until(job.NotBefore)
	if delay > 0 {
		// JetStream has no native delayed-delivery primitive in this
		// client version; approximate it with a local timer that
		// publishes once the delay elapses. Durability of the delay
		// itself is best-effort, matching spec §4.C's at-least-once
		// (not exactly-once) delivery guarantee.
		time.AfterFunc(delay, func() {
			_, _ = q.js.PublishMsg(context.Background(), msg)
		})
		return nil
	}
	_, err := q.js.PublishMsg(ctx, msg)
	return err
}

func (q *NATSQueue) Cancel(ctx context.Context, id string) error {
	// No-op: once published, JetStream work-queue messages are claimed by a
	// consumer almost immediately. Delayed jobs held in Enqueue's local
	// timers are not tracked by ID either, so Cancel does not stop them; they
	// are published when their delay elapses.
	return nil
}

func (q *NATSQueue) Subscribe(queueName domain.QueueName, concurrency int, h Handler) error {
	cons, err := q.js.CreateOrUpdateConsumer(context.Background(), streamName(queueName), jetstream.ConsumerConfig{
		Durable:       "worker",
		AckPolicy:     jetstream.AckExplicitPolicy,
		MaxDeliver:    DefaultAttempts(queueName) + 1,
		MaxAckPending: concurrency * 4,
	})
	if err != nil {
		return fmt.Errorf("create consumer for %s: %w", queueName, err)
	}

	cc, err := cons.Consume(func(msg jetstream.Msg) {
		job := domain.Job{
			Queue:   queueName,
			Type:    domain.JobType(msg.Headers().Get("X-Job-Type")),
			Payload: msg.Data(),
			ID:      msg.Headers().Get(nats.MsgIdHdr),
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := h(ctx, job)
		cancel()
		if err != nil {
			meta, _ := msg.Metadata()
			delay := Backoff(BaseDelay(queueName), int(meta.NumDelivered))
			q.log.Warn().Err(err).Str("queue", string(queueName)).Dur("retry_in", delay).Msg("job nak'd")
			_ = msg.NakWithDelay(delay)
			return
		}
		_ = msg.Ack()
	}, jetstream.PullMaxMessages(concurrency))
	if err != nil {
		return fmt.Errorf("consume %s: %w", queueName, err)
	}
	q.cons[queueName] = cc
	return nil
}

func (q *NATSQueue) Close(ctx context.Context) error {
	for _, cc := range q.cons {
		cc.Stop()
	}
	done := make(chan struct{})
	go func() {
		q.nc.Drain()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		q.nc.Close()
		return ctx.Err()
	}
}
