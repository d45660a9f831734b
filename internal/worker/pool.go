package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	QueueAudit = "jobs:audit"

	// DefaultMaxAttempts is how many times a job runs before it is
	// dead-lettered.
	DefaultMaxAttempts = 3
)

// Job is the generic envelope for all async tasks.
type Job struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Handler runs one job payload. A returned error counts as a failed attempt.
type Handler func(ctx context.Context, payload json.RawMessage) error

// Pool consumes Redis list queues with BRPOP. Handlers are registered per
// queue before Start.
type Pool struct {
	rdb         *redis.Client
	handlers    map[string]Handler
	queues      []string
	maxAttempts int
	backoff     func(attempt int) time.Duration
	wg          sync.WaitGroup
}

func NewPool(rdb *redis.Client) *Pool {
	return &Pool{
		rdb:         rdb,
		handlers:    make(map[string]Handler),
		maxAttempts: DefaultMaxAttempts,
		backoff:     exponentialBackoff,
	}
}

// Handle registers h for queue.
func (p *Pool) Handle(queue string, h Handler) {
	if _, ok := p.handlers[queue]; !ok {
		p.queues = append(p.queues, queue)
	}
	p.handlers[queue] = h
}

// Start launches numWorkers goroutines. Each blocks on BRPOP, so idle
// workers cost nothing.
func (p *Pool) Start(ctx context.Context, numWorkers int) {
	if numWorkers < 1 {
		numWorkers = 1
	}
	for i := 0; i < numWorkers; i++ {
		p.wg.Add(1)
		go p.run(ctx, i)
	}
	log.Info().Strs("queues", p.queues).Msgf("worker pool started with %d workers", numWorkers)
}

// Wait blocks until every worker has returned after ctx is cancelled.
func (p *Pool) Wait() { p.wg.Wait() }

func (p *Pool) run(ctx context.Context, id int) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			log.Info().Msgf("worker %d shutting down", id)
			return
		default:
			// Blocking pop; waits up to 5s then loops to check ctx.
			result, err := p.rdb.BRPop(ctx, 5*time.Second, p.queues...).Result()
			if err != nil {
				if err != redis.Nil && ctx.Err() == nil {
					log.Warn().Err(err).Int("worker", id).Msg("worker: brpop failed")
					time.Sleep(time.Second)
				}
				continue
			}
			if len(result) < 2 {
				continue
			}
			if entry := p.process(ctx, result[0], result[1]); entry != nil {
				// The job is already off the queue; a shutdown must not drop it.
				SendToDLQ(context.WithoutCancel(ctx), p.rdb, *entry)
			}
		}
	}
}

// process runs one raw job with retries. It returns the DLQ entry when the
// job cannot be completed.
func (p *Pool) process(ctx context.Context, queue, raw string) *DLQEntry {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		log.Error().Str("queue", queue).Err(err).Msg("failed to unmarshal job")
		return newDLQEntry(queue, "", json.RawMessage(quoteRaw(raw)), "malformed job: "+err.Error(), 0)
	}
	h, ok := p.handlers[queue]
	if !ok {
		return newDLQEntry(queue, job.Type, job.Payload, "no handler for queue", 0)
	}

	attempts, err := p.withRetry(ctx, func(attempt int) error {
		if err := h(ctx, job.Payload); err != nil {
			log.Warn().Err(err).Str("queue", queue).Str("type", job.Type).
				Int("attempt", attempt+1).Msg("worker: job attempt failed")
			return err
		}
		return nil
	})
	if err != nil {
		return newDLQEntry(queue, job.Type, job.Payload, err.Error(), attempts)
	}
	log.Debug().Str("type", job.Type).Str("queue", queue).Msg("job processed")
	return nil
}

// withRetry calls fn up to maxAttempts times, sleeping backoff(i) between
// attempts. It returns the number of attempts made.
func (p *Pool) withRetry(ctx context.Context, fn func(attempt int) error) (int, error) {
	var lastErr error
	for i := 0; i < p.maxAttempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return i, ctx.Err()
			case <-time.After(p.backoff(i)):
			}
		}
		if err := fn(i); err != nil {
			lastErr = err
			continue
		}
		return i + 1, nil
	}
	return p.maxAttempts, lastErr
}

// 1s, 2s, 4s ...
func exponentialBackoff(attempt int) time.Duration {
	return time.Duration(1<<uint(attempt-1)) * time.Second
}

// Enqueue pushes a job onto queue.
func Enqueue(ctx context.Context, rdb *redis.Client, queue, jobType string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("worker: marshal %s payload: %w", jobType, err)
	}
	encoded, err := json.Marshal(Job{Type: jobType, Payload: data})
	if err != nil {
		return err
	}
	return rdb.LPush(ctx, queue, encoded).Err()
}

func quoteRaw(raw string) []byte {
	b, _ := json.Marshal(raw)
	return b
}
