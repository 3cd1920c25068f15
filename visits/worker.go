package visits

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/Linanok/Linanok/geoip"
	"github.com/Linanok/Linanok/model"

	"github.com/go-redis/redis/v8"
	"github.com/mileusna/useragent"
	"github.com/rs/zerolog/log"
)

const (
	popTimeout = 2 * time.Second

	// Bound on persisting one popped job. A popped job is no longer on the
	// queue, so it must finish (or re-enqueue) even while the pool shuts down.
	processTimeout = 30 * time.Second
)

// Recorder persists an enriched visit.
type Recorder interface {
	Create(ctx context.Context, visit model.Visit) error
}

// WorkerPool drains the visit queue in the background. Each job is enriched
// with browser, platform and country metadata before it is persisted. Failed
// jobs are re-enqueued until they exhaust their retry budget, so a visit may
// be recorded more than once but is not silently lost.
type WorkerPool struct {
	queue      *Queue
	recorder   Recorder
	geo        *geoip.Resolver
	workers    int
	maxRetries int

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

func NewWorkerPool(queue *Queue, recorder Recorder, geo *geoip.Resolver, workers, maxRetries int) *WorkerPool {
	if workers < 1 {
		workers = 1
	}
	return &WorkerPool{
		queue:      queue,
		recorder:   recorder,
		geo:        geo,
		workers:    workers,
		maxRetries: maxRetries,
	}
}

// Start launches the workers. They run until Stop is called.
func (p *WorkerPool) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.run(ctx, i)
	}

	log.Info().Int("workers", p.workers).Msg("Visit worker pool started")
}

// Stop signals the workers and waits for them to finish their current job.
func (p *WorkerPool) Stop() {
	if p.cancel == nil {
		return
	}
	p.cancel()
	p.wg.Wait()
	log.Info().Msg("Visit worker pool stopped")
}

func (p *WorkerPool) run(ctx context.Context, id int) {
	defer p.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		result, err := p.queue.client.BRPop(ctx, popTimeout, p.queue.key).Result()
		if err != nil {
			if err == redis.Nil || ctx.Err() != nil {
				continue
			}
			log.Error().Err(err).Int("worker", id).Msg("Failed to pop visit job")
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}
		if len(result) != 2 {
			continue
		}

		var job Job
		if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
			log.Error().Err(err).Int("worker", id).Msg("Dropping malformed visit job")
			continue
		}

		p.process(job)
	}
}

// process enriches and persists one job. It runs on its own bounded context:
// the pool's cancellation only stops the queue wait, never a job already
// taken off the queue.
func (p *WorkerPool) process(job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), processTimeout)
	defer cancel()

	visit := model.Visit{
		LinkID:   job.LinkID,
		DomainID: job.DomainID,
		IP:       job.IP,
	}

	if job.UserAgent != "" {
		ua := useragent.Parse(job.UserAgent)
		if ua.Name != "" {
			visit.Browser = &ua.Name
		}
		if ua.OS != "" {
			visit.Platform = &ua.OS
		}
	}
	visit.Country = p.geo.Country(job.IP)

	if err := p.recorder.Create(ctx, visit); err != nil {
		job.Attempts++
		if job.Attempts >= p.maxRetries {
			log.Error().
				Err(err).
				Str("job_id", job.JobID).
				Int64("link_id", job.LinkID).
				Int("attempts", job.Attempts).
				Msg("Visit job failed permanently")
			return
		}

		log.Warn().
			Err(err).
			Str("job_id", job.JobID).
			Int("attempts", job.Attempts).
			Msg("Visit job failed, re-enqueueing")
		p.queue.Enqueue(ctx, job)
		return
	}

	log.Debug().
		Str("job_id", job.JobID).
		Int64("link_id", job.LinkID).
		Msg("Visit recorded")
}
