package visits

import (
	"context"
	"encoding/json"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Job is one pending visit to record. It carries only what was captured on
// the hot redirect path; enrichment happens in the worker.
type Job struct {
	JobID     string `json:"jobId"`
	LinkID    int64  `json:"linkId"`
	DomainID  int64  `json:"domainId"`
	IP        string `json:"ip"`
	UserAgent string `json:"userAgent"`
	Attempts  int    `json:"attempts"`
}

// Queue is a Redis-backed FIFO of visit jobs.
type Queue struct {
	client *redis.Client
	key    string
}

func NewQueue(client *redis.Client, key string) *Queue {
	return &Queue{client: client, key: key}
}

// Enqueue pushes a visit job. Failures are logged and swallowed so the
// redirect path never blocks on analytics.
func (q *Queue) Enqueue(ctx context.Context, job Job) {
	if job.JobID == "" {
		job.JobID = uuid.New().String()
	}

	payload, err := json.Marshal(job)
	if err != nil {
		log.Error().Err(err).Str("job_id", job.JobID).Msg("Failed to marshal visit job")
		return
	}

	if err := q.client.LPush(ctx, q.key, payload).Err(); err != nil {
		log.Error().Err(err).Str("job_id", job.JobID).Msg("Failed to enqueue visit job")
		return
	}

	log.Debug().
		Str("job_id", job.JobID).
		Int64("link_id", job.LinkID).
		Msg("Visit job enqueued")
}

// Len returns the number of pending jobs.
func (q *Queue) Len(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.key).Result()
}
