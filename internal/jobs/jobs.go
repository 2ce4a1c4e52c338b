package jobs

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const DefaultMaxAttempts = 5

// Job is one unit of asynchronous work as stored on the queue.
type Job struct {
	ID          string          `json:"id"`
	Type        JobType         `json:"type"`
	Payload     json.RawMessage `json:"payload"`
	Attempts    int             `json:"attempts"`
	MaxAttempts int             `json:"maxAttempts"`
	RunAt       time.Time       `json:"runAt"`
	LastError   string          `json:"lastError,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// NewJob validates and encodes payload into a pending job.
func NewJob(t JobType, payload any, now time.Time) (Job, error) {
	if err := ValidatePayload(t, payload); err != nil {
		return Job{}, err
	}

	raw, err := EncodePayload(t, payload)
	if err != nil {
		return Job{}, err
	}

	now = now.UTC()
	return Job{
		ID:          uuid.NewString(),
		Type:        t,
		Payload:     raw,
		MaxAttempts: DefaultMaxAttempts,
		RunAt:       now,
		CreatedAt:   now,
	}, nil
}

// Exhausted reports whether the job has used up its attempts.
func (j Job) Exhausted() bool {
	return j.Attempts >= j.MaxAttempts
}
