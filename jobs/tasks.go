package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskSessionSweep clears clients whose credential has expired.
	TaskSessionSweep = "session:sweep"
)

// SessionSweepPayload carries scheduling metadata.
type SessionSweepPayload struct {
	RequestedAt time.Time `json:"requested_at"`
}

// NewSessionSweepTask constructs an Asynq task for the session sweep.
func NewSessionSweepTask(at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(SessionSweepPayload{RequestedAt: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSessionSweep, body, asynq.Queue(QueueDefault), asynq.Unique(time.Minute)), nil
}
