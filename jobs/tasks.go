package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskLedgerIntegrity triggers the nightly balance-vs-movements scan.
	TaskLedgerIntegrity = "ledger:integrity"
)

// LedgerIntegrityPayload carries scheduling metadata.
type LedgerIntegrityPayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewLedgerIntegrityTask constructs the integrity scan task.
func NewLedgerIntegrityTask(at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(LedgerIntegrityPayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLedgerIntegrity, body, asynq.Queue(QueueDefault)), nil
}
