package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskAuditPrune removes audit entries past retention.
	TaskAuditPrune = "retention:audit"
	// TaskSanctionPrune removes resolved sanctions past retention.
	TaskSanctionPrune = "retention:sanctions"
)

// RetentionPayload carries the retention horizon for prune tasks.
type RetentionPayload struct {
	OlderThan string `json:"older_than"`
}

// NewAuditPruneTask constructs an audit retention task.
func NewAuditPruneTask(payload RetentionPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAuditPrune, data), nil
}

// NewSanctionPruneTask constructs a sanction retention task.
func NewSanctionPruneTask(payload RetentionPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSanctionPrune, data), nil
}
