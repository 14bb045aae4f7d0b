package tasks

import (
	"encoding/json"

	"github.com/google/uuid"
)

// NewTask is the payload for registering a deferred invocation.
type NewTask struct {
	Function   string          `json:"function" validate:"required,functionKey"`
	Args       json.RawMessage `json:"args"`
	WithResult bool            `json:"withResult"`
}

// Task is the response for a registered deferred invocation.
type Task struct {
	Function string     `json:"function"`
	ResultId *uuid.UUID `json:"resultId,omitempty"`
}

// NewCron is the payload for registering a periodic invocation.
type NewCron struct {
	Function string          `json:"function" validate:"required,functionKey"`
	Crontab  string          `json:"crontab" validate:"required,crontab"`
	Args     json.RawMessage `json:"args"`
}

// Cron is the response for a registered periodic invocation.
type Cron struct {
	Function string `json:"function"`
	Crontab  string `json:"crontab"`
}
