package jobqueue

import (
	"encoding/json"
	"time"
)

// JobType defines the type of job
type JobType string

const (
	JobTypeFinalizePurchase JobType = "finalize_purchase"
)

// JobStatus defines the status of a job
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusRetrying   JobStatus = "retrying"
)

// Job represents a background job
type Job struct {
	ID          string                 `json:"id"`
	Type        JobType                `json:"type"`
	Status      JobStatus              `json:"status"`
	Payload     map[string]interface{} `json:"payload"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
	ProcessedAt *time.Time             `json:"processed_at,omitempty"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
	ErrorMsg    string                 `json:"error_msg,omitempty"`
	RetryCount  int                    `json:"retry_count"`
	MaxRetries  int                    `json:"max_retries"`
}

// FinalizePurchaseJobPayload contains the payload for deferred purchase
// finalization. Jobs are enqueued when the synchronous finalize path gives
// up so a stored payment event still converts into a grant eventually.
type FinalizePurchaseJobPayload struct {
	PaymentEventID uint    `json:"payment_event_id"`
	TransactionID  string  `json:"transaction_id"`
	UserID         uint    `json:"user_id"`
	QuestionSetID  uint    `json:"question_set_id"`
	Amount         float64 `json:"amount"`
}

// ToMap converts the payload to a map for storage
func (p FinalizePurchaseJobPayload) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"payment_event_id": p.PaymentEventID,
		"transaction_id":   p.TransactionID,
		"user_id":          p.UserID,
		"question_set_id":  p.QuestionSetID,
		"amount":           p.Amount,
	}
}

// FinalizePurchaseJobPayloadFromMap creates a payload from a map
func FinalizePurchaseJobPayloadFromMap(data map[string]interface{}) (*FinalizePurchaseJobPayload, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	var payload FinalizePurchaseJobPayload
	err = json.Unmarshal(jsonData, &payload)
	return &payload, err
}

// IsRetryable checks if the job can be retried
func (j *Job) IsRetryable() bool {
	return j.Status == JobStatusFailed && j.RetryCount < j.MaxRetries
}

// MarkAsProcessing updates the job status to processing
func (j *Job) MarkAsProcessing() {
	now := time.Now()
	j.Status = JobStatusProcessing
	j.UpdatedAt = now
	j.ProcessedAt = &now
}

// MarkAsCompleted updates the job status to completed
func (j *Job) MarkAsCompleted() {
	now := time.Now()
	j.Status = JobStatusCompleted
	j.UpdatedAt = now
	j.CompletedAt = &now
	j.ErrorMsg = ""
}

// MarkAsFailed updates the job status to failed
func (j *Job) MarkAsFailed(errorMsg string) {
	j.Status = JobStatusFailed
	j.UpdatedAt = time.Now()
	j.ErrorMsg = errorMsg
	j.RetryCount++
}

// MarkAsRetrying updates the job status to retrying
func (j *Job) MarkAsRetrying() {
	j.Status = JobStatusRetrying
	j.UpdatedAt = time.Now()
}
