package models

import (
	"sync"
	"time"
)

// ExtractRequest is the payload for POST /api/v1/extract.
type ExtractRequest struct {
	// URL is the product page to analyse. Required.
	URL string `json:"url" binding:"required,url"`

	// NoCache bypasses the short-lived response cache.
	NoCache bool `json:"no_cache,omitempty"`

	// Timeout is the max duration in seconds for the extraction.
	// Default: 30. Max: 120.
	Timeout int `json:"timeout,omitempty" binding:"omitempty,min=1,max=120"`
}

// Defaults applies default values to unset fields.
func (r *ExtractRequest) Defaults() {
	if r.Timeout == 0 {
		r.Timeout = 30
	}
}

// ExtractResponse is the response for POST /api/v1/extract.
type ExtractResponse struct {
	// Success is false only for malformed requests; the pipeline itself
	// always yields a product.
	Success bool `json:"success"`

	// Product is the extracted (or synthesized) record.
	Product *ProductRecord `json:"product,omitempty"`

	// CacheStatus indicates whether the response was served from cache.
	// Values: "hit" or "miss".
	CacheStatus string `json:"cache_status,omitempty"`

	// Timing provides duration breakdowns for the operation.
	Timing TimingInfo `json:"timing"`

	// Error is populated only when Success is false.
	Error *ErrorDetail `json:"error,omitempty"`
}

// TimingInfo provides duration breakdowns for an extraction.
type TimingInfo struct {
	TotalMs int64 `json:"total_ms"`
}

// BatchRequest is the payload for POST /api/v1/batch.
type BatchRequest struct {
	// URLs is the list of product pages to analyse. Required.
	URLs []string `json:"urls" binding:"required,min=1,max=20"`

	// WebhookURL, if set, receives a signed event when the batch finishes.
	WebhookURL string `json:"webhook_url,omitempty" binding:"omitempty,url"`
}

// BatchResponse is the immediate response for POST /api/v1/batch.
type BatchResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Total  int    `json:"total"`
}

// BatchStatusResponse is the response for GET /api/v1/batch/:id.
type BatchStatusResponse struct {
	ID        string           `json:"id"`
	Status    string           `json:"status"`
	Completed int              `json:"completed"`
	Total     int              `json:"total"`
	Results   []*ProductRecord `json:"results,omitempty"`
}

// BatchJob tracks an in-progress batch extraction. Workers record
// results while status polls read them, so all access goes through the
// job's mutex.
type BatchJob struct {
	ID         string
	WebhookURL string
	CreatedAt  int64 // unix timestamp

	mu        sync.Mutex
	status    string // "processing", "completed"
	total     int
	completed int
	results   []*ProductRecord
}

// NewBatchJob creates a processing job sized for n URLs.
func NewBatchJob(id string, n int, webhookURL string) *BatchJob {
	return &BatchJob{
		ID:         id,
		WebhookURL: webhookURL,
		CreatedAt:  time.Now().Unix(),
		status:     "processing",
		total:      n,
		results:    make([]*ProductRecord, n),
	}
}

// RecordResult stores one URL's record and bumps the completion count.
func (j *BatchJob) RecordResult(idx int, rec *ProductRecord) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.results[idx] = rec
	j.completed++
}

// Finish marks the job completed.
func (j *BatchJob) Finish() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.status = "completed"
}

// Snapshot returns a consistent view of the job for status responses.
func (j *BatchJob) Snapshot() BatchStatusResponse {
	j.mu.Lock()
	defer j.mu.Unlock()
	results := make([]*ProductRecord, len(j.results))
	copy(results, j.results)
	return BatchStatusResponse{
		ID:        j.ID,
		Status:    j.status,
		Completed: j.completed,
		Total:     j.total,
		Results:   results,
	}
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status  string `json:"status"`
	Uptime  string `json:"uptime"`
	Version string `json:"version"`
}
