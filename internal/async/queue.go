// Package async decouples receipt uploads from extraction: handlers enqueue
// a receipt ID and a worker pool drains the queue in the background.
package async

import (
	"context"
	"time"
)

// Job is the smallest useful unit. Extend as needed later (priority, retry
// budget, etc).
type Job struct {
	ReceiptID   string
	Force       bool // enqueue even if already queued
	SubmittedAt time.Time
	TraceID     string
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}
