// Package service implements the session lifecycle behind the HTTP layer.
package service

import (
	"github.com/secondarymetabolites/crispy-service/internal/blob"
	"github.com/secondarymetabolites/crispy-service/internal/metrics"
	"github.com/secondarymetabolites/crispy-service/internal/queue"
	"github.com/secondarymetabolites/crispy-service/internal/repository"
)

// Service coordinates the session repository, the work queues and the blob
// store. It keeps no session state of its own: the store is the single
// source of truth and every operation re-reads it.
type Service struct {
	sessions    *repository.Sessions
	queue       *queue.Queue
	blobs       blob.Store
	metrics     *metrics.Metrics
	newsFeedURL string
}

func New(sessions *repository.Sessions, q *queue.Queue, blobs blob.Store, m *metrics.Metrics, newsFeedURL string) *Service {
	return &Service{
		sessions:    sessions,
		queue:       q,
		blobs:       blobs,
		metrics:     m,
		newsFeedURL: newsFeedURL,
	}
}
