// Package queue implements the named work queues that hand sessions to the
// scanning worker pool.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/secondarymetabolites/crispy-service/internal/domain"
	"github.com/secondarymetabolites/crispy-service/internal/kvstore"
)

// Queue names used by the service.
const (
	Prepare = "prepare"
	Scan    = "scan"
)

// Entry is one queued unit of work: a session reference plus bookkeeping.
type Entry struct {
	SessionID   int64     `json:"session_id"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// Queue is a set of named, ordered channels kept in the persistent store.
// Reserve pops destructively, so each entry reaches exactly one worker and a
// worker crash after reservation drops the job; a stuck session stays in
// scanning until resubmitted. Submission is fire-and-forget: the worker pool
// reports results by mutating session state, never through the queue.
type Queue struct {
	store kvstore.Store
}

// New creates a queue on the given store.
func New(store kvstore.Store) *Queue {
	return &Queue{store: store}
}

func queueKey(name string) string {
	return "queue:" + name
}

// Submit appends a session reference to the named queue. An unreachable
// store surfaces as a DependencyError, distinct from any validation failure.
func (q *Queue) Submit(ctx context.Context, name string, sessionID int64) error {
	entry := Entry{
		SessionID:   sessionID,
		SubmittedAt: time.Now().UTC(),
	}
	err := q.store.Update(ctx, queueKey(name), func(current []byte, found bool) ([]byte, error) {
		var entries []Entry
		if found {
			if err := json.Unmarshal(current, &entries); err != nil {
				return nil, fmt.Errorf("corrupt queue %s: %w", name, err)
			}
		}
		entries = append(entries, entry)
		return json.Marshal(entries)
	})
	if err != nil {
		return &domain.DependencyError{Op: "submit to queue " + name, Err: err}
	}
	return nil
}

// Reserve pops the oldest entry off the named queue, delivering it to
// exactly one caller. It returns nil when the queue is empty.
func (q *Queue) Reserve(ctx context.Context, name string) (*Entry, error) {
	var head *Entry
	err := q.store.Update(ctx, queueKey(name), func(current []byte, found bool) ([]byte, error) {
		head = nil
		var entries []Entry
		if found {
			if err := json.Unmarshal(current, &entries); err != nil {
				return nil, fmt.Errorf("corrupt queue %s: %w", name, err)
			}
		}
		if len(entries) == 0 {
			return json.Marshal(entries)
		}
		head = &entries[0]
		return json.Marshal(entries[1:])
	})
	if err != nil {
		return nil, &domain.DependencyError{Op: "reserve from queue " + name, Err: err}
	}
	return head, nil
}

// Len reports how many entries are waiting in the named queue.
func (q *Queue) Len(ctx context.Context, name string) (int, error) {
	payload, found, err := q.store.Get(ctx, queueKey(name))
	if err != nil {
		return 0, &domain.DependencyError{Op: "inspect queue " + name, Err: err}
	}
	if !found {
		return 0, nil
	}
	var entries []Entry
	if err := json.Unmarshal(payload, &entries); err != nil {
		return 0, fmt.Errorf("corrupt queue %s: %w", name, err)
	}
	return len(entries), nil
}
