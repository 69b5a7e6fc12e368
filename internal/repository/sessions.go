// Package repository persists sessions against the keyed store.
package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/secondarymetabolites/crispy-service/internal/domain"
	"github.com/secondarymetabolites/crispy-service/internal/kvstore"
)

const counterName = "sessions"

// Sessions loads, creates and mutates Session records.
type Sessions struct {
	store kvstore.Store
}

// New creates a session repository on the given store.
func New(store kvstore.Store) *Sessions {
	return &Sessions{store: store}
}

func sessionKey(id int64) string {
	return fmt.Sprintf("session:%d", id)
}

// Create allocates an identifier and persists a fresh session in state
// preparing. Exactly one of accession or filename must identify the source
// sequence data.
func (r *Sessions) Create(ctx context.Context, accession, filename string) (*domain.Session, error) {
	if (accession == "") == (filename == "") {
		return nil, domain.Validationf("exactly one of accession or file must be given")
	}

	id, err := r.store.NextID(ctx, counterName)
	if err != nil {
		return nil, &domain.DependencyError{Op: "allocate session id", Err: err}
	}

	session := &domain.Session{
		ID:          id,
		State:       domain.StatePreparing,
		Accession:   accession,
		Filename:    filename,
		LastChanged: time.Now().UTC(),
	}

	payload, err := json.Marshal(session)
	if err != nil {
		return nil, fmt.Errorf("marshal session: %w", err)
	}

	// Write under a scratch key and rename into place so readers only ever
	// see a fully written record.
	scratch := "session:new:" + uuid.New().String()
	if err := r.store.Set(ctx, scratch, payload); err != nil {
		return nil, &domain.DependencyError{Op: "store session", Err: err}
	}
	if err := r.store.Rename(ctx, scratch, sessionKey(id)); err != nil {
		return nil, &domain.DependencyError{Op: "publish session", Err: err}
	}
	return session, nil
}

// CreateDerived allocates an identifier for the fully populated child
// session and publishes it in a single step, so readers never observe a
// half-built derived record.
func (r *Sessions) CreateDerived(ctx context.Context, child *domain.Session) (*domain.Session, error) {
	id, err := r.store.NextID(ctx, counterName)
	if err != nil {
		return nil, &domain.DependencyError{Op: "allocate session id", Err: err}
	}
	child.ID = id
	child.Derived = true
	child.LastChanged = time.Now().UTC()

	payload, err := json.Marshal(child)
	if err != nil {
		return nil, fmt.Errorf("marshal session: %w", err)
	}
	scratch := "session:new:" + uuid.New().String()
	if err := r.store.Set(ctx, scratch, payload); err != nil {
		return nil, &domain.DependencyError{Op: "store session", Err: err}
	}
	if err := r.store.Rename(ctx, scratch, sessionKey(id)); err != nil {
		return nil, &domain.DependencyError{Op: "publish session", Err: err}
	}
	return child, nil
}

// Load fetches a session by identifier. An unknown identifier is a
// NotFoundError, which callers surface as a client-visible 404.
func (r *Sessions) Load(ctx context.Context, id int64) (*domain.Session, error) {
	payload, found, err := r.store.Get(ctx, sessionKey(id))
	if err != nil {
		return nil, &domain.DependencyError{Op: "load session", Err: err}
	}
	if !found {
		return nil, &domain.NotFoundError{ID: id}
	}
	var session domain.Session
	if err := json.Unmarshal(payload, &session); err != nil {
		return nil, fmt.Errorf("unmarshal session %d: %w", id, err)
	}
	return &session, nil
}

// Save persists the session as a whole record and refreshes last_changed.
func (r *Sessions) Save(ctx context.Context, session *domain.Session) error {
	session.LastChanged = time.Now().UTC()
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := r.store.Set(ctx, sessionKey(session.ID), payload); err != nil {
		return &domain.DependencyError{Op: "store session", Err: err}
	}
	return nil
}

// Mutate runs fn on the current session record inside the store's atomic
// per-key update: concurrent mutators of the same session serialize, and a
// failing fn leaves the record untouched. The updated session is returned.
func (r *Sessions) Mutate(ctx context.Context, id int64, fn func(*domain.Session) error) (*domain.Session, error) {
	var updated *domain.Session
	var fnErr error

	err := r.store.Update(ctx, sessionKey(id), func(current []byte, found bool) ([]byte, error) {
		updated = nil
		if !found {
			fnErr = &domain.NotFoundError{ID: id}
			return nil, fnErr
		}
		var session domain.Session
		if err := json.Unmarshal(current, &session); err != nil {
			fnErr = fmt.Errorf("unmarshal session %d: %w", id, err)
			return nil, fnErr
		}
		if err := fn(&session); err != nil {
			fnErr = err
			return nil, err
		}
		session.LastChanged = time.Now().UTC()
		payload, err := json.Marshal(&session)
		if err != nil {
			fnErr = fmt.Errorf("marshal session %d: %w", id, err)
			return nil, fnErr
		}
		updated = &session
		return payload, nil
	})
	if err != nil {
		if fnErr != nil {
			return nil, fnErr
		}
		return nil, &domain.DependencyError{Op: "update session", Err: err}
	}
	return updated, nil
}
