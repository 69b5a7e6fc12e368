package service

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/secondarymetabolites/crispy-service/internal/domain"
	"github.com/secondarymetabolites/crispy-service/internal/queue"
)

// CreateFromAccession creates a session for a database accession and hands it
// to the worker pool for preparation.
func (s *Service) CreateFromAccession(ctx context.Context, accession string) (*domain.Session, error) {
	accession = strings.TrimSpace(accession)
	if accession == "" {
		return nil, domain.Validationf("asID is missing")
	}
	session, err := s.sessions.Create(ctx, accession, "")
	if err != nil {
		return nil, err
	}
	if err := s.queue.Submit(ctx, queue.Prepare, session.ID); err != nil {
		s.metrics.QueueFailures.Inc()
		return nil, err
	}
	s.metrics.SessionsCreated.WithLabelValues("accession").Inc()
	return session, nil
}

// CreateFromUpload creates a session for an uploaded sequence file. The file
// body is stored under uploads/<id>/<name> so the worker pool can fetch it.
func (s *Service) CreateFromUpload(ctx context.Context, filename string, body io.Reader) (*domain.Session, error) {
	name := filepath.Base(strings.TrimSpace(filename))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return nil, domain.Validationf("uploaded file needs a filename")
	}
	session, err := s.sessions.Create(ctx, "", name)
	if err != nil {
		return nil, err
	}
	key := fmt.Sprintf("uploads/%d/%s", session.ID, name)
	if err := s.blobs.Put(ctx, key, body, "text/plain"); err != nil {
		return nil, &domain.DependencyError{Op: "store upload", Err: err}
	}
	if err := s.queue.Submit(ctx, queue.Prepare, session.ID); err != nil {
		s.metrics.QueueFailures.Inc()
		return nil, err
	}
	s.metrics.SessionsCreated.WithLabelValues("file").Inc()
	return session, nil
}

// Get returns the current session record.
func (s *Service) Get(ctx context.Context, id int64) (*domain.Session, error) {
	return s.sessions.Load(ctx, id)
}

// Reset handles the client-facing state change. Only two shapes are allowed:
// restating the current state, which is a no-op, and done -> pending, which
// drops the scan result so the session can be scanned again. Everything else,
// and any state change on a derived session, is forbidden.
func (s *Service) Reset(ctx context.Context, id int64, requested domain.State) (*domain.Session, error) {
	if !requested.Valid() {
		return nil, domain.Validationf("unknown state %q", requested)
	}
	return s.sessions.Mutate(ctx, id, func(sess *domain.Session) error {
		if sess.Derived {
			return domain.Forbiddenf("session %d is derived and cannot change state", id)
		}
		if sess.State == requested {
			return nil
		}
		if sess.State == domain.StateDone && requested == domain.StatePending {
			if err := sess.Apply(domain.EventReset); err != nil {
				return err
			}
			sess.Region = nil
			sess.Error = ""
			return nil
		}
		return domain.Forbiddenf("cannot change state from %s to %s", sess.State, requested)
	})
}
