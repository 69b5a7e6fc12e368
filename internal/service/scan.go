package service

import (
	"context"
	"errors"
	"log"

	"github.com/secondarymetabolites/crispy-service/internal/domain"
	"github.com/secondarymetabolites/crispy-service/internal/queue"
)

// errDeriveInstead aborts the scan mutation once the session turns out to
// already carry a region; the request is then served by derivation.
var errDeriveInstead = errors.New("session has a region, derive instead")

// RequestScan serves a POST against an existing session. Without a region the
// session moves pending -> scanning and a scan job is enqueued; with a region
// the requested window is cropped into a new derived session. The returned
// session is the one the response URI should point at.
func (s *Service) RequestScan(ctx context.Context, id int64, req domain.ScanRequest) (*domain.Session, error) {
	var parent *domain.Session
	var window domain.ScanWindow

	updated, err := s.sessions.Mutate(ctx, id, func(sess *domain.Session) error {
		if sess.Genome == nil {
			return domain.Validationf("genome metadata is not available yet")
		}
		w, err := req.Validate(sess.Genome.Length)
		if err != nil {
			return err
		}
		window = w
		if sess.HasRegion() {
			parent = sess
			return errDeriveInstead
		}
		if err := sess.Apply(domain.EventScanQueued); err != nil {
			return err
		}
		sess.FromCoord = w.From
		sess.ToCoord = w.To
		sess.BestSize = w.BestSize
		sess.BestOffset = w.BestOffset
		if w.FullSizeSet {
			sess.FullSize = w.FullSize
		}
		return nil
	})
	if errors.Is(err, errDeriveInstead) {
		return s.derive(ctx, parent, window)
	}
	if err != nil {
		return nil, err
	}

	if err := s.queue.Submit(ctx, queue.Scan, id); err != nil {
		s.metrics.QueueFailures.Inc()
		// The hand-off failed after the state change committed. Put the
		// session back to pending so the client can retry.
		if _, rbErr := s.sessions.Mutate(ctx, id, func(sess *domain.Session) error {
			if sess.State == domain.StateScanning {
				sess.State = domain.StatePending
			}
			return nil
		}); rbErr != nil {
			log.Printf("ERROR: rolling back session %d after queue failure: %v", id, rbErr)
		}
		return nil, err
	}
	s.metrics.ScansEnqueued.Inc()
	return updated, nil
}

// derive crops the requested window out of the parent's region into a new
// read-only session. The parent is never modified. relFrom/relTo arrived
// relative to the parent region origin and were already bounds-checked
// against the genome; the subrange check below pins them inside the parent's
// own window.
func (s *Service) derive(ctx context.Context, parent *domain.Session, w domain.ScanWindow) (*domain.Session, error) {
	if err := domain.ValidateSubrange(parent, w.From, w.To); err != nil {
		return nil, err
	}

	child := &domain.Session{
		State:      domain.StateDone,
		Accession:  parent.Accession,
		Filename:   parent.Filename,
		Genome:     parent.Genome,
		Region:     domain.CropRegion(parent.Region, w.From, w.To, w.Name),
		FromCoord:  parent.FromCoord + w.From,
		ToCoord:    parent.FromCoord + w.To,
		BestSize:   parent.BestSize,
		BestOffset: parent.BestOffset,
		FullSize:   parent.FullSize,
	}
	if w.BestSizeSet {
		child.BestSize = w.BestSize
	}
	if w.BestOffsetSet {
		child.BestOffset = w.BestOffset
	}
	if w.FullSizeSet {
		child.FullSize = w.FullSize
	}

	child, err := s.sessions.CreateDerived(ctx, child)
	if err != nil {
		return nil, err
	}
	s.metrics.Derivations.Inc()
	return child, nil
}
