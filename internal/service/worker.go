package service

import (
	"context"

	"github.com/secondarymetabolites/crispy-service/internal/domain"
	"github.com/secondarymetabolites/crispy-service/internal/queue"
)

// ReserveJob pops the oldest entry from the named queue for a worker. A nil
// entry means the queue is empty.
func (s *Service) ReserveJob(ctx context.Context, name string) (*queue.Entry, error) {
	if name != queue.Prepare && name != queue.Scan {
		return nil, domain.Validationf("unknown queue %q", name)
	}
	return s.queue.Reserve(ctx, name)
}

// ReportGenome records the genome metadata a worker extracted during
// preparation and moves the session preparing -> pending.
func (s *Service) ReportGenome(ctx context.Context, id int64, genome *domain.Genome) (*domain.Session, error) {
	if genome == nil || genome.Length <= 0 {
		return nil, domain.Validationf("genome metadata requires a positive length")
	}
	return s.sessions.Mutate(ctx, id, func(sess *domain.Session) error {
		if err := sess.Apply(domain.EventMetadataReady); err != nil {
			return err
		}
		sess.Genome = genome
		return nil
	})
}

// ReportRegion records a finished scan result and moves the session
// scanning -> done.
func (s *Service) ReportRegion(ctx context.Context, id int64, region *domain.Region) (*domain.Session, error) {
	if region == nil {
		return nil, domain.Validationf("region payload is missing")
	}
	if region.Grnas == nil {
		region.Grnas = map[string]domain.Grna{}
	}
	return s.sessions.Mutate(ctx, id, func(sess *domain.Session) error {
		if err := sess.Apply(domain.EventScanCompleted); err != nil {
			return err
		}
		sess.Region = region
		sess.Error = ""
		return nil
	})
}

// ReportFailure records a worker-side scan failure and moves the session
// scanning -> error.
func (s *Service) ReportFailure(ctx context.Context, id int64, message string) (*domain.Session, error) {
	if message == "" {
		message = "scan failed"
	}
	return s.sessions.Mutate(ctx, id, func(sess *domain.Session) error {
		if err := sess.Apply(domain.EventScanFailed); err != nil {
			return err
		}
		sess.Error = message
		return nil
	})
}
