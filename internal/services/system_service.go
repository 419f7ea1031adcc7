package services

import (
	"context"
	"errors"
	"time"

	"github.com/auric-jewels/api/internal/repositories"
)

// SystemServiceDeps bundles collaborators required to construct a system service.
type SystemServiceDeps struct {
	HealthRepository repositories.HealthRepository
	Clock            func() time.Time
}

type systemService struct {
	healthRepo repositories.HealthRepository
	now        func() time.Time
}

var _ SystemService = (*systemService)(nil)

// NewSystemService assembles the health reporting service.
func NewSystemService(deps SystemServiceDeps) (SystemService, error) {
	if deps.HealthRepository == nil {
		return nil, errors.New("system service: health repository is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	return &systemService{
		healthRepo: deps.HealthRepository,
		now: func() time.Time {
			return clock().UTC()
		},
	}, nil
}

// Health collects the dependency probes into a single report.
func (s *systemService) Health(ctx context.Context) (repositories.HealthReport, error) {
	report, err := s.healthRepo.Collect(ctx)
	if err != nil {
		return repositories.HealthReport{}, err
	}
	if report.CheckedAt.IsZero() {
		report.CheckedAt = s.now()
	}
	return report, nil
}
