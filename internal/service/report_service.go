package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/smartcampus/campus-booking-api/internal/models"
	appErrors "github.com/smartcampus/campus-booking-api/pkg/errors"
)

const usageReportCacheKey = "reports:usage"

type reportRepository interface {
	StatusCounts(ctx context.Context) ([]models.BookingStatusCount, error)
	RoomUsage(ctx context.Context) ([]models.RoomUsage, error)
	PeakHours(ctx context.Context) ([]models.PeakHour, error)
	Underutilized(ctx context.Context, minimum int) ([]models.RoomUsage, error)
}

// ReportService assembles usage statistics across bookings and classrooms.
// Reports are read-heavy and tolerant of slight staleness, so assembled
// results sit behind the cache for a configurable TTL.
type ReportService struct {
	repo                 reportRepository
	cache                *CacheService
	cacheTTL             time.Duration
	underutilizedMinimum int
	logger               *zap.Logger
}

// NewReportService instantiates ReportService. cache may be nil.
func NewReportService(repo reportRepository, cache *CacheService, cacheTTL time.Duration, underutilizedMinimum int, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if underutilizedMinimum <= 0 {
		underutilizedMinimum = 2
	}
	return &ReportService{
		repo:                 repo,
		cache:                cache,
		cacheTTL:             cacheTTL,
		underutilizedMinimum: underutilizedMinimum,
		logger:               logger,
	}
}

// Usage returns the full usage report, served from cache when possible.
func (s *ReportService) Usage(ctx context.Context) (*models.UsageReport, error) {
	if s.cache.Enabled() {
		var cached models.UsageReport
		hit, err := s.cache.Get(ctx, usageReportCacheKey, &cached)
		if err == nil && hit {
			return &cached, nil
		}
	}

	report, err := s.assemble(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache.Enabled() {
		if err := s.cache.Set(ctx, usageReportCacheKey, report, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache usage report", zap.Error(err))
		}
	}
	return report, nil
}

// Invalidate drops the cached report so the next read rebuilds it from the
// database. Readers otherwise tolerate staleness up to the cache TTL.
func (s *ReportService) Invalidate(ctx context.Context) {
	if !s.cache.Enabled() {
		return
	}
	if err := s.cache.Invalidate(ctx, usageReportCacheKey); err != nil {
		s.logger.Warn("failed to invalidate usage report cache", zap.Error(err))
	}
}

func (s *ReportService) assemble(ctx context.Context) (*models.UsageReport, error) {
	statusCounts, err := s.repo.StatusCounts(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate booking statuses")
	}
	roomUsage, err := s.repo.RoomUsage(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate room usage")
	}
	peakHours, err := s.repo.PeakHours(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate peak hours")
	}
	underutilized, err := s.repo.Underutilized(ctx, s.underutilizedMinimum)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to find underutilized rooms")
	}

	return &models.UsageReport{
		StatusCounts:  statusCounts,
		RoomUsage:     roomUsage,
		PeakHours:     peakHours,
		Underutilized: underutilized,
	}, nil
}
