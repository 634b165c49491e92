package reports

import (
	"context"
	"errors"
	"time"
)

// ErrInvalidRange is returned when a report range is empty or inverted.
var ErrInvalidRange = errors.New("start must be before end")

const (
	defaultTopSellingLimit = 10
	maxTopSellingLimit     = 100
)

type Service struct {
	reports Repository
}

func NewService(reports Repository) *Service {
	return &Service{reports: reports}
}

func (s *Service) ProfitReorder(ctx context.Context) ([]ProfitReorderRow, error) {
	return s.reports.ProfitReorder(ctx)
}

func (s *Service) TopSelling(ctx context.Context, limit int) ([]TopSellingRow, error) {
	if limit <= 0 {
		limit = defaultTopSellingLimit
	}
	if limit > maxTopSellingLimit {
		limit = maxTopSellingLimit
	}
	return s.reports.TopSelling(ctx, limit)
}

// DailyCollection defaults to the trailing 30 days when no range is given.
func (s *Service) DailyCollection(ctx context.Context, start, end time.Time) ([]DailyCollectionRow, error) {
	if end.IsZero() {
		end = time.Now().UTC().Truncate(24 * time.Hour).Add(24 * time.Hour)
	}
	if start.IsZero() {
		start = end.AddDate(0, 0, -30)
	}
	if !start.Before(end) {
		return nil, ErrInvalidRange
	}
	return s.reports.DailyCollection(ctx, start, end)
}
