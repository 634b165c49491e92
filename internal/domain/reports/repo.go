package reports

import (
	"context"
	"time"
)

type Repository interface {
	ProfitReorder(ctx context.Context) ([]ProfitReorderRow, error)
	TopSelling(ctx context.Context, limit int) ([]TopSellingRow, error)
	DailyCollection(ctx context.Context, start, end time.Time) ([]DailyCollectionRow, error)
}
