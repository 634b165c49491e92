package audit

import "context"

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, tableName string, limit, offset int) ([]*Entry, int, error) {
	return s.repo.List(ctx, tableName, limit, offset)
}
