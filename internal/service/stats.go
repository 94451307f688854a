package service

import (
	"context"

	"aoe-stats/internal/blob"
	"aoe-stats/internal/repository"
)

type StatsService struct {
	statsRepo *repository.StatsRepository
}

func NewStatsService(statsRepo *repository.StatsRepository) *StatsService {
	return &StatsService{statsRepo: statsRepo}
}

// Published returns the last published statistics document.
func (s *StatsService) Published(ctx context.Context) (*blob.Document, error) {
	return s.statsRepo.Document(ctx)
}
