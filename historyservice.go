package main

import (
	"context"
	"errors"
	"fmt"

	"streamview/internal/store"
)

type HistoryService struct {
	history *store.HistoryRepository
}

func NewHistoryService(history *store.HistoryRepository) *HistoryService {
	return &HistoryService{history: history}
}

func (s *HistoryService) ListRecent(limit int) ([]store.RecentSource, error) {
	return s.history.List(context.Background(), limit)
}

func (s *HistoryService) DeleteRecent(id int64) error {
	err := s.history.Delete(context.Background(), id)
	if errors.Is(err, store.ErrRecentNotFound) {
		return fmt.Errorf("recent source %d does not exist", id)
	}
	return err
}

func (s *HistoryService) ClearRecent() error {
	return s.history.Clear(context.Background())
}
