package infrastructure

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"gaexport/internal/domain"
	"gaexport/pkg/logger"
)

const defaultRunListLimit = 100

// implements domain.RunRepository in memory
type RunRepository struct {
	data   map[string]domain.ExportRun
	mutex  sync.RWMutex
	logger *logger.Logger
}

// creates a new run repository
func NewRunRepository(logger *logger.Logger) *RunRepository {
	return &RunRepository{
		data:   make(map[string]domain.ExportRun),
		logger: logger,
	}
}

// Store inserts or replaces the run with the same id.
func (r *RunRepository) Store(ctx context.Context, run domain.ExportRun) error {
	if run.ID == "" {
		return fmt.Errorf("export run has no id")
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.data[run.ID] = run

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"run_id": run.ID,
		"status": run.Status,
	}).Debug("Stored export run")
	return nil
}

func (r *RunRepository) GetByID(ctx context.Context, id string) (*domain.ExportRun, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	run, exists := r.data[id]
	if !exists {
		return nil, fmt.Errorf("%w: %s", domain.ErrRunNotFound, id)
	}
	return &run, nil
}

// GetByFilter returns matching runs, newest first.
func (r *RunRepository) GetByFilter(ctx context.Context, filter domain.ExportRunFilter) (*domain.ExportRunList, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	filtered := make([]domain.ExportRun, 0, len(r.data))
	for _, run := range r.data {
		if matchesRunFilter(run, filter) {
			filtered = append(filtered, run)
		}
	}

	sort.Slice(filtered, func(i, j int) bool {
		if filtered[i].StartedAt.Equal(filtered[j].StartedAt) {
			return filtered[i].ID < filtered[j].ID
		}
		return filtered[i].StartedAt.After(filtered[j].StartedAt)
	})

	// Apply pagination
	limit := defaultRunListLimit
	offset := 0

	if filter.Limit > 0 {
		limit = filter.Limit
	}
	if filter.Offset > 0 {
		offset = filter.Offset
	}

	total := len(filtered)
	start := min(offset, total)
	end := min(offset+limit, total)

	page := []domain.ExportRun{}
	if start < end {
		page = filtered[start:end]
	}

	hasMore := end < total

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"count":    len(page),
		"total":    total,
		"limit":    limit,
		"offset":   offset,
		"has_more": hasMore,
	}).Debug("Listed export runs")

	return &domain.ExportRunList{
		Data:    page,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: hasMore,
	}, nil
}

func matchesRunFilter(run domain.ExportRun, filter domain.ExportRunFilter) bool {
	if filter.ViewID != "" && run.ViewID != filter.ViewID {
		return false
	}
	if filter.Status != "" && run.Status != filter.Status {
		return false
	}
	return true
}
