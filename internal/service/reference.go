package service

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"kasirinaja/backoffice/internal/domain"
)

const (
	ReferenceBranches = "branches"
	ReferenceBarbers  = "barbers"
	ReferenceServices = "services"
	ReferencePayables = "payables"
)

var referencePaths = map[string]string{
	ReferenceBranches: "/branches",
	ReferenceBarbers:  "/barbers",
	ReferenceServices: "/setup/services",
	ReferencePayables: "/payables",
}

// ReferenceList reads one of the setup lists used to fill form selects.
// Locally only barbers can be reconstructed, from the names on cached sales.
func (s *Service) ReferenceList(ctx context.Context, kind string) (domain.Sourced[[]domain.ReferenceItem], error) {
	path, ok := referencePaths[kind]
	if !ok {
		return domain.Sourced[[]domain.ReferenceItem]{}, fmt.Errorf("%w: unknown reference list %q", ErrInvalidInput, kind)
	}
	return withFallback(ctx, s, kind,
		func(ctx context.Context) ([]domain.ReferenceItem, error) {
			var items []domain.ReferenceItem
			if err := s.api.GetWithSetupFallback(ctx, path, nil, &items); err != nil {
				return nil, err
			}
			if items == nil {
				items = []domain.ReferenceItem{}
			}
			return items, nil
		},
		func(ctx context.Context) ([]domain.ReferenceItem, error) {
			if kind != ReferenceBarbers {
				return []domain.ReferenceItem{}, nil
			}
			return s.localBarbers(ctx)
		},
	)
}

func (s *Service) localBarbers(ctx context.Context) ([]domain.ReferenceItem, error) {
	sales, err := s.local.Sales.List(ctx, nil)
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	var names []string
	for _, sale := range sales {
		for _, item := range sale.Items {
			name := strings.TrimSpace(item.Barber)
			if name == "" || seen[name] {
				continue
			}
			seen[name] = true
			names = append(names, name)
		}
	}
	sort.Strings(names)
	items := make([]domain.ReferenceItem, 0, len(names))
	for _, name := range names {
		items = append(items, domain.ReferenceItem{"id": name, "name": name})
	}
	return items, nil
}

// SystemLogs lists the backend's system log, or the changes this gateway
// applied locally while the backend was unreachable. Newest first.
func (s *Service) SystemLogs(ctx context.Context, level string, limit int) (domain.Sourced[[]domain.SystemLog], error) {
	level = strings.ToLower(strings.TrimSpace(level))
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return withFallback(ctx, s, "system_logs",
		func(ctx context.Context) ([]domain.SystemLog, error) {
			query := url.Values{}
			query.Set("limit", strconv.Itoa(limit))
			if level != "" {
				query.Set("level", level)
			}
			var logs []domain.SystemLog
			if err := s.api.Get(ctx, "/logs/system", query, &logs); err != nil {
				return nil, err
			}
			if logs == nil {
				logs = []domain.SystemLog{}
			}
			return logs, nil
		},
		func(ctx context.Context) ([]domain.SystemLog, error) {
			logs, err := s.local.SystemLogs.List(ctx, func(entry domain.SystemLog) bool {
				return level == "" || strings.EqualFold(entry.Level, level)
			})
			if err != nil {
				return nil, err
			}
			sort.SliceStable(logs, func(i, j int) bool {
				return logs[i].CreatedAt.After(logs[j].CreatedAt.Time)
			})
			if len(logs) > limit {
				logs = logs[:limit]
			}
			return logs, nil
		},
	)
}
