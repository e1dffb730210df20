package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"kasirinaja/backoffice/internal/apiclient"
	"kasirinaja/backoffice/internal/cache"
	"kasirinaja/backoffice/internal/domain"
	"kasirinaja/backoffice/internal/localstore"
	"kasirinaja/backoffice/internal/metrics"
	"kasirinaja/backoffice/internal/report"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Options struct {
	Reports        report.Config
	Location       *time.Location
	ReportCacheTTL time.Duration
	Now            func() time.Time
}

// Service runs every back-office operation against the tenant API first and
// against the local cache when the API cannot answer.
type Service struct {
	api     *apiclient.Client
	local   *localstore.Repositories
	reports cache.ReportCache
	metrics *metrics.Metrics
	opts    Options
}

func New(api *apiclient.Client, local *localstore.Repositories, reportCache cache.ReportCache, m *metrics.Metrics, opts Options) *Service {
	if reportCache == nil {
		reportCache = cache.NoopReportCache{}
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Reports.TopItems <= 0 {
		opts.Reports.TopItems = report.DefaultConfig().TopItems
	}

	return &Service{
		api:     api,
		local:   local,
		reports: reportCache,
		metrics: m,
		opts:    opts,
	}
}

func (s *Service) now() time.Time {
	return s.opts.Now().In(s.opts.Location)
}

// ParseRange reads YYYY-MM-DD bounds in the configured time zone.
func (s *Service) ParseRange(from string, to string) (report.DateRange, error) {
	rng, err := report.ParseDateRange(from, to, s.opts.Location, s.now())
	if err != nil {
		return report.DateRange{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return rng, nil
}

// apiContext forwards the caller's bearer token to the tenant API.
func apiContext(ctx context.Context) context.Context {
	if actor, ok := ActorFromContext(ctx); ok && actor.Token != "" {
		return apiclient.WithToken(ctx, actor.Token)
	}
	return ctx
}

// withFallback runs primary against the API and, when the API fails in a
// way that warrants it, runs local instead. The result records which path
// produced it.
func withFallback[T any](ctx context.Context, s *Service, resource string, primary func(context.Context) (T, error), local func(context.Context) (T, error)) (domain.Sourced[T], error) {
	data, err := primary(apiContext(ctx))
	if err == nil {
		return domain.Sourced[T]{Data: data, Source: domain.SourceAPI}, nil
	}
	if !apiclient.IsFallbackable(err) {
		return domain.Sourced[T]{}, translate(err)
	}

	log.Printf("[service] WARN: %s: tenant api failed, serving local data: %v", resource, err)
	s.metrics.Fallback(resource)

	data, localErr := local(ctx)
	if localErr != nil {
		return domain.Sourced[T]{}, translate(localErr)
	}
	return domain.Sourced[T]{Data: data, Source: domain.SourceLocal, FallbackReason: apiclient.Reason(err)}, nil
}

// apiOnly is for backend-owned resources with no local copy.
func apiOnly[T any](ctx context.Context, primary func(context.Context) (T, error)) (domain.Sourced[T], error) {
	data, err := primary(apiContext(ctx))
	if err != nil {
		return domain.Sourced[T]{}, translate(err)
	}
	return domain.Sourced[T]{Data: data, Source: domain.SourceAPI}, nil
}

// translate maps API and local-store errors onto the service sentinels.
func translate(err error) error {
	if err == nil {
		return nil
	}
	var statusErr *apiclient.StatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.NotFound():
			return fmt.Errorf("%w: %s", ErrNotFound, statusErr.Path)
		case statusErr.Rejected():
			return fmt.Errorf("%w: %s", ErrInvalidInput, upstreamMessage(statusErr.Body))
		case statusErr.StatusCode == 401 || statusErr.StatusCode == 403:
			return fmt.Errorf("%w: %s", ErrForbidden, statusErr.Path)
		}
	}
	if errors.Is(err, localstore.ErrNotFound) || errors.Is(err, localstore.ErrNoData) {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return err
}

func upstreamMessage(body string) string {
	body = strings.TrimSpace(body)
	if body == "" {
		return "rejected by tenant api"
	}
	return body
}

func (s *Service) requireRole(ctx context.Context, roles ...domain.Role) error {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return fmt.Errorf("%w: no actor", ErrForbidden)
	}
	for _, role := range roles {
		if actor.Role == role {
			return nil
		}
	}
	return fmt.Errorf("%w: role %s may not do this", ErrForbidden, actor.Role)
}

// logLocal records a change applied only to the local cache so the system
// log shows what still has to reach the backend.
func (s *Service) logLocal(ctx context.Context, action string, entity string, id domain.ID, detail string) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		actor = domain.Actor{Username: "system"}
	}
	entry := domain.SystemLog{
		Level:   "warning",
		Message: fmt.Sprintf("%s %s applied locally", action, entity),
		Context: map[string]any{
			"entity_id": id.String(),
			"actor":     actor.Username,
			"detail":    detail,
		},
	}
	if _, err := s.local.SystemLogs.Create(ctx, entry); err != nil {
		log.Printf("[service] WARN: failed to record local change %s %s/%s: %v", action, entity, id, err)
	}
}

// writeThrough refreshes a local collection after a successful API read.
func writeThrough[T any, P localstore.Record[T]](ctx context.Context, c *localstore.Collection[T, P], items []T) {
	if err := c.Merge(ctx, items); err != nil {
		log.Printf("[service] WARN: write-through to %s failed: %v", c.Key(), err)
	}
}

// forget drops a record the API has deleted from the local copy.
func forget[T any, P localstore.Record[T]](ctx context.Context, c *localstore.Collection[T, P], id domain.ID) {
	if err := c.Delete(ctx, id); err != nil && !errors.Is(err, localstore.ErrNotFound) {
		log.Printf("[service] WARN: local delete %s/%s failed: %v", c.Key(), id, err)
	}
}

func defaultString(value string, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
