package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"kasirinaja/backoffice/internal/apiclient"
	"kasirinaja/backoffice/internal/cache"
	"kasirinaja/backoffice/internal/config"
	"kasirinaja/backoffice/internal/domain"
	"kasirinaja/backoffice/internal/httpapi"
	"kasirinaja/backoffice/internal/localstore"
	"kasirinaja/backoffice/internal/localstore/file"
	"kasirinaja/backoffice/internal/localstore/memory"
	pgstore "kasirinaja/backoffice/internal/localstore/postgres"
	"kasirinaja/backoffice/internal/localstore/redisstore"
	"kasirinaja/backoffice/internal/metrics"
	"kasirinaja/backoffice/internal/report"
	"kasirinaja/backoffice/internal/service"
)

func main() {
	config.LoadDotEnv()
	cfg := config.Load()
	if err := validateSecurityConfig(cfg); err != nil {
		log.Fatalf("invalid security configuration: %v", err)
	}
	domain.Location = cfg.Location()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	closers := make([]func() error, 0, 3)

	store, closeStore, err := openLocalStore(ctx, cfg)
	if err != nil {
		log.Fatalf("local store unavailable: %v", err)
	}
	if closeStore != nil {
		closers = append(closers, closeStore)
	}

	reportCache := cache.ReportCache(cache.NoopReportCache{})
	switch {
	case cfg.ReportCacheTTLSeconds == 0:
		log.Println("report cache: disabled")
	case cfg.RedisAddr != "":
		redisCache := cache.NewRedisReportCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := redisCache.Ping(ctx); err != nil {
			log.Printf("redis unavailable (%v), using in-memory report cache", err)
			reportCache = cache.NewMemoryReportCache()
		} else {
			reportCache = redisCache
			closers = append(closers, redisCache.Close)
			log.Println("report cache: redis")
		}
	default:
		reportCache = cache.NewMemoryReportCache()
		log.Println("report cache: in-memory")
	}

	var m *metrics.Metrics
	client := apiclient.New(apiclient.Config{
		BaseURL:    cfg.APIBaseURL,
		Token:      cfg.APIToken,
		TenantSlug: cfg.TenantSlug,
		TenantID:   cfg.TenantID,
		Timeout:    cfg.APITimeout(),
	})
	if cfg.MetricsEnabled {
		m = metrics.New()
		client = client.WithObserver(m)
	}

	svc := service.New(client, localstore.NewRepositories(store), reportCache, m, service.Options{
		Reports: report.Config{
			TaxRatio:           cfg.PLTaxRatio,
			COGSRatio:          cfg.PLCOGSRatio,
			PPNRate:            cfg.PPNRate,
			InputTaxCategories: cfg.InputTaxCategories,
			LowStockThreshold:  cfg.LowStockThreshold,
			TopItems:           report.DefaultConfig().TopItems,
		},
		Location:       domain.Location,
		ReportCacheTTL: cfg.ReportCacheTTL(),
	})
	if err := svc.EnsureSeedUsers(ctx, cfg.SeedAdminPassword, cfg.SeedCashierPassword); err != nil {
		log.Fatalf("seed local users: %v", err)
	}

	auth := httpapi.NewAuthManager(cfg.AuthSecret, cfg.AccessTokenTTL())
	api := httpapi.New(svc, auth, m, cfg.AllowedOrigin)

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.APITimeout() + 20*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("back-office gateway listening on %s (tenant api %s)", cfg.Address(), cfg.APIBaseURL)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}

	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			log.Printf("close error: %v", err)
		}
	}

	log.Println("server stopped")
}

// openLocalStore selects the LOCAL_STORE backend. The returned close func
// may be nil.
func openLocalStore(ctx context.Context, cfg config.Config) (localstore.Store, func() error, error) {
	switch cfg.LocalStore {
	case config.StoreMemory:
		log.Println("local store: in-memory")
		return memory.New(), nil, nil
	case config.StoreRedis:
		if cfg.RedisAddr == "" {
			return nil, nil, fmt.Errorf("LOCAL_STORE=redis requires REDIS_ADDR")
		}
		rs := redisstore.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if cfg.TenantSlug != "" {
			rs = rs.WithPrefix("kasirinaja:local:" + cfg.TenantSlug + ":")
		}
		if err := rs.Ping(ctx); err != nil {
			return nil, nil, fmt.Errorf("redis: %w", err)
		}
		log.Println("local store: redis")
		return rs, rs.Close, nil
	case config.StorePostgres:
		if cfg.DatabaseURL == "" {
			return nil, nil, fmt.Errorf("LOCAL_STORE=postgres requires DATABASE_URL")
		}
		pg, err := pgstore.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("postgres: %w", err)
		}
		log.Println("local store: postgres")
		return pg, pg.Close, nil
	case config.StoreFile, "":
		fs, err := file.New(cfg.LocalStoreDir)
		if err != nil {
			return nil, nil, err
		}
		log.Printf("local store: files in %s", cfg.LocalStoreDir)
		return fs, nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown LOCAL_STORE %q", cfg.LocalStore)
	}
}

func validateSecurityConfig(cfg config.Config) error {
	if len(cfg.AuthSecret) < 32 {
		return fmt.Errorf("AUTH_SECRET must be set and at least 32 characters")
	}
	if cfg.APIBaseURL == "" {
		return fmt.Errorf("API_BASE_URL must be set")
	}
	if cfg.SeedAdminPassword != "" && len(cfg.SeedAdminPassword) < 8 {
		return fmt.Errorf("SEED_ADMIN_PASSWORD must be at least 8 characters")
	}
	if cfg.SeedCashierPassword != "" && len(cfg.SeedCashierPassword) < 8 {
		return fmt.Errorf("SEED_CASHIER_PASSWORD must be at least 8 characters")
	}
	return nil
}
