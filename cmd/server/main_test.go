package main

import (
	"context"
	"testing"

	"kasirinaja/backoffice/internal/config"
)

func TestValidateSecurityConfigRejectsWeakValues(t *testing.T) {
	err := validateSecurityConfig(config.Config{AuthSecret: "short", APIBaseURL: "http://api.local"})
	if err == nil {
		t.Fatalf("expected weak security config to be rejected")
	}
	err = validateSecurityConfig(config.Config{
		AuthSecret:        "0123456789abcdef0123456789abcdef",
		APIBaseURL:        "http://api.local",
		SeedAdminPassword: "admin",
	})
	if err == nil {
		t.Fatalf("expected short seed password to be rejected")
	}
}

func TestValidateSecurityConfigAcceptsStrongValues(t *testing.T) {
	err := validateSecurityConfig(config.Config{AuthSecret: "0123456789abcdef0123456789abcdef", APIBaseURL: "http://api.local"})
	if err != nil {
		t.Fatalf("expected strong config to pass, got %v", err)
	}
}

func TestOpenLocalStoreSelectsBackend(t *testing.T) {
	ctx := context.Background()

	store, closeFn, err := openLocalStore(ctx, config.Config{LocalStore: config.StoreMemory})
	if err != nil || store == nil || closeFn != nil {
		t.Fatalf("expected memory store without closer, got %v %v", store, err)
	}

	dir := t.TempDir()
	store, _, err = openLocalStore(ctx, config.Config{LocalStore: config.StoreFile, LocalStoreDir: dir})
	if err != nil || store == nil {
		t.Fatalf("expected file store, got %v", err)
	}

	if _, _, err := openLocalStore(ctx, config.Config{LocalStore: config.StorePostgres}); err == nil {
		t.Fatalf("expected postgres without DATABASE_URL to fail")
	}
	if _, _, err := openLocalStore(ctx, config.Config{LocalStore: "sqlite"}); err == nil {
		t.Fatalf("expected unknown backend to fail")
	}
}
