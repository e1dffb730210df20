package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/shopspring/decimal"

	"kasirinaja/backoffice/internal/apiclient"
	"kasirinaja/backoffice/internal/domain"
	"kasirinaja/backoffice/internal/localstore"
	"kasirinaja/backoffice/internal/receipt"
	"kasirinaja/backoffice/internal/rounding"
)

// GetSettings reads /settings, then /config, then the cached snapshot in
// app_settings_cache, then the older barbershop_settings document.
func (s *Service) GetSettings(ctx context.Context) (domain.Sourced[domain.Settings], error) {
	return withFallback(ctx, s, "settings",
		func(ctx context.Context) (domain.Settings, error) {
			var settings domain.Settings
			err := s.api.Get(ctx, "/settings", nil, &settings)
			if err != nil && apiclient.IsFallbackable(err) {
				var configErr error
				settings = domain.Settings{}
				if configErr = s.api.Get(ctx, "/config", nil, &settings); configErr != nil {
					return settings, errors.Join(err, configErr)
				}
				err = nil
			}
			if err != nil {
				return settings, err
			}
			if saveErr := s.local.AppSettings.Save(ctx, settings); saveErr != nil {
				log.Printf("[service] WARN: cache settings snapshot: %v", saveErr)
			}
			return settings, nil
		},
		func(ctx context.Context) (domain.Settings, error) {
			settings, err := s.local.AppSettings.Load(ctx)
			if errors.Is(err, localstore.ErrNoData) {
				return s.local.LegacySettings.Load(ctx)
			}
			return settings, err
		},
	)
}

func validateSettings(settings domain.Settings) (domain.Settings, error) {
	settings.BusinessName = strings.TrimSpace(settings.BusinessName)
	if settings.BusinessName == "" {
		return settings, fmt.Errorf("%w: business_name is required", ErrInvalidInput)
	}
	if settings.TaxRate.IsNegative() || settings.TaxRate.GreaterThan(decimal.NewFromInt(1)) {
		return settings, fmt.Errorf("%w: tax_rate must be between 0 and 1", ErrInvalidInput)
	}
	if err := rounding.Validate(settings.Rounding); err != nil {
		return settings, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if settings.PaperWidth < 0 {
		return settings, fmt.Errorf("%w: paper_width must not be negative", ErrInvalidInput)
	}
	return settings, nil
}

func (s *Service) UpdateSettings(ctx context.Context, settings domain.Settings) (domain.Sourced[domain.Settings], error) {
	settings, err := validateSettings(settings)
	if err != nil {
		return domain.Sourced[domain.Settings]{}, err
	}
	settings.UpdatedAt = domain.At(s.now())

	return withFallback(ctx, s, "settings",
		func(ctx context.Context) (domain.Settings, error) {
			var saved domain.Settings
			if err := s.api.Put(ctx, "/settings", settings, &saved); err != nil {
				return saved, err
			}
			if saveErr := s.local.AppSettings.Save(ctx, saved); saveErr != nil {
				log.Printf("[service] WARN: cache settings snapshot: %v", saveErr)
			}
			return saved, nil
		},
		func(ctx context.Context) (domain.Settings, error) {
			if err := s.local.AppSettings.Save(ctx, settings); err != nil {
				return settings, err
			}
			s.logLocal(ctx, "update", "settings", "", settings.BusinessName)
			return settings, nil
		},
	)
}

// PrinterTest renders a test page with the current business header and
// paper width.
func (s *Service) PrinterTest(ctx context.Context) (domain.PrinterTest, error) {
	settings, err := s.GetSettings(ctx)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return domain.PrinterTest{}, err
	}
	return receipt.TestPage(settings.Data)
}
