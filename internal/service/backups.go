package service

import (
	"context"
	"net/url"
	"sort"

	"kasirinaja/backoffice/internal/apiclient"
	"kasirinaja/backoffice/internal/domain"
)

func backupPath(id domain.ID, suffix string) string {
	return "/backups/" + url.PathEscape(id.String()) + suffix
}

// ListBackups answers with an empty list when the API is down; backups only
// exist on the backend.
func (s *Service) ListBackups(ctx context.Context) (domain.Sourced[[]domain.Backup], error) {
	return withFallback(ctx, s, "backups",
		func(ctx context.Context) ([]domain.Backup, error) {
			var backups []domain.Backup
			if err := s.api.Get(ctx, "/backups", nil, &backups); err != nil {
				return nil, err
			}
			sort.SliceStable(backups, func(i, j int) bool {
				return backups[i].CreatedAt.After(backups[j].CreatedAt.Time)
			})
			if backups == nil {
				backups = []domain.Backup{}
			}
			return backups, nil
		},
		func(context.Context) ([]domain.Backup, error) {
			return []domain.Backup{}, nil
		},
	)
}

func (s *Service) CreateBackup(ctx context.Context) (domain.Sourced[domain.Backup], error) {
	return apiOnly(ctx, func(ctx context.Context) (domain.Backup, error) {
		var backup domain.Backup
		err := s.api.Post(ctx, "/backups", struct{}{}, &backup)
		return backup, err
	})
}

// DownloadBackup streams a backup file. The caller closes the body.
func (s *Service) DownloadBackup(ctx context.Context, id domain.ID) (*apiclient.Download, error) {
	download, err := s.api.Download(apiContext(ctx), backupPath(id, "/download"))
	if err != nil {
		return nil, translate(err)
	}
	return download, nil
}

func (s *Service) DeleteBackup(ctx context.Context, id domain.ID) error {
	_, err := apiOnly(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.api.Delete(ctx, backupPath(id, ""))
	})
	return err
}
