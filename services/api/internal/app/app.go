package app

import (
	"context"
	"errors"

	"elib/internal/util"
	"elib/pkg/domain"
	"elib/pkg/storage"
	"elib/pkg/store"
)

// AssetTransfer moves staged uploads into object storage.
type AssetTransfer interface {
	Transfer(ctx context.Context, localPath, displayName string, category domain.AssetCategory, mimeType string) (domain.RemoteAsset, error)
	Remove(ctx context.Context, remoteID string) error
}

// Sessions issues, verifies and revokes access tokens.
type Sessions interface {
	NewSession(u domain.User) (string, error)
	Verify(token string) (store.Session, error)
	DeleteSession(token string) error
}

// Config holds the collaborators of the application core.
type Config struct {
	Store    store.Store
	Assets   AssetTransfer
	Sessions Sessions
}

// App implements accounts, the book aggregate and rating insights.
type App struct {
	store    store.Store
	assets   AssetTransfer
	sessions Sessions
}

// New constructs the application core.
func New(cfg Config) (*App, error) {
	if cfg.Store == nil {
		return nil, errors.New("store required")
	}
	if cfg.Assets == nil {
		return nil, errors.New("asset transfer required")
	}
	if cfg.Sessions == nil {
		return nil, errors.New("sessions required")
	}
	return &App{
		store:    cfg.Store,
		assets:   cfg.Assets,
		sessions: cfg.Sessions,
	}, nil
}

// discardStaged removes staged uploads that were not consumed by a transfer.
func discardStaged(ctx context.Context, files ...*storage.StagedFile) {
	for _, f := range files {
		if f == nil {
			continue
		}
		if err := storage.RemoveStaged(f.Path); err != nil {
			util.LoggerFromContext(ctx).Warn("staged_file_remove_failed", "path", f.Path, "err", err)
		}
	}
}

// removeRemote deletes a remote asset, logging and discarding any failure.
func (a *App) removeRemote(ctx context.Context, remoteID string) {
	if remoteID == "" {
		return
	}
	if err := a.assets.Remove(ctx, remoteID); err != nil {
		util.LoggerFromContext(ctx).Warn("remote_asset_delete_failed", "remote_id", remoteID, "err", err)
	}
}
