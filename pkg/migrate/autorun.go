package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/storefront/pkg/config"
	"github.com/angelmondragon/storefront/pkg/db"
	"github.com/angelmondragon/storefront/pkg/logger"
)

// ShouldAutoRun reports whether boot-time migrations apply: always when
// STOREFRONT_AUTO_MIGRATE is set, otherwise only for a dev sqlite database
// (the default local cart snapshot setup).
func ShouldAutoRun(cfg *config.Config, dialect string) bool {
	if cfg.App.AutoMigrate {
		return true
	}
	return cfg.App.IsDev() && dialect == db.DialectSQLite
}

// MaybeRun applies the embedded migrations on boot when ShouldAutoRun allows.
func MaybeRun(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if client == nil || !ShouldAutoRun(cfg, client.Dialect()) {
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}
	files, err := List(embedded, DefaultDir)
	if err != nil {
		return fmt.Errorf("embedded migrations invalid: %w", err)
	}

	ctx = logg.WithFields(ctx, map[string]any{
		"dialect":    client.Dialect(),
		"migrations": len(files),
		"latest":     files[len(files)-1].Version,
	})
	logg.Info(ctx, "migrate.autorun_started")
	if err := Run(ctx, sqlDB, client.Dialect(), "up"); err != nil {
		return fmt.Errorf("running goose up: %w", err)
	}
	logg.Info(ctx, "migrate.autorun_completed")
	return nil
}
