package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/hatchery-backend/pkg/config"
	"github.com/angelmondragon/hatchery-backend/pkg/db"
	"github.com/angelmondragon/hatchery-backend/pkg/db/models"
	"github.com/angelmondragon/hatchery-backend/pkg/logger"
)

// MaybeRunDev brings the schema up to date in dev when AutoMigrate is on.
// sqlite gets the gorm models; postgres gets the embedded goose files.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	if cfg.DB.IsSQLite() {
		ctx = logg.WithField(ctx, "driver", config.DBDriverSQLite)
		if err := AutoMigrateModels(client); err != nil {
			return err
		}
		logg.Info(ctx, "migrate.auto_complete")
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	ctx = logg.WithField(ctx, "env", cfg.App.Env)
	applied, err := Up(ctx, sqlDB, "")
	for _, step := range applied {
		logg.Info(logg.WithFields(ctx, map[string]any{
			"version":     step.Version,
			"file":        step.File,
			"duration_ms": step.Duration.Milliseconds(),
		}), "migrate.applied")
	}
	if err != nil {
		return err
	}
	logg.Info(logg.WithField(ctx, "applied", len(applied)), "migrate.dev_complete")
	return nil
}

// AutoMigrateModels creates every table the service reads or writes.
func AutoMigrateModels(client *db.Client) error {
	if err := client.DB().AutoMigrate(
		&models.Admin{},
		&models.UserProfile{},
		&models.Notification{},
		&models.HelpMessage{},
		&models.Conversation{},
	); err != nil {
		return fmt.Errorf("auto-migrate models: %w", err)
	}
	return nil
}
