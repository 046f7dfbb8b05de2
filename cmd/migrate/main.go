package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/hatchery-backend/pkg/config"
	"github.com/angelmondragon/hatchery-backend/pkg/db"
	"github.com/angelmondragon/hatchery-backend/pkg/logger"
	"github.com/angelmondragon/hatchery-backend/pkg/migrate"
)

type options struct {
	cmd     string
	dir     string
	name    string
	version string
}

func main() {
	_ = godotenv.Load()

	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "migrate:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	var opts options
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	fs.StringVar(&opts.cmd, "cmd", "up", "up|down|status|version|create|validate|auto")
	fs.StringVar(&opts.dir, "dir", "", "migrations directory on disk (default: the embedded set)")
	fs.StringVar(&opts.name, "name", "", "migration name for -cmd=create")
	fs.StringVar(&opts.version, "version", "", "target YYYYMMDDHHMMSS for -cmd=version")
	if err := fs.Parse(args); err != nil {
		return err
	}

	// create and validate only touch files.
	switch opts.cmd {
	case "create":
		if opts.name == "" {
			return errors.New("-name is required for create")
		}
		dir := opts.dir
		if dir == "" {
			dir = migrate.DefaultDir
		}
		path, err := migrate.CreateSQLMigration(dir, opts.name)
		if err != nil {
			return err
		}
		fmt.Println("created", path)
		return nil
	case "validate":
		err := migrate.ValidateEmbedded()
		if opts.dir != "" {
			err = migrate.ValidateDir(opts.dir)
		}
		if err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
		fmt.Println("migrations ok")
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logg := logger.FromAppConfig("migrate", cfg.App)
	defer logg.Close()
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "cmd": opts.cmd, "dir": opts.dir})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "migrate.db_unavailable", err)
		return err
	}
	defer dbClient.Close()

	// sqlite has no goose history; its schema always comes from the models.
	if opts.cmd == "auto" || cfg.DB.IsSQLite() {
		if err := migrate.AutoMigrateModels(dbClient); err != nil {
			return fmt.Errorf("auto-migrate: %w", err)
		}
		logg.Info(ctx, "migrate.auto_complete")
		return nil
	}

	sqlDB, err := dbClient.DB().DB()
	if err != nil {
		return fmt.Errorf("sql handle: %w", err)
	}
	if err := gooseCommand(ctx, sqlDB, opts, logg); err != nil {
		logg.Error(ctx, "migrate.failed", err)
		return err
	}
	logg.Info(ctx, "migrate.complete")
	return nil
}

func gooseCommand(ctx context.Context, sqlDB *sql.DB, opts options, logg *logger.Logger) error {
	var (
		steps []migrate.Step
		err   error
	)
	switch opts.cmd {
	case "up":
		steps, err = migrate.Up(ctx, sqlDB, opts.dir)
	case "down":
		steps, err = migrate.Down(ctx, sqlDB, opts.dir)
	case "version":
		if opts.version == "" {
			return errors.New("-version is required for version")
		}
		steps, err = migrate.MigrateToVersion(ctx, sqlDB, opts.dir, opts.version)
	case "status":
		files, err := migrate.Status(ctx, sqlDB, opts.dir)
		if err != nil {
			return err
		}
		for _, f := range files {
			state := "pending"
			if f.Applied {
				state = f.AppliedAt.UTC().Format(time.RFC3339)
			}
			fmt.Printf("%-24s %s\n", state, f.File)
		}
		return nil
	default:
		return fmt.Errorf("unknown -cmd %q", opts.cmd)
	}

	for _, step := range steps {
		logg.Info(logg.WithFields(ctx, map[string]any{
			"version":     step.Version,
			"file":        step.File,
			"direction":   step.Direction,
			"duration_ms": step.Duration.Milliseconds(),
		}), "migrate.step")
	}
	return err
}
