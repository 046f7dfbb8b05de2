package migrate

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strconv"
	"time"

	"github.com/pressly/goose/v3"
)

const DefaultDir = "pkg/migrate/migrations"

//go:embed migrations/*.sql
var embedded embed.FS

// EmbeddedDir is the directory name inside the embedded filesystem.
const EmbeddedDir = "migrations"

// Embedded exposes the compiled-in migration files.
func Embedded() fs.FS {
	return embedded
}

// Step is one applied or rolled back migration.
type Step struct {
	Version   int64
	File      string
	Direction string
	Duration  time.Duration
}

// FileStatus reports whether a migration has been applied.
type FileStatus struct {
	Version   int64
	File      string
	Applied   bool
	AppliedAt time.Time
}

// Source returns the migrations under dir, or the embedded set when dir is
// empty.
func Source(dir string) (fs.FS, error) {
	if dir != "" {
		return os.DirFS(dir), nil
	}
	return fs.Sub(embedded, EmbeddedDir)
}

func newProvider(db *sql.DB, dialect goose.Dialect, fsys fs.FS) (*goose.Provider, error) {
	if db == nil {
		return nil, errors.New("db is required")
	}
	provider, err := goose.NewProvider(dialect, db, fsys)
	if err != nil {
		return nil, fmt.Errorf("goose provider: %w", err)
	}
	return provider, nil
}

func postgresProvider(db *sql.DB, dir string) (*goose.Provider, error) {
	fsys, err := Source(dir)
	if err != nil {
		return nil, err
	}
	return newProvider(db, goose.DialectPostgres, fsys)
}

// Up applies every pending migration.
func Up(ctx context.Context, db *sql.DB, dir string) ([]Step, error) {
	provider, err := postgresProvider(db, dir)
	if err != nil {
		return nil, err
	}
	return up(ctx, provider)
}

func up(ctx context.Context, provider *goose.Provider) ([]Step, error) {
	results, err := provider.Up(ctx)
	if err != nil {
		return steps(results), fmt.Errorf("goose up: %w", err)
	}
	return steps(results), nil
}

// Down rolls back the most recent migration.
func Down(ctx context.Context, db *sql.DB, dir string) ([]Step, error) {
	provider, err := postgresProvider(db, dir)
	if err != nil {
		return nil, err
	}
	result, err := provider.Down(ctx)
	if err != nil {
		return nil, fmt.Errorf("goose down: %w", err)
	}
	return steps([]*goose.MigrationResult{result}), nil
}

// Status lists every known migration with its applied state.
func Status(ctx context.Context, db *sql.DB, dir string) ([]FileStatus, error) {
	provider, err := postgresProvider(db, dir)
	if err != nil {
		return nil, err
	}
	return status(ctx, provider)
}

func status(ctx context.Context, provider *goose.Provider) ([]FileStatus, error) {
	results, err := provider.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("goose status: %w", err)
	}
	out := make([]FileStatus, 0, len(results))
	for _, r := range results {
		if r == nil || r.Source == nil {
			continue
		}
		out = append(out, FileStatus{
			Version:   r.Source.Version,
			File:      path.Base(r.Source.Path),
			Applied:   r.State == goose.StateApplied,
			AppliedAt: r.AppliedAt,
		})
	}
	return out, nil
}

// MigrateToVersion moves the schema up or down until target
// (YYYYMMDDHHMMSS) is the current version.
func MigrateToVersion(ctx context.Context, db *sql.DB, dir string, target string) ([]Step, error) {
	version, err := strconv.ParseInt(target, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS): %w", target, err)
	}
	provider, err := postgresProvider(db, dir)
	if err != nil {
		return nil, err
	}
	return migrateTo(ctx, provider, version)
}

func migrateTo(ctx context.Context, provider *goose.Provider, version int64) ([]Step, error) {
	current, err := provider.GetDBVersion(ctx)
	if err != nil {
		return nil, fmt.Errorf("get db version: %w", err)
	}

	var results []*goose.MigrationResult
	switch {
	case current == version:
		return nil, nil
	case current < version:
		results, err = provider.UpTo(ctx, version)
	default:
		results, err = provider.DownTo(ctx, version)
	}
	if err != nil {
		return steps(results), fmt.Errorf("goose migrate %d -> %d: %w", current, version, err)
	}
	return steps(results), nil
}

func steps(results []*goose.MigrationResult) []Step {
	out := make([]Step, 0, len(results))
	for _, r := range results {
		if r == nil || r.Source == nil || r.Empty {
			continue
		}
		out = append(out, Step{
			Version:   r.Source.Version,
			File:      path.Base(r.Source.Path),
			Direction: r.Direction,
			Duration:  r.Duration,
		})
	}
	return out
}
