package migrate

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"
)

const versionLayout = "20060102150405"

var sqlTemplate = template.Must(template.New("migration").Parse(`-- +goose Up
-- +goose StatementBegin
-- {{.Name}}
-- +goose StatementEnd

-- +goose Down
-- +goose StatementBegin
-- rollback {{.Name}}
-- +goose StatementEnd
`))

// CreateSQLMigration writes an empty goose migration stamped with the current
// UTC time and returns its path.
func CreateSQLMigration(dir string, name string) (string, error) {
	return CreateSQLMigrationAt(dir, name, time.Now())
}

func CreateSQLMigrationAt(dir string, name string, at time.Time) (string, error) {
	if dir == "" {
		return "", errors.New("dir is required")
	}
	slug := migrationSlug(name)
	if slug == "" {
		return "", fmt.Errorf("migration name %q has no usable characters", name)
	}

	version := at.UTC().Format(versionLayout)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create %q: %w", dir, err)
	}
	if existing, err := fs.Glob(os.DirFS(dir), version+"_*.sql"); err == nil && len(existing) > 0 {
		return "", fmt.Errorf("version %s already used by %s", version, existing[0])
	}

	var buf bytes.Buffer
	if err := sqlTemplate.Execute(&buf, struct{ Name string }{slug}); err != nil {
		return "", fmt.Errorf("render migration: %w", err)
	}

	target := filepath.Join(dir, version+"_"+slug+".sql")
	if err := os.WriteFile(target, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("write %q: %w", target, err)
	}
	return target, nil
}

// migrationSlug lowercases name and folds every run of other characters
// into a single underscore.
func migrationSlug(name string) string {
	var b strings.Builder
	pendingSep := false
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
			continue
		}
		pendingSep = true
	}
	return b.String()
}
