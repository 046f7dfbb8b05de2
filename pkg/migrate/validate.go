package migrate

import (
	"bufio"
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path"
	"regexp"
	"strings"

	"go.uber.org/multierr"
)

var migrationNameRe = regexp.MustCompile(`^(\d{14})_[a-z0-9_]+\.sql$`)

const (
	annotationUp    = "-- +goose Up"
	annotationDown  = "-- +goose Down"
	annotationBegin = "-- +goose StatementBegin"
	annotationEnd   = "-- +goose StatementEnd"
)

// ValidateDir checks the migration files in a directory on disk.
func ValidateDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("dir is required")
	}
	return ValidateFS(os.DirFS(dir), ".")
}

// ValidateEmbedded checks the migrations compiled into the binary.
func ValidateEmbedded() error {
	return ValidateFS(embedded, EmbeddedDir)
}

// ValidateFS reports every problem found under root instead of stopping at
// the first one: filenames must be <YYYYMMDDHHMMSS>_<name>.sql, versions
// unique, the Up section must precede Down and statement blocks must close.
func ValidateFS(fsys fs.FS, root string) error {
	entries, err := fs.ReadDir(fsys, root)
	if err != nil {
		return fmt.Errorf("read migrations %q: %w", root, err)
	}

	var (
		errs error
		seen = map[string]string{}
	)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || path.Ext(name) != ".sql" {
			continue
		}

		match := migrationNameRe.FindStringSubmatch(name)
		if match == nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: expected <YYYYMMDDHHMMSS>_<name>.sql", name))
			continue
		}
		if prev, dup := seen[match[1]]; dup {
			errs = multierr.Append(errs, fmt.Errorf("%s: version %s already used by %s", name, match[1], prev))
			continue
		}
		seen[match[1]] = name

		data, err := fs.ReadFile(fsys, path.Join(root, name))
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		if err := checkAnnotations(data); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	return errs
}

func checkAnnotations(data []byte) error {
	var (
		upLine, downLine int
		open             int
		line             int
	)
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		switch {
		case strings.HasPrefix(text, annotationUp) && upLine == 0:
			upLine = line
		case strings.HasPrefix(text, annotationDown) && downLine == 0:
			downLine = line
		case strings.HasPrefix(text, annotationBegin):
			if open > 0 {
				return fmt.Errorf("line %d: nested StatementBegin", line)
			}
			open = line
		case strings.HasPrefix(text, annotationEnd):
			if open == 0 {
				return fmt.Errorf("line %d: StatementEnd without StatementBegin", line)
			}
			open = 0
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	switch {
	case upLine == 0:
		return fmt.Errorf("missing %q", annotationUp)
	case downLine == 0:
		return fmt.Errorf("missing %q", annotationDown)
	case downLine < upLine:
		return fmt.Errorf("%q must come before %q", annotationUp, annotationDown)
	case open > 0:
		return fmt.Errorf("line %d: StatementBegin is never closed", open)
	}
	return nil
}
