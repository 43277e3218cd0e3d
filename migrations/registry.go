// Package migrations exposes the embedded session schema to host
// applications. Hosts register the per-dialect filesystems with whatever
// migration runner they already use; this package never runs migrations
// itself.
package migrations

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"strings"

	session "github.com/goliatone/go-session"
)

const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

const embeddedRoot = "data/sql/migrations"

// FilesystemSpec pairs a dialect with the filesystem holding its *.sql files.
type FilesystemSpec struct {
	Dialect string
	Path    string
	FS      fs.FS
}

// Registration captures what was handed to the host's migration runner.
type Registration struct {
	SourceLabel       string
	ValidationTargets []string
	Filesystems       []FilesystemSpec
}

// RegisterFunc is the host callback invoked once per validated dialect.
type RegisterFunc func(ctx context.Context, dialect string, sourceLabel string, fsys fs.FS) error

type Option func(*Registration)

func WithDialectSourceLabel(label string) Option {
	return func(r *Registration) {
		if trimmed := strings.TrimSpace(label); trimmed != "" {
			r.SourceLabel = trimmed
		}
	}
}

func WithValidationTargets(targets ...string) Option {
	return func(r *Registration) {
		normalized := normalizeDialects(targets)
		if len(normalized) > 0 {
			r.ValidationTargets = normalized
		}
	}
}

func WithFilesystems(filesystems ...FilesystemSpec) Option {
	return func(r *Registration) {
		var kept []FilesystemSpec
		for _, spec := range filesystems {
			dialect := strings.TrimSpace(strings.ToLower(spec.Dialect))
			if dialect == "" || spec.FS == nil {
				continue
			}
			kept = append(kept, FilesystemSpec{Dialect: dialect, Path: spec.Path, FS: spec.FS})
		}
		if len(kept) > 0 {
			r.Filesystems = kept
		}
	}
}

// Filesystems returns the postgres and sqlite migration filesystems. The
// postgres files sit at the root of the embedded tree, the sqlite variants
// under sqlite/.
func Filesystems(sources ...fs.FS) ([]FilesystemSpec, error) {
	root := session.GetMigrationsFS()
	if len(sources) > 0 && sources[0] != nil {
		root = sources[0]
	}

	base, basePath, err := locateRoot(root)
	if err != nil {
		return nil, err
	}

	filesystems := []FilesystemSpec{
		{Dialect: DialectPostgres, Path: basePath, FS: base},
	}
	sqliteFS, err := fs.Sub(base, "sqlite")
	if err != nil {
		return nil, fmt.Errorf("migrations: resolve sqlite filesystem: %w", err)
	}
	filesystems = append(filesystems, FilesystemSpec{
		Dialect: DialectSQLite,
		Path:    path.Join(basePath, "sqlite"),
		FS:      sqliteFS,
	})

	for _, spec := range filesystems {
		if err := requireUpFiles(spec); err != nil {
			return nil, err
		}
	}
	return filesystems, nil
}

// Register resolves the embedded filesystems, applies options, then invokes
// registerFn for every dialect named in the validation targets.
func Register(ctx context.Context, registerFn RegisterFunc, opts ...Option) (Registration, error) {
	reg := Registration{
		SourceLabel:       "go-session",
		ValidationTargets: []string{DialectPostgres, DialectSQLite},
	}

	filesystems, err := Filesystems()
	if err != nil {
		return reg, err
	}
	reg.Filesystems = filesystems

	for _, opt := range opts {
		if opt != nil {
			opt(&reg)
		}
	}

	switch {
	case registerFn == nil:
		return reg, fmt.Errorf("migrations: register function is required")
	case strings.TrimSpace(reg.SourceLabel) == "":
		return reg, fmt.Errorf("migrations: source label is required")
	case len(reg.ValidationTargets) == 0:
		return reg, fmt.Errorf("migrations: validation targets are required")
	case len(reg.Filesystems) == 0:
		return reg, fmt.Errorf("migrations: filesystems are required")
	}

	targets := normalizeDialects(reg.ValidationTargets)
	for _, spec := range reg.Filesystems {
		if !containsDialect(targets, spec.Dialect) {
			continue
		}
		if spec.FS == nil {
			return reg, fmt.Errorf("migrations: filesystem for %s is nil", spec.Dialect)
		}
		if err := registerFn(ctx, spec.Dialect, reg.SourceLabel, spec.FS); err != nil {
			return reg, fmt.Errorf("migrations: register %s (%s): %w", spec.Dialect, spec.Path, err)
		}
	}

	return reg, nil
}

func locateRoot(root fs.FS) (fs.FS, string, error) {
	if sub, err := fs.Sub(root, embeddedRoot); err == nil {
		return sub, embeddedRoot, nil
	}

	// a caller may hand us the migration directory itself
	entries, err := fs.ReadDir(root, ".")
	if err != nil {
		return nil, "", fmt.Errorf("migrations: %s not found: %w", embeddedRoot, err)
	}
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			return root, ".", nil
		}
	}
	return nil, "", fmt.Errorf("migrations: %s not found", embeddedRoot)
}

func requireUpFiles(spec FilesystemSpec) error {
	matches, err := fs.Glob(spec.FS, "*.up.sql")
	if err != nil {
		return fmt.Errorf("migrations: glob %s %s: %w", spec.Dialect, spec.Path, err)
	}
	if len(matches) == 0 {
		return fmt.Errorf("migrations: %s filesystem %q has no *.up.sql files", spec.Dialect, spec.Path)
	}
	return nil
}

func normalizeDialects(values []string) []string {
	var out []string
	for _, value := range values {
		trimmed := strings.TrimSpace(strings.ToLower(value))
		if trimmed == "" || containsDialect(out, trimmed) {
			continue
		}
		out = append(out, trimmed)
	}
	return out
}

func containsDialect(dialects []string, dialect string) bool {
	for _, candidate := range dialects {
		if candidate == dialect {
			return true
		}
	}
	return false
}
