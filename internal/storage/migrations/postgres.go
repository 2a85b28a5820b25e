// Package migrations applies the embedded schema files for both storage
// backends. Every file is idempotent, so a full replay on startup is safe.
package migrations

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"strings"

	"launch-radar/internal/storage/postgres"
)

//go:embed postgres/*.sql
var postgresFS embed.FS

// RunPostgresMigrations replays the embedded PostgreSQL schema files in
// lexical order against the pool.
func RunPostgresMigrations(ctx context.Context, pool *postgres.Pool) error {
	files, err := fs.Glob(postgresFS, "postgres/*.sql")
	if err != nil {
		return fmt.Errorf("glob postgres migrations: %w", err)
	}

	for _, file := range files {
		data, err := fs.ReadFile(postgresFS, file)
		if err != nil {
			return fmt.Errorf("read %s: %w", file, err)
		}
		sql := strings.TrimSpace(string(data))
		if sql == "" {
			continue
		}
		if _, err := pool.Exec(ctx, sql); err != nil {
			return fmt.Errorf("apply %s: %w", file, err)
		}
	}
	return nil
}
