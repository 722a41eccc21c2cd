package db

import "embed"

// EmbedMigrations contains the embedded SQL migration files for both the
// partition catalog (migrations/catalog) and the benchmark reference store
// (migrations/benchmark).
//
//go:embed migrations/catalog/*.sql migrations/benchmark/*.sql
var EmbedMigrations embed.FS
