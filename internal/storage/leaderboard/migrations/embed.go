package migrations

import "embed"

// FS contains the leaderboard migrations, one directory per dialect.
//
//go:embed sqlite/*.sql postgres/*.sql
var FS embed.FS
