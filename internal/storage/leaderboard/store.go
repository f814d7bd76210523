// Package leaderboard persists accepted transcripts in SQLite or Postgres.
package leaderboard

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	_ "modernc.org/sqlite"

	"github.com/swehq/corona-game/internal/domain/game"
	"github.com/swehq/corona-game/internal/domain/validate"
	apperrors "github.com/swehq/corona-game/internal/platform/errors"
	"github.com/swehq/corona-game/internal/platform/storage/sqlmigrate"
	"github.com/swehq/corona-game/internal/storage/leaderboard/migrations"
)

const tracerName = "github.com/swehq/corona-game/internal/storage/leaderboard"

// ErrNotFound is returned when no entry has the requested id.
var ErrNotFound = errors.New("leaderboard entry not found")

// Config selects and tunes the backing database.
type Config struct {
	Dialect     sqlmigrate.Dialect
	SQLitePath  string
	PostgresDSN string
	// Logger defaults to log.Default.
	Logger *log.Logger
	// Tracer defaults to the global provider's tracer.
	Tracer trace.Tracer
	// Now defaults to time.Now.
	Now func() time.Time
}

// Entry is one accepted game.
type Entry struct {
	ID         string    `json:"id"`
	Scenario   string    `json:"scenario"`
	Seed       string    `json:"seed"`
	Days       int       `json:"days"`
	Dead       float64   `json:"dead"`
	CostTotal  float64   `json:"costTotal"`
	Stability  float64   `json:"stability"`
	RecordedAt time.Time `json:"recordedAt"`
}

// Store is a leaderboard backed by database/sql.
type Store struct {
	sqlDB   *sql.DB
	dialect sqlmigrate.Dialect
	logger  *log.Logger
	tracer  trace.Tracer
	now     func() time.Time
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open connects to the configured database and applies its migrations.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	dialect, err := sqlmigrate.ParseDialect(string(cfg.Dialect))
	if err != nil {
		return nil, err
	}

	var dsn string
	switch dialect {
	case sqlmigrate.DialectSQLite:
		path := strings.TrimSpace(cfg.SQLitePath)
		if path == "" {
			return nil, fmt.Errorf("sqlite path is required")
		}
		cleanPath := filepath.Clean(path)
		if err := os.MkdirAll(filepath.Dir(cleanPath), 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite directory: %w", err)
		}
		dsn = cleanPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	case sqlmigrate.DialectPostgres:
		dsn = strings.TrimSpace(cfg.PostgresDSN)
		if dsn == "" {
			return nil, fmt.Errorf("postgres dsn is required")
		}
	}

	sqlDB, err := sql.Open(dialect.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s db: %w", dialect, err)
	}
	if dialect == sqlmigrate.DialectSQLite {
		sqlDB.SetMaxOpenConns(1)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping %s db: %w", dialect, err)
	}
	if err := sqlmigrate.ApplyMigrations(ctx, sqlDB, dialect, migrations.FS, string(dialect)); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	s := &Store{sqlDB: sqlDB, dialect: dialect, logger: cfg.Logger, tracer: cfg.Tracer, now: cfg.Now}
	if s.logger == nil {
		s.logger = log.Default()
	}
	if s.tracer == nil {
		s.tracer = otel.Tracer(tracerName)
	}
	if s.now == nil {
		s.now = time.Now
	}
	s.logger.Printf("leaderboard: dialect=%s", dialect)
	return s, nil
}

// Close closes the database handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Digest is the content address of a transcript.
func Digest(raw []byte) string {
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// Record stores an accepted transcript and returns its id. Recording the
// same transcript twice returns the same id.
func (s *Store) Record(ctx context.Context, data game.GameData, report validate.Report) (id string, err error) {
	ctx, span := s.tracer.Start(ctx, "leaderboard.Record", trace.WithAttributes(
		attribute.String("scenario", data.ScenarioName),
		attribute.String("result", string(report.Result)),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(otelcodes.Error, err.Error())
		}
		span.End()
	}()

	if !report.Valid() {
		return "", apperrors.WithMetadata(apperrors.CodeLeaderboardRejected, "only valid transcripts are recorded",
			map[string]string{"result": string(report.Result)})
	}
	if len(data.Simulation) == 0 {
		return "", apperrors.New(apperrors.CodeLeaderboardRejected, "transcript has no days")
	}
	raw, err := game.Encode(data)
	if err != nil {
		return "", fmt.Errorf("encode transcript: %w", err)
	}
	id = Digest(raw)
	span.SetAttributes(attribute.String("id", id))

	last := data.Simulation[len(data.Simulation)-1]
	query := fmt.Sprintf(`INSERT INTO leaderboard_entries
    (id, scenario, seed, days, dead, cost_total, stability, transcript, recorded_at)
VALUES (%s)
ON CONFLICT (id) DO NOTHING`, s.binds(9))
	res, err := s.sqlDB.ExecContext(ctx, query,
		id,
		data.ScenarioName,
		string(data.RandomSeed),
		len(data.Simulation),
		last.Dead,
		last.Stats.CostTotal,
		last.Stability,
		raw,
		toMillis(s.now()),
	)
	if err != nil {
		return "", fmt.Errorf("insert leaderboard entry: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		s.logger.Printf("leaderboard: duplicate id=%s scenario=%s", id, data.ScenarioName)
		return id, nil
	}
	s.logger.Printf("leaderboard: recorded id=%s scenario=%s dead=%.0f", id, data.ScenarioName, last.Dead)
	return id, nil
}

// Top returns up to limit entries for scenario, fewest dead first and then
// cheapest.
func (s *Store) Top(ctx context.Context, scenario string, limit int) ([]Entry, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than zero")
	}
	query := fmt.Sprintf(`SELECT id, scenario, seed, days, dead, cost_total, stability, recorded_at
FROM leaderboard_entries
WHERE scenario = %s
ORDER BY dead ASC, cost_total ASC, recorded_at ASC, id ASC
LIMIT %s`, s.dialect.Bind(1), s.dialect.Bind(2))
	rows, err := s.sqlDB.QueryContext(ctx, query, scenario, limit)
	if err != nil {
		return nil, fmt.Errorf("query leaderboard: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var recordedAt int64
		if err := rows.Scan(&e.ID, &e.Scenario, &e.Seed, &e.Days, &e.Dead, &e.CostTotal, &e.Stability, &recordedAt); err != nil {
			return nil, fmt.Errorf("scan leaderboard entry: %w", err)
		}
		e.RecordedAt = fromMillis(recordedAt)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate leaderboard: %w", err)
	}
	return entries, nil
}

// Transcript returns the stored transcript for id.
func (s *Store) Transcript(ctx context.Context, id string) (game.GameData, error) {
	var raw []byte
	row := s.sqlDB.QueryRowContext(ctx, "SELECT transcript FROM leaderboard_entries WHERE id = "+s.dialect.Bind(1), id)
	if err := row.Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return game.GameData{}, ErrNotFound
		}
		return game.GameData{}, fmt.Errorf("get transcript: %w", err)
	}
	return game.Decode(raw)
}

func (s *Store) binds(n int) string {
	ph := make([]string, n)
	for i := range ph {
		ph[i] = s.dialect.Bind(i + 1)
	}
	return strings.Join(ph, ", ")
}
