// Package validator parses validator command flags, replays submitted
// transcripts and records the accepted ones on the leaderboard.
package validator

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"slices"
	"strings"

	"github.com/swehq/corona-game/internal/domain/game"
	"github.com/swehq/corona-game/internal/domain/scenario"
	"github.com/swehq/corona-game/internal/domain/validate"
	entrypoint "github.com/swehq/corona-game/internal/platform/cmd"
	"github.com/swehq/corona-game/internal/platform/storage/sqlmigrate"
	"github.com/swehq/corona-game/internal/storage/leaderboard"
)

// ErrRejected is returned when at least one transcript is not valid.
var ErrRejected = errors.New("transcripts rejected")

const stdinName = "-"

// Config holds validator command configuration. An empty DBDialect disables
// the leaderboard.
type Config struct {
	ScenarioDir string  `env:"CORONA_GAME_SCENARIO_DIR"`
	Lenient     bool    `env:"CORONA_GAME_LENIENT"`
	Epsilon     float64 `env:"CORONA_GAME_EPSILON"`
	DBDialect   string  `env:"CORONA_GAME_DB_DIALECT"`
	SQLitePath  string  `env:"CORONA_GAME_DB_SQLITE_PATH"  envDefault:"data/leaderboard.db"`
	PostgresDSN string  `env:"CORONA_GAME_DB_POSTGRES_DSN"`
	Top         int     `env:"CORONA_GAME_TOP"`
	Files       []string
}

// FileReport is the line written for each validated transcript.
type FileReport struct {
	File     string             `json:"file"`
	Scenario string             `json:"scenario,omitempty"`
	Result   validate.Result    `json:"result"`
	Failures []validate.Failure `json:"failures,omitempty"`
	ID       string             `json:"id,omitempty"`
}

// Standings is the line written per scenario when Top is set.
type Standings struct {
	Scenario string              `json:"scenario"`
	Top      []leaderboard.Entry `json:"top"`
}

// ParseConfig parses environment, flags and positional transcript paths
// into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.ScenarioDir, "scenario-dir", cfg.ScenarioDir, "directory of Lua scenario scripts")
	fs.BoolVar(&cfg.Lenient, "lenient", cfg.Lenient, "collect every failure class instead of stopping at the first")
	fs.Float64Var(&cfg.Epsilon, "epsilon", cfg.Epsilon, "numeric tolerance (default when zero)")
	fs.StringVar(&cfg.DBDialect, "db", cfg.DBDialect, "leaderboard dialect: sqlite or postgres (disabled when empty)")
	fs.StringVar(&cfg.SQLitePath, "sqlite-path", cfg.SQLitePath, "leaderboard sqlite path")
	fs.StringVar(&cfg.PostgresDSN, "postgres-dsn", cfg.PostgresDSN, "leaderboard postgres dsn")
	fs.IntVar(&cfg.Top, "top", cfg.Top, "print the top N entries per scenario after recording")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	cfg.Files = fs.Args()
	return cfg, nil
}

// Run validates every configured transcript, reading stdin when no files are
// given, and writes one JSON line per transcript to out.
func Run(ctx context.Context, cfg Config, in io.Reader, out io.Writer, errOut io.Writer) error {
	if in == nil {
		in = strings.NewReader("")
	}
	if out == nil {
		out = io.Discard
	}
	if errOut == nil {
		errOut = io.Discard
	}
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceValidator, func(ctx context.Context) error {
		return run(ctx, cfg, in, out, log.New(errOut, entrypoint.LogPrefix(entrypoint.ServiceValidator), 0))
	})
}

func run(ctx context.Context, cfg Config, in io.Reader, out io.Writer, logger *log.Logger) error {
	scenarios, err := scenario.OpenCatalogue(cfg.ScenarioDir)
	if err != nil {
		return err
	}
	validator := validate.New(scenarios, validate.Options{Lenient: cfg.Lenient, Epsilon: cfg.Epsilon})

	var store *leaderboard.Store
	if strings.TrimSpace(cfg.DBDialect) != "" {
		store, err = leaderboard.Open(ctx, leaderboard.Config{
			Dialect:     sqlmigrate.Dialect(strings.TrimSpace(cfg.DBDialect)),
			SQLitePath:  cfg.SQLitePath,
			PostgresDSN: cfg.PostgresDSN,
			Logger:      logger,
		})
		if err != nil {
			return err
		}
		defer func() {
			if err := store.Close(); err != nil {
				logger.Printf("close leaderboard: %v", err)
			}
		}()
	}

	files := cfg.Files
	if len(files) == 0 {
		files = []string{stdinName}
	}
	enc := json.NewEncoder(out)
	rejected := 0
	var seen []string
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		raw, err := readTranscript(file, in)
		if err != nil {
			return err
		}
		line, err := check(ctx, validator, store, file, raw)
		if err != nil {
			return err
		}
		logger.Printf("file=%s result=%s failures=%d", file, line.Result, len(line.Failures))
		if line.Result != validate.ResultValid {
			rejected++
		} else if !slices.Contains(seen, line.Scenario) {
			seen = append(seen, line.Scenario)
		}
		if err := enc.Encode(line); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
	}

	if store != nil && cfg.Top > 0 {
		slices.Sort(seen)
		for _, name := range seen {
			entries, err := store.Top(ctx, name, cfg.Top)
			if err != nil {
				return err
			}
			if err := enc.Encode(Standings{Scenario: name, Top: entries}); err != nil {
				return fmt.Errorf("write standings: %w", err)
			}
		}
	}

	if rejected > 0 {
		return fmt.Errorf("%w: %d of %d", ErrRejected, rejected, len(files))
	}
	return nil
}

func check(ctx context.Context, validator *validate.Validator, store *leaderboard.Store, file string, raw []byte) (FileReport, error) {
	data, err := game.Decode(raw)
	if err != nil {
		report := validator.ValidateJSON(ctx, raw)
		return FileReport{File: file, Result: report.Result, Failures: report.Failures}, nil
	}
	report := validator.Validate(ctx, data)
	line := FileReport{File: file, Scenario: data.ScenarioName, Result: report.Result, Failures: report.Failures}
	if store == nil || !report.Valid() {
		return line, nil
	}
	id, err := store.Record(ctx, data, report)
	if err != nil {
		return FileReport{}, fmt.Errorf("record %s: %w", file, err)
	}
	line.ID = id
	return line, nil
}

func readTranscript(file string, in io.Reader) ([]byte, error) {
	if file == stdinName {
		raw, err := io.ReadAll(in)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return raw, nil
	}
	raw, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("read transcript: %w", err)
	}
	return raw, nil
}
