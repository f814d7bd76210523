// Package simulator parses simulator command flags and plays a scripted game
// into a transcript.
package simulator

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/swehq/corona-game/internal/core/random"
	"github.com/swehq/corona-game/internal/domain/game"
	"github.com/swehq/corona-game/internal/domain/mitigation"
	"github.com/swehq/corona-game/internal/domain/scenario"
	entrypoint "github.com/swehq/corona-game/internal/platform/cmd"
)

// Config holds simulator command configuration.
type Config struct {
	Scenario    string `env:"CORONA_GAME_SCENARIO"     envDefault:"demo"`
	Seed        string `env:"CORONA_GAME_SEED"`
	ScenarioDir string `env:"CORONA_GAME_SCENARIO_DIR"`
	Locale      string `env:"CORONA_GAME_LOCALE"       envDefault:"en-US"`
	Plan        string `env:"CORONA_GAME_PLAN"`
	Output      string `env:"CORONA_GAME_OUTPUT"`
	Verbose     bool   `env:"CORONA_GAME_VERBOSE"`
}

// Plan scripts the player: mitigation diffs keyed by the date they take
// effect and choice indexes keyed by the date of the event. Events without a
// planned choice take DefaultChoice. Days limits the played days; zero plays
// to the scenario end.
type Plan struct {
	Mitigations   map[string]mitigation.Configuration `json:"mitigations"`
	Choices       map[string]int                      `json:"choices"`
	DefaultChoice int                                 `json:"defaultChoice"`
	Days          int                                 `json:"days"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.Scenario, "scenario", cfg.Scenario, "scenario name")
	fs.StringVar(&cfg.Seed, "seed", cfg.Seed, "random seed (generated when empty)")
	fs.StringVar(&cfg.ScenarioDir, "scenario-dir", cfg.ScenarioDir, "directory of Lua scenario scripts")
	fs.StringVar(&cfg.Locale, "locale", cfg.Locale, "locale for event texts")
	fs.StringVar(&cfg.Plan, "plan", cfg.Plan, "path to a JSON plan file")
	fs.StringVar(&cfg.Output, "out", cfg.Output, "transcript output path (stdout when empty)")
	fs.BoolVar(&cfg.Verbose, "verbose", cfg.Verbose, "log every event")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run plays the configured game and writes its transcript.
func Run(ctx context.Context, cfg Config, out io.Writer, errOut io.Writer) error {
	if out == nil {
		out = io.Discard
	}
	if errOut == nil {
		errOut = io.Discard
	}
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceSimulator, func(ctx context.Context) error {
		return run(ctx, cfg, out, log.New(errOut, entrypoint.LogPrefix(entrypoint.ServiceSimulator), 0))
	})
}

func run(ctx context.Context, cfg Config, out io.Writer, logger *log.Logger) error {
	scenarios, err := scenario.OpenCatalogue(cfg.ScenarioDir)
	if err != nil {
		return err
	}
	s, err := scenarios.Lookup(cfg.Scenario)
	if err != nil {
		return err
	}
	plan, err := LoadPlan(cfg.Plan)
	if err != nil {
		return err
	}
	seed := random.Seed(strings.TrimSpace(cfg.Seed))
	if seed == "" {
		if seed, err = random.NewGameSeed(); err != nil {
			return err
		}
	}

	_, span := otel.Tracer("github.com/swehq/corona-game/internal/cmd/simulator").Start(ctx, "simulator.Play")
	defer span.End()
	span.SetAttributes(attribute.String("scenario", s.Name), attribute.String("seed", string(seed)))

	g, err := game.New(game.Config{Scenario: s, Seed: seed, Locale: cfg.Locale})
	if err != nil {
		return err
	}
	played, err := Play(ctx, g, plan, logger, cfg.Verbose)
	if err != nil {
		return err
	}
	span.SetAttributes(attribute.Int("days", played))

	last := g.LastDay()
	logger.Printf("scenario=%s seed=%s days=%d dead=%.0f cost=%.0f stability=%.3f lost=%t",
		s.Name, seed, len(g.Days()), last.Dead, last.Stats.CostTotal, last.Stability, g.IsGameLost())

	raw, err := game.Encode(g.Data())
	if err != nil {
		return err
	}
	if cfg.Output == "" {
		_, err = fmt.Fprintf(out, "%s\n", raw)
		return err
	}
	if err := os.WriteFile(cfg.Output, raw, 0o644); err != nil {
		return fmt.Errorf("write transcript: %w", err)
	}
	logger.Printf("wrote %s", cfg.Output)
	return nil
}

// LoadPlan reads a plan file; an empty path is the empty plan.
func LoadPlan(path string) (Plan, error) {
	if strings.TrimSpace(path) == "" {
		return Plan{}, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Plan{}, fmt.Errorf("read plan: %w", err)
	}
	var plan Plan
	if err := json.Unmarshal(raw, &plan); err != nil {
		return Plan{}, fmt.Errorf("decode plan: %w", err)
	}
	return plan, nil
}

// Play advances g under plan until the scenario ends, stability collapses or
// the plan's day limit is reached. It returns the number of days played.
func Play(ctx context.Context, g *game.Game, plan Plan, logger *log.Logger, verbose bool) (int, error) {
	played := 0
	for !g.IsFinished() && !g.IsGameLost() {
		if plan.Days > 0 && played >= plan.Days {
			break
		}
		if err := ctx.Err(); err != nil {
			return played, err
		}
		date := g.NextDate()
		if diff, ok := plan.Mitigations[date]; ok {
			if err := g.SetMitigations(diff); err != nil {
				return played, fmt.Errorf("plan %s: %w", date, err)
			}
		}
		step, err := g.MoveForward()
		if err != nil {
			if errors.Is(err, game.ErrGameLost) || errors.Is(err, game.ErrFinished) {
				break
			}
			return played, err
		}
		played++
		if step.Event == nil {
			continue
		}
		if verbose {
			logger.Printf("event date=%s trigger=%s title=%q", date, step.Event.TriggerID, step.Event.Title)
		}
		if len(step.Event.Choices) == 0 {
			continue
		}
		choice := plan.DefaultChoice
		if planned, ok := plan.Choices[date]; ok {
			choice = planned
		}
		if err := g.Choose(choice); err != nil {
			return played, fmt.Errorf("plan %s: %w", date, err)
		}
	}
	return played, nil
}
