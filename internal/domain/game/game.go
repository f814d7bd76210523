// Package game sequences one playthrough: it resolves the day's mitigation
// configuration, composes it into an effect, advances the epidemic model and
// hands the new day to the event engine.
//
// A Game is the only owner of the day history, the trigger history, the
// event mitigations and the random streams. Forward steps push a frame with
// everything needed to undo them, so MoveBackward is an exact pop rather
// than a recomputation.
package game

import (
	"errors"
	"fmt"
	"maps"

	"github.com/swehq/corona-game/internal/core/calendar"
	"github.com/swehq/corona-game/internal/core/random"
	"github.com/swehq/corona-game/internal/domain/epidemic"
	"github.com/swehq/corona-game/internal/domain/event"
	"github.com/swehq/corona-game/internal/domain/mitigation"
	"github.com/swehq/corona-game/internal/domain/scenario"
	"github.com/swehq/corona-game/internal/platform/i18n"
	"github.com/swehq/corona-game/internal/platform/i18n/catalog"
)

// LossThreshold is the stability below which the game is lost.
const LossThreshold = -1

// lookbackDays is how far back event data compares detected averages.
const lookbackDays = 14

var (
	// ErrBeforeStart is returned when rewinding into the ramp-up period.
	ErrBeforeStart = errors.New("cannot rewind before the scenario start")
	// ErrFinished is returned when moving past the scenario end date.
	ErrFinished = errors.New("game is finished")
	// ErrGameLost is returned when moving forward after stability collapsed.
	ErrGameLost = errors.New("game is lost")
	// ErrNoPendingEvent is returned when choosing without a fired event.
	ErrNoPendingEvent = errors.New("no event awaiting a choice")
	// ErrUnknownChoice is returned for an out-of-range choice index.
	ErrUnknownChoice = errors.New("unknown event choice")
	// ErrUnknownMitigation is returned for ids or levels not in the catalogue.
	ErrUnknownMitigation = errors.New("unknown mitigation")
)

// TriggerFactory builds the trigger list bound to the game's event stream.
type TriggerFactory func(catalogue *mitigation.Catalogue, sampler event.Sampler) []event.Trigger

// Config holds everything a game is built from.
type Config struct {
	Scenario scenario.Scenario
	Seed     random.Seed
	// Params overrides the model constants; zero fields take defaults and
	// the population always comes from the scenario when set there.
	Params epidemic.Params
	// Mitigations defaults to mitigation.DefaultCatalogue.
	Mitigations *mitigation.Catalogue
	// Triggers defaults to the event.DefaultTriggers list.
	Triggers TriggerFactory
	// Locale selects event texts and formats interpolated numbers.
	Locale string
}

// Step is the outcome of one forward day.
type Step struct {
	Day   epidemic.DayState
	Event *event.Event
}

type frame struct {
	simulation       []byte
	events           []byte
	eventMitigations mitigation.EventMitigations
	pending          *event.Event
	applied          mitigation.Configuration
}

// Game is one playthrough. It is not safe for concurrent use.
type Game struct {
	scenario  scenario.Scenario
	seed      random.Seed
	catalogue *mitigation.Catalogue
	params    []mitigation.Param
	composer  *mitigation.Composer
	model     *epidemic.Model
	engine    *event.Engine

	simulation *random.Sampler
	events     *random.Sampler

	// player is the configuration the next day will run under; applied is
	// the one the last simulated day ran under.
	player  mitigation.Configuration
	applied mitigation.Configuration

	eventMitigations mitigation.EventMitigations
	history          mitigation.History
	controlChanges   map[string][]string
	choices          map[string][]EventAndChoice
	pending          *event.Event
	frames           []frame
}

// New builds a game and simulates the ramp-up period.
func New(cfg Config) (*Game, error) {
	if err := cfg.Scenario.Validate(); err != nil {
		return nil, fmt.Errorf("new game: %w", err)
	}
	if cfg.Seed == "" {
		return nil, errors.New("new game: seed is required")
	}
	catalogue := cfg.Mitigations
	if catalogue == nil {
		catalogue = mitigation.DefaultCatalogue()
	}
	triggers := cfg.Triggers
	if triggers == nil {
		triggers = DefaultTriggers
	}
	params := cfg.Params
	if cfg.Scenario.Population > 0 {
		params.Population = cfg.Scenario.Population
	}

	g := &Game{
		scenario:       cfg.Scenario,
		seed:           cfg.Seed,
		catalogue:      catalogue,
		simulation:     random.NewSampler(cfg.Seed, random.StreamSimulation),
		events:         random.NewSampler(cfg.Seed, random.StreamEvents),
		player:         mitigation.Configuration{},
		applied:        mitigation.Configuration{},
		controlChanges: map[string][]string{},
		choices:        map[string][]EventAndChoice{},
	}
	g.params = catalogue.Calibrate(random.NewSampler(cfg.Seed, random.StreamCalibration))
	g.composer = mitigation.NewComposer(catalogue, g.params)
	g.model = epidemic.NewModel(params, cfg.Scenario.RampUpStartDate, cfg.Scenario.Initial(), g.simulation)
	g.engine = event.NewEngine(triggers(catalogue, g.events), g.events, i18n.NewNumberFormatter(cfg.Locale))
	g.engine.SetLocalizer(catalog.Default().Localizer(cfg.Locale))

	for g.model.Len()-1 < cfg.Scenario.RampUpDays() {
		if _, err := g.step(false); err != nil {
			return nil, fmt.Errorf("ramp up: %w", err)
		}
	}
	return g, nil
}

// DefaultTriggers is the TriggerFactory for the standard event catalogue.
func DefaultTriggers(catalogue *mitigation.Catalogue, sampler event.Sampler) []event.Trigger {
	return event.DefaultTriggers(catalogue.VaccinationStart, sampler)
}

// Scenario returns the scenario being played.
func (g *Game) Scenario() scenario.Scenario {
	return g.scenario
}

// Params returns the calibrated mitigation params.
func (g *Game) Params() []mitigation.Param {
	out := make([]mitigation.Param, len(g.params))
	copy(out, g.params)
	return out
}

// Days returns the simulated history.
func (g *Game) Days() []epidemic.DayState {
	return g.model.Days()
}

// LastDay returns the most recent day.
func (g *Game) LastDay() epidemic.DayState {
	return g.model.Last()
}

// NextDate is the date MoveForward will simulate.
func (g *Game) NextDate() string {
	return calendar.Format(g.model.NextDate())
}

// TriggerState returns the latest trigger snapshot.
func (g *Game) TriggerState() event.State {
	return g.engine.State()
}

// Mitigations returns the configuration the next day will run under,
// without scenario overrides.
func (g *Game) Mitigations() mitigation.Configuration {
	return g.player.Clone()
}

// EventMitigations returns the scheduled event mitigations.
func (g *Game) EventMitigations() []mitigation.ActiveEventMitigation {
	return g.eventMitigations.Entries()
}

// Pending returns the event of the last day if no choice was made yet.
func (g *Game) Pending() *event.Event {
	return g.pending
}

// SetMitigations applies diff to the configuration of the next day.
func (g *Game) SetMitigations(diff mitigation.Configuration) error {
	for id, level := range diff {
		if level == "" {
			level = mitigation.LevelOff
		}
		if !g.catalogue.HasLevel(id, level) {
			return fmt.Errorf("%w: %s=%s", ErrUnknownMitigation, id, level)
		}
	}
	g.player = g.player.Merge(diff)
	return nil
}

// SetMitigation selects level for id from the next day on.
func (g *Game) SetMitigation(id, level string) error {
	return g.SetMitigations(mitigation.Configuration{id: level})
}

// IsFinished reports whether the scenario end date was simulated.
func (g *Game) IsFinished() bool {
	return g.model.Len() >= g.scenario.DayCount()
}

// IsGameLost reports whether stability fell below LossThreshold.
func (g *Game) IsGameLost() bool {
	return g.model.Last().Stability < LossThreshold
}

// MoveForward simulates the next day.
func (g *Game) MoveForward() (Step, error) {
	if g.IsGameLost() {
		return Step{}, ErrGameLost
	}
	if g.IsFinished() {
		return Step{}, ErrFinished
	}
	return g.step(true)
}

// MoveBackward undoes the last day. The ramp-up period cannot be undone.
func (g *Game) MoveBackward() error {
	if g.model.Len()-1 <= g.scenario.RampUpDays() || len(g.frames) == 0 {
		return ErrBeforeStart
	}
	f := g.frames[len(g.frames)-1]
	date := g.model.Last().Date

	if err := g.simulation.Restore(f.simulation); err != nil {
		return err
	}
	if err := g.events.Restore(f.events); err != nil {
		return err
	}
	g.frames = g.frames[:len(g.frames)-1]
	g.model.RewindOneDay()
	g.engine.Rewind()

	g.eventMitigations = f.eventMitigations
	g.pending = f.pending
	g.applied = f.applied
	g.player = f.applied.Clone()
	g.history.DropFrom(date)
	delete(g.controlChanges, date)
	delete(g.choices, date)
	return nil
}

// Choose answers the pending event with choice index. Its mitigation effect
// starts on the next day.
func (g *Game) Choose(index int) error {
	if g.pending == nil {
		return ErrNoPendingEvent
	}
	choice, ok := g.pending.Choice(index)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownChoice, index)
	}
	day := g.model.Len() - 1
	date := g.model.Last().Date
	g.eventMitigations = choice.Action.Apply(g.eventMitigations, day+1)
	g.choices[date] = append(g.choices[date], EventAndChoice{
		TriggerID:   g.pending.TriggerID,
		Title:       g.pending.Title,
		ChoiceIndex: index,
	})
	g.pending = nil
	return nil
}

func (g *Game) step(fire bool) (Step, error) {
	simState, err := g.simulation.State()
	if err != nil {
		return Step{}, err
	}
	eventState, err := g.events.State()
	if err != nil {
		return Step{}, err
	}
	g.frames = append(g.frames, frame{
		simulation:       simState,
		events:           eventState,
		eventMitigations: g.eventMitigations,
		pending:          g.pending,
		applied:          g.applied.Clone(),
	})

	n := g.model.Len()
	date := g.model.NextDate()
	key := calendar.Format(date)

	if diff := g.player.Diff(g.applied); len(diff) > 0 {
		if err := g.history.Append(key, diff); err != nil {
			return Step{}, err
		}
		g.controlChanges[key] = g.player.Changes(g.applied)
	}

	effective := g.player.Clone()
	maps.Copy(effective, g.scenario.ForcedOn(date))
	effect := g.composer.Compose(date, n, effective, g.eventMitigations)

	day := g.model.SimulateOneDay(effect)
	fired := g.engine.Evaluate(event.Input{
		Date:          date,
		Day:           day,
		TwoWeeksAgo:   g.model.DayAt(n - lookbackDays),
		Mitigations:   effective,
		BordersClosed: effect.BordersClosed,
	}, fire)

	g.applied = g.player.Clone()
	g.pending = fired
	g.eventMitigations = g.eventMitigations.Prune(n + 1)
	return Step{Day: day, Event: fired}, nil
}
