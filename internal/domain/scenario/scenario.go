// Package scenario describes the games that can be played: calendar bounds,
// population, seed infections and mitigations the scenario forces on.
package scenario

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/swehq/corona-game/internal/core/calendar"
	"github.com/swehq/corona-game/internal/domain/mitigation"
)

// ErrUnknownScenario is returned for names missing from a catalogue.
var ErrUnknownScenario = errors.New("unknown scenario")

const defaultInitialInfections = 3

// Forced applies a configuration diff on every date in [From, To].
type Forced struct {
	From   time.Time
	To     time.Time
	Config mitigation.Configuration
}

// Scenario is one playable setup.
//
// Days from RampUpStartDate to RampUpEndDate are simulated without player
// input; the player takes over from RampUpEndDate and the game finishes on
// EndDate.
type Scenario struct {
	Name              string
	RampUpStartDate   time.Time
	RampUpEndDate     time.Time
	EndDate           time.Time
	Population        float64
	InitialInfections float64
	Forced            []Forced
}

// Validate checks the calendar bounds.
func (s Scenario) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return errors.New("scenario name is required")
	}
	if s.RampUpStartDate.IsZero() || s.RampUpEndDate.IsZero() || s.EndDate.IsZero() {
		return fmt.Errorf("scenario %s: dates are required", s.Name)
	}
	if s.RampUpEndDate.Before(s.RampUpStartDate) {
		return fmt.Errorf("scenario %s: ramp-up ends before it starts", s.Name)
	}
	if !s.EndDate.After(s.RampUpEndDate) {
		return fmt.Errorf("scenario %s: end date must follow ramp-up", s.Name)
	}
	if s.Population < 0 || s.InitialInfections < 0 {
		return fmt.Errorf("scenario %s: population and infections must be non-negative", s.Name)
	}
	return nil
}

// Initial returns the day 0 infections.
func (s Scenario) Initial() float64 {
	if s.InitialInfections <= 0 {
		return defaultInitialInfections
	}
	return s.InitialInfections
}

// DayCount is the number of day states a finished game holds.
func (s Scenario) DayCount() int {
	return calendar.DaysBetween(s.RampUpStartDate, s.EndDate) + 1
}

// RampUpDays is the index of the first day the player controls.
func (s Scenario) RampUpDays() int {
	return calendar.DaysBetween(s.RampUpStartDate, s.RampUpEndDate)
}

// ForcedOn merges every forced diff whose range holds date, in declaration
// order.
func (s Scenario) ForcedOn(date time.Time) mitigation.Configuration {
	cfg := mitigation.Configuration{}
	for _, f := range s.Forced {
		if date.Before(f.From) || (!f.To.IsZero() && date.After(f.To)) {
			continue
		}
		maps.Copy(cfg, f.Config)
	}
	return cfg
}

// Catalogue is a set of scenarios by name. It is safe for concurrent use.
type Catalogue struct {
	mu        sync.RWMutex
	scenarios map[string]Scenario
}

// NewCatalogue returns a catalogue holding scenarios.
func NewCatalogue(scenarios ...Scenario) (*Catalogue, error) {
	c := &Catalogue{scenarios: map[string]Scenario{}}
	for _, s := range scenarios {
		if err := c.Register(s); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// DefaultCatalogue returns the built-in scenarios.
func DefaultCatalogue() *Catalogue {
	c, err := NewCatalogue(Czechia(), Demo())
	if err != nil {
		panic(err)
	}
	return c
}

// Register adds or replaces s.
func (c *Catalogue) Register(s Scenario) error {
	if err := s.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scenarios[s.Name] = s
	return nil
}

// Lookup returns the scenario called name.
func (c *Catalogue) Lookup(name string) (Scenario, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.scenarios[name]
	if !ok {
		return Scenario{}, fmt.Errorf("%w: %q", ErrUnknownScenario, name)
	}
	return s, nil
}

// Names lists the registered scenarios, sorted.
func (c *Catalogue) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Sorted(maps.Keys(c.scenarios))
}

// Czechia is the full-length 2020/21 scenario.
func Czechia() Scenario {
	return Scenario{
		Name:              "czechia",
		RampUpStartDate:   calendar.MustParse("2020-03-01"),
		RampUpEndDate:     calendar.MustParse("2020-03-10"),
		EndDate:           calendar.MustParse("2021-06-30"),
		Population:        10_690_000,
		InitialInfections: defaultInitialInfections,
		Forced: []Forced{{
			From:   calendar.MustParse("2020-12-23"),
			To:     calendar.MustParse("2021-01-03"),
			Config: mitigation.Configuration{"schools": "all"},
		}},
	}
}

// Demo is a short scenario for trying the game out.
func Demo() Scenario {
	return Scenario{
		Name:              "demo",
		RampUpStartDate:   calendar.MustParse("2020-03-01"),
		RampUpEndDate:     calendar.MustParse("2020-03-05"),
		EndDate:           calendar.MustParse("2020-05-31"),
		Population:        10_690_000,
		InitialInfections: defaultInitialInfections,
	}
}
