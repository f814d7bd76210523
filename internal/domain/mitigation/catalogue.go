// Package mitigation describes the player-controlled measures, calibrates
// them once per game and composes a day's enacted measures into the single
// epidemic.Effect the model runs under.
package mitigation

import (
	"math"
	"time"
)

// LevelOff is the level every mitigation starts at.
const LevelOff = "off"

const (
	maxEffectiveness  = 0.95
	costRelativeSD    = 0.1
	defaultVaccPerDay = 0.002
)

// Interval is a 95% confidence interval.
type Interval struct {
	Low  float64
	High float64
}

// LevelDefinition is one enacted level of a mitigation.
type LevelDefinition struct {
	Level         string
	Effectiveness Interval
	Cost          float64
	StabilityCost float64
}

// Definition is one measure with its ordered levels, weakest first.
type Definition struct {
	ID     string
	Levels []LevelDefinition
	// Borders marks the cross-border drift channel.
	Borders bool
	// SchoolCalendar marks the channel forced on during the school break.
	SchoolCalendar bool
}

// Catalogue is the set of measures a game offers plus the calendar rules the
// composer applies.
type Catalogue struct {
	Definitions []Definition

	// SchoolBreak bounds the yearly school holiday (inclusive).
	SchoolBreakFrom DayOfYear
	SchoolBreakTo   DayOfYear

	VaccinationStart  time.Time
	VaccinationPerDay float64
}

// DayOfYear is a month and day, ignoring the year.
type DayOfYear struct {
	Month time.Month
	Day   int
}

// Definition returns the measure with id.
func (c *Catalogue) Definition(id string) (Definition, bool) {
	for _, def := range c.Definitions {
		if def.ID == id {
			return def, true
		}
	}
	return Definition{}, false
}

// HasLevel reports whether level is valid for id. LevelOff is always valid
// for a known id.
func (c *Catalogue) HasLevel(id, level string) bool {
	def, ok := c.Definition(id)
	if !ok {
		return false
	}
	if level == LevelOff {
		return true
	}
	for _, l := range def.Levels {
		if l.Level == level {
			return true
		}
	}
	return false
}

// Param is the calibrated value of one (mitigation, level) pair. Params are
// drawn once per game and persisted with the transcript.
type Param struct {
	ID            string  `json:"id"`
	Level         string  `json:"level"`
	Effectiveness float64 `json:"effectiveness"`
	Cost          float64 `json:"cost"`
	StabilityCost float64 `json:"stabilityCost"`
	// Rank orders levels of one id, 0 being the weakest.
	Rank    int  `json:"rank"`
	Borders bool `json:"isBorders,omitempty"`
	Schools bool `json:"isSchools,omitempty"`
}

// Normal is the calibration sampler.
type Normal interface {
	NormalFromInterval(low, high float64) float64
	PositiveNormal(mean, sd float64) float64
}

// Calibrate draws the per-game params in catalogue order. The draw order is
// fixed: for every level, effectiveness, cost, then stability cost.
func (c *Catalogue) Calibrate(sampler Normal) []Param {
	var params []Param
	for _, def := range c.Definitions {
		for rank, level := range def.Levels {
			effectiveness := sampler.NormalFromInterval(level.Effectiveness.Low, level.Effectiveness.High)
			effectiveness = math.Max(0, math.Min(maxEffectiveness, effectiveness))
			params = append(params, Param{
				ID:            def.ID,
				Level:         level.Level,
				Effectiveness: effectiveness,
				Cost:          signedPositiveNormal(sampler, level.Cost),
				StabilityCost: signedPositiveNormal(sampler, level.StabilityCost),
				Rank:          rank,
				Borders:       def.Borders,
				Schools:       def.SchoolCalendar,
			})
		}
	}
	return params
}

// signedPositiveNormal samples around |base| and restores the sign, so a
// negative stability cost (a measure that calms people) keeps its direction.
// It always draws, even for a zero base, to keep the draw order fixed.
func signedPositiveNormal(sampler Normal, base float64) float64 {
	magnitude := math.Abs(base)
	value := sampler.PositiveNormal(magnitude, magnitude*costRelativeSD)
	if base == 0 {
		return 0
	}
	if base < 0 {
		return -value
	}
	return value
}

// DefaultCatalogue returns the standard set of measures.
func DefaultCatalogue() *Catalogue {
	return &Catalogue{
		Definitions: []Definition{
			{ID: "rrr", Levels: []LevelDefinition{
				{Level: "on", Effectiveness: Interval{0.15, 0.3}, Cost: 10_000_000, StabilityCost: 0.05},
			}},
			{ID: "bars", Levels: []LevelDefinition{
				{Level: "on", Effectiveness: Interval{0.1, 0.25}, Cost: 150_000_000, StabilityCost: 0.2},
			}},
			{ID: "businesses", Levels: []LevelDefinition{
				{Level: "most", Effectiveness: Interval{0.15, 0.35}, Cost: 600_000_000, StabilityCost: 0.35},
				{Level: "all", Effectiveness: Interval{0.25, 0.45}, Cost: 1_200_000_000, StabilityCost: 0.6},
			}},
			{ID: "events", Levels: []LevelDefinition{
				{Level: "1000", Effectiveness: Interval{0.1, 0.2}, Cost: 30_000_000, StabilityCost: 0.1},
				{Level: "100", Effectiveness: Interval{0.15, 0.3}, Cost: 80_000_000, StabilityCost: 0.2},
				{Level: "10", Effectiveness: Interval{0.25, 0.4}, Cost: 150_000_000, StabilityCost: 0.3},
			}},
			{ID: "schools", SchoolCalendar: true, Levels: []LevelDefinition{
				{Level: "universities", Effectiveness: Interval{0.1, 0.2}, Cost: 60_000_000, StabilityCost: 0.1},
				{Level: "all", Effectiveness: Interval{0.3, 0.45}, Cost: 400_000_000, StabilityCost: 0.4},
			}},
			{ID: "stayHome", Levels: []LevelDefinition{
				{Level: "on", Effectiveness: Interval{0.1, 0.25}, Cost: 1_500_000_000, StabilityCost: 0.9},
			}},
			{ID: "borders", Borders: true, Levels: []LevelDefinition{
				{Level: "on", Effectiveness: Interval{0.0, 0.05}, Cost: 100_000_000, StabilityCost: 0.3},
			}},
			{ID: "compensations", Levels: []LevelDefinition{
				{Level: "on", Effectiveness: Interval{0, 0}, Cost: 2_000_000_000, StabilityCost: -0.3},
			}},
		},
		SchoolBreakFrom:   DayOfYear{Month: time.July, Day: 1},
		SchoolBreakTo:     DayOfYear{Month: time.August, Day: 31},
		VaccinationStart:  time.Date(2021, time.January, 1, 0, 0, 0, 0, time.UTC),
		VaccinationPerDay: defaultVaccPerDay,
	}
}
