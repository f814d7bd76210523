package mitigation

import (
	"maps"
	"slices"
	"time"

	"github.com/swehq/corona-game/internal/core/calendar"
	"github.com/swehq/corona-game/internal/domain/epidemic"
)

// Composer reduces one day's enacted measures to an epidemic.Effect.
type Composer struct {
	catalogue *Catalogue
	params    map[string]map[string]Param
	strongest map[string]Param
}

// NewComposer indexes calibrated params for catalogue.
func NewComposer(catalogue *Catalogue, params []Param) *Composer {
	c := &Composer{
		catalogue: catalogue,
		params:    map[string]map[string]Param{},
		strongest: map[string]Param{},
	}
	for _, p := range params {
		if c.params[p.ID] == nil {
			c.params[p.ID] = map[string]Param{}
		}
		c.params[p.ID][p.Level] = p
		if best, ok := c.strongest[p.ID]; !ok || p.Rank > best.Rank {
			c.strongest[p.ID] = p
		}
	}
	return c
}

// Param returns the calibrated param for (id, level).
func (c *Composer) Param(id, level string) (Param, bool) {
	p, ok := c.params[id][level]
	return p, ok
}

// SchoolBreak reports whether date falls in the school holiday.
func (c *Composer) SchoolBreak(date time.Time) bool {
	from, to := c.catalogue.SchoolBreakFrom, c.catalogue.SchoolBreakTo
	if from.Month == 0 || to.Month == 0 {
		return false
	}
	return calendar.Within(date, from.Month, from.Day, to.Month, to.Day)
}

// Compose builds the effect for date (simulation day index day) under cfg
// and the scheduled event mitigations. Unknown ids and levels are ignored.
func (c *Composer) Compose(date time.Time, day int, cfg Configuration, events EventMitigations) epidemic.Effect {
	effect := epidemic.NoEffect()
	schoolBreak := c.SchoolBreak(date)

	// Sorted so floating point products are identical on every run.
	for _, id := range slices.Sorted(maps.Keys(cfg)) {
		level := cfg[id]
		if level == "" || level == LevelOff {
			continue
		}
		p, ok := c.params[id][level]
		if !ok {
			continue
		}
		if p.Schools && schoolBreak {
			continue
		}
		effect.Mult *= 1 - p.Effectiveness
		effect.Cost += p.Cost
		effect.StabilityCost += p.StabilityCost
		if p.Borders {
			effect.BordersClosed = true
		}
	}

	if schoolBreak {
		for _, id := range slices.Sorted(maps.Keys(c.strongest)) {
			if p := c.strongest[id]; p.Schools {
				effect.Mult *= 1 - p.Effectiveness
			}
		}
	}

	if !c.catalogue.VaccinationStart.IsZero() && !date.Before(c.catalogue.VaccinationStart) {
		effect.VaccinationPerDay += c.catalogue.VaccinationPerDay
	}

	for _, e := range events.ActiveOn(day) {
		if e.RMult > 0 {
			effect.Mult *= e.RMult
		}
		effect.StabilityCost += e.StabilityCost
		effect.VaccinationPerDay += e.VaccinationPerDay
		effect.ImportedInfections += e.ImportedInfections
		if day == e.StartDay {
			effect.Cost += e.OneTimeCost
		}
	}
	return effect
}
