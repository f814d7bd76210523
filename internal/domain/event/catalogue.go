package event

import (
	"time"

	"github.com/swehq/corona-game/internal/domain/mitigation"
)

// Trigger ids of the default catalogue.
const (
	TriggerFirstDeath           = "first-death"
	TriggerHospitalsOverwhelmed = "hospitals-overwhelmed"
	TriggerPanic                = "panic"
	TriggerProtests             = "protests"
	TriggerEconomyAlarm         = "economy-alarm"
	TriggerVaccineArrival       = "vaccine-arrival"
	TriggerAntivax              = "antivax"
	TriggerHighMortalityStreak  = "high-mortality-streak"
	TriggerSummerTravel         = "summer-travel"
	TriggerSuperspreader        = "superspreader"
)

const (
	panicMinimumAverage     = 50
	protestStability        = 0.3
	economyAlarmCost        = 1e11
	highMortalityStreakDays = 7
	superspreaderActive     = 500
	superspreaderChance     = 0.02
)

// DefaultTriggers returns the standard trigger list. vaccinationStart gates
// the vaccine arrival; sampler feeds the superspreader draw and must be the
// engine's event stream so the draw is reproducible. Texts are resolved
// through the engine's Localizer under the events.<trigger>.<n> keys.
func DefaultTriggers(vaccinationStart time.Time, sampler Sampler) []Trigger {
	return []Trigger{
		{
			ID:        TriggerFirstDeath,
			Condition: func(c Context) bool { return c.Day.Stats.DetectedInfections.Total > 0 && c.Day.Dead >= 1 },
			Events:    []Definition{{Key: "events.first-death.0"}},
		},
		{
			ID:        TriggerHospitalsOverwhelmed,
			Cooldown:  30,
			Condition: func(c Context) bool { return c.Day.Stats.HospitalsUtilization > 1 },
			Events: []Definition{{
				Key: "events.hospitals-overwhelmed.0",
				Choices: []Choice{
					{Action: Schedule(mitigation.EventMitigation{ID: "army-medics", Duration: 30, OneTimeCost: 500_000_000, StabilityCost: 0.05})},
					{},
				},
			}},
		},
		{
			ID:       TriggerPanic,
			Cooldown: 60,
			Condition: func(c Context) bool {
				before := c.Data.DetectedAvg7DayTwoWeeksAgo
				return before >= panicMinimumAverage && c.Day.Stats.DetectedInfections.Avg7Day >= 2*before
			},
			Events: []Definition{
				{
					Key: "events.panic.0",
					Choices: []Choice{
						{Action: Schedule(mitigation.EventMitigation{ID: "panic", Duration: 14, RMult: 0.95, StabilityCost: 0.05})},
						{Action: Schedule(mitigation.EventMitigation{ID: "panic", Duration: 14, RMult: 0.85, StabilityCost: 0.2})},
					},
				},
				{
					Key: "events.panic.1",
					Choices: []Choice{
						{Action: Schedule(mitigation.EventMitigation{ID: "panic", Duration: 7, RMult: 0.9, OneTimeCost: 50_000_000})},
						{},
					},
				},
			},
		},
		{
			ID:        TriggerProtests,
			Cooldown:  21,
			Condition: func(c Context) bool { return c.Day.Stability < protestStability },
			Events: []Definition{{
				Key: "events.protests.0",
				Choices: []Choice{
					{Action: Schedule(mitigation.EventMitigation{ID: "protest-relief", Duration: 14, StabilityCost: -0.3, OneTimeCost: 2_000_000_000})},
					{Action: Schedule(mitigation.EventMitigation{Duration: 7, RMult: 1.1})},
				},
			}},
		},
		{
			ID:        TriggerEconomyAlarm,
			Condition: func(c Context) bool { return c.Day.Stats.CostTotal > economyAlarmCost },
			Events:    []Definition{{Key: "events.economy-alarm.0"}},
		},
		{
			ID:        TriggerVaccineArrival,
			Condition: func(c Context) bool { return !vaccinationStart.IsZero() && !c.Date.Before(vaccinationStart) },
			Events: []Definition{{
				Key: "events.vaccine-arrival.0",
				Choices: []Choice{
					{Action: Schedule(mitigation.EventMitigation{ID: "vaccine-campaign", Duration: 60, VaccinationPerDay: 0.001, OneTimeCost: 300_000_000})},
					{},
				},
			}},
		},
		{
			ID:        TriggerAntivax,
			Condition: func(c Context) bool { return c.Data.AntivaxEligible },
			Events: []Definition{{
				Key: "events.antivax.0",
				Choices: []Choice{
					{Action: Schedule(mitigation.EventMitigation{ID: "antivax", Duration: 30, OneTimeCost: 100_000_000})},
					{Action: Schedule(mitigation.EventMitigation{ID: "antivax", Duration: 30, VaccinationPerDay: -0.0005})},
				},
			}},
		},
		{
			ID:        TriggerHighMortalityStreak,
			Condition: func(c Context) bool { return c.Data.HighMortalityDays >= highMortalityStreakDays },
			Events: []Definition{{
				Key: "events.high-mortality-streak.0",
				Choices: []Choice{
					{Action: Schedule(mitigation.EventMitigation{ID: "seniors", Duration: 60, RMult: 0.95, OneTimeCost: 200_000_000})},
					{Action: Cancel("seniors")},
				},
			}},
		},
		{
			ID:       TriggerSummerTravel,
			Cooldown: 365,
			Condition: func(c Context) bool {
				return c.Date.Month() == time.July && !c.Data.BordersClosed
			},
			Events: []Definition{{
				Key: "events.summer-travel.0",
				Choices: []Choice{
					{Action: Schedule(mitigation.EventMitigation{ID: "travel", Duration: 30, OneTimeCost: 150_000_000, ImportedInfections: 5})},
					{Action: Schedule(mitigation.EventMitigation{ID: "travel", Duration: 30, ImportedInfections: 20})},
				},
			}},
		},
		{
			ID:       TriggerSuperspreader,
			Cooldown: 30,
			Condition: func(c Context) bool {
				return c.Day.Stats.DetectedActiveInfectionsTotal > superspreaderActive && sampler.Float64() < superspreaderChance
			},
			Events: []Definition{{
				Key: "events.superspreader.0",
				Choices: []Choice{
					{Action: Schedule(mitigation.EventMitigation{Duration: 7, RMult: 0.97, OneTimeCost: 20_000_000})},
					{Action: Schedule(mitigation.EventMitigation{Duration: 1, ImportedInfections: 100})},
				},
			}},
		},
	}
}
