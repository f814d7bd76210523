package epidemic

import (
	"math"
	"time"

	"github.com/swehq/corona-game/internal/core/calendar"
)

// Noise supplies the per-day random draws.
type Noise interface {
	PositiveNormal(mean, sd float64) float64
}

// Model holds the simulated history and derives new days from it.
type Model struct {
	params   Params
	start    time.Time
	baseline DayState
	days     []DayState
	noise    Noise
}

// NewModel creates a model whose day 0 falls on start with initialInfections
// infected that day.
func NewModel(params Params, start time.Time, initialInfections float64, noise Noise) *Model {
	params = params.withDefaults()
	m := &Model{
		params: params,
		start:  calendar.Truncate(start),
		noise:  noise,
		baseline: DayState{
			Susceptible: params.Population,
			R:           params.R0,
			Mortality:   params.MortalityMean,
			Stability:   1,
		},
	}

	initialInfections = math.Max(0, math.Min(initialInfections, params.Population))
	first := m.baseline
	first.Date = calendar.Format(m.start)
	first.Susceptible -= initialInfections
	first.Infected = initialInfections
	first.InfectedToday = initialInfections
	first.Stats = m.stats(0, first, NoEffect())
	m.days = []DayState{first}
	return m
}

// Params returns the effective model constants.
func (m *Model) Params() Params {
	return m.params
}

// Len reports how many days exist, day 0 included.
func (m *Model) Len() int {
	return len(m.days)
}

// Days returns a copy of the history.
func (m *Model) Days() []DayState {
	out := make([]DayState, len(m.days))
	copy(out, m.days)
	return out
}

// Last returns the most recent day.
func (m *Model) Last() DayState {
	return m.days[len(m.days)-1]
}

// DayAt returns day n, or the baseline for any n before the first day.
func (m *Model) DayAt(n int) DayState {
	if n < 0 || len(m.days) == 0 {
		return m.baseline
	}
	if n >= len(m.days) {
		return m.days[len(m.days)-1]
	}
	return m.days[n]
}

// NextDate is the calendar day SimulateOneDay will produce.
func (m *Model) NextDate() time.Time {
	return calendar.AddDays(m.start, len(m.days))
}

// SimulateOneDay appends the next day computed under effect and returns it.
func (m *Model) SimulateOneDay(effect Effect) DayState {
	p := m.params
	n := len(m.days)
	yesterday := m.DayAt(n - 1)

	stabilityTarget := 1 - effect.StabilityCost
	stability := yesterday.Stability*p.StabilitySmoothing + stabilityTarget*(1-p.StabilitySmoothing)

	mult := effect.Mult
	if mult <= 0 {
		mult = 1
	}
	support := math.Max(0, math.Min(1, stability))
	dampened := mult + (1-mult)*(1-support)*p.StabilityEffectScale

	r := yesterday.R*p.RSmoothing + p.R0*dampened*(1-p.RSmoothing)

	pool := 0.0
	for k := p.InfectiousFrom; k <= p.InfectiousTo; k++ {
		pool += m.DayAt(n - k).InfectedToday
	}
	pool /= float64(p.InfectiousTo - p.InfectiousFrom + 1)

	vaccination := math.Min(p.VaccinationMaxRate, yesterday.VaccinationRate+math.Max(0, effect.VaccinationPerDay))
	vaccination = math.Max(vaccination, yesterday.VaccinationRate)

	// Draw order is part of the transcript format: transmission, mortality,
	// hospitalization rate.
	transmissionNoise := m.noise.PositiveNormal(1, p.TransmissionNoiseSD)
	mortality := m.noise.PositiveNormal(p.MortalityMean, p.MortalitySD)
	hospitalizationRate := m.noise.PositiveNormal(p.HospitalizationRateMean, p.HospitalizationRateSD)

	if yesterday.Hospitalized > p.HospitalCapacity {
		mortality *= p.OverwhelmedMortalityMultiplier
	}
	mortality = math.Min(mortality, 1)

	susceptible := yesterday.Susceptible * (1 - vaccination)
	infectedToday := pool * transmissionNoise * r * susceptible / p.Population
	infectedToday += math.Max(0, effect.ImportedInfections)
	if !effect.BordersClosed {
		infectedToday += p.ImportedInfections
	}
	infectedToday = math.Max(0, math.Min(infectedToday, yesterday.Susceptible))

	recoverySource := m.DayAt(n - p.RecoveryDays)
	recoveredToday := recoverySource.InfectedToday * (1 - recoverySource.Mortality)
	deathSource := m.DayAt(n - p.TimeToDeathDays)
	deadToday := deathSource.InfectedToday * deathSource.Mortality

	infected := yesterday.Infected + infectedToday - recoveredToday - deadToday
	if infected < 0 {
		// Outflows never exceed the stock.
		scale := (yesterday.Infected + infectedToday) / (recoveredToday + deadToday)
		recoveredToday *= scale
		deadToday *= scale
		infected = 0
	}

	waning := math.Min(m.DayAt(n-p.ImmunityDays).RecoveredToday, yesterday.Recovered+recoveredToday)

	hospitalizedToday := m.DayAt(n-p.IncubationDays).InfectedToday * hospitalizationRate
	discharged := m.DayAt(n - p.HospitalizationDays).HospitalizedToday
	hospitalized := math.Max(0, yesterday.Hospitalized+hospitalizedToday-discharged)

	day := DayState{
		Date:              calendar.Format(calendar.AddDays(m.start, n)),
		Susceptible:       math.Max(0, yesterday.Susceptible-infectedToday+waning),
		Infected:          infected,
		InfectedToday:     infectedToday,
		Recovered:         math.Max(0, yesterday.Recovered+recoveredToday-waning),
		RecoveredToday:    recoveredToday,
		Hospitalized:      hospitalized,
		HospitalizedToday: hospitalizedToday,
		Dead:              yesterday.Dead + deadToday,
		DeadToday:         deadToday,
		R:                 r,
		Mortality:         mortality,
		VaccinationRate:   vaccination,
		Stability:         stability,
	}
	day.Stats = m.stats(n, day, effect)
	m.days = append(m.days, day)
	return day
}

// RewindOneDay drops the last day. Day 0 is never removed.
func (m *Model) RewindOneDay() bool {
	if len(m.days) <= 1 {
		return false
	}
	m.days = m.days[:len(m.days)-1]
	return true
}

func (m *Model) stats(n int, day DayState, effect Effect) Stats {
	p := m.params
	prev := m.DayAt(n - 1).Stats
	if n == 0 {
		prev = Stats{}
	}

	detectedToday := math.Round(m.DayAt(n - p.IncubationDays).InfectedToday)

	sum := detectedToday
	for k := 1; k < 7; k++ {
		if n-k < 0 {
			break
		}
		sum += m.days[n-k].Stats.DetectedInfections.Today
	}

	active := 0.0
	for k := p.IncubationDays; k < p.RecoveryDays; k++ {
		active += m.DayAt(n - k).InfectedToday
	}

	total := prev.DetectedInfections.Total + detectedToday
	mortality := 0.0
	if total > 0 {
		mortality = day.Dead / total
	}

	return Stats{
		DetectedInfections: DetectedInfections{
			Today:   detectedToday,
			Total:   total,
			Avg7Day: sum / 7,
		},
		DetectedActiveInfectionsTotal: math.Round(active),
		Mortality:                     mortality,
		CostTotal:                     prev.CostTotal + effect.Cost,
		HospitalsUtilization:          day.Hospitalized / p.HospitalCapacity,
	}
}
