package epidemic

import (
	"math"
	"testing"
	"time"

	"github.com/swehq/corona-game/internal/core/calendar"
	"github.com/swehq/corona-game/internal/core/random"
)

// fixedNoise returns the mean for every draw.
type fixedNoise struct{ draws int }

func (n *fixedNoise) PositiveNormal(mean, _ float64) float64 {
	n.draws++
	return mean
}

func newTestModel(noise Noise) *Model {
	return NewModel(DefaultParams(), calendar.MustParse("2020-03-01"), 3, noise)
}

func TestNewModelSeedsDayZero(t *testing.T) {
	model := newTestModel(&fixedNoise{})
	if model.Len() != 1 {
		t.Fatalf("Len = %d, want 1", model.Len())
	}
	day := model.Last()
	if day.Date != "2020-03-01" {
		t.Fatalf("Date = %q, want 2020-03-01", day.Date)
	}
	if day.InfectedToday != 3 || day.Infected != 3 {
		t.Fatalf("infected = %v/%v, want 3/3", day.InfectedToday, day.Infected)
	}
	if day.Susceptible != 10_690_000-3 {
		t.Fatalf("Susceptible = %v, want %v", day.Susceptible, 10_690_000-3)
	}
	if day.Stability != 1 {
		t.Fatalf("Stability = %v, want 1", day.Stability)
	}
}

func TestDayAtBeforeStartReturnsBaseline(t *testing.T) {
	model := newTestModel(&fixedNoise{})
	before := model.DayAt(-30)
	if before.InfectedToday != 0 || before.Susceptible != 10_690_000 {
		t.Fatalf("baseline = %+v, want no infections and full population", before)
	}
	if before.Mortality != DefaultParams().MortalityMean {
		t.Fatalf("baseline mortality = %v, want %v", before.Mortality, DefaultParams().MortalityMean)
	}
}

func TestInfectionsGrowWithoutMitigations(t *testing.T) {
	model := NewModel(DefaultParams(), calendar.MustParse("2020-03-01"), 3, random.NewSampler("growth", random.StreamSimulation))

	var first DayState
	for i := 1; i <= 14; i++ {
		day := model.SimulateOneDay(NoEffect())
		if day.InfectedToday <= 0 {
			t.Fatalf("day %d infectedToday = %v, want > 0", i, day.InfectedToday)
		}
		if i == 1 {
			first = day
		}
	}
	if last := model.Last(); last.Infected <= first.Infected {
		t.Fatalf("infected day 14 = %v, want more than day 1 %v", last.Infected, first.Infected)
	}
	if got := model.Last().Date; got != "2020-03-15" {
		t.Fatalf("Date = %q, want 2020-03-15", got)
	}
}

func TestSimulateOneDayDrawsThreeNoiseValues(t *testing.T) {
	noise := &fixedNoise{}
	model := newTestModel(noise)
	model.SimulateOneDay(NoEffect())
	if noise.draws != 3 {
		t.Fatalf("draws = %d, want 3", noise.draws)
	}
}

func TestCompartmentsStayNonNegative(t *testing.T) {
	params := DefaultParams()
	params.R0 = 8
	model := NewModel(params, calendar.MustParse("2020-03-01"), 5000, random.NewSampler("stress", random.StreamSimulation))
	for i := 0; i < 400; i++ {
		day := model.SimulateOneDay(NoEffect())
		values := map[string]float64{
			"susceptible":  day.Susceptible,
			"infected":     day.Infected,
			"recovered":    day.Recovered,
			"hospitalized": day.Hospitalized,
			"dead":         day.Dead,
			"vaccination":  day.VaccinationRate,
		}
		for name, value := range values {
			if value < 0 || math.IsNaN(value) {
				t.Fatalf("day %d %s = %v, want non-negative", i, name, value)
			}
		}
	}
}

func TestMitigationLowersReproductionNumber(t *testing.T) {
	open := newTestModel(&fixedNoise{})
	closed := newTestModel(&fixedNoise{})
	for i := 0; i < 30; i++ {
		open.SimulateOneDay(NoEffect())
		closed.SimulateOneDay(Effect{Mult: 0.3})
	}
	if closed.Last().R >= open.Last().R {
		t.Fatalf("mitigated R = %v, want below %v", closed.Last().R, open.Last().R)
	}
}

func TestLowStabilityDampensMitigation(t *testing.T) {
	calm := newTestModel(&fixedNoise{})
	unrest := newTestModel(&fixedNoise{})
	for i := 0; i < 120; i++ {
		calm.SimulateOneDay(Effect{Mult: 0.3})
		unrest.SimulateOneDay(Effect{Mult: 0.3, StabilityCost: 2.5})
	}
	if unrest.Last().Stability >= 0 {
		t.Fatalf("stability = %v, want negative", unrest.Last().Stability)
	}
	if unrest.Last().R <= calm.Last().R {
		t.Fatalf("unrest R = %v, want above calm R %v", unrest.Last().R, calm.Last().R)
	}
}

func TestBordersClosedStopsImports(t *testing.T) {
	model := NewModel(DefaultParams(), calendar.MustParse("2020-03-01"), 0, &fixedNoise{})
	day := model.SimulateOneDay(Effect{Mult: 1, BordersClosed: true})
	if day.InfectedToday != 0 {
		t.Fatalf("infectedToday = %v, want 0 with closed borders and no cases", day.InfectedToday)
	}
	day = model.SimulateOneDay(NoEffect())
	if day.InfectedToday != DefaultParams().ImportedInfections {
		t.Fatalf("infectedToday = %v, want %v imported", day.InfectedToday, DefaultParams().ImportedInfections)
	}
}

func TestVaccinationIsCapped(t *testing.T) {
	model := newTestModel(&fixedNoise{})
	for i := 0; i < 500; i++ {
		model.SimulateOneDay(Effect{Mult: 1, VaccinationPerDay: 0.01})
	}
	if got := model.Last().VaccinationRate; got != DefaultParams().VaccinationMaxRate {
		t.Fatalf("VaccinationRate = %v, want %v", got, DefaultParams().VaccinationMaxRate)
	}
}

func TestDeathsFollowTimeToDeathDelay(t *testing.T) {
	model := newTestModel(&fixedNoise{})
	params := model.Params()
	for i := 1; i < params.TimeToDeathDays; i++ {
		if day := model.SimulateOneDay(NoEffect()); day.DeadToday != 0 {
			t.Fatalf("day %d deadToday = %v, want 0 before the delay elapses", i, day.DeadToday)
		}
	}
	day := model.SimulateOneDay(NoEffect())
	want := 3 * params.MortalityMean
	if math.Abs(day.DeadToday-want) > 1e-12 {
		t.Fatalf("deadToday = %v, want %v", day.DeadToday, want)
	}
}

func TestOverwhelmedHospitalsRaiseMortality(t *testing.T) {
	params := DefaultParams()
	params.HospitalCapacity = 1
	model := NewModel(params, calendar.MustParse("2020-03-01"), 1000, &fixedNoise{})
	var day DayState
	for i := 0; i < 10; i++ {
		day = model.SimulateOneDay(NoEffect())
	}
	if day.Mortality != params.MortalityMean*params.OverwhelmedMortalityMultiplier {
		t.Fatalf("Mortality = %v, want %v", day.Mortality, params.MortalityMean*params.OverwhelmedMortalityMultiplier)
	}
}

func TestStatsTrackDetectedInfections(t *testing.T) {
	model := newTestModel(&fixedNoise{})
	params := model.Params()
	for i := 0; i < params.IncubationDays; i++ {
		model.SimulateOneDay(Effect{Mult: 1, Cost: 10})
	}
	stats := model.Last().Stats
	if stats.DetectedInfections.Today != 3 {
		t.Fatalf("detected today = %v, want 3 (day 0 seed after incubation)", stats.DetectedInfections.Today)
	}
	if stats.CostTotal != float64(10*params.IncubationDays) {
		t.Fatalf("CostTotal = %v, want %v", stats.CostTotal, 10*params.IncubationDays)
	}
	if stats.DetectedInfections.Avg7Day != stats.DetectedInfections.Total/7 {
		t.Fatalf("Avg7Day = %v, want %v", stats.DetectedInfections.Avg7Day, stats.DetectedInfections.Total/7)
	}
}

func TestRewindOneDayRestoresPreviousDay(t *testing.T) {
	model := NewModel(DefaultParams(), calendar.MustParse("2020-03-01"), 3, random.NewSampler("rewind", random.StreamSimulation))
	for i := 0; i < 5; i++ {
		model.SimulateOneDay(NoEffect())
	}
	before := model.Last()
	model.SimulateOneDay(Effect{Mult: 0.5, Cost: 3})
	if !model.RewindOneDay() {
		t.Fatal("expected rewind to succeed")
	}
	if model.Last() != before {
		t.Fatalf("Last = %+v, want %+v", model.Last(), before)
	}

	for model.RewindOneDay() {
	}
	if model.Len() != 1 {
		t.Fatalf("Len = %d, want day 0 kept", model.Len())
	}
}

func TestNextDate(t *testing.T) {
	model := newTestModel(&fixedNoise{})
	model.SimulateOneDay(NoEffect())
	want := time.Date(2020, time.March, 3, 0, 0, 0, 0, time.UTC)
	if !model.NextDate().Equal(want) {
		t.Fatalf("NextDate = %v, want %v", model.NextDate(), want)
	}
}
