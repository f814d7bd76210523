package mitigation

import (
	"encoding/json"
	"math"
	"reflect"
	"testing"

	"github.com/swehq/corona-game/internal/core/calendar"
	"github.com/swehq/corona-game/internal/core/random"
)

func testComposer(t *testing.T) (*Catalogue, *Composer) {
	t.Helper()
	catalogue := DefaultCatalogue()
	params := catalogue.Calibrate(random.NewSampler("composer", random.StreamCalibration))
	return catalogue, NewComposer(catalogue, params)
}

func TestCalibrateIsDeterministicPerSeed(t *testing.T) {
	catalogue := DefaultCatalogue()
	first := catalogue.Calibrate(random.NewSampler("seed-a", random.StreamCalibration))
	second := catalogue.Calibrate(random.NewSampler("seed-a", random.StreamCalibration))
	if !reflect.DeepEqual(first, second) {
		t.Fatal("expected identical calibration for identical seeds")
	}
	other := catalogue.Calibrate(random.NewSampler("seed-b", random.StreamCalibration))
	if reflect.DeepEqual(first, other) {
		t.Fatal("expected different calibration for different seeds")
	}
}

func TestCalibrateBoundsAndSigns(t *testing.T) {
	catalogue := DefaultCatalogue()
	params := catalogue.Calibrate(random.NewSampler("bounds", random.StreamCalibration))

	levels := 0
	for _, def := range catalogue.Definitions {
		levels += len(def.Levels)
	}
	if len(params) != levels {
		t.Fatalf("len(params) = %d, want %d", len(params), levels)
	}
	for _, p := range params {
		if p.Effectiveness < 0 || p.Effectiveness > maxEffectiveness {
			t.Fatalf("%s/%s effectiveness = %v, out of range", p.ID, p.Level, p.Effectiveness)
		}
		if p.Cost <= 0 {
			t.Fatalf("%s/%s cost = %v, want positive", p.ID, p.Level, p.Cost)
		}
		if p.ID == "compensations" && p.StabilityCost >= 0 {
			t.Fatalf("compensations stability cost = %v, want negative", p.StabilityCost)
		}
		if p.ID == "schools" && !p.Schools {
			t.Fatal("expected schools params to carry the school-calendar flag")
		}
		if p.ID == "borders" && !p.Borders {
			t.Fatal("expected borders params to carry the borders flag")
		}
	}
}

func TestComposeMultipliesEffectiveness(t *testing.T) {
	_, composer := testComposer(t)
	date := calendar.MustParse("2020-04-01")
	bars, _ := composer.Param("bars", "on")
	rrr, _ := composer.Param("rrr", "on")

	effect := composer.Compose(date, 10, Configuration{"bars": "on", "rrr": "on"}, EventMitigations{})
	want := (1 - bars.Effectiveness) * (1 - rrr.Effectiveness)
	if math.Abs(effect.Mult-want) > 1e-15 {
		t.Fatalf("Mult = %v, want %v", effect.Mult, want)
	}
	if effect.Cost != bars.Cost+rrr.Cost {
		t.Fatalf("Cost = %v, want %v", effect.Cost, bars.Cost+rrr.Cost)
	}
	if effect.BordersClosed {
		t.Fatal("expected borders open")
	}
}

func TestComposeChargesOnlySelectedLevel(t *testing.T) {
	_, composer := testComposer(t)
	date := calendar.MustParse("2020-04-01")
	cfg := Configuration{"events": "1000"}.Merge(Configuration{"events": "10"})

	effect := composer.Compose(date, 1, cfg, EventMitigations{})
	ten, _ := composer.Param("events", "10")
	if effect.Cost != ten.Cost || effect.StabilityCost != ten.StabilityCost {
		t.Fatalf("effect = %+v, want only level 10 charged (%v, %v)", effect, ten.Cost, ten.StabilityCost)
	}
}

func TestComposeIgnoresUnknownEntries(t *testing.T) {
	_, composer := testComposer(t)
	effect := composer.Compose(calendar.MustParse("2020-04-01"), 1, Configuration{"teleport": "on", "bars": "maximum"}, EventMitigations{})
	if effect.Mult != 1 || effect.Cost != 0 || effect.StabilityCost != 0 {
		t.Fatalf("effect = %+v, want identity", effect)
	}
}

func TestComposeSetsBordersFlag(t *testing.T) {
	_, composer := testComposer(t)
	effect := composer.Compose(calendar.MustParse("2020-04-01"), 1, Configuration{"borders": "on"}, EventMitigations{})
	if !effect.BordersClosed {
		t.Fatal("expected borders closed")
	}
}

func TestComposeSchoolBreak(t *testing.T) {
	_, composer := testComposer(t)
	all, _ := composer.Param("schools", "all")
	summer := calendar.MustParse("2020-07-15")

	for _, level := range []string{LevelOff, "universities", "all"} {
		effect := composer.Compose(summer, 1, Configuration{"schools": level}, EventMitigations{})
		if math.Abs(effect.Mult-(1-all.Effectiveness)) > 1e-15 {
			t.Fatalf("level %s: Mult = %v, want strongest %v", level, effect.Mult, 1-all.Effectiveness)
		}
		if effect.Cost != 0 || effect.StabilityCost != 0 {
			t.Fatalf("level %s: expected no charge during the break, got %+v", level, effect)
		}
	}

	autumn := composer.Compose(calendar.MustParse("2020-09-01"), 1, Configuration{"schools": "universities"}, EventMitigations{})
	universities, _ := composer.Param("schools", "universities")
	if autumn.Cost != universities.Cost {
		t.Fatalf("Cost = %v, want %v after the break", autumn.Cost, universities.Cost)
	}
}

func TestComposeVaccination(t *testing.T) {
	catalogue, composer := testComposer(t)
	if got := composer.Compose(calendar.MustParse("2020-12-31"), 1, nil, EventMitigations{}).VaccinationPerDay; got != 0 {
		t.Fatalf("VaccinationPerDay = %v, want 0 before start", got)
	}
	if got := composer.Compose(calendar.MustParse("2021-01-01"), 1, nil, EventMitigations{}).VaccinationPerDay; got != catalogue.VaccinationPerDay {
		t.Fatalf("VaccinationPerDay = %v, want %v", got, catalogue.VaccinationPerDay)
	}
}

func TestComposeEventMitigations(t *testing.T) {
	_, composer := testComposer(t)
	date := calendar.MustParse("2020-04-01")
	events := EventMitigations{}.Add(EventMitigation{ID: "panic", Duration: 3, RMult: 0.5, StabilityCost: 0.1, OneTimeCost: 1000}, 10)

	first := composer.Compose(date, 10, nil, events)
	if first.Mult != 0.5 || first.Cost != 1000 || first.StabilityCost != 0.1 {
		t.Fatalf("start day effect = %+v", first)
	}
	second := composer.Compose(date, 11, nil, events)
	if second.Cost != 0 {
		t.Fatalf("one-time cost charged again: %+v", second)
	}
	if expired := composer.Compose(date, 13, nil, events); expired.Mult != 1 {
		t.Fatalf("expired effect = %+v, want identity", expired)
	}
}

func TestEventMitigationsReplaceAndCancel(t *testing.T) {
	list := EventMitigations{}.
		Add(EventMitigation{ID: "panic", Duration: 10, RMult: 0.9}, 1).
		Add(EventMitigation{Duration: 5, StabilityCost: 0.1}, 1).
		Add(EventMitigation{Duration: 5, StabilityCost: 0.1}, 1)
	if got := len(list.Entries()); got != 3 {
		t.Fatalf("entries = %d, want 3", got)
	}

	replaced := list.Add(EventMitigation{ID: "panic", Duration: 4, RMult: 0.7}, 2)
	active := replaced.ActiveOn(2)
	panics := 0
	for _, e := range active {
		if e.ID == "panic" {
			panics++
			if e.RMult != 0.7 {
				t.Fatalf("RMult = %v, want replacement 0.7", e.RMult)
			}
		}
	}
	if panics != 1 {
		t.Fatalf("panic entries = %d, want 1", panics)
	}

	cancelled := replaced.Add(EventMitigation{ID: "panic", Duration: 0}, 3)
	for _, e := range cancelled.Entries() {
		if e.ID == "panic" {
			t.Fatal("expected zero duration to cancel the entry")
		}
	}
	if got := len(replaced.Remove("panic").Entries()); got != 2 {
		t.Fatalf("entries after Remove = %d, want 2", got)
	}
	if got := len(list.Entries()); got != 3 {
		t.Fatalf("original list changed to %d entries", got)
	}
	if got := len(list.Prune(6).Entries()); got != 1 {
		t.Fatalf("entries after Prune = %d, want 1", got)
	}
}

func TestHistoryFoldAndJSON(t *testing.T) {
	var history History
	steps := []struct {
		date string
		diff Configuration
	}{
		{"2020-03-10", Configuration{"schools": "all"}},
		{"2020-03-15", Configuration{"bars": "on"}},
		{"2020-04-01", Configuration{"schools": LevelOff}},
	}
	for _, step := range steps {
		if err := history.Append(step.date, step.diff); err != nil {
			t.Fatalf("Append(%s): %v", step.date, err)
		}
	}
	if err := history.Append("2020-03-20", Configuration{"rrr": "on"}); err == nil {
		t.Fatal("expected out-of-order append to fail")
	}

	if got := history.At("2020-03-20"); !reflect.DeepEqual(got, Configuration{"schools": "all", "bars": "on"}) {
		t.Fatalf("At(2020-03-20) = %v", got)
	}
	if got := history.At("2020-04-02"); !reflect.DeepEqual(got, Configuration{"bars": "on"}) {
		t.Fatalf("At(2020-04-02) = %v", got)
	}

	encoded, err := json.Marshal(history)
	if err != nil {
		t.Fatalf("marshal history: %v", err)
	}
	var decoded History
	if err := json.Unmarshal(encoded, &decoded); err != nil {
		t.Fatalf("unmarshal history: %v", err)
	}
	if !reflect.DeepEqual(decoded.Entries(), history.Entries()) {
		t.Fatalf("decoded = %v, want %v", decoded.Entries(), history.Entries())
	}

	history.DropFrom("2020-03-15")
	if history.Len() != 1 {
		t.Fatalf("Len after DropFrom = %d, want 1", history.Len())
	}
}

func TestHistoryRejectsMalformedDates(t *testing.T) {
	var history History
	if err := json.Unmarshal([]byte(`{"10.3.2020": {"bars": "on"}}`), &history); err == nil {
		t.Fatal("expected malformed date to be rejected")
	}
}

func TestConfigurationChanges(t *testing.T) {
	prev := Configuration{"schools": "universities"}
	next := prev.Merge(Configuration{"schools": "all", "bars": "on"})
	want := []string{"bars: off -> on", "schools: universities -> all"}
	if got := next.Changes(prev); !reflect.DeepEqual(got, want) {
		t.Fatalf("Changes = %v, want %v", got, want)
	}
	if diff := next.Diff(next.Clone()); len(diff) != 0 {
		t.Fatalf("Diff of equal configs = %v, want empty", diff)
	}
}
