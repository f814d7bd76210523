package event

import (
	"reflect"
	"strings"
	"testing"

	"github.com/swehq/corona-game/internal/core/calendar"
	"github.com/swehq/corona-game/internal/core/random"
	"github.com/swehq/corona-game/internal/domain/epidemic"
	"github.com/swehq/corona-game/internal/domain/mitigation"
	"github.com/swehq/corona-game/internal/platform/i18n"
)

// orderedSampler keeps trigger order and always picks the first event.
type orderedSampler struct {
	value float64
	draws int
}

func (s *orderedSampler) Float64() float64 {
	s.draws++
	return s.value
}

func (s *orderedSampler) IntN(int) int { return 0 }

func (s *orderedSampler) Shuffle(int, func(i, j int)) {}

func always(Context) bool { return true }

func input(date string) Input {
	return Input{Date: calendar.MustParse(date), Day: epidemic.DayState{Date: date}}
}

func TestCooldownBlocksRefiringUntilElapsed(t *testing.T) {
	engine := NewEngine([]Trigger{{ID: "tick", Cooldown: 5, Condition: always}}, &orderedSampler{}, nil)

	var firedOn []int
	for day := 1; day <= 12; day++ {
		if event := engine.Evaluate(input("2020-03-01"), true); event != nil {
			firedOn = append(firedOn, day)
		}
	}
	if want := []int{1, 6, 11}; !reflect.DeepEqual(firedOn, want) {
		t.Fatalf("fired on %v, want %v", firedOn, want)
	}
}

func TestTriggerWithoutCooldownFiresOnce(t *testing.T) {
	engine := NewEngine([]Trigger{{ID: "once", Condition: always}}, &orderedSampler{}, nil)
	fired := 0
	for day := 0; day < 1000; day++ {
		if engine.Evaluate(input("2020-03-01"), true) != nil {
			fired++
		}
	}
	if fired != 1 {
		t.Fatalf("fired %d times, want 1", fired)
	}
	if !engine.State().Fired("once") {
		t.Fatal("expected trigger to stay cooling down")
	}
}

func TestAtMostOneEventPerDay(t *testing.T) {
	engine := NewEngine([]Trigger{
		{ID: "a", Condition: always},
		{ID: "b", Condition: always},
	}, &orderedSampler{}, nil)

	first := engine.Evaluate(input("2020-03-01"), true)
	if first == nil || first.TriggerID != "a" {
		t.Fatalf("first event = %+v, want trigger a", first)
	}
	state := engine.State()
	if state.Cooldowns["b"] != 0 {
		t.Fatalf("b cooldown = %d, want 0 (not fired)", state.Cooldowns["b"])
	}
	second := engine.Evaluate(input("2020-03-02"), true)
	if second == nil || second.TriggerID != "b" {
		t.Fatalf("second event = %+v, want trigger b", second)
	}
}

func TestEvaluateWithoutFiringStillAdvancesCooldowns(t *testing.T) {
	engine := NewEngine([]Trigger{{ID: "tick", Cooldown: 2, Condition: always}}, &orderedSampler{}, nil)
	engine.Evaluate(input("2020-03-01"), true)
	engine.Evaluate(input("2020-03-02"), false)
	if got := engine.State().Cooldowns["tick"]; got != 1 {
		t.Fatalf("cooldown = %d, want 1", got)
	}
	if event := engine.Evaluate(input("2020-03-03"), false); event != nil {
		t.Fatalf("event = %+v, want none while firing is disabled", event)
	}
}

func TestRewindRestoresSnapshot(t *testing.T) {
	engine := NewEngine([]Trigger{{ID: "tick", Cooldown: 3, Condition: always}}, &orderedSampler{}, nil)
	engine.Evaluate(input("2020-03-01"), true)
	before := engine.State()

	engine.Evaluate(input("2020-03-02"), true)
	if !engine.Rewind() {
		t.Fatal("expected rewind to succeed")
	}
	if !reflect.DeepEqual(engine.State(), before) {
		t.Fatalf("state = %+v, want %+v", engine.State(), before)
	}
	engine.Rewind()
	if engine.Rewind() {
		t.Fatal("expected first snapshot to be kept")
	}
	if engine.Len() != 1 {
		t.Fatalf("Len = %d, want 1", engine.Len())
	}
}

func TestShuffleIsSeeded(t *testing.T) {
	triggers := []Trigger{
		{ID: "a", Condition: always, Cooldown: 1},
		{ID: "b", Condition: always, Cooldown: 1},
		{ID: "c", Condition: always, Cooldown: 1},
		{ID: "d", Condition: always, Cooldown: 1},
	}
	run := func() []string {
		engine := NewEngine(triggers, random.NewSampler("shuffle", random.StreamEvents), nil)
		var ids []string
		for i := 0; i < 20; i++ {
			ids = append(ids, engine.Evaluate(input("2020-03-01"), true).TriggerID)
		}
		return ids
	}
	first, second := run(), run()
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("runs differ: %v vs %v", first, second)
	}
	seen := map[string]bool{}
	for _, id := range first {
		seen[id] = true
	}
	if len(seen) < 2 {
		t.Fatalf("expected shuffling to vary the winner, got %v", first)
	}
}

func TestEventTextIsInterpolated(t *testing.T) {
	engine := NewEngine([]Trigger{{
		ID:        "report",
		Condition: always,
		Events: []Definition{{
			Title: "Day {{date}}",
			Text:  "{{stats.detectedInfections.total}} cases, {{missing.path}} unknown",
			Help:  "{{ eventData.highMortalityDays }} bad days",
		}},
	}}, &orderedSampler{}, i18n.NewNumberFormatter("en-US"))

	in := input("2020-03-10")
	in.Day.Stats.DetectedInfections.Total = 12345
	event := engine.Evaluate(in, true)
	if event.Title != "Day 2020-03-10" {
		t.Fatalf("Title = %q", event.Title)
	}
	if event.Text != "12,345 cases, {{missing.path}} unknown" {
		t.Fatalf("Text = %q", event.Text)
	}
	if event.Help != "0 bad days" {
		t.Fatalf("Help = %q", event.Help)
	}
}

func TestInterpolateLeavesObjectsVerbatim(t *testing.T) {
	got := Interpolate("{{stats}} and {{r}}", epidemic.DayState{R: 1.5}, Data{}, nil)
	if !strings.HasPrefix(got, "{{stats}} and 1.5") {
		t.Fatalf("Interpolate = %q", got)
	}
}

func TestHighMortalityStreak(t *testing.T) {
	engine := NewEngine(nil, &orderedSampler{}, nil)
	in := input("2020-05-01")
	in.Day.Stats.Mortality = 0.05
	for i := 0; i < 3; i++ {
		engine.Evaluate(in, true)
	}
	if got := engine.State().Data.HighMortalityDays; got != 3 {
		t.Fatalf("HighMortalityDays = %d, want 3", got)
	}
	in.Day.Stats.Mortality = 0.01
	engine.Evaluate(in, true)
	if got := engine.State().Data.HighMortalityDays; got != 0 {
		t.Fatalf("HighMortalityDays = %d, want reset to 0", got)
	}
}

func TestAntivaxGateNeedsPrerequisitesAndDraw(t *testing.T) {
	gate := []Trigger{
		{ID: TriggerVaccineArrival, Condition: func(c Context) bool { return c.Date.Year() >= 2021 }},
		{ID: TriggerFirstDeath, Condition: func(c Context) bool { return c.Day.Dead >= 1 }},
	}

	sampler := &orderedSampler{value: 0.05}
	engine := NewEngine(gate, sampler, nil)
	in := input("2020-12-30")
	in.Day.Dead = 10
	engine.Evaluate(in, true)
	engine.Evaluate(in, true)
	if engine.State().Data.AntivaxEligible || sampler.draws != 0 {
		t.Fatalf("eligible before vaccine arrival (draws %d)", sampler.draws)
	}

	engine.Evaluate(input("2021-01-02"), true)
	engine.Evaluate(input("2021-01-03"), true)
	if !engine.State().Data.AntivaxEligible {
		t.Fatal("expected antivax eligibility once both triggers fired and the draw passed")
	}

	unlucky := &orderedSampler{value: 0.5}
	engine = NewEngine(gate, unlucky, nil)
	engine.Evaluate(in, true)
	engine.Evaluate(input("2021-01-02"), true)
	for i := 0; i < 5; i++ {
		engine.Evaluate(input("2021-01-03"), true)
	}
	if engine.State().Data.AntivaxEligible {
		t.Fatal("expected failed draws to keep antivax ineligible")
	}
	if unlucky.draws != 5 {
		t.Fatalf("draws = %d, want one per day after the gate opened", unlucky.draws)
	}
}

func TestDataCountsActiveMitigations(t *testing.T) {
	engine := NewEngine(nil, &orderedSampler{}, nil)
	in := input("2020-04-01")
	in.Mitigations = mitigation.Configuration{"bars": "on", "schools": mitigation.LevelOff, "rrr": "on"}
	in.BordersClosed = true
	in.TwoWeeksAgo.Stats.DetectedInfections.Avg7Day = 42
	engine.Evaluate(in, true)

	data := engine.State().Data
	if data.MitigationsActive != 2 || !data.BordersClosed || data.DetectedAvg7DayTwoWeeksAgo != 42 {
		t.Fatalf("data = %+v", data)
	}
}

func TestActionApply(t *testing.T) {
	list := Schedule(mitigation.EventMitigation{ID: "x", Duration: 3}).Apply(mitigation.EventMitigations{}, 5)
	if got := len(list.ActiveOn(5)); got != 1 {
		t.Fatalf("active = %d, want 1", got)
	}
	list = Cancel("x").Apply(list, 6)
	if got := len(list.Entries()); got != 0 {
		t.Fatalf("entries = %d, want 0 after cancel", got)
	}
	if got := (Action{}).Apply(list, 7); len(got.Entries()) != 0 {
		t.Fatal("expected no-op action to keep the list")
	}
}

func TestDefaultTriggersHaveUniqueIDs(t *testing.T) {
	seen := map[string]bool{}
	for _, trigger := range DefaultTriggers(calendar.MustParse("2021-01-01"), &orderedSampler{}) {
		if seen[trigger.ID] {
			t.Fatalf("duplicate trigger id %q", trigger.ID)
		}
		seen[trigger.ID] = true
		if trigger.Condition == nil || len(trigger.Events) == 0 {
			t.Fatalf("trigger %q is incomplete", trigger.ID)
		}
	}
}

func TestDefaultPanicTrigger(t *testing.T) {
	var panicTrigger Trigger
	for _, trigger := range DefaultTriggers(calendar.MustParse("2021-01-01"), &orderedSampler{}) {
		if trigger.ID == TriggerPanic {
			panicTrigger = trigger
		}
	}
	ctx := Context{Data: Data{DetectedAvg7DayTwoWeeksAgo: 100}}
	ctx.Day.Stats.DetectedInfections.Avg7Day = 150
	if panicTrigger.Condition(ctx) {
		t.Fatal("expected no panic below doubling")
	}
	ctx.Day.Stats.DetectedInfections.Avg7Day = 200
	if !panicTrigger.Condition(ctx) {
		t.Fatal("expected panic at doubling")
	}
}

type mapLocalizer map[string]string

func (m mapLocalizer) Lookup(key string) (string, bool) {
	value, ok := m[key]
	return value, ok
}

func TestKeyedDefinitionsUseLocalizer(t *testing.T) {
	engine := NewEngine([]Trigger{{
		ID:        "report",
		Condition: always,
		Events: []Definition{{
			Key:     "events.report.0",
			Title:   "Report",
			Text:    "fallback",
			Choices: []Choice{{Label: "Yes"}, {Label: "No"}},
		}},
	}}, &orderedSampler{}, i18n.NewNumberFormatter("cs-CZ"))
	engine.SetLocalizer(mapLocalizer{
		"events.report.0.title":    "Hlášení {{date}}",
		"events.report.0.choice.1": "Ne",
	})

	in := input("2020-03-10")
	event := engine.Evaluate(in, true)
	if event.Title != "Hlášení 2020-03-10" {
		t.Fatalf("Title = %q", event.Title)
	}
	if event.Text != "fallback" {
		t.Fatalf("Text = %q, want the literal fallback", event.Text)
	}
	if event.Choices[0].Label != "Yes" || event.Choices[1].Label != "Ne" {
		t.Fatalf("labels = %q, %q", event.Choices[0].Label, event.Choices[1].Label)
	}
}
