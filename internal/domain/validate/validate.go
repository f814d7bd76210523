// Package validate replays a submitted transcript from its scenario and seed
// and checks that every recorded day matches the recomputation.
//
// Each validation builds its own game, so one Validator may serve
// concurrent callers.
package validate

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/swehq/corona-game/internal/domain/epidemic"
	"github.com/swehq/corona-game/internal/domain/game"
	"github.com/swehq/corona-game/internal/domain/mitigation"
	"github.com/swehq/corona-game/internal/domain/scenario"
	apperrors "github.com/swehq/corona-game/internal/platform/errors"
)

const (
	tracerName = "github.com/swehq/corona-game/internal/domain/validate"
	spanName   = "validate.Transcript"
)

// Result classifies a transcript.
type Result string

const (
	ResultValid            Result = "valid"
	ResultIncorrectNumbers Result = "incorrect-numbers"
	ResultLostStability    Result = "lost-stability"
	ResultTooShort         Result = "too-short"
	ResultTooLong          Result = "too-long"
	ResultBadStructure     Result = "bad-structure"
)

// Failure is one violation found during replay. Index is -1 when the
// violation is not tied to a single day.
type Failure struct {
	Result  Result         `json:"result"`
	Code    apperrors.Code `json:"code,omitempty"`
	Index   int            `json:"index"`
	Date    string         `json:"date,omitempty"`
	Path    string         `json:"path,omitempty"`
	Message string         `json:"message"`
}

// Report is the outcome of one validation. Result is the class of the first
// failure, or ResultValid.
type Report struct {
	Result   Result    `json:"result"`
	Failures []Failure `json:"failures,omitempty"`
}

// Valid reports whether the transcript may be accepted.
func (r Report) Valid() bool {
	return r.Result == ResultValid
}

// Results lists the distinct failure classes in the order they were found.
func (r Report) Results() []Result {
	var out []Result
	for _, f := range r.Failures {
		if !slices.Contains(out, f.Result) {
			out = append(out, f.Result)
		}
	}
	return out
}

// Options tunes a Validator.
type Options struct {
	// Lenient keeps scanning after the first failure to collect further
	// failure classes. Structural failures always stop the replay.
	Lenient bool
	// Epsilon defaults to DefaultEpsilon.
	Epsilon float64
	// Mitigations defaults to mitigation.DefaultCatalogue.
	Mitigations *mitigation.Catalogue
	// Tracer defaults to the global provider's tracer.
	Tracer trace.Tracer
}

// Validator replays transcripts against a scenario catalogue.
type Validator struct {
	scenarios   *scenario.Catalogue
	mitigations *mitigation.Catalogue
	lenient     bool
	eps         float64
	tracer      trace.Tracer
}

// New returns a Validator resolving scenario names through scenarios.
func New(scenarios *scenario.Catalogue, opts Options) *Validator {
	if scenarios == nil {
		scenarios = scenario.DefaultCatalogue()
	}
	if opts.Mitigations == nil {
		opts.Mitigations = mitigation.DefaultCatalogue()
	}
	if opts.Epsilon <= 0 {
		opts.Epsilon = DefaultEpsilon
	}
	if opts.Tracer == nil {
		opts.Tracer = otel.Tracer(tracerName)
	}
	return &Validator{
		scenarios:   scenarios,
		mitigations: opts.Mitigations,
		lenient:     opts.Lenient,
		eps:         opts.Epsilon,
		tracer:      opts.Tracer,
	}
}

// ValidateJSON decodes raw and validates it. Decoding failures are reported
// as ResultBadStructure.
func (v *Validator) ValidateJSON(ctx context.Context, raw []byte) Report {
	data, err := game.Decode(raw)
	if err != nil {
		_, span := v.tracer.Start(ctx, spanName)
		r := &run{}
		r.structural(err, -1, "")
		v.end(span, r.report)
		return r.report
	}
	return v.Validate(ctx, data)
}

// Validate replays data and compares it with the recomputation.
func (v *Validator) Validate(ctx context.Context, data game.GameData) (report Report) {
	_, span := v.tracer.Start(ctx, spanName, trace.WithAttributes(
		attribute.String("scenario", data.ScenarioName),
		attribute.Int("days", len(data.Simulation)),
	))
	defer func() { v.end(span, report) }()
	defer func() {
		if p := recover(); p != nil {
			r := &run{}
			r.structural(apperrors.New(apperrors.CodeTranscriptMalformed, fmt.Sprintf("replay failed: %v", p)), -1, "")
			report = r.report
		}
	}()

	r := &run{lenient: v.lenient, eps: v.eps}
	v.replay(r, data)
	if r.report.Result == "" {
		r.report.Result = ResultValid
	}
	return r.report
}

func (v *Validator) end(span trace.Span, report Report) {
	span.SetAttributes(attribute.String("result", string(report.Result)))
	if !report.Valid() {
		span.SetStatus(otelcodes.Error, string(report.Result))
	}
	span.End()
}

func (v *Validator) replay(r *run, data game.GameData) {
	s, err := v.scenarios.Lookup(data.ScenarioName)
	if err != nil {
		r.structural(apperrors.WrapWithMetadata(apperrors.CodeTranscriptUnknownScenario, "lookup scenario",
			map[string]string{"scenario": data.ScenarioName}, err), -1, "")
		return
	}
	if err := game.CheckDates(data); err != nil {
		r.structural(err, -1, "")
		return
	}
	if err := checkHistory(v.mitigations, data.Mitigations.History); err != nil {
		r.structural(err, -1, "")
		return
	}
	g, err := game.New(game.Config{Scenario: s, Seed: data.RandomSeed, Mitigations: v.mitigations})
	if err != nil {
		r.structural(apperrors.Wrap(apperrors.CodeTranscriptMalformed, "start replay", err), -1, "")
		return
	}

	path, ok, err := Equal(g.Params(), data.Mitigations.Params, r.eps)
	if err != nil {
		r.structural(apperrors.Wrap(apperrors.CodeTranscriptMalformed, "compare params", err), -1, "")
		return
	}
	if !ok && r.fail(Failure{Result: ResultIncorrectNumbers, Index: -1, Path: "mitigations.params." + path,
		Message: "calibrated params differ"}) {
		return
	}

	submitted := data.Simulation
	rampUp := g.Days()
	for i, day := range rampUp {
		if i >= len(submitted) {
			r.fail(Failure{Result: ResultTooShort, Index: len(submitted),
				Message: fmt.Sprintf("transcript ends during ramp-up with %d days", len(submitted))})
			return
		}
		if r.compareDay(i, day, submitted[i]) {
			return
		}
	}

	for i := len(rampUp); i < len(submitted); i++ {
		date := g.NextDate()
		if diff, ok := data.Mitigations.History.DiffOn(date); ok {
			if err := g.SetMitigations(diff); err != nil {
				r.structural(apperrors.WrapWithMetadata(apperrors.CodeTranscriptUnknownMitigation, "replay mitigation change",
					map[string]string{"date": date}, err), i, date)
				return
			}
		}
		step, err := g.MoveForward()
		switch {
		case errors.Is(err, game.ErrGameLost):
			r.fail(Failure{Result: ResultLostStability, Index: i, Date: date,
				Message: "transcript continues after stability collapsed"})
			return
		case errors.Is(err, game.ErrFinished):
			r.fail(Failure{Result: ResultTooLong, Index: i, Date: date,
				Message: fmt.Sprintf("transcript has %d days, scenario ends after %d", len(submitted), s.DayCount())})
			return
		case err != nil:
			r.structural(apperrors.Wrap(apperrors.CodeTranscriptMalformed, "replay day", err), i, date)
			return
		}
		if r.compareDay(i, step.Day, submitted[i]) {
			return
		}
		if err := replayChoices(g, date, data.EventChoices[date]); err != nil {
			r.structural(err, i, date)
			return
		}
	}

	last := len(submitted) - 1
	if g.IsGameLost() {
		if r.fail(Failure{Result: ResultLostStability, Index: last, Date: g.LastDay().Date,
			Message: fmt.Sprintf("final stability %.3f is below %d", g.LastDay().Stability, game.LossThreshold)}) {
			return
		}
	} else if len(submitted) < s.DayCount() {
		if r.fail(Failure{Result: ResultTooShort, Index: last,
			Message: fmt.Sprintf("transcript has %d days, scenario needs %d", len(submitted), s.DayCount())}) {
			return
		}
	}

	if err := checkReplayLog(g.Data(), data); err != nil {
		r.structural(err, -1, "")
	}
}

// run accumulates the failures of one replay.
type run struct {
	lenient       bool
	eps           float64
	numbersFailed bool
	report        Report
}

// fail records f and reports whether the replay should stop.
func (r *run) fail(f Failure) bool {
	if r.report.Result == "" {
		r.report.Result = f.Result
	}
	r.report.Failures = append(r.report.Failures, f)
	return !r.lenient || f.Result == ResultBadStructure
}

func (r *run) structural(err error, index int, date string) {
	r.fail(Failure{
		Result:  ResultBadStructure,
		Code:    apperrors.CodeOf(err),
		Index:   index,
		Date:    date,
		Message: err.Error(),
	})
}

// compareDay records the first numeric divergence only; later days diverge
// as a consequence.
func (r *run) compareDay(i int, want, got epidemic.DayState) bool {
	if r.numbersFailed {
		return false
	}
	path, ok, err := Equal(want, got, r.eps)
	if err != nil {
		r.structural(apperrors.Wrap(apperrors.CodeTranscriptMalformed, "compare day", err), i, got.Date)
		return true
	}
	if ok {
		return false
	}
	r.numbersFailed = true
	return r.fail(Failure{Result: ResultIncorrectNumbers, Index: i, Date: want.Date, Path: path,
		Message: fmt.Sprintf("day %d differs at %s", i, path)})
}

func checkHistory(catalogue *mitigation.Catalogue, history mitigation.History) error {
	for _, entry := range history.Entries() {
		for _, id := range slices.Sorted(maps.Keys(entry.Diff)) {
			level := entry.Diff[id]
			if level == "" {
				level = mitigation.LevelOff
			}
			if !catalogue.HasLevel(id, level) {
				return apperrors.WithMetadata(apperrors.CodeTranscriptUnknownMitigation,
					fmt.Sprintf("unknown mitigation %s=%s", id, level),
					map[string]string{"date": entry.Date, "id": id, "level": level})
			}
		}
	}
	return nil
}

func replayChoices(g *game.Game, date string, choices []game.EventAndChoice) error {
	for _, c := range choices {
		meta := map[string]string{"date": date, "triggerId": c.TriggerID}
		pending := g.Pending()
		if pending == nil || pending.TriggerID != c.TriggerID {
			return apperrors.WithMetadata(apperrors.CodeTranscriptEventMismatch, "event choice without matching event", meta)
		}
		if err := g.Choose(c.ChoiceIndex); err != nil {
			return apperrors.WrapWithMetadata(apperrors.CodeTranscriptEventMismatch, "replay event choice", meta, err)
		}
	}
	return nil
}

// checkReplayLog verifies the submitted logs hold exactly what the replay
// recorded: no extra history entries, choices or control changes.
func checkReplayLog(replayed, submitted game.GameData) error {
	want, got := replayed.Mitigations.History.Entries(), submitted.Mitigations.History.Entries()
	if !slices.EqualFunc(want, got, func(a, b mitigation.HistoryEntry) bool {
		return a.Date == b.Date && maps.Equal(a.Diff, b.Diff)
	}) {
		return apperrors.New(apperrors.CodeTranscriptMalformed, "mitigation history does not match replay")
	}
	for date, choices := range submitted.EventChoices {
		if len(choices) > 0 && len(replayed.EventChoices[date]) != len(choices) {
			return apperrors.WithMetadata(apperrors.CodeTranscriptEventMismatch, "event choice was not replayed",
				map[string]string{"date": date})
		}
	}
	if !maps.EqualFunc(replayed.Mitigations.ControlChanges, submitted.Mitigations.ControlChanges, slices.Equal[[]string]) {
		return apperrors.New(apperrors.CodeTranscriptMalformed, "control changes do not match replay")
	}
	return nil
}
