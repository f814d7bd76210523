package event

import (
	"maps"
	"strconv"
)

// Sampler is the event random stream.
type Sampler interface {
	Float64() float64
	IntN(n int) int
	Shuffle(n int, swap func(i, j int))
}

// Formatter renders numeric placeholder values.
type Formatter interface {
	Format(value float64) string
}

// Localizer resolves message keys for the player's locale.
type Localizer interface {
	Lookup(key string) (string, bool)
}

// State is the per-day trigger snapshot: remaining cooldowns and the event
// data accumulated up to that day.
type State struct {
	Cooldowns map[string]int `json:"cooldowns"`
	Data      Data           `json:"data"`
}

// Fired reports whether the trigger with id is cooling down.
func (s State) Fired(id string) bool {
	return s.Cooldowns[id] > 0
}

// Engine evaluates triggers day by day.
//
// An Engine is not safe for concurrent use; each game owns one.
type Engine struct {
	triggers  []Trigger
	sampler   Sampler
	formatter Formatter
	localizer Localizer
	history   []State
}

// NewEngine returns an engine whose first snapshot (day 0) has every trigger
// eligible.
func NewEngine(triggers []Trigger, sampler Sampler, formatter Formatter) *Engine {
	initial := State{Cooldowns: make(map[string]int, len(triggers))}
	for _, trigger := range triggers {
		initial.Cooldowns[trigger.ID] = 0
	}
	return &Engine{
		triggers:  triggers,
		sampler:   sampler,
		formatter: formatter,
		history:   []State{initial},
	}
}

// SetLocalizer sets the texts source for keyed definitions.
func (e *Engine) SetLocalizer(l Localizer) {
	e.localizer = l
}

// Len reports how many daily snapshots exist.
func (e *Engine) Len() int {
	return len(e.history)
}

// State returns the latest snapshot.
func (e *Engine) State() State {
	last := e.history[len(e.history)-1]
	return State{Cooldowns: maps.Clone(last.Cooldowns), Data: last.Data}
}

// Trigger returns the trigger with id.
func (e *Engine) Trigger(id string) (Trigger, bool) {
	for _, trigger := range e.triggers {
		if trigger.ID == id {
			return trigger, true
		}
	}
	return Trigger{}, false
}

// Evaluate records the snapshot for the day in input and returns the event
// that fires, if any. When fire is false cooldowns and data still advance
// but no trigger is considered.
func (e *Engine) Evaluate(input Input, fire bool) *Event {
	prev := e.history[len(e.history)-1]

	cooldowns := make(map[string]int, len(prev.Cooldowns))
	for id, remaining := range prev.Cooldowns {
		cooldowns[id] = max(0, remaining-1)
	}
	data := e.accumulate(prev, input)
	ctx := Context{Input: input, Data: data}

	var fired *Event
	if fire {
		var eligible []int
		for i, trigger := range e.triggers {
			if cooldowns[trigger.ID] == 0 {
				eligible = append(eligible, i)
			}
		}
		e.sampler.Shuffle(len(eligible), func(i, j int) {
			eligible[i], eligible[j] = eligible[j], eligible[i]
		})
		for _, i := range eligible {
			trigger := e.triggers[i]
			if trigger.Condition == nil || !trigger.Condition(ctx) {
				continue
			}
			cooldowns[trigger.ID] = trigger.Cooldown
			if trigger.Cooldown <= 0 {
				cooldowns[trigger.ID] = Once
			}
			fired = e.instantiate(trigger, ctx)
			break
		}
	}

	e.history = append(e.history, State{Cooldowns: cooldowns, Data: data})
	return fired
}

// Rewind drops the latest snapshot. The first snapshot is never removed.
func (e *Engine) Rewind() bool {
	if len(e.history) <= 1 {
		return false
	}
	e.history = e.history[:len(e.history)-1]
	return true
}

func (e *Engine) instantiate(trigger Trigger, ctx Context) *Event {
	event := &Event{TriggerID: trigger.ID}
	if len(trigger.Events) == 0 {
		return event
	}
	def := trigger.Events[e.sampler.IntN(len(trigger.Events))]
	scope := newScope(ctx)
	event.Title = interpolate(e.text(def.Key, "title", def.Title), scope, e.formatter)
	event.Text = interpolate(e.text(def.Key, "text", def.Text), scope, e.formatter)
	event.Help = interpolate(e.text(def.Key, "help", def.Help), scope, e.formatter)
	event.Choices = append([]Choice(nil), def.Choices...)
	for i := range event.Choices {
		event.Choices[i].Label = e.text(def.Key, "choice."+strconv.Itoa(i), event.Choices[i].Label)
	}
	return event
}

func (e *Engine) text(key, field, fallback string) string {
	if key == "" || e.localizer == nil {
		return fallback
	}
	if value, ok := e.localizer.Lookup(key + "." + field); ok {
		return value
	}
	return fallback
}
