// Package event decides once per simulated day whether a narrative event
// fires.
//
// An Engine evaluates a list of Triggers against the day just simulated and
// an evolving Data accumulator. Each trigger carries a cooldown; the
// per-trigger cooldowns and the accumulator are snapshotted once per day in
// an ordered history so a rewind restores them exactly.
//
// The engine never mutates mitigations. A chosen Choice yields an Action,
// and the caller schedules or cancels the matching event mitigation before
// composing the next day.
package event

import (
	"time"

	"github.com/swehq/corona-game/internal/domain/epidemic"
	"github.com/swehq/corona-game/internal/domain/mitigation"
)

// Once is the cooldown assigned to triggers that fire at most once.
const Once = 1<<31 - 1

// Input is what the caller knows about the day being evaluated.
type Input struct {
	Date time.Time
	Day  epidemic.DayState
	// TwoWeeksAgo is the day fourteen days before Day (or the baseline).
	TwoWeeksAgo epidemic.DayState
	// Mitigations is the configuration the day was simulated under.
	Mitigations   mitigation.Configuration
	BordersClosed bool
}

// Context is passed to trigger conditions.
type Context struct {
	Input
	Data Data
}

// Condition decides whether a trigger fires.
type Condition func(Context) bool

// Trigger is a cooldown-gated condition with candidate events.
type Trigger struct {
	ID        string
	Condition Condition
	// Cooldown in days before the trigger is eligible again. Zero means the
	// trigger fires at most once per game.
	Cooldown int
	Events   []Definition
}

// Definition is an event template. Title, Text and Help may contain
// {{dotted.path}} placeholders. When Key is set and the engine has a
// Localizer, Key+".title", Key+".text", Key+".help" and Key+".choice.<i>"
// replace the literal texts.
type Definition struct {
	Key     string
	Title   string
	Text    string
	Help    string
	Choices []Choice
}

// Choice is one answer the player can give to an event.
type Choice struct {
	Label  string
	Action Action
}

// ActionKind tags what a choice does to mitigations.
type ActionKind int

const (
	// ActionNone leaves mitigations unchanged.
	ActionNone ActionKind = iota
	// ActionSchedule adds (or replaces by id) an event mitigation.
	ActionSchedule
	// ActionCancel removes the event mitigation with CancelID.
	ActionCancel
)

// Action is the mitigation side-effect of a choice.
type Action struct {
	Kind       ActionKind
	Mitigation mitigation.EventMitigation
	CancelID   string
}

// Schedule returns an action that schedules m.
func Schedule(m mitigation.EventMitigation) Action {
	return Action{Kind: ActionSchedule, Mitigation: m}
}

// Cancel returns an action that removes the event mitigation with id.
func Cancel(id string) Action {
	return Action{Kind: ActionCancel, CancelID: id}
}

// Apply folds the action into the scheduled list, starting on startDay.
func (a Action) Apply(list mitigation.EventMitigations, startDay int) mitigation.EventMitigations {
	switch a.Kind {
	case ActionSchedule:
		return list.Add(a.Mitigation, startDay)
	case ActionCancel:
		return list.Remove(a.CancelID)
	default:
		return list
	}
}

// Event is a fired, interpolated event.
type Event struct {
	TriggerID string   `json:"triggerId"`
	Title     string   `json:"title"`
	Text      string   `json:"text"`
	Help      string   `json:"help,omitempty"`
	Choices   []Choice `json:"-"`
}

// Choice returns choice i.
func (e Event) Choice(i int) (Choice, bool) {
	if i < 0 || i >= len(e.Choices) {
		return Choice{}, false
	}
	return e.Choices[i], true
}
