package mitigation

import "slices"

// EventMitigation is a temporary adjustment attached to an event choice.
type EventMitigation struct {
	// ID lets a later choice replace or cancel the entry; empty entries stack.
	ID string `json:"id,omitempty"`
	// Duration in days; 0 cancels the entry with the same ID.
	Duration int `json:"duration"`
	// RMult scales transmission; 0 is treated as 1.
	RMult              float64 `json:"rMult,omitempty"`
	StabilityCost      float64 `json:"stabilityCost,omitempty"`
	VaccinationPerDay  float64 `json:"vaccinationPerDay,omitempty"`
	OneTimeCost        float64 `json:"oneTimeCost,omitempty"`
	ImportedInfections float64 `json:"importedInfections,omitempty"`
}

// ActiveEventMitigation is an EventMitigation scheduled from StartDay.
type ActiveEventMitigation struct {
	EventMitigation
	StartDay int
}

// ActiveOn reports whether the entry applies on day.
func (a ActiveEventMitigation) ActiveOn(day int) bool {
	return day >= a.StartDay && day < a.StartDay+a.Duration
}

// EventMitigations is an immutable list of scheduled event mitigations.
// Every operation returns a new list so earlier values can be kept as
// rewind snapshots.
type EventMitigations struct {
	entries []ActiveEventMitigation
}

// Entries returns the scheduled entries.
func (l EventMitigations) Entries() []ActiveEventMitigation {
	return slices.Clone(l.entries)
}

// Add schedules m from startDay. An entry with the same non-empty ID is
// replaced; a zero duration only removes.
func (l EventMitigations) Add(m EventMitigation, startDay int) EventMitigations {
	entries := l.entries
	if m.ID != "" {
		entries = slices.DeleteFunc(slices.Clone(entries), func(e ActiveEventMitigation) bool { return e.ID == m.ID })
	} else {
		entries = slices.Clone(entries)
	}
	if m.Duration > 0 {
		entries = append(entries, ActiveEventMitigation{EventMitigation: m, StartDay: startDay})
	}
	return EventMitigations{entries: entries}
}

// Remove cancels the entry with id.
func (l EventMitigations) Remove(id string) EventMitigations {
	if id == "" {
		return l
	}
	return EventMitigations{entries: slices.DeleteFunc(slices.Clone(l.entries), func(e ActiveEventMitigation) bool { return e.ID == id })}
}

// Prune drops entries that ended before day.
func (l EventMitigations) Prune(day int) EventMitigations {
	return EventMitigations{entries: slices.DeleteFunc(slices.Clone(l.entries), func(e ActiveEventMitigation) bool {
		return e.StartDay+e.Duration <= day
	})}
}

// ActiveOn returns the entries that apply on day.
func (l EventMitigations) ActiveOn(day int) []ActiveEventMitigation {
	var active []ActiveEventMitigation
	for _, e := range l.entries {
		if e.ActiveOn(day) {
			active = append(active, e)
		}
	}
	return active
}
