package mitigation

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"sort"

	"github.com/swehq/corona-game/internal/core/calendar"
)

// Configuration maps mitigation ids to their selected level. A missing id is
// off. The same type doubles as a diff holding only changed ids.
type Configuration map[string]string

// Level returns the selected level of id.
func (c Configuration) Level(id string) string {
	if level, ok := c[id]; ok && level != "" {
		return level
	}
	return LevelOff
}

// Clone copies c.
func (c Configuration) Clone() Configuration {
	out := make(Configuration, len(c))
	maps.Copy(out, c)
	return out
}

// Merge returns c with diff applied on top.
func (c Configuration) Merge(diff Configuration) Configuration {
	out := c.Clone()
	for id, level := range diff {
		if level == "" || level == LevelOff {
			delete(out, id)
			continue
		}
		out[id] = level
	}
	return out
}

// Diff returns the ids whose level differs from prev to c.
func (c Configuration) Diff(prev Configuration) Configuration {
	diff := Configuration{}
	for id := range c {
		if c.Level(id) != prev.Level(id) {
			diff[id] = c.Level(id)
		}
	}
	for id := range prev {
		if c.Level(id) != prev.Level(id) {
			diff[id] = c.Level(id)
		}
	}
	return diff
}

// Changes describes a diff as "id: old -> new" lines, sorted by id.
func (c Configuration) Changes(prev Configuration) []string {
	diff := c.Diff(prev)
	ids := slices.Sorted(maps.Keys(diff))
	lines := make([]string, 0, len(ids))
	for _, id := range ids {
		lines = append(lines, fmt.Sprintf("%s: %s -> %s", id, prev.Level(id), c.Level(id)))
	}
	return lines
}

// HistoryEntry is the diff that took effect on Date.
type HistoryEntry struct {
	Date string
	Diff Configuration
}

// History is the append-only log of configuration diffs keyed by the date
// they took effect. It serializes as a {date: diff} object.
type History struct {
	entries []HistoryEntry
}

// Entries returns the log in chronological order.
func (h History) Entries() []HistoryEntry {
	return slices.Clone(h.entries)
}

// Len reports the number of recorded diffs.
func (h History) Len() int {
	return len(h.entries)
}

// Append records diff for date. Dates must be appended in order; an empty
// diff is ignored.
func (h *History) Append(date string, diff Configuration) error {
	if len(diff) == 0 {
		return nil
	}
	if n := len(h.entries); n > 0 && h.entries[n-1].Date >= date {
		return fmt.Errorf("append history %s: not after %s", date, h.entries[n-1].Date)
	}
	h.entries = append(h.entries, HistoryEntry{Date: date, Diff: diff.Clone()})
	return nil
}

// DropFrom removes every entry dated on or after date.
func (h *History) DropFrom(date string) {
	i := sort.Search(len(h.entries), func(i int) bool { return h.entries[i].Date >= date })
	h.entries = h.entries[:i]
}

// DiffOn returns the diff recorded for date, if any.
func (h History) DiffOn(date string) (Configuration, bool) {
	i := sort.Search(len(h.entries), func(i int) bool { return h.entries[i].Date >= date })
	if i < len(h.entries) && h.entries[i].Date == date {
		return h.entries[i].Diff.Clone(), true
	}
	return nil, false
}

// At folds every diff up to and including date into a full configuration.
func (h History) At(date string) Configuration {
	cfg := Configuration{}
	for _, entry := range h.entries {
		if entry.Date > date {
			break
		}
		cfg = cfg.Merge(entry.Diff)
	}
	return cfg
}

// MarshalJSON writes the {date: diff} form.
func (h History) MarshalJSON() ([]byte, error) {
	out := make(map[string]Configuration, len(h.entries))
	for _, entry := range h.entries {
		out[entry.Date] = entry.Diff
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads the {date: diff} form and orders it by date.
func (h *History) UnmarshalJSON(data []byte) error {
	var raw map[string]Configuration
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode mitigation history: %w", err)
	}
	entries := make([]HistoryEntry, 0, len(raw))
	for date, diff := range raw {
		if _, err := calendar.Parse(date); err != nil {
			return fmt.Errorf("decode mitigation history: %w", err)
		}
		if diff == nil {
			diff = Configuration{}
		}
		entries = append(entries, HistoryEntry{Date: date, Diff: diff})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Date < entries[j].Date })
	h.entries = entries
	return nil
}
