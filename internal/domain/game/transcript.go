package game

import (
	"bytes"
	"encoding/json"
	"maps"
	"strings"

	"github.com/swehq/corona-game/internal/core/calendar"
	"github.com/swehq/corona-game/internal/core/random"
	"github.com/swehq/corona-game/internal/domain/epidemic"
	"github.com/swehq/corona-game/internal/domain/mitigation"
	apperrors "github.com/swehq/corona-game/internal/platform/errors"
)

// GameData is the persisted transcript of a game.
type GameData struct {
	ScenarioName string                      `json:"scenarioName"`
	RandomSeed   random.Seed                 `json:"randomSeed"`
	Mitigations  MitigationsData             `json:"mitigations"`
	Simulation   []epidemic.DayState         `json:"simulation"`
	EventChoices map[string][]EventAndChoice `json:"eventChoices"`
}

// MitigationsData is the mitigation part of a transcript.
type MitigationsData struct {
	History        mitigation.History  `json:"history"`
	Params         []mitigation.Param  `json:"params"`
	ControlChanges map[string][]string `json:"controlChanges"`
}

// EventAndChoice records the answer given to an event.
type EventAndChoice struct {
	TriggerID   string `json:"triggerId"`
	Title       string `json:"title"`
	ChoiceIndex int    `json:"choiceIndex"`
}

// Data returns the transcript of the game so far.
func (g *Game) Data() GameData {
	choices := make(map[string][]EventAndChoice, len(g.choices))
	for date, list := range g.choices {
		choices[date] = append([]EventAndChoice(nil), list...)
	}
	changes := make(map[string][]string, len(g.controlChanges))
	for date, lines := range g.controlChanges {
		changes[date] = append([]string(nil), lines...)
	}
	var history mitigation.History
	for _, entry := range g.history.Entries() {
		_ = history.Append(entry.Date, entry.Diff)
	}
	return GameData{
		ScenarioName: g.scenario.Name,
		RandomSeed:   g.seed,
		Mitigations: MitigationsData{
			History:        history,
			Params:         g.Params(),
			ControlChanges: changes,
		},
		Simulation:   g.Days(),
		EventChoices: choices,
	}
}

// Encode writes data as JSON.
func Encode(data GameData) ([]byte, error) {
	return json.Marshal(data)
}

// Decode parses a transcript. Every failure is a coded transcript error.
func Decode(raw []byte) (GameData, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return GameData{}, apperrors.Wrap(apperrors.CodeTranscriptMalformed, "decode transcript", err)
	}
	for _, field := range []string{"scenarioName", "randomSeed", "mitigations", "simulation"} {
		if value, ok := probe[field]; !ok || bytes.Equal(bytes.TrimSpace(value), []byte("null")) {
			return GameData{}, apperrors.WithMetadata(apperrors.CodeTranscriptMalformed, "transcript field missing: "+field, map[string]string{"field": field})
		}
	}

	var data GameData
	if err := json.Unmarshal(raw, &data); err != nil {
		if strings.Contains(err.Error(), "parse date") {
			return GameData{}, apperrors.Wrap(apperrors.CodeTranscriptBadDate, "decode transcript", err)
		}
		return GameData{}, apperrors.Wrap(apperrors.CodeTranscriptMalformed, "decode transcript", err)
	}
	if strings.TrimSpace(data.ScenarioName) == "" {
		return GameData{}, apperrors.New(apperrors.CodeTranscriptMalformed, "transcript scenario name is empty")
	}
	if err := CheckDates(data); err != nil {
		return GameData{}, err
	}
	if data.EventChoices == nil {
		data.EventChoices = map[string][]EventAndChoice{}
	}
	if data.Mitigations.ControlChanges == nil {
		data.Mitigations.ControlChanges = map[string][]string{}
	}
	return data, nil
}

// CheckDates verifies every date a transcript carries is a calendar day.
func CheckDates(data GameData) error {
	dates := make([]string, 0, len(data.Simulation)+len(data.EventChoices))
	for _, day := range data.Simulation {
		dates = append(dates, day.Date)
	}
	for date := range maps.Keys(data.EventChoices) {
		dates = append(dates, date)
	}
	for date := range maps.Keys(data.Mitigations.ControlChanges) {
		dates = append(dates, date)
	}
	for _, date := range dates {
		if _, err := calendar.Parse(date); err != nil {
			return apperrors.WrapWithMetadata(apperrors.CodeTranscriptBadDate, "transcript date", map[string]string{"date": date}, err)
		}
	}
	return nil
}
