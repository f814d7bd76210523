package event

import "github.com/swehq/corona-game/internal/domain/mitigation"

const (
	highMortalityThreshold = 0.02
	antivaxProbability     = 0.1
)

// Data is the slow-moving signal set recomputed once per day before
// conditions are evaluated.
type Data struct {
	// HighMortalityDays counts consecutive days with the mortality stat above
	// the alarm threshold.
	HighMortalityDays int `json:"highMortalityDays"`
	// AntivaxEligible latches once the vaccine has arrived, the first death
	// was announced and the daily draw succeeded.
	AntivaxEligible   bool `json:"antivaxEligible"`
	BordersClosed     bool `json:"bordersClosed"`
	MitigationsActive int  `json:"mitigationsActive"`
	// DetectedAvg7DayTwoWeeksAgo is the 7-day detected average fourteen days
	// before today.
	DetectedAvg7DayTwoWeeksAgo float64 `json:"detectedAvg7DayTwoWeeksAgo"`
}

// accumulate derives today's Data from yesterday's snapshot. It draws from
// the event stream only while the antivax gate is open and not yet latched.
func (e *Engine) accumulate(prev State, input Input) Data {
	data := Data{
		AntivaxEligible:            prev.Data.AntivaxEligible,
		BordersClosed:              input.BordersClosed,
		DetectedAvg7DayTwoWeeksAgo: input.TwoWeeksAgo.Stats.DetectedInfections.Avg7Day,
	}

	if input.Day.Stats.Mortality > highMortalityThreshold {
		data.HighMortalityDays = prev.Data.HighMortalityDays + 1
	}

	for _, level := range input.Mitigations {
		if level != "" && level != mitigation.LevelOff {
			data.MitigationsActive++
		}
	}

	if !data.AntivaxEligible && prev.Fired(TriggerVaccineArrival) && prev.Fired(TriggerFirstDeath) {
		data.AntivaxEligible = e.sampler.Float64() < antivaxProbability
	}
	return data
}
