package epidemic

// DayState is one simulated day. It is never mutated once produced.
type DayState struct {
	Date string `json:"date"`

	Susceptible       float64 `json:"susceptible"`
	Infected          float64 `json:"infected"`
	InfectedToday     float64 `json:"infectedToday"`
	Recovered         float64 `json:"recovered"`
	RecoveredToday    float64 `json:"recoveredToday"`
	Hospitalized      float64 `json:"hospitalized"`
	HospitalizedToday float64 `json:"hospitalizedToday"`
	Dead              float64 `json:"dead"`
	DeadToday         float64 `json:"deadToday"`

	R               float64 `json:"r"`
	Mortality       float64 `json:"mortality"`
	VaccinationRate float64 `json:"vaccinationRate"`
	// Stability drifts below zero when mitigations are too costly for too
	// long; every other numeric field is non-negative.
	Stability float64 `json:"stability"`

	Stats Stats `json:"stats"`
}

// Stats are the derived, player-facing numbers for a day.
type Stats struct {
	DetectedInfections            DetectedInfections `json:"detectedInfections"`
	DetectedActiveInfectionsTotal float64            `json:"detectedActiveInfectionsTotal"`
	Mortality                     float64            `json:"mortality"`
	CostTotal                     float64            `json:"costTotal"`
	HospitalsUtilization          float64            `json:"hospitalsUtilization"`
}

// DetectedInfections are rounded infection counts as reported with the
// incubation lag.
type DetectedInfections struct {
	Today   float64 `json:"today"`
	Total   float64 `json:"total"`
	Avg7Day float64 `json:"avg7Day"`
}

// Effect is the mitigation tuple one day is simulated under.
type Effect struct {
	// Mult scales transmission; 1 means no mitigation.
	Mult float64
	// Cost is the economic cost charged today.
	Cost float64
	// StabilityCost lowers today's stability target.
	StabilityCost float64
	// VaccinationPerDay is added to the cumulative vaccination rate.
	VaccinationPerDay float64
	// BordersClosed stops the daily imported infections.
	BordersClosed bool
	// ImportedInfections is extra cross-border drift injected today.
	ImportedInfections float64
}

// NoEffect is the identity effect: nothing enacted.
func NoEffect() Effect {
	return Effect{Mult: 1}
}
