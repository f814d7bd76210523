package epidemic

// Params holds the fixed model constants.
type Params struct {
	R0         float64
	Population float64

	// InfectiousFrom and InfectiousTo bound the trailing window (days back)
	// whose infections are infectious today.
	InfectiousFrom int
	InfectiousTo   int
	// IncubationDays lags hospitalization and detection behind infection.
	IncubationDays      int
	RecoveryDays        int
	TimeToDeathDays     int
	ImmunityDays        int
	HospitalizationDays int

	TransmissionNoiseSD float64

	MortalityMean float64
	MortalitySD   float64

	HospitalizationRateMean float64
	HospitalizationRateSD   float64
	HospitalCapacity        float64
	// OverwhelmedMortalityMultiplier scales mortality on days that start with
	// more hospitalized than HospitalCapacity.
	OverwhelmedMortalityMultiplier float64

	RSmoothing           float64
	StabilitySmoothing   float64
	StabilityEffectScale float64

	// ImportedInfections arrive each day the borders are open.
	ImportedInfections float64
	VaccinationMaxRate float64
}

// DefaultParams returns the calibrated defaults.
func DefaultParams() Params {
	return Params{
		R0:                             2.5,
		Population:                     10_690_000,
		InfectiousFrom:                 2,
		InfectiousTo:                   7,
		IncubationDays:                 5,
		RecoveryDays:                   14,
		TimeToDeathDays:                21,
		ImmunityDays:                   180,
		HospitalizationDays:            14,
		TransmissionNoiseSD:            0.1,
		MortalityMean:                  0.005,
		MortalitySD:                    0.0005,
		HospitalizationRateMean:        0.05,
		HospitalizationRateSD:          0.005,
		HospitalCapacity:               15_000,
		OverwhelmedMortalityMultiplier: 2,
		RSmoothing:                     0.85,
		StabilitySmoothing:             0.99,
		StabilityEffectScale:           0.5,
		ImportedInfections:             3,
		VaccinationMaxRate:             0.75,
	}
}

// withDefaults fills zero-valued fields from DefaultParams so a partially
// specified Params still produces a usable model.
func (p Params) withDefaults() Params {
	d := DefaultParams()
	if p.R0 <= 0 {
		p.R0 = d.R0
	}
	if p.Population <= 0 {
		p.Population = d.Population
	}
	if p.InfectiousFrom <= 0 {
		p.InfectiousFrom = d.InfectiousFrom
	}
	if p.InfectiousTo < p.InfectiousFrom {
		p.InfectiousTo = max(d.InfectiousTo, p.InfectiousFrom)
	}
	if p.IncubationDays <= 0 {
		p.IncubationDays = d.IncubationDays
	}
	if p.RecoveryDays <= 0 {
		p.RecoveryDays = d.RecoveryDays
	}
	if p.TimeToDeathDays <= 0 {
		p.TimeToDeathDays = d.TimeToDeathDays
	}
	if p.ImmunityDays <= 0 {
		p.ImmunityDays = d.ImmunityDays
	}
	if p.HospitalizationDays <= 0 {
		p.HospitalizationDays = d.HospitalizationDays
	}
	if p.MortalityMean <= 0 {
		p.MortalityMean = d.MortalityMean
	}
	if p.HospitalizationRateMean <= 0 {
		p.HospitalizationRateMean = d.HospitalizationRateMean
	}
	if p.HospitalCapacity <= 0 {
		p.HospitalCapacity = d.HospitalCapacity
	}
	if p.OverwhelmedMortalityMultiplier <= 0 {
		p.OverwhelmedMortalityMultiplier = d.OverwhelmedMortalityMultiplier
	}
	if p.RSmoothing <= 0 || p.RSmoothing >= 1 {
		p.RSmoothing = d.RSmoothing
	}
	if p.StabilitySmoothing <= 0 || p.StabilitySmoothing >= 1 {
		p.StabilitySmoothing = d.StabilitySmoothing
	}
	if p.VaccinationMaxRate <= 0 {
		p.VaccinationMaxRate = d.VaccinationMaxRate
	}
	return p
}
