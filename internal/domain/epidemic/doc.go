// Package epidemic implements the discrete delay-kernel epidemic model.
//
// The model keeps the full ordered history of DayState values. Each new day
// is derived from fixed offsets and windows into that history (incubation,
// infectious window, recovery, time to death, waning immunity,
// hospitalization stay) rather than from instantaneous rates, which makes it
// a discrete renewal process. Lookups before the first day resolve to a
// synthetic baseline day with no infections.
//
// Apart from three noise draws per day (transmission, mortality,
// hospitalization rate) taken from the injected Noise source in that order,
// SimulateOneDay is a pure fold over the history and the supplied Effect.
package epidemic
