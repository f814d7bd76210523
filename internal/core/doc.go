// Package core provides domain-agnostic primitives shared by the simulation
// packages.
//
// It is organized into subpackages:
//
//   - random: seed handling and seeded samplers (normal, positive-normal,
//     shuffling) with snapshotable generator state
//   - calendar: ISO calendar-day parsing and day arithmetic
//
// Nothing in core knows about epidemics, mitigations or events. Those live in
// the internal/domain packages and are built on top of these primitives.
package core
