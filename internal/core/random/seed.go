// Package random provides seed generation and seeded samplers.
//
// Every draw that influences persisted game output goes through a Sampler
// owned by one game instance. Samplers are derived from a Seed and a named
// stream, so two games built from the same seed draw identical sequences.
package random

import (
	crand "crypto/rand"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// NewSeed generates a random seed using crypto/rand.
func NewSeed() (int64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}

	return int64(binary.LittleEndian.Uint64(b[:])), nil
}

// Seed is the canonical string form of a game seed.
//
// Transcripts may carry the seed as a JSON number or a JSON string; both
// decode to the same canonical text, which is what samplers hash.
type Seed string

// SeedFromInt converts a numeric seed to its canonical form.
func SeedFromInt(value int64) Seed {
	return Seed(strconv.FormatInt(value, 10))
}

// NewGameSeed generates a fresh seed for a new game.
func NewGameSeed() (Seed, error) {
	value, err := NewSeed()
	if err != nil {
		return "", err
	}
	return SeedFromInt(value), nil
}

// String returns the canonical seed text.
func (s Seed) String() string {
	return string(s)
}

// UnmarshalJSON accepts either a JSON number or a JSON string.
func (s *Seed) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "" || raw == "null" {
		return fmt.Errorf("seed is required")
	}
	if strings.HasPrefix(raw, `"`) {
		var text string
		if err := json.Unmarshal(data, &text); err != nil {
			return fmt.Errorf("decode seed: %w", err)
		}
		text = strings.TrimSpace(text)
		if text == "" {
			return fmt.Errorf("seed is required")
		}
		*s = Seed(text)
		return nil
	}
	var number json.Number
	if err := json.Unmarshal(data, &number); err != nil {
		return fmt.Errorf("decode seed: %w", err)
	}
	*s = Seed(number.String())
	return nil
}

// MarshalJSON always writes the canonical string form.
func (s Seed) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(s))
}
