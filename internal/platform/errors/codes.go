// Package errors provides coded domain errors.
package errors

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Transcript errors
	CodeTranscriptMalformed         Code = "TRANSCRIPT_MALFORMED"
	CodeTranscriptUnknownScenario   Code = "TRANSCRIPT_UNKNOWN_SCENARIO"
	CodeTranscriptBadDate           Code = "TRANSCRIPT_BAD_DATE"
	CodeTranscriptUnknownMitigation Code = "TRANSCRIPT_UNKNOWN_MITIGATION"
	CodeTranscriptEventMismatch     Code = "TRANSCRIPT_EVENT_MISMATCH"

	// Leaderboard errors
	CodeLeaderboardRejected Code = "LEADERBOARD_REJECTED"
)

// Structural reports whether c marks a transcript that cannot be replayed at
// all.
func (c Code) Structural() bool {
	switch c {
	case CodeTranscriptMalformed,
		CodeTranscriptUnknownScenario,
		CodeTranscriptBadDate,
		CodeTranscriptUnknownMitigation,
		CodeTranscriptEventMismatch:
		return true
	default:
		return false
	}
}
