// ABOUTME: Level enum gating authorization for podium accounts
// ABOUTME: Root outranks Admin outranks Coach etc; Pending means unassigned

package user

import "strconv"

// Level is the numeric role of an account. Lower values outrank higher
// ones; comparison is the caller's concern.
type Level int

const (
	// LevelAny is not a real level; it is the "no filter" value for List.
	LevelAny Level = iota
	LevelRoot
	LevelAdmin
	LevelCoach
	LevelContestant
	LevelVisitor
	// LevelPending is the default for freshly created, unpopulated accounts.
	// It cannot be assigned through SetLevel.
	LevelPending
)

var levelStrings = map[Level]string{
	LevelRoot:       "ROOT",
	LevelAdmin:      "Contest Administrator",
	LevelCoach:      "Coach",
	LevelContestant: "Contestant",
	LevelVisitor:    "Visitor",
	LevelPending:    "Pending",
}

// String returns the human-readable role name.
func (l Level) String() string {
	if s, ok := levelStrings[l]; ok {
		return s
	}
	return "Unknown"
}

// Assignable reports whether the level may be given to an account through
// SetLevel. Any and Pending are not assignable.
func (l Level) Assignable() bool {
	return l >= LevelRoot && l <= LevelVisitor
}

// parseLevel decodes the stringified integer stored in the record hash.
// Unparseable values degrade to Pending.
func parseLevel(s string) Level {
	n, err := strconv.Atoi(s)
	if err != nil {
		return LevelPending
	}
	return Level(n)
}
