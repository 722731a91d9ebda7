package session

import (
	"time"

	"authflow/internal/types"
)

// PartOfDay buckets the local hour: 05-11 morning, 12-17 afternoon, anything else evening.
func PartOfDay(t time.Time) string {
	switch h := t.Hour(); {
	case h >= 5 && h < 12:
		return "morning"
	case h >= 12 && h < 18:
		return "afternoon"
	default:
		return "evening"
	}
}

// Greeting renders the home screen line, e.g. "Good morning, Ann Lee".
func Greeting(now time.Time, p types.Profile) string {
	msg := "Good " + PartOfDay(now)
	if name := p.FullName(); name != "" {
		msg += ", " + name
	}
	return msg
}
