package chat

import (
	"fmt"
	"math"
	"strings"
)

// Kind discriminates free text chat from chat-wheel voice lines.
type Kind string

const (
	KindChat      Kind = "chat"
	KindChatWheel Kind = "chatwheel"
)

// ParseKind maps a payload type string onto a Kind.
func ParseKind(s string) (Kind, bool) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindChat:
		return KindChat, true
	case KindChatWheel:
		return KindChatWheel, true
	default:
		return "", false
	}
}

// NoSlot marks an event whose player slot could not be read.
const NoSlot = -1

// Team is the side a player slot belongs to.
type Team int

const (
	TeamUnknown Team = iota
	TeamRadiant
	TeamDire
)

func (t Team) String() string {
	switch t {
	case TeamRadiant:
		return "radiant"
	case TeamDire:
		return "dire"
	default:
		return "unknown"
	}
}

// IsRadiantSlot reports whether slot belongs to the radiant side.
// Radiant slots are 0-127, dire slots have the high bit set.
func IsRadiantSlot(slot int) bool {
	return slot < 128
}

// TeamOf returns the team for slot, TeamUnknown for NoSlot or other negatives.
func TeamOf(slot int) Team {
	if slot < 0 {
		return TeamUnknown
	}
	if IsRadiantSlot(slot) {
		return TeamRadiant
	}
	return TeamDire
}

// Event is one chat line as recorded during the match.
//
// Time is seconds since the horn and is NaN when the source carried no usable
// timestamp. Key is the message text for KindChat (kept verbatim for display)
// and the voice-line id for KindChatWheel.
type Event struct {
	PlayerSlot int
	Time       float64
	Kind       Kind
	Key        string

	HeroID    int
	AccountID int64
	Name      string

	// Spam is set by DetectSpam and never cleared.
	Spam bool
}

// HasTime reports whether the event carries a usable timestamp.
func (e Event) HasTime() bool {
	return !math.IsNaN(e.Time) && !math.IsInf(e.Time, 0)
}

// Team returns the side of the sending player.
func (e Event) Team() Team {
	return TeamOf(e.PlayerSlot)
}

// comparableKey is the key used when checking for repeats. Chat text is
// trimmed since some clients send trailing whitespace; voice-line ids are
// compared verbatim.
func (e Event) comparableKey() string {
	if e.Kind == KindChat {
		return strings.TrimSpace(e.Key)
	}
	return e.Key
}

func (e Event) String() string {
	return fmt.Sprintf("[%s slot=%d t=%s] %s %q", e.Kind, e.PlayerSlot, FormatSeconds(e.Time), e.Team(), e.Key)
}

// FormatSeconds renders a match clock such as "1:05", "-0:30" or "1:02:03".
// Untimed values render as "--:--".
func FormatSeconds(sec float64) string {
	if math.IsNaN(sec) || math.IsInf(sec, 0) {
		return "--:--"
	}
	sign := ""
	if sec < 0 {
		sign = "-"
		sec = -sec
	}
	total := int64(math.Floor(sec))
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	if h > 0 {
		return fmt.Sprintf("%s%d:%02d:%02d", sign, h, m, s)
	}
	return fmt.Sprintf("%s%d:%02d", sign, m, s)
}
