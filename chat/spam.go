package chat

import "strings"

// SpamWindow is the gap in seconds under which an identical message from the
// same slot counts as a repeat.
const SpamWindow = 10

// DetectSpam returns a copy of events with Spam flags populated.
//
// Each event is compared with its immediate predecessor only. When both came
// from the same slot, the later one is flagged if either of the rules below
// holds. Events with an unknown slot (NoSlot) are never paired, not even with
// each other.
//
// Rules:
//   - it repeats the same key less than SpamWindow seconds later, or
//   - both are text chat and, after trimming, they share the first two and
//     the last two characters (templated spam with a varying middle).
//
// Flags already set on the input are kept, so running it twice gives the
// same result.
func DetectSpam(events []Event) []Event {
	out := make([]Event, len(events))
	copy(out, events)

	for i := 1; i < len(out); i++ {
		prev, next := out[i-1], &out[i]
		if prev.PlayerSlot == NoSlot || prev.PlayerSlot != next.PlayerSlot {
			continue
		}
		if next.Time-prev.Time < SpamWindow && prev.comparableKey() == next.comparableKey() {
			next.Spam = true
		}
		if prev.Kind == KindChat && next.Kind == KindChat && sameTemplate(prev.Key, next.Key) {
			next.Spam = true
		}
	}
	return out
}

func sameTemplate(a, b string) bool {
	ra := []rune(strings.TrimSpace(a))
	rb := []rune(strings.TrimSpace(b))
	return string(head(ra)) == string(head(rb)) && string(tail(ra)) == string(tail(rb))
}

func head(r []rune) []rune {
	if len(r) < 2 {
		return r
	}
	return r[:2]
}

func tail(r []rune) []rune {
	if len(r) < 2 {
		return r
	}
	return r[len(r)-2:]
}
