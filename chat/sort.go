package chat

import (
	"cmp"
	"slices"
)

// SortEvents returns a copy of events ordered by time. At equal times clean
// events come before spam; otherwise the input order is kept. Events without
// a usable time go last.
func SortEvents(events []Event) []Event {
	out := slices.Clone(events)
	slices.SortStableFunc(out, compareEvents)
	return out
}

func compareEvents(a, b Event) int {
	if c := compareTime(a, b); c != 0 {
		return c
	}
	switch {
	case a.Spam == b.Spam:
		return 0
	case a.Spam:
		return 1
	default:
		return -1
	}
}

func compareTime(a, b Event) int {
	at, bt := a.HasTime(), b.HasTime()
	switch {
	case at && bt:
		return cmp.Compare(a.Time, b.Time)
	case at:
		return -1
	case bt:
		return 1
	default:
		return 0
	}
}
