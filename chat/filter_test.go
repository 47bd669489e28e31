package chat

import (
	"errors"
	"testing"
)

func sampleRaw() []Event {
	return DetectSpam([]Event{
		chatAt(0, 1, "gl hf"),
		chatAt(0, 2, "gl hf"),
		wheelAt(1, 3, "76"),
		chatAt(128, 4, "gg"),
		wheelAt(129, 5, "12"),
		wheelAt(129, 6, "12"),
		chatAt(NoSlot, 7, "???"),
	})
}

// allStates enumerates every combination of the five toggles.
func allStates() []FilterState {
	var out []FilterState
	for mask := 0; mask < 32; mask++ {
		out = append(out, FilterState{
			ShowRadiant:   mask&1 != 0,
			ShowDire:      mask&2 != 0,
			ShowChat:      mask&4 != 0,
			ShowChatWheel: mask&8 != 0,
			ShowSpam:      mask&16 != 0,
		})
	}
	return out
}

func TestApplyFiltersUnionRemoval(t *testing.T) {
	raw := sampleRaw()
	for _, state := range allStates() {
		removed := make(map[int]bool)
		for _, k := range Filters() {
			if state.Enabled(k) {
				continue
			}
			for i, e := range raw {
				if k.Matches(e) {
					removed[i] = true
				}
			}
		}
		var want []Event
		for i, e := range raw {
			if !removed[i] {
				want = append(want, e)
			}
		}

		got := ApplyFilters(state, raw)
		if len(got) != len(want) {
			t.Fatalf("state %+v: got %d events, want %d", state, len(got), len(want))
		}
		for i := range got {
			if got[i] != want[i] {
				t.Errorf("state %+v: event %d = %+v, want %+v", state, i, got[i], want[i])
			}
		}
	}
}

func TestApplyFiltersAllOnReturnsRaw(t *testing.T) {
	raw := sampleRaw()
	all := FilterState{ShowRadiant: true, ShowDire: true, ShowChat: true, ShowChatWheel: true, ShowSpam: true}
	got := ApplyFilters(all, raw)
	if len(got) != len(raw) {
		t.Fatalf("got %d events, want %d", len(got), len(raw))
	}
}

func TestApplyFiltersRadiantOffIgnoresOtherToggles(t *testing.T) {
	raw := sampleRaw()
	state := FilterState{ShowRadiant: false, ShowDire: true, ShowChat: true, ShowChatWheel: true, ShowSpam: true}
	for _, e := range ApplyFilters(state, raw) {
		if e.Team() == TeamRadiant {
			t.Errorf("radiant event survived: %v", e)
		}
	}
}

func TestApplyFiltersUnknownSlotSurvivesTeamFilters(t *testing.T) {
	raw := sampleRaw()
	state := FilterState{ShowRadiant: false, ShowDire: false, ShowChat: true, ShowChatWheel: true, ShowSpam: true}
	got := ApplyFilters(state, raw)
	if len(got) != 1 || got[0].PlayerSlot != NoSlot {
		t.Fatalf("expected only the unknown-slot event, got %v", got)
	}
}

func TestCountMatches(t *testing.T) {
	raw := sampleRaw()
	want := map[FilterKind]int{
		FilterRadiant:   3,
		FilterDire:      3,
		FilterChat:      4,
		FilterChatWheel: 3,
		FilterSpam:      2,
	}
	for k, n := range want {
		if got := CountMatches(k, raw); got != n {
			t.Errorf("CountMatches(%s) = %d, want %d", k, got, n)
		}
	}
}

func TestParseFilterKind(t *testing.T) {
	for _, k := range Filters() {
		got, err := ParseFilterKind(string(k))
		if err != nil || got != k {
			t.Errorf("ParseFilterKind(%q) = %q, %v", k, got, err)
		}
	}
	for _, bad := range []string{"", "Radiant", "allies", "spam "} {
		if _, err := ParseFilterKind(bad); !errors.Is(err, ErrInvalidFilterKind) {
			t.Errorf("ParseFilterKind(%q) error = %v, want ErrInvalidFilterKind", bad, err)
		}
	}
}

func TestFilterStateSet(t *testing.T) {
	s := DefaultFilterState()
	if s.ShowSpam || !s.ShowRadiant || !s.ShowDire || !s.ShowChat || !s.ShowChatWheel {
		t.Fatalf("unexpected defaults: %+v", s)
	}
	next, err := s.Set(FilterSpam, true)
	if err != nil {
		t.Fatalf("Set: %v", err)
	}
	if !next.ShowSpam || s.ShowSpam {
		t.Errorf("Set must return a modified copy: before %+v after %+v", s, next)
	}
	if _, err := s.Set("bogus", true); !errors.Is(err, ErrInvalidFilterKind) {
		t.Errorf("Set(bogus) error = %v", err)
	}
}
