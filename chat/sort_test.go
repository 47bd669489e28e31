package chat

import (
	"math"
	"testing"
)

func TestSortEventsSpamAfterCleanAtSameTime(t *testing.T) {
	spam := chatAt(0, 5, "spam")
	spam.Spam = true
	clean := chatAt(1, 5, "clean")

	for _, in := range [][]Event{{spam, clean}, {clean, spam}} {
		got := SortEvents(in)
		if got[0].Key != "clean" || got[1].Key != "spam" {
			t.Errorf("SortEvents(%v) = %v, want clean before spam", in, got)
		}
	}
}

func TestSortEventsOrder(t *testing.T) {
	d := chatAt(0, 1, "d")
	d.Spam = true
	in := []Event{
		chatAt(0, 3, "a"),
		chatAt(0, 1, "b"),
		chatAt(0, math.NaN(), "c"),
		d,
		chatAt(1, 1, "e"),
		chatAt(1, -20, "f"),
	}
	got := SortEvents(in)
	want := []string{"f", "b", "e", "d", "a", "c"}
	for i, key := range want {
		if got[i].Key != key {
			t.Fatalf("position %d = %q, want %q (got %v)", i, got[i].Key, key, got)
		}
	}
	if in[0].Key != "a" {
		t.Error("input slice was reordered")
	}
}

func TestSortEventsStableAcrossRepeats(t *testing.T) {
	in := []Event{chatAt(0, 1, "x"), chatAt(1, 1, "y"), chatAt(2, 1, "z")}
	first := SortEvents(in)
	second := SortEvents(first)
	for i := range first {
		if first[i].Key != second[i].Key || first[i].Key != in[i].Key {
			t.Fatalf("order changed between passes: %v -> %v", first, second)
		}
	}
}
