package match

import (
	"errors"
	"testing"

	"github.com/onnwee/match-chat/backend/chat"
)

const samplePayload = `{
  "match_id": 3334005345,
  "players": [
    {"player_slot": 0, "hero_id": 14, "account_id": 1001, "personaname": "pudge_enjoyer"},
    {"player_slot": 128, "hero_id": 8, "account_id": 2002, "personaname": ""}
  ],
  "chat": [
    {"time": -45, "type": "chat", "unit": "pudge_enjoyer", "key": "gl hf ", "slot": 0, "player_slot": 0},
    {"time": 12, "type": "chatwheel", "key": "76", "slot": 5, "player_slot": 128, "unit": "jugg"},
    {"time": 13, "type": "buyback_log", "key": "x", "player_slot": 128},
    {"time": "oops", "type": "chat", "key": "lag", "slot": 6},
    {"type": "chat", "key": 42}
  ]
}`

func TestParsePayload(t *testing.T) {
	m, err := ParsePayload([]byte(samplePayload))
	if err != nil {
		t.Fatalf("ParsePayload: %v", err)
	}
	if m.ID != 3334005345 {
		t.Errorf("ID = %d", m.ID)
	}
	if m.Skipped != 1 {
		t.Errorf("Skipped = %d, want 1", m.Skipped)
	}
	if len(m.Events) != 4 {
		t.Fatalf("got %d events, want 4", len(m.Events))
	}

	first := m.Events[0]
	if first.Key != "gl hf " {
		t.Errorf("display key must be kept verbatim, got %q", first.Key)
	}
	if first.Time != -45 || first.PlayerSlot != 0 || first.Kind != chat.KindChat {
		t.Errorf("unexpected first event: %+v", first)
	}
	if first.HeroID != 14 || first.AccountID != 1001 || first.Name != "pudge_enjoyer" {
		t.Errorf("player metadata not joined: %+v", first)
	}

	wheel := m.Events[1]
	if wheel.Kind != chat.KindChatWheel || wheel.Key != "76" || wheel.PlayerSlot != 128 {
		t.Errorf("unexpected wheel event: %+v", wheel)
	}
	if wheel.Name != "jugg" {
		t.Errorf("expected unit fallback for empty personaname, got %q", wheel.Name)
	}

	broken := m.Events[2]
	if broken.HasTime() {
		t.Errorf("non-numeric time should be untimed, got %v", broken.Time)
	}
	if broken.PlayerSlot != 129 {
		t.Errorf("slot index 6 should map to player slot 129, got %d", broken.PlayerSlot)
	}

	bare := m.Events[3]
	if bare.PlayerSlot != chat.NoSlot || bare.HasTime() {
		t.Errorf("missing slot/time not degraded: %+v", bare)
	}
	if bare.Key != "42" {
		t.Errorf("numeric key = %q, want 42", bare.Key)
	}
}

func TestParsePayloadNumericStringTime(t *testing.T) {
	m, err := ParsePayload([]byte(`{"chat":[{"time":" 17.5 ","type":"chat","key":"a","player_slot":1}]}`))
	if err != nil {
		t.Fatalf("ParsePayload: %v", err)
	}
	if m.Events[0].Time != 17.5 {
		t.Errorf("Time = %v, want 17.5", m.Events[0].Time)
	}
}

func TestParsePayloadErrors(t *testing.T) {
	if _, err := ParsePayload([]byte(`{"chat": [`)); err == nil {
		t.Error("expected error for truncated json")
	}
	if _, err := ParsePayload([]byte(`{"match_id": 1}`)); !errors.Is(err, ErrNoChat) {
		t.Errorf("expected ErrNoChat, got %v", err)
	}
	if _, err := ParsePayload([]byte(`{"match_id": 1, "chat": null}`)); !errors.Is(err, ErrNoChat) {
		t.Errorf("expected ErrNoChat for null chat, got %v", err)
	}
}

func TestParsePayloadEmptyChat(t *testing.T) {
	m, err := ParsePayload([]byte(`{"match_id": 5, "chat": []}`))
	if err != nil {
		t.Fatalf("ParsePayload: %v", err)
	}
	if len(m.Events) != 0 {
		t.Errorf("expected no events, got %d", len(m.Events))
	}
}
