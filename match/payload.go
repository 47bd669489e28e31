// Package match turns match-data payloads into chat events and imports them into storage.
//
// Payloads follow the OpenDota match document: a top-level "chat" array whose entries
// carry player_slot, time, type and key, plus a "players" array used to fill in hero,
// account and display name. Parsing is tolerant: a bad field degrades the event rather
// than failing the whole match.
package match

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/onnwee/match-chat/backend/chat"
)

// ErrNoChat is returned when a payload has no chat array (e.g. the match was not parsed yet).
var ErrNoChat = errors.New("match payload has no chat")

// Match is the chat log of one match in received order.
type Match struct {
	ID     int64
	Events []chat.Event
	// Skipped counts chat entries of a type other than chat or chatwheel.
	Skipped int
}

// ParsePayload decodes a match document.
func ParsePayload(data []byte) (*Match, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("parse match payload: invalid json")
	}
	root := gjson.ParseBytes(data)

	m := &Match{ID: root.Get("match_id").Int()}

	entries := root.Get("chat")
	if !entries.IsArray() {
		return nil, ErrNoChat
	}

	players := make(map[int]gjson.Result)
	root.Get("players").ForEach(func(_, p gjson.Result) bool {
		if s := p.Get("player_slot"); s.Type == gjson.Number {
			players[int(s.Int())] = p
		}
		return true
	})

	m.Events = make([]chat.Event, 0, len(entries.Array()))
	entries.ForEach(func(_, entry gjson.Result) bool {
		kind, ok := chat.ParseKind(entry.Get("type").String())
		if !ok {
			m.Skipped++
			return true
		}
		ev := chat.Event{
			PlayerSlot: parseSlot(entry),
			Time:       parseTime(entry.Get("time")),
			Kind:       kind,
			Key:        entry.Get("key").String(),
			Name:       entry.Get("unit").String(),
		}
		if p, ok := players[ev.PlayerSlot]; ok {
			ev.HeroID = int(p.Get("hero_id").Int())
			ev.AccountID = p.Get("account_id").Int()
			if name := p.Get("personaname").String(); name != "" {
				ev.Name = name
			}
		}
		m.Events = append(m.Events, ev)
		return true
	})
	return m, nil
}

// parseSlot prefers player_slot and falls back to the 0-9 "slot" index.
func parseSlot(entry gjson.Result) int {
	if ps := entry.Get("player_slot"); ps.Type == gjson.Number {
		return int(ps.Int())
	}
	if s := entry.Get("slot"); s.Type == gjson.Number {
		idx := int(s.Int())
		switch {
		case idx < 0:
			return chat.NoSlot
		case idx < 5:
			return idx
		default:
			return 128 + idx - 5
		}
	}
	return chat.NoSlot
}

func parseTime(v gjson.Result) float64 {
	switch v.Type {
	case gjson.Number:
		return v.Float()
	case gjson.String:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.Str), 64)
		if err == nil {
			return f
		}
	}
	return math.NaN()
}
