package chat

import (
	"strconv"
	"strings"
)

// Target is the audience an event was delivered to.
type Target string

const (
	TargetAll    Target = "all"
	TargetAllies Target = "allies"
)

// broadcastWheelIDs are the chat-wheel lines the game plays to both teams.
var broadcastWheelIDs = map[int]struct{}{
	75:  {},
	76:  {},
	108: {},
	109: {},
	110: {},
}

// firstVoiceLineID is the lowest chat-wheel id that ships with an audio clip.
const firstVoiceLineID = 86

// TargetOf classifies the audience of e. Text chat is always TargetAll here;
// chat-wheel lines are TargetAllies unless they are one of the broadcast ids.
// Unparsable wheel ids fall back to TargetAllies.
func TargetOf(e Event) Target {
	if e.Kind != KindChatWheel {
		return TargetAll
	}
	id, ok := wheelID(e)
	if !ok {
		return TargetAllies
	}
	if _, broadcast := broadcastWheelIDs[id]; broadcast {
		return TargetAll
	}
	return TargetAllies
}

// HasVoiceLine reports whether e is a chat-wheel line with playable audio.
func HasVoiceLine(e Event) bool {
	if e.Kind != KindChatWheel {
		return false
	}
	id, ok := wheelID(e)
	return ok && id >= firstVoiceLineID
}

func wheelID(e Event) (int, bool) {
	id, err := strconv.Atoi(strings.TrimSpace(e.Key))
	if err != nil {
		return 0, false
	}
	return id, true
}
