// Package chat contains the in-match chat review pipeline.
//
// A completed match yields an ordered list of chat events: free text chat and
// chat-wheel voice lines. The pipeline runs in one direction:
//   - DetectSpam: single pass over the raw order, flagging an event when it
//     repeats (or nearly repeats) the message right before it from the same
//     player slot.
//   - TargetOf: derives whether an event was heard by everyone or allies only.
//   - ApplyFilters: removes every event matched by a filter that is switched
//     off (radiant, dire, chat, chatwheel, spam). Matches are always computed
//     against the raw sequence.
//   - SortEvents: chronological, clean events ahead of spam at equal times.
//
// Engine ties these together for a single view of a single match. It is not
// safe for concurrent use; callers that share a view across goroutines must
// guard it themselves.
package chat
