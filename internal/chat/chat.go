package chat

import "strings"

// AssistantID is the reserved peer id that routes messages to the language
// model instead of a human user. It is never a row in the users table.
const AssistantID = "ai_assistant"

// ChatID derives the deterministic key for a pair of participants: the two
// ids sorted lexicographically and joined with an underscore. Symmetric in
// its arguments, so both sides of a conversation land in the same room.
func ChatID(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + "_" + b
}

// IsAssistant reports whether id addresses the assistant, case-insensitively.
func IsAssistant(id string) bool {
	return strings.EqualFold(id, AssistantID)
}

// SplitChatID recovers the two participants from a chat id. The assistant id
// contains the separator itself, so it is peeled off before the generic
// split; user ids are uuids and never contain an underscore.
func SplitChatID(chatID string) (a, b string, ok bool) {
	if rest, found := strings.CutPrefix(chatID, AssistantID+"_"); found {
		if rest == "" {
			return "", "", false
		}
		return AssistantID, rest, true
	}
	if rest, found := strings.CutSuffix(chatID, "_"+AssistantID); found {
		if rest == "" {
			return "", "", false
		}
		return rest, AssistantID, true
	}
	a, b, ok = strings.Cut(chatID, "_")
	if !ok || a == "" || b == "" {
		return "", "", false
	}
	return a, b, true
}
