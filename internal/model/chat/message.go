package chat

// Role identifies who authored a transcript entry.
type Role string

const (
	RoleUser Role = "user"
	RoleBot  Role = "bot"
)

// Message is a single transcript entry. Values are never mutated once appended.
type Message struct {
	Sender Role   `json:"sender"`
	Text   string `json:"text"`
}

// UserMessage builds a user-authored entry.
func UserMessage(text string) Message {
	return Message{Sender: RoleUser, Text: text}
}

// BotMessage builds an assistant-authored entry.
func BotMessage(text string) Message {
	return Message{Sender: RoleBot, Text: text}
}
