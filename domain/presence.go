package domain

// PresenceEntry is the derived view of an online customer. It exists
// only while the customer holds at least one open connection.
type PresenceEntry struct {
	ParticipantID string
	DisplayName   string
	Connections   int
}

// TypingState is the ephemeral typing flag for a conversation. It is
// never persisted and is superseded by the next update for the same
// customer key.
type TypingState struct {
	CustomerID    string
	ParticipantID string
	IsTyping      bool
}
