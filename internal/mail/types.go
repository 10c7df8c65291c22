package mail

// Person is a display name / address pair.
type Person struct {
	Name    string `json:"name,omitempty"`
	Address string `json:"address,omitempty"`
}

// EmailSummary is the compact projection of a message returned by search.
// It is a snapshot of upstream state at fetch time and never mutated.
type EmailSummary struct {
	ID             string   `json:"id"`
	Subject        string   `json:"subject"`
	From           string   `json:"from"`
	FromName       string   `json:"from_name"`
	To             []string `json:"to"`
	Date           string   `json:"date"`
	DateTime       string   `json:"datetime"`
	Preview        string   `json:"preview"`
	HasAttachments bool     `json:"has_attachments"`
	ConversationID string   `json:"conversation_id"`
	Importance     string   `json:"importance"`
}

// EmailDetail is a message with its full body, converted once at fetch time
// when plain text was requested for an HTML body.
type EmailDetail struct {
	ID             string   `json:"id"`
	Subject        string   `json:"subject"`
	From           Person   `json:"from"`
	To             []Person `json:"to"`
	Date           string   `json:"date"`
	Body           string   `json:"body"`
	HasAttachments bool     `json:"has_attachments"`
	ConversationID string   `json:"conversation_id"`
}

// ConversationMessage is one message inside an assembled conversation.
// Body is nil when the caller opted out of bodies.
type ConversationMessage struct {
	Position int     `json:"position"`
	ID       string  `json:"id"`
	Date     string  `json:"date"`
	From     string  `json:"from"`
	FromName string  `json:"from_name"`
	Preview  string  `json:"preview"`
	Body     *string `json:"body"`
}

// Conversation is an assembled message thread, ordered by received time
// ascending with 1-indexed positions.
type Conversation struct {
	ConversationID string                `json:"conversation_id"`
	Subject        string                `json:"subject,omitempty"`
	Participants   []string              `json:"participants,omitempty"`
	MessageCount   int                   `json:"message_count,omitempty"`
	DateRange      string                `json:"date_range,omitempty"`
	Messages       []ConversationMessage `json:"messages,omitempty"`
}

// Attachment is attachment metadata with the upstream type-namespace prefix
// stripped from the kind.
type Attachment struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
	Type        string `json:"type"`
}

// BulkEntry is one slot of a bulk conversation result: either a full
// conversation, or a stub carrying only the id plus an error marker.
type BulkEntry struct {
	ConversationID string                `json:"conversation_id"`
	Subject        string                `json:"subject,omitempty"`
	Participants   []string              `json:"participants,omitempty"`
	MessageCount   int                   `json:"message_count,omitempty"`
	DateRange      string                `json:"date_range,omitempty"`
	Messages       []ConversationMessage `json:"messages,omitempty"`
	Error          string                `json:"error,omitempty"`
}

// BulkStats reports timing and success counts for a bulk retrieval.
type BulkStats struct {
	Total                int   `json:"total"`
	Successful           int   `json:"successful"`
	Failed               int   `json:"failed"`
	ElapsedMS            int64 `json:"elapsed_ms"`
	AvgMSPerConversation int64 `json:"avg_ms_per_conversation"`
}

// BulkResult is the outcome of a bulk conversation retrieval.
type BulkResult struct {
	Conversations []BulkEntry `json:"conversations"`
	Stats         BulkStats   `json:"stats"`
}
