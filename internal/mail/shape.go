package mail

import (
	"strings"

	"github.com/qualitymasters/outlook-mcp/internal/format"
	"github.com/qualitymasters/outlook-mcp/internal/graph"
)

// Body output formats.
const (
	FormatText = "text"
	FormatHTML = "html"
)

const previewLimit = 200

func summaryFromMessage(m graph.Message) EmailSummary {
	var from, fromName string
	if m.From != nil {
		from = m.From.EmailAddress.Address
		fromName = m.From.EmailAddress.Name
	}

	to := make([]string, 0, len(m.ToRecipients))
	for _, r := range m.ToRecipients {
		to = append(to, r.EmailAddress.Address)
	}

	importance := m.Importance
	if importance == "" {
		importance = "normal"
	}

	return EmailSummary{
		ID:             m.ID,
		Subject:        m.Subject,
		From:           from,
		FromName:       fromName,
		To:             to,
		Date:           dayOf(m.ReceivedDateTime),
		DateTime:       m.ReceivedDateTime,
		Preview:        truncate(m.BodyPreview, previewLimit),
		HasAttachments: m.HasAttachments,
		ConversationID: m.ConversationID,
		Importance:     importance,
	}
}

func detailFromMessage(m graph.Message, bodyFormat string) EmailDetail {
	var body string
	if m.Body != nil {
		body = m.Body.Content
		if bodyFormat == FormatText && strings.EqualFold(m.Body.ContentType, "html") {
			body = format.HTMLToText(body)
		}
	}

	var from Person
	if m.From != nil {
		from = Person{Name: m.From.EmailAddress.Name, Address: m.From.EmailAddress.Address}
	}

	to := make([]Person, 0, len(m.ToRecipients))
	for _, r := range m.ToRecipients {
		to = append(to, Person{Name: r.EmailAddress.Name, Address: r.EmailAddress.Address})
	}

	return EmailDetail{
		ID:             m.ID,
		Subject:        m.Subject,
		From:           from,
		To:             to,
		Date:           m.ReceivedDateTime,
		Body:           body,
		HasAttachments: m.HasAttachments,
		ConversationID: m.ConversationID,
	}
}

// conversationMessageFromMessage projects one thread message at its
// 1-indexed position. When includeBody is false the body stays nil and the
// conversion work is skipped entirely.
func conversationMessageFromMessage(m graph.Message, position int, includeBody bool) ConversationMessage {
	var body *string
	if includeBody {
		var content string
		if m.Body != nil {
			content = m.Body.Content
			if strings.EqualFold(m.Body.ContentType, "html") {
				content = format.HTMLToText(content)
			}
		}
		body = &content
	}

	var from, fromName string
	if m.From != nil {
		from = m.From.EmailAddress.Address
		fromName = m.From.EmailAddress.Name
	}

	return ConversationMessage{
		Position: position,
		ID:       m.ID,
		Date:     m.ReceivedDateTime,
		From:     from,
		FromName: fromName,
		Preview:  truncate(m.BodyPreview, previewLimit),
		Body:     body,
	}
}

// truncate cuts s to at most n characters, never splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// dayOf reduces an RFC 3339 timestamp to day precision.
func dayOf(ts string) string {
	if len(ts) < 10 {
		return ts
	}
	return ts[:10]
}
