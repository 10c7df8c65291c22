package mail

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/qualitymasters/outlook-mcp/internal/graph"
)

// ErrNotFound indicates a conversation that does not exist or an identifier
// that failed validation.
var ErrNotFound = errors.New("conversation not found or invalid")

// Conversation ids are base64-encoded upstream (including URL-safe
// variants). Anything else is rejected before the id reaches a filter
// expression: this is an injection guard, not an optimization.
var conversationIDPattern = regexp.MustCompile(`^[A-Za-z0-9+/=_-]+$`)

const (
	maxConversationIDLength = 500
	conversationPageSize    = 100
)

// ValidConversationID reports whether id is safe to interpolate into a
// server-side filter expression.
func ValidConversationID(id string) bool {
	if id == "" || len(id) > maxConversationIDLength {
		return false
	}
	return conversationIDPattern.MatchString(id)
}

// GetConversation fetches and assembles a message thread: messages ordered
// by received time ascending, participants deduplicated and sorted, date
// range at day precision. Results are cached per (id, includeBody).
func (s *Service) GetConversation(ctx context.Context, id string, includeBody bool) (*Conversation, error) {
	if !ValidConversationID(id) {
		log.Printf("Invalid conversation_id format: %s", truncate(id, 50))

		return nil, ErrNotFound
	}

	key := fmt.Sprintf("conversation:%s:%t", id, includeBody)
	if cached, ok := s.cache.Get(key); ok {
		return cached.(*Conversation), nil
	}

	params := url.Values{}
	params.Set("$filter", fmt.Sprintf("conversationId eq '%s'", id))
	params.Set("$select", selectConversation)
	params.Set("$top", strconv.Itoa(conversationPageSize))

	var pg graph.MessagePage
	if err := s.graph.Get(ctx, s.messagesEndpoint(), params, &pg); err != nil {
		return nil, fmt.Errorf("conversation fetch failed: %w", err)
	}

	msgs := pg.Value
	if len(msgs) == 0 {
		return nil, ErrNotFound
	}

	// The API rejects $orderby combined with the conversationId filter,
	// ordering happens here.
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].ReceivedDateTime < msgs[j].ReceivedDateTime
	})

	seen := make(map[string]bool)
	var participants []string
	addParticipant := func(addr string) {
		if addr != "" && !seen[addr] {
			seen[addr] = true
			participants = append(participants, addr)
		}
	}
	for _, m := range msgs {
		if m.From != nil {
			addParticipant(m.From.EmailAddress.Address)
		}
		for _, r := range m.ToRecipients {
			addParticipant(r.EmailAddress.Address)
		}
	}
	sort.Strings(participants)

	messages := make([]ConversationMessage, 0, len(msgs))
	for i, m := range msgs {
		messages = append(messages, conversationMessageFromMessage(m, i+1, includeBody))
	}

	conv := &Conversation{
		ConversationID: id,
		Subject:        msgs[0].Subject,
		Participants:   participants,
		MessageCount:   len(msgs),
		DateRange:      dateRangeOf(msgs),
		Messages:       messages,
	}

	s.cache.Set(key, conv, ttlConversation)

	return conv, nil
}

func dateRangeOf(msgs []graph.Message) string {
	var minDay, maxDay string
	for _, m := range msgs {
		if m.ReceivedDateTime == "" {
			continue
		}
		day := dayOf(m.ReceivedDateTime)
		if minDay == "" || day < minDay {
			minDay = day
		}
		if day > maxDay {
			maxDay = day
		}
	}
	if minDay == "" {
		return ""
	}

	return minDay + " to " + maxDay
}

// conversationTask carries the per-item parameters for a bulk fetch worker,
// instead of hiding them in a captured closure.
type conversationTask struct {
	id          string
	includeBody bool
}

// GetConversationsBulk fetches several conversations concurrently. One
// conversation failing does not block the others; its slot carries an error
// marker instead. No aggregate deadline is enforced beyond each request's
// fixed timeout, so a single slow item delays only overall completion.
func (s *Service) GetConversationsBulk(ctx context.Context, ids []string, includeBody bool) BulkResult {
	if len(ids) == 0 {
		return BulkResult{Conversations: []BulkEntry{}}
	}

	unique := dedupe(ids)

	tasks := make([]conversationTask, 0, len(unique))
	for _, id := range unique {
		tasks = append(tasks, conversationTask{id: id, includeBody: includeBody})
	}

	start := time.Now()
	results := graph.ParallelFetch(tasks, func(t conversationTask) (*Conversation, error) {
		return s.GetConversation(ctx, t.id, t.includeBody)
	})
	elapsed := time.Since(start)

	entries := make([]BulkEntry, 0, len(unique))
	var successful, failed int
	for i, id := range unique {
		if c := results[i]; c != nil {
			entries = append(entries, BulkEntry{
				ConversationID: c.ConversationID,
				Subject:        c.Subject,
				Participants:   c.Participants,
				MessageCount:   c.MessageCount,
				DateRange:      c.DateRange,
				Messages:       c.Messages,
			})
			successful++
			continue
		}
		failed++
		entries = append(entries, BulkEntry{
			ConversationID: id,
			Error:          "Not found or invalid",
		})
	}

	return BulkResult{
		Conversations: entries,
		Stats: BulkStats{
			Total:                len(unique),
			Successful:           successful,
			Failed:               failed,
			ElapsedMS:            elapsed.Milliseconds(),
			AvgMSPerConversation: elapsed.Milliseconds() / int64(len(unique)),
		},
	}
}

// dedupe removes duplicate ids preserving first-occurrence order.
func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	unique := make([]string, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		unique = append(unique, id)
	}

	return unique
}
