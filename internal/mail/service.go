// Package mail implements the mailbox search and retrieval engine: email
// search with budgeted pagination and client-side exact filtering,
// conversation assembly, body and attachment reads, all behind a TTL
// response cache.
package mail

import (
	"context"
	"encoding/json"
	"net/url"
	"time"

	"github.com/qualitymasters/outlook-mcp/internal/cache"
)

// Cache TTLs per resource type. Bodies and attachments never change once
// delivered; conversations can grow new replies.
const (
	ttlEmailBody    = time.Hour
	ttlConversation = 5 * time.Minute
	ttlAttachments  = time.Hour
)

// Field sets requested from upstream per projection.
const (
	selectSummary = "id,subject,from,toRecipients,ccRecipients,receivedDateTime," +
		"bodyPreview,hasAttachments,conversationId,importance"
	selectDetail = "id,subject,from,toRecipients,ccRecipients,receivedDateTime," +
		"body,hasAttachments,conversationId"
	selectConversation = "id,subject,from,toRecipients,receivedDateTime,bodyPreview,body"
)

type graphAPI interface {
	Get(ctx context.Context, endpoint string, params url.Values, out any) error
	BatchGet(ctx context.Context, urls []string) []json.RawMessage
}

// Service exposes the mailbox operations. The cache is injected so tests
// can isolate with fresh instances.
type Service struct {
	graph   graphAPI
	cache   *cache.Store
	mailbox string
}

// NewService creates a Service for the given mailbox. An empty targetUser
// addresses the signed-in user (delegated flow), otherwise the named user
// (app-only flow).
func NewService(graph graphAPI, store *cache.Store, targetUser string) *Service {
	mailbox := "/me"
	if targetUser != "" {
		mailbox = "/users/" + url.PathEscape(targetUser)
	}

	return &Service{graph: graph, cache: store, mailbox: mailbox}
}

func (s *Service) messagesEndpoint() string {
	return s.mailbox + "/messages"
}

func (s *Service) messageEndpoint(emailID string) string {
	return s.mailbox + "/messages/" + url.PathEscape(emailID)
}
