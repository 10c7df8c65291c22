package mail

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/qualitymasters/outlook-mcp/internal/graph"
)

// GetEmailBody fetches a message with its full body. HTML bodies are
// converted to plain text when bodyFormat is "text"; conversion happens
// once, before the result enters the cache.
func (s *Service) GetEmailBody(ctx context.Context, emailID, bodyFormat string) (*EmailDetail, error) {
	if bodyFormat == "" {
		bodyFormat = FormatText
	}

	key := fmt.Sprintf("email_body:%s:%s", emailID, bodyFormat)
	if cached, ok := s.cache.Get(key); ok {
		return cached.(*EmailDetail), nil
	}

	params := url.Values{}
	params.Set("$select", selectDetail)

	var m graph.Message
	if err := s.graph.Get(ctx, s.messageEndpoint(emailID), params, &m); err != nil {
		return nil, fmt.Errorf("message fetch failed: %w", err)
	}

	detail := detailFromMessage(m, bodyFormat)
	s.cache.Set(key, &detail, ttlEmailBody)

	return &detail, nil
}

// GetAttachments lists attachment metadata for a message.
func (s *Service) GetAttachments(ctx context.Context, emailID string) ([]Attachment, error) {
	key := "attachments:" + emailID
	if cached, ok := s.cache.Get(key); ok {
		return cached.([]Attachment), nil
	}

	var list graph.AttachmentList
	if err := s.graph.Get(ctx, s.messageEndpoint(emailID)+"/attachments", nil, &list); err != nil {
		return nil, fmt.Errorf("attachments fetch failed: %w", err)
	}

	attachments := make([]Attachment, 0, len(list.Value))
	for _, a := range list.Value {
		attachments = append(attachments, Attachment{
			ID:          a.ID,
			Name:        a.Name,
			Size:        a.Size,
			ContentType: a.ContentType,
			Type:        strings.TrimPrefix(a.ODataType, "#microsoft.graph."),
		})
	}

	s.cache.Set(key, attachments, ttlAttachments)

	return attachments, nil
}
