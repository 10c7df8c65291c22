package tool

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/qualitymasters/outlook-mcp/internal/auth"
	"github.com/qualitymasters/outlook-mcp/internal/mail"
)

// GetConversationRequest identifies the thread(s) to assemble. Several ids
// may be passed comma-separated for a bulk retrieval.
type GetConversationRequest struct {
	ConversationID string `json:"conversation_id" jsonschema:"conversation ID, or several comma-separated IDs"`
	IncludeBody    *bool  `json:"include_body,omitempty" jsonschema:"include full message bodies (default true)"`
}

// GetConversationResponse carries one assembled thread, a bulk result, or an
// error payload.
type GetConversationResponse struct {
	ConversationID string                     `json:"conversation_id,omitempty" jsonschema:"conversation ID"`
	Subject        string                     `json:"subject,omitempty" jsonschema:"subject of the earliest message"`
	Participants   []string                   `json:"participants,omitempty" jsonschema:"sorted unique participant addresses"`
	MessageCount   int                        `json:"message_count,omitempty" jsonschema:"number of messages in the thread"`
	DateRange      string                     `json:"date_range,omitempty" jsonschema:"first to last message date"`
	Messages       []mail.ConversationMessage `json:"messages,omitempty" jsonschema:"thread messages, oldest first"`
	Conversations  []mail.BulkEntry           `json:"conversations,omitempty" jsonschema:"per-conversation results of a bulk retrieval"`
	Stats          *mail.BulkStats            `json:"stats,omitempty" jsonschema:"bulk retrieval statistics"`
	Error          string                     `json:"error,omitempty" jsonschema:"error marker"`
	Message        string                     `json:"message,omitempty" jsonschema:"error detail"`
}

type getConversationSvc interface {
	GetConversation(ctx context.Context, id string, includeBody bool) (*mail.Conversation, error)
	GetConversationsBulk(ctx context.Context, ids []string, includeBody bool) mail.BulkResult
}

// NewGetConversation creates a new GetConversation tool.
func NewGetConversation(svc getConversationSvc) *GetConversation {
	return &GetConversation{svc: svc}
}

// GetConversation assembles conversation threads.
type GetConversation struct {
	svc getConversationSvc
}

// GetConversation retrieves the thread(s) named by the request.
func (t *GetConversation) GetConversation(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input GetConversationRequest,
) (*mcp.CallToolResult, GetConversationResponse, error) {
	ids := splitIDs(input.ConversationID)
	if len(ids) == 0 {
		return nil, GetConversationResponse{Error: "conversation_id is required"}, nil
	}

	includeBody := true
	if input.IncludeBody != nil {
		includeBody = *input.IncludeBody
	}

	if len(ids) > 1 {
		result := t.svc.GetConversationsBulk(ctx, ids, includeBody)
		return nil, GetConversationResponse{
			Conversations: result.Conversations,
			Stats:         &result.Stats,
		}, nil
	}

	conv, err := t.svc.GetConversation(ctx, ids[0], includeBody)
	if err != nil {
		if errors.Is(err, auth.ErrNoToken) {
			return nil, GetConversationResponse{Error: authFailedError, Message: authFailedMessage}, nil
		}
		// Invalid ids and upstream failures collapse into the same
		// not-found payload.
		if !errors.Is(err, mail.ErrNotFound) {
			log.Printf("svc.GetConversation failed: %v", err)
		}
		return nil, GetConversationResponse{
			ConversationID: ids[0],
			Error:          "Conversation not found or invalid conversation_id",
		}, nil
	}

	return nil, GetConversationResponse{
		ConversationID: conv.ConversationID,
		Subject:        conv.Subject,
		Participants:   conv.Participants,
		MessageCount:   conv.MessageCount,
		DateRange:      conv.DateRange,
		Messages:       conv.Messages,
	}, nil
}

func splitIDs(raw string) []string {
	var ids []string
	for _, id := range strings.Split(raw, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
