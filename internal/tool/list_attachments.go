package tool

import (
	"context"
	"errors"
	"log"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/qualitymasters/outlook-mcp/internal/auth"
	"github.com/qualitymasters/outlook-mcp/internal/mail"
)

// ListAttachmentsRequest identifies the email whose attachments to list.
type ListAttachmentsRequest struct {
	EmailID string `json:"email_id" jsonschema:"the email ID"`
}

// ListAttachmentsResponse carries attachment metadata, or an error payload.
type ListAttachmentsResponse struct {
	EmailID     string            `json:"email_id,omitempty" jsonschema:"email ID"`
	Attachments []mail.Attachment `json:"attachments,omitempty" jsonschema:"attachment metadata"`
	Count       int               `json:"count" jsonschema:"number of attachments"`
	Error       string            `json:"error,omitempty" jsonschema:"error marker"`
	Message     string            `json:"message,omitempty" jsonschema:"error detail"`
}

type listAttachmentsSvc interface {
	GetAttachments(ctx context.Context, emailID string) ([]mail.Attachment, error)
}

// NewListAttachments creates a new ListAttachments tool.
func NewListAttachments(svc listAttachmentsSvc) *ListAttachments {
	return &ListAttachments{svc: svc}
}

// ListAttachments lists email attachment metadata.
type ListAttachments struct {
	svc listAttachmentsSvc
}

// ListAttachments lists attachments of the email named by the request.
func (t *ListAttachments) ListAttachments(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ListAttachmentsRequest,
) (*mcp.CallToolResult, ListAttachmentsResponse, error) {
	if input.EmailID == "" {
		return nil, ListAttachmentsResponse{Error: "email_id is required"}, nil
	}

	attachments, err := t.svc.GetAttachments(ctx, input.EmailID)
	if err != nil {
		if errors.Is(err, auth.ErrNoToken) {
			return nil, ListAttachmentsResponse{Error: authFailedError, Message: authFailedMessage}, nil
		}
		// An unreadable email has no listable attachments.
		log.Printf("svc.GetAttachments failed: %v", err)
		return nil, ListAttachmentsResponse{EmailID: input.EmailID}, nil
	}

	return nil, ListAttachmentsResponse{
		EmailID:     input.EmailID,
		Attachments: attachments,
		Count:       len(attachments),
	}, nil
}
