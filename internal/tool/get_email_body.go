package tool

import (
	"context"
	"errors"
	"log"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/qualitymasters/outlook-mcp/internal/auth"
	"github.com/qualitymasters/outlook-mcp/internal/mail"
)

// GetEmailBodyRequest identifies the email and the desired body format.
type GetEmailBodyRequest struct {
	EmailID string `json:"email_id" jsonschema:"the email ID"`
	Format  string `json:"format,omitempty" jsonschema:"body format: text or html (default text)"`
}

// GetEmailBodyResponse carries the full email, or an error payload.
type GetEmailBodyResponse struct {
	ID             string        `json:"id,omitempty" jsonschema:"email ID"`
	Subject        string        `json:"subject,omitempty" jsonschema:"email subject"`
	From           *mail.Person  `json:"from,omitempty" jsonschema:"sender"`
	To             []mail.Person `json:"to,omitempty" jsonschema:"recipients"`
	Date           string        `json:"date,omitempty" jsonschema:"received timestamp"`
	Body           string        `json:"body,omitempty" jsonschema:"email body in the requested format"`
	HasAttachments bool          `json:"has_attachments,omitempty" jsonschema:"whether the email has attachments"`
	ConversationID string        `json:"conversation_id,omitempty" jsonschema:"conversation ID"`
	EmailID        string        `json:"email_id,omitempty" jsonschema:"requested email ID, set on error payloads"`
	Error          string        `json:"error,omitempty" jsonschema:"error marker"`
	Message        string        `json:"message,omitempty" jsonschema:"error detail"`
}

type getEmailBodySvc interface {
	GetEmailBody(ctx context.Context, emailID, bodyFormat string) (*mail.EmailDetail, error)
}

// NewGetEmailBody creates a new GetEmailBody tool.
func NewGetEmailBody(svc getEmailBodySvc) *GetEmailBody {
	return &GetEmailBody{svc: svc}
}

// GetEmailBody fetches full email bodies.
type GetEmailBody struct {
	svc getEmailBodySvc
}

// GetEmailBody retrieves the email named by the request.
func (t *GetEmailBody) GetEmailBody(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input GetEmailBodyRequest,
) (*mcp.CallToolResult, GetEmailBodyResponse, error) {
	if input.EmailID == "" {
		return nil, GetEmailBodyResponse{Error: "email_id is required"}, nil
	}

	detail, err := t.svc.GetEmailBody(ctx, input.EmailID, input.Format)
	if err != nil {
		if errors.Is(err, auth.ErrNoToken) {
			return nil, GetEmailBodyResponse{Error: authFailedError, Message: authFailedMessage}, nil
		}
		// An unreadable email is reported as not found, never as a
		// protocol error.
		log.Printf("svc.GetEmailBody failed: %v", err)
		return nil, GetEmailBodyResponse{
			EmailID: input.EmailID,
			Error:   "Email not found",
		}, nil
	}

	return nil, GetEmailBodyResponse{
		ID:             detail.ID,
		Subject:        detail.Subject,
		From:           &detail.From,
		To:             detail.To,
		Date:           detail.Date,
		Body:           detail.Body,
		HasAttachments: detail.HasAttachments,
		ConversationID: detail.ConversationID,
	}, nil
}
