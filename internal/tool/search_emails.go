package tool

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/qualitymasters/outlook-mcp/internal/auth"
	"github.com/qualitymasters/outlook-mcp/internal/mail"
)

// SearchEmailsRequest specifies a mailbox search. All fields are optional;
// with none set the newest emails are returned.
type SearchEmailsRequest struct {
	Query           string `json:"query,omitempty" jsonschema:"text to search for"`
	Field           string `json:"field,omitempty" jsonschema:"field to match the query against: from, to, cc, subject, body or all (default all)"`
	FromAddress     string `json:"from_address,omitempty" jsonschema:"require this sender address"`
	ToAddress       string `json:"to_address,omitempty" jsonschema:"require this recipient address"`
	SubjectContains string `json:"subject_contains,omitempty" jsonschema:"require this subject substring"`
	Since           string `json:"since,omitempty" jsonschema:"earliest date, YYYY-MM-DD inclusive"`
	Until           string `json:"until,omitempty" jsonschema:"latest date, YYYY-MM-DD inclusive"`
	Limit           int    `json:"limit,omitempty" jsonschema:"max results, 1-100 (default 20)"`
	Deep            bool   `json:"deep,omitempty" jsonschema:"scan more result pages for exhaustive matching"`
}

// SearchEmailsResponse carries matched email summaries, or an error payload.
type SearchEmailsResponse struct {
	Emails  []mail.EmailSummary `json:"emails,omitempty" jsonschema:"matched email summaries"`
	Count   int                 `json:"count" jsonschema:"number of emails returned"`
	Error   string              `json:"error,omitempty" jsonschema:"error marker"`
	Message string              `json:"message,omitempty" jsonschema:"error detail"`
}

type searchEmailsSvc interface {
	SearchEmails(ctx context.Context, f mail.Filter) ([]mail.EmailSummary, error)
}

// NewSearchEmails creates a new SearchEmails tool.
func NewSearchEmails(svc searchEmailsSvc) *SearchEmails {
	return &SearchEmails{svc: svc}
}

// SearchEmails searches the mailbox with budgeted pagination.
type SearchEmails struct {
	svc searchEmailsSvc
}

// SearchEmails runs the search described by the request.
func (t *SearchEmails) SearchEmails(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchEmailsRequest,
) (*mcp.CallToolResult, SearchEmailsResponse, error) {
	emails, err := t.svc.SearchEmails(ctx, mail.Filter{
		Query:           input.Query,
		Field:           input.Field,
		FromAddress:     input.FromAddress,
		ToAddress:       input.ToAddress,
		SubjectContains: input.SubjectContains,
		Since:           input.Since,
		Until:           input.Until,
		Limit:           input.Limit,
		Deep:            input.Deep,
	})
	if err != nil {
		if errors.Is(err, auth.ErrNoToken) {
			return nil, SearchEmailsResponse{Error: authFailedError, Message: authFailedMessage}, nil
		}
		return nil, SearchEmailsResponse{}, fmt.Errorf("svc.SearchEmails failed: %w", err)
	}

	return nil, SearchEmailsResponse{
		Emails: emails,
		Count:  len(emails),
	}, nil
}
