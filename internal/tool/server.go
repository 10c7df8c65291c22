// Package tool exposes the mailbox operations as MCP tools.
package tool

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type mailSvc interface {
	searchEmailsSvc
	getConversationSvc
	getEmailBodySvc
	listAttachmentsSvc
}

// Error payload returned when no access token is available. Tools report
// this as data rather than a protocol error so clients can surface it.
const (
	authFailedError   = "Authentication failed"
	authFailedMessage = "No valid access token. Check credentials or complete the sign-in flow."
)

// NewServer creates an MCP server with email tools.
func NewServer(svc mailSvc) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: "outlook-email", Version: "v1.0.0"}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_emails",
		Description: "Search emails by text, sender, recipient, subject or date range",
	}, NewSearchEmails(svc).SearchEmails)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_conversation",
		Description: "Get a full conversation thread by conversation ID (comma-separate IDs for bulk retrieval)",
	}, NewGetConversation(svc).GetConversation)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_email_body",
		Description: "Get the full body of an email as text or HTML",
	}, NewGetEmailBody(svc).GetEmailBody)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_attachments",
		Description: "List attachment metadata for an email",
	}, NewListAttachments(svc).ListAttachments)

	return server
}
