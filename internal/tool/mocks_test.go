package tool_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"

	"github.com/qualitymasters/outlook-mcp/internal/mail"
	"github.com/qualitymasters/outlook-mcp/internal/tool"
)

type mailSvcMock struct {
	SearchEmailsFunc         func(ctx context.Context, f mail.Filter) ([]mail.EmailSummary, error)
	GetConversationFunc      func(ctx context.Context, id string, includeBody bool) (*mail.Conversation, error)
	GetConversationsBulkFunc func(ctx context.Context, ids []string, includeBody bool) mail.BulkResult
	GetEmailBodyFunc         func(ctx context.Context, emailID, bodyFormat string) (*mail.EmailDetail, error)
	GetAttachmentsFunc       func(ctx context.Context, emailID string) ([]mail.Attachment, error)
}

func (m *mailSvcMock) SearchEmails(ctx context.Context, f mail.Filter) ([]mail.EmailSummary, error) {
	return m.SearchEmailsFunc(ctx, f)
}

func (m *mailSvcMock) GetConversation(ctx context.Context, id string, includeBody bool) (*mail.Conversation, error) {
	return m.GetConversationFunc(ctx, id, includeBody)
}

func (m *mailSvcMock) GetConversationsBulk(ctx context.Context, ids []string, includeBody bool) mail.BulkResult {
	return m.GetConversationsBulkFunc(ctx, ids, includeBody)
}

func (m *mailSvcMock) GetEmailBody(ctx context.Context, emailID, bodyFormat string) (*mail.EmailDetail, error) {
	return m.GetEmailBodyFunc(ctx, emailID, bodyFormat)
}

func (m *mailSvcMock) GetAttachments(ctx context.Context, emailID string) ([]mail.Attachment, error) {
	return m.GetAttachmentsFunc(ctx, emailID)
}

// newToolSession wires the tool server to a client over in-memory transports.
func newToolSession(t *testing.T, svc *mailSvcMock) *mcp.ClientSession {
	t.Helper()

	server := tool.NewServer(svc)
	client := mcp.NewClient(&mcp.Implementation{Name: "test-client"}, nil)
	clientTransport, serverTransport := mcp.NewInMemoryTransports()

	ctx := context.Background()

	serverSession, err := server.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = serverSession.Close() })

	clientSession, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = clientSession.Close() })

	return clientSession
}

func decodeResult(t *testing.T, result *mcp.CallToolResult, out any) {
	t.Helper()

	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)
	text := result.Content[0].(*mcp.TextContent).Text
	require.NoError(t, json.Unmarshal([]byte(text), out))
}
