package mail_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qualitymasters/outlook-mcp/internal/auth"
	"github.com/qualitymasters/outlook-mcp/internal/cache"
	"github.com/qualitymasters/outlook-mcp/internal/graph"
	"github.com/qualitymasters/outlook-mcp/internal/mail"
)

// fixedRecord is the reference message used by the field-matching tests:
// sender john@example.com, recipient jane@example.com, cc bob@example.com,
// subject "Test Subject".
func fixedRecord() graph.Message {
	m := msg("m1", "john@example.com", "Test Subject", "2024-01-15T10:00:00Z", "jane@example.com")
	m.CcRecipients = []graph.Recipient{
		{EmailAddress: graph.EmailAddress{Address: "bob@example.com"}},
	}
	return m
}

func singlePageService(messages ...graph.Message) *mail.Service {
	g := &graphMock{
		GetFunc: func(_ context.Context, _ string, _ url.Values, out any) error {
			servePage(out, graph.MessagePage{Value: messages})
			return nil
		},
	}
	return mail.NewService(g, cache.New(), "")
}

func TestSearchEmailsFieldMatching(t *testing.T) {
	cases := []struct {
		name    string
		field   string
		query   string
		matches bool
	}{
		{name: "from matches sender", field: "from", query: "john", matches: true},
		{name: "from misses recipient", field: "from", query: "jane", matches: false},
		{name: "to matches recipient", field: "to", query: "jane", matches: true},
		{name: "to misses sender", field: "to", query: "john", matches: false},
		{name: "cc matches", field: "cc", query: "bob", matches: true},
		{name: "subject matches case-insensitively", field: "subject", query: "test subject", matches: true},
		{name: "all matches sender", field: "all", query: "john", matches: true},
		{name: "all matches recipient", field: "all", query: "jane", matches: true},
		{name: "all matches cc", field: "all", query: "bob", matches: true},
		{name: "all matches subject", field: "all", query: "Subject", matches: true},
		{name: "all misses absent term", field: "all", query: "nowhere", matches: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := singlePageService(fixedRecord())

			got, err := svc.SearchEmails(context.Background(), mail.Filter{
				Query: tc.query,
				Field: tc.field,
			})
			require.NoError(t, err)

			if tc.matches {
				require.Len(t, got, 1)
				assert.Equal(t, "m1", got[0].ID)
			} else {
				assert.Empty(t, got)
			}
		})
	}
}

func TestSearchEmailsDateRange(t *testing.T) {
	cases := []struct {
		name    string
		since   string
		until   string
		matches bool
	}{
		{name: "inside range", since: "2024-01-01", until: "2024-01-31", matches: true},
		{name: "before since", since: "2024-02-01", matches: false},
		{name: "after until", until: "2024-01-10", matches: false},
		{name: "on since boundary", since: "2024-01-15", matches: true},
		{name: "on until boundary", until: "2024-01-15", matches: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := singlePageService(fixedRecord())

			got, err := svc.SearchEmails(context.Background(), mail.Filter{
				Since: tc.since,
				Until: tc.until,
			})
			require.NoError(t, err)

			if tc.matches {
				require.Len(t, got, 1)
			} else {
				assert.Empty(t, got)
			}
		})
	}
}

func TestSearchEmailsLimit(t *testing.T) {
	messages := make([]graph.Message, 10)
	for i := range messages {
		messages[i] = msg(fmt.Sprintf("m%d", i), "john@example.com", "s", "2024-01-15T10:00:00Z")
	}

	svc := singlePageService(messages...)

	got, err := svc.SearchEmails(context.Background(), mail.Filter{Limit: 5})
	require.NoError(t, err)
	assert.Len(t, got, 5)
}

func TestSearchEmailsQueryParams(t *testing.T) {
	cases := []struct {
		name           string
		filter         mail.Filter
		expectedSearch string
		expectedFilter string
	}{
		{
			name:           "field-specific term",
			filter:         mail.Filter{Query: "x@y.com", Field: "from"},
			expectedSearch: `"from:x@y.com"`,
		},
		{
			name:           "leading @ stripped",
			filter:         mail.Filter{Query: "@example.com", Field: "from"},
			expectedSearch: `"from:example.com"`,
		},
		{
			name:           "all field ORs terms",
			filter:         mail.Filter{Query: "x", Field: "all"},
			expectedSearch: `"from:x" OR "to:x" OR "subject:x"`,
		},
		{
			name:           "extra filters ANDed",
			filter:         mail.Filter{Query: "x", Field: "subject", FromAddress: "a@b.com"},
			expectedSearch: `"subject:x" AND "from:a@b.com"`,
		},
		{
			name:           "date bounds use server-side filter",
			filter:         mail.Filter{Query: "x", Field: "from", Since: "2024-01-01", Until: "2024-01-31"},
			expectedFilter: "receivedDateTime ge 2024-01-01T00:00:00Z and receivedDateTime le 2024-01-31T23:59:59Z",
		},
		{
			name:           "open-ended since",
			filter:         mail.Filter{Since: "2024-01-01"},
			expectedFilter: "receivedDateTime ge 2024-01-01T00:00:00Z",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var captured url.Values
			g := &graphMock{
				GetFunc: func(_ context.Context, _ string, params url.Values, out any) error {
					captured = params
					servePage(out, graph.MessagePage{})
					return nil
				},
			}
			svc := mail.NewService(g, cache.New(), "")

			_, err := svc.SearchEmails(context.Background(), tc.filter)
			require.NoError(t, err)

			assert.Equal(t, tc.expectedSearch, captured.Get("$search"))
			assert.Equal(t, tc.expectedFilter, captured.Get("$filter"))
			if tc.expectedFilter != "" {
				// Relevance search and structured filters are mutually exclusive.
				assert.Empty(t, captured.Get("$search"))
				assert.Equal(t, "receivedDateTime desc", captured.Get("$orderby"))
			}
		})
	}
}

func TestSearchEmailsPageBudget(t *testing.T) {
	noMatch := msg("m", "other@example.com", "s", "2024-01-15T10:00:00Z")

	g := &graphMock{}
	g.GetFunc = func(_ context.Context, _ string, _ url.Values, out any) error {
		servePage(out, graph.MessagePage{
			Value:    []graph.Message{noMatch},
			NextLink: "https://graph.microsoft.com/v1.0/next",
		})
		return nil
	}
	svc := mail.NewService(g, cache.New(), "")

	got, err := svc.SearchEmails(context.Background(), mail.Filter{Query: "john", Field: "from"})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.EqualValues(t, 10, g.calls.Load(), "matchless search pages up to the deep budget")
}

func TestSearchEmailsStopsEarlyOnceMatched(t *testing.T) {
	match := fixedRecord()

	g := &graphMock{}
	g.GetFunc = func(_ context.Context, _ string, _ url.Values, out any) error {
		servePage(out, graph.MessagePage{
			Value:    []graph.Message{match},
			NextLink: "https://graph.microsoft.com/v1.0/next",
		})
		return nil
	}
	svc := mail.NewService(g, cache.New(), "")

	_, err := svc.SearchEmails(context.Background(), mail.Filter{Query: "john", Field: "from", Limit: 100})
	require.NoError(t, err)
	assert.EqualValues(t, 3, g.calls.Load(), "plain search stops after a few pages once matched")

	g.calls.Store(0)
	_, err = svc.SearchEmails(context.Background(), mail.Filter{Query: "john", Field: "from", Limit: 100, Deep: true})
	require.NoError(t, err)
	assert.EqualValues(t, 10, g.calls.Load(), "deep search relaxes the cap")
}

func TestSearchEmailsDateModeStopsPastSince(t *testing.T) {
	tooOld := msg("old", "john@example.com", "s", "2023-12-01T10:00:00Z")

	g := &graphMock{}
	g.GetFunc = func(_ context.Context, _ string, _ url.Values, out any) error {
		servePage(out, graph.MessagePage{
			Value:    []graph.Message{tooOld},
			NextLink: "https://graph.microsoft.com/v1.0/next",
		})
		return nil
	}
	svc := mail.NewService(g, cache.New(), "")

	got, err := svc.SearchEmails(context.Background(), mail.Filter{Since: "2024-01-01"})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.EqualValues(t, 1, g.calls.Load(), "descending pages cannot recover once past the lower bound")
}

func TestSearchEmailsPartialOnPageFailure(t *testing.T) {
	g := &graphMock{}
	g.GetFunc = func(_ context.Context, _ string, _ url.Values, out any) error {
		if g.calls.Load() > 1 {
			return fmt.Errorf("API error 503 on /next")
		}
		servePage(out, graph.MessagePage{
			Value:    []graph.Message{fixedRecord()},
			NextLink: "https://graph.microsoft.com/v1.0/next",
		})
		return nil
	}
	svc := mail.NewService(g, cache.New(), "")

	got, err := svc.SearchEmails(context.Background(), mail.Filter{Query: "john", Field: "from", Limit: 10})
	require.NoError(t, err, "a failed page is end-of-data, not an error")
	assert.Len(t, got, 1)
}

func TestSearchEmailsPreviewTruncatesOnRuneBoundary(t *testing.T) {
	m := fixedRecord()
	m.BodyPreview = strings.Repeat("é", 250)

	svc := singlePageService(m)

	got, err := svc.SearchEmails(context.Background(), mail.Filter{Query: "john", Field: "from"})
	require.NoError(t, err)
	require.Len(t, got, 1)

	preview := got[0].Preview
	assert.True(t, utf8.ValidString(preview))
	assert.Equal(t, 200, utf8.RuneCountInString(preview))
}

func TestSearchEmailsBodyFieldConfirmsMatches(t *testing.T) {
	hit := msg("hit", "john@example.com", "a", "2024-01-15T10:00:00Z")
	miss := msg("miss", "john@example.com", "b", "2024-01-15T11:00:00Z")

	bodies := map[string]string{
		"hit":  `{"id":"hit","body":{"contentType":"html","content":"<p>the budget numbers</p>"}}`,
		"miss": `{"id":"miss","body":{"contentType":"text","content":"something else entirely"}}`,
	}

	var searchExpr string
	g := &graphMock{
		GetFunc: func(_ context.Context, _ string, params url.Values, out any) error {
			searchExpr = params.Get("$search")
			servePage(out, graph.MessagePage{Value: []graph.Message{hit, miss}})
			return nil
		},
		BatchGetFunc: func(_ context.Context, urls []string) []json.RawMessage {
			results := make([]json.RawMessage, len(urls))
			for i, u := range urls {
				for id, body := range bodies {
					if strings.Contains(u, "/messages/"+id+"?") {
						results[i] = json.RawMessage(body)
					}
				}
			}
			return results
		},
	}
	svc := mail.NewService(g, cache.New(), "")

	got, err := svc.SearchEmails(context.Background(), mail.Filter{Query: "budget", Field: "body"})
	require.NoError(t, err)

	assert.Equal(t, `"body:budget"`, searchExpr)
	require.Len(t, got, 1, "only the message whose body contains the term survives")
	assert.Equal(t, "hit", got[0].ID)
}

func TestSearchEmailsAuthFailure(t *testing.T) {
	g := &graphMock{
		GetFunc: func(_ context.Context, _ string, _ url.Values, _ any) error {
			return fmt.Errorf("tokens.Token failed: %w", auth.ErrNoToken)
		},
	}
	svc := mail.NewService(g, cache.New(), "")

	_, err := svc.SearchEmails(context.Background(), mail.Filter{Query: "x"})
	assert.ErrorIs(t, err, auth.ErrNoToken)
}

func TestSearchEmailsSummaryProjection(t *testing.T) {
	m := fixedRecord()
	m.BodyPreview = strings.Repeat("0123456789", 30)
	m.From.EmailAddress.Name = "John Doe"
	m.HasAttachments = true
	m.ConversationID = "conv-1"

	svc := singlePageService(m)

	got, err := svc.SearchEmails(context.Background(), mail.Filter{Query: "john", Field: "from"})
	require.NoError(t, err)
	require.Len(t, got, 1)

	s := got[0]
	assert.Equal(t, "john@example.com", s.From)
	assert.Equal(t, "John Doe", s.FromName)
	assert.Equal(t, []string{"jane@example.com"}, s.To)
	assert.Equal(t, "2024-01-15", s.Date)
	assert.Equal(t, "2024-01-15T10:00:00Z", s.DateTime)
	assert.Len(t, s.Preview, 200)
	assert.True(t, s.HasAttachments)
	assert.Equal(t, "conv-1", s.ConversationID)
	assert.Equal(t, "normal", s.Importance, "missing importance defaults")
}
