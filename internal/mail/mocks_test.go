package mail_test

import (
	"context"
	"encoding/json"
	"net/url"
	"sync/atomic"

	"github.com/qualitymasters/outlook-mcp/internal/graph"
)

// graphMock counts calls atomically so it can serve concurrent bulk fetches.
type graphMock struct {
	GetFunc      func(ctx context.Context, endpoint string, params url.Values, out any) error
	BatchGetFunc func(ctx context.Context, urls []string) []json.RawMessage
	calls        atomic.Int64
}

func (g *graphMock) Get(ctx context.Context, endpoint string, params url.Values, out any) error {
	g.calls.Add(1)
	return g.GetFunc(ctx, endpoint, params, out)
}

func (g *graphMock) BatchGet(ctx context.Context, urls []string) []json.RawMessage {
	if g.BatchGetFunc != nil {
		return g.BatchGetFunc(ctx, urls)
	}
	return make([]json.RawMessage, len(urls))
}

// servePage copies a prepared message page into the decode target.
func servePage(out any, page graph.MessagePage) {
	*out.(*graph.MessagePage) = page
}

func msg(id, from, subject, received string, to ...string) graph.Message {
	m := graph.Message{
		ID:               id,
		Subject:          subject,
		ReceivedDateTime: received,
	}
	if from != "" {
		m.From = &graph.Recipient{EmailAddress: graph.EmailAddress{Address: from}}
	}
	for _, addr := range to {
		m.ToRecipients = append(m.ToRecipients, graph.Recipient{
			EmailAddress: graph.EmailAddress{Address: addr},
		})
	}
	return m
}
