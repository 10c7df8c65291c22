package graph

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
)

// BatchLimit is the upstream cap on sub-requests per $batch call.
const BatchLimit = 20

// BatchRequest is a single sub-request inside a $batch call. IDs are chosen
// by the caller and must be unique within one batch.
type BatchRequest struct {
	ID     string `json:"id"`
	Method string `json:"method"`
	URL    string `json:"url"`
}

// BatchResponse is the outcome of one sub-request. Status 0 means the
// sub-request never produced an upstream response.
type BatchResponse struct {
	ID     string          `json:"id"`
	Status int             `json:"status"`
	Body   json.RawMessage `json:"body"`
}

// Batch executes up to 20 requests in a single $batch call, truncating
// longer lists. The result is always parallel to the (truncated) input:
// upstream failure or a missing response id yields a status-0 entry for that
// request, never a shorter list.
func (c *Client) Batch(ctx context.Context, requests []BatchRequest) []BatchResponse {
	if len(requests) == 0 {
		return nil
	}
	if len(requests) > BatchLimit {
		log.Printf("Batch request exceeds %d limit (%d), truncating", BatchLimit, len(requests))
		requests = requests[:BatchLimit]
	}

	var envelope struct {
		Responses []BatchResponse `json:"responses"`
	}
	err := c.Post(ctx, "/$batch", map[string]any{"requests": requests}, &envelope)
	if err != nil {
		log.Printf("Batch call failed: %v", err)

		results := make([]BatchResponse, 0, len(requests))
		for _, req := range requests {
			results = append(results, BatchResponse{ID: req.ID})
		}

		return results
	}

	// Upstream may return responses in any order, match by id.
	byID := make(map[string]BatchResponse, len(envelope.Responses))
	for _, resp := range envelope.Responses {
		byID[resp.ID] = resp
	}

	results := make([]BatchResponse, 0, len(requests))
	for _, req := range requests {
		resp, ok := byID[req.ID]
		if !ok {
			results = append(results, BatchResponse{ID: req.ID})
			continue
		}
		results = append(results, resp)
	}

	return results
}

// BatchGet fetches multiple URLs through Batch. The result is positionally
// aligned with urls; any sub-request that did not return 200 maps to nil.
func (c *Client) BatchGet(ctx context.Context, urls []string) []json.RawMessage {
	if len(urls) == 0 {
		return nil
	}

	requests := make([]BatchRequest, 0, len(urls))
	for i, u := range urls {
		requests = append(requests, BatchRequest{
			ID:     strconv.Itoa(i),
			Method: http.MethodGet,
			URL:    u,
		})
	}

	responses := c.Batch(ctx, requests)

	results := make([]json.RawMessage, len(urls))
	for i, resp := range responses {
		if resp.Status == http.StatusOK {
			results[i] = resp.Body
		}
	}

	return results
}
