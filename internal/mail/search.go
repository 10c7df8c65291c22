package mail

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strconv"
	"strings"

	"github.com/qualitymasters/outlook-mcp/internal/auth"
	"github.com/qualitymasters/outlook-mcp/internal/format"
	"github.com/qualitymasters/outlook-mcp/internal/graph"
)

// Filter specifies an email search. Any date bound switches the engine to
// server-side date filtering; otherwise text filters run through upstream
// relevance search. Both paths re-check every candidate client-side.
type Filter struct {
	Query           string
	Field           string // from, to, cc, subject, body, all
	FromAddress     string
	ToAddress       string
	SubjectContains string
	Since           string // YYYY-MM-DD, inclusive
	Until           string // YYYY-MM-DD, inclusive
	Limit           int
	Deep            bool
}

const (
	defaultSearchLimit = 20
	maxSearchLimit     = 100
	maxPageSize        = 50

	// Page budgets: the date filter is evaluated server-side so deep
	// pagination stays cheap; relevance search pages are scanned broadly
	// client-side, so stop early once something matched unless the caller
	// asked to search deeper.
	pageBudgetFiltered = 20
	pageBudgetSearch   = 3
	pageBudgetDeep     = 10
)

// SearchEmails runs a search and returns at most f.Limit summaries. A page
// fetch failure ends pagination and yields the partial result; only a
// missing token is returned as an error.
func (s *Service) SearchEmails(ctx context.Context, f Filter) ([]EmailSummary, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}

	dateFiltered := f.Since != "" || f.Until != ""

	params := url.Values{}
	params.Set("$top", strconv.Itoa(min(limit, maxPageSize)))
	params.Set("$select", selectSummary)

	switch {
	case dateFiltered:
		// The upstream API refuses $search combined with $filter/$orderby,
		// so text constraints are demoted to the client-side check below.
		params.Set("$filter", dateRangeFilter(f.Since, f.Until))
		params.Set("$orderby", "receivedDateTime desc")
	case hasTextFilter(f):
		params.Set("$search", buildSearchQuery(f))
	default:
		params.Set("$orderby", "receivedDateTime desc")
	}

	budget := pageBudgetDeep
	if dateFiltered {
		budget = pageBudgetFiltered
	}

	bodyMode := f.Query != "" && f.Field == "body"

	matched := make([]EmailSummary, 0, limit)
	endpoint := s.messagesEndpoint()

	for page := 0; page < budget; page++ {
		var pg graph.MessagePage
		if err := s.graph.Get(ctx, endpoint, params, &pg); err != nil {
			if errors.Is(err, auth.ErrNoToken) {
				return nil, err
			}
			// A failed page is indistinguishable from end of data here.
			log.Printf("Search pagination stopped: %v", err)
			break
		}

		candidates := make([]graph.Message, 0, len(pg.Value))
		for _, m := range pg.Value {
			if matchesFilter(m, f) {
				candidates = append(candidates, m)
			}
		}
		if bodyMode {
			candidates = s.confirmBodyMatches(ctx, candidates, f.Query)
		}

		for _, m := range candidates {
			matched = append(matched, summaryFromMessage(m))
			if len(matched) >= limit {
				return matched, nil
			}
		}

		// Pages arrive newest first: once the oldest record on a page
		// precedes the lower bound, later pages cannot be in range.
		if dateFiltered && f.Since != "" && len(pg.Value) > 0 {
			oldest := pg.Value[len(pg.Value)-1].ReceivedDateTime
			if dayOf(oldest) < f.Since {
				break
			}
		}

		if !dateFiltered && !f.Deep && page+1 >= pageBudgetSearch && len(matched) > 0 {
			break
		}

		if pg.NextLink == "" {
			break
		}
		endpoint, params = pg.NextLink, nil
	}

	return matched, nil
}

// confirmBodyMatches re-checks body-field candidates against the actual
// message text. Relevance search matches on stemmed tokens, so a candidate
// can come back without the literal term in its body; the real bodies are
// fetched through $batch in chunks and checked exactly.
func (s *Service) confirmBodyMatches(ctx context.Context, candidates []graph.Message, term string) []graph.Message {
	confirmed := make([]graph.Message, 0, len(candidates))

	for start := 0; start < len(candidates); start += graph.BatchLimit {
		chunk := candidates[start:min(start+graph.BatchLimit, len(candidates))]

		urls := make([]string, 0, len(chunk))
		for _, m := range chunk {
			urls = append(urls, s.messageEndpoint(m.ID)+"?$select=body")
		}

		for i, raw := range s.graph.BatchGet(ctx, urls) {
			if raw == nil {
				continue
			}

			var full graph.Message
			if err := json.Unmarshal(raw, &full); err != nil {
				log.Printf("Body fetch for %s returned unparseable payload: %v", chunk[i].ID, err)
				continue
			}

			var body string
			if full.Body != nil {
				body = full.Body.Content
				if strings.EqualFold(full.Body.ContentType, "html") {
					body = format.HTMLToText(body)
				}
			}
			if containsFold(body, term) {
				confirmed = append(confirmed, chunk[i])
			}
		}
	}

	return confirmed
}

func hasTextFilter(f Filter) bool {
	return f.Query != "" || f.FromAddress != "" || f.ToAddress != "" || f.SubjectContains != ""
}

func dateRangeFilter(since, until string) string {
	var parts []string
	if since != "" {
		parts = append(parts, fmt.Sprintf("receivedDateTime ge %sT00:00:00Z", since))
	}
	if until != "" {
		parts = append(parts, fmt.Sprintf("receivedDateTime le %sT23:59:59Z", until))
	}

	return strings.Join(parts, " and ")
}

// buildSearchQuery assembles the upstream relevance-search expression:
// quoted field-prefixed terms, the "all" field ORing sender, recipient and
// subject, extra exact filters ANDed in.
func buildSearchQuery(f Filter) string {
	var parts []string

	if f.Query != "" {
		term := strings.TrimLeft(f.Query, "@")
		switch f.Field {
		case "from", "to", "cc", "subject", "body":
			parts = append(parts, fmt.Sprintf("%q", f.Field+":"+term))
		default: // all
			parts = append(parts, fmt.Sprintf("%q OR %q OR %q",
				"from:"+term, "to:"+term, "subject:"+term))
		}
	}

	if f.FromAddress != "" {
		parts = append(parts, fmt.Sprintf("%q", "from:"+f.FromAddress))
	}
	if f.ToAddress != "" {
		parts = append(parts, fmt.Sprintf("%q", "to:"+f.ToAddress))
	}
	if f.SubjectContains != "" {
		parts = append(parts, fmt.Sprintf("%q", "subject:"+f.SubjectContains))
	}

	return strings.Join(parts, " AND ")
}

// matchesFilter is the exact-match predicate every candidate passes before
// inclusion. Date bounds are re-checked in every mode as a guard against
// server-side filter semantics drift.
func matchesFilter(m graph.Message, f Filter) bool {
	if f.Query != "" && !matchesField(m, f.Field, f.Query) {
		return false
	}
	if f.FromAddress != "" && !matchesField(m, "from", f.FromAddress) {
		return false
	}
	if f.ToAddress != "" && !matchesField(m, "to", f.ToAddress) {
		return false
	}
	if f.SubjectContains != "" && !containsFold(m.Subject, f.SubjectContains) {
		return false
	}

	day := dayOf(m.ReceivedDateTime)
	if f.Since != "" && day < f.Since {
		return false
	}
	if f.Until != "" && day > f.Until {
		return false
	}

	return true
}

func matchesField(m graph.Message, field, term string) bool {
	var from string
	if m.From != nil {
		from = m.From.EmailAddress.Address
	}

	switch field {
	case "from":
		return containsFold(from, term)
	case "to":
		return anyAddressContains(m.ToRecipients, term)
	case "cc":
		return anyAddressContains(m.CcRecipients, term)
	case "subject":
		return containsFold(m.Subject, term)
	case "body":
		// Listings carry no body; candidates pass here and are confirmed
		// against the fetched text in confirmBodyMatches.
		return true
	default: // all
		return containsFold(from, term) ||
			anyAddressContains(m.ToRecipients, term) ||
			anyAddressContains(m.CcRecipients, term) ||
			containsFold(m.Subject, term)
	}
}

func anyAddressContains(recipients []graph.Recipient, term string) bool {
	for _, r := range recipients {
		if containsFold(r.EmailAddress.Address, term) {
			return true
		}
	}
	return false
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
