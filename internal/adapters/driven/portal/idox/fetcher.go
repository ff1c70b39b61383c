package idox

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/custodia-labs/planwatch/internal/core/domain"
	"github.com/custodia-labs/planwatch/internal/core/ports/driven"
	"github.com/custodia-labs/planwatch/internal/logger"
)

// Ensure Fetcher implements the interface.
var _ driven.DetailFetcher = (*Fetcher)(nil)

// notAvailableMarkers appear on the summary page when the portal does not
// recognise a key.
var notAvailableMarkers = []string{"Details not available", "Comparison"}

// Field labels on the summary and details tabs.
const (
	labelDecisionIssued = "Decision Issued Date"
	labelStatus         = "Status"
	labelAddress        = "Address"
	labelAgentCompany   = "Agent Company Name"
)

// Fetcher reads an application's summary and details tabs.
type Fetcher struct {
	client   *Client
	resolver driven.ReferenceResolver
}

// NewFetcher creates a fetcher that heals stale keys through resolver.
func NewFetcher(client *Client, resolver driven.ReferenceResolver) *Fetcher {
	return &Fetcher{client: client, resolver: resolver}
}

// Fetch retrieves the summary tab, heals the key if the portal does not know
// it, then retrieves the details tab with the key that worked. Missing fields
// fall back to defaults; only transport and parse failures fail the fetch.
func (f *Fetcher) Fetch(ctx context.Context, key, reference string) (*domain.DetailResult, error) {
	result := &domain.DetailResult{}
	fail := func(err error) (*domain.DetailResult, error) {
		result.Success = false
		result.Error = err.Error()
		return result, err
	}

	summary, err := f.tab(ctx, endpointSummary, key)
	if err != nil {
		return fail(err)
	}

	active := key
	if isNotAvailable(summary) && strings.TrimSpace(reference) != "" {
		newKey, err := f.resolver.Resolve(ctx, key, reference)
		switch {
		case errors.Is(err, domain.ErrKeyNotResolvable):
			logger.Debug("%s: %v", key, err)
		case err != nil:
			return fail(err)
		case newKey != key:
			result.PortalKey = newKey
			active = newKey
			if summary, err = f.tab(ctx, endpointSummary, active); err != nil {
				return fail(err)
			}
		}
	}

	doc, err := parseHTML(summary)
	if err != nil {
		return fail(fmt.Errorf("%w: summary for %s: %v", domain.ErrParse, active, err))
	}
	if raw := labelValue(doc, labelDecisionIssued); raw != "" {
		if d, err := domain.ParsePortalDate(raw); err == nil {
			result.DecisionDate = &d
		} else {
			logger.Debug("%s: decision date %q: %v", active, raw, err)
		}
	}
	result.ScrapedStatus = labelValue(doc, labelStatus)
	result.Address = labelValue(doc, labelAddress)

	details, err := f.tab(ctx, endpointDetails, active)
	if err != nil {
		return fail(err)
	}
	doc, err = parseHTML(details)
	if err != nil {
		return fail(fmt.Errorf("%w: details for %s: %v", domain.ErrParse, active, err))
	}
	result.Agent = labelValue(doc, labelAgentCompany)
	if result.Address == "" {
		result.Address = labelValue(doc, labelAddress)
	}

	if result.Agent == "" {
		result.Agent = domain.DefaultAgent
	}
	if result.Address == "" {
		result.Address = domain.DefaultAddress
	}
	result.Success = true
	return result, nil
}

func (f *Fetcher) tab(ctx context.Context, endpoint, key string) (string, error) {
	return f.client.Get(ctx, endpoint, "applicationDetails.do", url.Values{
		"activeTab": {endpoint},
		"keyVal":    {key},
	})
}

func isNotAvailable(body string) bool {
	for _, marker := range notAvailableMarkers {
		if strings.Contains(body, marker) {
			return true
		}
	}
	return false
}
