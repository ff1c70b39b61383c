package idox

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/custodia-labs/planwatch/internal/core/domain"
	"github.com/custodia-labs/planwatch/internal/core/ports/driven"
	"github.com/custodia-labs/planwatch/internal/logger"
	"github.com/custodia-labs/planwatch/internal/metrics"
)

// Ensure Resolver implements the interface.
var _ driven.ReferenceResolver = (*Resolver)(nil)

// Resolver finds a record's current portal key through the reference search.
type Resolver struct {
	client *Client
}

// NewResolver creates a resolver.
func NewResolver(client *Client) *Resolver {
	return &Resolver{client: client}
}

// Resolve searches for reference and returns the key of the first result link.
// A search for the same reference returns the same key as long as the
// portal's results do not change.
func (r *Resolver) Resolve(ctx context.Context, failedKey, reference string) (string, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		metrics.RecordKeyResolution("not_found")
		return "", fmt.Errorf("%w: %s has no reference", domain.ErrKeyNotResolvable, failedKey)
	}

	body, err := r.client.Get(ctx, endpointResolve, "simpleSearchResults.do", url.Values{
		"action":                   {"firstPage"},
		"searchType":               {"Application"},
		"searchCriteria.reference": {reference},
	})
	if err != nil {
		metrics.RecordKeyResolution("error")
		return "", err
	}

	doc, err := parseHTML(body)
	if err != nil {
		metrics.RecordKeyResolution("error")
		return "", fmt.Errorf("%w: %v", domain.ErrParse, err)
	}

	var key string
	if link := keyLink(doc); link != nil {
		key = keyFromHref(attr(link, "href"))
	}
	if key == "" {
		metrics.RecordKeyResolution("not_found")
		return "", fmt.Errorf("%w: no result for %s", domain.ErrKeyNotResolvable, reference)
	}

	metrics.RecordKeyResolution("resolved")
	logger.Info("resolved %s via %s -> %s", failedKey, reference, key)
	return key, nil
}
