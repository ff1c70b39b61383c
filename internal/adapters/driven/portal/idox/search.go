package idox

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/custodia-labs/planwatch/internal/core/domain"
	"github.com/custodia-labs/planwatch/internal/core/ports/driven"
	"github.com/custodia-labs/planwatch/internal/logger"
)

// Ensure DecisionSearch implements the interface.
var _ driven.DecisionSearcher = (*DecisionSearch)(nil)

// resultListMarkers show that a search returned a result list rather than
// the form again or an error page.
var resultListMarkers = []string{"matching results found", "Results", "searchresult"}

// Prefixes of the "|"-separated segments in a result's metaInfo line.
var (
	metaReference = []string{"Ref. No:"}
	metaStatus    = []string{"Status:"}
	metaDecided   = []string{"Decided:", "Decision Issued:", "Decision Date:"}
)

// DecisionSearch finds recently decided applications.
type DecisionSearch struct {
	client *Client
}

// NewDecisionSearch creates a decision search.
func NewDecisionSearch(client *Client) *DecisionSearch {
	return &DecisionSearch{client: client}
}

// RecentDecisions runs the advanced search for decisions between from and to.
// If the response has no recognisable result list it falls back to the
// weekly list of decided applications.
//
// Results from the advanced search carry the decision date from the result
// line when shown, otherwise the end of the window. Weekly list results carry
// the week's date and no status.
func (s *DecisionSearch) RecentDecisions(ctx context.Context, from, to time.Time) ([]domain.DecisionResult, error) {
	// Open a session so the search is accepted.
	if _, err := s.client.Get(ctx, endpointAdvanced, "search.do", url.Values{"action": {"advanced"}}); err != nil {
		logger.Debug("advanced search form: %v", err)
	}

	end := domain.DateOf(to).FormatDisplay()
	body, err := s.client.PostForm(ctx, endpointAdvanced, "advancedSearchResults.do?action=firstPage", url.Values{
		"searchType":                     {"Application"},
		"caseType":                       {""},
		"decisionType":                   {""},
		"caseStatus":                     {""},
		"date(applicationDecisionStart)": {domain.DateOf(from).FormatDisplay()},
		"date(applicationDecisionEnd)":   {end},
	})
	if err != nil {
		return nil, err
	}

	if !hasResultList(body) {
		logger.Info("advanced search returned no result list, trying weekly list")
		return s.weeklyList(ctx)
	}

	results, err := parseResults(body, end, true)
	if err != nil {
		return nil, err
	}
	logger.Debug("advanced search: %d results", len(results))
	return results, nil
}

func (s *DecisionSearch) weeklyList(ctx context.Context) ([]domain.DecisionResult, error) {
	form, err := s.client.Get(ctx, endpointWeekly, "search.do", url.Values{"action": {"weeklyList"}})
	if err != nil {
		return nil, err
	}
	doc, err := parseHTML(form)
	if err != nil {
		return nil, fmt.Errorf("%w: weekly list form: %v", domain.ErrParse, err)
	}

	sel := findFirst(doc, func(n *html.Node) bool {
		return n.DataAtom == atom.Select && attr(n, "id") == "week"
	})
	if sel == nil {
		return nil, fmt.Errorf("%w: weekly list has no week selector", domain.ErrParse)
	}
	opt := findFirst(sel, isElement(atom.Option))
	if opt == nil {
		return nil, fmt.Errorf("%w: weekly list has no weeks", domain.ErrParse)
	}
	week := attr(opt, "value")
	if week == "" {
		week = textOf(opt)
	}

	body, err := s.client.PostForm(ctx, endpointWeekly, "weeklyListSearchResults.do?action=firstPage", url.Values{
		"searchType": {"Application"},
		"dateType":   {"DC_Decided"},
		"week":       {week},
	})
	if err != nil {
		return nil, err
	}

	results, err := parseResults(body, "", false)
	if err != nil {
		return nil, err
	}
	logger.Debug("weekly list %s: %d results", week, len(results))
	return results, nil
}

// parseResults reads li.searchresult items. defaultDate is used when an item
// shows no decision date. withStatus controls whether the status segment is read.
func parseResults(body, defaultDate string, withStatus bool) ([]domain.DecisionResult, error) {
	doc, err := parseHTML(body)
	if err != nil {
		return nil, fmt.Errorf("%w: search results: %v", domain.ErrParse, err)
	}

	items := findAll(doc, elementWithClass(atom.Li, "searchresult"))
	results := make([]domain.DecisionResult, 0, len(items))
	for _, item := range items {
		link := keyLink(item)
		if link == nil {
			continue
		}
		key := keyFromHref(attr(link, "href"))
		if key == "" {
			continue
		}

		r := domain.DecisionResult{
			Key:          key,
			Reference:    textOf(link),
			DecisionText: defaultDate,
		}
		if addr := findFirst(item, elementWithClass(atom.P, "address")); addr != nil {
			r.Address = textOf(addr)
		}
		if meta := findFirst(item, elementWithClass(atom.P, "metaInfo")); meta != nil {
			segments := strings.Split(textOf(meta), "|")
			if ref := metaValue(segments, metaReference); ref != "" {
				r.Reference = ref
			}
			if withStatus {
				r.Status = metaValue(segments, metaStatus)
			}
			if decided := metaValue(segments, metaDecided); decided != "" {
				r.DecisionText = decided
			}
		}
		results = append(results, r)
	}
	return results, nil
}

func metaValue(segments, prefixes []string) string {
	for _, seg := range segments {
		seg = strings.TrimSpace(seg)
		for _, p := range prefixes {
			if v, ok := strings.CutPrefix(seg, p); ok {
				return strings.TrimSpace(v)
			}
		}
	}
	return ""
}

func hasResultList(body string) bool {
	for _, marker := range resultListMarkers {
		if strings.Contains(body, marker) {
			return true
		}
	}
	return false
}
