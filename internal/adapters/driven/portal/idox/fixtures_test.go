package idox

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

// portalFixture is a fake portal. Pages are keyed by "tab:key".
type portalFixture struct {
	mu       sync.Mutex
	pages    map[string]string
	search   map[string]string // reference -> results page
	advanced string
	weekForm string
	weekly   string
	status   int
	requests []string
	forms    []map[string]string
}

func newPortalFixture() *portalFixture {
	return &portalFixture{pages: map[string]string{}, search: map[string]string{}}
}

func (p *portalFixture) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/applicationDetails.do", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		p.serve(w, r, p.pages[q.Get("activeTab")+":"+q.Get("keyVal")])
	})
	mux.HandleFunc("/simpleSearchResults.do", func(w http.ResponseWriter, r *http.Request) {
		p.serve(w, r, p.search[r.URL.Query().Get("searchCriteria.reference")])
	})
	mux.HandleFunc("/search.do", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("action") == "weeklyList" {
			p.serve(w, r, p.weekForm)
			return
		}
		p.serve(w, r, "<html><form></form></html>")
	})
	mux.HandleFunc("/advancedSearchResults.do", func(w http.ResponseWriter, r *http.Request) {
		p.serve(w, r, p.advanced)
	})
	mux.HandleFunc("/weeklyListSearchResults.do", func(w http.ResponseWriter, r *http.Request) {
		p.serve(w, r, p.weekly)
	})
	return mux
}

func (p *portalFixture) serve(w http.ResponseWriter, r *http.Request, body string) {
	_ = r.ParseForm()
	p.mu.Lock()
	p.requests = append(p.requests, r.Method+" "+r.URL.Path+"?"+r.URL.RawQuery)
	if r.Method == http.MethodPost {
		form := map[string]string{}
		for k := range r.PostForm {
			form[k] = r.PostForm.Get(k)
		}
		p.forms = append(p.forms, form)
	}
	status := p.status
	p.mu.Unlock()

	if status != 0 {
		w.WriteHeader(status)
		return
	}
	_, _ = fmt.Fprint(w, body)
}

func (p *portalFixture) requestLog() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.requests...)
}

func startPortal(t *testing.T, p *portalFixture) *Client {
	t.Helper()
	srv := httptest.NewServer(p.handler())
	t.Cleanup(srv.Close)
	return NewClient(ClientConfig{
		BaseURL:           srv.URL + "/",
		UserAgent:         "planwatch-test",
		Timeout:           5 * time.Second,
		RequestsPerSecond: 1000,
	})
}

func summaryPage(rows ...string) string {
	return "<html><body><table>" + tableRows(rows...) + "</table></body></html>"
}

func tableRows(pairs ...string) string {
	out := ""
	for i := 0; i+1 < len(pairs); i += 2 {
		out += "<tr><th>" + pairs[i] + "</th><td>\n  " + pairs[i+1] + "\n</td></tr>"
	}
	return out
}

func resultItem(key, ref, address, meta string) string {
	return `<li class="searchresult">` +
		`<a href="/online-applications/applicationDetails.do?activeTab=summary&amp;keyVal=` + key + `">` + ref + `</a>` +
		`<p class="address">` + address + `</p>` +
		`<p class="metaInfo">` + meta + `</p></li>`
}
