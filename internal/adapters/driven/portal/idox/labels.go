package idox

import (
	"net/url"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// The portal renders record fields as <tr><th>Label</th><td>Value</td></tr>.
// Labels are matched by substring so minor wording changes still match.

// parseHTML parses a page. The html parser recovers from malformed markup,
// so it only fails on read errors.
func parseHTML(body string) (*html.Node, error) {
	return html.Parse(strings.NewReader(body))
}

// labelValue returns the text of the <td> paired with the <th> labelled
// label. An exact label wins over one that merely contains it, so "Status"
// does not pick up "Appeal Status". Returns "" if no label matches.
func labelValue(doc *html.Node, label string) string {
	th := findFirst(doc, func(n *html.Node) bool {
		return n.DataAtom == atom.Th && strings.TrimSuffix(textOf(n), ":") == label
	})
	if th == nil {
		th = findFirst(doc, func(n *html.Node) bool {
			return n.DataAtom == atom.Th && strings.Contains(textOf(n), label)
		})
	}
	if th == nil {
		return ""
	}
	for sib := th.NextSibling; sib != nil; sib = sib.NextSibling {
		if sib.Type == html.ElementNode && sib.DataAtom == atom.Td {
			return textOf(sib)
		}
	}
	// Fall back to the first cell of the enclosing row.
	for p := th.Parent; p != nil; p = p.Parent {
		if p.DataAtom == atom.Tr {
			if td := findFirst(p, isElement(atom.Td)); td != nil {
				return textOf(td)
			}
			break
		}
	}
	return ""
}

// textOf returns the whitespace-collapsed text content of n.
func textOf(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(b.String()), " ")
}

func findFirst(n *html.Node, match func(*html.Node) bool) *html.Node {
	if n.Type == html.ElementNode && match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, match); found != nil {
			return found
		}
	}
	return nil
}

func findAll(n *html.Node, match func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && match(n) {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}

func isElement(a atom.Atom) func(*html.Node) bool {
	return func(n *html.Node) bool { return n.DataAtom == a }
}

func attr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func elementWithClass(a atom.Atom, class string) func(*html.Node) bool {
	return func(n *html.Node) bool { return n.DataAtom == a && hasClass(n, class) }
}

// keyLink returns the first anchor under n whose href carries a keyVal.
func keyLink(n *html.Node) *html.Node {
	return findFirst(n, func(n *html.Node) bool {
		return n.DataAtom == atom.A && strings.Contains(attr(n, "href"), "keyVal=")
	})
}

// keyFromHref extracts the keyVal query parameter from a link.
func keyFromHref(href string) string {
	href = html.UnescapeString(href)
	if u, err := url.Parse(href); err == nil {
		if k := u.Query().Get("keyVal"); k != "" {
			return k
		}
	}
	_, rest, ok := strings.Cut(href, "keyVal=")
	if !ok {
		return ""
	}
	key, _, _ := strings.Cut(rest, "&")
	return key
}
