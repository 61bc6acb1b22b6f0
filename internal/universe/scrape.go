package universe

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/net/html"

	"corrpulse/internal/fetch"
	"corrpulse/pkg/contracts/domain"
)

var wikiURLs = map[domain.IndexScope]string{
	domain.ScopeSP500:     "https://en.wikipedia.org/wiki/List_of_S%26P_500_companies",
	domain.ScopeNasdaq100: "https://en.wikipedia.org/wiki/Nasdaq-100",
}

var symbolPattern = regexp.MustCompile(`^[A-Z0-9.-]{1,10}$`)

// Scraper extracts index constituents from public constituent pages.
// It is the middle rung of the universe fallback ladder, used when the
// primary provider denies access or returns nothing.
type Scraper struct {
	client *fetch.Client
	urls   map[domain.IndexScope]string
}

// NewScraper creates a scraper backed by the given HTTP client.
func NewScraper(client *fetch.Client) *Scraper {
	return &Scraper{client: client, urls: wikiURLs}
}

// Constituents fetches and parses the constituent page for scope.
func (s *Scraper) Constituents(ctx context.Context, scope domain.IndexScope) ([]string, error) {
	url, ok := s.urls[scope]
	if !ok {
		return nil, fmt.Errorf("no constituent page for scope %q", scope)
	}

	body, err := s.client.Get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetch constituent page: %w", err)
	}

	return extractSymbols(string(body))
}

// normalizeSymbol cleans one raw table cell into a ticker token.
// Returns empty when the cell does not hold a plausible symbol.
func normalizeSymbol(raw string) string {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.ReplaceAll(cleaned, "​", "")
	cleaned = strings.ReplaceAll(cleaned, " ", "")
	cleaned = strings.Join(strings.Fields(cleaned), " ")

	if idx := strings.IndexByte(cleaned, ' '); idx >= 0 {
		cleaned = cleaned[:idx]
	}
	cleaned = strings.ToUpper(cleaned)

	if !symbolPattern.MatchString(cleaned) {
		return ""
	}
	return cleaned
}

type tableCandidate struct {
	score   int
	symbols []string
}

// extractSymbols locates constituent tables in the page and returns
// the symbols of the best-scoring one. A table qualifies when its
// header row mentions a ticker or symbol column; tables that also
// carry a company or security column score higher because constituent
// listings pair tickers with names.
func extractSymbols(page string) ([]string, error) {
	root, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("parse constituent page: %w", err)
	}

	var candidates []tableCandidate
	walkNodes(root, func(n *html.Node) {
		if n.Type != html.ElementNode || n.Data != "table" || !hasClass(n, "wikitable") {
			return
		}
		if cand, ok := scoreTable(n); ok {
			candidates = append(candidates, cand)
		}
	})

	if len(candidates) == 0 {
		return []string{}, nil
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})
	return candidates[0].symbols, nil
}

func scoreTable(table *html.Node) (tableCandidate, bool) {
	rows := collectRows(table)
	if len(rows) == 0 {
		return tableCandidate{}, false
	}

	headers := headerTexts(rows[0])
	hasTicker := false
	hasName := false
	for _, header := range headers {
		if strings.Contains(header, "ticker") || strings.Contains(header, "symbol") {
			hasTicker = true
		}
		if strings.Contains(header, "company") || strings.Contains(header, "security") {
			hasName = true
		}
	}
	if !hasTicker {
		return tableCandidate{}, false
	}

	seen := make(map[string]struct{})
	var symbols []string
	for _, row := range rows {
		cell := firstCell(row, "td")
		if cell == nil {
			continue
		}
		normalized := normalizeSymbol(nodeText(cell))
		if normalized == "" {
			continue
		}
		if _, dup := seen[normalized]; dup {
			continue
		}
		seen[normalized] = struct{}{}
		symbols = append(symbols, normalized)
	}

	if len(symbols) == 0 {
		return tableCandidate{}, false
	}

	score := len(symbols)
	if hasName {
		score += 20
	}
	return tableCandidate{score: score, symbols: symbols}, true
}

func collectRows(table *html.Node) []*html.Node {
	var rows []*html.Node
	walkNodes(table, func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "tr" {
			rows = append(rows, n)
		}
	})
	return rows
}

func headerTexts(row *html.Node) []string {
	var headers []string
	walkNodes(row, func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "th" {
			headers = append(headers, strings.ToLower(strings.TrimSpace(nodeText(n))))
		}
	})
	return headers
}

func firstCell(row *html.Node, tag string) *html.Node {
	for c := row.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == tag {
			return c
		}
	}
	return nil
}

func nodeText(n *html.Node) string {
	var sb strings.Builder
	walkNodes(n, func(child *html.Node) {
		if child.Type == html.TextNode {
			sb.WriteString(child.Data)
		}
	})
	return sb.String()
}

func hasClass(n *html.Node, class string) bool {
	for _, attr := range n.Attr {
		if attr.Key != "class" {
			continue
		}
		for _, c := range strings.Fields(attr.Val) {
			if c == class {
				return true
			}
		}
	}
	return false
}

// walkNodes visits n and every descendant in document order.
func walkNodes(n *html.Node, visit func(*html.Node)) {
	visit(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walkNodes(c, visit)
	}
}
