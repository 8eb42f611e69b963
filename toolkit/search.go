package toolkit

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/dugongyete-ui/agent-manus/logging"
)

// searchUserAgent is sent with every request; DuckDuckGo serves the full
// result markup only to browser user agents.
const searchUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// maxPageText bounds extracted page text before formatting.
const maxPageText = 50000

// uddgPattern extracts the wrapped target URL from DuckDuckGo redirect
// links.
var uddgPattern = regexp.MustCompile(`uddg=([^&]+)`)

// skipContentTags are stripped from fetched pages before text extraction.
var skipContentTags = map[string]bool{
	"script": true, "style": true, "nav": true,
	"footer": true, "header": true, "aside": true,
}

// SearchResult is one web search hit.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
	Source  string `json:"source"`
}

// PageContent is the readable text of a fetched page.
type PageContent struct {
	URL    string `json:"url"`
	Title  string `json:"title"`
	Text   string `json:"text"`
	Length int    `json:"text_length"`
}

// SearchQuery is one entry of the search history.
type SearchQuery struct {
	Query     string    `json:"query"`
	Results   int       `json:"results_count"`
	Timestamp time.Time `json:"timestamp"`
}

// SearchOptions configures a SearchTool.
type SearchOptions struct {
	// MaxResults bounds results per query; 0 falls back to 10.
	MaxResults int
	// CacheTTL is how long query results are reused; 0 falls back to 1h.
	CacheTTL time.Duration
	// Timeout bounds each HTTP request; 0 falls back to 15s.
	Timeout time.Duration
	// HTMLEndpoint and LiteEndpoint override the DuckDuckGo URLs, used by
	// tests to point at a local server.
	HTMLEndpoint string
	LiteEndpoint string
	// HTTPClient overrides the default client.
	HTTPClient *http.Client
	// Logger receives search diagnostics.
	Logger logging.Logger
}

// SearchTool performs web search by scraping the DuckDuckGo HTML endpoint,
// falling back to the lite endpoint when the first yields nothing. Results
// are cached per query.
type SearchTool struct {
	opts   SearchOptions
	client *http.Client

	mu      sync.Mutex
	cache   map[string]cachedSearch
	history []SearchQuery
	now     func() time.Time
}

type cachedSearch struct {
	results []SearchResult
	fetched time.Time
}

// NewSearchTool creates a SearchTool.
func NewSearchTool(optFns ...func(o *SearchOptions)) *SearchTool {
	opts := SearchOptions{
		MaxResults:   10,
		CacheTTL:     time.Hour,
		Timeout:      15 * time.Second,
		HTMLEndpoint: "https://html.duckduckgo.com/html/",
		LiteEndpoint: "https://lite.duckduckgo.com/lite/",
		Logger:       logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.MaxResults <= 0 {
		opts.MaxResults = 10
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = time.Hour
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	return &SearchTool{
		opts:   opts,
		client: client,
		cache:  make(map[string]cachedSearch),
		now:    time.Now,
	}
}

// Name returns the tool identifier.
func (t *SearchTool) Name() string { return "search_tool" }

// Description returns the tool description shown to the model.
func (t *SearchTool) Description() string {
	return "Searches the web and fetches page content. " +
		"Supply a query to search, or action 'fetch' with a url to read a page."
}

// Parameters returns the JSON schema for tool parameters.
func (t *SearchTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{
				"type":        "string",
				"description": "Search query",
			},
			"action": map[string]any{
				"type":        "string",
				"enum":        []string{"search", "fetch"},
				"description": "Use fetch to retrieve the content of a url",
			},
			"url": map[string]any{
				"type":        "string",
				"description": "Page URL for fetch",
			},
		},
	}
}

// Execute routes the call to search or page fetch.
func (t *SearchTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	if stringParam(params, "action") == "fetch" {
		pageURL := stringParam(params, "url")
		if pageURL == "" {
			return "Tidak ada URL untuk fetch.", nil
		}
		page, err := t.FetchPage(ctx, pageURL)
		if err != nil {
			return fmt.Sprintf("Gagal fetch: %s", err.Error()), nil
		}
		return fmt.Sprintf("Judul: %s\n\n%s", page.Title, truncateRunes(page.Text, 5000)), nil
	}

	query := stringParam(params, "query")
	if query == "" {
		return "Tidak ada query pencarian.", nil
	}
	results, err := t.Search(ctx, query)
	if err != nil {
		return "", err
	}
	if len(results) == 0 {
		return "Tidak ada hasil.", nil
	}
	return FormatResults(results), nil
}

// Search queries DuckDuckGo and returns up to MaxResults hits. Engine
// failures are logged and yield an empty result set; the returned error is
// reserved for context cancellation.
func (t *SearchTool) Search(ctx context.Context, query string) ([]SearchResult, error) {
	t.opts.Logger.Info("searching", "query", query, "max", t.opts.MaxResults)

	if cached, ok := t.cached(query); ok {
		t.opts.Logger.Info("search cache hit", "query", query)
		return cached, nil
	}

	results := t.searchHTML(ctx, query)
	if len(results) == 0 {
		results = t.searchLite(ctx, query)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(results) == 0 {
		t.opts.Logger.Warn("no search results", "query", query)
	}

	t.store(query, results)
	return results, nil
}

// FetchPage retrieves a page and extracts its readable text, with script,
// style and page chrome removed.
func (t *SearchTool) FetchPage(ctx context.Context, pageURL string) (*PageContent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", searchUserAgent)

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return nil, err
	}

	title := ""
	if node := findFirst(doc, func(n *html.Node) bool { return n.DataAtom == atom.Title }); node != nil {
		title = strings.TrimSpace(nodeText(node))
	}

	text := truncateRunes(extractPageText(doc), maxPageText)
	return &PageContent{
		URL:    pageURL,
		Title:  title,
		Text:   text,
		Length: len(text),
	}, nil
}

// History returns the recorded queries, oldest first.
func (t *SearchTool) History() []SearchQuery {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]SearchQuery, len(t.history))
	copy(out, t.history)
	return out
}

// FormatResults renders search results as the numbered list the model
// observes.
func FormatResults(results []SearchResult) string {
	if len(results) == 0 {
		return "Tidak ada hasil ditemukan."
	}
	lines := make([]string, 0, len(results)*4)
	for i, r := range results {
		lines = append(lines, fmt.Sprintf("%d. **%s**", i+1, r.Title))
		lines = append(lines, fmt.Sprintf("   URL: %s", r.URL))
		if r.Snippet != "" {
			lines = append(lines, "   "+truncateRunes(r.Snippet, 300))
		}
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

// searchHTML scrapes the full HTML endpoint.
func (t *SearchTool) searchHTML(ctx context.Context, query string) []SearchResult {
	endpoint := t.opts.HTMLEndpoint + "?q=" + url.QueryEscape(query)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		t.opts.Logger.Error("html search request", "error", err.Error())
		return nil
	}
	req.Header.Set("User-Agent", searchUserAgent)

	doc, status, err := t.fetchDoc(req)
	if err != nil {
		t.opts.Logger.Error("html search failed", "error", err.Error())
		return nil
	}
	if status != http.StatusOK {
		t.opts.Logger.Warn("html search status", "status", status)
		return nil
	}

	var results []SearchResult
	for _, div := range findAll(doc, func(n *html.Node) bool {
		return n.Type == html.ElementNode && hasClass(n, "result")
	}) {
		anchor := findFirst(div, func(n *html.Node) bool {
			return n.DataAtom == atom.A && hasClass(n, "result__a")
		})
		if anchor == nil {
			if title := findFirst(div, func(n *html.Node) bool { return hasClass(n, "result__title") }); title != nil {
				anchor = findFirst(title, func(n *html.Node) bool { return n.DataAtom == atom.A })
			}
		}
		if anchor == nil {
			continue
		}

		href := unwrapRedirect(attrValue(anchor, "href"))
		if !strings.HasPrefix(href, "http") {
			continue
		}

		snippet := ""
		if node := findFirst(div, func(n *html.Node) bool { return hasClass(n, "result__snippet") }); node != nil {
			snippet = nodeText(node)
		}

		results = append(results, SearchResult{
			Title:   nodeText(anchor),
			URL:     href,
			Snippet: snippet,
			Source:  "duckduckgo",
		})
		if len(results) >= t.opts.MaxResults {
			break
		}
	}

	t.opts.Logger.Info("html search done", "query", query, "results", len(results))
	return results
}

// searchLite scrapes the lite endpoint, which answers plain result tables.
func (t *SearchTool) searchLite(ctx context.Context, query string) []SearchResult {
	form := url.Values{"q": {query}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.opts.LiteEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		t.opts.Logger.Error("lite search request", "error", err.Error())
		return nil
	}
	req.Header.Set("User-Agent", searchUserAgent)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	doc, status, err := t.fetchDoc(req)
	if err != nil {
		t.opts.Logger.Error("lite search failed", "error", err.Error())
		return nil
	}
	if status != http.StatusOK {
		return nil
	}

	var results []SearchResult
	for _, anchor := range findAll(doc, func(n *html.Node) bool {
		return n.DataAtom == atom.A && hasClass(n, "result-link")
	}) {
		href := unwrapRedirect(attrValue(anchor, "href"))
		if !strings.HasPrefix(href, "http") {
			continue
		}

		// The snippet sits in the table row after the link's row.
		snippet := ""
		if row := ancestorRow(anchor); row != nil {
			if next := nextElementSibling(row, atom.Tr); next != nil {
				snippet = truncateRunes(nodeText(next), 300)
			}
		}

		results = append(results, SearchResult{
			Title:   nodeText(anchor),
			URL:     href,
			Snippet: snippet,
			Source:  "duckduckgo_lite",
		})
		if len(results) >= t.opts.MaxResults {
			break
		}
	}

	t.opts.Logger.Info("lite search done", "query", query, "results", len(results))
	return results
}

func (t *SearchTool) fetchDoc(req *http.Request) (*html.Node, int, error) {
	resp, err := t.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, resp.StatusCode, nil
	}
	doc, err := html.Parse(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return doc, resp.StatusCode, nil
}

func (t *SearchTool) cached(query string) ([]SearchResult, bool) {
	key := strings.ToLower(strings.TrimSpace(query))
	t.mu.Lock()
	defer t.mu.Unlock()
	entry, ok := t.cache[key]
	if !ok {
		return nil, false
	}
	if t.now().Sub(entry.fetched) >= t.opts.CacheTTL {
		delete(t.cache, key)
		return nil, false
	}
	out := make([]SearchResult, len(entry.results))
	copy(out, entry.results)
	return out, true
}

func (t *SearchTool) store(query string, results []SearchResult) {
	key := strings.ToLower(strings.TrimSpace(query))
	stored := make([]SearchResult, len(results))
	copy(stored, results)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.cache[key] = cachedSearch{results: stored, fetched: t.now()}
	t.history = append(t.history, SearchQuery{
		Query:     query,
		Results:   len(results),
		Timestamp: t.now(),
	})
}

// unwrapRedirect resolves DuckDuckGo redirect links to the target URL.
func unwrapRedirect(href string) string {
	if !strings.Contains(href, "duckduckgo.com/y.js") && !strings.Contains(href, "uddg=") {
		return href
	}
	m := uddgPattern.FindStringSubmatch(href)
	if m == nil {
		return href
	}
	if unescaped, err := url.PathUnescape(m[1]); err == nil {
		return unescaped
	}
	return href
}

// attrValue returns the value of the named attribute, "" when absent.
func attrValue(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// hasClass reports whether an element node carries the CSS class.
func hasClass(n *html.Node, class string) bool {
	if n.Type != html.ElementNode {
		return false
	}
	for _, field := range strings.Fields(attrValue(n, "class")) {
		if field == class {
			return true
		}
	}
	return false
}

// findFirst walks the subtree depth-first and returns the first matching
// node.
func findFirst(n *html.Node, match func(*html.Node) bool) *html.Node {
	if match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, match); found != nil {
			return found
		}
	}
	return nil
}

// findAll collects every matching node in document order. Matched subtrees
// are not descended into again.
func findAll(n *html.Node, match func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if match(node) {
			out = append(out, node)
			return
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}

// nodeText concatenates the text content of a subtree with runs of
// whitespace collapsed.
func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			b.WriteString(node.Data)
			return
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(b.String()), " ")
}

// extractPageText walks the document collecting one line per text node,
// skipping script, style and page chrome subtrees.
func extractPageText(doc *html.Node) string {
	var lines []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && skipContentTags[n.Data] {
			return
		}
		if n.Type == html.TextNode {
			if line := strings.TrimSpace(n.Data); line != "" {
				lines = append(lines, line)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return strings.Join(lines, "\n")
}

// ancestorRow climbs to the enclosing table row.
func ancestorRow(n *html.Node) *html.Node {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.DataAtom == atom.Tr {
			return p
		}
	}
	return nil
}

// nextElementSibling returns the next sibling element of the given kind,
// skipping text nodes.
func nextElementSibling(n *html.Node, kind atom.Atom) *html.Node {
	for s := n.NextSibling; s != nil; s = s.NextSibling {
		if s.Type == html.ElementNode && s.DataAtom == kind {
			return s
		}
	}
	return nil
}
