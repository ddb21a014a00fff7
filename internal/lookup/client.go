// Package lookup performs best-effort encyclopedia lookups for guess
// validation. A miss is never an error for the caller: absence of
// information must not veto a guess.
package lookup

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"telepath/internal/types"

	"go.uber.org/zap"
	"golang.org/x/net/html"
)

// Result is the reference trait set derived from an encyclopedia summary.
type Result struct {
	Name    string
	Found   bool
	Traits  map[types.TraitKey]string
	Summary string
}

// Client fetches subject summaries from a MediaWiki-style REST summary
// endpoint. The client is stateless; caching is the session's job so cache
// lifetime matches game lifetime.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        *zap.Logger
}

// NewClient creates a lookup client. A nil logger is replaced with a no-op.
func NewClient(baseURL string, timeout time.Duration, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		log:        log,
	}
}

type summaryReply struct {
	Title   string `json:"title"`
	Type    string `json:"type"`
	Extract string `json:"extract"`
}

// Lookup fetches and interprets the summary for name. A 404 or unusable
// page returns Found=false with a nil error.
func (c *Client) Lookup(ctx context.Context, name string) (Result, error) {
	title := url.PathEscape(strings.ReplaceAll(strings.TrimSpace(name), " ", "_"))
	reqURL := c.baseURL + "/" + title

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return Result{Name: name}, fmt.Errorf("failed to build lookup request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "telepath/1.0 (guess validation)")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{Name: name}, fmt.Errorf("lookup request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		c.log.Debug("lookup miss", zap.String("name", name))
		return Result{Name: name}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return Result{Name: name}, fmt.Errorf("lookup returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Result{Name: name}, fmt.Errorf("failed to read lookup body: %w", err)
	}

	extract := ""
	var sr summaryReply
	if err := json.Unmarshal(body, &sr); err == nil && sr.Extract != "" {
		extract = sr.Extract
	} else {
		// Some mirrors serve HTML; salvage the first paragraphs.
		extract = firstParagraphs(string(body))
	}
	if extract == "" {
		c.log.Debug("lookup returned no usable summary", zap.String("name", name))
		return Result{Name: name}, nil
	}

	traits := InferTraits(extract)
	c.log.Debug("lookup hit",
		zap.String("name", name),
		zap.Int("traits", len(traits)))
	return Result{Name: name, Found: true, Traits: traits, Summary: extract}, nil
}

// firstParagraphs extracts text from the first few <p> elements of an HTML
// document.
func firstParagraphs(page string) string {
	doc, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return ""
	}

	var paragraphs []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if len(paragraphs) >= 3 {
			return
		}
		if n.Type == html.ElementNode && n.Data == "p" {
			text := strings.TrimSpace(nodeText(n))
			if text != "" {
				paragraphs = append(paragraphs, text)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return strings.Join(paragraphs, " ")
}

func nodeText(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(nodeText(c))
	}
	return b.String()
}

// =============================================================================
// TRAIT INFERENCE
// =============================================================================

// InferTraits derives reference traits from free summary text. Heuristic and
// deliberately conservative: a key is only set when the text is clear.
func InferTraits(text string) map[types.TraitKey]string {
	lower := " " + strings.ToLower(text) + " "
	traits := make(map[types.TraitKey]string)

	he := countWord(lower, "he") + countWord(lower, "his") + countWord(lower, "him")
	she := countWord(lower, "she") + countWord(lower, "her")
	if he > she*2 && he > 0 {
		traits[types.KeyGender] = "male"
	} else if she > he*2 && she > 0 {
		traits[types.KeyGender] = "female"
	}

	switch {
	case containsAny(lower, "fictional character", "fictional superhero", "character in", "protagonist of", "antagonist of"):
		traits[types.KeyFictional] = "true"
	case containsAny(lower, "was an american", "is an american", "was a british", "is a british", "politician", "born 1", "born 2", "(born"):
		traits[types.KeyFictional] = "false"
	}

	switch {
	case containsAny(lower, "superpower", "superhuman", "magical powers", "supernatural"):
		traits[types.KeyHasPowers] = "true"
	}

	switch {
	case containsAny(lower, "supervillain", "main antagonist", "villain"):
		traits[types.KeyAlignment] = "villain"
	case containsAny(lower, "superhero", "protagonist", "hero of"):
		traits[types.KeyAlignment] = "hero"
	}

	switch {
	case containsAny(lower, "anime", "manga"):
		traits[types.KeyOriginMedium] = "anime"
	case containsAny(lower, "video game", "game series"):
		traits[types.KeyOriginMedium] = "game"
	case containsAny(lower, "comic book", "comics"):
		traits[types.KeyOriginMedium] = "comic"
	case containsAny(lower, "film series", "film directed", "movie"):
		traits[types.KeyOriginMedium] = "movie"
	}

	return traits
}

func countWord(lower, word string) int {
	return strings.Count(lower, " "+word+" ")
}

func containsAny(text string, terms ...string) bool {
	for _, t := range terms {
		if strings.Contains(text, t) {
			return true
		}
	}
	return false
}
