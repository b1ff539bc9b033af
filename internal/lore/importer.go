package lore

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/roleverse/sceneflow/internal/config"
)

// Importer fetches a web page and extracts readable text to use as a role's
// background lore.
type Importer struct {
	httpClient *http.Client
	maxRunes   int
}

func New() *Importer {
	return &Importer{
		httpClient: &http.Client{Timeout: config.LoreFetchTimeout},
		maxRunes:   config.MaxLoreRunes,
	}
}

// NewWithClient is used by tests to point at a local server.
func NewWithClient(hc *http.Client, maxRunes int) *Importer {
	return &Importer{httpClient: hc, maxRunes: maxRunes}
}

// Fetch downloads the page and returns its title and extracted body text,
// capped at the rune limit.
func (i *Importer) Fetch(ctx context.Context, rawURL string) (title, body string, err error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return "", "", fmt.Errorf("invalid lore url %q", rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, "GET", rawURL, nil)
	if err != nil {
		return "", "", fmt.Errorf("create request: %w", err)
	}

	resp, err := i.httpClient.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("fetch lore: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("fetch lore: status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", "", fmt.Errorf("parse lore page: %w", err)
	}

	title = strings.TrimSpace(doc.Find("title").First().Text())

	var parts []string
	doc.Find("script, style, nav, footer").Remove()
	doc.Find("h1, h2, h3, p, li").Each(func(_ int, s *goquery.Selection) {
		text := strings.Join(strings.Fields(s.Text()), " ")
		if text != "" {
			parts = append(parts, text)
		}
	})

	body = strings.Join(parts, "\n")
	if runes := []rune(body); len(runes) > i.maxRunes {
		body = string(runes[:i.maxRunes])
	}
	return title, body, nil
}
