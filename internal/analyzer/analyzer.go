// Package analyzer performs structural analysis of a website's markup to
// infer article-link patterns, syndication feeds, and framework fingerprints.
package analyzer

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/newsloom/source-manager/internal/config"
	"github.com/newsloom/source-manager/internal/httpx"
	"github.com/newsloom/source-manager/internal/logger"
	"github.com/newsloom/source-manager/internal/models"
)

// minSelectorMatches is the minimum number of links a candidate selector must
// match before it is considered an article-link pattern.
const minSelectorMatches = 3

// linkSelectorCandidates are tried in priority order against the fetched page.
var linkSelectorCandidates = []string{
	"article h2 a",
	"article h3 a",
	"article a",
	".post-title a",
	".entry-title a",
	".news-item a",
	".article-list a",
	"h2 a",
	"h3 a",
}

// AnalysisError wraps any failure to reach or read the target site.
type AnalysisError struct {
	URL string
	Err error
}

func (e *AnalysisError) Error() string {
	return fmt.Sprintf("structural analysis of %q failed: %v", e.URL, e.Err)
}

func (e *AnalysisError) Unwrap() error {
	return e.Err
}

// Client fetches and structurally analyzes website markup.
type Client struct {
	logger    logger.Logger
	client    *http.Client
	userAgent string

	// allowPrivate disables the private-IP guard; only tests set this.
	allowPrivate bool
}

// NewClient creates a structural analyzer client.
func NewClient(cfg config.AnalyzerConfig, log logger.Logger) *Client {
	return &Client{
		logger:    log,
		client:    httpx.NewClient(cfg.Timeout),
		userAgent: cfg.UserAgent,
	}
}

// Analyze fetches the page at rawURL and inspects its markup. A scheme is
// prepended when absent. Any network, status, or parse failure is returned as
// an *AnalysisError; there are no retries here.
func (a *Client) Analyze(ctx context.Context, rawURL string) (*models.AnalysisResult, error) {
	targetURL := normalizeURL(rawURL)

	parsed, err := validateTargetURL(targetURL, a.allowPrivate)
	if err != nil {
		return nil, &AnalysisError{URL: rawURL, Err: err}
	}

	a.logger.Debug("Fetching page for structural analysis",
		logger.String("url", targetURL),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, http.NoBody)
	if err != nil {
		return nil, &AnalysisError{URL: rawURL, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("User-Agent", a.userAgent)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, &AnalysisError{URL: rawURL, Err: fmt.Errorf("fetch: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &AnalysisError{URL: rawURL, Err: fmt.Errorf("unexpected status code: %d", resp.StatusCode)}
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, &AnalysisError{URL: rawURL, Err: fmt.Errorf("parse HTML: %w", err)}
	}

	result := &models.AnalysisResult{
		DetectedFramework: detectFramework(doc),
		RSSFeeds:          extractFeeds(doc, parsed),
	}
	result.ArticleLinks = extractArticleLinks(doc)

	a.logger.Info("Structural analysis complete",
		logger.String("url", targetURL),
		logger.String("framework", result.DetectedFramework),
		logger.Int("link_count", result.ArticleLinks.Count),
		logger.Strings("selectors", result.ArticleLinks.Selectors),
		logger.Int("rss_feeds", len(result.RSSFeeds)),
	)

	return result, nil
}

// normalizeURL prepends https:// when the identifier carries no scheme.
func normalizeURL(rawURL string) string {
	trimmed := strings.TrimSpace(rawURL)
	if strings.Contains(trimmed, "://") {
		return trimmed
	}
	return "https://" + trimmed
}

// extractArticleLinks tries each candidate selector and keeps the ones that
// match enough links to look like an article listing.
func extractArticleLinks(doc *goquery.Document) models.ArticleLinks {
	links := models.ArticleLinks{}

	for _, sel := range linkSelectorCandidates {
		n := doc.Find(sel).Length()
		if n < minSelectorMatches {
			continue
		}
		links.Selectors = append(links.Selectors, sel)
		links.Count += n
	}

	return links
}

// extractFeeds collects RSS and Atom autodiscovery links, resolved against
// the page URL.
func extractFeeds(doc *goquery.Document, base *url.URL) []string {
	var feeds []string
	seen := make(map[string]struct{})

	doc.Find("link[type='application/rss+xml'], link[type='application/atom+xml']").Each(func(_ int, s *goquery.Selection) {
		href, exists := s.Attr("href")
		if !exists || href == "" {
			return
		}

		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		resolved := base.ResolveReference(ref).String()

		if _, dup := seen[resolved]; dup {
			return
		}
		seen[resolved] = struct{}{}
		feeds = append(feeds, resolved)
	})

	return feeds
}

// detectFramework fingerprints the site's publishing framework from the
// generator meta tag and well-known markup markers.
func detectFramework(doc *goquery.Document) string {
	if generator, exists := doc.Find("meta[name='generator']").Attr("content"); exists {
		g := strings.ToLower(generator)
		switch {
		case strings.Contains(g, "wordpress"):
			return "wordpress"
		case strings.Contains(g, "drupal"):
			return "drupal"
		case strings.Contains(g, "joomla"):
			return "joomla"
		case strings.Contains(g, "ghost"):
			return "ghost"
		case strings.Contains(g, "hugo"):
			return "hugo"
		}
	}

	html, err := doc.Html()
	if err == nil {
		switch {
		case strings.Contains(html, "wp-content/") || strings.Contains(html, "wp-json/"):
			return "wordpress"
		case strings.Contains(html, "/sites/default/files"):
			return "drupal"
		}
	}

	if doc.Find("#__next").Length() > 0 {
		return "nextjs"
	}
	if doc.Find("[data-reactroot]").Length() > 0 {
		return "react"
	}

	return "unknown"
}
