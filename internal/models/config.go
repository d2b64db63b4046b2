// Package models defines the source configuration shapes shared across the
// synthesis pipeline, persistence, and the HTTP API.
package models

import (
	"errors"
	"time"
)

// Platform identifies the ingestion platform of a source.
type Platform string

const (
	PlatformTelegram Platform = "telegram"
	PlatformWebsite  Platform = "website"
)

var (
	// ErrMissingPlatform is returned when a config carries no platform tag.
	ErrMissingPlatform = errors.New("config is missing platform")
	// ErrMissingCommon is returned when a config carries no common section.
	ErrMissingCommon = errors.New("config is missing common section")
	// ErrPlatformMismatch is returned when the platform-specific section does
	// not match the platform tag.
	ErrPlatformMismatch = errors.New("platform section does not match platform tag")
)

// SourceConfig is the machine-actionable ingestion configuration for a single
// source. It is a tagged union keyed by Platform: exactly one of Telegram or
// Website is set, and Common is always present in a final config.
type SourceConfig struct {
	Platform Platform        `json:"platform"`
	Common   *CommonConfig   `json:"common"`
	Telegram *TelegramConfig `json:"telegram,omitempty"`
	Website  *WebsiteConfig  `json:"website,omitempty"`
}

// Validate checks the structural contract of the tagged union.
// A config parsed from an external collaborator must pass Validate before it
// is handed to persistence or returned to a caller.
func (c *SourceConfig) Validate() error {
	if c.Platform == "" {
		return ErrMissingPlatform
	}
	if c.Common == nil {
		return ErrMissingCommon
	}
	switch c.Platform {
	case PlatformTelegram:
		if c.Website != nil {
			return ErrPlatformMismatch
		}
	case PlatformWebsite:
		if c.Telegram != nil {
			return ErrPlatformMismatch
		}
	}
	return nil
}

// TelegramConfig describes how a Telegram entity is polled.
type TelegramConfig struct {
	Type         string `json:"type"`
	Username     string `json:"username"`
	AccessMethod string `json:"access_method"`
}

// WebsiteConfig describes how a website is crawled for articles.
type WebsiteConfig struct {
	DetectedFramework    string   `json:"detected_framework"`
	ArticleLinkSelectors []string `json:"article_link_selectors"`
	RSSFeeds             []string `json:"rss_feeds"`
}

// CommonConfig holds the platform-independent ingestion settings.
type CommonConfig struct {
	AI                    AIConfig      `json:"ai"`
	Media                 MediaConfig   `json:"media"`
	State                 StateConfig   `json:"state"`
	Content               ContentConfig `json:"content"`
	FetchLimit            int           `json:"fetch_limit"`
	DeduplicationStrategy string        `json:"deduplication_strategy"`
}

// AIConfig toggles AI post-processing of ingested items.
type AIConfig struct {
	Enabled bool `json:"enabled"`
}

// MediaConfig controls media handling for ingested items.
type MediaConfig struct {
	Include      bool     `json:"include"`
	Download     bool     `json:"download"`
	MaxPerItem   int      `json:"max_per_item"`
	AllowedTypes []string `json:"allowed_types"`
}

// StateConfig carries the ingestion cursor maintained by the fetcher.
type StateConfig struct {
	LastMessageID int64      `json:"last_message_id"`
	LastFetchedAt *time.Time `json:"last_fetched_at"`
}

// ContentConfig controls content filtering of ingested items.
type ContentConfig struct {
	StripURLs         bool     `json:"strip_urls"`
	StripEmojis       bool     `json:"strip_emojis"`
	SkipPatterns      []string `json:"skip_patterns"`
	MinTextLength     int      `json:"min_text_length"`
	UseCaptionIfMedia bool     `json:"use_caption_if_media"`
}

// AnalysisResult is the outcome of structural analysis of a website,
// consumed read-only by the website config synthesizer.
type AnalysisResult struct {
	ArticleLinks      ArticleLinks `json:"article_links"`
	DetectedFramework string       `json:"detected_framework"`
	RSSFeeds          []string     `json:"rss_feeds"`
}

// ArticleLinks summarizes the article-link patterns discovered on a page.
type ArticleLinks struct {
	Count     int      `json:"count"`
	Selectors []string `json:"selectors"`
}

// Empty reports whether the analysis discovered nothing actionable:
// no article-link selectors and no syndication feeds.
func (r *AnalysisResult) Empty() bool {
	return len(r.ArticleLinks.Selectors) == 0 && len(r.RSSFeeds) == 0
}
