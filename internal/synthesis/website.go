package synthesis

import (
	"github.com/newsloom/source-manager/internal/models"
)

const (
	websiteFetchLimit    = 20
	websiteMinTextLength = 100
	websiteMaxMedia      = 10

	// maxLinkSelectors caps how many discovered selector patterns are carried
	// into the config; more than this is noise for the crawler.
	maxLinkSelectors = 5
)

// BuildWebsiteConfig builds the ingestion configuration for a website from a
// structural analysis result. Pure transform; a result with zero discovered
// links still yields a well-formed config with an empty selector list —
// whether that is acceptable is the orchestrator's call.
func BuildWebsiteConfig(result *models.AnalysisResult) *models.SourceConfig {
	selectors := result.ArticleLinks.Selectors
	if len(selectors) > maxLinkSelectors {
		selectors = selectors[:maxLinkSelectors]
	}

	return &models.SourceConfig{
		Platform: models.PlatformWebsite,
		Website: &models.WebsiteConfig{
			DetectedFramework:    result.DetectedFramework,
			ArticleLinkSelectors: selectors,
			RSSFeeds:             result.RSSFeeds,
		},
		Common: &models.CommonConfig{
			AI: models.AIConfig{Enabled: true},
			Media: models.MediaConfig{
				Include:      true,
				MaxPerItem:   websiteMaxMedia,
				AllowedTypes: []string{"photo", "video"},
			},
			Content: models.ContentConfig{
				StripURLs:     true,
				MinTextLength: websiteMinTextLength,
			},
			FetchLimit:            websiteFetchLimit,
			DeduplicationStrategy: "url",
		},
	}
}
