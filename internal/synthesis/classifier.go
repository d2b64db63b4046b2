// Package synthesis turns raw source identifiers into validated ingestion
// configurations. Telegram sources are built deterministically; websites are
// structurally analyzed, with a generative fallback when analysis fails.
package synthesis

import (
	"strings"

	"github.com/newsloom/source-manager/internal/models"
)

// Classify determines the ingestion platform for a raw identifier.
// An identifier containing "t.me/" or starting with "@" is telegram,
// everything else is a website. This is a heuristic, not a URL grammar
// check; it never fails.
func Classify(identifier string) models.Platform {
	if strings.Contains(identifier, "t.me/") || strings.HasPrefix(identifier, "@") {
		return models.PlatformTelegram
	}
	return models.PlatformWebsite
}
