package synthesis

import (
	"strings"

	"github.com/newsloom/source-manager/internal/models"
)

const (
	telegramFetchLimit    = 50
	telegramMinTextLength = 30
	telegramMaxMedia      = 10
)

// telegramSkipPatterns marks channel noise that downstream ingestion drops.
var telegramSkipPatterns = []string{
	"advertisement",
	"sponsored",
	"subscribe to our channel",
	"join our channel",
	"promo code",
}

// BuildTelegramConfig builds the ingestion configuration for a Telegram
// entity. Pure string manipulation over fixed defaults; it never fails.
func BuildTelegramConfig(identifier string) *models.SourceConfig {
	return &models.SourceConfig{
		Platform: models.PlatformTelegram,
		Telegram: &models.TelegramConfig{
			Type:         "channel",
			Username:     telegramUsername(identifier),
			AccessMethod: "user",
		},
		Common: &models.CommonConfig{
			AI: models.AIConfig{Enabled: true},
			Media: models.MediaConfig{
				Include:      true,
				Download:     true,
				MaxPerItem:   telegramMaxMedia,
				AllowedTypes: []string{"photo", "video", "document"},
			},
			Content: models.ContentConfig{
				SkipPatterns:      telegramSkipPatterns,
				MinTextLength:     telegramMinTextLength,
				UseCaptionIfMedia: true,
			},
			FetchLimit:            telegramFetchLimit,
			DeduplicationStrategy: "message_id",
		},
	}
}

// telegramUsername strips t.me link and @ handle prefixes.
// "https://t.me/foo", "@foo" and "foo" all yield "foo".
func telegramUsername(identifier string) string {
	username := strings.TrimSpace(identifier)
	username = strings.TrimPrefix(username, "https://t.me/")
	username = strings.TrimPrefix(username, "http://t.me/")
	username = strings.TrimPrefix(username, "t.me/")
	username = strings.TrimPrefix(username, "@")
	return strings.TrimSpace(username)
}
