package channels

import (
	"context"
	"slices"

	"status-image/src/internal/bot"
)

// Channel is a bot the admin API can inspect and re-enroll.
type Channel interface {
	bot.Bot
	Info() map[string]any
	Enroll(ctx context.Context) error
}

// ImageHost publishes an image and returns a URL chat users can open.
// Platforms without native image messages reply with that link.
type ImageHost interface {
	Publish(ctx context.Context, image []byte) (string, error)
}

// allowed applies a blocklist then an allowlist to the given identities
// (usually the chat and the sender). An empty allowlist admits everyone.
func allowed(allow, block []string, ids ...string) bool {
	for _, id := range ids {
		if slices.Contains(block, id) {
			return false
		}
	}
	if len(allow) == 0 {
		return true
	}
	for _, id := range ids {
		if slices.Contains(allow, id) {
			return true
		}
	}
	return false
}
