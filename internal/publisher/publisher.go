// Package publisher defines the pluggable platform publisher abstraction.
//
// Each downstream platform (Telegram channel, Mastodon, WhatsApp) provides
// an implementation; the relay fans out over them uniformly and records a
// per-platform result, so one platform's failure never affects another.
package publisher

import "context"

// Media is an optional image attached to a publish request.
type Media struct {
	Data []byte
	// AltText is an optional accessibility description, used by platforms
	// that accept one on upload.
	AltText string
}

// Publisher publishes relayed content to one downstream platform. Each
// operation returns the platform-local id of the created item.
type Publisher interface {
	// Platform returns the platform name used in mappings and result cards.
	Platform() string

	// PublishNew publishes fresh content.
	PublishNew(ctx context.Context, content string, media *Media) (string, error)

	// PublishReply publishes content threaded under parentID.
	PublishReply(ctx context.Context, content, parentID string, media *Media) (string, error)

	// PublishRepost boosts/reposts the item identified by targetID.
	PublishRepost(ctx context.Context, targetID string) (string, error)
}
