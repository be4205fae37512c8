// Package mastodon wraps the Mastodon API for SyncPost.
//
// It implements the platform publisher against a configured instance:
// status posting, threaded replies, reblogs for quote syncs, and media
// upload with optional alt text.
package mastodon

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/mattn/go-mastodon"

	"github.com/BTreeMap/SyncPost/internal/models"
	"github.com/BTreeMap/SyncPost/internal/publisher"
)

// DefaultTimeout bounds every outbound Mastodon call.
const DefaultTimeout = 15 * time.Second

// Opts holds configuration options for the Mastodon publisher.
type Opts struct {
	Instance    string
	AccessToken string
	Timeout     time.Duration
}

// Option defines a configuration option for the Mastodon publisher.
type Option func(*Opts)

// WithInstance sets the instance base URL.
func WithInstance(instance string) Option {
	return func(o *Opts) { o.Instance = instance }
}

// WithAccessToken sets the API access token.
func WithAccessToken(token string) Option {
	return func(o *Opts) { o.AccessToken = token }
}

// WithTimeout overrides the outbound request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(o *Opts) { o.Timeout = timeout }
}

// Publisher publishes relayed content to one Mastodon account.
type Publisher struct {
	client *mastodon.Client
}

// Compile-time check that Publisher implements the publisher contract.
var _ publisher.Publisher = (*Publisher)(nil)

// NewPublisher creates a Mastodon publisher, applying any provided options.
// Instance and token fall back to MASTO_INSTANCE and MASTO_TOKEN.
func NewPublisher(opts ...Option) (*Publisher, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Instance == "" {
		cfg.Instance = os.Getenv("MASTO_INSTANCE")
	}
	if cfg.AccessToken == "" {
		cfg.AccessToken = os.Getenv("MASTO_TOKEN")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	slog.Debug("Mastodon publisher config loaded",
		"instance_set", cfg.Instance != "", "token_set", cfg.AccessToken != "")

	if cfg.Instance == "" || cfg.AccessToken == "" {
		return nil, fmt.Errorf("mastodon instance and access token must be provided: %w", models.ErrMissingCredentials)
	}

	client := mastodon.NewClient(&mastodon.Config{
		Server:      cfg.Instance,
		AccessToken: cfg.AccessToken,
	})
	client.Timeout = cfg.Timeout

	return &Publisher{client: client}, nil
}

func (p *Publisher) Platform() string {
	return models.PlatformMastodon
}

func (p *Publisher) PublishNew(ctx context.Context, content string, media *publisher.Media) (string, error) {
	return p.post(ctx, content, "", media)
}

func (p *Publisher) PublishReply(ctx context.Context, content, parentID string, media *publisher.Media) (string, error) {
	return p.post(ctx, content, parentID, media)
}

// PublishRepost boosts an existing status.
func (p *Publisher) PublishRepost(ctx context.Context, targetID string) (string, error) {
	status, err := p.client.Reblog(ctx, mastodon.ID(targetID))
	if err != nil {
		return "", fmt.Errorf("mastodon reblog failed: %w", err)
	}
	slog.Debug("Publisher.PublishRepost: status reblogged", "target_id", targetID, "id", status.ID)
	return string(status.ID), nil
}

func (p *Publisher) post(ctx context.Context, content, parentID string, media *publisher.Media) (string, error) {
	toot := &mastodon.Toot{Status: content}
	if parentID != "" {
		toot.InReplyToID = mastodon.ID(parentID)
	}
	if media != nil && len(media.Data) > 0 {
		att, err := p.client.UploadMediaFromMedia(ctx, &mastodon.Media{
			File:        bytes.NewReader(media.Data),
			Description: media.AltText,
		})
		if err != nil {
			return "", fmt.Errorf("mastodon media upload failed: %w", err)
		}
		toot.MediaIDs = []mastodon.ID{att.ID}
	}
	if toot.Status == "" && len(toot.MediaIDs) == 0 {
		return "", models.ErrEmptyContent
	}
	status, err := p.client.PostStatus(ctx, toot)
	if err != nil {
		return "", fmt.Errorf("mastodon status post failed: %w", err)
	}
	slog.Debug("Publisher.post: status published", "id", status.ID, "in_reply_to", parentID)
	return string(status.ID), nil
}
