// Package twiliowhatsapp wraps the Twilio API for WhatsApp integration in
// SyncPost.
//
// It is the hosted-API alternative to the whatsmeow backend: text-only, no
// device pairing. Media and threading are not available through plain
// Twilio messages, so image bytes are dropped and replies post unthreaded.
package twiliowhatsapp

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/BTreeMap/SyncPost/internal/models"
	"github.com/BTreeMap/SyncPost/internal/publisher"
)

// Opts holds configuration options for the Twilio WhatsApp publisher.
type Opts struct {
	AccountSID string
	AuthToken  string
	FromWhats  string
	To         string
}

// Option defines a configuration option for the Twilio WhatsApp publisher.
type Option func(*Opts)

// WithAccountSID sets the Twilio account SID.
func WithAccountSID(sid string) Option {
	return func(o *Opts) { o.AccountSID = sid }
}

// WithAuthToken sets the Twilio auth token.
func WithAuthToken(token string) Option {
	return func(o *Opts) { o.AuthToken = token }
}

// WithFromWhats sets the sending WhatsApp number.
func WithFromWhats(from string) Option {
	return func(o *Opts) { o.FromWhats = from }
}

// WithTo sets the relay target number.
func WithTo(to string) Option {
	return func(o *Opts) { o.To = to }
}

// Publisher relays synced content to one WhatsApp number via the Twilio
// REST API.
type Publisher struct {
	client    *twilio.RestClient
	fromWhats string // WhatsApp number in "whatsapp:+1234567890" format
	to        string
}

// Compile-time check that Publisher implements the publisher contract.
var _ publisher.Publisher = (*Publisher)(nil)

// NewPublisher creates a Twilio-backed WhatsApp publisher. Credentials fall
// back to the TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN and TWILIO_FROM_NUMBER
// environment variables; the target falls back to WHATSAPP_TO.
func NewPublisher(opts ...Option) (*Publisher, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.AccountSID == "" {
		cfg.AccountSID = os.Getenv("TWILIO_ACCOUNT_SID")
	}
	if cfg.AuthToken == "" {
		cfg.AuthToken = os.Getenv("TWILIO_AUTH_TOKEN")
	}
	if cfg.FromWhats == "" {
		cfg.FromWhats = os.Getenv("TWILIO_FROM_NUMBER")
	}
	if cfg.To == "" {
		cfg.To = os.Getenv("WHATSAPP_TO")
	}
	slog.Debug("Twilio publisher config loaded",
		"AccountSID_set", cfg.AccountSID != "",
		"AuthToken_set", cfg.AuthToken != "",
		"FromWhats_set", cfg.FromWhats != "",
		"to_set", cfg.To != "")

	if cfg.AccountSID == "" || cfg.AuthToken == "" || cfg.FromWhats == "" || cfg.To == "" {
		return nil, fmt.Errorf("twilio account SID, auth token, from number and relay target must be provided: %w", models.ErrMissingCredentials)
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})

	return &Publisher{
		client:    client,
		fromWhats: canonicalWhats(cfg.FromWhats),
		to:        canonicalWhats(cfg.To),
	}, nil
}

// canonicalWhats ensures the "whatsapp:" prefix Twilio expects.
func canonicalWhats(number string) string {
	if strings.HasPrefix(number, "whatsapp:") {
		return number
	}
	return "whatsapp:" + number
}

func (p *Publisher) Platform() string {
	return models.PlatformWhatsApp
}

func (p *Publisher) PublishNew(ctx context.Context, content string, media *publisher.Media) (string, error) {
	if media != nil && len(media.Data) > 0 {
		slog.Warn("Publisher.PublishNew: twilio backend cannot attach raw image bytes, sending text only")
	}
	return p.send(content)
}

func (p *Publisher) PublishReply(ctx context.Context, content, parentID string, media *publisher.Media) (string, error) {
	// Twilio WhatsApp messages cannot reference a parent message.
	return p.PublishNew(ctx, content, media)
}

func (p *Publisher) PublishRepost(ctx context.Context, targetID string) (string, error) {
	return "", fmt.Errorf("twilio whatsapp: %w", models.ErrRepostUnsupported)
}

func (p *Publisher) send(content string) (string, error) {
	if content == "" {
		return "", models.ErrEmptyContent
	}
	params := &twilioApi.CreateMessageParams{}
	params.SetTo(p.to)
	params.SetFrom(p.fromWhats)
	params.SetBody(content)

	resp, err := p.client.Api.CreateMessage(params)
	if err != nil {
		return "", fmt.Errorf("twilio message create failed: %w", err)
	}
	if resp.Sid == nil {
		return "", fmt.Errorf("twilio message create returned no sid")
	}
	slog.Debug("Publisher.send: twilio message created", "sid", *resp.Sid)
	return *resp.Sid, nil
}
