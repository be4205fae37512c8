// Package whatsapp wraps the Whatsmeow client for WhatsApp integration in
// SyncPost.
//
// It implements the optional WhatsApp platform publisher, relaying synced
// content to a configured chat or group JID.
package whatsapp

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/mdp/qrterminal/v3"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	waLog "go.mau.fi/whatsmeow/util/log"
	"google.golang.org/protobuf/proto"

	"github.com/BTreeMap/SyncPost/internal/models"
	"github.com/BTreeMap/SyncPost/internal/publisher"
	"github.com/BTreeMap/SyncPost/internal/store"
)

// Constants for WhatsApp client configuration
const (
	// DefaultSQLitePath is the default path for the whatsmeow SQLite database
	DefaultSQLitePath = "/var/lib/syncpost/whatsmeow.db"
	// JIDSuffix is the WhatsApp JID suffix for regular users
	JIDSuffix = "s.whatsapp.net"
)

// Opts holds configuration options for the WhatsApp publisher.
type Opts struct {
	DBDSN       string // whatsmeow database connection string
	QRPath      string // path to write login QR code
	NumericCode bool   // use numeric login code instead of QR code
	To          string // relay target: phone number or full JID (groups supported)
}

// Option defines a configuration option for the WhatsApp publisher.
type Option func(*Opts)

// WithDBDSN sets the whatsmeow database connection string.
func WithDBDSN(dsn string) Option {
	return func(o *Opts) { o.DBDSN = dsn }
}

// WithQRCodeOutput instructs the client to write the login QR code to the specified path.
func WithQRCodeOutput(path string) Option {
	return func(o *Opts) { o.QRPath = path }
}

// WithNumericCode instructs the client to use a numeric login code instead of a QR code.
func WithNumericCode() Option {
	return func(o *Opts) { o.NumericCode = true }
}

// WithTo sets the relay target chat.
func WithTo(to string) Option {
	return func(o *Opts) { o.To = to }
}

// Publisher relays synced content to one WhatsApp chat via whatsmeow.
type Publisher struct {
	wa *whatsmeow.Client
	to types.JID
}

// Compile-time check that Publisher implements the publisher contract.
var _ publisher.Publisher = (*Publisher)(nil)

// NewPublisher creates a WhatsApp publisher, connecting (and logging in if
// needed) through the whatsmeow device store.
func NewPublisher(opts ...Option) (*Publisher, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.To == "" {
		cfg.To = os.Getenv("WHATSAPP_TO")
	}
	slog.Debug("WhatsApp NewPublisher options set",
		"DBDSN_set", cfg.DBDSN != "", "QRPath_set", cfg.QRPath != "", "NumericCode", cfg.NumericCode, "to_set", cfg.To != "")

	if cfg.To == "" {
		return nil, fmt.Errorf("whatsapp relay target must be provided: %w", models.ErrMissingCredentials)
	}
	to, err := parseTarget(cfg.To)
	if err != nil {
		return nil, err
	}

	dbDSN := cfg.DBDSN
	if dbDSN == "" {
		dbDSN = DefaultSQLitePath
		slog.Debug("No WhatsApp database DSN provided, using default SQLite path", "default_path", dbDSN)
	}

	// Auto-detect database driver based on DSN
	var dbDriver string
	if store.DetectDSNType(dbDSN) == "postgres" {
		dbDriver = "postgres"
	} else {
		dbDriver = "sqlite3"
		// whatsmeow strongly recommends foreign keys for its SQLite store
		if !strings.Contains(dbDSN, "_foreign_keys") && !strings.Contains(dbDSN, "foreign_keys") {
			slog.Warn("SQLite database for WhatsApp does not appear to have foreign keys enabled. "+
				"Consider adding '?_foreign_keys=on' to your connection string.",
				"dsn_example", "file:"+dbDSN+"?_foreign_keys=on")
		}
	}

	ctx := context.Background()
	container, err := sqlstore.New(ctx, dbDriver, dbDSN, waLog.Stdout("Database", "INFO", true))
	if err != nil {
		slog.Error("Failed to initialize WhatsApp DB store", "error", err)
		return nil, fmt.Errorf("failed to initialize WhatsApp database store: %w", err)
	}
	deviceStore, err := container.GetFirstDevice(ctx)
	if err != nil {
		slog.Error("Failed to get first device from store", "error", err)
		return nil, fmt.Errorf("failed to get device from WhatsApp store: %w", err)
	}

	waClient := whatsmeow.NewClient(deviceStore, waLog.Stdout("Client", "INFO", true))

	if waClient.Store.ID == nil {
		slog.Info("WhatsApp login required; starting QR code flow")
		qrChan, _ := waClient.GetQRChannel(context.Background())
		if err := waClient.Connect(); err != nil {
			slog.Error("Failed to connect to WhatsApp during login", "error", err)
			return nil, fmt.Errorf("failed to connect to WhatsApp during login: %w", err)
		}
		writer := io.Writer(os.Stdout)
		if cfg.QRPath != "" {
			f, ferr := os.Create(cfg.QRPath)
			if ferr != nil {
				slog.Error("Failed to create QR file", "error", ferr)
				return nil, fmt.Errorf("failed to create QR file: %w", ferr)
			}
			defer f.Close()
			writer = f
		}
		for evt := range qrChan {
			if evt.Event == "code" {
				if cfg.NumericCode {
					fmt.Fprintln(writer, evt.Code)
				} else {
					qrterminal.GenerateHalfBlock(evt.Code, qrterminal.L, writer)
				}
			} else {
				slog.Debug("WhatsApp login event", "event", evt.Event)
			}
		}
	} else {
		slog.Debug("WhatsApp already logged in, connecting to server")
		if err := waClient.Connect(); err != nil {
			slog.Error("Failed to connect to WhatsApp server", "error", err)
			return nil, fmt.Errorf("failed to connect to WhatsApp server: %w", err)
		}
	}
	slog.Info("WhatsApp publisher connected", "to", to.String())

	return &Publisher{wa: waClient, to: to}, nil
}

// parseTarget accepts a full JID (user or group) or a bare phone number.
func parseTarget(to string) (types.JID, error) {
	if strings.Contains(to, "@") {
		jid, err := types.ParseJID(to)
		if err != nil {
			return types.EmptyJID, fmt.Errorf("invalid whatsapp target %q: %w", to, err)
		}
		return jid, nil
	}
	return types.NewJID(to, JIDSuffix), nil
}

func (p *Publisher) Platform() string {
	return models.PlatformWhatsApp
}

func (p *Publisher) PublishNew(ctx context.Context, content string, media *publisher.Media) (string, error) {
	if media != nil && len(media.Data) > 0 {
		return p.sendImage(ctx, content, media.Data)
	}
	if content == "" {
		return "", models.ErrEmptyContent
	}
	return p.send(ctx, &waE2E.Message{Conversation: proto.String(content)})
}

// PublishReply quotes the parent message via the stanza id recorded when it
// was relayed.
func (p *Publisher) PublishReply(ctx context.Context, content, parentID string, media *publisher.Media) (string, error) {
	if media != nil && len(media.Data) > 0 {
		// WhatsApp image messages cannot quote; send the image unthreaded.
		return p.sendImage(ctx, content, media.Data)
	}
	if content == "" {
		return "", models.ErrEmptyContent
	}
	var participant string
	if p.wa.Store.ID != nil {
		participant = p.wa.Store.ID.ToNonAD().String()
	}
	msg := &waE2E.Message{
		ExtendedTextMessage: &waE2E.ExtendedTextMessage{
			Text: proto.String(content),
			ContextInfo: &waE2E.ContextInfo{
				StanzaID:      proto.String(parentID),
				Participant:   proto.String(participant),
				QuotedMessage: &waE2E.Message{Conversation: proto.String("")},
			},
		},
	}
	return p.send(ctx, msg)
}

// PublishRepost fails: WhatsApp has no boost primitive, and the relay
// surfaces that as an ordinary per-platform failure.
func (p *Publisher) PublishRepost(ctx context.Context, targetID string) (string, error) {
	return "", fmt.Errorf("whatsapp: %w", models.ErrRepostUnsupported)
}

func (p *Publisher) sendImage(ctx context.Context, caption string, data []byte) (string, error) {
	up, err := p.wa.Upload(ctx, data, whatsmeow.MediaImage)
	if err != nil {
		return "", fmt.Errorf("whatsapp media upload failed: %w", err)
	}
	img := &waE2E.ImageMessage{
		URL:           proto.String(up.URL),
		DirectPath:    proto.String(up.DirectPath),
		MediaKey:      up.MediaKey,
		Mimetype:      proto.String("image/jpeg"),
		FileEncSHA256: up.FileEncSHA256,
		FileSHA256:    up.FileSHA256,
		FileLength:    proto.Uint64(up.FileLength),
	}
	if caption != "" {
		img.Caption = proto.String(caption)
	}
	return p.send(ctx, &waE2E.Message{ImageMessage: img})
}

func (p *Publisher) send(ctx context.Context, msg *waE2E.Message) (string, error) {
	resp, err := p.wa.SendMessage(ctx, p.to, msg)
	if err != nil {
		return "", fmt.Errorf("whatsapp send failed: %w", err)
	}
	slog.Debug("Publisher.send: whatsapp message sent", "id", resp.ID, "to", p.to.String())
	return string(resp.ID), nil
}
