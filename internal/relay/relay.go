package relay

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/BTreeMap/SyncPost/internal/dedup"
	"github.com/BTreeMap/SyncPost/internal/mapping"
	"github.com/BTreeMap/SyncPost/internal/models"
	"github.com/BTreeMap/SyncPost/internal/publisher"
)

// Notice texts sent to chats during processing.
const (
	noPermissionText = "No permission. Please contact the admin."
	syncingText      = "⏳ Syncing…"
)

const welcomeText = `👋 <b>Welcome to SyncPost Bot</b>

This bot syncs your messages to multiple platforms:
• Telegram Channel
• Mastodon

<b>How to use:</b>
1️⃣ Send a text message → Publish a new post
2️⃣ Reply to bot's synced message → Sync as reply/comment
3️⃣ Forward channel message to bot → Boost to Mastodon

<b>Supported content:</b>
• Text messages
• Images with captions
• Replies and forwards

Start sending messages! ✨`

// Notifier is the administrator-visible notice surface (progress and
// result messages).
type Notifier interface {
	SendText(chatID int64, text string, replyTo int) (int, error)
	SendHTML(chatID int64, text string) (int, error)
	EditHTML(chatID int64, messageID int, text string)
}

// MediaDownloader fetches inbound photo bytes through the bot transport.
type MediaDownloader interface {
	DownloadLargestPhoto(photos []tgbotapi.PhotoSize) ([]byte, error)
}

// AltTexter generates an accessibility description for an image.
type AltTexter interface {
	AltText(ctx context.Context, image []byte) (string, error)
}

// Config holds the immutable collaborators and identities of a relay,
// constructed once at startup.
type Config struct {
	// AdminID is the only sender whose messages are synced.
	AdminID int64
	// Channel publishes to the relay's own channel and always runs first.
	Channel publisher.Publisher
	// Secondaries are the remaining publishers, fanned out in order.
	Secondaries []publisher.Publisher
	Notifier    Notifier
	Media       MediaDownloader
	Guard       *dedup.Guard
	Resolver    *Resolver
	Mappings    *mapping.Store
	// AltText is optional; when set, relayed images get a generated
	// description on platforms that accept one.
	AltText AltTexter
}

// Relay is the sync orchestrator.
type Relay struct {
	adminID     int64
	channel     publisher.Publisher
	secondaries []publisher.Publisher
	notifier    Notifier
	media       MediaDownloader
	guard       *dedup.Guard
	resolver    *Resolver
	maps        *mapping.Store
	altText     AltTexter
}

// New creates a relay from its configuration.
func New(cfg Config) *Relay {
	return &Relay{
		adminID:     cfg.AdminID,
		channel:     cfg.Channel,
		secondaries: cfg.Secondaries,
		notifier:    cfg.Notifier,
		media:       cfg.Media,
		guard:       cfg.Guard,
		resolver:    cfg.Resolver,
		maps:        cfg.Mappings,
		altText:     cfg.AltText,
	}
}

// HandleUpdate processes one webhook update end to end. It never returns an
// error: per-platform failures are folded into the result card, and
// anything earlier is logged and dropped, so a webhook delivery is always
// answered successfully.
func (r *Relay) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil {
		msg = update.ChannelPost
	}
	if msg == nil {
		slog.Debug("Relay.HandleUpdate: update carries no message", "update_id", update.UpdateID)
		return
	}

	// /start is answered for anyone, before permission and dedup checks.
	if strings.TrimSpace(msg.Text) == "/start" {
		if msg.Chat != nil {
			if _, err := r.notifier.SendHTML(msg.Chat.ID, welcomeText); err != nil {
				slog.Warn("Relay.HandleUpdate: welcome send failed", "error", err)
			}
		}
		return
	}

	if msg.From == nil || msg.From.ID != r.adminID {
		slog.Info("Relay.HandleUpdate: unauthorized sender", "update_id", update.UpdateID)
		if msg.Chat != nil {
			if _, err := r.notifier.SendText(msg.Chat.ID, noPermissionText, 0); err != nil {
				slog.Warn("Relay.HandleUpdate: permission notice failed", "error", err)
			}
		}
		return
	}

	ok, err := r.guard.ShouldProcess(update.UpdateID)
	if err != nil {
		slog.Error("Relay.HandleUpdate: dedup check failed", "error", err, "update_id", update.UpdateID)
		return
	}
	if !ok {
		slog.Debug("Relay.HandleUpdate: duplicate update skipped", "update_id", update.UpdateID)
		return
	}

	noticeID, err := r.notifier.SendHTML(r.adminID, syncingText)
	if err != nil {
		slog.Warn("Relay.HandleUpdate: progress notice failed", "error", err)
	}

	content := msg.Caption
	if content == "" {
		content = msg.Text
	}
	media := r.fetchMedia(ctx, msg)

	action, anchor := r.resolver.Resolve(msg)
	slog.Info("Relay.HandleUpdate: action resolved", "action", action, "update_id", update.UpdateID)

	anchorID := func(platform string) string {
		if anchor == nil {
			return ""
		}
		return anchor.ID(platform)
	}

	results := make([]models.PlatformResult, 0, 1+len(r.secondaries))
	ids := models.Mapping{}

	// Relay channel step. A quoted post already lives in the channel, so it
	// is never republished there.
	chanName := r.channel.Platform()
	chanID := ""
	if action == models.ActionQuote {
		chanID = anchorID(chanName)
		results = append(results, models.PlatformResult{Platform: chanName, OK: true, Detail: "Skipped (original post)"})
	} else {
		var id string
		var err error
		if parentID := replyParent(action, anchorID(chanName)); parentID != "" {
			id, err = r.channel.PublishReply(ctx, content, parentID, media)
		} else {
			id, err = r.channel.PublishNew(ctx, content, media)
		}
		if err != nil {
			slog.Warn("Relay.HandleUpdate: channel publish failed", "error", err, "platform", chanName)
			results = append(results, models.PlatformResult{Platform: chanName, OK: false, Err: models.TruncateError(err)})
		} else {
			chanID = id
			results = append(results, models.PlatformResult{Platform: chanName, OK: true})
		}
	}
	if chanID != "" {
		ids[chanName] = chanID
	}

	// Secondary platforms, each independently fallible.
	for _, p := range r.secondaries {
		name := p.Platform()
		aid := anchorID(name)
		var id string
		var err error
		switch {
		case action == models.ActionQuote && aid != "":
			id, err = p.PublishRepost(ctx, aid)
		case action == models.ActionReply && aid != "":
			id, err = p.PublishReply(ctx, content, aid, media)
		default:
			id, err = p.PublishNew(ctx, content, media)
		}
		if err != nil {
			slog.Warn("Relay.HandleUpdate: publish failed", "error", err, "platform", name)
			results = append(results, models.PlatformResult{Platform: name, OK: false, Err: models.TruncateError(err)})
			continue
		}
		ids[name] = id
		results = append(results, models.PlatformResult{Platform: name, OK: true})
	}

	if !ids.Empty() {
		chanMsgID := 0
		if n, convErr := strconv.Atoi(chanID); convErr == nil {
			chanMsgID = n
		}
		if err := r.maps.Save(msg.MessageID, ids, chanMsgID); err != nil {
			slog.Error("Relay.HandleUpdate: mapping persist failed", "error", err, "message_id", msg.MessageID)
		}
	}

	if noticeID != 0 {
		r.notifier.EditHTML(r.adminID, noticeID, RenderResult(action, content, results))
	}
	slog.Info("Relay.HandleUpdate: sync finished",
		"update_id", update.UpdateID, "action", action, "platforms", len(results), "mapped", len(ids))
}

// fetchMedia downloads the largest photo variant, when present, and
// decorates it with generated alt text. Download failure degrades to a
// text-only sync.
func (r *Relay) fetchMedia(ctx context.Context, msg *tgbotapi.Message) *publisher.Media {
	if len(msg.Photo) == 0 {
		return nil
	}
	data, err := r.media.DownloadLargestPhoto(msg.Photo)
	if err != nil {
		slog.Warn("Relay.fetchMedia: photo download failed, syncing text only", "error", err, "message_id", msg.MessageID)
		return nil
	}
	media := &publisher.Media{Data: data}
	if r.altText != nil {
		alt, err := r.altText.AltText(ctx, data)
		if err != nil {
			slog.Warn("Relay.fetchMedia: alt text generation failed", "error", err)
		} else {
			media.AltText = alt
		}
	}
	return media
}

// replyParent returns the thread parent for reply actions, empty otherwise.
func replyParent(action models.SyncAction, anchorID string) string {
	if action == models.ActionReply {
		return anchorID
	}
	return ""
}
