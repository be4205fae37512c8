// Package telegram wraps the Telegram Bot API for SyncPost.
//
// It provides the notice surface used to report sync progress to the
// administrator, photo download through the bot file API, and the publisher
// for the relay's own channel.
package telegram

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// DefaultTimeout bounds every outbound Telegram call, including file
// downloads, so a stalled request surfaces as an ordinary failure.
const DefaultTimeout = 15 * time.Second

// Opts holds configuration options for the Telegram client.
type Opts struct {
	Token    string
	Endpoint string
	Timeout  time.Duration
}

// Option defines a configuration option for the Telegram client.
type Option func(*Opts)

// WithToken sets the bot token.
func WithToken(token string) Option {
	return func(o *Opts) { o.Token = token }
}

// WithEndpoint overrides the Bot API endpoint (used in tests).
func WithEndpoint(endpoint string) Option {
	return func(o *Opts) { o.Endpoint = endpoint }
}

// WithTimeout overrides the outbound request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(o *Opts) { o.Timeout = timeout }
}

// Client wraps the Bot API client for modular use.
type Client struct {
	bot  *tgbotapi.BotAPI
	http *http.Client
}

// NewClient creates a new Telegram client, applying any provided options.
// The token falls back to the TG_TOKEN environment variable.
func NewClient(opts ...Option) (*Client, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Token == "" {
		cfg.Token = os.Getenv("TG_TOKEN")
	}
	if cfg.Token == "" {
		return nil, fmt.Errorf("telegram bot token must be provided")
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = tgbotapi.APIEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	slog.Debug("Telegram client config loaded", "token_set", cfg.Token != "", "timeout", cfg.Timeout)

	httpClient := &http.Client{Timeout: cfg.Timeout}
	bot, err := tgbotapi.NewBotAPIWithClient(cfg.Token, cfg.Endpoint, httpClient)
	if err != nil {
		slog.Error("Failed to create Telegram bot client", "error", err)
		return nil, fmt.Errorf("failed to create telegram bot client: %w", err)
	}
	slog.Info("Telegram client connected", "username", bot.Self.UserName)

	return &Client{bot: bot, http: httpClient}, nil
}

// SendText sends a plain text message and returns the created message id.
// replyTo threads the message when non-zero.
func (c *Client) SendText(chatID int64, text string, replyTo int) (int, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	if replyTo != 0 {
		msg.ReplyToMessageID = replyTo
	}
	sent, err := c.bot.Send(msg)
	if err != nil {
		return 0, fmt.Errorf("telegram sendMessage failed: %w", err)
	}
	return sent.MessageID, nil
}

// SendHTML sends an HTML-formatted message and returns the created message id.
func (c *Client) SendHTML(chatID int64, text string) (int, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	sent, err := c.bot.Send(msg)
	if err != nil {
		return 0, fmt.Errorf("telegram sendMessage failed: %w", err)
	}
	return sent.MessageID, nil
}

// SendDocument sends image bytes as a document with an optional caption and
// returns the created message id.
func (c *Client) SendDocument(chatID int64, data []byte, caption string, replyTo int) (int, error) {
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: "img.jpg", Bytes: data})
	if caption != "" {
		doc.Caption = caption
	}
	if replyTo != 0 {
		doc.ReplyToMessageID = replyTo
	}
	sent, err := c.bot.Send(doc)
	if err != nil {
		return 0, fmt.Errorf("telegram sendDocument failed: %w", err)
	}
	return sent.MessageID, nil
}

// EditHTML edits a previously sent message in place. Edit failures leave
// the stale notice behind, which is harmless, so they are only logged.
func (c *Client) EditHTML(chatID int64, messageID int, text string) {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ParseMode = tgbotapi.ModeHTML
	if _, err := c.bot.Send(edit); err != nil {
		slog.Warn("Client.EditHTML: edit failed", "error", err, "chat_id", chatID, "message_id", messageID)
	}
}

// DownloadLargestPhoto downloads the bytes of the photo variant with the
// largest reported file size.
func (c *Client) DownloadLargestPhoto(photos []tgbotapi.PhotoSize) ([]byte, error) {
	if len(photos) == 0 {
		return nil, fmt.Errorf("no photo variants provided")
	}
	best := LargestPhoto(photos)
	url, err := c.bot.GetFileDirectURL(best.FileID)
	if err != nil {
		return nil, fmt.Errorf("telegram getFile failed: %w", err)
	}
	resp, err := c.http.Get(url)
	if err != nil {
		return nil, fmt.Errorf("photo download failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("photo download failed: status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("photo download failed: %w", err)
	}
	slog.Debug("Client.DownloadLargestPhoto: photo downloaded", "file_id", best.FileID, "bytes", len(data))
	return data, nil
}

// LargestPhoto returns the variant with the largest reported byte size.
func LargestPhoto(photos []tgbotapi.PhotoSize) tgbotapi.PhotoSize {
	best := photos[0]
	for _, p := range photos[1:] {
		if p.FileSize > best.FileSize {
			best = p
		}
	}
	return best
}
