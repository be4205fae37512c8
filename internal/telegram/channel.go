package telegram

import (
	"context"
	"fmt"
	"strconv"

	"github.com/BTreeMap/SyncPost/internal/models"
	"github.com/BTreeMap/SyncPost/internal/publisher"
)

// ChannelPublisher publishes relayed content to the relay's own Telegram
// channel. The relay never asks the channel for a repost: a forwarded
// channel post already lives there, so the orchestrator skips this
// publisher for quote actions.
type ChannelPublisher struct {
	client    *Client
	channelID int64
}

// Compile-time check that ChannelPublisher implements Publisher.
var _ publisher.Publisher = (*ChannelPublisher)(nil)

// NewChannelPublisher creates a publisher for the given channel chat id.
func NewChannelPublisher(client *Client, channelID int64) *ChannelPublisher {
	return &ChannelPublisher{client: client, channelID: channelID}
}

// ChannelID returns the relay channel chat id this publisher posts to.
func (p *ChannelPublisher) ChannelID() int64 {
	return p.channelID
}

func (p *ChannelPublisher) Platform() string {
	return models.PlatformTelegram
}

func (p *ChannelPublisher) PublishNew(ctx context.Context, content string, media *publisher.Media) (string, error) {
	return p.publish(content, media, 0)
}

func (p *ChannelPublisher) PublishReply(ctx context.Context, content, parentID string, media *publisher.Media) (string, error) {
	replyTo, err := strconv.Atoi(parentID)
	if err != nil {
		return "", fmt.Errorf("invalid channel parent id %q: %w", parentID, err)
	}
	return p.publish(content, media, replyTo)
}

func (p *ChannelPublisher) PublishRepost(ctx context.Context, targetID string) (string, error) {
	return "", models.ErrRepostUnsupported
}

func (p *ChannelPublisher) publish(content string, media *publisher.Media, replyTo int) (string, error) {
	var id int
	var err error
	if media != nil && len(media.Data) > 0 {
		id, err = p.client.SendDocument(p.channelID, media.Data, content, replyTo)
	} else {
		if content == "" {
			return "", models.ErrEmptyContent
		}
		id, err = p.client.SendText(p.channelID, content, replyTo)
	}
	if err != nil {
		return "", err
	}
	return strconv.Itoa(id), nil
}
