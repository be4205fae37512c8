// Package relay implements the core sync pipeline of SyncPost: classifying
// an inbound message as a fresh post, a reply, or a quote of a previously
// synced channel post, fanning the content out to every configured platform
// publisher, and reporting the per-platform outcome to the administrator.
package relay

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/BTreeMap/SyncPost/internal/mapping"
	"github.com/BTreeMap/SyncPost/internal/models"
)

// classifier inspects an inbound message and either claims it, returning an
// action with its anchor mapping, or passes by returning a nil anchor.
type classifier func(msg *tgbotapi.Message) (models.SyncAction, *models.Mapping)

// Resolver classifies inbound messages against the mapping store.
type Resolver struct {
	maps      *mapping.Store
	channelID int64
	chain     []classifier
}

// NewResolver creates a resolver bound to the relay channel id used for
// forward detection.
func NewResolver(maps *mapping.Store, channelID int64) *Resolver {
	r := &Resolver{maps: maps, channelID: channelID}
	// Ordered: a message that is both a reply and a forward counts as a
	// reply, since threading is more specific than a bare forward.
	r.chain = []classifier{r.classifyReply, r.classifyForward}
	return r
}

// Resolve returns the first classification claimed by the chain, falling
// back to a fresh post with no anchor.
func (r *Resolver) Resolve(msg *tgbotapi.Message) (models.SyncAction, *models.Mapping) {
	for _, classify := range r.chain {
		if action, anchor := classify(msg); anchor != nil {
			return action, anchor
		}
	}
	return models.ActionNew, nil
}

// classifyReply claims messages replying to a previously synced message.
func (r *Resolver) classifyReply(msg *tgbotapi.Message) (models.SyncAction, *models.Mapping) {
	if msg.ReplyToMessage == nil {
		return "", nil
	}
	anchor := r.maps.Load(mapping.MessageKey(msg.ReplyToMessage.MessageID))
	if anchor == nil {
		return "", nil
	}
	return models.ActionReply, anchor
}

// classifyForward claims messages forwarded from the relay channel whose
// source post was previously synced.
func (r *Resolver) classifyForward(msg *tgbotapi.Message) (models.SyncAction, *models.Mapping) {
	if msg.ForwardFromChat == nil || msg.ForwardFromChat.ID != r.channelID {
		return "", nil
	}
	if msg.ForwardFromMessageID == 0 {
		return "", nil
	}
	anchor := r.maps.Load(mapping.ChannelKey(msg.ForwardFromMessageID))
	if anchor == nil {
		return "", nil
	}
	return models.ActionQuote, anchor
}
