// Package mapping persists the association between one synced post and the
// per-platform ids it was published as.
//
// Records live in the expiring key-value store under two namespaces: one
// keyed by the originating bot message id and one keyed by the relay
// channel copy's message id, so that both "reply to the bot" and "forward
// of the channel post" resolve to the same record.
package mapping

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/BTreeMap/SyncPost/internal/models"
	"github.com/BTreeMap/SyncPost/internal/store"
)

// RetentionTTL is how long a mapping record stays resolvable. Replies and
// forwards of posts older than this fall back to fresh posts.
const RetentionTTL = 7 * 24 * time.Hour

// Key namespace prefixes inside the key-value store.
const (
	messageKeyPrefix = "tg_"
	channelKeyPrefix = "chan_"
)

// MessageKey derives the store key for a record indexed by the originating
// bot message id.
func MessageKey(messageID int) string {
	return fmt.Sprintf("%s%d", messageKeyPrefix, messageID)
}

// ChannelKey derives the store key for a record indexed by the relay
// channel copy's message id.
func ChannelKey(messageID int) string {
	return fmt.Sprintf("%s%d", channelKeyPrefix, messageID)
}

// Store reads and writes mapping records through a KV backend.
type Store struct {
	kv store.KV
}

// NewStore creates a mapping store over the given KV backend.
func NewStore(kv store.KV) *Store {
	return &Store{kv: kv}
}

// Load returns the mapping stored under key, or nil when the key is absent,
// expired, or holds data that no longer deserializes. Corrupt data is
// treated as "not found", never as a failure.
func (s *Store) Load(key string) *models.Mapping {
	raw, found, err := s.kv.Get(key)
	if err != nil {
		slog.Warn("mapping.Store.Load: kv get failed", "error", err, "key", key)
		return nil
	}
	if !found {
		return nil
	}
	m, err := models.DecodeMapping(raw)
	if err != nil {
		slog.Warn("mapping.Store.Load: undecodable record treated as not found", "error", err, "key", key)
		return nil
	}
	return &m
}

// Save writes an identical snapshot of the mapping under the originating
// message id and, when channelMessageID is non-zero, under the channel
// copy's id, both with the retention TTL. Existing values at either key are
// replaced wholesale, never merged.
func (s *Store) Save(sourceMessageID int, m models.Mapping, channelMessageID int) error {
	val, err := m.Encode()
	if err != nil {
		return fmt.Errorf("encode mapping for message %d: %w", sourceMessageID, err)
	}
	if err := s.kv.Set(MessageKey(sourceMessageID), val, RetentionTTL); err != nil {
		return fmt.Errorf("store mapping for message %d: %w", sourceMessageID, err)
	}
	if channelMessageID != 0 {
		if err := s.kv.Set(ChannelKey(channelMessageID), val, RetentionTTL); err != nil {
			return fmt.Errorf("store mapping for channel message %d: %w", channelMessageID, err)
		}
	}
	slog.Debug("mapping.Store.Save: mapping persisted",
		"source_message_id", sourceMessageID, "channel_message_id", channelMessageID, "platforms", len(m))
	return nil
}
