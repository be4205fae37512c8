// Package models defines the core data structures for SyncPost.
//
// It includes the cross-platform mapping record, the sync action
// classification, per-platform publish results, and API response envelopes,
// which are shared across modules.
package models

import (
	"encoding/json"
	"errors"
)

// Platform name constants used as mapping keys and result labels.
const (
	// PlatformTelegram is the relay's own Telegram channel.
	PlatformTelegram = "Telegram"
	// PlatformMastodon is the Mastodon instance configured as a secondary target.
	PlatformMastodon = "Mastodon"
	// PlatformWhatsApp is the optional WhatsApp relay target.
	PlatformWhatsApp = "WhatsApp"
)

// Limits applied when folding publish outcomes into a result card.
const (
	// MaxErrorPreviewLength defines the maximum length of a captured publisher error.
	MaxErrorPreviewLength = 50
	// MaxContentPreviewLength defines the maximum number of runes of content shown in the result card.
	MaxContentPreviewLength = 60
)

// Error variables for better error handling and testability
var (
	ErrEmptyContent       = errors.New("nothing to publish: content and media are both empty")
	ErrRepostUnsupported  = errors.New("repost is not supported on this platform")
	ErrPublisherNotReady  = errors.New("publisher is not initialized")
	ErrEmptyMapping       = errors.New("mapping has no platform ids")
	ErrMissingCredentials = errors.New("required credentials not provided")
)

// SyncAction classifies what an inbound message asks the relay to do.
type SyncAction string

const (
	// ActionNew publishes fresh content on every platform.
	ActionNew SyncAction = "new"
	// ActionReply publishes content threaded under a previously synced post.
	ActionReply SyncAction = "reply"
	// ActionQuote boosts/reposts a previously synced channel post.
	ActionQuote SyncAction = "quote"
)

// Label returns the user-facing label for the action, as shown in the result card.
func (a SyncAction) Label() string {
	switch a {
	case ActionNew:
		return "📝 Post"
	case ActionReply:
		return "💬 Reply"
	case ActionQuote:
		return "🔁 Repost"
	default:
		return "🔄 Sync"
	}
}

// Mapping associates one logical post with the id it was published as on
// each platform. Platforms that produced no id are absent from the map.
type Mapping map[string]string

// Empty reports whether the mapping carries no platform ids at all.
func (m Mapping) Empty() bool {
	for _, id := range m {
		if id != "" {
			return false
		}
	}
	return true
}

// ID returns the id recorded for the given platform, or empty string.
func (m Mapping) ID(platform string) string {
	if m == nil {
		return ""
	}
	return m[platform]
}

// Encode serializes the mapping for storage.
func (m Mapping) Encode() (string, error) {
	if m.Empty() {
		return "", ErrEmptyMapping
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// DecodeMapping deserializes a stored mapping snapshot. A decode failure is
// returned as an error so the caller can treat corrupt data as "not found".
func DecodeMapping(raw string) (Mapping, error) {
	var m Mapping
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, err
	}
	return m, nil
}

// PlatformResult is one per-platform outcome of a sync attempt, consumed by
// the result renderer.
type PlatformResult struct {
	Platform string `json:"platform"`
	OK       bool   `json:"ok"`
	Detail   string `json:"detail,omitempty"`
	Err      string `json:"err,omitempty"`
}

// APIResponse is the standard JSON envelope returned by API endpoints.
type APIResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Result  interface{} `json:"result,omitempty"`
}

// Success creates a success response envelope.
func Success(result interface{}) APIResponse {
	return APIResponse{Status: "ok", Result: result}
}

// SuccessWithMessage creates a success response with a human-readable message.
func SuccessWithMessage(message string, result interface{}) APIResponse {
	return APIResponse{Status: "ok", Message: message, Result: result}
}

// Error creates an error response envelope.
func Error(message string) APIResponse {
	return APIResponse{Status: "error", Message: message}
}

// TruncateError bounds an error string to the configured preview length so a
// platform failure never floods the result card.
func TruncateError(err error) string {
	if err == nil {
		return ""
	}
	s := err.Error()
	if len(s) > MaxErrorPreviewLength {
		return s[:MaxErrorPreviewLength]
	}
	return s
}
