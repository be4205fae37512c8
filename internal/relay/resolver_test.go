package relay

import (
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/BTreeMap/SyncPost/internal/mapping"
	"github.com/BTreeMap/SyncPost/internal/models"
	"github.com/BTreeMap/SyncPost/internal/store"
)

func newTestResolver(t *testing.T) (*Resolver, *mapping.Store) {
	t.Helper()
	maps := mapping.NewStore(store.NewMemoryStore())
	return NewResolver(maps, testChannelID), maps
}

func TestResolvePlainMessage(t *testing.T) {
	r, _ := newTestResolver(t)
	action, anchor := r.Resolve(&tgbotapi.Message{MessageID: 1, Text: "hi"})
	if action != models.ActionNew || anchor != nil {
		t.Errorf("expected fresh post, got action=%s anchor=%v", action, anchor)
	}
}

func TestResolveReplyToSyncedMessage(t *testing.T) {
	r, maps := newTestResolver(t)
	maps.Save(10, models.Mapping{models.PlatformMastodon: "m1"}, 0)

	action, anchor := r.Resolve(&tgbotapi.Message{
		MessageID:      2,
		ReplyToMessage: &tgbotapi.Message{MessageID: 10},
	})
	if action != models.ActionReply {
		t.Fatalf("expected reply action, got %s", action)
	}
	if anchor.ID(models.PlatformMastodon) != "m1" {
		t.Errorf("wrong anchor: %v", *anchor)
	}
}

func TestResolveReplyToUnknownMessage(t *testing.T) {
	r, _ := newTestResolver(t)
	action, anchor := r.Resolve(&tgbotapi.Message{
		MessageID:      3,
		ReplyToMessage: &tgbotapi.Message{MessageID: 404},
	})
	if action != models.ActionNew || anchor != nil {
		t.Errorf("unmapped reply should fall back to fresh post, got %s %v", action, anchor)
	}
}

func TestResolveForwardFromChannel(t *testing.T) {
	r, maps := newTestResolver(t)
	maps.Save(10, models.Mapping{models.PlatformTelegram: "555", models.PlatformMastodon: "m2"}, 555)

	action, anchor := r.Resolve(&tgbotapi.Message{
		MessageID:            4,
		ForwardFromChat:      &tgbotapi.Chat{ID: testChannelID},
		ForwardFromMessageID: 555,
	})
	if action != models.ActionQuote {
		t.Fatalf("expected quote action, got %s", action)
	}
	if anchor.ID(models.PlatformTelegram) != "555" {
		t.Errorf("wrong anchor: %v", *anchor)
	}
}

func TestResolveForwardFromForeignChat(t *testing.T) {
	r, maps := newTestResolver(t)
	maps.Save(10, models.Mapping{models.PlatformTelegram: "555"}, 555)

	action, anchor := r.Resolve(&tgbotapi.Message{
		MessageID:            5,
		ForwardFromChat:      &tgbotapi.Chat{ID: -42},
		ForwardFromMessageID: 555,
	})
	if action != models.ActionNew || anchor != nil {
		t.Errorf("forward from another chat should not classify as quote, got %s %v", action, anchor)
	}
}

func TestResolveForwardOfUnsyncedPost(t *testing.T) {
	r, _ := newTestResolver(t)
	action, anchor := r.Resolve(&tgbotapi.Message{
		MessageID:            6,
		ForwardFromChat:      &tgbotapi.Chat{ID: testChannelID},
		ForwardFromMessageID: 777,
	})
	if action != models.ActionNew || anchor != nil {
		t.Errorf("unmapped forward should fall back to fresh post, got %s %v", action, anchor)
	}
}
