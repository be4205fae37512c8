package telegram

import (
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func TestLargestPhoto(t *testing.T) {
	photos := []tgbotapi.PhotoSize{
		{FileID: "small", FileSize: 1200},
		{FileID: "large", FileSize: 88000},
		{FileID: "medium", FileSize: 24000},
	}
	if got := LargestPhoto(photos); got.FileID != "large" {
		t.Errorf("expected largest variant, got %q", got.FileID)
	}
}

func TestLargestPhotoSingleVariant(t *testing.T) {
	photos := []tgbotapi.PhotoSize{{FileID: "only", FileSize: 0}}
	if got := LargestPhoto(photos); got.FileID != "only" {
		t.Errorf("expected sole variant, got %q", got.FileID)
	}
}

func TestNewClientRequiresToken(t *testing.T) {
	t.Setenv("TG_TOKEN", "")
	if _, err := NewClient(); err == nil {
		t.Error("expected error for missing token")
	}
}
