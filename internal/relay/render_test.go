package relay

import (
	"strings"
	"testing"

	"github.com/BTreeMap/SyncPost/internal/models"
)

func TestRenderResultAllSucceeded(t *testing.T) {
	card := RenderResult(models.ActionNew, "hello", []models.PlatformResult{
		{Platform: models.PlatformTelegram, OK: true},
		{Platform: models.PlatformMastodon, OK: true},
	})
	for _, want := range []string{"✅", "📝 Post", "All succeeded", "(2/2)", "📱", "🐘"} {
		if !strings.Contains(card, want) {
			t.Errorf("card missing %q:\n%s", want, card)
		}
	}
	if strings.Contains(card, "Failure details") || strings.Contains(card, "Try resending") {
		t.Errorf("success card carries failure section:\n%s", card)
	}
}

func TestRenderResultPartialFailure(t *testing.T) {
	card := RenderResult(models.ActionReply, "hello", []models.PlatformResult{
		{Platform: models.PlatformTelegram, OK: true},
		{Platform: models.PlatformMastodon, OK: false, Err: "422 Unprocessable Entity"},
	})
	for _, want := range []string{"⚠️", "💬 Reply", "Partial failure", "(1/2)", "❌ Failure details", "422 Unprocessable Entity", "Try resending"} {
		if !strings.Contains(card, want) {
			t.Errorf("card missing %q:\n%s", want, card)
		}
	}
}

func TestRenderResultSkipDetail(t *testing.T) {
	card := RenderResult(models.ActionQuote, "boost", []models.PlatformResult{
		{Platform: models.PlatformTelegram, OK: true, Detail: "Skipped (original post)"},
		{Platform: models.PlatformMastodon, OK: true},
	})
	if !strings.Contains(card, "Skipped (original post)") {
		t.Errorf("card missing skip detail:\n%s", card)
	}
	if !strings.Contains(card, "🔁 Repost") {
		t.Errorf("card missing quote label:\n%s", card)
	}
}

func TestRenderResultEscapesContent(t *testing.T) {
	card := RenderResult(models.ActionNew, "<script>alert(1)</script>", []models.PlatformResult{
		{Platform: models.PlatformTelegram, OK: true},
	})
	if strings.Contains(card, "<script>") {
		t.Errorf("content not escaped:\n%s", card)
	}
	if !strings.Contains(card, "&lt;script&gt;") {
		t.Errorf("escaped content missing:\n%s", card)
	}
}

func TestRenderResultTruncatesPreview(t *testing.T) {
	long := strings.Repeat("x", models.MaxContentPreviewLength+20)
	card := RenderResult(models.ActionNew, long, []models.PlatformResult{
		{Platform: models.PlatformTelegram, OK: true},
	})
	if strings.Contains(card, long) {
		t.Errorf("preview not truncated:\n%s", card)
	}
	if !strings.Contains(card, "…") {
		t.Errorf("truncation marker missing:\n%s", card)
	}
}

func TestRenderResultUnknownError(t *testing.T) {
	card := RenderResult(models.ActionNew, "x", []models.PlatformResult{
		{Platform: models.PlatformMastodon, OK: false},
	})
	if !strings.Contains(card, "Unknown error") {
		t.Errorf("placeholder error missing:\n%s", card)
	}
}
