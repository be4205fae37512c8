package relay

import (
	"fmt"
	"html"
	"strings"

	"github.com/BTreeMap/SyncPost/internal/models"
)

var platformEmoji = map[string]string{
	models.PlatformTelegram: "📱",
	models.PlatformMastodon: "🐘",
	models.PlatformWhatsApp: "💬",
}

// RenderResult renders the final HTML status card from the accumulated
// per-platform results, the resolved action, and the synced content.
func RenderResult(action models.SyncAction, content string, results []models.PlatformResult) string {
	ok := 0
	for _, r := range results {
		if r.OK {
			ok++
		}
	}
	total := len(results)
	allOK := ok == total

	statusEmoji, statusText := "✅", "All succeeded"
	if !allOK {
		statusEmoji, statusText = "⚠️", "Partial failure"
	}

	lines := []string{
		fmt.Sprintf("<b>%s %s · %s</b>", statusEmoji, action.Label(), statusText),
		fmt.Sprintf("<blockquote expandable>%s</blockquote>", html.EscapeString(previewContent(content))),
		"",
		fmt.Sprintf("<b>📊 Sync result (%d/%d)</b>", ok, total),
		"",
	}

	var hasSuccess bool
	for _, r := range results {
		if !r.OK {
			continue
		}
		hasSuccess = true
		emoji := emojiFor(r.Platform, "✓")
		if r.Detail != "" {
			lines = append(lines, fmt.Sprintf("%s <b>%s</b> · %s", emoji, r.Platform, r.Detail))
		} else {
			lines = append(lines, fmt.Sprintf("%s <b>%s</b> ✓", emoji, r.Platform))
		}
	}
	if hasSuccess {
		lines = append(lines, "")
	}

	var hasFailure bool
	for _, r := range results {
		if r.OK {
			continue
		}
		if !hasFailure {
			lines = append(lines, "<b>❌ Failure details</b>")
			hasFailure = true
		}
		errText := r.Err
		if errText == "" {
			errText = "Unknown error"
		}
		lines = append(lines, fmt.Sprintf("%s <b>%s</b>", emojiFor(r.Platform, "✗"), r.Platform))
		lines = append(lines, fmt.Sprintf("   <code>%s</code>", html.EscapeString(errText)))
	}
	if hasFailure {
		lines = append(lines, "")
	}

	if !allOK {
		lines = append(lines, "<i>💡 Try resending to retry failed sync</i>")
	}

	return strings.Join(lines, "\n")
}

func emojiFor(platform, fallback string) string {
	if e, ok := platformEmoji[platform]; ok {
		return e
	}
	return fallback
}

// previewContent bounds the quoted content to the preview length.
func previewContent(content string) string {
	runes := []rune(content)
	if len(runes) <= models.MaxContentPreviewLength {
		return content
	}
	return string(runes[:models.MaxContentPreviewLength]) + "…"
}
