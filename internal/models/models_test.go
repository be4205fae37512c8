package models

import (
	"errors"
	"strings"
	"testing"
)

func TestSyncActionLabel(t *testing.T) {
	tests := []struct {
		action   SyncAction
		expected string
	}{
		{ActionNew, "📝 Post"},
		{ActionReply, "💬 Reply"},
		{ActionQuote, "🔁 Repost"},
		{SyncAction("bogus"), "🔄 Sync"},
	}
	for _, tt := range tests {
		if got := tt.action.Label(); got != tt.expected {
			t.Errorf("Label(%q) = %q, want %q", tt.action, got, tt.expected)
		}
	}
}

func TestMappingEmpty(t *testing.T) {
	if !(Mapping{}).Empty() {
		t.Error("empty map should be empty")
	}
	if !(Mapping{PlatformTelegram: ""}).Empty() {
		t.Error("map with only blank ids should be empty")
	}
	if (Mapping{PlatformMastodon: "abc"}).Empty() {
		t.Error("map with an id should not be empty")
	}
}

func TestMappingID(t *testing.T) {
	var nilMap Mapping
	if nilMap.ID(PlatformTelegram) != "" {
		t.Error("nil mapping should return empty id")
	}
	m := Mapping{PlatformTelegram: "999"}
	if m.ID(PlatformTelegram) != "999" {
		t.Errorf("unexpected id: %q", m.ID(PlatformTelegram))
	}
	if m.ID(PlatformWhatsApp) != "" {
		t.Error("absent platform should return empty id")
	}
}

func TestMappingEncodeDecode(t *testing.T) {
	m := Mapping{PlatformTelegram: "999", PlatformMastodon: "abc"}
	raw, err := m.Encode()
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	decoded, err := DecodeMapping(raw)
	if err != nil {
		t.Fatalf("DecodeMapping failed: %v", err)
	}
	if decoded.ID(PlatformTelegram) != "999" || decoded.ID(PlatformMastodon) != "abc" {
		t.Errorf("round trip mismatch: %v", decoded)
	}
}

func TestMappingEncodeEmpty(t *testing.T) {
	if _, err := (Mapping{}).Encode(); !errors.Is(err, ErrEmptyMapping) {
		t.Errorf("expected ErrEmptyMapping, got %v", err)
	}
}

func TestDecodeMappingCorrupt(t *testing.T) {
	if _, err := DecodeMapping("{not json"); err == nil {
		t.Error("expected error for corrupt record")
	}
}

func TestTruncateError(t *testing.T) {
	if TruncateError(nil) != "" {
		t.Error("nil error should truncate to empty string")
	}

	short := errors.New("boom")
	if got := TruncateError(short); got != "boom" {
		t.Errorf("short error altered: %q", got)
	}

	long := errors.New(strings.Repeat("x", MaxErrorPreviewLength+10))
	got := TruncateError(long)
	if len(got) != MaxErrorPreviewLength {
		t.Errorf("long error not bounded: %d chars", len(got))
	}
}

func TestAPIResponseEnvelopes(t *testing.T) {
	if r := Success("data"); r.Status != "ok" || r.Result != "data" {
		t.Errorf("unexpected success envelope: %+v", r)
	}
	if r := SuccessWithMessage("done", nil); r.Status != "ok" || r.Message != "done" {
		t.Errorf("unexpected success-with-message envelope: %+v", r)
	}
	if r := Error("nope"); r.Status != "error" || r.Message != "nope" {
		t.Errorf("unexpected error envelope: %+v", r)
	}
}
