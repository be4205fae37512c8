package twiliowhatsapp

import "testing"

func TestCanonicalWhats(t *testing.T) {
	if got := canonicalWhats("+14155551234"); got != "whatsapp:+14155551234" {
		t.Errorf("unexpected canonical form %q", got)
	}
	if got := canonicalWhats("whatsapp:+14155551234"); got != "whatsapp:+14155551234" {
		t.Errorf("prefix duplicated: %q", got)
	}
}

func TestNewPublisherRequiresCredentials(t *testing.T) {
	t.Setenv("TWILIO_ACCOUNT_SID", "")
	t.Setenv("TWILIO_AUTH_TOKEN", "")
	t.Setenv("TWILIO_FROM_NUMBER", "")
	t.Setenv("WHATSAPP_TO", "")
	if _, err := NewPublisher(); err == nil {
		t.Error("expected error for missing credentials")
	}
	if _, err := NewPublisher(WithAccountSID("AC123"), WithAuthToken("secret")); err == nil {
		t.Error("expected error for missing from/to numbers")
	}
}
