package whatsapp

import "testing"

func TestParseTarget(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "14155551234", want: "14155551234@s.whatsapp.net"},
		{in: "14155551234@s.whatsapp.net", want: "14155551234@s.whatsapp.net"},
		{in: "12036304@g.us", want: "12036304@g.us"},
		{in: "not a jid@@", wantErr: true},
	}
	for _, tc := range cases {
		jid, err := parseTarget(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("parseTarget(%q): expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseTarget(%q): unexpected error: %v", tc.in, err)
			continue
		}
		if jid.String() != tc.want {
			t.Errorf("parseTarget(%q) = %q, want %q", tc.in, jid.String(), tc.want)
		}
	}
}

func TestNewPublisherRequiresTarget(t *testing.T) {
	t.Setenv("WHATSAPP_TO", "")
	if _, err := NewPublisher(); err == nil {
		t.Error("expected error for missing relay target")
	}
}
