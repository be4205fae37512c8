package util

import "testing"

func TestParseBoolEnv(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		def      bool
		expected bool
	}{
		{"unset uses default", "", true, true},
		{"true", "true", false, true},
		{"one", "1", false, true},
		{"yes uppercase", "YES", false, true},
		{"on with spaces", " on ", false, true},
		{"false", "false", true, false},
		{"zero", "0", true, false},
		{"off", "off", true, false},
		{"garbage uses default", "maybe", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("SYNCPOST_TEST_BOOL", tt.value)
			if got := ParseBoolEnv("SYNCPOST_TEST_BOOL", tt.def); got != tt.expected {
				t.Errorf("ParseBoolEnv(%q, %v) = %v, want %v", tt.value, tt.def, got, tt.expected)
			}
		})
	}
}

func TestParseInt64Env(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		def      int64
		expected int64
	}{
		{"unset uses default", "", 42, 42},
		{"positive", "123456", 0, 123456},
		{"negative channel id", "-1001234567890", 0, -1001234567890},
		{"spaces trimmed", " 7 ", 0, 7},
		{"garbage uses default", "abc", 9, 9},
		{"float uses default", "1.5", 9, 9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("SYNCPOST_TEST_INT", tt.value)
			if got := ParseInt64Env("SYNCPOST_TEST_INT", tt.def); got != tt.expected {
				t.Errorf("ParseInt64Env(%q, %d) = %d, want %d", tt.value, tt.def, got, tt.expected)
			}
		})
	}
}
