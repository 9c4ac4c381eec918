package assistant

import "testing"

func TestParseGuardVerdict(t *testing.T) {
	tests := []struct {
		raw    string
		dup    bool
		reason string
	}{
		{"UNIQUE", false, ""},
		{"unique", false, ""},
		{"DUPLICATE", true, ""},
		{"DUPLICATE|Same assignment already exists", true, "Same assignment already exists"},
		{"duplicate|same Math exam on the same date", true, "same Math exam on the same date"},
		{"  DUPLICATE | reason with spaces  ", true, "reason with spaces"},
		{"This looks UNIQUE to me", false, ""},
		{"", false, ""},
	}
	for _, tt := range tests {
		dup, reason := parseGuardVerdict(tt.raw)
		if dup != tt.dup || reason != tt.reason {
			t.Errorf("parseGuardVerdict(%q) = %v, %q; want %v, %q", tt.raw, dup, reason, tt.dup, tt.reason)
		}
	}
}
