package textutil

import "testing"

func TestSanitizeIdentifier(t *testing.T) {
	tests := map[string]string{
		"My Pack!":         "My_Pack",
		"__a  b__c__":      "a_b_c",
		"emoji 😀 set":      "emoji_set",
		"!!!":              "",
		"already_fine_123": "already_fine_123",
		"dots.and-dashes":  "dots_and_dashes",
	}
	for in, want := range tests {
		if got := SanitizeIdentifier(in); got != want {
			t.Fatalf("SanitizeIdentifier(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSanitizeFileName(t *testing.T) {
	if got := SanitizeFileName(`  a/b:c*?"<>|  `); got != "a-b-c-" {
		t.Fatalf("unexpected %q", got)
	}
	if got := SanitizeFileName("   "); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
}

func TestSanitizeUploadName(t *testing.T) {
	tests := map[string]string{
		"../../etc/passwd": "passwd",
		"my cat.gif":       "my_cat.gif",
		".hidden.png":      "hidden.png",
		"猫.webp":           "_.webp",
		"":                 "upload",
	}
	for in, want := range tests {
		if got := SanitizeUploadName(in); got != want {
			t.Fatalf("SanitizeUploadName(%q) = %q, want %q", in, got, want)
		}
	}
}
