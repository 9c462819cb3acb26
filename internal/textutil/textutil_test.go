package textutil

import "testing"

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Artist - Title", "Artist - Title"},
		{`AC/DC: Back in <Black>?`, "ACDC Back in Black"},
		{"line\r\nbreak\tand  spaces", "line break and spaces"},
		{`pipe|star*quote"back\slash`, "pipestarquotebackslash"},
		{"...hidden", "hidden"},
		{"   ", ""},
	}
	for _, tc := range tests {
		if got := SanitizeFileName(tc.in); got != tc.want {
			t.Errorf("SanitizeFileName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestChecksumIsStableHex(t *testing.T) {
	a := Checksum("https://example.com/watch?v=abc")
	b := Checksum("  https://example.com/watch?v=abc\n")
	if a != b {
		t.Fatalf("expected trimmed inputs to match: %s vs %s", a, b)
	}
	if len(a) != 32 {
		t.Fatalf("expected 32 hex chars, got %d", len(a))
	}
	if Checksum("") != "d41d8cd98f00b204e9800998ecf8427e" {
		t.Fatalf("unexpected digest for empty input: %s", Checksum(""))
	}
}

func TestTitleIfLower(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"never gonna give you up", "Never Gonna Give You Up"},
		{"deadmau5", "Deadmau5"},
		{"MixedCase stays", "MixedCase stays"},
		{"ALL CAPS", "ALL CAPS"},
		{"  1234 ", "1234"},
	}
	for _, tc := range tests {
		if got := TitleIfLower(tc.in); got != tc.want {
			t.Errorf("TitleIfLower(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestCleanValue(t *testing.T) {
	if got := CleanValue(" Title\r\n"); got != "Title" {
		t.Fatalf("CleanValue = %q", got)
	}
}

func TestTernary(t *testing.T) {
	if Ternary(true, "a", "b") != "a" || Ternary(false, 1, 2) != 2 {
		t.Fatal("Ternary returned the wrong branch")
	}
}
