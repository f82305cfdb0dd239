package textutil_test

import (
	"testing"

	"anitrack/internal/textutil"
)

func TestSanitizeTitleForSearch(t *testing.T) {
	cases := map[string]string{
		"Frieren (28 episodes)":  "Frieren",
		"  Naruto(220 episodes) ": "Naruto",
		"Steins;Gate (Dub)":      "Steins;Gate (Dub)",
		"Plain Title":            "Plain Title",
	}
	for input, want := range cases {
		if got := textutil.SanitizeTitleForSearch(input); got != want {
			t.Fatalf("SanitizeTitleForSearch(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestParseTitleTotal(t *testing.T) {
	title, total, ok := textutil.ParseTitleTotal("One Piece (1100 episodes)")
	if !ok || title != "One Piece" || total != 1100 {
		t.Fatalf("unexpected parse: %q %d %v", title, total, ok)
	}
	if _, _, ok := textutil.ParseTitleTotal("One Piece (TV)"); ok {
		t.Fatal("expected no total for non-count parenthetical")
	}
	if _, _, ok := textutil.ParseTitleTotal("One Piece"); ok {
		t.Fatal("expected no total without parenthetical")
	}
}

func TestRepairTitle(t *testing.T) {
	if got := textutil.RepairTitle("Naruto(220 episodes)"); got != "Naruto (220 episodes)" {
		t.Fatalf("unexpected repair: %q", got)
	}
	if got := textutil.RepairTitle("Naruto (220 episodes)"); got != "Naruto (220 episodes)" {
		t.Fatalf("expected already-spaced title untouched, got %q", got)
	}
	if got := textutil.RepairTitle("f(x)"); got != "f(x)" {
		t.Fatalf("expected unrelated parenthetical untouched, got %q", got)
	}
}

func TestNormalizeForMatch(t *testing.T) {
	if got := textutil.NormalizeForMatch("Re:Zero -Starting Life-"); got != "re zero starting life" {
		t.Fatalf("unexpected normalisation: %q", got)
	}
	if got := textutil.NormalizeForMatch("Pokémon"); got != "pokemon" {
		t.Fatalf("expected accents folded, got %q", got)
	}
	if textutil.NormalizeForMatch("ＢＬＥＡＣＨ") != textutil.NormalizeForMatch("Bleach") {
		t.Fatal("expected full-width title to match ascii spelling")
	}
}

func TestTruncate(t *testing.T) {
	if got := textutil.Truncate("Fullmetal Alchemist", 10); got != "Fullmet..." {
		t.Fatalf("unexpected truncation: %q", got)
	}
	if got := textutil.Truncate("short", 10); got != "short" {
		t.Fatalf("expected short string untouched, got %q", got)
	}
}
