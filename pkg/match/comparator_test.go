package match

import (
	"testing"
	"time"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"María", "maria"},
		{"  LÓPEZ ", "lopez"},
		{"Peñalva", "penalva"},
		{"Güemes", "guemes"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := Normalize(tc.in); got != tc.want {
			t.Fatalf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestJaroWinklerBounds(t *testing.T) {
	if got := JaroWinkler("lopez", "lopez"); got != 1.0 {
		t.Fatalf("identical strings should score 1, got %v", got)
	}
	if got := JaroWinkler("lopez", ""); got != 0 {
		t.Fatalf("empty input should score 0, got %v", got)
	}
	if got := JaroWinkler("abc", "xyz"); got != 0 {
		t.Fatalf("disjoint strings should score 0, got %v", got)
	}
}

func TestJaroWinklerPrefersSharedPrefix(t *testing.T) {
	withPrefix := JaroWinkler("martinez", "martines")
	without := JaroWinkler("martinez", "sanmartin")
	if withPrefix <= without {
		t.Fatalf("shared prefix should outrank rearranged letters: %v vs %v", withPrefix, without)
	}
	if withPrefix < 0.9 {
		t.Fatalf("single trailing substitution should stay above 0.9, got %v", withPrefix)
	}
}

func TestCompareNormalizesBeforeScoring(t *testing.T) {
	c := NewComparator()
	if got := c.Compare("María", "MARIA"); got != 1.0 {
		t.Fatalf("accents and case should not matter, got %v", got)
	}
}

func TestCompareTakesBestOfBothMetrics(t *testing.T) {
	c := NewComparator()

	// A single substitution in an 8-digit document: edit distance gives 7/8.
	if got := c.Compare("30111222", "30111223"); got < 0.875 {
		t.Fatalf("one-digit typo should keep at least the edit-distance score, got %v", got)
	}
	if got := c.Compare("gonzalez", "gonsalez"); got < 0.9 {
		t.Fatalf("common surname misspelling should score high, got %v", got)
	}
	if got := c.Compare("maria", "pedro"); got > 0.6 {
		t.Fatalf("unrelated names should score low, got %v", got)
	}
}

func TestFormatDate(t *testing.T) {
	if got := FormatDate(nil); got != "" {
		t.Fatalf("nil date should format empty, got %q", got)
	}
	var zero time.Time
	if got := FormatDate(&zero); got != "" {
		t.Fatalf("zero date should format empty, got %q", got)
	}
	born := time.Date(1987, time.June, 3, 14, 30, 0, 0, time.UTC)
	if got := FormatDate(&born); got != "1987-06-03" {
		t.Fatalf("unexpected layout: %q", got)
	}
}
