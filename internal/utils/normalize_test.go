package utils

import "testing"

func TestNormalize(t *testing.T) {
	testCases := []struct {
		input    string
		expected string
	}{
		{"Fire  Shard", "fireshard"},
		{"fireshard", "fireshard"},
		{"  Hi-Potion\t", "hi-potion"},
		{"Grade 8 Tincture\nof Strength", "grade8tinctureofstrength"},
		{"", ""},
		{"   ", ""},
		{"불의 수정", "불의수정"},
		{"ÉTHER", "éther"},
	}

	for _, tc := range testCases {
		if got := Normalize(tc.input); got != tc.expected {
			t.Errorf("Normalize(%q) = %q, want %q", tc.input, got, tc.expected)
		}
	}
}

func TestNormalizeEquivalentForms(t *testing.T) {
	if Normalize("Fire  Shard") != Normalize("fireshard") {
		t.Error("expected whitespace and case variants to share a key")
	}

	// decomposed e + combining acute composes to the same key as é
	decomposed := "e\u0301ther"
	if Normalize(decomposed) != Normalize("\u00e9ther") {
		t.Errorf("expected NFC composition, got %q vs %q", Normalize(decomposed), Normalize("\u00e9ther"))
	}
}

func TestNormalizeAny(t *testing.T) {
	testCases := []struct {
		input    any
		expected string
	}{
		{42, ""},
		{nil, ""},
		{3.5, ""},
		{[]string{"a"}, ""},
		{"Fire Shard", "fireshard"},
	}

	for _, tc := range testCases {
		if got := NormalizeAny(tc.input); got != tc.expected {
			t.Errorf("NormalizeAny(%v) = %q, want %q", tc.input, got, tc.expected)
		}
	}
}

func TestNormalizeDeterministic(t *testing.T) {
	input := "Rarefied  Raw Onyx"
	first := Normalize(input)
	for i := 0; i < 10; i++ {
		if got := Normalize(input); got != first {
			t.Fatalf("run %d: got %q, want %q", i, got, first)
		}
	}
}
