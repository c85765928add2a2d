package matching

import (
	"reflect"
	"testing"
)

func TestNormalizeAddress(t *testing.T) {
	testCases := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "street type abbreviation",
			input: "123 Main St.",
			want:  "123 main street",
		},
		{
			name:  "directional abbreviation",
			input: "456 N Oak Ave",
			want:  "456 north oak avenue",
		},
		{
			name:  "punctuation and extra spaces",
			input: "  789  Elm   Blvd, ",
			want:  "789 elm boulevard",
		},
		{
			name:  "hyphen split",
			input: "12-14 Pine Rd",
			want:  "12 14 pine road",
		},
		{
			name:  "unit marker preserved",
			input: "55 Cedar Ln #2B",
			want:  "55 cedar lane #2b",
		},
		{
			name:  "empty",
			input: "",
			want:  "",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := NormalizeAddress(tc.input)
			if got != tc.want {
				t.Errorf("NormalizeAddress(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestNormalizeAddressEquivalence(t *testing.T) {
	pairs := [][2]string{
		{"123 Main St", "123 Main Street"},
		{"456 N Oak Ave", "456 North Oak Avenue"},
		{"789 SW Elm Dr.", "789 Southwest Elm Drive"},
	}
	for _, p := range pairs {
		if a, b := NormalizeAddress(p[0]), NormalizeAddress(p[1]); a != b {
			t.Errorf("expected %q and %q to normalize equally, got %q vs %q", p[0], p[1], a, b)
		}
	}
}

func TestBlockKey(t *testing.T) {
	testCases := []struct {
		input string
		want  string
	}{
		{"123 Main St", "123|m"},
		{"123 Maple St", "123|m"},
		{"456 Oak Ave", "456|o"},
		{"789", "789|"},
		{"", ""},
		{"   ", ""},
	}

	for _, tc := range testCases {
		if got := BlockKey(tc.input); got != tc.want {
			t.Errorf("BlockKey(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestTokens(t *testing.T) {
	got := Tokens("123 N Main St")
	want := []string{"123", "north", "main", "street"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Tokens = %v, want %v", got, want)
	}
}

func TestZip5(t *testing.T) {
	testCases := []struct {
		input string
		want  string
	}{
		{"12345", "12345"},
		{"12345-6789", "12345"},
		{" 12345 ", "12345"},
		{"123", "123"},
		{"", ""},
	}

	for _, tc := range testCases {
		if got := Zip5(tc.input); got != tc.want {
			t.Errorf("Zip5(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestStreetTypeOf(t *testing.T) {
	if got := streetTypeOf(Tokens("123 Main St")); got != "street" {
		t.Errorf("streetTypeOf = %q, want %q", got, "street")
	}
	if got := streetTypeOf(Tokens("123 Main")); got != "" {
		t.Errorf("streetTypeOf = %q, want empty", got)
	}
	if got := streetTypeOf(nil); got != "" {
		t.Errorf("streetTypeOf(nil) = %q, want empty", got)
	}
}

func TestDirectionalIn(t *testing.T) {
	if got := directionalIn(Tokens("456 N Oak Ave")); got != "north" {
		t.Errorf("directionalIn = %q, want %q", got, "north")
	}
	if got := directionalIn(Tokens("456 Oak Ave")); got != "" {
		t.Errorf("directionalIn = %q, want empty", got)
	}
}
