package matching

import (
	"math"
	"strings"
	"testing"

	"github.com/ZAX3000/mailtrace/internal/domain"
)

func TestAddressSimilarity(t *testing.T) {
	testCases := []struct {
		name string
		a, b string
		want float64 // -1 means "strictly between 0 and 1"
	}{
		{name: "identical", a: "123 Main St", b: "123 Main St", want: 1},
		{name: "abbreviation vs long form", a: "123 Main St", b: "123 Main Street", want: 1},
		{name: "token order", a: "Main 123 Street", b: "123 Main Street", want: 1},
		{name: "close but different", a: "123 Main St", b: "123 Maine St", want: -1},
		{name: "empty left", a: "", b: "123 Main St", want: 0},
		{name: "both empty", a: "", b: "", want: 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := AddressSimilarity(tc.a, tc.b)
			if tc.want == -1 {
				if got <= 0 || got >= 1 {
					t.Errorf("AddressSimilarity(%q, %q) = %v, want value in (0,1)", tc.a, tc.b, got)
				}
				return
			}
			if math.Abs(got-tc.want) > 1e-9 {
				t.Errorf("AddressSimilarity(%q, %q) = %v, want %v", tc.a, tc.b, got, tc.want)
			}
		})
	}
}

func TestNameSimilarity(t *testing.T) {
	if got := NameSimilarity("John Smith", "Smith John"); got != 1 {
		t.Errorf("reordered name similarity = %v, want 1", got)
	}
	if got := NameSimilarity("", "John Smith"); got != 0 {
		t.Errorf("empty name similarity = %v, want 0", got)
	}
	got := NameSimilarity("John Smith", "Jon Smith")
	if got <= 0.5 || got >= 1 {
		t.Errorf("typo name similarity = %v, want high but below 1", got)
	}
}

func TestDateProximity(t *testing.T) {
	testCases := []struct {
		gap, window int
		want        float64
	}{
		{0, 180, 1},
		{90, 180, 0.5},
		{180, 180, 0},
		{-1, 180, 0},
		{181, 180, 0},
	}

	for _, tc := range testCases {
		if got := dateProximity(tc.gap, tc.window); math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("dateProximity(%d, %d) = %v, want %v", tc.gap, tc.window, got, tc.want)
		}
	}
}

func TestAddressScoreBonuses(t *testing.T) {
	base := func(mZip, cZip, mCity, cCity, mState, cState string) float64 {
		m := &mailRow{normAddress: "123 main street", zip5: mZip, cityLower: mCity, stateLower: mState}
		c := &crmRow{normAddress: "987 oak road", zip5: cZip, cityLower: cCity, stateLower: cState}
		return addressScore(m, c)
	}

	plain := base("", "", "", "", "", "")
	withZip := base("12345", "12345", "", "", "", "")
	if diff := withZip - plain; math.Abs(diff-zipBonus) > 1e-9 {
		t.Errorf("zip bonus = %v, want %v", diff, zipBonus)
	}

	all := base("12345", "12345", "austin", "austin", "tx", "tx")
	if diff := all - plain; math.Abs(diff-(zipBonus+cityBonus+stateBonus)) > 1e-9 {
		t.Errorf("combined bonus = %v, want %v", diff, zipBonus+cityBonus+stateBonus)
	}

	// Mismatched locality adds nothing
	if got := base("12345", "54321", "austin", "dallas", "tx", "ca"); got != plain {
		t.Errorf("mismatched locality changed score: %v vs %v", got, plain)
	}
}

func TestAddressScoreCapped(t *testing.T) {
	m := &mailRow{normAddress: "123 main street", zip5: "12345", cityLower: "austin", stateLower: "tx"}
	c := &crmRow{normAddress: "123 main street", zip5: "12345", cityLower: "austin", stateLower: "tx"}
	if got := addressScore(m, c); got != 1 {
		t.Errorf("addressScore = %v, want capped at 1", got)
	}
}

func TestScoreNotes(t *testing.T) {
	m := &mailRow{tokens: Tokens("123 N Main St")}
	c := &crmRow{tokens: Tokens("123 Main Ave")}
	notes := scoreNotes(m, c)
	if len(notes) != 2 {
		t.Fatalf("notes = %v, want street type and direction notes", notes)
	}
	if !strings.Contains(notes[0], "street type") {
		t.Errorf("first note = %q, want street type mismatch", notes[0])
	}
	if !strings.Contains(notes[1], "direction") {
		t.Errorf("second note = %q, want direction mismatch", notes[1])
	}
}

func TestScoreNotesUnit(t *testing.T) {
	m := &mailRow{rec: domain.MailRecord{Address2: "Apt 2"}, tokens: Tokens("123 Main St")}
	c := &crmRow{tokens: Tokens("123 Main St")}
	notes := scoreNotes(m, c)
	if len(notes) != 1 || !strings.Contains(notes[0], "unit") {
		t.Errorf("notes = %v, want single unit mismatch", notes)
	}

	// Same unit, different case: no note
	m2 := &mailRow{rec: domain.MailRecord{Address2: "APT 2"}, tokens: Tokens("123 Main St")}
	c2 := &crmRow{rec: domain.CRMRecord{Address2: "apt 2"}, tokens: Tokens("123 Main St")}
	if notes := scoreNotes(m2, c2); len(notes) != 0 {
		t.Errorf("notes = %v, want none for case-insensitive unit match", notes)
	}
}
