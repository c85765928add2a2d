package matching

import (
	"fmt"
	"sort"
	"strings"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
)

// levRatio is the shared base metric. Kept package-level so every comparison
// in a run scores identically.
var levRatio = metrics.NewLevenshtein()

func ratio(a, b string) float64 {
	if a == "" && b == "" {
		return 1
	}
	if a == "" || b == "" {
		return 0
	}
	return strutil.Similarity(a, b, levRatio)
}

// tokenSetRatio compares two strings as token sets, which makes the score
// robust to token order and duplication. The intersection string is compared
// against both full strings and the best of the three ratios wins.
func tokenSetRatio(a, b string) float64 {
	setA := tokenSet(a)
	setB := tokenSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	var inter, onlyA, onlyB []string
	for _, t := range setA {
		if containsToken(setB, t) {
			inter = append(inter, t)
		} else {
			onlyA = append(onlyA, t)
		}
	}
	for _, t := range setB {
		if !containsToken(setA, t) {
			onlyB = append(onlyB, t)
		}
	}

	sorted := strings.Join(inter, " ")
	combA := strings.TrimSpace(sorted + " " + strings.Join(onlyA, " "))
	combB := strings.TrimSpace(sorted + " " + strings.Join(onlyB, " "))

	best := ratio(sorted, combA)
	if r := ratio(sorted, combB); r > best {
		best = r
	}
	if r := ratio(combA, combB); r > best {
		best = r
	}
	return best
}

func tokenSet(s string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, t := range strings.Fields(s) {
		if _, ok := seen[t]; !ok {
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	sort.Strings(out)
	return out
}

func containsToken(set []string, tok string) bool {
	i := sort.SearchStrings(set, tok)
	return i < len(set) && set[i] == tok
}

// AddressSimilarity scores two address lines in [0,1] after normalization.
func AddressSimilarity(a, b string) float64 {
	na, nb := NormalizeAddress(a), NormalizeAddress(b)
	if na == "" || nb == "" {
		return 0
	}
	return tokenSetRatio(na, nb)
}

// NameSimilarity scores two recipient names in [0,1]. Empty names score 0;
// the matcher reassigns the name weight when neither side carries one.
func NameSimilarity(a, b string) float64 {
	na := squashSpace(strings.ToLower(a))
	nb := squashSpace(strings.ToLower(b))
	if na == "" || nb == "" {
		return 0
	}
	return tokenSetRatio(na, nb)
}

// Locality bonus points added to the address component when zip, city, or
// state also agree. The boosted score is capped at 1.
const (
	zipBonus   = 0.05
	cityBonus  = 0.02
	stateBonus = 0.02
)

// addressScore combines line-level similarity with locality agreement
// bonuses, capped at 1.
func addressScore(m *mailRow, c *crmRow) float64 {
	s := tokenSetRatio(m.normAddress, c.normAddress)
	if m.zip5 != "" && m.zip5 == c.zip5 {
		s += zipBonus
	}
	if m.cityLower != "" && m.cityLower == c.cityLower {
		s += cityBonus
	}
	if m.stateLower != "" && m.stateLower == c.stateLower {
		s += stateBonus
	}
	if s > 1 {
		s = 1
	}
	return s
}

// dateProximity maps the gap between mail send and job completion onto [0,1]:
// the day the mail lands scores 1, the edge of the window scores 0. Pairs
// outside the window never reach this function.
func dateProximity(gapDays, windowDays int) float64 {
	if gapDays < 0 || gapDays > windowDays {
		return 0
	}
	return 1 - float64(gapDays)/float64(windowDays)
}

// scoreNotes records qualitative mismatches between the two address lines for
// the report summary: street type, directional, and unit disagreements.
func scoreNotes(m *mailRow, c *crmRow) []string {
	var notes []string

	stM, stC := streetTypeOf(m.tokens), streetTypeOf(c.tokens)
	if stM != stC && (stM != "" || stC != "") {
		notes = append(notes, fmt.Sprintf("%s vs %s (street type)", orNone(stM), orNone(stC)))
	}

	dirM, dirC := directionalIn(m.tokens), directionalIn(c.tokens)
	if dirM != dirC && (dirM != "" || dirC != "") {
		notes = append(notes, fmt.Sprintf("%s vs %s (direction)", orNone(dirM), orNone(dirC)))
	}

	unitM := strings.TrimSpace(m.rec.Address2)
	unitC := strings.TrimSpace(c.rec.Address2)
	switch {
	case (unitM != "") != (unitC != ""):
		notes = append(notes, fmt.Sprintf("%s vs %s (unit)", orNone(unitM), orNone(unitC)))
	case unitM != "" && !strings.EqualFold(unitM, unitC):
		notes = append(notes, fmt.Sprintf("%s vs %s (unit)", unitM, unitC))
	}

	return notes
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
