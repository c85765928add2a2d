package matching

import (
	"regexp"
	"strings"
)

// Street-type and directional canonicalization tables. Abbreviations map to
// their long forms so "123 Main St" and "123 Main Street" normalize equally.
var streetTypes = map[string]string{
	"street": "street", "st": "street",
	"road": "road", "rd": "road",
	"avenue": "avenue", "ave": "avenue", "av": "avenue",
	"boulevard": "boulevard", "blvd": "boulevard",
	"lane": "lane", "ln": "lane",
	"drive": "drive", "dr": "drive",
	"court": "court", "ct": "court",
	"circle": "circle", "cir": "circle",
	"parkway": "parkway", "pkwy": "parkway",
	"highway": "highway", "hwy": "highway",
	"terrace": "terrace", "ter": "terrace",
	"place": "place", "pl": "place",
	"way": "way", "wy": "way",
	"trail": "trail", "trl": "trail",
	"alley": "alley", "aly": "alley",
	"common": "common", "cmn": "common",
	"park": "park",
}

var directionals = map[string]string{
	"n": "north", "north": "north",
	"s": "south", "south": "south",
	"e": "east", "east": "east",
	"w": "west", "west": "west",
	"ne": "northeast", "northeast": "northeast",
	"nw": "northwest", "northwest": "northwest",
	"se": "southeast", "southeast": "southeast",
	"sw": "southwest", "southwest": "southwest",
}

var (
	nonAddressChars = regexp.MustCompile(`[^\w#\s]`)
	multiSpace      = regexp.MustCompile(`\s+`)
)

func squashSpace(s string) string {
	return strings.TrimSpace(multiSpace.ReplaceAllString(s, " "))
}

func normToken(tok string) string {
	t := strings.Trim(strings.ToLower(tok), ".,")
	if canon, ok := streetTypes[t]; ok {
		return canon
	}
	if canon, ok := directionals[t]; ok {
		return canon
	}
	return t
}

// NormalizeAddress lowercases, strips punctuation, and canonicalizes street
// types and directionals in an address line.
func NormalizeAddress(s string) string {
	s = strings.ReplaceAll(s, "-", " ")
	s = nonAddressChars.ReplaceAllString(s, " ")
	fields := strings.Fields(strings.ToLower(s))
	for i, f := range fields {
		fields[i] = normToken(f)
	}
	return squashSpace(strings.Join(fields, " "))
}

// Tokens returns the normalized address split into tokens.
func Tokens(s string) []string {
	return strings.Fields(NormalizeAddress(s))
}

// BlockKey produces the blocking key used to bound the candidate search:
// the first token plus the initial of the second token. Addresses that do not
// share a block key are never compared.
func BlockKey(address1 string) string {
	toks := strings.Fields(squashSpace(address1))
	if len(toks) == 0 {
		return ""
	}
	first := toks[0]
	secondInitial := ""
	if len(toks) > 1 {
		secondInitial = toks[1][:1]
	}
	return strings.ToLower(first + "|" + secondInitial)
}

// streetTypeOf returns the canonical street type if the last token is one.
func streetTypeOf(toks []string) string {
	if len(toks) == 0 {
		return ""
	}
	last := toks[len(toks)-1]
	for _, canon := range streetTypes {
		if last == canon {
			return last
		}
	}
	return ""
}

// directionalIn returns the first canonical directional present in the tokens.
func directionalIn(toks []string) string {
	for _, t := range toks {
		switch t {
		case "north", "south", "east", "west",
			"northeast", "northwest", "southeast", "southwest":
			return t
		}
	}
	return ""
}

// Zip5 returns the first five characters of a postal code, trimmed.
func Zip5(postal string) string {
	p := strings.TrimSpace(postal)
	if len(p) > 5 {
		p = p[:5]
	}
	return p
}
