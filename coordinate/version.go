package coordinate

import (
	"strings"

	"github.com/cockroachdb/apd/v3"
	"golang.org/x/mod/semver"
)

// IsVariableVersion reports whether a version string is a Maven version
// range ("[1.0,2.0)", "(,1.0]", "[1.0,)", …) or an unresolved property
// expression ("${revision}") rather than a single literal version.
// Coordinates whose version classifies as variable belong to the
// variable-node set of spec.md §3.
func IsVariableVersion(version string) bool {
	v := strings.TrimSpace(version)
	if v == "" {
		return false
	}
	switch v[0] {
	case '[', '(':
		return true
	}
	if strings.Contains(v, "${") {
		return true
	}
	if strings.HasSuffix(v, "+") {
		// Maven's legacy "1.0.+" open-ended prefix range.
		return true
	}
	switch strings.ToUpper(v) {
	case "LATEST", "RELEASE":
		return true
	}
	return false
}

// Compare orders two literal version strings. It first tries a
// semver-shaped comparison (golang.org/x/mod/semver, the same comparator
// the teacher uses throughout internal/mod/module and internal/mod/mvs),
// normalizing bare dotted-numeric versions ("1.2.3") to the "v"-prefixed
// form semver.Compare expects. When both versions normalize to valid
// semver, semver.Compare decides; it compares numeric identifiers of any
// length by value, so even digit runs too long for an int64 (e.g.
// date-stamped Maven build numbers like "20231103182354") order
// numerically. Any other pair is compared by compareDotted, which treats
// purely numeric segments as arbitrary-precision decimals via
// github.com/cockroachdb/apd/v3 and everything else lexically.
//
// Compare returns a negative number, zero, or a positive number as v1 is
// less than, equal to, or greater than v2. It is not meaningful to call
// Compare on a variable (range/expression) version; callers should check
// IsVariableVersion first.
func Compare(v1, v2 string) int {
	if v1 == v2 {
		return 0
	}
	s1, s2 := asSemver(v1), asSemver(v2)
	if semver.IsValid(s1) && semver.IsValid(s2) {
		return semver.Compare(s1, s2)
	}
	return compareDotted(v1, v2)
}

// asSemver normalizes a bare dotted-numeric version into the form
// golang.org/x/mod/semver requires ("v" prefix, three numeric
// components). Maven versions routinely omit the patch component
// ("1.8"), which semver.IsValid rejects outright, so this pads it.
func asSemver(v string) string {
	if v == "" {
		return v
	}
	s := v
	if s[0] != 'v' {
		s = "v" + s
	}
	numDots := strings.Count(s, ".")
	for numDots < 2 {
		s += ".0"
		numDots++
	}
	return s
}

// compareDotted compares two version strings component-by-component,
// splitting on '.' and '-', treating purely-numeric components as
// numbers (via apd.Decimal, to avoid int64 overflow on long digit runs)
// and everything else lexically. A version with fewer components than
// the other is padded with "0" components for the comparison, matching
// Maven's own ComparableVersion semantics.
func compareDotted(v1, v2 string) int {
	p1 := splitVersionParts(v1)
	p2 := splitVersionParts(v2)
	n := len(p1)
	if len(p2) > n {
		n = len(p2)
	}
	for i := 0; i < n; i++ {
		a, b := "0", "0"
		if i < len(p1) {
			a = p1[i]
		}
		if i < len(p2) {
			b = p2[i]
		}
		if c := compareVersionPart(a, b); c != 0 {
			return c
		}
	}
	return 0
}

func splitVersionParts(v string) []string {
	return strings.FieldsFunc(v, func(r rune) bool {
		return r == '.' || r == '-' || r == '_' || r == '+'
	})
}

func compareVersionPart(a, b string) int {
	na, aIsNum := parseDecimal(a)
	nb, bIsNum := parseDecimal(b)
	if aIsNum && bIsNum {
		return na.Cmp(nb)
	}
	if aIsNum != bIsNum {
		// Maven treats a numeric component as newer than a qualifier
		// ("1.0" > "1.0-SNAPSHOT").
		if aIsNum {
			return 1
		}
		return -1
	}
	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}

func parseDecimal(s string) (*apd.Decimal, bool) {
	if s == "" {
		return nil, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return nil, false
		}
	}
	d, _, err := apd.NewFromString(s)
	if err != nil {
		return nil, false
	}
	return d, true
}
