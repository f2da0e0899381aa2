package engine

import (
	"regexp"
	"strings"
)

// Endpoint names arrive from the schedule source with platform, bay, and
// home-number annotations that make one physical place look like many
// ("회사 정문(31번플랫폼)", "회사 정문(32번플랫폼)", ...). The rules below strip
// those annotations so bay-level duplicates merge to one label.
//
// Rule order matters: the most specific patterns run first, and later rules
// operate on the output of earlier ones. Changing the order changes results.
var endpointNameRules = []struct {
	pattern *regexp.Regexp
	replace string
}{
	// Trailing punctuation, so "회사." and "회사" collapse.
	{regexp.MustCompile(`\s*[.]+\s*$`), ""},

	// (야외.1번플랫폼) -> (야외), (타워.22번플랫폼) -> (타워): keep the
	// location part of a dotted parenthetical, drop the platform part.
	{regexp.MustCompile(`\(\s*([^()]+?)\s*[.·]\s*[A-Za-z]?\d+(?:-\d+)?\s*번?\s*(?:플랫폼|플래폼|승강장|홈)\s*\)`), "(${1})"},

	// Numbered platform/bay parentheticals: (31번/32번플랫폼), (41번플래폼),
	// (27옆플랫폼).
	{regexp.MustCompile(`\s*\(\s*[^()]*\d[^()]*?(?:플랫폼|플래폼|승강장|홈)[^()]*\)\s*`), ""},

	// Lettered platforms: (A플랫폼), (B 플랫폼).
	{regexp.MustCompile(`\s*\(\s*[A-Z]\s*플랫폼\s*\)\s*`), ""},

	// Home-number tokens anywhere in the string: 회사7번홈(정문) -> 회사(정문).
	{regexp.MustCompile(`\s*[A-Za-z]?\d+(?:-\d+)?\s*번?\s*홈`), ""},

	// Trailing bare numbers: P2 야외승강장(19) -> P2 야외승강장.
	{regexp.MustCompile(`\s*\(\s*\d+(?:-\d+)?\s*\)\s*$`), ""},

	// Trailing numbered stop markers: DSR동 전면도로(1번정류장) -> DSR동 전면도로.
	{regexp.MustCompile(`\s*\(\s*[A-Za-z]?\d+(?:-\d+)?\s*번?\s*정류장\s*\)\s*$`), ""},
}

var (
	collapseSpaces    = regexp.MustCompile(`\s+`)
	spaceAfterParen   = regexp.MustCompile(`\(\s+`)
	spaceBeforeParen  = regexp.MustCompile(`\s+\)`)
	spaceBeforeOpener = regexp.MustCompile(`\s+\(`)
)

// NormalizeEndpointName strips platform/bay/home annotations from a raw
// endpoint name so that physically equivalent boarding places share a label.
// An empty or all-annotation name normalizes to "".
func NormalizeEndpointName(raw string) string {
	name := strings.TrimSpace(raw)
	if name == "" {
		return ""
	}

	for _, rule := range endpointNameRules {
		name = rule.pattern.ReplaceAllString(name, rule.replace)
	}

	name = strings.TrimSpace(collapseSpaces.ReplaceAllString(name, " "))
	name = spaceAfterParen.ReplaceAllString(name, "(")
	name = spaceBeforeParen.ReplaceAllString(name, ")")
	name = spaceBeforeOpener.ReplaceAllString(name, "(")
	return strings.TrimSpace(name)
}
