// Package pincode recovers Indian postal codes from free-text addresses.
package pincode

import (
	"regexp"
	"strings"
)

// Strategy names the pattern that produced a pincode.
type Strategy string

const (
	StrategyNone       Strategy = "none"
	StrategyStandalone Strategy = "standalone"
	StrategySplit      Strategy = "split"
	StrategyEmbedded   Strategy = "embedded"
)

// Length is the number of digits in a pincode.
const Length = 6

// ProximityPrefix is the number of leading digits shared by nearby pincodes.
const ProximityPrefix = 4

var (
	standalonePattern = regexp.MustCompile(`\b(\d{6})\b`)
	splitPattern      = regexp.MustCompile(`\b(\d{3})[ -]?(\d{3})\b`)
	embeddedPattern   = regexp.MustCompile(`\D(\d{6})\D`)
	digitsOnly        = regexp.MustCompile(`^\d{6}$`)
)

// Extract returns the first pincode found in address. Patterns are tried in
// order: a standalone 6-digit word, two 3-digit groups split by a space or
// hyphen, then any 6-digit run bounded by non-digits.
func Extract(address string) (string, Strategy, bool) {
	normalized := Normalize(address)
	if normalized == "" {
		return "", StrategyNone, false
	}

	if m := standalonePattern.FindStringSubmatch(normalized); m != nil {
		return m[1], StrategyStandalone, true
	}

	if m := splitPattern.FindStringSubmatch(normalized); m != nil {
		return m[1] + m[2], StrategySplit, true
	}

	if m := embeddedPattern.FindStringSubmatch(" " + normalized + " "); m != nil {
		return m[1], StrategyEmbedded, true
	}

	return "", StrategyNone, false
}

// Normalize trims address and collapses internal whitespace runs to one space.
func Normalize(address string) string {
	return strings.Join(strings.Fields(address), " ")
}

// Valid reports whether p is exactly six digits.
func Valid(p string) bool {
	return digitsOnly.MatchString(p)
}

// Prefix returns the first n characters of p, or p itself when shorter.
func Prefix(p string, n int) string {
	if n < 0 {
		return ""
	}
	if len(p) <= n {
		return p
	}
	return p[:n]
}

// InProximity reports whether two pincodes share the proximity prefix.
func InProximity(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return Prefix(a, ProximityPrefix) == Prefix(b, ProximityPrefix)
}
