// Package parsers turns submitted text into a number under a channel's
// notation. A failed parse is an ordinary "no match", never an error.
package parsers

import (
	"strconv"
	"strings"
	"unicode"

	countingtypes "github.com/Black-And-White-Club/counting-bot/pkg/types/counting"
)

const (
	minBase     = 2
	maxBase     = 36
	defaultBase = 10
)

// Parse converts text under notation. base only applies to NotationNormal;
// a base outside 2..36 is treated as 10.
func Parse(text string, notation countingtypes.Notation, base int) (int64, bool) {
	switch notation {
	case countingtypes.NotationRoman:
		return parseRoman(strings.TrimSpace(text))
	case countingtypes.NotationWords:
		return parseWords(strings.TrimSpace(text))
	case countingtypes.NotationBinary:
		return parseFixedBase(firstToken(text), 2, "")
	case countingtypes.NotationHex:
		return parseFixedBase(strings.ToLower(firstToken(text)), 16, "0x")
	case countingtypes.NotationFibonacci:
		n, ok := parseNormal(firstToken(text), defaultBase)
		if !ok || !IsFibonacci(n) {
			return 0, false
		}
		return n, true
	case countingtypes.NotationPrimes:
		n, ok := parseNormal(firstToken(text), defaultBase)
		if !ok || !IsPrime(n) {
			return 0, false
		}
		return n, true
	default:
		return parseNormal(firstToken(text), normalizeBase(base))
	}
}

// LooksNumeric reports whether text is a counting attempt at all. Attempts
// that then fail Parse are invalid-format submissions; everything else is
// ordinary chat.
func LooksNumeric(text string, notation countingtypes.Notation, base int) bool {
	switch notation {
	case countingtypes.NotationRoman:
		t := strings.TrimSpace(text)
		return t != "" && strings.IndexFunc(strings.ToUpper(t), func(r rune) bool {
			return !strings.ContainsRune("IVXLCDM", r)
		}) < 0
	case countingtypes.NotationWords:
		tokens := wordTokens(text)
		if len(tokens) == 0 {
			return false
		}
		for _, tok := range tokens {
			if !isNumberWord(tok) {
				return false
			}
		}
		return true
	case countingtypes.NotationBinary:
		return startsWithDigit(firstToken(text), 2)
	case countingtypes.NotationHex:
		tok := strings.ToLower(firstToken(text))
		return startsWithDigit(strings.TrimPrefix(tok, "0x"), 16)
	case countingtypes.NotationFibonacci, countingtypes.NotationPrimes:
		return startsWithDigit(strings.TrimPrefix(firstToken(text), "-"), defaultBase)
	default:
		return startsWithDigit(strings.TrimPrefix(firstToken(text), "-"), normalizeBase(base))
	}
}

func normalizeBase(base int) int {
	if base < minBase || base > maxBase {
		return defaultBase
	}
	return base
}

func firstToken(text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// digitValue returns the value of r in base, or -1.
func digitValue(r rune, base int) int {
	var v int
	switch {
	case r >= '0' && r <= '9':
		v = int(r - '0')
	case r >= 'a' && r <= 'z':
		v = int(r-'a') + 10
	case r >= 'A' && r <= 'Z':
		v = int(r-'A') + 10
	default:
		return -1
	}
	if v >= base {
		return -1
	}
	return v
}

func startsWithDigit(tok string, base int) bool {
	for _, r := range tok {
		return digitValue(r, base) >= 0
	}
	return false
}

// parseNormal accepts an optional leading '-' followed by a strict digit run.
func parseNormal(tok string, base int) (int64, bool) {
	digits := strings.TrimPrefix(tok, "-")
	if digits == "" {
		return 0, false
	}
	for _, r := range digits {
		if digitValue(r, base) < 0 {
			return 0, false
		}
	}
	n, err := strconv.ParseInt(tok, base, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func parseFixedBase(tok string, base int, prefix string) (int64, bool) {
	if prefix != "" {
		tok = strings.TrimPrefix(tok, prefix)
	}
	if tok == "" || strings.IndexFunc(tok, func(r rune) bool {
		return digitValue(unicode.ToLower(r), base) < 0
	}) >= 0 {
		return 0, false
	}
	n, err := strconv.ParseInt(tok, base, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
