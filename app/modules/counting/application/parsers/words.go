package parsers

import (
	"math"
	"strings"
	"unicode"
)

var smallWords = map[string]int64{
	"zero": 0, "one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
	"eleven": 11, "twelve": 12, "thirteen": 13, "fourteen": 14, "fifteen": 15,
	"sixteen": 16, "seventeen": 17, "eighteen": 18, "nineteen": 19,
	"twenty": 20, "thirty": 30, "forty": 40, "fifty": 50,
	"sixty": 60, "seventy": 70, "eighty": 80, "ninety": 90,
}

var scaleWords = map[string]int64{
	"thousand": 1_000,
	"million":  1_000_000,
	"billion":  1_000_000_000,
	"trillion": 1_000_000_000_000,
}

func wordTokens(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return r == '-' || r == ',' || unicode.IsSpace(r)
	})
}

func isNumberWord(tok string) bool {
	if tok == "and" || tok == "hundred" {
		return true
	}
	if _, ok := smallWords[tok]; ok {
		return true
	}
	_, ok := scaleWords[tok]
	return ok
}

// wordClass is the kind of the previous token inside a number phrase.
type wordClass int

const (
	classStart wordClass = iota
	classUnit
	classTeen
	classTen
	classHundred
	classScale
)

func classOf(v int64) wordClass {
	switch {
	case v < 10:
		return classUnit
	case v < 20:
		return classTeen
	default:
		return classTen
	}
}

// parseWords converts e.g. "one thousand two hundred and thirty-four".
// Each group below a thousand reads [unit hundred] [ten [unit] | teen | unit],
// and scales must descend, so "one thousand one million", "two one" and
// "twenty twenty" all fail.
func parseWords(text string) (int64, bool) {
	tokens := wordTokens(text)
	if len(tokens) == 0 {
		return 0, false
	}

	var total, group int64
	lastScale := int64(math.MaxInt64)
	prev := classStart
	for _, tok := range tokens {
		if tok == "and" {
			continue
		}
		if tok == "zero" {
			return 0, false
		}
		if tok == "hundred" {
			if prev != classUnit || group >= 10 {
				return 0, false
			}
			group *= 100
			prev = classHundred
			continue
		}
		if v, ok := smallWords[tok]; ok {
			class := classOf(v)
			switch prev {
			case classStart, classScale, classHundred:
			case classTen:
				if class != classUnit {
					return 0, false
				}
			default:
				return 0, false
			}
			group += v
			prev = class
			continue
		}
		scale, ok := scaleWords[tok]
		if !ok || scale >= lastScale || prev == classScale {
			return 0, false
		}
		if group == 0 {
			group = 1
		}
		total += group * scale
		group = 0
		lastScale = scale
		prev = classScale
	}

	n := total + group
	if prev == classStart || n <= 0 {
		return 0, false
	}
	return n, true
}
