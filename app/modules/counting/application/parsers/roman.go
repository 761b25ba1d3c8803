package parsers

import (
	"regexp"
	"strings"
)

// canonicalRoman matches 1..3999 in standard subtractive form only, so
// sequences like "IIII", "VX" or "IC" fail.
var canonicalRoman = regexp.MustCompile(`^M{0,3}(CM|CD|D?C{0,3})(XC|XL|L?X{0,3})(IX|IV|V?I{0,3})$`)

var romanValues = map[byte]int64{
	'I': 1,
	'V': 5,
	'X': 10,
	'L': 50,
	'C': 100,
	'D': 500,
	'M': 1000,
}

func parseRoman(text string) (int64, bool) {
	s := strings.ToUpper(text)
	if s == "" || !canonicalRoman.MatchString(s) {
		return 0, false
	}

	var total int64
	for i := 0; i < len(s); i++ {
		v := romanValues[s[i]]
		if i+1 < len(s) && v < romanValues[s[i+1]] {
			total -= v
		} else {
			total += v
		}
	}
	return total, total > 0
}

// FormatRoman renders n in canonical form. It returns "" outside 1..3999.
func FormatRoman(n int64) string {
	if n <= 0 || n >= 4000 {
		return ""
	}
	steps := []struct {
		value  int64
		symbol string
	}{
		{1000, "M"}, {900, "CM"}, {500, "D"}, {400, "CD"},
		{100, "C"}, {90, "XC"}, {50, "L"}, {40, "XL"},
		{10, "X"}, {9, "IX"}, {5, "V"}, {4, "IV"}, {1, "I"},
	}
	var b strings.Builder
	for _, st := range steps {
		for n >= st.value {
			b.WriteString(st.symbol)
			n -= st.value
		}
	}
	return b.String()
}
