package timeline

import (
	"regexp"
	"strconv"
)

// Annotation pulls the first "<keyword> *: *<number>" value out of a free-text
// blob. The keyword matches case-insensitively; the number allows digits and a
// single decimal point. Missing or malformed annotations are worth 0.
func Annotation(text, keyword string) float64 {
	if text == "" || keyword == "" { return 0 }
	re, err := regexp.Compile(`(?i)` + regexp.QuoteMeta(keyword) + ` *: *([0-9]+(?:\.[0-9]+)?)`)
	if err != nil { return 0 }
	m := re.FindStringSubmatch(text)
	if m == nil { return 0 }
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil { return 0 }
	return v
}
