// Package column maps user- or model-supplied column names onto the actual
// columns of a dataset.
package column

import (
	"regexp"
	"strings"
)

const minFuzzyLength = 3

var separatorStripper = strings.NewReplacer(" ", "", "_", "", "-", "")

// Normalize lower-cases, trims and removes spaces, underscores and hyphens.
func Normalize(name string) string {
	return separatorStripper.Replace(strings.ToLower(strings.TrimSpace(name)))
}

type matcher func(requested, candidate string, words wordPattern) bool

// Stages are ordered strictest first; later stages tolerate more naming drift.
var stages = []matcher{
	func(req, cand string, _ wordPattern) bool { return Normalize(cand) == Normalize(req) },
	func(req, cand string, _ wordPattern) bool {
		return strings.ToLower(strings.TrimSpace(cand)) == strings.ToLower(strings.TrimSpace(req))
	},
	func(req, cand string, _ wordPattern) bool {
		nr := Normalize(req)
		return len(nr) >= minFuzzyLength && strings.HasPrefix(Normalize(cand), nr)
	},
	func(req, cand string, _ wordPattern) bool {
		nr := Normalize(req)
		return len(nr) >= minFuzzyLength && strings.Contains(Normalize(cand), nr)
	},
	func(_, cand string, words wordPattern) bool { return words.match(cand) },
	func(req, cand string, _ wordPattern) bool {
		nc := Normalize(cand)
		return len(nc) >= minFuzzyLength && strings.Contains(Normalize(req), nc)
	},
}

// wordPattern matches every token of a requested name as a whole word.
type wordPattern []*regexp.Regexp

func compileWords(req string) wordPattern {
	tokens := strings.Fields(strings.ToLower(req))
	out := make(wordPattern, 0, len(tokens))
	for _, tok := range tokens {
		out = append(out, regexp.MustCompile(`\b`+regexp.QuoteMeta(tok)+`\b`))
	}
	return out
}

func (p wordPattern) match(text string) bool {
	if len(p) == 0 {
		return false
	}
	lower := strings.ToLower(text)
	for _, re := range p {
		if !re.MatchString(lower) {
			return false
		}
	}
	return true
}

// Resolve returns the first available column matched by the earliest stage of
// the cascade, or false when no stage matches.
func Resolve(requested string, available []string) (string, bool) {
	if strings.TrimSpace(requested) == "" {
		return "", false
	}
	words := compileWords(requested)
	for _, match := range stages {
		for _, cand := range available {
			if match(requested, cand, words) {
				return cand, true
			}
		}
	}
	return "", false
}

// Mentioned returns the columns whose name occurs in free text, in column order.
func Mentioned(text string, available []string) []string {
	normText := Normalize(text)
	lowerText := strings.ToLower(text)
	out := make([]string, 0)
	for _, cand := range available {
		nc := Normalize(cand)
		if len(nc) < minFuzzyLength {
			continue
		}
		if strings.Contains(normText, nc) || compileWords(cand).match(lowerText) {
			out = append(out, cand)
		}
	}
	return out
}
