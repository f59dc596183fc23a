// Package scan locates query occurrences line by line inside buffer text.
package scan

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/meghashyamc/bufsearch/models"
)

type Options struct {
	Query          string
	IsRegex        bool
	MatchCase      bool
	ExcludeQuery   string
	ExcludeIsRegex bool
}

// Matcher is a compiled set of Options. It holds no per-scan state and is safe
// to share across lines, buffers and goroutines.
type Matcher struct {
	options Options

	pattern        *regexp.Regexp
	excludePattern *regexp.Regexp

	needle        []rune
	excludeNeedle []rune
}

func Compile(options Options) (*Matcher, error) {
	m := &Matcher{options: options}

	if options.IsRegex {
		pattern, err := compilePattern(options.Query, options.MatchCase)
		if err != nil {
			return nil, &InvalidPatternError{Field: FieldQuery, Pattern: options.Query, Err: err}
		}
		m.pattern = pattern
	} else {
		m.needle = foldRunes(options.Query, options.MatchCase)
	}

	if options.ExcludeQuery == "" {
		return m, nil
	}

	if options.ExcludeIsRegex {
		excludePattern, err := compilePattern(options.ExcludeQuery, options.MatchCase)
		if err != nil {
			return nil, &InvalidPatternError{Field: FieldExcludeQuery, Pattern: options.ExcludeQuery, Err: err}
		}
		m.excludePattern = excludePattern
	} else {
		m.excludeNeedle = foldRunes(options.ExcludeQuery, options.MatchCase)
	}

	return m, nil
}

// FindMatches compiles options and scans text in one step.
func FindMatches(text string, options Options) ([]models.MatchRecord, error) {
	m, err := Compile(options)
	if err != nil {
		return nil, err
	}
	return m.FindMatches(text), nil
}

// FindMatches returns every match in text ordered by line, then column.
func (m *Matcher) FindMatches(text string) []models.MatchRecord {
	var matches []models.MatchRecord
	for i, line := range SplitLines(text) {
		matches = append(matches, m.FindLineMatches(line, i+1)...)
	}
	return matches
}

// FindLineMatches scans a single line, reporting matches under lineNumber.
func (m *Matcher) FindLineMatches(line string, lineNumber int) []models.MatchRecord {
	if m.options.Query == "" && line == "" {
		return nil
	}

	if m.isExcluded(line) {
		return nil
	}

	if m.pattern != nil {
		return m.findPatternMatches(line, lineNumber)
	}
	return m.findLiteralMatches(line, lineNumber)
}

func (m *Matcher) isExcluded(line string) bool {
	if m.options.ExcludeQuery == "" {
		return false
	}
	if m.excludePattern != nil {
		return m.excludePattern.MatchString(line)
	}
	return indexRunes(foldRunes(line, m.options.MatchCase), m.excludeNeedle, 0) >= 0
}

func (m *Matcher) findLiteralMatches(line string, lineNumber int) []models.MatchRecord {
	original := []rune(line)
	haystack := foldRunes(line, m.options.MatchCase)
	step := max(len(m.needle), 1)

	var matches []models.MatchRecord
	for from := 0; from <= len(haystack); {
		start := indexRunes(haystack, m.needle, from)
		if start < 0 {
			break
		}
		matches = append(matches, models.MatchRecord{
			Line:        lineNumber,
			Column:      start + 1,
			MatchedText: string(original[start : start+len(m.needle)]),
			LineText:    line,
		})
		from = start + step
	}
	return matches
}

// findPatternMatches relies on FindAllStringIndex stepping one position past
// every empty match, so patterns like `x*` terminate.
func (m *Matcher) findPatternMatches(line string, lineNumber int) []models.MatchRecord {
	locations := m.pattern.FindAllStringIndex(line, -1)
	if len(locations) == 0 {
		return nil
	}

	matches := make([]models.MatchRecord, 0, len(locations))
	for _, location := range locations {
		matches = append(matches, models.MatchRecord{
			Line:        lineNumber,
			Column:      utf8.RuneCountInString(line[:location[0]]) + 1,
			MatchedText: line[location[0]:location[1]],
			LineText:    line,
		})
	}
	return matches
}

// SplitLines splits on "\n" and drops the "\r" of a "\r\n" pair.
func SplitLines(text string) []string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}

func compilePattern(pattern string, matchCase bool) (*regexp.Regexp, error) {
	if !matchCase {
		pattern = "(?i)" + pattern
	}
	return regexp.Compile(pattern)
}

// foldRunes lower-cases rune by rune so rune offsets in the result line up with the input.
func foldRunes(s string, matchCase bool) []rune {
	runes := []rune(s)
	if matchCase {
		return runes
	}
	for i, r := range runes {
		runes[i] = unicode.ToLower(r)
	}
	return runes
}

func indexRunes(haystack []rune, needle []rune, from int) int {
	for i := from; i+len(needle) <= len(haystack); i++ {
		if runesEqual(haystack[i:i+len(needle)], needle) {
			return i
		}
	}
	return -1
}

func runesEqual(a []rune, b []rune) bool {
	for i := range b {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
