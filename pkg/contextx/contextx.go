// Package contextx implements the Context Extractor: given a file's
// content at some revision and a target line range, it returns the
// smallest enclosing "section" (typically a function or top-level
// definition), falling back to a fixed-width window when no enclosing
// structure is found (spec §4.4).
package contextx

import (
	"regexp"
	"strings"

	"github.com/awslabs/Git-llm-pick/pkg/constants"
	"github.com/awslabs/Git-llm-pick/pkg/types"
)

// Patterns maps a file extension (including the leading dot, lowercase)
// to the set of regular expressions that identify a "section-start"
// line for that language. Callers may register additional extensions;
// this satisfies the "pluggable extractors per file extension" open
// question in spec §9.
var Patterns = map[string][]*regexp.Regexp{
	".go": {
		regexp.MustCompile(`^func\s`),
		regexp.MustCompile(`^type\s`),
		regexp.MustCompile(`^var\s`),
		regexp.MustCompile(`^const\s`),
	},
	".c":   cLikePatterns(),
	".h":   cLikePatterns(),
	".cc":  cLikePatterns(),
	".cpp": cLikePatterns(),
	".py": {
		regexp.MustCompile(`^(?:async\s+)?def\s`),
		regexp.MustCompile(`^class\s`),
	},
	".sh": {
		regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*\s*\(\)\s*\{?\s*$`),
		regexp.MustCompile(`^function\s`),
	},
	".yaml": {regexp.MustCompile(`^[A-Za-z0-9_.-]+:\s*$`)},
	".yml":  {regexp.MustCompile(`^[A-Za-z0-9_.-]+:\s*$`)},
}

func cLikePatterns() []*regexp.Regexp {
	return []*regexp.Regexp{
		// A line with a parameter list, optionally followed by "{", is
		// treated as a function or top-level declaration start. Leading
		// whitespace is stripped before matching, so indentation is
		// judged by the caller, not here. Heuristic, not a real parser.
		regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_ *]*\([^;]*\)\s*\{?\s*$`),
		regexp.MustCompile(`^(struct|enum|union)\s`),
	}
}

// RegisterPatterns adds or replaces the section-start patterns for an
// extension (e.g. ".rs").
func RegisterPatterns(ext string, patterns []*regexp.Regexp) {
	Patterns[ext] = patterns
}

// Extract returns the Section of text enclosing [startLine, endLine]
// (1-based, inclusive) given the full file content at one revision.
func Extract(path string, revision types.SectionRevision, content string, startLine, endLine int) types.Section {
	lines := strings.Split(content, "\n")
	if startLine < 1 {
		startLine = 1
	}
	if endLine > len(lines) {
		endLine = len(lines)
	}
	if endLine < startLine {
		endLine = startLine
	}

	patterns := patternsForPath(path)
	if len(patterns) > 0 {
		if sec, ok := extractBySectionStart(lines, startLine, endLine, patterns); ok {
			return types.Section{Path: path, Revision: revision, StartLine: sec.start, EndLine: sec.end, Text: joinRange(lines, sec.start, sec.end)}
		}
	}

	start := startLine - constants.DefaultContextWindow
	if start < 1 {
		start = 1
	}
	end := endLine + constants.DefaultContextWindow
	if end > len(lines) {
		end = len(lines)
	}
	return types.Section{Path: path, Revision: revision, StartLine: start, EndLine: end, Text: joinRange(lines, start, end)}
}

type lineRange struct{ start, end int }

func extractBySectionStart(lines []string, startLine, endLine int, patterns []*regexp.Regexp) (lineRange, bool) {
	startIdx := startLine - 1 // 0-based

	sectionStartIdx := -1
	minIndent := indentOf(lines[startIdx])
	for i := startIdx; i >= 0; i-- {
		indent := indentOf(lines[i])
		if indent < minIndent {
			minIndent = indent
		}
		if indent == minIndent && matchesAny(lines[i], patterns) {
			sectionStartIdx = i
			break
		}
	}
	if sectionStartIdx == -1 {
		return lineRange{}, false
	}

	sectionIndent := indentOf(lines[sectionStartIdx])
	sectionEndIdx := len(lines) - 1
	for i := sectionStartIdx + 1; i < len(lines); i++ {
		trimmed := strings.TrimSpace(lines[i])
		if trimmed == "" {
			continue
		}
		if indentOf(lines[i]) <= sectionIndent && matchesAny(lines[i], patterns) {
			sectionEndIdx = i - 1
			break
		}
	}

	// Guarantee containment of the requested range even if the detected
	// section is, implausibly, smaller (spec invariant: Section always
	// contains the target range).
	if sectionStartIdx > startLine-1 {
		sectionStartIdx = startLine - 1
	}
	if sectionEndIdx < endLine-1 {
		sectionEndIdx = endLine - 1
	}
	return lineRange{start: sectionStartIdx + 1, end: sectionEndIdx + 1}, true
}

func matchesAny(line string, patterns []*regexp.Regexp) bool {
	trimmed := strings.TrimLeft(line, " \t")
	for _, p := range patterns {
		if p.MatchString(trimmed) {
			return true
		}
	}
	return false
}

func indentOf(line string) int {
	n := 0
	for _, r := range line {
		if r == ' ' {
			n++
		} else if r == '\t' {
			n += 8
		} else {
			break
		}
	}
	return n
}

func joinRange(lines []string, start, end int) string {
	if start < 1 {
		start = 1
	}
	if end > len(lines) {
		end = len(lines)
	}
	if end < start {
		return ""
	}
	return strings.Join(lines[start-1:end], "\n")
}

func patternsForPath(path string) []*regexp.Regexp {
	idx := strings.LastIndexByte(path, '.')
	if idx < 0 {
		return nil
	}
	return Patterns[strings.ToLower(path[idx:])]
}
