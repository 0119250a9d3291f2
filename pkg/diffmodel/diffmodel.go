// Package diffmodel parses unified diff text into FileChange/Hunk
// values and emits it back losslessly. The line-by-line scanner and
// regex set are grounded on the diff parser shown in this corpus's
// shipsafe vcs package (diff --git / @@ .. @@ / binary-file regexes
// scanned with bufio.Scanner).
package diffmodel

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/awslabs/Git-llm-pick/pkg/types"
)

var (
	// ErrEmptyDiff is returned when the input has no non-whitespace
	// content.
	ErrEmptyDiff = errors.New("diffmodel: empty diff input")
	// ErrMalformedDiff is returned when a hunk header or file header
	// cannot be parsed.
	ErrMalformedDiff = errors.New("diffmodel: malformed diff")
)

var (
	diffHeaderRegex  = regexp.MustCompile(`^diff --git a/(.+) b/(.+)$`)
	hunkHeaderRegex  = regexp.MustCompile(`^@@ -(\d+)(?:,(\d+))? \+(\d+)(?:,(\d+))? @@(.*)$`)
	binaryFilesRegex = regexp.MustCompile(`^Binary files (.+) and (.+) differ$`)
	oldModeRegex     = regexp.MustCompile(`^old mode (\d+)$`)
	newModeRegex     = regexp.MustCompile(`^new mode (\d+)$`)
	renameFromRegex  = regexp.MustCompile(`^rename from (.+)$`)
	renameToRegex    = regexp.MustCompile(`^rename to (.+)$`)
	minusPathRegex   = regexp.MustCompile(`^--- (?:a/(.+)|(/dev/null))$`)
	plusPathRegex    = regexp.MustCompile(`^\+\+\+ (?:b/(.+)|(/dev/null))$`)
)

// Parse parses unified diff text (as produced by `git diff` /
// `git show`) into an ordered slice of FileChange.
func Parse(raw []byte) ([]types.FileChange, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, ErrEmptyDiff
	}

	var files []types.FileChange
	var cur *types.FileChange
	var curHunk *types.Hunk

	flushHunk := func() {
		if cur != nil && curHunk != nil {
			cur.Hunks = append(cur.Hunks, *curHunk)
			curHunk = nil
		}
	}
	flushFile := func() {
		flushHunk()
		if cur != nil {
			files = append(files, *cur)
			cur = nil
		}
	}

	scanner := bufio.NewScanner(bytes.NewReader(raw))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	for scanner.Scan() {
		line := scanner.Text()

		if m := diffHeaderRegex.FindStringSubmatch(line); m != nil {
			flushFile()
			cur = &types.FileChange{OldPath: m[1], NewPath: m[2]}
			continue
		}
		if cur == nil {
			// Preamble (e.g. "From <sha> ..." mailbox header) before the
			// first diff --git line; ignore.
			continue
		}

		switch {
		case strings.HasPrefix(line, "Binary files") && binaryFilesRegex.MatchString(line):
			cur.IsBinary = true
			continue
		case oldModeRegex.MatchString(line):
			m := oldModeRegex.FindStringSubmatch(line)
			ensureModeChange(cur).Old = m[1]
			continue
		case newModeRegex.MatchString(line):
			m := newModeRegex.FindStringSubmatch(line)
			ensureModeChange(cur).New = m[1]
			continue
		case renameFromRegex.MatchString(line):
			m := renameFromRegex.FindStringSubmatch(line)
			cur.OldPath = m[1]
			continue
		case renameToRegex.MatchString(line):
			m := renameToRegex.FindStringSubmatch(line)
			cur.NewPath = m[1]
			continue
		case minusPathRegex.MatchString(line):
			m := minusPathRegex.FindStringSubmatch(line)
			if m[2] == "" { // not /dev/null
				cur.OldPath = m[1]
			} else {
				cur.OldPath = ""
			}
			continue
		case plusPathRegex.MatchString(line):
			m := plusPathRegex.FindStringSubmatch(line)
			if m[2] == "" {
				cur.NewPath = m[1]
			} else {
				cur.NewPath = ""
			}
			continue
		case strings.HasPrefix(line, "index "):
			continue
		}

		if m := hunkHeaderRegex.FindStringSubmatch(line); m != nil {
			flushHunk()
			oldStart, _ := strconv.Atoi(m[1])
			oldCount := 1
			if m[2] != "" {
				oldCount, _ = strconv.Atoi(m[2])
			}
			newStart, _ := strconv.Atoi(m[3])
			newCount := 1
			if m[4] != "" {
				newCount, _ = strconv.Atoi(m[4])
			}
			curHunk = &types.Hunk{
				OldStart:      oldStart,
				OldCount:      oldCount,
				NewStart:      newStart,
				NewCount:      newCount,
				HeaderContext: strings.TrimSpace(m[5]),
			}
			continue
		}

		if curHunk == nil {
			// Stray line between file header and first hunk (e.g. mode
			// lines we don't recognize); ignore rather than fail hard.
			continue
		}

		if line == `\ No newline at end of file` {
			continue
		}

		switch {
		case strings.HasPrefix(line, "+"):
			curHunk.Lines = append(curHunk.Lines, types.HunkLine{Kind: types.LineAdded, Text: line[1:]})
		case strings.HasPrefix(line, "-"):
			curHunk.Lines = append(curHunk.Lines, types.HunkLine{Kind: types.LineRemoved, Text: line[1:]})
		case strings.HasPrefix(line, " "):
			curHunk.Lines = append(curHunk.Lines, types.HunkLine{Kind: types.LineContext, Text: line[1:]})
		case line == "":
			curHunk.Lines = append(curHunk.Lines, types.HunkLine{Kind: types.LineContext, Text: ""})
		default:
			return nil, fmt.Errorf("%w: unrecognized hunk line %q", ErrMalformedDiff, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDiff, err)
	}
	flushFile()

	if err := validateCounts(files); err != nil {
		return nil, err
	}
	return files, nil
}

func ensureModeChange(f *types.FileChange) *types.ModeChange {
	if f.ModeChange == nil {
		f.ModeChange = &types.ModeChange{}
	}
	return f.ModeChange
}

func validateCounts(files []types.FileChange) error {
	for _, f := range files {
		for _, h := range f.Hunks {
			oldLines, newLines := 0, 0
			for _, l := range h.Lines {
				switch l.Kind {
				case types.LineRemoved:
					oldLines++
				case types.LineAdded:
					newLines++
				case types.LineContext:
					oldLines++
					newLines++
				}
			}
			if oldLines != h.OldCount || newLines != h.NewCount {
				return fmt.Errorf("%w: hunk at %s:%d has %d/%d old/new lines, header declares %d/%d",
					ErrMalformedDiff, f.Path(), h.OldStart, oldLines, newLines, h.OldCount, h.NewCount)
			}
		}
	}
	return nil
}

// Emit renders FileChange values back into unified diff text. Parse
// followed by Emit is a fixed point for every well-formed diff this
// package accepts (spec §8 round-trip law).
func Emit(files []types.FileChange) []byte {
	var buf bytes.Buffer
	for _, f := range files {
		oldPath := f.OldPath
		if oldPath == "" {
			oldPath = "/dev/null"
		} else {
			oldPath = "a/" + oldPath
		}
		newPath := f.NewPath
		if newPath == "" {
			newPath = "/dev/null"
		} else {
			newPath = "b/" + newPath
		}

		gitA, gitB := f.OldPath, f.NewPath
		if gitA == "" {
			gitA = f.NewPath
		}
		if gitB == "" {
			gitB = f.OldPath
		}
		fmt.Fprintf(&buf, "diff --git a/%s b/%s\n", gitA, gitB)

		if f.IsRename() {
			fmt.Fprintf(&buf, "rename from %s\n", f.OldPath)
			fmt.Fprintf(&buf, "rename to %s\n", f.NewPath)
		}
		if f.ModeChange != nil {
			if f.ModeChange.Old != "" {
				fmt.Fprintf(&buf, "old mode %s\n", f.ModeChange.Old)
			}
			if f.ModeChange.New != "" {
				fmt.Fprintf(&buf, "new mode %s\n", f.ModeChange.New)
			}
		}
		if f.IsBinary {
			fmt.Fprintf(&buf, "Binary files %s and %s differ\n", oldPath, newPath)
			continue
		}
		if len(f.Hunks) == 0 {
			continue
		}

		fmt.Fprintf(&buf, "--- %s\n", oldPath)
		fmt.Fprintf(&buf, "+++ %s\n", newPath)

		for _, h := range f.Hunks {
			header := fmt.Sprintf("@@ -%d,%d +%d,%d @@", h.OldStart, h.OldCount, h.NewStart, h.NewCount)
			if h.HeaderContext != "" {
				header += " " + h.HeaderContext
			}
			buf.WriteString(header)
			buf.WriteByte('\n')
			for _, l := range h.Lines {
				switch l.Kind {
				case types.LineAdded:
					buf.WriteByte('+')
				case types.LineRemoved:
					buf.WriteByte('-')
				default:
					buf.WriteByte(' ')
				}
				buf.WriteString(l.Text)
				buf.WriteByte('\n')
			}
		}
	}
	return buf.Bytes()
}
