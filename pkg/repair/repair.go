// Package repair implements the Repair Engine: it turns one Reject into
// a correct edit of the destination file by composing a prompt from the
// rejected hunk and its source/destination context, querying the LLM
// Client, parsing the model's three-section markdown response, and
// writing the chosen replacement section back to disk (spec §4.3).
package repair

import (
	"bytes"
	"context"
	"crypto/rand"
	"embed"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"text/template"

	"github.com/awslabs/Git-llm-pick/pkg/constants"
	"github.com/awslabs/Git-llm-pick/pkg/contextx"
	"github.com/awslabs/Git-llm-pick/pkg/types"
)

//go:embed prompt.tmpl
var templateFS embed.FS

var promptTemplate = template.Must(template.ParseFS(templateFS, "prompt.tmpl"))

// SourceLookup resolves the content of a file at the commit's source
// parent revision and at the commit itself, so the Repair Engine can
// extract before/after Sections without depending on the VCS Adapter
// directly (it is supplied the bytes it needs by the Pipeline, which
// does own a VCS Adapter).
type SourceLookup interface {
	ParentContent(path string) (string, error)
	CommitContent(path string) (string, error)
}

// Querier is the narrow LLM Client surface the Repair Engine needs.
type Querier interface {
	Query(ctx context.Context, prompt string) (string, error)
}

// Engine is the Repair Engine of spec §4.3.
type Engine struct {
	llm           Querier
	source        SourceLookup
	destRoot      string
	contextWindow int

	unresolved     []string
	unresolvedSeen map[string]bool
}

// New builds a Repair Engine that reads/writes destination files rooted
// at destRoot.
func New(llm Querier, source SourceLookup, destRoot string) *Engine {
	return &Engine{llm: llm, source: source, destRoot: destRoot, contextWindow: constants.DefaultContextWindow}
}

type promptSlots struct {
	BoundaryMarker    string
	CommitMessage     string
	SourceBefore      string
	SourceAfter       string
	DestinationBefore string
	RejectHunk        string
}

// Repair resolves one Reject against the destination working tree.
// Per spec §4.3, a parser failure, empty snippet, refusal phrase, or
// LLM transport error leaves the Reject unresolved; the caller (the
// Pipeline's LLM stage) treats that as failing the whole pick.
func (e *Engine) Repair(ctx context.Context, reject types.Reject, commitMessage string) error {
	destPath := filepath.Join(e.destRoot, reject.FilePath)
	destBytes, err := os.ReadFile(destPath)
	if err != nil {
		return fmt.Errorf("repair: reading destination file %s: %w", reject.FilePath, err)
	}
	destContent := string(destBytes)

	for _, sym := range candidateSymbols(reject.Hunk.AddedLines()) {
		if !strings.Contains(destContent, sym) {
			e.addUnresolved(sym)
		}
	}

	destSection := contextx.Extract(reject.FilePath, types.RevisionDestinationWorkingTree, destContent, reject.Hunk.NewStart, reject.Hunk.NewStart+reject.Hunk.NewCount)

	var sourceBefore, sourceAfter types.Section
	if e.source != nil {
		if parentContent, err := e.source.ParentContent(reject.FilePath); err == nil {
			sourceBefore = contextx.Extract(reject.FilePath, types.RevisionSourceParent, parentContent, reject.Hunk.OldStart, reject.Hunk.OldStart+reject.Hunk.OldCount)
		}
		if commitContent, err := e.source.CommitContent(reject.FilePath); err == nil {
			sourceAfter = contextx.Extract(reject.FilePath, types.RevisionCommit, commitContent, reject.Hunk.NewStart, reject.Hunk.NewStart+reject.Hunk.NewCount)
		}
	}

	marker, err := boundaryMarker()
	if err != nil {
		return fmt.Errorf("repair: generating boundary marker: %w", err)
	}

	prompt, err := renderPrompt(promptSlots{
		BoundaryMarker:    marker,
		CommitMessage:     commitMessage,
		SourceBefore:      sourceBefore.Text,
		SourceAfter:       sourceAfter.Text,
		DestinationBefore: destSection.Text,
		RejectHunk:        renderHunk(reject.Hunk),
	})
	if err != nil {
		return fmt.Errorf("repair: rendering prompt: %w", err)
	}

	response, err := e.llm.Query(ctx, prompt)
	if err != nil {
		return types.NewLLMUnavailableError(err)
	}

	snippet, err := parseResponse(response, marker)
	if err != nil {
		return err
	}

	newContent := replaceRange(destContent, destSection.StartLine, destSection.EndLine, snippet)
	if err := os.WriteFile(destPath, []byte(newContent), 0o644); err != nil {
		return fmt.Errorf("repair: writing repaired file %s: %w", reject.FilePath, err)
	}

	// Verify the edit by re-reading the file and confirming the section
	// boundaries still parse (spec §4.3 step 6).
	verifyBytes, err := os.ReadFile(destPath)
	if err != nil {
		return fmt.Errorf("repair: re-reading repaired file %s: %w", reject.FilePath, err)
	}
	reExtracted := contextx.Extract(reject.FilePath, types.RevisionDestinationWorkingTree, string(verifyBytes), destSection.StartLine, destSection.StartLine)
	if reExtracted.Text == "" {
		return types.NewLLMParseFailedError("repaired section failed to re-parse")
	}
	return nil
}

// addUnresolved records sym, deduplicated, as a symbol the rejected
// hunk references that this destination tree does not yet define.
func (e *Engine) addUnresolved(sym string) {
	if e.unresolvedSeen == nil {
		e.unresolvedSeen = make(map[string]bool)
	}
	if e.unresolvedSeen[sym] {
		return
	}
	e.unresolvedSeen[sym] = true
	e.unresolved = append(e.unresolved, sym)
}

// Unresolved returns the distinct symbols added lines referenced across
// every Repair call on this Engine that could not be found anywhere in
// their destination file before the repair. The Pipeline searches the
// source commit's ancestry for commits that introduce them, as
// candidate dependency picks (spec §4.1 transition 4).
func (e *Engine) Unresolved() []string {
	return e.unresolved
}

var identifierRegex = regexp.MustCompile(`\b[A-Za-z_][A-Za-z0-9_]*\b`)

// candidateSymbols extracts identifier-like tokens from added lines
// that look like a specific symbol name rather than ordinary prose: it
// keeps CamelCase or underscore_separated tokens of at least four
// characters and drops everything else.
func candidateSymbols(lines []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, line := range lines {
		for _, tok := range identifierRegex.FindAllString(line, -1) {
			if len(tok) < 4 || seen[tok] || !looksLikeSymbol(tok) {
				continue
			}
			seen[tok] = true
			out = append(out, tok)
		}
	}
	return out
}

func looksLikeSymbol(tok string) bool {
	if strings.Contains(tok, "_") {
		return true
	}
	for _, r := range tok {
		if r >= 'A' && r <= 'Z' {
			return true
		}
	}
	return false
}

func renderPrompt(slots promptSlots) (string, error) {
	var buf bytes.Buffer
	if err := promptTemplate.Execute(&buf, slots); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func renderHunk(h types.Hunk) string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "@@ -%d,%d +%d,%d @@ %s\n", h.OldStart, h.OldCount, h.NewStart, h.NewCount, h.HeaderContext)
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
	return buf.String()
}

func boundaryMarker() (string, error) {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return "BOUNDARY-" + hex.EncodeToString(b), nil
}

var (
	headingRegex    = regexp.MustCompile(`(?m)^##\s+(.+?)\s*$`)
	fencedCodeRegex = regexp.MustCompile("(?s)```[a-zA-Z0-9_+-]*\\n(.*?)\\n```")
)

// parseResponse extracts the fenced code block under the "ADAPTED CODE
// SNIPPET" heading, enforcing every constraint of spec §4.3 step 5.
func parseResponse(response, marker string) (string, error) {
	trimmed := strings.TrimSpace(response)
	if trimmed == constants.RefusalPhrase || strings.Contains(trimmed, constants.RefusalPhrase) {
		return "", types.NewLLMRefusedError()
	}
	if strings.Contains(response, marker) {
		return "", types.NewLLMParseFailedError("response echoed the boundary marker")
	}

	sections := splitSections(response)
	snippetSection, ok := sections[constants.RequiredHeadingSnippet]
	if !ok {
		return "", types.NewLLMParseFailedError("response missing required heading: " + constants.RequiredHeadingSnippet)
	}
	if _, ok := sections[constants.RequiredHeadingExplanation]; !ok {
		return "", types.NewLLMParseFailedError("response missing required heading: " + constants.RequiredHeadingExplanation)
	}
	if _, ok := sections[constants.RequiredHeadingSummary]; !ok {
		return "", types.NewLLMParseFailedError("response missing required heading: " + constants.RequiredHeadingSummary)
	}

	blocks := fencedCodeRegex.FindAllStringSubmatch(snippetSection, -1)
	if len(blocks) == 0 {
		return "", types.NewLLMParseFailedError("adapted code snippet section has no fenced code block")
	}
	if len(blocks) > 1 {
		return "", types.NewLLMParseFailedError("adapted code snippet section has multiple fenced code blocks")
	}
	snippet := strings.TrimRight(blocks[0][1], "\n")
	if strings.TrimSpace(snippet) == "" {
		return "", types.NewLLMParseFailedError("adapted code snippet is empty")
	}
	return snippet, nil
}

// splitSections partitions response by "## HEADING" markdown headings,
// returning a map from heading text to the section body that follows
// it, up to the next heading.
func splitSections(response string) map[string]string {
	locs := headingRegex.FindAllStringSubmatchIndex(response, -1)
	out := make(map[string]string, len(locs))
	for i, loc := range locs {
		heading := response[loc[2]:loc[3]]
		bodyStart := loc[1]
		bodyEnd := len(response)
		if i+1 < len(locs) {
			bodyEnd = locs[i+1][0]
		}
		out[heading] = response[bodyStart:bodyEnd]
	}
	return out
}

// replaceRange replaces the 1-based, inclusive [startLine, endLine]
// range of content with replacement text.
func replaceRange(content string, startLine, endLine int, replacement string) string {
	lines := strings.Split(content, "\n")
	if startLine < 1 {
		startLine = 1
	}
	if endLine > len(lines) {
		endLine = len(lines)
	}
	before := lines[:startLine-1]
	after := lines[endLine:]
	replacementLines := strings.Split(replacement, "\n")

	out := make([]string, 0, len(before)+len(replacementLines)+len(after))
	out = append(out, before...)
	out = append(out, replacementLines...)
	out = append(out, after...)
	return strings.Join(out, "\n")
}
