// Package patchtool is the Patch Tool Adapter: a fuzzy patch applicator
// built on github.com/sergi/go-diff/diffmatchpatch, already present in
// the teacher's dependency graph as a transitive dependency of go-git.
// Here it becomes the standalone fuzzy-match engine spec §1 and §4.2
// call for, independent of the VCS backend.
package patchtool

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/awslabs/Git-llm-pick/pkg/constants"
	"github.com/awslabs/Git-llm-pick/pkg/types"
	"github.com/awslabs/Git-llm-pick/pkg/util/logger"
)

// AppliedHunk records one hunk that matched successfully, and the file
// it belongs to, so commit can replay exactly the hunks that applied
// and nothing else.
type AppliedHunk struct {
	FilePath string
	Hunk     types.Hunk
}

// Result is the outcome of applying the hunks of every FileChange to
// the working tree at a single fuzz level.
type Result struct {
	FuzzLevel      int
	AppliedHunks   []AppliedHunk
	RejectedHunks  []types.Reject
}

// Apply attempts to apply every hunk of every FileChange to files under
// root, trying each fuzz level in ladder from strictest to loosest and
// stopping at the first level where every hunk across every file
// applies cleanly. If no level fully applies, it still writes whatever
// hunks matched at the loosest level tried, and returns that result
// alongside the remaining Rejects, so the caller can see partial
// progress and the Repair Engine can fix up only what's left.
//
// Per spec §4.2 ("if any hunk is rejected, the applicator still applies
// every hunk it could"), a rejected hunk in one file must never cause
// successfully-matched hunks elsewhere in the same commit to be
// discarded: each fuzz-level attempt mutates a working copy of file
// content in memory, and commit writes only the hunks that actually
// matched, leaving rejected ranges untouched for the LLM stage.
func Apply(root string, files []types.FileChange, ladder []int) (*Result, error) {
	if len(ladder) == 0 {
		ladder = constants.DefaultFuzzLadder
	}

	var last *Result
	for _, fuzz := range ladder {
		res, err := applyAtFuzz(root, files, fuzz)
		if err != nil {
			return nil, err
		}
		last = res
		logger.Info("patch tool attempt", "fuzz", fuzz, "applied", len(res.AppliedHunks), "rejected", len(res.RejectedHunks))
		if len(res.RejectedHunks) == 0 {
			if err := commit(root, files, res, fuzz); err != nil {
				return nil, err
			}
			return res, nil
		}
	}

	if last != nil && len(last.AppliedHunks) > 0 {
		if err := commit(root, files, last, last.FuzzLevel); err != nil {
			return nil, err
		}
	}
	return last, nil
}

func applyAtFuzz(root string, files []types.FileChange, fuzz int) (*Result, error) {
	dmp := diffmatchpatch.New()
	// Widen the match/delete thresholds and the match distance at each
	// fuzz level: this is the bounded, ordered fuzz ladder spec §4.2 and
	// §9 require, expressed through diffmatchpatch's own tunables
	// instead of a hand-rolled context-dropping loop.
	dmp.MatchThreshold = 0.5 + float64(fuzz)*0.1
	dmp.PatchDeleteThreshold = 0.5 + float64(fuzz)*0.1
	dmp.MatchDistance = 1000 * (fuzz + 1)

	res := &Result{FuzzLevel: fuzz}

	for _, fc := range files {
		if fc.IsBinary {
			continue // binary files are never repaired; handled by the Pipeline before this stage
		}
		if len(fc.Hunks) == 0 {
			continue // pure rename/mode change bypasses the patch stage
		}

		path := fc.Path()
		absPath := filepath.Join(root, path)

		var original string
		if fc.OldPath != "" {
			b, err := os.ReadFile(absPath)
			if err != nil && fc.NewPath == "" {
				return nil, fmt.Errorf("patchtool: reading %s: %w", path, err)
			}
			original = string(b)
		}

		for _, h := range fc.Hunks {
			oldText, newText := hunkTexts(h)

			if oldText == "" && fc.OldPath == "" {
				// New file: nothing to match against, the hunk is just
				// the whole added content.
				res.AppliedHunks = append(res.AppliedHunks, AppliedHunk{FilePath: path, Hunk: h})
				continue
			}

			patches := dmp.PatchMake(oldText, newText)
			applied, successes := dmp.PatchApply(patches, original)

			allOK := true
			for _, ok := range successes {
				if !ok {
					allOK = false
					break
				}
			}
			if allOK && strings.Contains(original, oldText) {
				original = applied
				res.AppliedHunks = append(res.AppliedHunks, AppliedHunk{FilePath: path, Hunk: h})
				continue
			}

			// A deletion-only hunk (no added lines) whose removed text
			// is nowhere in the destination can never be resolved by
			// widening fuzz or by the LLM: there is nothing left to
			// locate and remove (spec §8 boundary behavior).
			if removed := removedText(h); isDeletionOnly(h) && removed != "" && !strings.Contains(original, removed) {
				return nil, types.NewPatchUnresolvableError(
					fmt.Sprintf("deletion-only hunk in %s: removed lines are not present in the destination file", path), nil)
			}

			res.RejectedHunks = append(res.RejectedHunks, types.Reject{
				FilePath:       path,
				Hunk:           h,
				TargetLineHint: h.NewStart,
			})
		}
	}
	return res, nil
}

// hunkTexts reconstructs the "before" and "after" snippets a single
// hunk represents, from its tagged lines.
func hunkTexts(h types.Hunk) (before, after string) {
	var b, a strings.Builder
	for _, l := range h.Lines {
		switch l.Kind {
		case types.LineContext:
			b.WriteString(l.Text)
			b.WriteByte('\n')
			a.WriteString(l.Text)
			a.WriteByte('\n')
		case types.LineRemoved:
			b.WriteString(l.Text)
			b.WriteByte('\n')
		case types.LineAdded:
			a.WriteString(l.Text)
			a.WriteByte('\n')
		}
	}
	return b.String(), a.String()
}

// isDeletionOnly reports whether a hunk adds no new lines at all.
func isDeletionOnly(h types.Hunk) bool {
	for _, l := range h.Lines {
		if l.Kind == types.LineAdded {
			return false
		}
	}
	return true
}

// removedText joins just the removed lines of a hunk, ignoring context.
func removedText(h types.Hunk) string {
	var b strings.Builder
	for _, l := range h.Lines {
		if l.Kind == types.LineRemoved {
			b.WriteString(l.Text)
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// commit writes the hunks recorded in res.AppliedHunks to disk, grouped
// by file, at the given fuzz level's thresholds. Rejected hunks are
// left out entirely: a file with some hunks rejected keeps every hunk
// that did match, so neither the Repair Engine's destination context
// nor the final commit silently lose applied work (spec §4.2).
func commit(root string, files []types.FileChange, res *Result, fuzz int) error {
	dmp := diffmatchpatch.New()
	dmp.MatchThreshold = 0.5 + float64(fuzz)*0.1
	dmp.PatchDeleteThreshold = 0.5 + float64(fuzz)*0.1
	dmp.MatchDistance = 1000 * (fuzz + 1)

	byFile := make(map[string][]types.Hunk)
	for _, a := range res.AppliedHunks {
		byFile[a.FilePath] = append(byFile[a.FilePath], a.Hunk)
	}

	for _, fc := range files {
		if fc.IsBinary || len(fc.Hunks) == 0 {
			continue
		}
		path := fc.Path()
		hunks := byFile[path]
		if len(hunks) == 0 {
			continue // every hunk in this file was rejected; leave it untouched
		}
		absPath := filepath.Join(root, path)

		var original string
		if fc.OldPath != "" {
			b, err := os.ReadFile(absPath)
			if err != nil {
				return fmt.Errorf("patchtool: reading %s: %w", path, err)
			}
			original = string(b)
		}

		for _, h := range hunks {
			oldText, newText := hunkTexts(h)
			if oldText == "" && fc.OldPath == "" {
				original = newText
				continue
			}
			patches := dmp.PatchMake(oldText, newText)
			next, _ := dmp.PatchApply(patches, original)
			original = next
		}

		if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
			return fmt.Errorf("patchtool: creating directory for %s: %w", path, err)
		}
		if err := os.WriteFile(absPath, []byte(original), 0o644); err != nil {
			return fmt.Errorf("patchtool: writing %s: %w", path, err)
		}
	}
	return nil
}
