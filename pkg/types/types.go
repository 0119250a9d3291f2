// Package types holds the data model shared by every stage of the pick
// pipeline: commits, file changes, hunks, rejects, extracted sections,
// pipeline options, and outcomes.
package types

import "time"

// LineKind tags one line of a Hunk.
type LineKind int

const (
	LineContext LineKind = iota
	LineAdded
	LineRemoved
)

func (k LineKind) String() string {
	switch k {
	case LineAdded:
		return "added"
	case LineRemoved:
		return "removed"
	default:
		return "context"
	}
}

// HunkLine is one immutable line of a Hunk, per spec §9 ("Hunk
// representation"): a single value type with an explicit tag rather than
// re-parsing a raw "+"/"-"/" " prefix at every stage.
type HunkLine struct {
	Kind LineKind
	Text string // without the leading +/-/space marker
}

// Hunk is a contiguous block of changes within one file of a unified
// diff. Line counts must agree with OldCount/NewCount.
type Hunk struct {
	OldStart      int
	OldCount      int
	NewStart      int
	NewCount      int
	HeaderContext string // text following "@@ ... @@"
	Lines         []HunkLine
}

// AddedLines returns the lines this hunk adds, in order.
func (h Hunk) AddedLines() []string {
	var out []string
	for _, l := range h.Lines {
		if l.Kind == LineAdded {
			out = append(out, l.Text)
		}
	}
	return out
}

// RemovedLines returns the lines this hunk removes, in order.
func (h Hunk) RemovedLines() []string {
	var out []string
	for _, l := range h.Lines {
		if l.Kind == LineRemoved {
			out = append(out, l.Text)
		}
	}
	return out
}

// ModeChange records an optional file-mode change ("100644" -> "100755").
type ModeChange struct {
	Old string
	New string
}

// FileChange is one file's worth of changes within a Commit. Either
// OldPath or NewPath may be empty for an add/delete.
type FileChange struct {
	OldPath    string
	NewPath    string
	IsBinary   bool
	ModeChange *ModeChange
	Hunks      []Hunk
}

// Path returns the most specific known path, preferring NewPath.
func (f FileChange) Path() string {
	if f.NewPath != "" {
		return f.NewPath
	}
	return f.OldPath
}

// IsRename reports whether this change renames a file without
// necessarily altering its content.
func (f FileChange) IsRename() bool {
	return f.OldPath != "" && f.NewPath != "" && f.OldPath != f.NewPath
}

// Commit is the parsed, immutable representation of one VCS commit.
type Commit struct {
	ID           string
	Message      string
	Author       string
	Parents      []string
	FileChanges  []FileChange
	RawUnifiedDiff []byte
}

// Reject is a Hunk the Patch Tool Adapter could not place, with a
// best-guess target region in the destination file. Consumed at most
// once by the Repair Engine.
type Reject struct {
	FilePath      string
	Hunk          Hunk
	TargetLineHint int // best guess at the destination line the hunk belongs near
}

// SectionRevision identifies which revision a Section was extracted
// from.
type SectionRevision int

const (
	RevisionSourceParent SectionRevision = iota
	RevisionCommit
	RevisionDestinationWorkingTree
)

// Section is the smallest enclosing code unit (typically a function)
// around a target line range, used as LLM context.
type Section struct {
	Path      string
	Revision  SectionRevision
	StartLine int
	EndLine   int
	Text      string
}

// Contains reports whether the section spans the given [start, end]
// target line range.
func (s Section) Contains(start, end int) bool {
	return s.StartLine <= start && end <= s.EndLine
}

// PickAttempt enumerates the three fallback stages of the Pipeline.
type PickAttempt string

const (
	AttemptNative     PickAttempt = "native"
	AttemptPatchTool  PickAttempt = "patch_tool"
	AttemptLLMRepair  PickAttempt = "llm_repair"
)

// ValidationTiming enumerates when the Validation Runner fires.
type ValidationTiming string

const (
	ValidateNone      ValidationTiming = "NONE"
	ValidateEachFile  ValidationTiming = "EACH_FILE"
	ValidateAll       ValidationTiming = "ALL"
)

// PathRewrite is one configured old-prefix -> new-prefix mapping.
type PathRewrite struct {
	OldPrefix string `mapstructure:"old" yaml:"old" json:"old"`
	NewPrefix string `mapstructure:"new" yaml:"new" json:"new"`
}

// Options configures one Pipeline.Pick invocation (spec §4.1).
type Options struct {
	LLMEnabled         bool          `mapstructure:"llm_enabled" yaml:"llm_enabled" json:"llm_enabled"`
	LLMModel           string        `mapstructure:"llm_model" yaml:"llm_model" json:"llm_model"`
	LLMRegion          string        `mapstructure:"llm_region" yaml:"llm_region" json:"llm_region"`
	LLMCachePath       string        `mapstructure:"llm_cache_path" yaml:"llm_cache_path" json:"llm_cache_path"`
	PathRewrites       []PathRewrite `mapstructure:"path_rewrites" yaml:"path_rewrites" json:"path_rewrites"`
	ValidationCommand  []string      `mapstructure:"validation_command" yaml:"validation_command" json:"validation_command"`
	RunValidationAfter ValidationTiming `mapstructure:"run_validation_after" yaml:"run_validation_after" json:"run_validation_after"`
	Signoff            bool          `mapstructure:"signoff" yaml:"signoff" json:"signoff"`
	RecordOrigin       bool          `mapstructure:"record_origin" yaml:"record_origin" json:"record_origin"`
	DependencyDepth    int           `mapstructure:"dependency_depth" yaml:"dependency_depth" json:"dependency_depth"`
	FuzzLadder         []int         `mapstructure:"fuzz_ladder" yaml:"fuzz_ladder" json:"fuzz_ladder"`
	VCSTimeout         time.Duration `mapstructure:"vcs_timeout" yaml:"vcs_timeout" json:"vcs_timeout"`
	PatchToolTimeout   time.Duration `mapstructure:"patch_tool_timeout" yaml:"patch_tool_timeout" json:"patch_tool_timeout"`
	LLMTimeout         time.Duration `mapstructure:"llm_timeout" yaml:"llm_timeout" json:"llm_timeout"`
	ValidationTimeout  time.Duration `mapstructure:"validation_timeout" yaml:"validation_timeout" json:"validation_timeout"`
	WorkingTreePath    string        `mapstructure:"working_tree_path" yaml:"working_tree_path" json:"working_tree_path"`
}

// PickOutcome is the result of a successful (or rolled back but
// gracefully reported) Pipeline.Pick call.
type PickOutcome struct {
	CommitID         string        `yaml:"commit_id" json:"commit_id"`
	SucceededVia     PickAttempt   `yaml:"succeeded_via" json:"succeeded_via"`
	Annotations      []string      `yaml:"annotations" json:"annotations"`
	RejectsResolved  int           `yaml:"rejects_resolved" json:"rejects_resolved"`
	ValidationPassed bool          `yaml:"validation_passed" json:"validation_passed"`
	ValidationOutput string        `yaml:"validation_output,omitempty" json:"validation_output,omitempty"`
	FuzzLevel        int           `yaml:"fuzz_level,omitempty" json:"fuzz_level,omitempty"`
	TokensUsed       int           `yaml:"tokens_used,omitempty" json:"tokens_used,omitempty"`
	DependencyPicks  []string      `yaml:"dependency_picks,omitempty" json:"dependency_picks,omitempty"`
	Duration         time.Duration `yaml:"duration" json:"duration"`
}

// CacheEntry is one LLM Cache Entry: a stable prompt fingerprint mapped
// to a verbatim response. Entries are append-only; invalidated only by
// deletion.
type CacheEntry struct {
	Fingerprint  string    `json:"fingerprint"`
	Prompt       string    `json:"prompt,omitempty"`
	Response     string    `json:"response"`
	Model        string    `json:"model"`
	InputTokens  int       `json:"input_tokens"`
	OutputTokens int       `json:"output_tokens"`
	CreatedAt    time.Time `json:"created_at"`
}
