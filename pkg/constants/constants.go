// Package constants holds fixed strings and bounds shared across the
// pick pipeline: commit-message annotation text, the LLM refusal phrase,
// error codes, default timeouts, and lock-file names.
package constants

import "time"

const (
	// AnnotationAppliedWith prefixes the "Applied with: <tool>" commit
	// trailer described in spec §6.
	AnnotationAppliedWith = "Applied with:"

	// AnnotationDependencyPrefix prefixes a dependency-pick trailer.
	AnnotationDependencyPrefix = "Cherry-picked as dependency for"

	// AnnotationOriginPrefix is git's own "-x" style trailer text.
	AnnotationOriginPrefix = "(cherry picked from commit"

	// AnnotationSignedOffBy is the standard git sign-off trailer prefix.
	AnnotationSignedOffBy = "Signed-off-by:"

	// RefusalPhrase is the literal string the repair prompt instructs
	// the model to emit when it declines to produce a fix.
	RefusalPhrase = "I cannot safely repair this hunk"

	// RequiredHeadingExplanation, RequiredHeadingSummary and
	// RequiredHeadingSnippet are the three mandatory markdown headings
	// of the repair response, in order.
	RequiredHeadingExplanation = "EXPLANATION"
	RequiredHeadingSummary     = "CHANGE SUMMARY"
	RequiredHeadingSnippet     = "ADAPTED CODE SNIPPET"
)

// Error codes, one per failure kind in spec §7. These back the CLI exit
// code table and are attached to every pkg/types error value.
const (
	CodeCleanCherryPickFailed = "CLEAN_CHERRY_PICK_FAILED"
	CodePatchRejected         = "PATCH_REJECTED"
	CodePatchUnresolvable     = "PATCH_UNRESOLVABLE"
	CodeLLMUnavailable        = "LLM_UNAVAILABLE"
	CodeLLMParseFailed        = "LLM_PARSE_FAILED"
	CodeLLMRefused            = "LLM_REFUSED"
	CodeValidationFailed      = "VALIDATION_FAILED"
	CodeDependencyLimit       = "DEPENDENCY_LIMIT"
	CodeCancelled             = "CANCELLED"
	CodeWorkingTreeDirty      = "WORKING_TREE_DIRTY"
	CodeBinaryConflict        = "BINARY_CONFLICT"
	CodeRollbackFailed        = "ROLLBACK_FAILED"
)

// DefaultFuzzLadder is the bounded, ordered sequence of fuzz levels the
// Patch Tool Adapter tries from strictest to loosest. It is a default,
// not a hard-wired value: types.Options.FuzzLadder may override it.
var DefaultFuzzLadder = []int{0, 1, 2, 3}

// Default per-operation timeouts (spec §5 "suspension points").
const (
	DefaultVCSTimeout        = 2 * time.Minute
	DefaultPatchToolTimeout  = 30 * time.Second
	DefaultLLMTimeout        = 3 * time.Minute
	DefaultValidationTimeout = 10 * time.Minute
)

// DefaultContextWindow is the number of lines on each side of a target
// range used by the Context Extractor's fixed-width fallback.
const DefaultContextWindow = 20

// CacheLockFileName names the advisory lock file gofrs/flock coordinates
// in the LLM cache directory; WorkingTreeLockFileName names the file the
// Pipeline creates exclusively (O_CREATE|O_EXCL) to own a working tree
// (spec §3, §5).
const (
	CacheLockFileName       = ".cache.lock"
	WorkingTreeLockFileName = ".git-llm-pick.lock"
)
