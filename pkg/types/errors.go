package types

import (
	"fmt"

	"github.com/awslabs/Git-llm-pick/pkg/constants"
)

// PickError is implemented by every tagged error kind in spec §7. The
// Pipeline and CLI dispatch on Code, never on an error string, per the
// "no stringly-typed flow" design note (spec §9).
type PickError interface {
	error
	ErrorCode() string
	Unwrap() error
}

type baseError struct {
	code    string
	message string
	cause   error
}

func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

func (e *baseError) ErrorCode() string { return e.code }
func (e *baseError) Unwrap() error     { return e.cause }

// CleanCherryPickFailedError drives the START -> PATCH_TRY transition.
type CleanCherryPickFailedError struct{ *baseError }

func NewCleanCherryPickFailedError(cause error) *CleanCherryPickFailedError {
	return &CleanCherryPickFailedError{&baseError{constants.CodeCleanCherryPickFailed, "native cherry-pick failed", cause}}
}

// PatchRejectedError reports one or more unresolved Rejects driving the
// PATCH_TRY -> LLM_TRY transition.
type PatchRejectedError struct {
	*baseError
	Rejects []Reject
}

func NewPatchRejectedError(rejects []Reject) *PatchRejectedError {
	return &PatchRejectedError{
		baseError: &baseError{constants.CodePatchRejected, fmt.Sprintf("patch tool left %d reject(s)", len(rejects)), nil},
		Rejects:   rejects,
	}
}

// PatchUnresolvableError is a fatal, structural patch-stage failure
// (malformed diff, or a delete-only hunk whose removed lines are
// missing from the destination).
type PatchUnresolvableError struct{ *baseError }

func NewPatchUnresolvableError(reason string, cause error) *PatchUnresolvableError {
	return &PatchUnresolvableError{&baseError{constants.CodePatchUnresolvable, reason, cause}}
}

// BinaryConflictError is raised when native cherry-pick fails on a
// binary file; binary files are never repaired.
type BinaryConflictError struct{ *baseError }

func NewBinaryConflictError(path string, cause error) *BinaryConflictError {
	return &BinaryConflictError{&baseError{constants.CodeBinaryConflict, fmt.Sprintf("binary conflict in %s", path), cause}}
}

// LLMUnavailableError is raised after the LLM Client's retry budget is
// exhausted.
type LLMUnavailableError struct{ *baseError }

func NewLLMUnavailableError(cause error) *LLMUnavailableError {
	return &LLMUnavailableError{&baseError{constants.CodeLLMUnavailable, "LLM transport unavailable", cause}}
}

// LLMParseFailedError is raised when the model's response is missing a
// required heading, has no fenced code block, or has more than one.
type LLMParseFailedError struct{ *baseError }

func NewLLMParseFailedError(reason string) *LLMParseFailedError {
	return &LLMParseFailedError{&baseError{constants.CodeLLMParseFailed, reason, nil}}
}

// LLMRefusedError is raised when the model emits the configured refusal
// phrase.
type LLMRefusedError struct{ *baseError }

func NewLLMRefusedError() *LLMRefusedError {
	return &LLMRefusedError{&baseError{constants.CodeLLMRefused, "model declined to repair hunk", nil}}
}

// ValidationFailedError is raised when the Validation Runner's command
// exits non-zero.
type ValidationFailedError struct {
	*baseError
	Output string
}

func NewValidationFailedError(output string, cause error) *ValidationFailedError {
	return &ValidationFailedError{&baseError{constants.CodeValidationFailed, "validation command failed", cause}, output}
}

// DependencyLimitError is raised when recursive dependency picks would
// exceed DependencyDepth.
type DependencyLimitError struct{ *baseError }

func NewDependencyLimitError(depth int) *DependencyLimitError {
	return &DependencyLimitError{&baseError{constants.CodeDependencyLimit, fmt.Sprintf("dependency pick depth %d exceeded", depth), nil}}
}

// CancelledError is raised on cooperative cancellation.
type CancelledError struct{ *baseError }

func NewCancelledError(cause error) *CancelledError {
	return &CancelledError{&baseError{constants.CodeCancelled, "pick cancelled", cause}}
}

// WorkingTreeDirtyError is raised when a pick refuses to start because
// the working tree has uncommitted changes or is already owned by
// another pick.
type WorkingTreeDirtyError struct{ *baseError }

func NewWorkingTreeDirtyError(path string) *WorkingTreeDirtyError {
	return &WorkingTreeDirtyError{&baseError{constants.CodeWorkingTreeDirty, fmt.Sprintf("working tree %s is not clean", path), nil}}
}

// EmptyDiffError is raised when a commit's diff is empty after path
// rewriting (spec §8 invariant 8): never silently committed.
type EmptyDiffError struct{ *baseError }

func NewEmptyDiffError(commitID string) *EmptyDiffError {
	return &EmptyDiffError{&baseError{constants.CodePatchUnresolvable, fmt.Sprintf("commit %s has an empty diff after path rewriting", commitID), nil}}
}

// RollbackFailedError is raised when a ROLLBACK transition itself fails,
// leaving the working tree in an inconsistent state. This must be rare
// and loud (spec §6 exit code 5).
type RollbackFailedError struct {
	*baseError
	PickErr error
}

func NewRollbackFailedError(pickErr, rollbackErr error) *RollbackFailedError {
	return &RollbackFailedError{
		baseError: &baseError{constants.CodeRollbackFailed, "rollback failed, working tree may be inconsistent", rollbackErr},
		PickErr:   pickErr,
	}
}
