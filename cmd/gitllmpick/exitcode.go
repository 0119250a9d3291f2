package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/awslabs/Git-llm-pick/pkg/types"
)

// exitCodeFor maps a Pipeline error to the exit code table of spec.md
// §6, dispatching on error type via errors.As rather than on error
// strings (spec §9 "no stringly-typed error flow").
func exitCodeFor(err error) int {
	fmt.Fprintln(os.Stderr, err)

	var patchRejected *types.PatchRejectedError
	var llmUnavailable *types.LLMUnavailableError
	var llmParseFailed *types.LLMParseFailedError
	var llmRefused *types.LLMRefusedError
	var validationFailed *types.ValidationFailedError
	var rollbackFailed *types.RollbackFailedError

	switch {
	case errors.As(err, &rollbackFailed):
		return 5
	case errors.As(err, &validationFailed):
		return 4
	case errors.As(err, &llmUnavailable), errors.As(err, &llmParseFailed), errors.As(err, &llmRefused):
		return 3
	case errors.As(err, &patchRejected):
		return 2
	}
	return 1
}
