package types_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/awslabs/Git-llm-pick/pkg/constants"
	"github.com/awslabs/Git-llm-pick/pkg/types"
)

func TestErrorCodesMatchConstants(t *testing.T) {
	cases := []struct {
		err  types.PickError
		code string
	}{
		{types.NewCleanCherryPickFailedError(nil), constants.CodeCleanCherryPickFailed},
		{types.NewPatchRejectedError(nil), constants.CodePatchRejected},
		{types.NewPatchUnresolvableError("reason", nil), constants.CodePatchUnresolvable},
		{types.NewBinaryConflictError("f.bin", nil), constants.CodeBinaryConflict},
		{types.NewLLMUnavailableError(nil), constants.CodeLLMUnavailable},
		{types.NewLLMParseFailedError("reason"), constants.CodeLLMParseFailed},
		{types.NewLLMRefusedError(), constants.CodeLLMRefused},
		{types.NewValidationFailedError("out", nil), constants.CodeValidationFailed},
		{types.NewDependencyLimitError(3), constants.CodeDependencyLimit},
		{types.NewCancelledError(nil), constants.CodeCancelled},
		{types.NewWorkingTreeDirtyError("/tmp/x"), constants.CodeWorkingTreeDirty},
		{types.NewRollbackFailedError(nil, nil), constants.CodeRollbackFailed},
	}
	for _, c := range cases {
		assert.Equal(t, c.code, c.err.ErrorCode())
	}
}

func TestUnwrapExposesCause(t *testing.T) {
	cause := errors.New("boom")
	err := types.NewLLMUnavailableError(cause)
	assert.ErrorIs(t, err, cause)
}

func TestErrorsAsDispatchesByConcreteType(t *testing.T) {
	var err error = types.NewPatchRejectedError([]types.Reject{{FilePath: "a.c"}})
	var rejected *types.PatchRejectedError
	require := assert.New(t)
	require.True(errors.As(err, &rejected))
	require.Len(rejected.Rejects, 1)
}
