package validate_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/awslabs/Git-llm-pick/pkg/types"
	"github.com/awslabs/Git-llm-pick/pkg/validate"
)

func TestRunSucceedsAndCapturesOutput(t *testing.T) {
	r := validate.New(t.TempDir(), time.Minute)
	out, err := r.Run(context.Background(), []string{"echo", "hello"}, []string{"a.go"})
	require.NoError(t, err)
	assert.Contains(t, out, "hello")
}

func TestRunReportsValidationFailedError(t *testing.T) {
	r := validate.New(t.TempDir(), time.Minute)
	_, err := r.Run(context.Background(), []string{"false"}, nil)
	var validationFailed *types.ValidationFailedError
	require.ErrorAs(t, err, &validationFailed)
}

func TestRunEmptyCommandIsNoop(t *testing.T) {
	r := validate.New(t.TempDir(), time.Minute)
	out, err := r.Run(context.Background(), nil, []string{"a.go"})
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestShouldRunAfterHelpers(t *testing.T) {
	assert.True(t, validate.ShouldRunAfterFile(types.ValidateEachFile))
	assert.False(t, validate.ShouldRunAfterFile(types.ValidateAll))
	assert.True(t, validate.ShouldRunAfterAll(types.ValidateAll))
	assert.False(t, validate.ShouldRunAfterAll(types.ValidateNone))
}
