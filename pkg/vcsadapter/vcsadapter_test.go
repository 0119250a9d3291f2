package vcsadapter_test

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/awslabs/Git-llm-pick/pkg/vcsadapter"
)

type call struct {
	args []string
}

func fakeSysCalls(outputs map[string]string, errs map[string]error) vcsadapter.SysCalls {
	var calls []call
	return vcsadapter.SysCalls{
		ExecCommand: func(ctx context.Context, name string, arg ...string) ([]byte, error) {
			calls = append(calls, call{args: arg})
			key := name
			for _, a := range arg {
				key += " " + a
			}
			for prefix, out := range outputs {
				if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
					return []byte(out), errs[prefix]
				}
			}
			return nil, nil
		},
		ReadFile: os.ReadFile,
		Stat:     os.Stat,
	}
}

func TestCherryPickSuccess(t *testing.T) {
	sys := fakeSysCalls(map[string]string{"git -C /repo cherry-pick": ""}, nil)
	a := vcsadapter.NewWithSysCalls("/repo", sys)
	err := a.CherryPick(context.Background(), "abc123", 0)
	assert.NoError(t, err)
}

func TestCherryPickNoopDetected(t *testing.T) {
	sys := fakeSysCalls(
		map[string]string{"git -C /repo cherry-pick": "The previous cherry-pick is now empty"},
		map[string]error{"git -C /repo cherry-pick": assertErr{}},
	)
	a := vcsadapter.NewWithSysCalls("/repo", sys)
	err := a.CherryPick(context.Background(), "abc123", 0)
	assert.ErrorIs(t, err, vcsadapter.ErrNoopCherryPick)
}

func TestIsCleanParsesPorcelainOutput(t *testing.T) {
	sys := fakeSysCalls(map[string]string{"git -C /repo status": ""}, nil)
	a := vcsadapter.NewWithSysCalls("/repo", sys)
	clean, err := a.IsClean(context.Background())
	require.NoError(t, err)
	assert.True(t, clean)
}

func TestIsCleanDetectsDirtyTree(t *testing.T) {
	sys := fakeSysCalls(map[string]string{"git -C /repo status": " M foo.c\n"}, nil)
	a := vcsadapter.NewWithSysCalls("/repo", sys)
	clean, err := a.IsClean(context.Background())
	require.NoError(t, err)
	assert.False(t, clean)
}

type assertErr struct{}

func (assertErr) Error() string { return "exit status 1" }
