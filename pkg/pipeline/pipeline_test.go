package pipeline_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/awslabs/Git-llm-pick/pkg/pipeline"
	"github.com/awslabs/Git-llm-pick/pkg/types"
	"github.com/awslabs/Git-llm-pick/pkg/vcsadapter"
)

// gitScript dispatches on the subcommand argument list (the portion
// after "-C <repoRoot>", joined with a space) via longest-prefix match,
// letting the Pipeline be driven end-to-end without a real git binary
// or working tree.
func gitScript(t *testing.T, responses map[string]string) vcsadapter.SysCalls {
	t.Helper()
	return vcsadapter.SysCalls{
		ExecCommand: func(ctx context.Context, name string, arg ...string) ([]byte, error) {
			require.GreaterOrEqual(t, len(arg), 2)
			key := strings.Join(arg[2:], " ")
			var best, bestOut string
			for prefix, out := range responses {
				if strings.HasPrefix(key, prefix) && len(prefix) > len(best) {
					best, bestOut = prefix, out
				}
			}
			return []byte(bestOut), nil
		},
		ReadFile: os.ReadFile,
		Stat:     os.Stat,
	}
}

const nativeDiff = `diff --git a/foo.c b/foo.c
--- a/foo.c
+++ b/foo.c
@@ -1,3 +1,4 @@
 int main() {
-    return 0;
+    printf("hi\n");
+    return 0;
 }
`

func TestPickSucceedsViaNativeCherryPick(t *testing.T) {
	repo := t.TempDir()
	metadata := strings.Join([]string{"deadbeef", "Jane Doe <jane@example.com>", "", "fix the bug\n"}, "\x00") + "\x00"

	sys := gitScript(t, map[string]string{
		"status --porcelain": "",
		"show -s":            metadata,
		"show --format=":     nativeDiff,
		"cherry-pick":        "",
		"rev-parse HEAD":     "deadbeef\n",
	})
	vcs := vcsadapter.NewWithSysCalls(repo, sys)

	opts := types.Options{WorkingTreePath: repo, RunValidationAfter: types.ValidateNone}
	p := pipeline.New(vcs, nil, opts)

	outcome, err := p.Pick(context.Background(), "deadbeef")
	require.NoError(t, err)
	assert.Equal(t, types.AttemptNative, outcome.SucceededVia)
	assert.Contains(t, outcome.Annotations[0], "native cherry-pick")
}

func TestPickRefusesWhenWorkingTreeDirty(t *testing.T) {
	repo := t.TempDir()
	sys := gitScript(t, map[string]string{"status --porcelain": " M foo.c\n"})
	vcs := vcsadapter.NewWithSysCalls(repo, sys)

	opts := types.Options{WorkingTreePath: repo}
	p := pipeline.New(vcs, nil, opts)

	_, err := p.Pick(context.Background(), "deadbeef")
	var dirty *types.WorkingTreeDirtyError
	require.ErrorAs(t, err, &dirty)
}

func TestPickRefusesConcurrentPicksOnSameTree(t *testing.T) {
	repo := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(repo, ".git-llm-pick.lock"), nil, 0o644))

	sys := gitScript(t, map[string]string{"status --porcelain": ""})
	vcs := vcsadapter.NewWithSysCalls(repo, sys)
	opts := types.Options{WorkingTreePath: repo}
	p := pipeline.New(vcs, nil, opts)

	_, err := p.Pick(context.Background(), "deadbeef")
	var dirty *types.WorkingTreeDirtyError
	require.ErrorAs(t, err, &dirty)
}
