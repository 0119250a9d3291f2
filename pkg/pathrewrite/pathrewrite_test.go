package pathrewrite_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/awslabs/Git-llm-pick/pkg/pathrewrite"
	"github.com/awslabs/Git-llm-pick/pkg/types"
)

func TestIdentityWhenNoRules(t *testing.T) {
	r := pathrewrite.New(nil)
	assert.Equal(t, "drivers/old/foo.c", r.RewritePath("drivers/old/foo.c"))

	diff := []byte("diff --git a/drivers/old/foo.c b/drivers/old/foo.c\n")
	assert.Equal(t, diff, r.RewriteDiffText(diff))
}

func TestRewritesMatchingPrefix(t *testing.T) {
	r := pathrewrite.New([]types.PathRewrite{{OldPrefix: "drivers/old/", NewPrefix: "drivers/new/"}})
	assert.Equal(t, "drivers/new/foo.c", r.RewritePath("drivers/old/foo.c"))
	assert.Equal(t, "unrelated/bar.c", r.RewritePath("unrelated/bar.c"))
}

func TestRewriteFileChanges(t *testing.T) {
	r := pathrewrite.New([]types.PathRewrite{{OldPrefix: "old/", NewPrefix: "new/"}})
	in := []types.FileChange{{OldPath: "old/a.c", NewPath: "old/a.c"}}
	out := r.RewriteFileChanges(in)
	assert.Equal(t, "new/a.c", out[0].OldPath)
	assert.Equal(t, "new/a.c", out[0].NewPath)
	assert.Equal(t, "old/a.c", in[0].OldPath, "input must not be mutated")
}

func TestRewriteDiffTextHeaders(t *testing.T) {
	r := pathrewrite.New([]types.PathRewrite{{OldPrefix: "drivers/old/", NewPrefix: "drivers/new/"}})
	diff := []byte("diff --git a/drivers/old/foo.c b/drivers/old/foo.c\n" +
		"--- a/drivers/old/foo.c\n" +
		"+++ b/drivers/old/foo.c\n")
	out := string(r.RewriteDiffText(diff))
	assert.Contains(t, out, "diff --git a/drivers/new/foo.c b/drivers/new/foo.c")
	assert.Contains(t, out, "--- a/drivers/new/foo.c")
	assert.Contains(t, out, "+++ b/drivers/new/foo.c")
}
