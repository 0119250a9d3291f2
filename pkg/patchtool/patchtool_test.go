package patchtool_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/awslabs/Git-llm-pick/pkg/diffmodel"
	"github.com/awslabs/Git-llm-pick/pkg/patchtool"
)

const diffText = `diff --git a/foo.c b/foo.c
--- a/foo.c
+++ b/foo.c
@@ -1,3 +1,4 @@
 int main() {
-    return 0;
+    printf("hi\n");
+    return 0;
 }
`

func TestApplyCleanHunkAtFuzzZero(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "foo.c"), []byte("int main() {\n    return 0;\n}\n"), 0o644))

	files, err := diffmodel.Parse([]byte(diffText))
	require.NoError(t, err)

	result, err := patchtool.Apply(dir, files, []int{0, 1, 2})
	require.NoError(t, err)
	assert.Empty(t, result.RejectedHunks)
	assert.Equal(t, 0, result.FuzzLevel)

	out, err := os.ReadFile(filepath.Join(dir, "foo.c"))
	require.NoError(t, err)
	assert.Contains(t, string(out), `printf("hi\n")`)
}

func TestApplyRejectsHunkAgainstUnrelatedFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "foo.c"), []byte("totally unrelated content\n"), 0o644))

	files, err := diffmodel.Parse([]byte(diffText))
	require.NoError(t, err)

	result, err := patchtool.Apply(dir, files, []int{0})
	require.NoError(t, err)
	assert.NotEmpty(t, result.RejectedHunks)
	assert.Equal(t, "foo.c", result.RejectedHunks[0].FilePath)
}
