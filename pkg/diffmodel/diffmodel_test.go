package diffmodel_test

import (
	"testing"

	"github.com/google/gofuzz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/awslabs/Git-llm-pick/pkg/diffmodel"
	"github.com/awslabs/Git-llm-pick/pkg/types"
)

const sampleDiff = `diff --git a/foo.c b/foo.c
index 1111111..2222222 100644
--- a/foo.c
+++ b/foo.c
@@ -1,3 +1,4 @@
 int main() {
-    return 0;
+    printf("hi\n");
+    return 0;
 }
`

func TestParseThenEmitRoundTrips(t *testing.T) {
	files, err := diffmodel.Parse([]byte(sampleDiff))
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "foo.c", files[0].Path())
	assert.Len(t, files[0].Hunks, 1)

	emitted := diffmodel.Emit(files)
	reparsed, err := diffmodel.Parse(emitted)
	require.NoError(t, err)
	assert.Equal(t, files, reparsed)
}

func TestParseEmptyDiffFails(t *testing.T) {
	_, err := diffmodel.Parse([]byte("   \n\n"))
	assert.ErrorIs(t, err, diffmodel.ErrEmptyDiff)
}

func TestParseRejectsMismatchedHunkCounts(t *testing.T) {
	bad := `diff --git a/foo.c b/foo.c
--- a/foo.c
+++ b/foo.c
@@ -1,1 +1,1 @@
+extra added line
`
	_, err := diffmodel.Parse([]byte(bad))
	assert.ErrorIs(t, err, diffmodel.ErrMalformedDiff)
}

func TestParseBinaryFile(t *testing.T) {
	bin := `diff --git a/img.png b/img.png
index 1111111..2222222 100644
Binary files a/img.png and b/img.png differ
`
	files, err := diffmodel.Parse([]byte(bin))
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.True(t, files[0].IsBinary)
}

// TestHunkAddedRemovedRoundTrip fuzzes Hunk line construction and checks
// that the lines read back through AddedLines/RemovedLines are exactly
// the added/removed entries of the tagged Lines slice, in order.
func TestHunkAddedRemovedRoundTrip(t *testing.T) {
	f := fuzz.New().NilChance(0).Funcs(func(l *types.HunkLine, c fuzz.Continue) {
		kinds := []types.LineKind{types.LineContext, types.LineAdded, types.LineRemoved}
		l.Kind = kinds[c.Intn(len(kinds))]
		l.Text = "line"
	})

	for i := 0; i < 20; i++ {
		var h types.Hunk
		f.NilChance(0).NumElements(1, 8).Fuzz(&h.Lines)

		var wantAdded, wantRemoved []string
		for _, l := range h.Lines {
			switch l.Kind {
			case types.LineAdded:
				wantAdded = append(wantAdded, l.Text)
			case types.LineRemoved:
				wantRemoved = append(wantRemoved, l.Text)
			}
		}
		assert.Equal(t, wantAdded, h.AddedLines())
		assert.Equal(t, wantRemoved, h.RemovedLines())
	}
}
