package repair

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/awslabs/Git-llm-pick/pkg/constants"
	"github.com/awslabs/Git-llm-pick/pkg/types"
)

const wellFormedResponse = `## EXPLANATION
A nearby helper was renamed.

## CHANGE SUMMARY
- call the renamed helper

## ADAPTED CODE SNIPPET
` + "```go" + `
func main() {
	renamedHelper()
}
` + "```" + `
`

func TestParseResponseAcceptsWellFormed(t *testing.T) {
	snippet, err := parseResponse(wellFormedResponse, "BOUNDARY-deadbeef")
	require.NoError(t, err)
	assert.Contains(t, snippet, "renamedHelper()")
}

func TestParseResponseRejectsRefusal(t *testing.T) {
	_, err := parseResponse(constants.RefusalPhrase, "BOUNDARY-deadbeef")
	var refused *types.LLMRefusedError
	assert.ErrorAs(t, err, &refused)
}

func TestParseResponseRejectsEchoedMarker(t *testing.T) {
	_, err := parseResponse(wellFormedResponse+"\nBOUNDARY-deadbeef", "BOUNDARY-deadbeef")
	var parseFailed *types.LLMParseFailedError
	assert.ErrorAs(t, err, &parseFailed)
}

func TestParseResponseRejectsMissingHeading(t *testing.T) {
	missing := `## EXPLANATION
text

## ADAPTED CODE SNIPPET
` + "```go\nfoo()\n```"
	_, err := parseResponse(missing, "marker")
	var parseFailed *types.LLMParseFailedError
	assert.ErrorAs(t, err, &parseFailed)
}

func TestParseResponseRejectsMultipleFencedBlocks(t *testing.T) {
	multi := `## EXPLANATION
e

## CHANGE SUMMARY
s

## ADAPTED CODE SNIPPET
` + "```go\nfoo()\n```\n```go\nbar()\n```"
	_, err := parseResponse(multi, "marker")
	var parseFailed *types.LLMParseFailedError
	assert.ErrorAs(t, err, &parseFailed)
}

func TestReplaceRangeReplacesInclusiveLines(t *testing.T) {
	content := "a\nb\nc\nd\ne"
	out := replaceRange(content, 2, 4, "X\nY")
	assert.Equal(t, "a\nX\nY\ne", out)
}

type fakeQuerier struct {
	response string
	err      error
}

func (f *fakeQuerier) Query(ctx context.Context, prompt string) (string, error) {
	return f.response, f.err
}

type fakeSourceLookup struct{}

func (fakeSourceLookup) ParentContent(path string) (string, error) { return "func main() {\n\thelper()\n}\n", nil }
func (fakeSourceLookup) CommitContent(path string) (string, error) { return "func main() {\n\trenamedHelper()\n}\n", nil }

func TestRepairWritesSnippetBackToDestination(t *testing.T) {
	dir := t.TempDir()
	destPath := filepath.Join(dir, "main.go")
	require.NoError(t, os.WriteFile(destPath, []byte("func main() {\n\thelper()\n}\n"), 0o644))

	engine := New(&fakeQuerier{response: wellFormedResponse}, fakeSourceLookup{}, dir)
	reject := types.Reject{
		FilePath: "main.go",
		Hunk: types.Hunk{
			OldStart: 1, OldCount: 3,
			NewStart: 1, NewCount: 3,
			Lines: []types.HunkLine{{Kind: types.LineContext, Text: "func main() {"}},
		},
	}
	err := engine.Repair(context.Background(), reject, "rename helper")
	require.NoError(t, err)

	out, err := os.ReadFile(destPath)
	require.NoError(t, err)
	assert.Contains(t, string(out), "renamedHelper()")
}

func TestRepairRecordsUnresolvedSymbolsFromAddedLines(t *testing.T) {
	dir := t.TempDir()
	destPath := filepath.Join(dir, "main.go")
	require.NoError(t, os.WriteFile(destPath, []byte("func main() {\n\thelper()\n}\n"), 0o644))

	engine := New(&fakeQuerier{response: wellFormedResponse}, fakeSourceLookup{}, dir)
	reject := types.Reject{
		FilePath: "main.go",
		Hunk: types.Hunk{
			OldStart: 1, OldCount: 3,
			NewStart: 1, NewCount: 3,
			Lines: []types.HunkLine{
				{Kind: types.LineContext, Text: "func main() {"},
				{Kind: types.LineRemoved, Text: "\thelper()"},
				{Kind: types.LineAdded, Text: "\tNewHelperFunction()"},
			},
		},
	}
	require.NoError(t, engine.Repair(context.Background(), reject, "rename helper"))

	assert.Contains(t, engine.Unresolved(), "NewHelperFunction")
}

func TestRepairSurfacesRefusalAsLLMRefusedError(t *testing.T) {
	dir := t.TempDir()
	destPath := filepath.Join(dir, "main.go")
	require.NoError(t, os.WriteFile(destPath, []byte("func main() {}\n"), 0o644))

	engine := New(&fakeQuerier{response: constants.RefusalPhrase}, fakeSourceLookup{}, dir)
	reject := types.Reject{FilePath: "main.go", Hunk: types.Hunk{NewStart: 1, NewCount: 1}}
	err := engine.Repair(context.Background(), reject, "msg")

	var refused *types.LLMRefusedError
	assert.ErrorAs(t, err, &refused)
}
