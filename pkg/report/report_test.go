package report_test

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/awslabs/Git-llm-pick/pkg/report"
	"github.com/awslabs/Git-llm-pick/pkg/types"
)

func sampleOutcome() types.PickOutcome {
	return types.PickOutcome{
		CommitID:         "abc123",
		SucceededVia:     types.AttemptPatchTool,
		RejectsResolved:  0,
		ValidationPassed: true,
		FuzzLevel:        1,
		Duration:         2 * time.Second,
	}
}

func TestWriteJSONRoundTrips(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, report.Write(&buf, sampleOutcome(), report.FormatJSON))

	var got types.PickOutcome
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "abc123", got.CommitID)
}

func TestWriteYAMLContainsFields(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, report.Write(&buf, sampleOutcome(), report.FormatYAML))
	assert.Contains(t, buf.String(), "commit_id: abc123")
}

func TestWriteTableContainsCommitID(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, report.Write(&buf, sampleOutcome(), report.FormatTable))
	assert.Contains(t, buf.String(), "abc123")
}

func TestWriteCacheEntriesTable(t *testing.T) {
	entries := []types.CacheEntry{{Fingerprint: "0123456789abcdef", Model: "m", CreatedAt: time.Now()}}
	var buf bytes.Buffer
	require.NoError(t, report.WriteCacheEntries(&buf, entries, report.FormatTable))
	assert.Contains(t, buf.String(), "012345678")
}
