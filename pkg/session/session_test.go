package session

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/basinforge/skillforge/pkg/executionlog"
	"github.com/basinforge/skillforge/pkg/ferr"
)

func strPtr(s string) *string { return &s }

func TestBuildSessionCollectsAncestorsAndDescendants(t *testing.T) {
	log := executionlog.NewLog(filepath.Join(t.TempDir(), "exec.log"))
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, log.Append(executionlog.Record{ExecutionID: "root", SkillName: "search", Success: true, StartedAt: base}))
	require.NoError(t, log.Append(executionlog.Record{ExecutionID: "child", ParentExecutionID: strPtr("root"), SkillName: "summarize", Success: true, StartedAt: base.Add(time.Second)}))
	require.NoError(t, log.Append(executionlog.Record{ExecutionID: "unrelated", SkillName: "other", Success: true, StartedAt: base.Add(2 * time.Second)}))

	records, err := BuildSession(log, "child")
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, "root", records[0].ExecutionID)
	require.Equal(t, "child", records[1].ExecutionID)
}

func TestBuildSessionNotFound(t *testing.T) {
	log := executionlog.NewLog(filepath.Join(t.TempDir(), "exec.log"))
	require.NoError(t, log.Append(executionlog.Record{ExecutionID: "root", SkillName: "search", Success: true}))

	_, err := BuildSession(log, "missing")
	var nf *ferr.NotFound
	require.ErrorAs(t, err, &nf)
}

func TestRenderSessionTreeMarksFailureAndTruncatesError(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	longError := ""
	for i := 0; i < 100; i++ {
		longError += "x"
	}
	records := []executionlog.Record{
		{ExecutionID: "root1234567890", SkillName: "search", Success: true, StartedAt: base, FinishedAt: base.Add(250 * time.Millisecond)},
		{ExecutionID: "child1234567890", ParentExecutionID: strPtr("root1234567890"), SkillName: "summarize", Success: false, Error: longError, StartedAt: base.Add(time.Second), FinishedAt: base.Add(2 * time.Second)},
	}
	out := RenderSessionTree(records)
	require.Contains(t, out, "search ✅")
	require.Contains(t, out, "summarize ❌")
	require.Contains(t, out, "...")
	require.NotContains(t, out, longError) // must be truncated
}

func TestRenderSessionTreeEmpty(t *testing.T) {
	require.Equal(t, "Session: (empty)", RenderSessionTree(nil))
}
