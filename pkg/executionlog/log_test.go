package executionlog

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAppendAndReadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "exec.log")
	log := NewLog(path)

	r1 := Record{ExecutionID: "e1", SkillName: "write_note", Success: true, StartedAt: time.Now(), FinishedAt: time.Now()}
	r2 := Record{ExecutionID: "e2", SkillName: "search", Success: false, Error: "Timeout: deadline exceeded", StartedAt: time.Now(), FinishedAt: time.Now()}
	require.NoError(t, log.Append(r1))
	require.NoError(t, log.Append(r2))

	got, err := log.Read(Filter{})
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "e1", got[0].ExecutionID)
	require.Equal(t, "e2", got[1].ExecutionID)
}

func TestReadFiltersOnlyFailures(t *testing.T) {
	log := NewLog(filepath.Join(t.TempDir(), "exec.log"))
	require.NoError(t, log.Append(Record{ExecutionID: "e1", Success: true}))
	require.NoError(t, log.Append(Record{ExecutionID: "e2", Success: false}))

	got, err := log.Read(Filter{OnlyFailures: true})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "e2", got[0].ExecutionID)
}

func TestReadDropsMalformedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "exec.log")
	log := NewLog(path)
	require.NoError(t, log.Append(Record{ExecutionID: "e1", Success: true}))

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("{not valid json\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	require.NoError(t, log.Append(Record{ExecutionID: "e2", Success: true}))

	got, err := log.Read(Filter{})
	require.NoError(t, err)
	require.Len(t, got, 2)
}

func TestReadRespectsLimitKeepingFileOrder(t *testing.T) {
	log := NewLog(filepath.Join(t.TempDir(), "exec.log"))
	for _, id := range []string{"e1", "e2", "e3"} {
		require.NoError(t, log.Append(Record{ExecutionID: id, Success: true}))
	}
	got, err := log.Read(Filter{Limit: 2})
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "e2", got[0].ExecutionID)
	require.Equal(t, "e3", got[1].ExecutionID)
}

func TestReadOfMissingFileReturnsEmpty(t *testing.T) {
	log := NewLog(filepath.Join(t.TempDir(), "nope.log"))
	got, err := log.Read(Filter{})
	require.NoError(t, err)
	require.Empty(t, got)
}
