package mirror_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"visahunt-engine/internal/domain"
	"visahunt-engine/internal/mirror"
)

func posting(id string) domain.JobPosting {
	return domain.JobPosting{
		ID: id, Title: "Junior IT " + id, SourceID: "indeed", Country: "UK",
		Link: "https://jobs.example.com/" + id, FirstSeen: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

func rows(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	r, err := f.GetRows("Job Tracker")
	require.NoError(t, err)
	return r
}

func TestXLSXAppendsAndUpdatesAcrossSessions(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "job_tracker.xlsx")

	m, err := mirror.OpenXLSX(path, "")
	require.NoError(t, err)
	require.NoError(t, m.Append(ctx, posting("a"), domain.ApplicationRecord{JobID: "a", Status: domain.StatusNotApplied}))
	require.NoError(t, m.Append(ctx, posting("b"), domain.ApplicationRecord{JobID: "b", Status: domain.StatusNotApplied}))
	require.NoError(t, m.Close())

	got := rows(t, path)
	require.Len(t, got, 3)
	assert.Equal(t, mirror.Header, got[0])
	assert.Equal(t, []string{"Junior IT a", "indeed", "UK", "https://jobs.example.com/a", "Not Applied", "a"}, got[1])

	m, err = mirror.OpenXLSX(path, "Job Tracker")
	require.NoError(t, err)
	require.NoError(t, m.Append(ctx, posting("a"), domain.ApplicationRecord{JobID: "a", Status: domain.StatusApplied}))
	require.NoError(t, m.Append(ctx, posting("c"), domain.ApplicationRecord{JobID: "c", Status: domain.StatusFailed}))
	require.NoError(t, m.Close())

	got = rows(t, path)
	require.Len(t, got, 4)
	assert.Equal(t, "Applied", got[1][4])
	assert.Equal(t, "Not Applied", got[2][4])
	assert.Equal(t, "c", got[3][5])
	assert.Equal(t, "Failed", got[3][4])
}

func TestNop(t *testing.T) {
	var m mirror.Mirror = mirror.Nop{}
	assert.NoError(t, m.Append(context.Background(), posting("a"), domain.ApplicationRecord{}))
	assert.NoError(t, m.Close())
}
