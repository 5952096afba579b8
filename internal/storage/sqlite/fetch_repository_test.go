package sqlite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reelpipe/mediacache/internal/storage"
)

func TestFetchRepositoryRoundtrip(t *testing.T) {
	db, err := InitDB(":memory:")
	require.NoError(t, err)
	defer db.Close()

	repo := NewFetchRepository(db)

	require.NoError(t, repo.RecordFetch(storage.FetchRecord{
		CacheKey:   "k1",
		URL:        "https://example.com/a.jpg",
		Outcome:    storage.OutcomeDownloaded,
		Attempts:   1,
		ByteSize:   2048,
		DurationMS: 120,
	}))
	require.NoError(t, repo.RecordFetch(storage.FetchRecord{
		CacheKey: "k1",
		URL:      "https://example.com/a.jpg",
		Outcome:  storage.OutcomeHit,
	}))
	require.NoError(t, repo.RecordFetch(storage.FetchRecord{
		CacheKey: "k2",
		URL:      "https://example.com/b.mp4",
		Outcome:  storage.OutcomeFailed,
		Attempts: 3,
	}))

	records, err := repo.RecentFetches(10)
	require.NoError(t, err)
	require.Len(t, records, 3)

	// newest first
	assert.Equal(t, storage.OutcomeFailed, records[0].Outcome)
	assert.Equal(t, storage.OutcomeHit, records[1].Outcome)
	assert.Equal(t, storage.OutcomeDownloaded, records[2].Outcome)
	assert.EqualValues(t, 2048, records[2].ByteSize)
	assert.NotEmpty(t, records[0].CreatedAt)
}

func TestRecentFetchesLimit(t *testing.T) {
	db, err := InitDB(":memory:")
	require.NoError(t, err)
	defer db.Close()

	repo := NewFetchRepository(db)

	for i := 0; i < 5; i++ {
		require.NoError(t, repo.RecordFetch(storage.FetchRecord{
			CacheKey: "k",
			URL:      "https://example.com/a.jpg",
			Outcome:  storage.OutcomeHit,
		}))
	}

	records, err := repo.RecentFetches(2)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}
