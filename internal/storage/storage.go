// Package storage defines the audit-history model and repository contracts.
// Every terminal fetch outcome is recorded so operators can answer "what did
// we download, when, and how hard was it" after the fact.
package storage

// Fetch outcomes recorded in history.
const (
	OutcomeHit        = "hit"
	OutcomeDownloaded = "downloaded"
	OutcomeFailed     = "failed"
)

// FetchRecord is one terminal fetch outcome.
type FetchRecord struct {
	CacheKey   string
	URL        string
	Outcome    string
	Attempts   int
	ByteSize   int64
	DurationMS int64
	CreatedAt  string // RFC3339
}

// FetchReadRepository serves history queries.
type FetchReadRepository interface {
	RecentFetches(limit int) ([]FetchRecord, error)
}

// FetchWriteRepository records terminal fetch outcomes. Write failures are
// operational noise, not fetch failures; callers log and move on.
type FetchWriteRepository interface {
	RecordFetch(rec FetchRecord) error
}
