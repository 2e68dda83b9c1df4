package entity

import "time"

// Priority of a queue entry, set at submission time.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// ValidPriority reports whether p is one of the known priority levels.
func ValidPriority(p Priority) bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// SavedURL mirrors the `saved_urls` PostgreSQL table schema.
// NormalizedURL is the deduplication key: unique across all live rows.
// A scraped row is never selectable; Selected is forced false when the
// row is marked scraped.
type SavedURL struct {
	ID              string
	RawURL          string
	NormalizedURL   string
	Category        string
	Priority        Priority
	Notes           string
	Selected        bool
	Scraped         bool
	EstimatedPrice  *float64
	LinkedProductID *string
	CreatedAt       time.Time
	ScrapedAt       *time.Time
}
