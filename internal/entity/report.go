package entity

import "time"

// IngestReport summarizes one bulk submission. DuplicatesSkipped covers
// both duplicates within the submitted batch and URLs already present in
// the store: valid input minus inserted rows.
type IngestReport struct {
	Submitted         int
	Invalid           int
	DuplicatesSkipped int
	Inserted          []*SavedURL
}

// Outcome status of a single URL within a batch scrape.
const (
	OutcomeScraped = "scraped"
	OutcomeFailed  = "failed"
)

// URLOutcome records how one queue row fared in a batch run.
type URLOutcome struct {
	ID        string
	URL       string
	Status    string
	Error     string
	ProductID string
}

// BatchReport is the complete result of one scrape-selected run.
type BatchReport struct {
	Succeeded int
	Failed    int
	Outcomes  []URLOutcome
	StartedAt time.Time
	Duration  time.Duration
}

// QueueGroupCount is one row of the grouped stats query.
type QueueGroupCount struct {
	Category string
	Priority Priority
	Selected bool
	Scraped  bool
	Count    int64
}

// QueueStats holds the derived counters over the queue, recomputed from a
// single consistent read.
type QueueStats struct {
	Total         int64
	SelectedCount int64
	ScrapedCount  int64
	ByCategory    map[string]int64
	ByPriority    map[string]int64
}

// StatsSummary is what the stats endpoint serves: queue counters plus the
// size of the derived product collection.
type StatsSummary struct {
	Queue         QueueStats
	ProductsTotal int64
}
