package handler

import (
	"time"

	"github.com/user/scraper-service/internal/entity"
)

// Request bodies.

type bulkSubmitRequest struct {
	URLs     []string `json:"urls"`
	Category string   `json:"category"`
	Priority string   `json:"priority"`
	Notes    string   `json:"notes"`
}

type selectionRequest struct {
	Selected *bool `json:"selected"`
}

// Response bodies.

type savedURLResponse struct {
	ID              string     `json:"id"`
	URL             string     `json:"url"`
	NormalizedURL   string     `json:"normalized_url"`
	Category        string     `json:"category"`
	Priority        string     `json:"priority"`
	Notes           string     `json:"notes,omitempty"`
	Selected        bool       `json:"selected"`
	Scraped         bool       `json:"scraped"`
	EstimatedPrice  *float64   `json:"estimated_price,omitempty"`
	LinkedProductID *string    `json:"linked_product_id,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	ScrapedAt       *time.Time `json:"scraped_at,omitempty"`
}

type bulkSubmitResponse struct {
	Inserted          []savedURLResponse `json:"inserted"`
	Submitted         int                `json:"submitted"`
	Invalid           int                `json:"invalid"`
	DuplicatesSkipped int                `json:"duplicates_skipped"`
}

type bulkSelectionResponse struct {
	Updated int64 `json:"updated"`
}

type urlOutcomeResponse struct {
	ID        string `json:"id"`
	URL       string `json:"url"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	ProductID string `json:"product_id,omitempty"`
}

type batchReportResponse struct {
	Succeeded  int                  `json:"succeeded"`
	Failed     int                  `json:"failed"`
	Outcomes   []urlOutcomeResponse `json:"per_url_outcome"`
	StartedAt  time.Time            `json:"started_at"`
	DurationMS int64                `json:"duration_ms"`
}

type productResponse struct {
	ID            string    `json:"id"`
	SourceURL     string    `json:"source_url"`
	Name          string    `json:"name"`
	Price         float64   `json:"price"`
	OriginalPrice *float64  `json:"original_price,omitempty"`
	Description   string    `json:"description,omitempty"`
	Category      string    `json:"category"`
	Source        string    `json:"source"`
	Rating        *float64  `json:"rating,omitempty"`
	Tags          []string  `json:"tags"`
	ImageURL      string    `json:"image_url,omitempty"`
	AffiliateURL  string    `json:"affiliate_url"`
	CreatedAt     time.Time `json:"created_at"`
}

type statsResponse struct {
	Total         int64            `json:"total"`
	SelectedCount int64            `json:"selected_count"`
	ScrapedCount  int64            `json:"scraped_count"`
	ByCategory    map[string]int64 `json:"by_category"`
	ByPriority    map[string]int64 `json:"by_priority"`
	ProductsTotal int64            `json:"products_total"`
}

func toSavedURLResponse(row *entity.SavedURL) savedURLResponse {
	return savedURLResponse{
		ID:              row.ID,
		URL:             row.RawURL,
		NormalizedURL:   row.NormalizedURL,
		Category:        row.Category,
		Priority:        string(row.Priority),
		Notes:           row.Notes,
		Selected:        row.Selected,
		Scraped:         row.Scraped,
		EstimatedPrice:  row.EstimatedPrice,
		LinkedProductID: row.LinkedProductID,
		CreatedAt:       row.CreatedAt,
		ScrapedAt:       row.ScrapedAt,
	}
}

func toSavedURLResponses(rows []*entity.SavedURL) []savedURLResponse {
	out := make([]savedURLResponse, len(rows))
	for i, row := range rows {
		out[i] = toSavedURLResponse(row)
	}
	return out
}

func toBatchReportResponse(report *entity.BatchReport) batchReportResponse {
	outcomes := make([]urlOutcomeResponse, len(report.Outcomes))
	for i, oc := range report.Outcomes {
		outcomes[i] = urlOutcomeResponse{
			ID:        oc.ID,
			URL:       oc.URL,
			Status:    oc.Status,
			Error:     oc.Error,
			ProductID: oc.ProductID,
		}
	}
	return batchReportResponse{
		Succeeded:  report.Succeeded,
		Failed:     report.Failed,
		Outcomes:   outcomes,
		StartedAt:  report.StartedAt,
		DurationMS: report.Duration.Milliseconds(),
	}
}

func toProductResponse(p *entity.Product) productResponse {
	tags := p.Tags
	if tags == nil {
		tags = []string{}
	}
	return productResponse{
		ID:            p.ID,
		SourceURL:     p.SourceURL,
		Name:          p.Name,
		Price:         p.Price,
		OriginalPrice: p.OriginalPrice,
		Description:   p.Description,
		Category:      p.Category,
		Source:        p.Source,
		Rating:        p.Rating,
		Tags:          tags,
		ImageURL:      p.ImageURL,
		AffiliateURL:  p.AffiliateURL,
		CreatedAt:     p.CreatedAt,
	}
}

func toStatsResponse(s *entity.StatsSummary) statsResponse {
	return statsResponse{
		Total:         s.Queue.Total,
		SelectedCount: s.Queue.SelectedCount,
		ScrapedCount:  s.Queue.ScrapedCount,
		ByCategory:    s.Queue.ByCategory,
		ByPriority:    s.Queue.ByPriority,
		ProductsTotal: s.ProductsTotal,
	}
}
