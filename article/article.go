// Package article defines the data model shared by the crawl pipeline:
// the extracted article record, the per-run crawl target, and the
// ordered result collection handed to a sink.
package article

import (
	"time"

	"github.com/google/uuid"
)

// Sentinel values substituted when a field cannot be extracted. These
// are site data, not UI strings: they match what the source site's
// readers expect ("no title" / "no content" in Korean) and are written
// to exports as-is.
const (
	NoTitle   = "제목 없음"
	NoContent = "본문 없음"
)

// ListingShape selects which listing markup the extractor scans. The
// shape is chosen by the caller, never auto-detected.
type ListingShape string

const (
	// ShapeCategory is the list.php category listing: plain li items
	// with a dd.registDate date node.
	ShapeCategory ListingShape = "category"
	// ShapeHomepage is the homepage tab listing: li.tab_item items
	// with a time.time date node.
	ShapeHomepage ListingShape = "homepage"
)

// Article is one extracted news item. URL is never empty; every other
// field may carry a sentinel (Title, Content) or be absent
// (PublishedAt, Author) while the record remains valid.
type Article struct {
	ID          uuid.UUID `json:"id"`
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	PublishedAt *string   `json:"published_at,omitempty"`
	Author      *string   `json:"author,omitempty"`
	CrawledAt   time.Time `json:"crawled_at"`
}

// CrawlTarget is the immutable configuration for one run.
type CrawlTarget struct {
	// Date is the calendar date articles must have been published on.
	// Only the year, month and day are significant.
	Date time.Time
	// MaxArticles caps how many distinct article URLs are collected.
	MaxArticles int
	// Shape selects the listing markup to scan.
	Shape ListingShape
}

// DefaultMaxArticles is used when a target does not specify a cap.
const DefaultMaxArticles = 10

// DateString returns the target date formatted the way the site
// renders publish dates in listings.
func (t CrawlTarget) DateString() string {
	return t.Date.Format("2006-01-02")
}

// CrawlResult is the ordered sequence of articles produced by one run.
// Articles appear in discovery order and are never mutated after
// collection.
type CrawlResult struct {
	RunID      uuid.UUID
	Target     CrawlTarget
	Articles   []Article
	StartedAt  time.Time
	FinishedAt time.Time
	// DeliveryErr records a sink failure. Delivery failing does not
	// invalidate the collected articles.
	DeliveryErr error
}

// Empty reports whether the run collected nothing.
func (r *CrawlResult) Empty() bool {
	return len(r.Articles) == 0
}
