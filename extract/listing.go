// Package extract turns rendered page markup into structured data: the
// listing extractor discovers date-matched article URLs, the detail
// extractor builds article records with per-field fallback chains.
package extract

import (
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/sjlee/hanmicrawl/article"
)

// Site constants for hanmiilbo.kr. The selectors in this package are
// specific to this site's markup.
const (
	BaseURL         = "https://www.hanmiilbo.kr"
	CategoryListURL = BaseURL + "/news/list.php?mcode=m93atmw"

	detailPathMarker  = "view.php"
	detailQueryMarker = "idx="
	routingParam      = "&mcode="
)

// ListingItem is one discovered article link. Title comes from the
// listing markup and is informational only; detail extraction is
// authoritative for stored titles.
type ListingItem struct {
	URL   string
	Title string
}

// ListingLinks scans listing markup for articles published on
// targetDate and returns at most maxCount items, in document order of
// first occurrence. Items whose normalized URL was already seen are
// dropped silently. Items with no parseable link or no date node are
// skipped. An empty result is a normal outcome, not an error.
func ListingLinks(markup string, shape article.ListingShape, targetDate time.Time, maxCount int) ([]ListingItem, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("parse listing markup: %w", err)
	}

	if maxCount <= 0 {
		maxCount = article.DefaultMaxArticles
	}

	var itemSelector string
	switch shape {
	case article.ShapeHomepage:
		itemSelector = "li[class*='tab_item']"
	default:
		itemSelector = "li"
	}

	wantDate := targetDate.Format("2006-01-02")
	seen := make(map[string]struct{})
	items := make([]ListingItem, 0, maxCount)

	doc.Find(itemSelector).EachWithBreak(func(_ int, li *goquery.Selection) bool {
		href := detailHref(li)
		if href == "" {
			return true
		}

		if listingDate(li, shape) != wantDate {
			return true
		}

		full := NormalizeArticleURL(href)
		if _, dup := seen[full]; dup {
			return true
		}
		seen[full] = struct{}{}

		items = append(items, ListingItem{
			URL:   full,
			Title: listingTitle(li, shape),
		})
		return len(items) < maxCount
	})

	return items, nil
}

// detailHref returns the first hyperlink in the item that points at a
// detail page, or "" when the item has none.
func detailHref(li *goquery.Selection) string {
	var href string
	li.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		h, _ := a.Attr("href")
		if strings.Contains(h, detailPathMarker) && strings.Contains(h, detailQueryMarker) {
			href = h
			return false
		}
		return true
	})
	return href
}

// listingDate returns the publish-date text co-located with the link,
// or "" when the item carries no date node.
func listingDate(li *goquery.Selection, shape article.ListingShape) string {
	var sel *goquery.Selection
	switch shape {
	case article.ShapeHomepage:
		sel = li.Find("time[class*='time']").First()
	default:
		sel = li.Find("dd[class*='registDate']").First()
	}
	return strings.TrimSpace(sel.Text())
}

// listingTitle returns the headline text shown in the listing, falling
// back to the title sentinel. Used for progress reporting only.
func listingTitle(li *goquery.Selection, shape article.ListingShape) string {
	var title string
	switch shape {
	case article.ShapeHomepage:
		title = strings.TrimSpace(li.Find("strong[class*='headline']").First().Text())
	default:
		title = strings.TrimSpace(li.Find("dt[class*='title'] a").First().Text())
	}
	if title == "" {
		return article.NoTitle
	}
	return title
}

// NormalizeArticleURL joins a possibly-relative detail link with the
// site base URL and strips the routing parameter the site appends for
// category navigation, which would otherwise make the same article
// appear under distinct URLs.
func NormalizeArticleURL(href string) string {
	var full string
	switch {
	case strings.HasPrefix(href, "http"):
		full = href
	case strings.HasPrefix(href, "/"):
		full = BaseURL + href
	default:
		full = BaseURL + "/" + href
	}
	if i := strings.Index(full, routingParam); i != -1 {
		full = full[:i]
	}
	return full
}
