package extract

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"golang.org/x/net/html"

	"github.com/sjlee/hanmicrawl/article"
)

// registeredAt matches the "registered YYYY-MM-DD HH:MM:SS" line the
// site renders in its article info list.
var registeredAt = regexp.MustCompile(`등록\s+(\d{4}-\d{2}-\d{2})\s+(\d{2}:\d{2}:\d{2})`)

const (
	reporterMarker = "기자"
	registerMarker = "등록"
)

// fieldStrategy is one step of a fallback chain: it inspects the
// document and returns the extracted value, or "" to let the next
// strategy try. Strategies are pure and independently testable.
type fieldStrategy func(*goquery.Document) string

var titleChain = []fieldStrategy{titleFromOpenGraph, titleFromTitleTag}

var contentChain = []fieldStrategy{contentFromRichView, contentFromViewContent}

var dateChain = []fieldStrategy{dateFromInfoList, dateFromMetaTag, dateFromTimeTag}

var authorChain = []fieldStrategy{authorFromInfoList, authorFromWriterTag, authorFromMetaTag, authorFromClassName}

// Article extracts a structured record from a single article page's
// markup. Extraction never fails for partial or malformed markup:
// every field falls back through its chain to a sentinel or absent
// value. Only a document the parser cannot build at all is an error.
func Article(markup, url string) (article.Article, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return article.Article{}, fmt.Errorf("parse article markup for %s: %w", url, err)
	}

	a := article.Article{
		ID:      uuid.New(),
		URL:     url,
		Title:   firstNonEmpty(doc, titleChain, article.NoTitle),
		Content: firstNonEmpty(doc, contentChain, article.NoContent),
	}
	if date := firstNonEmpty(doc, dateChain, ""); date != "" {
		a.PublishedAt = &date
	}
	if author := firstNonEmpty(doc, authorChain, ""); author != "" {
		a.Author = &author
	}
	a.CrawledAt = time.Now()
	return a, nil
}

// firstNonEmpty applies the chain in order and returns the first
// non-empty value, or the fallback when every strategy comes up empty.
func firstNonEmpty(doc *goquery.Document, chain []fieldStrategy, fallback string) string {
	for _, strategy := range chain {
		if v := strategy(doc); v != "" {
			return v
		}
	}
	return fallback
}

func titleFromOpenGraph(doc *goquery.Document) string {
	content, _ := doc.Find("meta[property='og:title']").First().Attr("content")
	return strings.TrimSpace(content)
}

func titleFromTitleTag(doc *goquery.Document) string {
	return strings.TrimSpace(doc.Find("title").First().Text())
}

func contentFromRichView(doc *goquery.Document) string {
	return containerText(doc.Find("div.fr-view").First(), "script,style,img")
}

func contentFromViewContent(doc *goquery.Document) string {
	return containerText(doc.Find("div.viewContent").First(), "script,style")
}

// containerText strips the given embedded nodes from a copy of the
// container and extracts its text with paragraph breaks preserved.
func containerText(sel *goquery.Selection, strip string) string {
	if sel.Length() == 0 {
		return ""
	}
	clone := sel.Clone()
	clone.Find(strip).Remove()
	return textWithBreaks(clone)
}

// textWithBreaks walks the selection's nodes and collects text with a
// line break after each block-level element, so paragraph structure
// survives into the plain-text form. Blank lines are dropped and each
// line is trimmed.
func textWithBreaks(sel *goquery.Selection) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			return
		}
		if n.Type == html.ElementNode && n.Data == "br" {
			b.WriteByte('\n')
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode {
			switch n.Data {
			case "p", "div", "li", "tr", "h1", "h2", "h3", "h4", "h5", "h6", "blockquote":
				b.WriteByte('\n')
			}
		}
	}
	for _, n := range sel.Nodes {
		walk(n)
	}

	var lines []string
	for _, line := range strings.Split(b.String(), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

func dateFromInfoList(doc *goquery.Document) string {
	var found string
	doc.Find("ul[class*='info-text'] li").EachWithBreak(func(_ int, li *goquery.Selection) bool {
		m := registeredAt.FindStringSubmatch(strings.TrimSpace(li.Text()))
		if m == nil {
			return true
		}
		found = m[1] + " " + m[2]
		return false
	})
	return found
}

func dateFromMetaTag(doc *goquery.Document) string {
	content, _ := doc.Find("meta[property='article:published_time']").First().Attr("content")
	return strings.TrimSpace(content)
}

func dateFromTimeTag(doc *goquery.Document) string {
	return strings.TrimSpace(doc.Find("time").First().Text())
}

func authorFromInfoList(doc *goquery.Document) string {
	var found string
	doc.Find("ul[class*='info-text'] li").EachWithBreak(func(_ int, li *goquery.Selection) bool {
		text := strings.TrimSpace(li.Text())
		if strings.Contains(text, reporterMarker) && !strings.Contains(text, registerMarker) {
			found = text
			return false
		}
		return true
	})
	return found
}

func authorFromWriterTag(doc *goquery.Document) string {
	return strings.TrimSpace(doc.Find("strong[class*='writer']").First().Text())
}

func authorFromMetaTag(doc *goquery.Document) string {
	content, _ := doc.Find("meta[name='author']").First().Attr("content")
	return strings.TrimSpace(content)
}

func authorFromClassName(doc *goquery.Document) string {
	return strings.TrimSpace(doc.Find("span.author, span.reporter, span.writer").First().Text())
}
