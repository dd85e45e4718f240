package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sjlee/hanmicrawl/article"
)

const articleURL = "https://www.hanmiilbo.kr/news/view.php?idx=101"

const fullArticle = `<html><head>
<title>타이틀 태그 제목 - 한미일보</title>
<meta property="og:title" content="수출 호조에 반도체 업계 활기">
<meta property="article:published_time" content="2026-08-30T09:00:00+09:00">
<meta name="author" content="메타 작성자">
</head><body>
<ul class="view-info-text">
  <li>김영 기자</li>
  <li>등록 2026-08-30 09:12:34</li>
</ul>
<div class="fr-view">
  <p>첫 문단입니다.</p>
  <script>trackView();</script>
  <p>둘째 문단입니다.</p>
  <img src="/photo.jpg">
</div>
<strong class="view-writer">프로필 작성자</strong>
</body></html>`

// TestArticle_FullMarkup verifies every field uses its first strategy
// when the markup provides it.
func TestArticle_FullMarkup(t *testing.T) {
	a, err := Article(fullArticle, articleURL)

	require.NoError(t, err)
	assert.Equal(t, articleURL, a.URL)
	assert.Equal(t, "수출 호조에 반도체 업계 활기", a.Title)
	assert.Equal(t, "첫 문단입니다.\n둘째 문단입니다.", a.Content)
	require.NotNil(t, a.PublishedAt)
	assert.Equal(t, "2026-08-30 09:12:34", *a.PublishedAt)
	require.NotNil(t, a.Author)
	assert.Equal(t, "김영 기자", *a.Author)
	assert.False(t, a.CrawledAt.IsZero())
	assert.NotEqual(t, a.ID.String(), "00000000-0000-0000-0000-000000000000")
}

// TestArticle_TitleFallsBackToTitleTag verifies the title chain moves
// to the document title element when the social metadata is absent.
func TestArticle_TitleFallsBackToTitleTag(t *testing.T) {
	markup := `<html><head><title>  문서 제목  </title></head><body></body></html>`

	a, err := Article(markup, articleURL)

	require.NoError(t, err)
	assert.Equal(t, "문서 제목", a.Title)
}

// TestArticle_Sentinels verifies a document missing every source
// yields the sentinels, never empty strings.
func TestArticle_Sentinels(t *testing.T) {
	a, err := Article(`<html><body><p>unrelated</p></body></html>`, articleURL)

	require.NoError(t, err)
	assert.Equal(t, article.NoTitle, a.Title)
	assert.Equal(t, article.NoContent, a.Content)
	assert.Nil(t, a.PublishedAt)
	assert.Nil(t, a.Author)
	assert.False(t, a.CrawledAt.IsZero())
}

// TestArticle_ContentSecondaryContainer verifies the content chain
// tries the named secondary container with script stripping.
func TestArticle_ContentSecondaryContainer(t *testing.T) {
	markup := `<html><body>
	<div class="viewContent"><p>본문 한 줄.</p><style>.x{}</style></div>
	</body></html>`

	a, err := Article(markup, articleURL)

	require.NoError(t, err)
	assert.Equal(t, "본문 한 줄.", a.Content)
}

// TestArticle_ContentPreservesParagraphBreaks verifies line breaks
// separate paragraphs and embedded media leaves no residue.
func TestArticle_ContentPreservesParagraphBreaks(t *testing.T) {
	markup := `<html><body><div class="fr-view">
	<p>하나</p><div>둘<br>셋</div><img src="a.png"><script>x()</script>
	</div></body></html>`

	a, err := Article(markup, articleURL)

	require.NoError(t, err)
	assert.Equal(t, "하나\n둘\n셋", a.Content)
}

// TestArticle_DateFromMetaTag verifies the published-time metadata is
// used when the info list has no registration line.
func TestArticle_DateFromMetaTag(t *testing.T) {
	markup := `<html><head>
	<meta property="article:published_time" content="2026-08-30T10:00:00+09:00">
	</head><body></body></html>`

	a, err := Article(markup, articleURL)

	require.NoError(t, err)
	require.NotNil(t, a.PublishedAt)
	assert.Equal(t, "2026-08-30T10:00:00+09:00", *a.PublishedAt)
}

// TestArticle_DateFromTimeElement verifies the generic time element is
// the last date resort.
func TestArticle_DateFromTimeElement(t *testing.T) {
	markup := `<html><body><time>2026-08-30</time></body></html>`

	a, err := Article(markup, articleURL)

	require.NoError(t, err)
	require.NotNil(t, a.PublishedAt)
	assert.Equal(t, "2026-08-30", *a.PublishedAt)
}

// TestArticle_AuthorSkipsRegistrationLine verifies the info-list
// author strategy ignores the registration entry even when it also
// mentions a reporter.
func TestArticle_AuthorSkipsRegistrationLine(t *testing.T) {
	markup := `<html><body>
	<ul class="info-text">
	  <li>등록 2026-08-30 09:12:34 기자단</li>
	  <li>박수진 기자</li>
	</ul>
	</body></html>`

	a, err := Article(markup, articleURL)

	require.NoError(t, err)
	require.NotNil(t, a.Author)
	assert.Equal(t, "박수진 기자", *a.Author)
}

// TestArticle_AuthorFallbackOrder verifies the writer element beats
// the metadata tag, and the class-based catch-all is last.
func TestArticle_AuthorFallbackOrder(t *testing.T) {
	withWriter := `<html><head><meta name="author" content="메타"></head>
	<body><strong class="writer">프로필 기자</strong></body></html>`
	a, err := Article(withWriter, articleURL)
	require.NoError(t, err)
	require.NotNil(t, a.Author)
	assert.Equal(t, "프로필 기자", *a.Author)

	classOnly := `<html><body><span class="reporter">스팬 기자</span></body></html>`
	a, err = Article(classOnly, articleURL)
	require.NoError(t, err)
	require.NotNil(t, a.Author)
	assert.Equal(t, "스팬 기자", *a.Author)
}

// TestArticle_Idempotent verifies repeated extraction yields identical
// fields except CrawledAt, which must be non-decreasing.
func TestArticle_Idempotent(t *testing.T) {
	first, err := Article(fullArticle, articleURL)
	require.NoError(t, err)
	second, err := Article(fullArticle, articleURL)
	require.NoError(t, err)

	assert.Equal(t, first.Title, second.Title)
	assert.Equal(t, first.Content, second.Content)
	assert.Equal(t, first.PublishedAt, second.PublishedAt)
	assert.Equal(t, first.Author, second.Author)
	assert.Equal(t, first.URL, second.URL)
	assert.False(t, second.CrawledAt.Before(first.CrawledAt))
}
