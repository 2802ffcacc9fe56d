package parser

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
	"github.com/markusmobius/go-trafilatura"
	"golang.org/x/net/html"

	"redgen/models"
	"redgen/tagset"
)

const DefaultMaxTags = 15

// Options controls product page extraction.
type Options struct {
	MaxTags int
}

// HTMLSource returns the HTML of a page. renderer.Browser and HTTPSource implement it.
type HTMLSource interface {
	RenderHTML(ctx context.Context, url string) (string, error)
}

// HTTPSource fetches server-rendered HTML without a browser.
type HTTPSource struct {
	Client *http.Client
}

const maxPageBytes = 8 << 20

func (s HTTPSource) RenderHTML(ctx context.Context, pageURL string) (string, error) {
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status code %d when fetching page", resp.StatusCode)
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Scraper loads a product page and extracts its listing data.
type Scraper struct {
	source HTMLSource
	opts   Options
}

func NewScraper(source HTMLSource, opts Options) *Scraper {
	return &Scraper{source: source, opts: opts}
}

func (s *Scraper) Scrape(ctx context.Context, pageURL string) (models.ScrapedData, error) {
	htmlStr, err := s.source.RenderHTML(ctx, pageURL)
	if err != nil {
		return models.ScrapedData{}, fmt.Errorf("load %s: %w", pageURL, err)
	}
	return ParseProductPage(htmlStr, pageURL, s.opts)
}

// ParseProductPage extracts title, description, tag links and images from a product page.
// Fields that cannot be found are left empty.
func ParseProductPage(htmlStr, pageURL string, opts Options) (models.ScrapedData, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlStr))
	if err != nil {
		return models.ScrapedData{}, err
	}
	var baseURL *url.URL
	if pageURL != "" {
		if u, err := url.Parse(pageURL); err == nil {
			baseURL = u
		}
	}

	maxTags := opts.MaxTags
	if maxTags <= 0 {
		maxTags = DefaultMaxTags
	}

	return models.ScrapedData{
		Title:       findTitle(doc),
		Description: findDescription(doc, htmlStr),
		Tags:        tagset.Serialize(findTags(doc, maxTags)),
		Images:      findImages(doc, htmlStr, baseURL),
	}, nil
}

func findTitle(doc *goquery.Document) string {
	if t := strings.TrimSpace(doc.Find("h1").First().Text()); t != "" {
		return t
	}
	return strings.TrimSpace(doc.Find(`[data-testid="product-title"]`).First().Text())
}

func findDescription(doc *goquery.Document, htmlStr string) string {
	if d := strings.TrimSpace(doc.Find(`[data-testid="product-description"]`).First().Text()); d != "" {
		return d
	}
	for _, sel := range []string{`meta[property="og:description"]`, `meta[name="description"]`} {
		if d, ok := doc.Find(sel).First().Attr("content"); ok && strings.TrimSpace(d) != "" {
			return strings.TrimSpace(d)
		}
	}
	if d := excerptWithReadability(htmlStr); d != "" {
		return d
	}
	return textWithTrafilatura(htmlStr)
}

// findTags collects tag link texts. Menu links ("Shop ...") and very short texts are skipped.
func findTags(doc *goquery.Document, maxTags int) []string {
	seen := map[string]struct{}{}
	out := []string{}
	doc.Find(`a[href*="/shop/"]`).EachWithBreak(func(_ int, a *goquery.Selection) bool {
		text := strings.TrimSpace(a.Text())
		if utf8.RuneCountInString(text) <= 2 || strings.Contains(text, "Shop") {
			return true
		}
		// a comma inside a link text would split it into two tags later
		text = strings.TrimSpace(strings.ReplaceAll(text, ",", " "))
		if _, dup := seen[text]; dup {
			return true
		}
		seen[text] = struct{}{}
		out = append(out, text)
		return len(out) < maxTags
	})
	return out
}

func findImages(doc *goquery.Document, htmlStr string, baseURL *url.URL) []string {
	out := []string{}
	seen := map[string]struct{}{}
	add := func(src string) {
		src = resolveImageURL(strings.TrimSpace(src), baseURL)
		if src == "" {
			return
		}
		if _, dup := seen[src]; dup {
			return
		}
		seen[src] = struct{}{}
		out = append(out, src)
	}

	// 우선순위: Open Graph 이미지 → Twitter 카드 이미지 → itemprop
	for _, sel := range []string{
		`meta[property="og:image"]`,
		`meta[property="og:image:secure_url"]`,
		`meta[name="twitter:image"]`,
		`meta[itemprop="image"]`,
	} {
		doc.Find(sel).Each(func(_ int, m *goquery.Selection) {
			if c, ok := m.Attr("content"); ok {
				add(c)
			}
		})
	}
	if len(out) == 0 {
		add(imageWithReadability(htmlStr, baseURL))
	}
	return out
}

func resolveImageURL(src string, baseURL *url.URL) string {
	if src == "" {
		return ""
	}
	if strings.HasPrefix(src, "data:") {
		return src
	}
	parsed, err := url.Parse(src)
	if err != nil {
		return ""
	}
	if parsed.IsAbs() {
		return parsed.String()
	}
	if baseURL == nil {
		return src
	}
	return baseURL.ResolveReference(parsed).String()
}

func excerptWithReadability(htmlStr string) string {
	doc, err := html.Parse(strings.NewReader(htmlStr))
	if err != nil {
		return ""
	}
	article, err := readability.FromDocument(doc, nil)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(article.Excerpt)
}

func imageWithReadability(htmlStr string, baseURL *url.URL) string {
	doc, err := html.Parse(strings.NewReader(htmlStr))
	if err != nil {
		return ""
	}
	article, err := readability.FromDocument(doc, baseURL)
	if err != nil {
		return ""
	}
	return article.Image
}

func textWithTrafilatura(htmlStr string) string {
	article, err := trafilatura.Extract(strings.NewReader(htmlStr), trafilatura.Options{})
	if err != nil || article == nil {
		return ""
	}
	return strings.TrimSpace(article.ContentText)
}
