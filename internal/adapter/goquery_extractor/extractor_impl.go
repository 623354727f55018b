package goquery_extractor

import (
	"encoding/json"
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"github.com/user/change-analysis-service/internal/entity"
	"github.com/user/change-analysis-service/pkg/utils"
)

const (
	// DefaultMaxLinks and DefaultMaxImages cap collected links and images
	// when the options leave them unset.
	DefaultMaxLinks  = 50
	DefaultMaxImages = 50

	maxJSONLD      = 3
	maxJSONLDBytes = 10 * 1024
)

// hidden elements never contribute visible text.
var hidden = map[string]bool{
	"#comment": true,
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
}

// GoqueryExtractor turns DOM strings into visible text and page metadata.
type GoqueryExtractor struct{}

// NewGoqueryExtractor creates a new extractor implementation using goquery.
func NewGoqueryExtractor() *GoqueryExtractor {
	return &GoqueryExtractor{}
}

// Extract parses dom and returns its whitespace-normalized visible text. Text
// of adjacent nodes is joined with a space so "<p>a</p><p>b</p>" yields "a b".
// pageURL, when valid, is used to absolutise links and images.
func (e *GoqueryExtractor) Extract(dom, pageURL string) entity.ExtractedText {
	return e.ExtractPage(dom, entity.ExtractOptions{URL: pageURL})
}

// ExtractPage is Extract with explicit metadata options.
func (e *GoqueryExtractor) ExtractPage(dom string, opts entity.ExtractOptions) entity.ExtractedText {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(dom))
	if err != nil {
		slog.Debug("Falling back to raw markup as text", "error", err)
		return entity.ExtractedText{Text: collapse(dom)}
	}

	base := parseBase(opts.BaseURL)
	if base == nil {
		base = parseBase(opts.URL)
	}
	meta := metadata(doc, base, limit(opts.MaxLinks, DefaultMaxLinks), limit(opts.MaxImages, DefaultMaxImages))

	var b strings.Builder
	visibleText(doc.Selection, &b)
	text := collapse(b.String())
	meta.Stats.Words = len(strings.Fields(text))

	if base != nil {
		enrich(&meta, dom, base)
	}
	return entity.ExtractedText{Text: text, Metadata: meta}
}

func limit(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

func visibleText(sel *goquery.Selection, b *strings.Builder) {
	sel.Contents().Each(func(_ int, s *goquery.Selection) {
		name := goquery.NodeName(s)
		switch {
		case name == "#text":
			b.WriteString(s.Text())
			b.WriteByte(' ')
		case hidden[name]:
		default:
			visibleText(s, b)
		}
	})
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func parseBase(pageURL string) *url.URL {
	if pageURL == "" {
		return nil
	}
	u, err := url.Parse(pageURL)
	if err != nil || u.Host == "" {
		return nil
	}
	return u
}

func metadata(doc *goquery.Document, base *url.URL, maxLinks, maxImages int) entity.PageMetadata {
	meta := entity.PageMetadata{
		Title:       collapse(doc.Find("title").First().Text()),
		Description: attr(doc.Find(`meta[name="description"]`), "content"),
		Lang:        attr(doc.Find("html"), "lang"),
		Charset:     attr(doc.Find("meta[charset]"), "charset"),
		OpenGraph:   map[string]string{},
		Twitter:     map[string]string{},
		Headings:    map[string][]string{},
	}

	if canonical := attr(doc.Find(`link[rel="canonical"]`), "href"); canonical != "" {
		if abs, err := utils.ToAbsoluteURL(base, canonical); err == nil {
			meta.Canonical = abs
		}
	}

	for _, k := range strings.Split(attr(doc.Find(`meta[name="keywords"]`), "content"), ",") {
		if k = strings.TrimSpace(k); k != "" {
			meta.Keywords = append(meta.Keywords, k)
		}
	}

	doc.Find(`meta[property^="og:"]`).Each(func(_ int, s *goquery.Selection) {
		prop, _ := s.Attr("property")
		content, _ := s.Attr("content")
		meta.OpenGraph[strings.TrimPrefix(prop, "og:")] = strings.TrimSpace(content)
	})
	doc.Find(`meta[name^="twitter:"]`).Each(func(_ int, s *goquery.Selection) {
		name, _ := s.Attr("name")
		content, _ := s.Attr("content")
		meta.Twitter[strings.TrimPrefix(name, "twitter:")] = strings.TrimSpace(content)
	})

	doc.Find("h1,h2,h3,h4,h5,h6").Each(func(_ int, s *goquery.Selection) {
		if text := collapse(s.Text()); text != "" {
			tag := goquery.NodeName(s)
			meta.Headings[tag] = append(meta.Headings[tag], text)
			meta.Stats.Headings++
		}
	})

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		meta.Stats.Links++
		if len(meta.Links) == maxLinks {
			return
		}
		href, _ := s.Attr("href")
		if strings.HasPrefix(strings.TrimSpace(href), "#") {
			return
		}
		abs, err := utils.ToAbsoluteURL(base, href)
		if err != nil || abs == "" {
			return
		}
		meta.Links = append(meta.Links, entity.LinkInfo{Href: abs, Text: collapse(s.Text())})
	})

	doc.Find("img[src]").Each(func(_ int, s *goquery.Selection) {
		meta.Stats.Images++
		if len(meta.Images) == maxImages {
			return
		}
		src, _ := s.Attr("src")
		abs, err := utils.ToAbsoluteURL(base, src)
		if err != nil || abs == "" {
			return
		}
		alt, _ := s.Attr("alt")
		meta.Images = append(meta.Images, entity.ImageInfo{Src: abs, Alt: strings.TrimSpace(alt)})
	})

	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		raw := strings.TrimSpace(s.Text())
		if len(raw) <= maxJSONLDBytes && json.Valid([]byte(raw)) {
			meta.JSONLD = append(meta.JSONLD, raw)
		}
		return len(meta.JSONLD) < maxJSONLD
	})

	return meta
}

// enrich fills article-level fields the markup does not state directly.
func enrich(meta *entity.PageMetadata, dom string, base *url.URL) {
	article, err := readability.FromReader(strings.NewReader(dom), base)
	if err != nil {
		slog.Debug("Readability could not parse page", "url", base.String(), "error", err)
		return
	}
	meta.Byline = strings.TrimSpace(article.Byline)
	meta.Excerpt = strings.TrimSpace(article.Excerpt)
	meta.SiteName = strings.TrimSpace(article.SiteName)
	if meta.Title == "" {
		meta.Title = strings.TrimSpace(article.Title)
	}
}

func attr(sel *goquery.Selection, name string) string {
	v, _ := sel.First().Attr(name)
	return strings.TrimSpace(v)
}
