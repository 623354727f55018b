package entity

import "time"

// ImageInfo is an image referenced by a page.
type ImageInfo struct {
	Src string `json:"src" yaml:"src"`
	Alt string `json:"alt,omitempty" yaml:"alt,omitempty"`
}

// LinkInfo is an anchor found on a page.
type LinkInfo struct {
	Href string `json:"href" yaml:"href"`
	Text string `json:"text,omitempty" yaml:"text,omitempty"`
}

// PageStats counts structural elements of a page.
type PageStats struct {
	Links    int `json:"links" yaml:"links"`
	Images   int `json:"images" yaml:"images"`
	Headings int `json:"headings" yaml:"headings"`
	Words    int `json:"words" yaml:"words"`
}

// PageMetadata is the structured metadata extracted alongside visible text.
type PageMetadata struct {
	Title       string              `json:"title,omitempty" yaml:"title,omitempty"`
	Description string              `json:"description,omitempty" yaml:"description,omitempty"`
	Canonical   string              `json:"canonical,omitempty" yaml:"canonical,omitempty"`
	Lang        string              `json:"lang,omitempty" yaml:"lang,omitempty"`
	Charset     string              `json:"charset,omitempty" yaml:"charset,omitempty"`
	Byline      string              `json:"byline,omitempty" yaml:"byline,omitempty"`
	Excerpt     string              `json:"excerpt,omitempty" yaml:"excerpt,omitempty"`
	SiteName    string              `json:"site_name,omitempty" yaml:"site_name,omitempty"`
	Keywords    []string            `json:"keywords,omitempty" yaml:"keywords,omitempty"`
	OpenGraph   map[string]string   `json:"open_graph,omitempty" yaml:"open_graph,omitempty"`
	Twitter     map[string]string   `json:"twitter,omitempty" yaml:"twitter,omitempty"`
	Headings    map[string][]string `json:"headings,omitempty" yaml:"headings,omitempty"`
	Links       []LinkInfo          `json:"links,omitempty" yaml:"links,omitempty"`
	Images      []ImageInfo         `json:"images,omitempty" yaml:"images,omitempty"`
	JSONLD      []string            `json:"json_ld,omitempty" yaml:"json_ld,omitempty"`
	Stats       PageStats           `json:"stats" yaml:"stats"`
}

// ExtractOptions tunes metadata collection. Zero limits select the defaults.
type ExtractOptions struct {
	// BaseURL absolutises links and images; when empty URL is used.
	BaseURL   string
	URL       string
	MaxLinks  int
	MaxImages int
}

// ExtractedText is the normalized visible text of a DOM plus its metadata.
type ExtractedText struct {
	Text     string       `json:"text" yaml:"text"`
	Metadata PageMetadata `json:"metadata" yaml:"metadata"`
}

// Snapshot is a captured rendering of a URL.
type Snapshot struct {
	ID             string    `json:"id"`
	URL            string    `json:"url"`
	DOM            string    `json:"dom"`
	Screenshot     []byte    `json:"-"`
	HTTPStatusCode int       `json:"http_status_code,omitempty"`
	ResponseTimeMS int       `json:"response_time_ms"`
	CapturedAt     time.Time `json:"captured_at"`
}
