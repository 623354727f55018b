package request

import (
	"strings"

	"github.com/user/change-analysis-service/internal/entity"
)

// AnalyzeChangeRequest is the body of every change analysis endpoint.
type AnalyzeChangeRequest struct {
	PrevDOM  string   `json:"prev_dom"`
	CurDOM   string   `json:"cur_dom"`
	PrevSS   string   `json:"prev_ss"` // base64 or data URI, optional
	CurSS    string   `json:"cur_ss"`  // base64 or data URI, optional
	Goal     string   `json:"goal"`
	Domain   string   `json:"domain"`
	URL      *string  `json:"url"`
	Keywords []string `json:"keywords,omitempty"`
}

// Missing lists absent required fields. url must be present but may be empty.
func (r *AnalyzeChangeRequest) Missing() []string {
	missing := r.Input().Missing()
	if r.URL == nil {
		missing = append(missing, "url")
	}
	return missing
}

// Input converts the request into an analysis input. Screenshot strings are
// never treated as file paths.
func (r *AnalyzeChangeRequest) Input() entity.ChangeInput {
	var url string
	if r.URL != nil {
		url = strings.TrimSpace(*r.URL)
	}
	return entity.ChangeInput{
		PrevDOM:   r.PrevDOM,
		CurDOM:    r.CurDOM,
		PrevImage: entity.ParseImageRef(r.PrevSS, false),
		CurImage:  entity.ParseImageRef(r.CurSS, false),
		Goal:      r.Goal,
		Domain:    r.Domain,
		URL:       url,
		Keywords:  r.Keywords,
	}
}

// CaptureSnapshotRequest asks for a rendered capture of a page.
type CaptureSnapshotRequest struct {
	URL string `json:"url"`
}

// ExtractHTMLRequest asks for the visible text and metadata of raw markup.
type ExtractHTMLRequest struct {
	HTML      string  `json:"html"`
	BaseURL   *string `json:"base_url,omitempty"`
	URL       *string `json:"url,omitempty"`
	MaxLinks  *int    `json:"max_links,omitempty"`
	MaxImages *int    `json:"max_images,omitempty"`
}

// MaxExtractLimit bounds max_links and max_images.
const MaxExtractLimit = 200

// Invalid lists fields that are missing or out of range.
func (r *ExtractHTMLRequest) Invalid() []string {
	var invalid []string
	if strings.TrimSpace(r.HTML) == "" {
		invalid = append(invalid, "html")
	}
	if r.MaxLinks != nil && (*r.MaxLinks < 1 || *r.MaxLinks > MaxExtractLimit) {
		invalid = append(invalid, "max_links")
	}
	if r.MaxImages != nil && (*r.MaxImages < 1 || *r.MaxImages > MaxExtractLimit) {
		invalid = append(invalid, "max_images")
	}
	return invalid
}

// Options converts the request into extractor options.
func (r *ExtractHTMLRequest) Options() entity.ExtractOptions {
	var opts entity.ExtractOptions
	if r.BaseURL != nil {
		opts.BaseURL = strings.TrimSpace(*r.BaseURL)
	}
	if r.URL != nil {
		opts.URL = strings.TrimSpace(*r.URL)
	}
	if r.MaxLinks != nil {
		opts.MaxLinks = *r.MaxLinks
	}
	if r.MaxImages != nil {
		opts.MaxImages = *r.MaxImages
	}
	return opts
}
