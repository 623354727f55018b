package response

import (
	"time"

	"github.com/user/change-analysis-service/internal/entity"
)

type SubmitJobResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	JobID   string `json:"job_id"`
}

// ValidationErrorResponse lists the fields that made a request unprocessable.
type ValidationErrorResponse struct {
	Error  string   `json:"error"`
	Fields []string `json:"fields,omitempty"`
}

// SnapshotResponse is a DTO for entity.Snapshot with the screenshot inlined as a data URI.
type SnapshotResponse struct {
	ID             string    `json:"id"`
	URL            string    `json:"url"`
	DOM            string    `json:"dom"`
	Screenshot     string    `json:"screenshot"`
	HTTPStatusCode int       `json:"http_status_code,omitempty"`
	ResponseTimeMS int       `json:"response_time_ms"`
	CapturedAt     time.Time `json:"captured_at"`
}

// ExtractHTMLResponse carries the visible text of a page and its metadata.
type ExtractHTMLResponse struct {
	Text     string              `json:"text"`
	Metadata entity.PageMetadata `json:"metadata"`
	Stats    entity.PageStats    `json:"stats"`
}
