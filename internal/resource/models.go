package resource

import (
	"io"
	"time"
)

// Resource is a stored object with metadata and lazily-read content.
type Resource struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	UpdatedAt   time.Time `json:"updated_at"`
	ContentSize int64     `json:"content_size"`
	ContentType string    `json:"content_type"`

	// Data streams the object content. It is nil on listing results and
	// must be closed by the caller when present.
	Data io.ReadCloser `json:"-"`
}

// Page is one listing window. Pages beyond the last carry empty Items with
// the same TotalPages.
type Page struct {
	Items      []Resource `json:"items"`
	TotalPages int        `json:"total_pages"`
}
