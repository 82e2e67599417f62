package filestore

import (
	"io"
	"time"
)

// ObjectInfo describes a stored scan result object.
type ObjectInfo struct {
	// Key is the full object path within the bucket (e.g. "scans/scan-1700000000-1a2b3c4d.json").
	Key string `json:"key"`

	// Size is the byte size of the object. -1 if unknown.
	Size int64 `json:"size"`

	ContentType string `json:"content_type,omitempty"`

	ETag string `json:"etag,omitempty"`

	LastModified time.Time `json:"last_modified"`

	// Metadata is the user metadata stored with the object, keys lowercased
	// and without the "x-amz-meta-" prefix. Listings fill it only when
	// asked to.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// PutOptions describes an upload.
type PutOptions struct {
	ContentType string
	Metadata    map[string]string
}

// Object is a streaming handle to an object's content.
// The caller MUST call Close() after reading to avoid resource leaks.
type Object interface {
	io.ReadCloser

	// Info returns the metadata for this object.
	Info() *ObjectInfo
}

// ListOptions controls how ListObjects filters results.
type ListOptions struct {
	// Prefix restricts results to keys starting with this string.
	Prefix string

	// Limit caps the number of results returned. 0 means no cap.
	Limit int

	// WithMetadata asks the backend to include user metadata in listings.
	WithMetadata bool
}
