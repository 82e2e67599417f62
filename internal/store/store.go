// Package store persists scan results and reads them back for browsing.
//
// Two backends share one naming scheme: a local directory and an object
// store bucket. Each saved result is a single object
// "scan-<unix>-<id8>.<ext>" in the configured format.
package store

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/koustreak/blindsight/internal/errs"
	"github.com/koustreak/blindsight/internal/result"
)

// Saver persists one scan result and returns where it went.
type Saver interface {
	Save(ctx context.Context, doc *result.Document) (string, error)
}

// Loader lists and reads saved results.
type Loader interface {
	List(ctx context.Context) ([]Entry, error)
	Load(ctx context.Context, key string) (*result.Document, error)
}

// Store is both.
type Store interface {
	Saver
	Loader
}

// Entry describes a saved result. ID, State and Dialect are known without
// loading the result only for object stores, which keep them as metadata.
type Entry struct {
	Key      string    `json:"key"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
	ID       string    `json:"id,omitempty"`
	State    string    `json:"state,omitempty"`
	Dialect  string    `json:"dialect,omitempty"`
}

// Metadata keys stored with each uploaded result.
const (
	metaID      = "scan-id"
	metaState   = "scan-state"
	metaDialect = "scan-dialect"
)

func metadata(doc *result.Document) map[string]string {
	m := map[string]string{
		metaID:    doc.ID,
		metaState: string(doc.State),
	}
	if doc.DatabaseType != "" {
		m[metaDialect] = doc.DatabaseType
	}
	return m
}

const keyPrefix = "scan-"

// Key names the object a document is saved under.
func Key(doc *result.Document, f result.Format) string {
	ts := doc.FinishedAt
	if ts.IsZero() {
		ts = doc.StartedAt
	}
	if ts.IsZero() {
		ts = time.Now()
	}
	id := strings.ReplaceAll(doc.ID, "-", "")
	if len(id) > 8 {
		id = id[:8]
	}
	if id == "" {
		id = "noid"
	}
	return fmt.Sprintf("%s%d-%s.%s", keyPrefix, ts.Unix(), id, f.Extension())
}

// checkKey rejects anything that is not a bare result name.
func checkKey(key string) (result.Format, error) {
	if key == "" || strings.ContainsAny(key, `/\`) || key != path.Base(key) || !strings.HasPrefix(key, keyPrefix) {
		return "", errs.Newf(errs.ErrKindInvalidInput, "invalid result key %q", key)
	}
	return result.FormatFromPath(key)
}

func isResultKey(key string) bool {
	_, err := checkKey(key)
	return err == nil
}
