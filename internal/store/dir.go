package store

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/koustreak/blindsight/internal/errs"
	"github.com/koustreak/blindsight/internal/logger"
	"github.com/koustreak/blindsight/internal/result"
)

// Dir keeps results as files in a local directory.
type Dir struct {
	dir    string
	format result.Format
	log    *logger.Logger
}

// NewDir returns a store rooted at dir, creating it when missing.
func NewDir(dir string, format result.Format, log *logger.Logger) (*Dir, error) {
	if dir == "" {
		dir = "."
	}
	if log == nil {
		log = logger.Global()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, mapFSError(err, "failed to create results directory")
	}
	return &Dir{dir: dir, format: format, log: log.Component("store")}, nil
}

// Save writes doc to a temporary file and renames it into place, so readers
// never see a partial result.
func (d *Dir) Save(ctx context.Context, doc *result.Document) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", errs.Wrap(errs.ErrKindTimeout, "save cancelled", err)
	}
	data, err := result.Marshal(d.format, doc)
	if err != nil {
		return "", err
	}

	name := filepath.Join(d.dir, Key(doc, d.format))
	tmp, err := os.CreateTemp(d.dir, ".scan-*.tmp")
	if err != nil {
		return "", mapFSError(err, "failed to create results file")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", mapFSError(err, "failed to write results file")
	}
	if err := tmp.Close(); err != nil {
		return "", mapFSError(err, "failed to write results file")
	}
	if err := os.Rename(tmp.Name(), name); err != nil {
		return "", mapFSError(err, "failed to write results file")
	}

	d.log.Debugf("wrote %d bytes to %s", len(data), name)
	return name, nil
}

// List returns saved results, newest first.
func (d *Dir) List(ctx context.Context) ([]Entry, error) {
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		return nil, mapFSError(err, "failed to read results directory")
	}

	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !isResultKey(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, Entry{Key: e.Name(), Size: info.Size(), Modified: info.ModTime().UTC()})
	}
	sortEntries(out)
	return out, nil
}

// Load reads the result saved under key.
func (d *Dir) Load(ctx context.Context, key string) (*result.Document, error) {
	f, err := checkKey(key)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(filepath.Join(d.dir, key))
	if err != nil {
		return nil, mapFSError(err, "failed to open result")
	}
	defer file.Close()
	return result.Decode(file, f)
}

func sortEntries(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Modified.Equal(entries[j].Modified) {
			return entries[i].Key > entries[j].Key
		}
		return entries[i].Modified.After(entries[j].Modified)
	})
}

func mapFSError(err error, msg string) *errs.Error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return errs.Wrap(errs.ErrKindNotFound, msg, err)
	case errors.Is(err, fs.ErrPermission):
		return errs.Wrap(errs.ErrKindPermissionDenied, msg, err)
	default:
		return errs.Wrap(errs.ErrKindQueryFailed, msg, err)
	}
}
