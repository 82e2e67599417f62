package store

import (
	"bytes"
	"context"
	"path"
	"strings"
	"time"

	"github.com/koustreak/blindsight/internal/errs"
	"github.com/koustreak/blindsight/internal/filestore"
	"github.com/koustreak/blindsight/internal/logger"
	"github.com/koustreak/blindsight/internal/result"
)

// Object keeps results in an object store bucket under an optional prefix.
type Object struct {
	fs     filestore.Store
	bucket string
	prefix string
	format result.Format
	log    *logger.Logger
}

// NewObject returns a store writing to bucket, creating the bucket if needed.
func NewObject(ctx context.Context, fs filestore.Store, bucket, prefix string, format result.Format, log *logger.Logger) (*Object, error) {
	if bucket == "" {
		return nil, errs.New(errs.ErrKindInvalidInput, "bucket is required")
	}
	if log == nil {
		log = logger.Global()
	}
	if err := fs.EnsureBucket(ctx, bucket); err != nil {
		return nil, err
	}
	prefix = strings.Trim(prefix, "/")
	if prefix != "" {
		prefix += "/"
	}
	return &Object{fs: fs, bucket: bucket, prefix: prefix, format: format, log: log.Component("store")}, nil
}

func (o *Object) Save(ctx context.Context, doc *result.Document) (string, error) {
	data, err := result.Marshal(o.format, doc)
	if err != nil {
		return "", err
	}
	key := o.prefix + Key(doc, o.format)
	info, err := o.fs.PutObject(ctx, o.bucket, key, bytes.NewReader(data), int64(len(data)), filestore.PutOptions{
		ContentType: o.format.ContentType(),
		Metadata:    metadata(doc),
	})
	if err != nil {
		return "", err
	}
	o.log.Debugf("uploaded %d bytes to %s/%s", info.Size, o.bucket, info.Key)
	return o.bucket + "/" + key, nil
}

// List returns saved results under the prefix, newest first. Keys are
// relative to the prefix.
func (o *Object) List(ctx context.Context) ([]Entry, error) {
	objects, err := o.fs.ListObjects(ctx, o.bucket, filestore.ListOptions{
		Prefix:       o.prefix + keyPrefix,
		WithMetadata: true,
	})
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(objects))
	for _, obj := range objects {
		key := strings.TrimPrefix(obj.Key, o.prefix)
		if !isResultKey(key) {
			continue
		}
		out = append(out, Entry{
			Key:      key,
			Size:     obj.Size,
			Modified: obj.LastModified.UTC(),
			ID:       obj.Metadata[metaID],
			State:    obj.Metadata[metaState],
			Dialect:  obj.Metadata[metaDialect],
		})
	}
	sortEntries(out)
	return out, nil
}

func (o *Object) Load(ctx context.Context, key string) (*result.Document, error) {
	f, err := checkKey(key)
	if err != nil {
		return nil, err
	}
	obj, err := o.fs.GetObject(ctx, o.bucket, o.prefix+key)
	if err != nil {
		return nil, err
	}
	defer obj.Close()
	return result.Decode(obj, f)
}

// URL returns a presigned download link for a saved result.
func (o *Object) URL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if _, err := checkKey(key); err != nil {
		return "", err
	}
	full := path.Join(o.prefix, key)
	if _, err := o.fs.StatObject(ctx, o.bucket, full); err != nil {
		return "", err
	}
	return o.fs.PresignGetURL(ctx, o.bucket, full, ttl)
}
