// Package blobstore wraps the S3-compatible object store behind the small
// surface the resource, bucket, and export services consume. Every call
// round-trips to the store; there is no caching layer.
package blobstore

import (
	"context"
	"io"
	"time"

	"github.com/abduss/mediavault/internal/apperr"
	"github.com/minio/minio-go/v7"
)

// metaNameKey is the user-metadata key carrying the human resource name.
// MinIO transmits it as X-Amz-Meta-Resource-Name.
const metaNameKey = "Resource-Name"

const listPageSize = 1000

// ObjectStat describes a stored object without its content.
type ObjectStat struct {
	Key         string
	Name        string
	Size        int64
	ContentType string
	UpdatedAt   time.Time
}

// ObjectEntry is a single listing row.
type ObjectEntry struct {
	Key       string
	Size      int64
	UpdatedAt time.Time
}

// Page is one continuation-token window of a bucket listing.
type Page struct {
	Entries     []ObjectEntry
	NextToken   string
	IsTruncated bool
}

// Store adapts a MinIO client to the operations the services need.
type Store struct {
	client *minio.Client
	core   *minio.Core
}

// New constructs a Store around the low-level MinIO client.
func New(core *minio.Core) *Store {
	return &Store{client: core.Client, core: core}
}

// ObjectExists reports whether the object is present. A missing bucket or
// key yields false rather than an error; other store failures propagate.
func (s *Store) ObjectExists(ctx context.Context, bucket, key string) (bool, error) {
	_, err := s.client.StatObject(ctx, bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, storeErr("stat object", bucket, key, err)
	}
	return true, nil
}

// StatObject returns object metadata, failing NotFound on absence.
func (s *Store) StatObject(ctx context.Context, bucket, key string) (ObjectStat, error) {
	info, err := s.client.StatObject(ctx, bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return ObjectStat{}, apperr.New(apperr.KindNotFound, "resource not found").
				With("bucket", bucket).With("key", key)
		}
		return ObjectStat{}, storeErr("stat object", bucket, key, err)
	}
	return statFromInfo(info), nil
}

// GetObject returns object metadata and a content stream. The caller owns
// closing the reader.
func (s *Store) GetObject(ctx context.Context, bucket, key string) (ObjectStat, io.ReadCloser, error) {
	stat, err := s.StatObject(ctx, bucket, key)
	if err != nil {
		return ObjectStat{}, nil, err
	}

	object, err := s.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return ObjectStat{}, nil, storeErr("get object", bucket, key, err)
	}
	return stat, object, nil
}

// PutObject stores the stream under key, recording the human resource name
// as user metadata so listings and archives can recover it.
func (s *Store) PutObject(ctx context.Context, bucket, key, name string, reader io.Reader, size int64, contentType string) error {
	opts := minio.PutObjectOptions{
		ContentType:  contentType,
		UserMetadata: map[string]string{metaNameKey: name},
	}

	if _, err := s.client.PutObject(ctx, bucket, key, reader, size, opts); err != nil {
		return storeErr("put object", bucket, key, err)
	}
	return nil
}

// DeleteObject removes a single object.
func (s *Store) DeleteObject(ctx context.Context, bucket, key string) error {
	if err := s.client.RemoveObject(ctx, bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return storeErr("delete object", bucket, key, err)
	}
	return nil
}

// DeleteObjects bulk-removes the given keys.
func (s *Store) DeleteObjects(ctx context.Context, bucket string, keys []string) error {
	if len(keys) == 0 {
		return nil
	}

	objectsCh := make(chan minio.ObjectInfo, len(keys))
	for _, key := range keys {
		objectsCh <- minio.ObjectInfo{Key: key}
	}
	close(objectsCh)

	for removeErr := range s.client.RemoveObjects(ctx, bucket, objectsCh, minio.RemoveObjectsOptions{}) {
		if removeErr.Err != nil {
			return storeErr("bulk delete", bucket, removeErr.ObjectName, removeErr.Err)
		}
	}
	return nil
}

// ListPage fetches one listing window starting at the continuation token.
// An empty token starts enumeration from the beginning.
func (s *Store) ListPage(ctx context.Context, bucket, token string) (Page, error) {
	result, err := s.core.ListObjectsV2(bucket, "", "", token, "", listPageSize)
	if err != nil {
		if isNotFound(err) {
			return Page{}, apperr.New(apperr.KindNotFound, "bucket not found").
				With("bucket", bucket)
		}
		return Page{}, storeErr("list objects", bucket, "", err)
	}

	page := Page{
		NextToken:   result.NextContinuationToken,
		IsTruncated: result.IsTruncated,
		Entries:     make([]ObjectEntry, 0, len(result.Contents)),
	}
	for _, obj := range result.Contents {
		page.Entries = append(page.Entries, ObjectEntry{
			Key:       obj.Key,
			Size:      obj.Size,
			UpdatedAt: obj.LastModified,
		})
	}
	return page, nil
}

// ForEachPage walks the full listing, invoking fn once per window until the
// store reports no further continuation token. Listing, bulk-delete, and
// export-validation paths all share this loop.
func (s *Store) ForEachPage(ctx context.Context, bucket string, fn func(Page) error) error {
	token := ""
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		page, err := s.ListPage(ctx, bucket, token)
		if err != nil {
			return err
		}
		if err := fn(page); err != nil {
			return err
		}
		if !page.IsTruncated {
			return nil
		}
		token = page.NextToken
	}
}

// CreateBucket creates an empty bucket container.
func (s *Store) CreateBucket(ctx context.Context, name string) error {
	if err := s.client.MakeBucket(ctx, name, minio.MakeBucketOptions{}); err != nil {
		return storeErr("create bucket", name, "", err)
	}
	return nil
}

// DeleteBucket removes an empty bucket container.
func (s *Store) DeleteBucket(ctx context.Context, name string) error {
	if err := s.client.RemoveBucket(ctx, name); err != nil {
		return storeErr("delete bucket", name, "", err)
	}
	return nil
}

// BucketExists reports bucket presence.
func (s *Store) BucketExists(ctx context.Context, name string) (bool, error) {
	exists, err := s.client.BucketExists(ctx, name)
	if err != nil {
		return false, storeErr("check bucket", name, "", err)
	}
	return exists, nil
}

// ListBuckets returns all bucket names in the store.
func (s *Store) ListBuckets(ctx context.Context) ([]string, error) {
	infos, err := s.client.ListBuckets(ctx)
	if err != nil {
		return nil, storeErr("list buckets", "", "", err)
	}

	names := make([]string, 0, len(infos))
	for _, info := range infos {
		names = append(names, info.Name)
	}
	return names, nil
}

func statFromInfo(info minio.ObjectInfo) ObjectStat {
	return ObjectStat{
		Key:         info.Key,
		Name:        resourceNameFrom(info),
		Size:        info.Size,
		ContentType: info.ContentType,
		UpdatedAt:   info.LastModified,
	}
}

func resourceNameFrom(info minio.ObjectInfo) string {
	for key, value := range info.UserMetadata {
		if key == metaNameKey || key == "resource-name" || key == "X-Amz-Meta-Resource-Name" {
			return value
		}
	}
	// objects written outside the upload path fall back to their key
	return info.Key
}

func isNotFound(err error) bool {
	resp := minio.ToErrorResponse(err)
	switch resp.Code {
	case "NoSuchKey", "NoSuchBucket", "NotFound":
		return true
	}
	return resp.StatusCode == 404
}

func storeErr(op, bucket, key string, cause error) *apperr.Error {
	err := apperr.Wrap(apperr.KindStore, op+" failed", cause).With("op", op)
	if bucket != "" {
		err = err.With("bucket", bucket)
	}
	if key != "" {
		err = err.With("key", key)
	}
	return err
}
