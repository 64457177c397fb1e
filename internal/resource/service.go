package resource

import (
	"context"
	"io"

	"github.com/abduss/mediavault/internal/access"
	"github.com/abduss/mediavault/internal/apperr"
	"github.com/abduss/mediavault/internal/blobstore"
	"github.com/abduss/mediavault/internal/bucket"
)

type blobStore interface {
	ObjectExists(ctx context.Context, bucket, key string) (bool, error)
	StatObject(ctx context.Context, bucket, key string) (blobstore.ObjectStat, error)
	GetObject(ctx context.Context, bucket, key string) (blobstore.ObjectStat, io.ReadCloser, error)
	PutObject(ctx context.Context, bucket, key, name string, reader io.Reader, size int64, contentType string) error
	DeleteObject(ctx context.Context, bucket, key string) error
	ForEachPage(ctx context.Context, bucket string, fn func(blobstore.Page) error) error
}

type bucketAccess interface {
	RequireBucketAccess(ctx context.Context, caller access.Claims, bucketName string) error
}

// Service is the resource-catalog façade. Every operation re-validates the
// caller's bucket grant before touching the store.
type Service struct {
	store  blobStore
	access bucketAccess
}

// NewService constructs a resource service.
func NewService(store blobStore, access bucketAccess) *Service {
	return &Service{store: store, access: access}
}

// Exists reports resource presence. A missing bucket or object yields
// false, not an error, so the probe stays idempotent.
func (s *Service) Exists(ctx context.Context, caller access.Claims, bucketName, resourceID string) (bool, error) {
	if err := s.access.RequireBucketAccess(ctx, caller, bucketName); err != nil {
		return false, err
	}
	return s.store.ObjectExists(ctx, bucketName, resourceID)
}

// Download returns the resource with an open content stream. The caller
// must close Data.
func (s *Service) Download(ctx context.Context, caller access.Claims, bucketName, resourceID string) (Resource, error) {
	if err := s.access.RequireBucketAccess(ctx, caller, bucketName); err != nil {
		return Resource{}, err
	}

	stat, data, err := s.store.GetObject(ctx, bucketName, resourceID)
	if err != nil {
		return Resource{}, err
	}

	res := fromStat(stat)
	res.Data = data
	return res, nil
}

// Upload stores a new resource. Create-only: an existing object under the
// same id fails OperationNotValid rather than being overwritten.
func (s *Service) Upload(ctx context.Context, caller access.Claims, bucketName, resourceID, resourceName string, data io.Reader, size int64, contentType string) error {
	if err := s.access.RequireBucketAccess(ctx, caller, bucketName); err != nil {
		return err
	}

	exists, err := s.store.ObjectExists(ctx, bucketName, resourceID)
	if err != nil {
		return err
	}
	if exists {
		return apperr.New(apperr.KindOperationNotValid, "resource already exists").
			With("bucket", bucketName).With("key", resourceID)
	}

	return s.store.PutObject(ctx, bucketName, resourceID, resourceName, data, size, contentType)
}

// Delete removes a resource, failing OperationNotValid when it is absent.
func (s *Service) Delete(ctx context.Context, caller access.Claims, bucketName, resourceID string) error {
	if err := s.access.RequireBucketAccess(ctx, caller, bucketName); err != nil {
		return err
	}

	exists, err := s.store.ObjectExists(ctx, bucketName, resourceID)
	if err != nil {
		return err
	}
	if !exists {
		return apperr.New(apperr.KindOperationNotValid, "resource does not exist").
			With("bucket", bucketName).With("key", resourceID)
	}

	return s.store.DeleteObject(ctx, bucketName, resourceID)
}

// ListMetadata returns one page of resource metadata. TotalPages is
// computed by exhausting the listing, an O(object count) walk; buckets are
// per-user and expected to stay modest, so this is an accepted limit.
func (s *Service) ListMetadata(ctx context.Context, caller access.Claims, bucketName string, page, pageSize int) (Page, error) {
	if err := s.access.RequireBucketAccess(ctx, caller, bucketName); err != nil {
		return Page{}, err
	}
	if page < 1 || pageSize < 1 {
		return Page{}, apperr.New(apperr.KindOperationNotValid, "page and pageSize must be positive")
	}

	var entries []blobstore.ObjectEntry
	err := s.store.ForEachPage(ctx, bucketName, func(p blobstore.Page) error {
		entries = append(entries, p.Entries...)
		return nil
	})
	if err != nil {
		return Page{}, err
	}

	totalPages := (len(entries) + pageSize - 1) / pageSize

	start := (page - 1) * pageSize
	if start >= len(entries) {
		return Page{Items: []Resource{}, TotalPages: totalPages}, nil
	}
	end := start + pageSize
	if end > len(entries) {
		end = len(entries)
	}

	items := make([]Resource, 0, end-start)
	for _, entry := range entries[start:end] {
		stat, err := s.store.StatObject(ctx, bucketName, entry.Key)
		if err != nil {
			return Page{}, err
		}
		items = append(items, fromStat(stat))
	}

	return Page{Items: items, TotalPages: totalPages}, nil
}

// ListIDs returns every resource id in the bucket, in listing order. Export
// selection validates against this set.
func (s *Service) ListIDs(ctx context.Context, caller access.Claims, bucketName string) ([]string, error) {
	if err := s.access.RequireBucketAccess(ctx, caller, bucketName); err != nil {
		return nil, err
	}

	var ids []string
	err := s.store.ForEachPage(ctx, bucketName, func(p blobstore.Page) error {
		for _, entry := range p.Entries {
			ids = append(ids, entry.Key)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// Rename moves a resource to a new id and name by re-uploading the content
// and deleting the old object, applied symmetrically to the main bucket and
// its previews counterpart. The two halves are independent calls with no
// two-phase guarantee; a crash in between can leave them inconsistent.
func (s *Service) Rename(ctx context.Context, caller access.Claims, bucketName, resourceID, newID, newName string) error {
	if err := s.access.RequireBucketAccess(ctx, caller, bucketName); err != nil {
		return err
	}
	if resourceID == newID {
		return apperr.New(apperr.KindOperationNotValid, "new id matches current id").
			With("bucket", bucketName).With("key", resourceID)
	}

	if err := s.renameIn(ctx, bucketName, resourceID, newID, newName, true); err != nil {
		return err
	}
	return s.renameIn(ctx, bucket.PreviewsName(bucketName), resourceID, newID, newName, false)
}

// renameIn applies the upload-new/delete-old sequence within one bucket.
// The main half requires the source object; the previews half skips when no
// preview artifact was ever derived. The new id must be free: rename keeps
// the same create-only semantics as upload and never overwrites.
func (s *Service) renameIn(ctx context.Context, bucketName, resourceID, newID, newName string, required bool) error {
	if !required {
		exists, err := s.store.ObjectExists(ctx, bucketName, resourceID)
		if err != nil {
			return err
		}
		if !exists {
			return nil
		}
	}

	taken, err := s.store.ObjectExists(ctx, bucketName, newID)
	if err != nil {
		return err
	}
	if taken {
		return apperr.New(apperr.KindOperationNotValid, "new id already in use").
			With("bucket", bucketName).With("key", newID)
	}

	stat, data, err := s.store.GetObject(ctx, bucketName, resourceID)
	if err != nil {
		return err
	}
	defer data.Close()

	if err := s.store.PutObject(ctx, bucketName, newID, newName, data, stat.Size, stat.ContentType); err != nil {
		return err
	}
	return s.store.DeleteObject(ctx, bucketName, resourceID)
}

func fromStat(stat blobstore.ObjectStat) Resource {
	return Resource{
		ID:          stat.Key,
		Name:        stat.Name,
		UpdatedAt:   stat.UpdatedAt,
		ContentSize: stat.Size,
		ContentType: stat.ContentType,
	}
}
