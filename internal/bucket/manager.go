package bucket

import (
	"context"
	"strings"

	"github.com/abduss/mediavault/internal/apperr"
	"github.com/abduss/mediavault/internal/blobstore"
	"github.com/abduss/mediavault/internal/grant"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type blobStore interface {
	BucketExists(ctx context.Context, name string) (bool, error)
	CreateBucket(ctx context.Context, name string) error
	DeleteBucket(ctx context.Context, name string) error
	ListBuckets(ctx context.Context) ([]string, error)
	ForEachPage(ctx context.Context, bucket string, fn func(blobstore.Page) error) error
	DeleteObjects(ctx context.Context, bucket string, keys []string) error
}

type grantStore interface {
	Apply(ctx context.Context, commands []grant.Command) error
}

// Manager drives the lifecycle of a bucket pair: the main bucket and its
// previews counterpart are created and destroyed together.
type Manager struct {
	store  blobStore
	grants grantStore
	log    *zap.Logger
}

// NewManager constructs a bucket lifecycle manager.
func NewManager(store blobStore, grants grantStore, log *zap.Logger) *Manager {
	return &Manager{store: store, grants: grants, log: log}
}

// Create provisions the bucket and its previews counterpart. The two
// creations are separate remote calls with no compensating rollback: if the
// second fails, the first bucket stays behind as an orphan.
func (m *Manager) Create(ctx context.Context, name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}

	exists, err := m.store.BucketExists(ctx, name)
	if err != nil {
		return err
	}
	if exists {
		return apperr.New(apperr.KindOperationNotValid, "bucket already exists").
			With("bucket", name)
	}

	if err := m.store.CreateBucket(ctx, name); err != nil {
		return err
	}
	if err := m.store.CreateBucket(ctx, PreviewsName(name)); err != nil {
		m.log.Error("previews bucket creation failed, main bucket orphaned",
			zap.String("bucket", name), zap.Error(err))
		return err
	}

	return nil
}

// Delete destroys the bucket pair and cascades grant cleanup. Both halves
// must be present before anything is touched; a half-missing pair fails
// OperationNotValid without deleting the surviving half.
func (m *Manager) Delete(ctx context.Context, name string) error {
	previews := PreviewsName(name)

	for _, half := range []string{name, previews} {
		exists, err := m.store.BucketExists(ctx, half)
		if err != nil {
			return err
		}
		if !exists {
			return apperr.New(apperr.KindOperationNotValid, "bucket pair incomplete").
				With("bucket", name).With("missing", half)
		}
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error { return m.emptyBucket(egCtx, name) })
	eg.Go(func() error { return m.emptyBucket(egCtx, previews) })
	if err := eg.Wait(); err != nil {
		return err
	}

	if err := m.store.DeleteBucket(ctx, name); err != nil {
		return err
	}
	if err := m.store.DeleteBucket(ctx, previews); err != nil {
		return err
	}

	return m.grants.Apply(ctx, []grant.Command{
		{Kind: grant.CommandRevokeBucket, BucketName: name},
	})
}

// ListGrantable returns all main buckets in the store, filtering out the
// previews halves.
func (m *Manager) ListGrantable(ctx context.Context) ([]string, error) {
	names, err := m.store.ListBuckets(ctx)
	if err != nil {
		return nil, err
	}

	mains := make([]string, 0, len(names))
	for _, n := range names {
		if !strings.HasSuffix(n, PreviewsSuffix) {
			mains = append(mains, n)
		}
	}
	return mains, nil
}

// emptyBucket pages through the listing, bulk-deleting each window until no
// continuation token remains.
func (m *Manager) emptyBucket(ctx context.Context, name string) error {
	return m.store.ForEachPage(ctx, name, func(page blobstore.Page) error {
		if len(page.Entries) == 0 {
			return nil
		}
		keys := make([]string, 0, len(page.Entries))
		for _, entry := range page.Entries {
			keys = append(keys, entry.Key)
		}
		return m.store.DeleteObjects(ctx, name, keys)
	})
}
