package resource

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"testing"
	"time"

	"github.com/abduss/mediavault/internal/access"
	"github.com/abduss/mediavault/internal/apperr"
	"github.com/abduss/mediavault/internal/blobstore"
	"github.com/abduss/mediavault/internal/bucket"
)

func TestExistsIsIdempotent(t *testing.T) {
	store := newFakeStore()
	store.put("alpha", "id-1", "a.png", "image/png", []byte("png-bytes"))
	service := NewService(store, allowAll{})

	caller := userCaller()
	for i := 0; i < 2; i++ {
		exists, err := service.Exists(context.Background(), caller, "alpha", "id-1")
		if err != nil {
			t.Fatalf("Exists returned error: %v", err)
		}
		if !exists {
			t.Fatalf("expected resource to exist on probe %d", i+1)
		}
	}

	missing, err := service.Exists(context.Background(), caller, "alpha", "id-2")
	if err != nil {
		t.Fatalf("Exists returned error for missing resource: %v", err)
	}
	if missing {
		t.Fatalf("expected missing resource to probe false")
	}
}

func TestExistsFalseForMissingBucket(t *testing.T) {
	service := NewService(newFakeStore(), allowAll{})

	exists, err := service.Exists(context.Background(), userCaller(), "nowhere", "id-1")
	if err != nil {
		t.Fatalf("expected no error for missing bucket, got %v", err)
	}
	if exists {
		t.Fatalf("expected false for missing bucket")
	}
}

func TestUploadDownloadRoundTrip(t *testing.T) {
	store := newFakeStore()
	service := NewService(store, allowAll{})
	caller := userCaller()

	payload := []byte("the movie bytes")
	err := service.Upload(context.Background(), caller, "alpha", "id-1", "clip.mp4",
		bytes.NewReader(payload), int64(len(payload)), "video/mp4")
	if err != nil {
		t.Fatalf("Upload returned error: %v", err)
	}

	res, err := service.Download(context.Background(), caller, "alpha", "id-1")
	if err != nil {
		t.Fatalf("Download returned error: %v", err)
	}
	defer res.Data.Close()

	got, err := io.ReadAll(res.Data)
	if err != nil {
		t.Fatalf("read content: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("content mismatch: got %q", got)
	}
	if res.ContentSize != int64(len(payload)) {
		t.Fatalf("expected size %d, got %d", len(payload), res.ContentSize)
	}
	if res.Name != "clip.mp4" || res.ContentType != "video/mp4" {
		t.Fatalf("unexpected metadata: %+v", res)
	}

	ids, err := service.ListIDs(context.Background(), caller, "alpha")
	if err != nil {
		t.Fatalf("ListIDs returned error: %v", err)
	}
	if len(ids) != 1 || ids[0] != "id-1" {
		t.Fatalf("expected uploaded id listed, got %v", ids)
	}
}

func TestUploadRejectsDuplicate(t *testing.T) {
	store := newFakeStore()
	store.put("alpha", "id-1", "a.png", "image/png", []byte("x"))
	service := NewService(store, allowAll{})

	err := service.Upload(context.Background(), userCaller(), "alpha", "id-1", "a.png",
		bytes.NewReader([]byte("y")), 1, "image/png")
	if !apperr.IsKind(err, apperr.KindOperationNotValid) {
		t.Fatalf("expected OperationNotValid for duplicate upload, got %v", err)
	}
}

func TestDeleteMissingResource(t *testing.T) {
	store := newFakeStore()
	store.put("alpha", "id-1", "a.png", "image/png", []byte("x"))
	service := NewService(store, allowAll{})
	caller := userCaller()

	if err := service.Delete(context.Background(), caller, "alpha", "id-1"); err != nil {
		t.Fatalf("first delete returned error: %v", err)
	}

	for i := 0; i < 2; i++ {
		err := service.Delete(context.Background(), caller, "alpha", "id-1")
		if !apperr.IsKind(err, apperr.KindOperationNotValid) {
			t.Fatalf("delete %d: expected OperationNotValid, got %v", i+2, err)
		}
	}
}

func TestDownloadMissingResource(t *testing.T) {
	service := NewService(newFakeStore(), allowAll{})

	_, err := service.Download(context.Background(), userCaller(), "alpha", "ghost")
	if !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestListMetadataTwoObjectsPageSizeOne(t *testing.T) {
	store := newFakeStore()
	store.put("alpha", "a.png", "a.png", "image/png", []byte("a"))
	store.put("alpha", "b.mp4", "b.mp4", "video/mp4", []byte("bb"))
	service := NewService(store, allowAll{})
	caller := userCaller()

	page1, err := service.ListMetadata(context.Background(), caller, "alpha", 1, 1)
	if err != nil {
		t.Fatalf("page 1 returned error: %v", err)
	}
	if page1.TotalPages != 2 || len(page1.Items) != 1 || page1.Items[0].ID != "a.png" {
		t.Fatalf("unexpected page 1: %+v", page1)
	}

	page2, err := service.ListMetadata(context.Background(), caller, "alpha", 2, 1)
	if err != nil {
		t.Fatalf("page 2 returned error: %v", err)
	}
	if page2.TotalPages != 2 || len(page2.Items) != 1 || page2.Items[0].ID != "b.mp4" {
		t.Fatalf("unexpected page 2: %+v", page2)
	}

	page3, err := service.ListMetadata(context.Background(), caller, "alpha", 3, 1)
	if err != nil {
		t.Fatalf("page 3 returned error: %v", err)
	}
	if page3.TotalPages != 2 || len(page3.Items) != 0 {
		t.Fatalf("expected empty page beyond last with same total, got %+v", page3)
	}
}

func TestListMetadataCoversEveryObjectExactlyOnce(t *testing.T) {
	store := newFakeStore()
	const n = 7
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("id-%02d", i)
		store.put("alpha", id, id+".bin", "application/octet-stream", []byte{byte(i)})
	}
	service := NewService(store, allowAll{})
	caller := userCaller()

	for _, pageSize := range []int{1, 2, 3, n, n + 5} {
		wantPages := (n + pageSize - 1) / pageSize

		seen := map[string]int{}
		first, err := service.ListMetadata(context.Background(), caller, "alpha", 1, pageSize)
		if err != nil {
			t.Fatalf("pageSize %d: %v", pageSize, err)
		}
		if first.TotalPages != wantPages {
			t.Fatalf("pageSize %d: expected %d total pages, got %d", pageSize, wantPages, first.TotalPages)
		}

		for page := 1; page <= first.TotalPages; page++ {
			result, err := service.ListMetadata(context.Background(), caller, "alpha", page, pageSize)
			if err != nil {
				t.Fatalf("pageSize %d page %d: %v", pageSize, page, err)
			}
			for _, item := range result.Items {
				seen[item.ID]++
			}
		}

		if len(seen) != n {
			t.Fatalf("pageSize %d: expected %d distinct items, got %d", pageSize, n, len(seen))
		}
		for id, count := range seen {
			if count != 1 {
				t.Fatalf("pageSize %d: item %s appeared %d times", pageSize, id, count)
			}
		}
	}
}

func TestListMetadataRejectsInvalidPaging(t *testing.T) {
	service := NewService(newFakeStore(), allowAll{})

	for _, tc := range []struct{ page, size int }{{0, 1}, {1, 0}, {-1, 5}} {
		_, err := service.ListMetadata(context.Background(), userCaller(), "alpha", tc.page, tc.size)
		if !apperr.IsKind(err, apperr.KindOperationNotValid) {
			t.Fatalf("page=%d size=%d: expected OperationNotValid, got %v", tc.page, tc.size, err)
		}
	}
}

func TestRenameMovesBothBucketHalves(t *testing.T) {
	store := newFakeStore()
	store.put("alpha", "old-id", "old.mp4", "video/mp4", []byte("main-content"))
	store.put(bucket.PreviewsName("alpha"), "old-id", "old.mp4", "image/jpeg", []byte("preview"))
	service := NewService(store, allowAll{})
	caller := userCaller()

	err := service.Rename(context.Background(), caller, "alpha", "old-id", "new-id", "new.mp4")
	if err != nil {
		t.Fatalf("Rename returned error: %v", err)
	}

	for _, half := range []string{"alpha", bucket.PreviewsName("alpha")} {
		if store.has(half, "old-id") {
			t.Fatalf("expected old id removed from %s", half)
		}
		obj, ok := store.get(half, "new-id")
		if !ok {
			t.Fatalf("expected new id present in %s", half)
		}
		if obj.name != "new.mp4" {
			t.Fatalf("expected renamed object in %s, got name %q", half, obj.name)
		}
	}

	if string(store.mustGet(t, "alpha", "new-id").data) != "main-content" {
		t.Fatalf("main content changed across rename")
	}
	if string(store.mustGet(t, bucket.PreviewsName("alpha"), "new-id").data) != "preview" {
		t.Fatalf("preview content changed across rename")
	}
}

func TestRenameWithoutPreviewArtifact(t *testing.T) {
	store := newFakeStore()
	store.put("alpha", "old-id", "old.png", "image/png", []byte("img"))
	service := NewService(store, allowAll{})

	err := service.Rename(context.Background(), userCaller(), "alpha", "old-id", "new-id", "new.png")
	if err != nil {
		t.Fatalf("expected rename without preview to succeed, got %v", err)
	}
	if !store.has("alpha", "new-id") || store.has("alpha", "old-id") {
		t.Fatalf("main bucket not renamed correctly")
	}
}

func TestRenamePreviewsFailureLeavesHalvesInconsistent(t *testing.T) {
	store := newFakeStore()
	store.put("alpha", "old-id", "old.mp4", "video/mp4", []byte("main-content"))
	store.put(bucket.PreviewsName("alpha"), "old-id", "old.mp4", "image/jpeg", []byte("preview"))
	store.failPutIn = map[string]bool{bucket.PreviewsName("alpha"): true}
	service := NewService(store, allowAll{})

	err := service.Rename(context.Background(), userCaller(), "alpha", "old-id", "new-id", "new.mp4")
	if err == nil {
		t.Fatal("expected previews-half failure to propagate")
	}

	// the two halves are independent calls with no two-phase guarantee:
	// the main bucket already holds the new id while the previews bucket
	// still holds the stale one
	if !store.has("alpha", "new-id") || store.has("alpha", "old-id") {
		t.Fatalf("main bucket must carry the completed rename")
	}
	if !store.has(bucket.PreviewsName("alpha"), "old-id") {
		t.Fatalf("previews bucket must keep the stale id after the failed half")
	}
	if store.has(bucket.PreviewsName("alpha"), "new-id") {
		t.Fatalf("previews bucket must not hold the new id")
	}
}

func TestRenameRejectsOccupiedNewID(t *testing.T) {
	store := newFakeStore()
	store.put("alpha", "old-id", "old.png", "image/png", []byte("old"))
	store.put("alpha", "new-id", "other.png", "image/png", []byte("other"))
	service := NewService(store, allowAll{})

	err := service.Rename(context.Background(), userCaller(), "alpha", "old-id", "new-id", "new.png")
	if !apperr.IsKind(err, apperr.KindOperationNotValid) {
		t.Fatalf("expected OperationNotValid, got %v", err)
	}

	if !store.has("alpha", "old-id") {
		t.Fatalf("rejected rename must leave the source object in place")
	}
	if string(store.mustGet(t, "alpha", "new-id").data) != "other" {
		t.Fatalf("rejected rename must not overwrite the occupying object")
	}
}

func TestOperationsRequireGrant(t *testing.T) {
	store := newFakeStore()
	store.put("alpha", "id-1", "a.png", "image/png", []byte("x"))
	gate := denyAll{}
	service := NewService(store, gate)
	caller := userCaller()
	ctx := context.Background()

	if _, err := service.Exists(ctx, caller, "alpha", "id-1"); !apperr.IsKind(err, apperr.KindForbidden) {
		t.Fatalf("Exists: expected Forbidden, got %v", err)
	}
	if _, err := service.Download(ctx, caller, "alpha", "id-1"); !apperr.IsKind(err, apperr.KindForbidden) {
		t.Fatalf("Download: expected Forbidden, got %v", err)
	}
	err := service.Upload(ctx, caller, "alpha", "id-2", "b.png", bytes.NewReader([]byte("y")), 1, "image/png")
	if !apperr.IsKind(err, apperr.KindForbidden) {
		t.Fatalf("Upload: expected Forbidden, got %v", err)
	}
	if err := service.Delete(ctx, caller, "alpha", "id-1"); !apperr.IsKind(err, apperr.KindForbidden) {
		t.Fatalf("Delete: expected Forbidden, got %v", err)
	}
	if _, err := service.ListMetadata(ctx, caller, "alpha", 1, 10); !apperr.IsKind(err, apperr.KindForbidden) {
		t.Fatalf("ListMetadata: expected Forbidden, got %v", err)
	}
	if store.has("alpha", "id-2") {
		t.Fatalf("forbidden upload must not reach the store")
	}
}

// --- helpers & fakes ---

func userCaller() access.Claims {
	return access.Claims{UserID: "11111111-1111-1111-1111-111111111111", Role: access.RoleUser}
}

type allowAll struct{}

func (allowAll) RequireBucketAccess(context.Context, access.Claims, string) error { return nil }

type denyAll struct{}

func (denyAll) RequireBucketAccess(_ context.Context, _ access.Claims, bucketName string) error {
	return apperr.New(apperr.KindForbidden, "bucket not granted to caller").With("bucket", bucketName)
}

type storedObject struct {
	key         string
	name        string
	contentType string
	data        []byte
	updatedAt   time.Time
}

// fakeStore is an in-memory object store that paginates listings in small
// windows so continuation-token handling is exercised.
type fakeStore struct {
	buckets   map[string][]storedObject
	pageSize  int
	failPutIn map[string]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{buckets: make(map[string][]storedObject), pageSize: 2}
}

func (f *fakeStore) put(bucketName, key, name, contentType string, data []byte) {
	f.buckets[bucketName] = append(f.buckets[bucketName], storedObject{
		key:         key,
		name:        name,
		contentType: contentType,
		data:        data,
		updatedAt:   time.Now(),
	})
}

func (f *fakeStore) get(bucketName, key string) (storedObject, bool) {
	for _, obj := range f.buckets[bucketName] {
		if obj.key == key {
			return obj, true
		}
	}
	return storedObject{}, false
}

func (f *fakeStore) mustGet(t *testing.T, bucketName, key string) storedObject {
	t.Helper()
	obj, ok := f.get(bucketName, key)
	if !ok {
		t.Fatalf("expected object %s/%s", bucketName, key)
	}
	return obj
}

func (f *fakeStore) has(bucketName, key string) bool {
	_, ok := f.get(bucketName, key)
	return ok
}

func (f *fakeStore) ObjectExists(_ context.Context, bucketName, key string) (bool, error) {
	return f.has(bucketName, key), nil
}

func (f *fakeStore) StatObject(_ context.Context, bucketName, key string) (blobstore.ObjectStat, error) {
	obj, ok := f.get(bucketName, key)
	if !ok {
		return blobstore.ObjectStat{}, apperr.New(apperr.KindNotFound, "resource not found").
			With("bucket", bucketName).With("key", key)
	}
	return blobstore.ObjectStat{
		Key:         obj.key,
		Name:        obj.name,
		Size:        int64(len(obj.data)),
		ContentType: obj.contentType,
		UpdatedAt:   obj.updatedAt,
	}, nil
}

func (f *fakeStore) GetObject(ctx context.Context, bucketName, key string) (blobstore.ObjectStat, io.ReadCloser, error) {
	stat, err := f.StatObject(ctx, bucketName, key)
	if err != nil {
		return blobstore.ObjectStat{}, nil, err
	}
	obj, _ := f.get(bucketName, key)
	return stat, io.NopCloser(bytes.NewReader(obj.data)), nil
}

func (f *fakeStore) PutObject(_ context.Context, bucketName, key, name string, reader io.Reader, size int64, contentType string) error {
	if f.failPutIn[bucketName] {
		return apperr.New(apperr.KindStore, "put failed").
			With("bucket", bucketName).With("key", key)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	f.put(bucketName, key, name, contentType, data)
	return nil
}

func (f *fakeStore) DeleteObject(_ context.Context, bucketName, key string) error {
	objects := f.buckets[bucketName]
	for i, obj := range objects {
		if obj.key == key {
			f.buckets[bucketName] = append(objects[:i:i], objects[i+1:]...)
			return nil
		}
	}
	return apperr.New(apperr.KindStore, "delete of unknown key").With("key", key)
}

func (f *fakeStore) ForEachPage(_ context.Context, bucketName string, fn func(blobstore.Page) error) error {
	objects := f.buckets[bucketName]
	start := 0
	for {
		end := start + f.pageSize
		if end > len(objects) {
			end = len(objects)
		}

		page := blobstore.Page{IsTruncated: end < len(objects)}
		for _, obj := range objects[start:end] {
			page.Entries = append(page.Entries, blobstore.ObjectEntry{
				Key:       obj.key,
				Size:      int64(len(obj.data)),
				UpdatedAt: obj.updatedAt,
			})
		}
		if page.IsTruncated {
			page.NextToken = strconv.Itoa(end)
		}

		if err := fn(page); err != nil {
			return err
		}
		if !page.IsTruncated {
			return nil
		}
		start = end
	}
}
