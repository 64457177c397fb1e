// Package export streams a selected subset of a bucket's objects into a
// zip archive, staging each object on local disk before appending it.
package export

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/abduss/mediavault/internal/access"
	"github.com/abduss/mediavault/internal/apperr"
	"github.com/abduss/mediavault/internal/blobstore"
	"github.com/google/uuid"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"
	"go.uber.org/zap"
)

type blobStore interface {
	GetObject(ctx context.Context, bucket, key string) (blobstore.ObjectStat, io.ReadCloser, error)
}

type resourceCatalog interface {
	ListIDs(ctx context.Context, caller access.Claims, bucketName string) ([]string, error)
}

// Pipeline turns bucket objects into a streaming zip archive.
type Pipeline struct {
	store       blobStore
	catalog     resourceCatalog
	stagingRoot string
	level       int
	log         *zap.Logger
}

// NewPipeline constructs an export pipeline staging under root and
// compressing entries at the given flate level.
func NewPipeline(store blobStore, catalog resourceCatalog, stagingRoot string, level int, log *zap.Logger) *Pipeline {
	if level < flate.HuffmanOnly || level > flate.BestCompression {
		level = flate.BestCompression
	}
	return &Pipeline{
		store:       store,
		catalog:     catalog,
		stagingRoot: stagingRoot,
		level:       level,
		log:         log,
	}
}

// Export writes a zip archive of the selected objects to sink. An empty ids
// slice exports the whole bucket. Selection is validated against the
// authoritative id set before any staging happens. Objects are staged and
// appended strictly one at a time to bound memory and disk usage; the
// archive encoder consumes each as the loop produces it. The staging
// directory is left behind for the janitor sweep.
func (p *Pipeline) Export(ctx context.Context, caller access.Claims, bucketName string, ids []string, sink io.Writer) error {
	authoritative, err := p.catalog.ListIDs(ctx, caller, bucketName)
	if err != nil {
		return err
	}
	if len(authoritative) == 0 {
		return apperr.New(apperr.KindOperationNotValid, "bucket has no resources to export").
			With("bucket", bucketName)
	}

	selected, err := selectIDs(authoritative, ids, bucketName)
	if err != nil {
		return err
	}

	jobID := uuid.NewString()
	stagingDir := filepath.Join(p.stagingRoot, jobID)
	if err := os.MkdirAll(stagingDir, 0o755); err != nil {
		return apperr.Wrap(apperr.KindStore, "create staging directory", err).
			With("dir", stagingDir)
	}

	p.log.Info("export started",
		zap.String("bucket", bucketName),
		zap.String("job_id", jobID),
		zap.Int("objects", len(selected)))

	zw := zip.NewWriter(sink)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, p.level)
	})

	for _, id := range selected {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := p.appendObject(ctx, zw, bucketName, id, stagingDir); err != nil {
			return err
		}
	}

	if err := zw.Close(); err != nil {
		return apperr.Wrap(apperr.KindStore, "finalize archive", err).
			With("bucket", bucketName)
	}
	return nil
}

// appendObject downloads one object into the staging directory, then adds
// the staged file to the archive under the resource's human-readable name.
func (p *Pipeline) appendObject(ctx context.Context, zw *zip.Writer, bucketName, id, stagingDir string) error {
	stat, data, err := p.store.GetObject(ctx, bucketName, id)
	if err != nil {
		return err
	}

	stagedPath := filepath.Join(stagingDir, stagedFileName(id))
	if err := stageToFile(stagedPath, data); err != nil {
		return apperr.Wrap(apperr.KindStore, "stage object", err).
			With("bucket", bucketName).With("key", id)
	}

	entry, err := zw.CreateHeader(&zip.FileHeader{
		Name:     stat.Name,
		Method:   zip.Deflate,
		Modified: stat.UpdatedAt,
	})
	if err != nil {
		return apperr.Wrap(apperr.KindStore, "create archive entry", err).
			With("bucket", bucketName).With("key", id)
	}

	staged, err := os.Open(stagedPath)
	if err != nil {
		return apperr.Wrap(apperr.KindStore, "open staged file", err).
			With("key", id)
	}
	defer staged.Close()

	if _, err := io.Copy(entry, staged); err != nil {
		return apperr.Wrap(apperr.KindStore, "write archive entry", err).
			With("bucket", bucketName).With("key", id)
	}
	return nil
}

func stageToFile(path string, data io.ReadCloser) error {
	defer data.Close()

	f, err := os.Create(path)
	if err != nil {
		return err
	}

	if _, err := io.Copy(f, data); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// selectIDs resolves the export selection: empty means everything, and any
// requested id outside the authoritative set is rejected.
func selectIDs(authoritative, requested []string, bucketName string) ([]string, error) {
	if len(requested) == 0 {
		return authoritative, nil
	}

	known := make(map[string]struct{}, len(authoritative))
	for _, id := range authoritative {
		known[id] = struct{}{}
	}

	for _, id := range requested {
		if _, ok := known[id]; !ok {
			return nil, apperr.New(apperr.KindOperationNotValid, "selected id not in bucket").
				With("bucket", bucketName).With("key", id)
		}
	}
	return requested, nil
}

// stagedFileName flattens an object id into a single path segment.
func stagedFileName(id string) string {
	flat := strings.ReplaceAll(id, "/", "_")
	if flat == "" || flat == "." || flat == ".." {
		return fmt.Sprintf("object-%s", uuid.NewString())
	}
	return flat
}
