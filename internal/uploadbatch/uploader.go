package uploadbatch

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"sync"
)

// Progress reports cumulative upload state after each completed batch.
type Progress struct {
	SentBytes     int64
	TotalBytes    int64
	UploadedFiles int
	TotalFiles    int
}

// Percent returns completion as a percentage of total bytes.
func (p Progress) Percent() float64 {
	if p.TotalBytes == 0 {
		return 0
	}
	return float64(p.SentBytes) / float64(p.TotalBytes) * 100
}

// Uploader drives batched multipart uploads against the resource endpoint.
type Uploader struct {
	client     *http.Client
	baseURL    string
	token      string
	threshold  int64
	onProgress func(Progress)

	mu       sync.Mutex
	progress Progress
}

// NewUploader constructs an uploader. threshold is the maximum batch byte
// size, matching the server's request body ceiling. onProgress may be nil.
func NewUploader(client *http.Client, baseURL, token string, threshold int64, onProgress func(Progress)) *Uploader {
	if client == nil {
		client = http.DefaultClient
	}
	return &Uploader{
		client:     client,
		baseURL:    baseURL,
		token:      token,
		threshold:  threshold,
		onProgress: onProgress,
	}
}

// Progress returns the current cumulative upload state.
func (u *Uploader) Progress() Progress {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.progress
}

// Upload sends all files to the bucket in threshold-bounded batches. Each
// batch is one multipart request; a failed batch fails the whole upload. On
// cancellation the remaining batches are skipped and progress resets.
func (u *Uploader) Upload(ctx context.Context, bucketName string, files []File) error {
	batches := Split(files, u.threshold)

	var totalBytes int64
	for _, f := range files {
		totalBytes += f.Size
	}
	u.setProgress(Progress{TotalBytes: totalBytes, TotalFiles: len(files)})

	for _, batch := range batches {
		if err := u.sendBatch(ctx, bucketName, batch); err != nil {
			if ctx.Err() != nil {
				u.setProgress(Progress{})
				return ctx.Err()
			}
			return err
		}
		u.advance(batch)
	}
	return nil
}

func (u *Uploader) sendBatch(ctx context.Context, bucketName string, batch Batch) error {
	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)

	go func() {
		pw.CloseWithError(writeBatchBody(writer, batch))
	}()

	url := fmt.Sprintf("%s/v1/buckets/%s/resources", u.baseURL, bucketName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, pr)
	if err != nil {
		return fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+u.token)

	resp, err := u.client.Do(req)
	if err != nil {
		return fmt.Errorf("upload batch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("upload batch rejected: status %d: %s", resp.StatusCode, body)
	}
	return nil
}

func writeBatchBody(writer *multipart.Writer, batch Batch) error {
	for _, f := range batch.Files {
		part, err := writer.CreateFormFile("files", f.Name)
		if err != nil {
			return err
		}

		content, err := f.Open()
		if err != nil {
			return err
		}
		if _, err := io.Copy(part, content); err != nil {
			content.Close()
			return err
		}
		if err := content.Close(); err != nil {
			return err
		}
	}
	return writer.Close()
}

func (u *Uploader) advance(batch Batch) {
	u.mu.Lock()
	u.progress.SentBytes += batch.TotalSize()
	u.progress.UploadedFiles += len(batch.Files)
	snapshot := u.progress
	u.mu.Unlock()

	if u.onProgress != nil {
		u.onProgress(snapshot)
	}
}

func (u *Uploader) setProgress(p Progress) {
	u.mu.Lock()
	u.progress = p
	u.mu.Unlock()
}
