// Package uploadbatch groups files into request-sized batches before
// calling the upload endpoint, so no single request exceeds the server's
// body-size ceiling.
package uploadbatch

import "io"

// File is one upload candidate. Open is called lazily per request attempt.
type File struct {
	Name string
	Size int64
	Open func() (io.ReadCloser, error)
}

// Batch is one multipart upload request worth of files.
type Batch struct {
	Files []File
}

// TotalSize sums the declared sizes of the batch's files.
func (b Batch) TotalSize() int64 {
	var total int64
	for _, f := range b.Files {
		total += f.Size
	}
	return total
}

// Split groups files into batches whose total size stays within threshold.
// Files keep their original order and appear in exactly one batch. A single
// file larger than the threshold is emitted alone, since it can never fit
// alongside anything else.
func Split(files []File, threshold int64) []Batch {
	var batches []Batch
	var pending []File
	var pendingSize int64

	flush := func() {
		if len(pending) == 0 {
			return
		}
		batches = append(batches, Batch{Files: pending})
		pending = nil
		pendingSize = 0
	}

	for _, f := range files {
		if f.Size > threshold {
			flush()
			batches = append(batches, Batch{Files: []File{f}})
			continue
		}
		if pendingSize+f.Size > threshold {
			flush()
		}
		pending = append(pending, f)
		pendingSize += f.Size
	}
	flush()

	return batches
}
