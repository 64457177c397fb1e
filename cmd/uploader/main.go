// Command uploader pushes local files into a MediaVault bucket, batching
// them so no single request exceeds the server's body-size ceiling.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/abduss/mediavault/internal/uploadbatch"
)

func main() {
	serverURL := flag.String("server", "http://localhost:8080", "MediaVault API base URL")
	token := flag.String("token", "", "bearer access token")
	bucketName := flag.String("bucket", "", "target bucket name")
	maxBatch := flag.Int64("max-batch-bytes", 100<<20, "maximum batch size in bytes")
	flag.Parse()

	if *token == "" || *bucketName == "" || flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: uploader -token TOKEN -bucket NAME [flags] FILE...")
		flag.PrintDefaults()
		os.Exit(2)
	}

	files, err := collectFiles(flag.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	uploader := uploadbatch.NewUploader(http.DefaultClient, *serverURL, *token, *maxBatch,
		func(p uploadbatch.Progress) {
			fmt.Printf("uploaded %d/%d files (%.1f%%)\n", p.UploadedFiles, p.TotalFiles, p.Percent())
		})

	if err := uploader.Upload(ctx, *bucketName, files); err != nil {
		fmt.Fprintf(os.Stderr, "upload failed: %v\n", err)
		os.Exit(1)
	}
}

func collectFiles(paths []string) ([]uploadbatch.File, error) {
	files := make([]uploadbatch.File, 0, len(paths))
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, err
		}
		if info.IsDir() {
			return nil, fmt.Errorf("%s is a directory", path)
		}

		path := path
		files = append(files, uploadbatch.File{
			Name: filepath.Base(path),
			Size: info.Size(),
			Open: func() (io.ReadCloser, error) { return os.Open(path) },
		})
	}
	return files, nil
}
