package storage

import (
	"fmt"
	"strings"

	"github.com/abduss/mediavault/internal/config"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// NewMinIOCore establishes a low-level MinIO client using the provided
// configuration. The Core client exposes continuation-token object listing
// on top of the regular bucket and object operations.
func NewMinIOCore(cfg config.MinIOConfig) (*minio.Core, error) {
	endpoint := cfg.Endpoint
	if !strings.Contains(endpoint, ":") {
		// default to MinIO API port when not supplied explicitly
		endpoint = fmt.Sprintf("%s:9000", endpoint)
	}

	core, err := minio.NewCore(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	return core, nil
}
