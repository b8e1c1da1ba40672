// Package snapshot preserves records before a destructive pass deletes them:
// a local JSON export, optionally uploaded to S3-compatible storage. With no
// bucket configured, snapshots stay local.
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/verdantlabs/curator/internal/config"
	"github.com/verdantlabs/curator/internal/reconcile"
	"github.com/verdantlabs/curator/internal/record"
)

// ErrNotConfigured is returned when S3 snapshot storage is not configured.
var ErrNotConfigured = errors.New("snapshot storage not configured")

// Uploader copies a snapshot file to remote storage.
type Uploader interface {
	// Upload uploads the snapshot file at filePath under the given object key.
	Upload(ctx context.Context, key string, filePath string) error
}

// s3Client defines the minimal minio.Client surface used by S3Uploader.
// This interface enables testing with mock implementations.
type s3Client interface {
	FPutObject(ctx context.Context, bucket, objectName, filePath string) error
}

// minioClientWrapper wraps *minio.Client to satisfy the s3Client interface.
type minioClientWrapper struct {
	client *minio.Client
}

func (w *minioClientWrapper) FPutObject(ctx context.Context, bucket, objectName, filePath string) error {
	_, err := w.client.FPutObject(ctx, bucket, objectName, filePath, minio.PutObjectOptions{
		ContentType: "application/json",
	})
	return err
}

// S3Uploader uploads snapshots to S3-compatible storage.
type S3Uploader struct {
	client s3Client
	bucket string
}

// Upload implements Uploader.
func (u *S3Uploader) Upload(ctx context.Context, key string, filePath string) error {
	if err := u.client.FPutObject(ctx, u.bucket, key, filePath); err != nil {
		return fmt.Errorf("upload snapshot: %w", err)
	}
	return nil
}

// NoopUploader is used when S3 storage is not configured.
type NoopUploader struct{}

// Upload is a no-op when S3 is not configured.
func (NoopUploader) Upload(ctx context.Context, key string, filePath string) error {
	return nil
}

// NewUploader creates the appropriate Uploader based on configuration.
// Returns NoopUploader when bucket is empty, S3Uploader otherwise.
func NewUploader(cfg config.SnapshotConfig) (Uploader, error) {
	if cfg.Bucket == "" {
		return NoopUploader{}, nil
	}

	useSSL := true
	if cfg.UseSSL != nil {
		useSSL = *cfg.UseSSL
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: useSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create S3 client: %w", err)
	}

	return &S3Uploader{client: &minioClientWrapper{client: client}, bucket: cfg.Bucket}, nil
}

// Compile-time interface check
var _ reconcile.Archiver = (*Exporter)(nil)

// Exporter writes doomed records to a timestamped JSON file and hands it to
// the uploader. It implements reconcile.Archiver.
type Exporter struct {
	dir      string
	uploader Uploader
	now      func() time.Time
}

// NewExporter creates an exporter writing into dir.
func NewExporter(dir string, uploader Uploader) *Exporter {
	if uploader == nil {
		uploader = NoopUploader{}
	}
	return &Exporter{dir: dir, uploader: uploader, now: time.Now}
}

// export mirrors the snapshot file layout.
type export struct {
	Pass      string          `json:"pass"`
	CreatedAt string          `json:"created_at"`
	Count     int             `json:"count"`
	Records   []record.Record `json:"records"`
}

// Archive writes records to a snapshot file and uploads it when storage is
// configured. Returns the local file path as the archive reference.
func (e *Exporter) Archive(ctx context.Context, pass string, records []record.Record) (string, error) {
	if err := os.MkdirAll(e.dir, 0755); err != nil {
		return "", fmt.Errorf("create snapshot directory: %w", err)
	}

	ts := e.now().UTC()
	name := fmt.Sprintf("%s-%s.json", pass, ts.Format("20060102T150405Z"))
	path := filepath.Join(e.dir, name)

	payload, err := json.MarshalIndent(export{
		Pass:      pass,
		CreatedAt: ts.Format(time.RFC3339),
		Count:     len(records),
		Records:   records,
	}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}

	if err := os.WriteFile(path, payload, 0644); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}

	if err := e.uploader.Upload(ctx, name, path); err != nil {
		return "", err
	}

	return path, nil
}
