// Package minio stores oversized correction source texts in object storage
// so the corrections table keeps only a bounded excerpt per row.
package minio

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/patentdesk/extraction-engine/internal/config"
	"github.com/patentdesk/extraction-engine/internal/domain/correction"
	"github.com/patentdesk/extraction-engine/internal/infrastructure/monitoring/logging"
	appErrors "github.com/patentdesk/extraction-engine/pkg/errors"
)

// ObjectStore is the slice of the minio-go client the archive needs.
// Narrowing the surface keeps tests free of a live server.
type ObjectStore interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (*minio.Object, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
}

// Archive implements the correction service's Archiver port on MinIO.
type Archive struct {
	store  ObjectStore
	bucket string
	logger logging.Logger

	ensureOnce sync.Once
	ensureErr  error
}

var _ correction.Archiver = (*Archive)(nil)

// NewArchive connects to MinIO and verifies the endpoint is reachable.
func NewArchive(cfg config.MinIOConfig, logger logging.Logger) (*Archive, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrCodeInternal, "failed to create minio client")
	}

	a := NewArchiveWithStore(client, cfg.Bucket, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.ensureBucket(ctx); err != nil {
		return nil, err
	}

	logger.Info("minio archive ready",
		logging.String("endpoint", cfg.Endpoint),
		logging.String("bucket", cfg.Bucket),
	)
	return a, nil
}

// NewArchiveWithStore wires the archive to an existing store.  Used by tests.
func NewArchiveWithStore(store ObjectStore, bucket string, logger logging.Logger) *Archive {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Archive{store: store, bucket: bucket, logger: logger.Named("archive")}
}

// Store writes the full source text under key.
func (a *Archive) Store(ctx context.Context, key string, text string) error {
	if err := a.ensureBucket(ctx); err != nil {
		return err
	}

	_, err := a.store.PutObject(ctx, a.bucket, key,
		strings.NewReader(text), int64(len(text)),
		minio.PutObjectOptions{ContentType: "text/plain; charset=utf-8"},
	)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrCodeCorrectionArchive, "failed to archive source text")
	}

	a.logger.Debug("source text archived",
		logging.String("key", key),
		logging.Int("bytes", len(text)),
	)
	return nil
}

// Fetch reads an archived source text back.  Used when an operator inspects
// a correction whose text was offloaded.
func (a *Archive) Fetch(ctx context.Context, key string) (string, error) {
	obj, err := a.store.GetObject(ctx, a.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrCodeCorrectionArchive, "failed to open archived text")
	}
	defer obj.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, obj); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrCodeCorrectionArchive, "failed to read archived text")
	}
	return buf.String(), nil
}

// Delete removes an archived text.  Test cleanup helper.
func (a *Archive) Delete(ctx context.Context, key string) error {
	if err := a.store.RemoveObject(ctx, a.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return appErrors.Wrap(err, appErrors.ErrCodeCorrectionArchive, "failed to delete archived text")
	}
	return nil
}

func (a *Archive) ensureBucket(ctx context.Context) error {
	a.ensureOnce.Do(func() {
		exists, err := a.store.BucketExists(ctx, a.bucket)
		if err != nil {
			a.ensureErr = appErrors.Wrap(err, appErrors.ErrCodeServiceUnavailable, "failed to check archive bucket")
			return
		}
		if !exists {
			if err := a.store.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{}); err != nil {
				a.ensureErr = appErrors.Wrap(err, appErrors.ErrCodeServiceUnavailable, "failed to create archive bucket")
				return
			}
			a.logger.Info("created archive bucket", logging.String("bucket", a.bucket))
		}
	})
	return a.ensureErr
}
