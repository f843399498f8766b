package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/zorins376-hub/music-bot/config"
	"github.com/zorins376-hub/music-bot/logger"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// AudioArchive keeps delivered mp3 files in object storage so that a track
// evicted from the delivery cache can be re-sent without a provider fetch.
// The zero value is a disabled archive: every lookup misses, every store is
// skipped.
type AudioArchive struct {
	client *minio.Client
	bucket string
}

// NewAudioArchive connects to the configured endpoint. With no endpoint it
// returns a disabled archive.
func NewAudioArchive(ctx context.Context, cfg *config.Config) (*AudioArchive, error) {
	if cfg.MinioEndpoint == "" {
		logger.Info("[Archive] no endpoint configured, archive disabled")
		return &AudioArchive{}, nil
	}

	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
		Region: cfg.MinioRegion,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	a := &AudioArchive{client: client, bucket: cfg.MinioBucket}
	if err := a.ensureBucket(ctx, cfg.MinioRegion); err != nil {
		return nil, err
	}
	logger.Info("[Archive] connected",
		logger.String("endpoint", cfg.MinioEndpoint),
		logger.String("bucket", cfg.MinioBucket))
	return a, nil
}

func (a *AudioArchive) ensureBucket(ctx context.Context, region string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	exists, err := a.client.BucketExists(ctx, a.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", a.bucket, err)
	}
	if exists {
		return nil
	}
	if err := a.client.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{Region: region}); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", a.bucket, err)
	}
	logger.Info("[Archive] bucket created", logger.String("bucket", a.bucket))
	return nil
}

// Enabled reports whether an endpoint is configured.
func (a *AudioArchive) Enabled() bool {
	return a != nil && a.client != nil
}

// ObjectKey is the storage key of one rendition of a track.
func ObjectKey(externalID string, bitrate int) string {
	return fmt.Sprintf("audio/%s/%d.mp3", externalID, bitrate)
}

// Get copies the archived rendition to dst. found is false when the object
// does not exist.
func (a *AudioArchive) Get(ctx context.Context, externalID string, bitrate int, dst string) (bool, error) {
	if !a.Enabled() {
		return false, nil
	}
	key := ObjectKey(externalID, bitrate)
	if _, err := a.client.StatObject(ctx, a.bucket, key, minio.StatObjectOptions{}); err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat %s: %w", key, err)
	}
	if err := a.client.FGetObject(ctx, a.bucket, key, dst, minio.GetObjectOptions{}); err != nil {
		return false, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return true, nil
}

// Put uploads the file at path as the given rendition.
func (a *AudioArchive) Put(ctx context.Context, externalID string, bitrate int, path string) error {
	if !a.Enabled() {
		return nil
	}
	key := ObjectKey(externalID, bitrate)
	_, err := a.client.FPutObject(ctx, a.bucket, key, path, minio.PutObjectOptions{ContentType: "audio/mpeg"})
	if err != nil {
		return fmt.Errorf("failed to put %s: %w", key, err)
	}
	return nil
}
