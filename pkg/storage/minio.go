package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog/log"
)

// sniffLen is how much of the body is read to detect the content type
const sniffLen = 3072

// Object describes a stored file
type Object struct {
	URL      string
	Key      string // object key in storage
	FileName string
	FileSize int64
	MimeType string
}

// MinIOStorage stores relayed files in a public-read bucket
type MinIOStorage struct {
	client    *minio.Client
	bucket    string
	endpoint  string
	publicURL string // External URL
	useSSL    bool
}

// Config holds MinIO connection configuration
type Config struct {
	Endpoint  string
	PublicURL string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// NewMinIO connects to MinIO and makes sure the bucket exists
func NewMinIO(ctx context.Context, cfg Config) (*MinIOStorage, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MinIO: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket: %w", err)
	}

	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
		log.Info().Str("bucket", cfg.Bucket).Msg("📦 Created MinIO bucket")

		policy := `{
			"Version": "2012-10-17",
			"Statement": [{
				"Effect": "Allow",
				"Principal": {"AWS": ["*"]},
				"Action": ["s3:GetObject"],
				"Resource": ["arn:aws:s3:::` + cfg.Bucket + `/*"]
			}]
		}`
		if err := client.SetBucketPolicy(ctx, cfg.Bucket, policy); err != nil {
			log.Warn().Err(err).Msg("⚠️  Failed to set bucket policy")
		}
	}

	return &MinIOStorage{
		client:    client,
		bucket:    cfg.Bucket,
		endpoint:  cfg.Endpoint,
		publicURL: cfg.PublicURL,
		useSSL:    cfg.UseSSL,
	}, nil
}

// Put stores body under a dated, unique key. The content type is sniffed
// from the first bytes of the body.
func (s *MinIOStorage) Put(ctx context.Context, fileName string, body io.Reader, size int64) (*Object, error) {
	body, mime, err := Sniff(body)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	key := ObjectKey(Folder(mime), fileName, time.Now())
	if _, err := s.client.PutObject(ctx, s.bucket, key, body, size, minio.PutObjectOptions{
		ContentType: mime,
	}); err != nil {
		return nil, fmt.Errorf("failed to upload file: %w", err)
	}

	return &Object{
		URL:      s.PublicURL(key),
		Key:      key,
		FileName: fileName,
		FileSize: size,
		MimeType: mime,
	}, nil
}

// Delete removes a stored object
func (s *MinIOStorage) Delete(ctx context.Context, key string) error {
	return s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
}

// PublicURL returns the public URL for an object
func (s *MinIOStorage) PublicURL(key string) string {
	if s.publicURL != "" {
		return fmt.Sprintf("%s/%s/%s", strings.TrimRight(s.publicURL, "/"), s.bucket, key)
	}

	scheme := "http"
	if s.useSSL {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s/%s", scheme, s.endpoint, s.bucket, key)
}

// Sniff detects the MIME type of body and returns a reader that still
// yields the full content
func Sniff(body io.Reader) (io.Reader, string, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(body, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, "", err
	}
	head = head[:n]
	mime := mimetype.Detect(head).String()
	if i := strings.Index(mime, ";"); i >= 0 {
		mime = mime[:i]
	}
	return io.MultiReader(bytes.NewReader(head), body), mime, nil
}

// Folder routes a MIME type to a top-level folder
func Folder(mime string) string {
	switch {
	case strings.HasPrefix(mime, "image/"):
		return "images"
	case strings.HasPrefix(mime, "video/"):
		return "videos"
	case strings.HasPrefix(mime, "audio/"):
		return "audio"
	}
	return "files"
}

// ObjectKey builds folder/yyyy/mm/dd/<uuid><ext>
func ObjectKey(folder, fileName string, now time.Time) string {
	return fmt.Sprintf("%s/%s/%s%s",
		folder,
		now.Format("2006/01/02"),
		uuid.New().String(),
		strings.ToLower(filepath.Ext(fileName)),
	)
}
