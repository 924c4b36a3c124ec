package s3

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/Abdurahmanit/GroupProject/property-service/internal/listing/asset"
	"github.com/Abdurahmanit/GroupProject/property-service/internal/platform/logger"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// S3Storage stores images in a MinIO/S3 bucket under a fixed object prefix.
// Locators are path-style URLs: <endpoint>/<bucket>/<prefix>/<name>.
type S3Storage struct {
	client *minio.Client
	bucket string
	prefix string
	logger *logger.Logger
}

func NewS3Storage(ctx context.Context, endpoint, accessKey, secretKey, bucketName, objectPrefix string, useSSL bool, log *logger.Logger) (*S3Storage, error) {
	log = log.Named("S3Storage")
	log.Info("Initializing S3 storage", zap.String("endpoint", endpoint), zap.String("bucket", bucketName), zap.Bool("use_ssl", useSSL))

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client for %s: %w", endpoint, err)
	}

	s := &S3Storage{
		client: client,
		bucket: bucketName,
		prefix: strings.Trim(objectPrefix, "/"),
		logger: log,
	}
	if err := s.ensureBucket(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *S3Storage) ensureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", s.bucket, err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("make bucket %s: %w", s.bucket, err)
		}
		s.logger.Info("Bucket created", zap.String("bucket", s.bucket))
	}

	// Listing photos are linked directly from the frontend.
	if err := s.client.SetBucketPolicy(ctx, s.bucket, publicReadPolicy(s.bucket, s.prefix)); err != nil {
		s.logger.Warn("Failed to set public-read policy, image URLs may not be reachable", zap.String("bucket", s.bucket), zap.Error(err))
	}
	return nil
}

func (s *S3Storage) Kind() asset.Kind { return asset.KindRemote }

func (s *S3Storage) Put(ctx context.Context, u asset.Upload) (string, error) {
	key := s.key(asset.ObjectName(u.Filename))
	contentType := u.ContentType
	if contentType == "" {
		contentType = http.DetectContentType(u.Data)
	}

	info, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(u.Data), int64(len(u.Data)), minio.PutObjectOptions{
		ContentType:  contentType,
		UserMetadata: map[string]string{"original-filename": u.Filename},
	})
	if err != nil {
		s.logger.Error("PutObject failed", zap.String("key", key), zap.Error(err))
		return "", fmt.Errorf("upload %s to bucket %s: %w", key, s.bucket, err)
	}
	s.logger.Debug("Object uploaded", zap.String("key", info.Key), zap.Int64("size", info.Size))
	return s.URL(key), nil
}

// Delete removes an object. Missing objects are not an error.
func (s *S3Storage) Delete(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove %s from bucket %s: %w", key, s.bucket, err)
	}
	return nil
}

// URL is the public locator for key.
func (s *S3Storage) URL(key string) string {
	return fmt.Sprintf("%s/%s/%s", strings.TrimRight(s.client.EndpointURL().String(), "/"), s.bucket, key)
}

func (s *S3Storage) key(name string) string {
	if s.prefix == "" {
		return name
	}
	return s.prefix + "/" + name
}

func publicReadPolicy(bucket, prefix string) string {
	resource := "arn:aws:s3:::" + bucket + "/*"
	if prefix != "" {
		resource = "arn:aws:s3:::" + bucket + "/" + prefix + "/*"
	}
	return fmt.Sprintf(`{"Version":"2012-10-17","Statement":[{"Effect":"Allow","Principal":{"AWS":["*"]},"Action":["s3:GetObject"],"Resource":["%s"]}]}`, resource)
}
