// Package storage stocke les photos des plats dans MinIO.
package storage

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
	PublicURL string // préfixe des URLs publiques, par défaut http(s)://endpoint
}

type ImageStore struct {
	client *minio.Client
	bucket string
	base   string
}

func Connect(cfg Config) (*ImageStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("MinIO non configuré: %w", err)
	}
	log.Println("✅ Connecté à MinIO :", cfg.Endpoint)
	return &ImageStore{client: client, bucket: cfg.Bucket, base: publicBase(cfg)}, nil
}

func publicBase(cfg Config) string {
	if cfg.PublicURL != "" {
		return strings.TrimRight(cfg.PublicURL, "/")
	}
	scheme := "http"
	if cfg.UseSSL {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s", scheme, cfg.Endpoint)
}

// EnsureBucket crée le bucket s'il n'existe pas encore
func (s *ImageStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return err
	}
	log.Printf("✅ Bucket MinIO %s créé", s.bucket)
	return nil
}

func (s *ImageStore) Upload(ctx context.Context, key, contentType string, size int64, r io.Reader) (string, error) {
	_, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", err
	}
	return s.ObjectURL(key), nil
}

func (s *ImageStore) ObjectURL(key string) string {
	return fmt.Sprintf("%s/%s/%s", s.base, s.bucket, key)
}

// SignedURL génère une URL temporaire pour un objet du bucket (URL complète ou clé)
func (s *ImageStore) SignedURL(ctx context.Context, objectPath string, ttl time.Duration) (string, error) {
	key := strings.TrimPrefix(objectPath, s.base+"/"+s.bucket+"/")
	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, ttl, make(url.Values))
	if err != nil {
		return "", err
	}
	return u.String(), nil
}
