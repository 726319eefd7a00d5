package gcp

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/yungbote/lexbridge-backend/internal/platform/dbctx"
	"github.com/yungbote/lexbridge-backend/internal/platform/logger"
)

type BucketCategory string

const (
	// BucketCategoryDocument holds uploaded originals. Originals are never
	// overwritten after upload; labeling writes a new object under
	// BucketCategoryLabeled instead.
	BucketCategoryDocument BucketCategory = "document"
	BucketCategoryLabeled  BucketCategory = "labeled"
)

type bucketConfig struct {
	name      string
	cdnDomain string
}

type BucketService interface {
	UploadFile(dbc dbctx.Context, category BucketCategory, key string, file io.Reader) error
	DownloadFile(ctx context.Context, category BucketCategory, key string) (io.ReadCloser, error)
	DeleteFile(dbc dbctx.Context, category BucketCategory, key string) error
	ListKeys(ctx context.Context, category BucketCategory, prefix string) ([]string, error)
	GetPublicURL(category BucketCategory, key string) string
}

type bucketService struct {
	log            *logger.Logger
	storageClient  *storage.Client
	documentBucket bucketConfig
	labeledBucket  bucketConfig
}

func NewBucketService(log *logger.Logger) (BucketService, error) {
	serviceLog := log.With("service", "BucketService")

	documentBucketName := os.Getenv("DOCUMENT_GCS_BUCKET_NAME")
	if documentBucketName == "" {
		return nil, fmt.Errorf("missing env var DOCUMENT_GCS_BUCKET_NAME")
	}
	labeledBucketName := os.Getenv("LABELED_GCS_BUCKET_NAME")
	if labeledBucketName == "" {
		labeledBucketName = documentBucketName
	}

	ctx := context.Background()
	opts := []option.ClientOption{option.WithScopes(storage.ScopeReadWrite)}
	if creds := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); creds != "" {
		opts = append(opts, option.WithCredentialsFile(creds))
	}
	stClient, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	serviceLog.Info("Object storage initialized",
		"document_bucket", documentBucketName,
		"labeled_bucket", labeledBucketName,
	)

	return &bucketService{
		log:            serviceLog,
		storageClient:  stClient,
		documentBucket: bucketConfig{name: documentBucketName, cdnDomain: os.Getenv("DOCUMENT_CDN_DOMAIN")},
		labeledBucket:  bucketConfig{name: labeledBucketName, cdnDomain: os.Getenv("LABELED_CDN_DOMAIN")},
	}, nil
}

func (b *bucketService) bucketFor(category BucketCategory) (bucketConfig, error) {
	switch category {
	case BucketCategoryDocument:
		return b.documentBucket, nil
	case BucketCategoryLabeled:
		return b.labeledBucket, nil
	default:
		return bucketConfig{}, fmt.Errorf("unknown bucket category %q", category)
	}
}

func (b *bucketService) UploadFile(dbc dbctx.Context, category BucketCategory, key string, file io.Reader) error {
	cfg, err := b.bucketFor(category)
	if err != nil {
		return err
	}
	w := b.storageClient.Bucket(cfg.name).Object(key).NewWriter(dbc.Ctx)
	if _, err := io.Copy(w, file); err != nil {
		_ = w.Close()
		return fmt.Errorf("upload %s/%s: %w", cfg.name, key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("upload %s/%s: %w", cfg.name, key, err)
	}
	return nil
}

func (b *bucketService) DownloadFile(ctx context.Context, category BucketCategory, key string) (io.ReadCloser, error) {
	cfg, err := b.bucketFor(category)
	if err != nil {
		return nil, err
	}
	r, err := b.storageClient.Bucket(cfg.name).Object(key).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("download %s/%s: %w", cfg.name, key, err)
	}
	return r, nil
}

func (b *bucketService) DeleteFile(dbc dbctx.Context, category BucketCategory, key string) error {
	cfg, err := b.bucketFor(category)
	if err != nil {
		return err
	}
	if err := b.storageClient.Bucket(cfg.name).Object(key).Delete(dbc.Ctx); err != nil {
		if err == storage.ErrObjectNotExist {
			return nil
		}
		return fmt.Errorf("delete %s/%s: %w", cfg.name, key, err)
	}
	return nil
}

func (b *bucketService) ListKeys(ctx context.Context, category BucketCategory, prefix string) ([]string, error) {
	cfg, err := b.bucketFor(category)
	if err != nil {
		return nil, err
	}
	it := b.storageClient.Bucket(cfg.name).Objects(ctx, &storage.Query{Prefix: prefix})
	var keys []string
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list %s/%s*: %w", cfg.name, prefix, err)
		}
		keys = append(keys, attrs.Name)
	}
	return keys, nil
}

func (b *bucketService) GetPublicURL(category BucketCategory, key string) string {
	cfg, err := b.bucketFor(category)
	if err != nil {
		return ""
	}
	escaped := url.PathEscape(strings.TrimPrefix(key, "/"))
	if cfg.cdnDomain != "" {
		return fmt.Sprintf("https://%s/%s", cfg.cdnDomain, escaped)
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", cfg.name, escaped)
}
