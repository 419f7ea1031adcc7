// Package invoices persists rendered order invoices to Cloud Storage and
// issues time-limited download links for receipt emails.
package invoices

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	gcs "cloud.google.com/go/storage"

	"github.com/auric-jewels/api/internal/platform/storage"
)

const (
	invoiceContentType = "text/html; charset=utf-8"
	defaultLinkTTL     = 72 * time.Hour
)

// Logger receives structured store events.
type Logger func(ctx context.Context, event string, fields map[string]any)

// ObjectUploader writes an object payload into a bucket.
type ObjectUploader interface {
	Upload(ctx context.Context, bucket, object, contentType string, data []byte) error
}

// DownloadSigner mints signed GET URLs for stored objects.
type DownloadSigner interface {
	SignedDownloadURL(ctx context.Context, bucket, object string, expiresIn time.Duration) (storage.SignedURLResult, error)
}

// Config wires the store collaborators.
type Config struct {
	Bucket   string
	Uploader ObjectUploader
	Signer   DownloadSigner
	LinkTTL  time.Duration
	Logger   Logger
	Clock    func() time.Time
}

// Store uploads invoice documents and returns signed links to them.
type Store struct {
	bucket   string
	uploader ObjectUploader
	signer   DownloadSigner
	linkTTL  time.Duration
	logger   Logger
	now      func() time.Time
}

// NewStore validates the configuration and builds a Store.
func NewStore(cfg Config) (*Store, error) {
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, errors.New("invoices: bucket is required")
	}
	if cfg.Uploader == nil {
		return nil, errors.New("invoices: uploader is required")
	}
	if cfg.Signer == nil {
		return nil, errors.New("invoices: signer is required")
	}

	store := &Store{
		bucket:   bucket,
		uploader: cfg.Uploader,
		signer:   cfg.Signer,
		linkTTL:  cfg.LinkTTL,
		logger:   cfg.Logger,
		now:      cfg.Clock,
	}
	if store.linkTTL <= 0 {
		store.linkTTL = defaultLinkTTL
	}
	if store.now == nil {
		store.now = time.Now
	}
	return store, nil
}

// StoredInvoice describes the uploaded invoice and its download link.
type StoredInvoice struct {
	Object    string
	URL       string
	ExpiresAt time.Time
}

// Put uploads the rendered invoice HTML for the order and returns a signed
// download URL. Re-uploading for the same order overwrites the prior object.
func (s *Store) Put(ctx context.Context, orderID string, html string) (StoredInvoice, error) {
	if s == nil {
		return StoredInvoice{}, errors.New("invoices: store is not initialised")
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return StoredInvoice{}, errors.New("invoices: order id is required")
	}
	if strings.TrimSpace(html) == "" {
		return StoredInvoice{}, errors.New("invoices: document body is empty")
	}

	object := ObjectPath(orderID)
	if err := s.uploader.Upload(ctx, s.bucket, object, invoiceContentType, []byte(html)); err != nil {
		s.log(ctx, "invoices.upload.failed", map[string]any{"order_id": orderID, "object": object, "error": err.Error()})
		return StoredInvoice{}, fmt.Errorf("invoices: upload %s: %w", object, err)
	}

	signed, err := s.signer.SignedDownloadURL(ctx, s.bucket, object, s.linkTTL)
	if err != nil {
		s.log(ctx, "invoices.sign.failed", map[string]any{"order_id": orderID, "object": object, "error": err.Error()})
		return StoredInvoice{}, fmt.Errorf("invoices: sign %s: %w", object, err)
	}

	s.log(ctx, "invoices.stored", map[string]any{"order_id": orderID, "object": object})
	return StoredInvoice{Object: object, URL: signed.URL, ExpiresAt: signed.ExpiresAt}, nil
}

func (s *Store) log(ctx context.Context, event string, fields map[string]any) {
	if s.logger != nil {
		s.logger(ctx, event, fields)
	}
}

// ObjectPath returns the bucket-relative object key for an order invoice.
func ObjectPath(orderID string) string {
	return fmt.Sprintf("invoices/%s.html", strings.TrimSpace(orderID))
}

// GCSUploader adapts a Cloud Storage client to the ObjectUploader interface.
type GCSUploader struct {
	client *gcs.Client
}

// NewGCSUploader wraps the provided Cloud Storage client.
func NewGCSUploader(client *gcs.Client) (*GCSUploader, error) {
	if client == nil {
		return nil, errors.New("invoices: storage client is required")
	}
	return &GCSUploader{client: client}, nil
}

// Upload writes the payload to bucket/object with the given content type.
func (u *GCSUploader) Upload(ctx context.Context, bucket, object, contentType string, data []byte) error {
	if u == nil || u.client == nil {
		return errors.New("invoices: uploader is not initialised")
	}

	writer := u.client.Bucket(bucket).Object(object).NewWriter(ctx)
	writer.ContentType = contentType
	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return fmt.Errorf("write object: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close object writer: %w", err)
	}
	return nil
}
