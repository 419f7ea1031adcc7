package invoices

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/auric-jewels/api/internal/platform/storage"
)

type stubUploader struct {
	bucket      string
	object      string
	contentType string
	data        []byte
	err         error
}

func (s *stubUploader) Upload(_ context.Context, bucket, object, contentType string, data []byte) error {
	if s.err != nil {
		return s.err
	}
	s.bucket = bucket
	s.object = object
	s.contentType = contentType
	s.data = append([]byte(nil), data...)
	return nil
}

type stubSigner struct {
	result storage.SignedURLResult
	err    error
	bucket string
	object string
	expiry time.Duration
}

func (s *stubSigner) SignedDownloadURL(_ context.Context, bucket, object string, expiresIn time.Duration) (storage.SignedURLResult, error) {
	s.bucket = bucket
	s.object = object
	s.expiry = expiresIn
	if s.err != nil {
		return storage.SignedURLResult{}, s.err
	}
	return s.result, nil
}

func TestNewStoreValidation(t *testing.T) {
	uploader := &stubUploader{}
	signer := &stubSigner{}

	if _, err := NewStore(Config{Uploader: uploader, Signer: signer}); err == nil {
		t.Fatal("expected error for missing bucket")
	}
	if _, err := NewStore(Config{Bucket: "b", Signer: signer}); err == nil {
		t.Fatal("expected error for missing uploader")
	}
	if _, err := NewStore(Config{Bucket: "b", Uploader: uploader}); err == nil {
		t.Fatal("expected error for missing signer")
	}
}

func TestPutUploadsAndSigns(t *testing.T) {
	expires := time.Date(2024, 5, 2, 9, 0, 0, 0, time.UTC)
	uploader := &stubUploader{}
	signer := &stubSigner{result: storage.SignedURLResult{URL: "https://signed.example/invoice", ExpiresAt: expires}}

	store, err := NewStore(Config{Bucket: "auric-invoices", Uploader: uploader, Signer: signer, LinkTTL: 2 * time.Hour})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stored, err := store.Put(context.Background(), "order123", "<html>invoice</html>")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if stored.URL != "https://signed.example/invoice" {
		t.Fatalf("unexpected url %q", stored.URL)
	}
	if !stored.ExpiresAt.Equal(expires) {
		t.Fatalf("unexpected expiry %v", stored.ExpiresAt)
	}
	if stored.Object != "invoices/order123.html" {
		t.Fatalf("unexpected object %q", stored.Object)
	}
	if uploader.bucket != "auric-invoices" || uploader.object != "invoices/order123.html" {
		t.Fatalf("unexpected upload target %s/%s", uploader.bucket, uploader.object)
	}
	if !strings.Contains(uploader.contentType, "text/html") {
		t.Fatalf("unexpected content type %q", uploader.contentType)
	}
	if signer.expiry != 2*time.Hour {
		t.Fatalf("unexpected link ttl %v", signer.expiry)
	}
}

func TestPutRejectsEmptyInputs(t *testing.T) {
	store, err := NewStore(Config{Bucket: "b", Uploader: &stubUploader{}, Signer: &stubSigner{}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := store.Put(context.Background(), " ", "<html></html>"); err == nil {
		t.Fatal("expected error for missing order id")
	}
	if _, err := store.Put(context.Background(), "order123", "  "); err == nil {
		t.Fatal("expected error for empty body")
	}
}

func TestPutPropagatesFailures(t *testing.T) {
	signer := &stubSigner{}
	store, err := NewStore(Config{Bucket: "b", Uploader: &stubUploader{err: errors.New("denied")}, Signer: signer})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := store.Put(context.Background(), "order123", "<html></html>"); err == nil {
		t.Fatal("expected upload error")
	}

	signer.err = errors.New("sign failed")
	store, err = NewStore(Config{Bucket: "b", Uploader: &stubUploader{}, Signer: signer})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := store.Put(context.Background(), "order123", "<html></html>"); err == nil {
		t.Fatal("expected signing error")
	}
}
