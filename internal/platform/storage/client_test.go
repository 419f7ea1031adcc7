package storage

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"
)

type fakeSigner struct {
	email    string
	payloads [][]byte
	err      error
}

func (f *fakeSigner) Email() string {
	return f.email
}

func (f *fakeSigner) SignBytes(_ context.Context, payload []byte) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.payloads = append(f.payloads, append([]byte(nil), payload...))
	return []byte("signed"), nil
}

func TestNewClientRequiresSigner(t *testing.T) {
	if _, err := NewClient(nil); err == nil {
		t.Fatal("expected error for nil signer")
	}
	if _, err := NewClient(&fakeSigner{email: "  "}); err == nil {
		t.Fatal("expected error for signer without email")
	}
}

func TestSignedDownloadURL(t *testing.T) {
	signer := &fakeSigner{email: "svc@example.iam.gserviceaccount.com"}
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	client, err := NewClient(signer, WithClock(func() time.Time { return fixed }))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result, err := client.SignedDownloadURL(context.Background(), "auric-invoices", "invoices/order123.html", time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := fixed.Add(time.Hour); !result.ExpiresAt.Equal(want) {
		t.Fatalf("expected expiry %v, got %v", want, result.ExpiresAt)
	}

	parsed, err := url.Parse(result.URL)
	if err != nil {
		t.Fatalf("invalid signed url: %v", err)
	}
	if !strings.Contains(parsed.Host, "auric-invoices") && !strings.Contains(parsed.Path, "auric-invoices") {
		t.Fatalf("signed url does not reference bucket: %s", result.URL)
	}
	if !strings.Contains(parsed.Path, "invoices/order123.html") {
		t.Fatalf("signed url does not reference object: %s", result.URL)
	}
	if len(signer.payloads) == 0 {
		t.Fatal("expected signer to be invoked")
	}
}

func TestSignedDownloadURLValidation(t *testing.T) {
	signer := &fakeSigner{email: "svc@example.iam.gserviceaccount.com"}
	client, err := NewClient(signer)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := client.SignedDownloadURL(context.Background(), " ", "object", time.Minute); err == nil {
		t.Fatal("expected error for missing bucket")
	}
	if _, err := client.SignedDownloadURL(context.Background(), "bucket", " ", time.Minute); err == nil {
		t.Fatal("expected error for missing object")
	}
	if _, err := client.SignedDownloadURL(context.Background(), "bucket", "object", 8*24*time.Hour); err == nil {
		t.Fatal("expected error for excessive expiry")
	}
}

func TestSignedDownloadURLSignerFailure(t *testing.T) {
	signer := &fakeSigner{email: "svc@example.iam.gserviceaccount.com", err: errors.New("boom")}
	client, err := NewClient(signer)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := client.SignedDownloadURL(context.Background(), "bucket", "object", time.Minute); err == nil {
		t.Fatal("expected error when signer fails")
	}
}
