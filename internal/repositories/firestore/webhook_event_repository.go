package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "github.com/auric-jewels/api/internal/domain"
	pfirestore "github.com/auric-jewels/api/internal/platform/firestore"
)

const webhookEventsCollection = "webhookEvents"

// WebhookEventRepository records processed provider events. The sentinel doc
// id combines provider and event id so a redelivered event conflicts on
// creation before any side effect runs.
type WebhookEventRepository struct {
	provider *pfirestore.Provider
	events   *pfirestore.BaseRepository[webhookEventDocument]
}

// NewWebhookEventRepository wires the repository against the shared provider.
func NewWebhookEventRepository(provider *pfirestore.Provider) (*WebhookEventRepository, error) {
	if provider == nil {
		return nil, errors.New("webhook event repository requires firestore provider")
	}
	return &WebhookEventRepository{
		provider: provider,
		events:   pfirestore.NewBaseRepository[webhookEventDocument](provider, webhookEventsCollection, nil, nil),
	}, nil
}

// Record creates the sentinel. A conflict-classified error means the event was
// already processed.
func (r *WebhookEventRepository) Record(ctx context.Context, event domain.WebhookEvent) error {
	if r == nil || r.events == nil {
		return errors.New("webhook event repository not initialised")
	}
	id := webhookEventDocID(event.Provider, event.ID)
	if id == "" {
		return errors.New("webhook event record: provider and event id are required")
	}

	ref, err := r.events.DocumentRef(ctx, id)
	if err != nil {
		return err
	}
	doc := webhookEventDocument{
		Provider:    strings.TrimSpace(event.Provider),
		EventID:     strings.TrimSpace(event.ID),
		Type:        strings.TrimSpace(event.Type),
		OrderRef:    strings.TrimSpace(event.OrderRef),
		ProcessedAt: event.ProcessedAt.UTC(),
	}
	if doc.ProcessedAt.IsZero() {
		doc.ProcessedAt = time.Now().UTC()
	}
	if _, err := ref.Create(ctx, doc); err != nil {
		return pfirestore.WrapError("webhookEvents.record", err)
	}
	return nil
}

// Seen reports whether the sentinel for the event already exists.
func (r *WebhookEventRepository) Seen(ctx context.Context, provider, eventID string) (bool, error) {
	if r == nil || r.events == nil {
		return false, errors.New("webhook event repository not initialised")
	}
	id := webhookEventDocID(provider, eventID)
	if id == "" {
		return false, errors.New("webhook event seen: provider and event id are required")
	}

	if _, err := r.events.Get(ctx, id); err != nil {
		if repoErr, ok := err.(*pfirestore.Error); ok && repoErr.IsNotFound() {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

type webhookEventDocument struct {
	Provider    string    `firestore:"provider"`
	EventID     string    `firestore:"eventId"`
	Type        string    `firestore:"type,omitempty"`
	OrderRef    string    `firestore:"orderRef,omitempty"`
	ProcessedAt time.Time `firestore:"processedAt"`
}

func webhookEventDocID(provider, eventID string) string {
	provider = strings.TrimSpace(provider)
	eventID = strings.TrimSpace(eventID)
	if provider == "" || eventID == "" {
		return ""
	}
	return fmt.Sprintf("%s_%s", provider, eventID)
}
