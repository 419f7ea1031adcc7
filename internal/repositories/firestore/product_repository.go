package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	domain "github.com/auric-jewels/api/internal/domain"
	pfirestore "github.com/auric-jewels/api/internal/platform/firestore"
	"github.com/auric-jewels/api/internal/repositories"
)

const productsCollection = "products"

// ProductRepository serves catalog lookups and the conditional stock ledger.
type ProductRepository struct {
	provider *pfirestore.Provider
	products *pfirestore.BaseRepository[productDocument]
}

// NewProductRepository wires the repository against the shared provider.
func NewProductRepository(provider *pfirestore.Provider) (*ProductRepository, error) {
	if provider == nil {
		return nil, errors.New("product repository requires firestore provider")
	}
	return &ProductRepository{
		provider: provider,
		products: pfirestore.NewBaseRepository[productDocument](provider, productsCollection, nil, nil),
	}, nil
}

// FindByID loads a single product.
func (r *ProductRepository) FindByID(ctx context.Context, productID string) (domain.Product, error) {
	if r == nil || r.products == nil {
		return domain.Product{}, errors.New("product repository not initialised")
	}
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return domain.Product{}, repositories.NewStockError(repositories.StockErrorUnknown, "product find: id is required", nil)
	}

	doc, err := r.products.Get(ctx, productID)
	if err != nil {
		if repoErr, ok := err.(*pfirestore.Error); ok && repoErr.IsNotFound() {
			return domain.Product{}, repositories.NewStockError(repositories.StockErrorProductNotFound, fmt.Sprintf("product %s not found", productID), err)
		}
		return domain.Product{}, wrapStockError("products.find", err)
	}
	return doc.Data.toDomain(doc.ID), nil
}

// FindByIDs loads a batch of products. Missing ids are simply absent from the
// result so callers can drop unresolvable cart lines.
func (r *ProductRepository) FindByIDs(ctx context.Context, productIDs []string) (map[string]domain.Product, error) {
	if r == nil || r.products == nil {
		return nil, errors.New("product repository not initialised")
	}

	result := make(map[string]domain.Product, len(productIDs))
	for _, id := range productIDs {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := result[id]; ok {
			continue
		}
		doc, err := r.products.Get(ctx, id)
		if err != nil {
			if repoErr, ok := err.(*pfirestore.Error); ok && repoErr.IsNotFound() {
				continue
			}
			return nil, wrapStockError("products.findByIds", err)
		}
		result[id] = doc.Data.toDomain(doc.ID)
	}
	return result, nil
}

// DecrementStock subtracts every line in one transaction. All reads happen
// before any write; a line exceeding stock on hand aborts the transaction and
// leaves every product untouched.
func (r *ProductRepository) DecrementStock(ctx context.Context, lines []repositories.StockLine, now time.Time) error {
	return r.adjustStock(ctx, "products.decrementStock", lines, now, false)
}

// RestoreStock adds the quantities back after a failed checkout.
func (r *ProductRepository) RestoreStock(ctx context.Context, lines []repositories.StockLine, now time.Time) error {
	return r.adjustStock(ctx, "products.restoreStock", lines, now, true)
}

func (r *ProductRepository) adjustStock(ctx context.Context, op string, lines []repositories.StockLine, now time.Time, restore bool) error {
	if r == nil || r.provider == nil {
		return errors.New("product repository not initialised")
	}
	if len(lines) == 0 {
		return repositories.NewStockError(repositories.StockErrorUnknown, "stock adjust: at least one line is required", nil)
	}

	ts := now.UTC()
	err := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		type pending struct {
			ref *firestore.DocumentRef
			doc productDocument
		}
		updates := make([]pending, 0, len(lines))
		for _, line := range lines {
			productID := strings.TrimSpace(line.ProductID)
			if productID == "" {
				return repositories.NewStockError(repositories.StockErrorUnknown, "stock adjust: product id is required", nil)
			}
			if line.Quantity <= 0 {
				return repositories.NewStockError(repositories.StockErrorUnknown, fmt.Sprintf("stock adjust: quantity for %s must be > 0", productID), nil)
			}

			ref, err := r.products.DocumentRef(ctx, productID)
			if err != nil {
				return err
			}
			snap, err := tx.Get(ref)
			if err != nil {
				if status.Code(err) == codes.NotFound {
					return repositories.NewStockError(repositories.StockErrorProductNotFound, fmt.Sprintf("product %s not found", productID), err)
				}
				return err
			}
			var doc productDocument
			if err := snap.DataTo(&doc); err != nil {
				return fmt.Errorf("decode product %s: %w", productID, err)
			}

			if restore {
				doc.Stock += line.Quantity
			} else {
				if doc.Stock < line.Quantity {
					return repositories.NewStockError(repositories.StockErrorInsufficient, fmt.Sprintf("insufficient stock for %s", productID), nil)
				}
				doc.Stock -= line.Quantity
			}
			doc.UpdatedAt = ts
			updates = append(updates, pending{ref: ref, doc: doc})
		}

		for _, u := range updates {
			if err := tx.Set(u.ref, u.doc); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return wrapStockError(op, err)
	}
	return nil
}

// Document structures -------------------------------------------------------

type productDocument struct {
	SKU       string    `firestore:"sku,omitempty"`
	Name      string    `firestore:"name"`
	Price     int64     `firestore:"price"`
	SalePrice int64     `firestore:"salePrice"`
	Currency  string    `firestore:"currency"`
	Stock     int       `firestore:"stock"`
	Active    bool      `firestore:"active"`
	ImageURL  string    `firestore:"imageUrl,omitempty"`
	CreatedAt time.Time `firestore:"createdAt"`
	UpdatedAt time.Time `firestore:"updatedAt"`
}

func (d productDocument) toDomain(id string) domain.Product {
	return domain.Product{
		ID:        id,
		SKU:       strings.TrimSpace(d.SKU),
		Name:      strings.TrimSpace(d.Name),
		Price:     d.Price,
		SalePrice: d.SalePrice,
		Currency:  strings.TrimSpace(d.Currency),
		Stock:     d.Stock,
		Active:    d.Active,
		ImageURL:  strings.TrimSpace(d.ImageURL),
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

func wrapStockError(op string, err error) error {
	if err == nil {
		return nil
	}
	var stockErr *repositories.StockError
	if errors.As(err, &stockErr) {
		if stockErr.Op == "" {
			stockErr.Op = op
		}
		return stockErr
	}
	return pfirestore.WrapError(op, err)
}
