package product

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	defaultPage  = 1
	defaultLimit = 20
	maxLimit     = 100
)

// ValidationError indicates malformed or out-of-range catalog input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// CreateInput holds the fields for a new catalog entry.
type CreateInput struct {
	Name          string
	Description   string
	Price         decimal.Decimal
	StockQuantity int
	ImageURL      string
}

// Service implements catalog business rules on top of the repository.
type Service struct {
	products Repository
	cache    CacheInvalidator
}

// NewService creates a catalog Service. cache may be nil; when set, caches
// derived from catalog data are invalidated after every update or delete.
func NewService(products Repository, cache CacheInvalidator) *Service {
	return &Service{products: products, cache: cache}
}

// Create validates the input, enforces name uniqueness, and persists the
// product.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Product, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if in.Price.IsNegative() {
		return nil, &ValidationError{Field: "price", Reason: "must not be negative"}
	}
	if in.StockQuantity < 0 {
		return nil, &ValidationError{Field: "stockQuantity", Reason: "must not be negative"}
	}

	if _, err := s.products.GetByName(ctx, in.Name); err == nil {
		return nil, ErrNameTaken
	} else if !errors.Is(err, ErrNotFound) {
		return nil, errors.Wrap(err, "check name uniqueness")
	}

	p := &Product{
		ID:            uuid.New().String(),
		Name:          in.Name,
		Description:   in.Description,
		Price:         in.Price.Round(2),
		StockQuantity: in.StockQuantity,
		ImageURL:      in.ImageURL,
	}
	if err := s.products.Create(ctx, p); err != nil {
		return nil, errors.Wrap(err, "create product")
	}
	return p, nil
}

// ListResult is a page of the catalog together with the paging values that
// were actually applied after defaulting and capping.
type ListResult struct {
	Items []Product
	Total int
	Page  int
	Limit int
}

// List validates and normalizes the query, then returns the matching page and
// the total match count.
func (s *Service) List(ctx context.Context, q ListQuery) (*ListResult, error) {
	if q.Page == 0 {
		q.Page = defaultPage
	}
	if q.Page < 1 {
		return nil, &ValidationError{Field: "page", Reason: "must be at least 1"}
	}
	if q.Limit == 0 {
		q.Limit = defaultLimit
	}
	if q.Limit < 1 {
		return nil, &ValidationError{Field: "limit", Reason: "must be at least 1"}
	}
	if q.Limit > maxLimit {
		q.Limit = maxLimit
	}

	if q.SortBy == "" {
		q.SortBy = SortByCreatedAt
	}
	switch q.SortBy {
	case SortByName, SortByPrice, SortByStock, SortByCreatedAt, SortByUpdatedAt:
	default:
		return nil, &ValidationError{Field: "sortBy", Reason: fmt.Sprintf("unknown field %q", q.SortBy)}
	}

	if q.SortOrder == "" {
		q.SortOrder = "desc"
	}
	if q.SortOrder != "asc" && q.SortOrder != "desc" {
		return nil, &ValidationError{Field: "sortOrder", Reason: fmt.Sprintf("unknown order %q", q.SortOrder)}
	}

	items, total, err := s.products.List(ctx, q)
	if err != nil {
		return nil, errors.Wrap(err, "list products")
	}
	return &ListResult{Items: items, Total: total, Page: q.Page, Limit: q.Limit}, nil
}

// Get returns a single product or ErrNotFound.
func (s *Service) Get(ctx context.Context, id string) (*Product, error) {
	return s.products.GetByID(ctx, id)
}

// Update applies a partial update, re-checking name uniqueness when the name
// changes.
func (s *Service) Update(ctx context.Context, id string, patch Patch) (*Product, error) {
	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil && *patch.Name != p.Name {
		if strings.TrimSpace(*patch.Name) == "" {
			return nil, &ValidationError{Field: "name", Reason: "must not be empty"}
		}
		if _, err := s.products.GetByName(ctx, *patch.Name); err == nil {
			return nil, ErrNameTaken
		} else if !errors.Is(err, ErrNotFound) {
			return nil, errors.Wrap(err, "check name uniqueness")
		}
		p.Name = *patch.Name
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.Price != nil {
		if patch.Price.IsNegative() {
			return nil, &ValidationError{Field: "price", Reason: "must not be negative"}
		}
		p.Price = patch.Price.Round(2)
	}
	if patch.StockQuantity != nil {
		if *patch.StockQuantity < 0 {
			return nil, &ValidationError{Field: "stockQuantity", Reason: "must not be negative"}
		}
		p.StockQuantity = *patch.StockQuantity
	}
	if patch.ImageURL != nil {
		p.ImageURL = *patch.ImageURL
	}

	if err := s.products.Update(ctx, p); err != nil {
		return nil, errors.Wrap(err, "update product")
	}
	s.invalidateCache(ctx)
	return p, nil
}

// Delete removes a product. Cart references disappear with it (FK cascade);
// order history keeps its denormalized copy of the name and price.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.products.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidateCache(ctx)
	return nil
}

func (s *Service) invalidateCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateCatalog(ctx); err != nil {
		zctx.From(ctx).Debug("catalog cache invalidate failed", zap.Error(err))
	}
}
