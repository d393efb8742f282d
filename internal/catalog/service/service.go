// Package service implements product catalog reads and admin writes.
package service

import (
	"context"
	"errors"
	"log/slog"

	"jwelary/internal/catalog/models"
	id "jwelary/pkg/domain"
	dErrors "jwelary/pkg/domain-errors"
	"jwelary/pkg/platform/sentinel"
	"jwelary/pkg/requestcontext"
)

type ProductStore interface {
	List(ctx context.Context, filter models.Filter) ([]*models.Product, error)
	FindByID(ctx context.Context, productID id.ProductID) (*models.Product, error)
	Create(ctx context.Context, p *models.Product) error
	Update(ctx context.Context, p *models.Product) error
	Delete(ctx context.Context, productID id.ProductID) error
}

type Service struct {
	products ProductStore
	logger   *slog.Logger
}

func New(products ProductStore, logger *slog.Logger) *Service {
	return &Service{products: products, logger: logger}
}

func (s *Service) List(ctx context.Context, filter models.Filter) ([]*models.Product, error) {
	products, err := s.products.List(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list products")
	}
	if products == nil {
		products = []*models.Product{}
	}
	return products, nil
}

func (s *Service) Get(ctx context.Context, productID id.ProductID) (*models.Product, error) {
	p, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return nil, translate(err, "failed to load product")
	}
	return p, nil
}

func (s *Service) Create(ctx context.Context, req models.CreateProductRequest) (*models.Product, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	p := req.Product(requestcontext.Now(ctx))
	if err := s.products.Create(ctx, p); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create product")
	}
	s.logger.InfoContext(ctx, "product created",
		"product_id", p.ID.String(),
		"user_id", requestcontext.UserID(ctx).String(),
	)
	return p, nil
}

// Update applies a partial update.
func (s *Service) Update(ctx context.Context, productID id.ProductID, req models.UpdateProductRequest) (*models.Product, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	p, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return nil, translate(err, "failed to load product")
	}
	req.Apply(p, requestcontext.Now(ctx))
	if err := s.products.Update(ctx, p); err != nil {
		return nil, translate(err, "failed to update product")
	}
	return p, nil
}

func (s *Service) Delete(ctx context.Context, productID id.ProductID) error {
	if err := s.products.Delete(ctx, productID); err != nil {
		return translate(err, "failed to delete product")
	}
	s.logger.InfoContext(ctx, "product deleted",
		"product_id", productID.String(),
		"user_id", requestcontext.UserID(ctx).String(),
	)
	return nil
}

func translate(err error, msg string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "Product not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}
