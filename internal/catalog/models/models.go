// Package models holds the product catalog types.
package models

import (
	"slices"
	"strings"
	"time"

	id "jwelary/pkg/domain"
	dErrors "jwelary/pkg/domain-errors"
)

// Specifications are the descriptive attributes of a piece.
type Specifications struct {
	Material string  `json:"material"`
	Weight   string  `json:"weight"`
	Size     string  `json:"size"`
	Gemstone *string `json:"gemstone"`
}

type Product struct {
	ID             id.ProductID   `json:"-"`
	Name           string         `json:"name"`
	Price          float64        `json:"price"`
	OriginalPrice  *float64       `json:"originalPrice"`
	Description    string         `json:"description"`
	Category       string         `json:"category"`
	Images         []string       `json:"images"`
	InStock        bool           `json:"inStock"`
	Featured       bool           `json:"featured"`
	StockQuantity  int            `json:"stockQuantity"`
	Specifications Specifications `json:"specifications"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
}

// ProductView is the JSON shape served to clients.
type ProductView struct {
	ID string `json:"id"`
	*Product
}

func (p *Product) View() ProductView {
	return ProductView{ID: p.ID.String(), Product: p}
}

// Filter narrows a product listing. Zero values match everything.
type Filter struct {
	Category     string
	Search       string
	FeaturedOnly bool
}

// Matches applies the filter in memory. Search is a case-insensitive
// substring match on name or description.
func (f Filter) Matches(p *Product) bool {
	if f.Category != "" && p.Category != f.Category {
		return false
	}
	if f.FeaturedOnly && !p.Featured {
		return false
	}
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(p.Name), needle) &&
			!strings.Contains(strings.ToLower(p.Description), needle) {
			return false
		}
	}
	return true
}

// CreateProductRequest is the POST /products body.
type CreateProductRequest struct {
	Name          string   `json:"name"`
	Price         float64  `json:"price"`
	OriginalPrice *float64 `json:"originalPrice"`
	Description   string   `json:"description"`
	Category      string   `json:"category"`
	Images        []string `json:"images"`
	InStock       *bool    `json:"inStock"`
	Featured      *bool    `json:"featured"`
	StockQuantity int      `json:"stockQuantity"`
	Material      string   `json:"material"`
	Weight        string   `json:"weight"`
	Size          string   `json:"size"`
	Gemstone      *string  `json:"gemstone"`
}

func (r *CreateProductRequest) Validate() error {
	if r.Name == "" || r.Price == 0 || r.Description == "" || r.Category == "" || r.Images == nil {
		return dErrors.New(dErrors.CodeBadRequest, "Missing required fields")
	}
	if r.Price < 0 || r.StockQuantity < 0 {
		return dErrors.New(dErrors.CodeBadRequest, "Price and stock quantity must not be negative")
	}
	return nil
}

// Product builds a new product with defaults applied: in stock, not featured.
func (r *CreateProductRequest) Product(now time.Time) *Product {
	p := &Product{
		ID:            id.NewProductID(),
		Name:          r.Name,
		Price:         r.Price,
		OriginalPrice: r.OriginalPrice,
		Description:   r.Description,
		Category:      r.Category,
		Images:        slices.Clone(r.Images),
		InStock:       true,
		StockQuantity: r.StockQuantity,
		Specifications: Specifications{
			Material: r.Material,
			Weight:   r.Weight,
			Size:     r.Size,
			Gemstone: r.Gemstone,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if r.InStock != nil {
		p.InStock = *r.InStock
	}
	if r.Featured != nil {
		p.Featured = *r.Featured
	}
	return p
}

// UpdateProductRequest is the PUT /products/{id} body. Absent fields are left
// unchanged.
type UpdateProductRequest struct {
	Name          *string  `json:"name"`
	Price         *float64 `json:"price"`
	OriginalPrice *float64 `json:"originalPrice"`
	Description   *string  `json:"description"`
	Category      *string  `json:"category"`
	Images        []string `json:"images"`
	InStock       *bool    `json:"inStock"`
	Featured      *bool    `json:"featured"`
	StockQuantity *int     `json:"stockQuantity"`
	Material      *string  `json:"material"`
	Weight        *string  `json:"weight"`
	Size          *string  `json:"size"`
	Gemstone      *string  `json:"gemstone"`
}

func (r *UpdateProductRequest) Validate() error {
	if (r.Price != nil && *r.Price < 0) || (r.StockQuantity != nil && *r.StockQuantity < 0) {
		return dErrors.New(dErrors.CodeBadRequest, "Price and stock quantity must not be negative")
	}
	return nil
}

// Apply copies the provided fields onto p.
func (r *UpdateProductRequest) Apply(p *Product, now time.Time) {
	if r.Name != nil {
		p.Name = *r.Name
	}
	if r.Price != nil {
		p.Price = *r.Price
	}
	if r.OriginalPrice != nil {
		p.OriginalPrice = r.OriginalPrice
	}
	if r.Description != nil {
		p.Description = *r.Description
	}
	if r.Category != nil {
		p.Category = *r.Category
	}
	if r.Images != nil {
		p.Images = slices.Clone(r.Images)
	}
	if r.InStock != nil {
		p.InStock = *r.InStock
	}
	if r.Featured != nil {
		p.Featured = *r.Featured
	}
	if r.StockQuantity != nil {
		p.StockQuantity = *r.StockQuantity
	}
	if r.Material != nil {
		p.Specifications.Material = *r.Material
	}
	if r.Weight != nil {
		p.Specifications.Weight = *r.Weight
	}
	if r.Size != nil {
		p.Specifications.Size = *r.Size
	}
	if r.Gemstone != nil {
		p.Specifications.Gemstone = r.Gemstone
	}
	p.UpdatedAt = now
}
