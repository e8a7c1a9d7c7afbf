package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/backend-lapak/internal/pricing"
	"github.com/noah-isme/backend-lapak/internal/promo"
)

// ErrNotFound indicates the requested product could not be located.
var ErrNotFound = errors.New("product not found")

// Product is the storefront read model backing price snapshots and
// featured-product cards.
type Product struct {
	ID         string      `json:"id"`
	Title      string      `json:"title"`
	Slug       string      `json:"slug"`
	Price      promo.Money `json:"price"`
	WeightGram int         `json:"weightGram"`
}

// CardPreview decorates a product with its winning promotion, the way a
// featured-product card renders it. SuggestedQty is the quick-add default.
type CardPreview struct {
	Product
	PromotionID    string      `json:"promotionId,omitempty"`
	FinalUnitPrice promo.Money `json:"finalUnitPrice"`
	Badge          string      `json:"badge,omitempty"`
	Sublabel       string      `json:"sublabel,omitempty"`
	SuggestedQty   int         `json:"suggestedQty"`
}

// Store provides Postgres persistence for products.
type Store struct {
	Pool *pgxpool.Pool
}

// List returns a page of products ordered by title.
func (s *Store) List(ctx context.Context, limit, offset int) ([]Product, error) {
	if s == nil || s.Pool == nil {
		return nil, errors.New("catalog store not configured")
	}
	rows, err := s.Pool.Query(ctx, `
		SELECT id, title, slug, price, weight_gram
		FROM products
		ORDER BY title
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Title, &p.Slug, &p.Price, &p.WeightGram); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetByID loads one product.
func (s *Store) GetByID(ctx context.Context, id string) (Product, error) {
	if s == nil || s.Pool == nil {
		return Product{}, errors.New("catalog store not configured")
	}
	var p Product
	err := s.Pool.QueryRow(ctx, `
		SELECT id, title, slug, price, weight_gram
		FROM products
		WHERE id = $1`, id).Scan(&p.ID, &p.Title, &p.Slug, &p.Price, &p.WeightGram)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, ErrNotFound
	}
	return p, err
}

// GetBySlug loads one product by its slug.
func (s *Store) GetBySlug(ctx context.Context, slug string) (Product, error) {
	if s == nil || s.Pool == nil {
		return Product{}, errors.New("catalog store not configured")
	}
	var p Product
	err := s.Pool.QueryRow(ctx, `
		SELECT id, title, slug, price, weight_gram
		FROM products
		WHERE slug = $1`, slug).Scan(&p.ID, &p.Title, &p.Slug, &p.Price, &p.WeightGram)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, ErrNotFound
	}
	return p, err
}

// Service combines the product store, Redis cache and the promotion engine
// into the storefront listing surface.
type Service struct {
	Store  *Store
	Cache  *Cache
	Promos *promo.Service
	Now    func() time.Time
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// List returns products decorated with their promo preview. Promotion load
// failures degrade to undecorated cards rather than failing the listing.
func (s *Service) List(ctx context.Context, page, perPage int) ([]CardPreview, error) {
	if s == nil || s.Store == nil {
		return nil, errors.New("catalog service not configured")
	}
	if page <= 0 {
		page = 1
	}
	if perPage <= 0 {
		perPage = 20
	}
	cacheKey := fmt.Sprintf("catalog:list:%d:%d", page, perPage)
	var products []Product
	if ok, err := s.Cache.GetJSON(ctx, cacheKey, &products); err != nil || !ok {
		products, err = s.Store.List(ctx, perPage, (page-1)*perPage)
		if err != nil {
			return nil, err
		}
		_ = s.Cache.SetJSON(ctx, cacheKey, products)
	}
	return s.decorate(ctx, products), nil
}

// GetBySlug returns one product card with its promo preview.
func (s *Service) GetBySlug(ctx context.Context, slug string) (CardPreview, error) {
	if s == nil || s.Store == nil {
		return CardPreview{}, errors.New("catalog service not configured")
	}
	product, err := s.Store.GetBySlug(ctx, slug)
	if err != nil {
		return CardPreview{}, err
	}
	cards := s.decorate(ctx, []Product{product})
	return cards[0], nil
}

func (s *Service) decorate(ctx context.Context, products []Product) []CardPreview {
	now := s.now()
	var promos []promo.Promotion
	if s.Promos != nil {
		promos = s.Promos.ActiveOrEmpty(ctx)
	}
	cards := make([]CardPreview, 0, len(products))
	for _, product := range products {
		card := CardPreview{
			Product:        product,
			FinalUnitPrice: product.Price,
			SuggestedQty:   1,
		}
		if _, quote, ok := pricing.SelectPromotion(promo.Eligible(promos, product.ID, now), product.Price); ok {
			card.PromotionID = quote.PromotionID
			card.FinalUnitPrice = quote.FinalUnitPrice
			card.Badge = quote.Badge
			card.Sublabel = quote.Sublabel
			card.SuggestedQty = quote.SuggestedQty
		}
		cards = append(cards, card)
	}
	return cards
}
