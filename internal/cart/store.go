package cart

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/backend-lapak/internal/pricing"
)

// Cart is one shopping cart, owned by a user or an anonymous session.
type Cart struct {
	ID         string     `json:"id"`
	UserID     *string    `json:"userId,omitempty"`
	AnonID     *string    `json:"anonId,omitempty"`
	CouponCode *string    `json:"couponCode,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
	ExpiresAt  *time.Time `json:"expiresAt,omitempty"`
}

// Item is one distinct product/variant entry in a cart. UnitPrice is the
// snapshot taken at add-to-cart time and is never mutated afterwards.
type Item struct {
	ID        string        `json:"id"`
	CartID    string        `json:"cartId"`
	ProductID string        `json:"productId"`
	Title     string        `json:"title"`
	Slug      string        `json:"slug"`
	Size      *string       `json:"size,omitempty"`
	Color     *string       `json:"color,omitempty"`
	Qty       int           `json:"qty"`
	UnitPrice pricing.Money `json:"unitPrice"`
}

// Store provides Postgres persistence for carts and cart items.
type Store struct {
	Pool *pgxpool.Pool
}

const cartColumns = `id, user_id, anon_id, applied_coupon_code, created_at, updated_at, expires_at`

// GetByID loads one cart.
func (s *Store) GetByID(ctx context.Context, id string) (Cart, error) {
	if s == nil || s.Pool == nil {
		return Cart{}, errors.New("cart store not configured")
	}
	row := s.Pool.QueryRow(ctx, `SELECT `+cartColumns+` FROM carts WHERE id = $1`, id)
	return scanCart(row)
}

// GetActiveByUser returns the newest unexpired cart owned by the user.
func (s *Store) GetActiveByUser(ctx context.Context, userID string, now time.Time) (Cart, error) {
	if s == nil || s.Pool == nil {
		return Cart{}, errors.New("cart store not configured")
	}
	row := s.Pool.QueryRow(ctx, `
		SELECT `+cartColumns+`
		FROM carts
		WHERE user_id = $1 AND (expires_at IS NULL OR expires_at > $2)
		ORDER BY updated_at DESC
		LIMIT 1`, userID, now)
	return scanCart(row)
}

// GetActiveByAnon returns the newest unexpired cart for an anonymous session.
func (s *Store) GetActiveByAnon(ctx context.Context, anonID string, now time.Time) (Cart, error) {
	if s == nil || s.Pool == nil {
		return Cart{}, errors.New("cart store not configured")
	}
	row := s.Pool.QueryRow(ctx, `
		SELECT `+cartColumns+`
		FROM carts
		WHERE anon_id = $1 AND (expires_at IS NULL OR expires_at > $2)
		ORDER BY updated_at DESC
		LIMIT 1`, anonID, now)
	return scanCart(row)
}

// Create inserts a new cart.
func (s *Store) Create(ctx context.Context, userID, anonID *string, expiresAt time.Time) (Cart, error) {
	if s == nil || s.Pool == nil {
		return Cart{}, errors.New("cart store not configured")
	}
	id := uuid.NewString()
	row := s.Pool.QueryRow(ctx, `
		INSERT INTO carts (id, user_id, anon_id, expires_at)
		VALUES ($1, $2, $3, $4)
		RETURNING `+cartColumns, id, nullableText(userID), nullableText(anonID), expiresAt)
	return scanCart(row)
}

// Touch extends the cart expiry.
func (s *Store) Touch(ctx context.Context, id string, expiresAt time.Time) error {
	if s == nil || s.Pool == nil {
		return errors.New("cart store not configured")
	}
	_, err := s.Pool.Exec(ctx, `
		UPDATE carts SET expires_at = $2, updated_at = now() WHERE id = $1`, id, expiresAt)
	return err
}

// SetCouponCode attaches or clears the applied coupon code.
func (s *Store) SetCouponCode(ctx context.Context, id string, code *string) error {
	if s == nil || s.Pool == nil {
		return errors.New("cart store not configured")
	}
	_, err := s.Pool.Exec(ctx, `
		UPDATE carts SET applied_coupon_code = $2, updated_at = now() WHERE id = $1`, id, nullableText(code))
	return err
}

// TransferToUser reassigns a guest cart to a user after merge.
func (s *Store) TransferToUser(ctx context.Context, id string, userID string) error {
	if s == nil || s.Pool == nil {
		return errors.New("cart store not configured")
	}
	_, err := s.Pool.Exec(ctx, `
		UPDATE carts SET user_id = $2, anon_id = NULL, updated_at = now() WHERE id = $1`, id, userID)
	return err
}

const itemColumns = `id, cart_id, product_id, title, slug, size, color, qty, unit_price`

// ListItems returns all items of a cart in insertion order.
func (s *Store) ListItems(ctx context.Context, cartID string) ([]Item, error) {
	if s == nil || s.Pool == nil {
		return nil, errors.New("cart store not configured")
	}
	rows, err := s.Pool.Query(ctx, `
		SELECT `+itemColumns+` FROM cart_items WHERE cart_id = $1 ORDER BY created_at, id`, cartID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

// GetItemByID loads one cart item.
func (s *Store) GetItemByID(ctx context.Context, itemID string) (Item, error) {
	if s == nil || s.Pool == nil {
		return Item{}, errors.New("cart store not configured")
	}
	row := s.Pool.QueryRow(ctx, `SELECT `+itemColumns+` FROM cart_items WHERE id = $1`, itemID)
	return scanItem(row)
}

// FindItemByVariant locates an existing line for the product/variant combination.
func (s *Store) FindItemByVariant(ctx context.Context, cartID, productID string, size, color *string) (Item, error) {
	if s == nil || s.Pool == nil {
		return Item{}, errors.New("cart store not configured")
	}
	row := s.Pool.QueryRow(ctx, `
		SELECT `+itemColumns+`
		FROM cart_items
		WHERE cart_id = $1 AND product_id = $2
		  AND size IS NOT DISTINCT FROM $3
		  AND color IS NOT DISTINCT FROM $4`,
		cartID, productID, nullableText(size), nullableText(color))
	return scanItem(row)
}

// CreateItem inserts a new cart line with its price snapshot.
func (s *Store) CreateItem(ctx context.Context, item Item) (Item, error) {
	if s == nil || s.Pool == nil {
		return Item{}, errors.New("cart store not configured")
	}
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO cart_items (id, cart_id, product_id, title, slug, size, color, qty, unit_price)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		item.ID, item.CartID, item.ProductID, item.Title, item.Slug,
		nullableText(item.Size), nullableText(item.Color), item.Qty, item.UnitPrice)
	return item, err
}

// UpdateItemQty changes the quantity of a line. The unit price is untouched.
func (s *Store) UpdateItemQty(ctx context.Context, itemID string, qty int) error {
	if s == nil || s.Pool == nil {
		return errors.New("cart store not configured")
	}
	tag, err := s.Pool.Exec(ctx, `
		UPDATE cart_items SET qty = $2 WHERE id = $1`, itemID, qty)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// DeleteItem removes a line from the cart.
func (s *Store) DeleteItem(ctx context.Context, cartID, itemID string) error {
	if s == nil || s.Pool == nil {
		return errors.New("cart store not configured")
	}
	_, err := s.Pool.Exec(ctx, `
		DELETE FROM cart_items WHERE id = $1 AND cart_id = $2`, itemID, cartID)
	return err
}

func scanCart(row pgx.Row) (Cart, error) {
	var (
		c         Cart
		userID    pgtype.Text
		anonID    pgtype.Text
		coupon    pgtype.Text
		expiresAt pgtype.Timestamptz
	)
	if err := row.Scan(&c.ID, &userID, &anonID, &coupon, &c.CreatedAt, &c.UpdatedAt, &expiresAt); err != nil {
		return Cart{}, err
	}
	c.UserID = textPtr(userID)
	c.AnonID = textPtr(anonID)
	c.CouponCode = textPtr(coupon)
	if expiresAt.Valid {
		t := expiresAt.Time
		c.ExpiresAt = &t
	}
	return c, nil
}

func scanItem(row pgx.Row) (Item, error) {
	var (
		item  Item
		size  pgtype.Text
		color pgtype.Text
	)
	err := row.Scan(&item.ID, &item.CartID, &item.ProductID, &item.Title, &item.Slug,
		&size, &color, &item.Qty, &item.UnitPrice)
	if err != nil {
		return Item{}, err
	}
	item.Size = textPtr(size)
	item.Color = textPtr(color)
	return item, nil
}

func nullableText(v *string) pgtype.Text {
	if v == nil || *v == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: *v, Valid: true}
}

func textPtr(v pgtype.Text) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}
