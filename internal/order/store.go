package order

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/noah-isme/backend-lapak/internal/pricing"
)

// Order statuses. The lifecycle here is deliberately small: orders are
// created awaiting payment and can only be cancelled from that state.
const (
	StatusPendingPayment = "PENDING_PAYMENT"
	StatusCancelled      = "CANCELLED"
)

// ErrNotFound indicates the requested order could not be located.
var ErrNotFound = errors.New("order not found")

// ErrNotCancellable is returned when an order is past the point of cancellation.
var ErrNotCancellable = errors.New("order can no longer be cancelled")

// Order is a persisted, immutable pricing snapshot. Every money component
// of the summary is stored so the order can be displayed and audited
// without re-running the pricing engine.
type Order struct {
	ID                string        `json:"id"`
	UserID            *string       `json:"userId,omitempty"`
	CartID            string        `json:"cartId"`
	Status            string        `json:"status"`
	Currency          string        `json:"currency"`
	Subtotal          pricing.Money `json:"subtotal"`
	PromotionDiscount pricing.Money `json:"promotionDiscount"`
	CouponDiscount    pricing.Money `json:"couponDiscount"`
	TotalDiscount     pricing.Money `json:"totalDiscount"`
	Shipping          pricing.Money `json:"shipping"`
	Total             pricing.Money `json:"finalTotal"`
	CouponCode        *string       `json:"couponCode,omitempty"`
	ShippingAddress   []byte        `json:"-"`
	ShippingOption    []byte        `json:"-"`
	Notes             *string       `json:"notes,omitempty"`
	CreatedAt         time.Time     `json:"createdAt"`
}

// Item is one frozen order line, carrying both the original and the
// promotion-adjusted unit price.
type Item struct {
	ID             string        `json:"id"`
	OrderID        string        `json:"orderId"`
	ProductID      string        `json:"productId"`
	Title          string        `json:"title"`
	Slug           string        `json:"slug"`
	Size           *string       `json:"size,omitempty"`
	Color          *string       `json:"color,omitempty"`
	Qty            int           `json:"qty"`
	UnitPrice      pricing.Money `json:"unitPrice"`
	FinalUnitPrice pricing.Money `json:"finalUnitPrice"`
	LineSubtotal   pricing.Money `json:"lineSubtotal"`
	LineDiscount   pricing.Money `json:"lineDiscount"`
	PromotionID    *string       `json:"promotionId,omitempty"`
}

// DB is the subset of pgx behaviour the store needs. Both *pgxpool.Pool
// and pgx.Tx satisfy it, so the same queries run inside and outside a
// transaction.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store persists orders and order items.
type Store struct {
	DB DB
}

// WithTx returns a store bound to the given transaction.
func (s *Store) WithTx(tx pgx.Tx) *Store {
	return &Store{DB: tx}
}

const createOrderSQL = `
INSERT INTO orders (
  id, user_id, cart_id, status, currency,
  subtotal, promotion_discount, coupon_discount, total_discount, shipping, total,
  coupon_code, shipping_address, shipping_option, notes, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,now())
RETURNING created_at`

// Create inserts an order snapshot and returns it with generated fields set.
func (s *Store) Create(ctx context.Context, o Order) (Order, error) {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	err := s.DB.QueryRow(ctx, createOrderSQL,
		o.ID, o.UserID, o.CartID, o.Status, o.Currency,
		o.Subtotal, o.PromotionDiscount, o.CouponDiscount, o.TotalDiscount, o.Shipping, o.Total,
		o.CouponCode, o.ShippingAddress, o.ShippingOption, o.Notes,
	).Scan(&o.CreatedAt)
	if err != nil {
		return Order{}, err
	}
	return o, nil
}

const createItemSQL = `
INSERT INTO order_items (
  id, order_id, product_id, title, slug, size, color,
  qty, unit_price, final_unit_price, line_subtotal, line_discount, promotion_id
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`

// CreateItem inserts one order line.
func (s *Store) CreateItem(ctx context.Context, it Item) error {
	if it.ID == "" {
		it.ID = uuid.NewString()
	}
	_, err := s.DB.Exec(ctx, createItemSQL,
		it.ID, it.OrderID, it.ProductID, it.Title, it.Slug, it.Size, it.Color,
		it.Qty, it.UnitPrice, it.FinalUnitPrice, it.LineSubtotal, it.LineDiscount, it.PromotionID,
	)
	return err
}

const orderColumns = `id, user_id, cart_id, status, currency,
subtotal, promotion_discount, coupon_discount, total_discount, shipping, total,
coupon_code, shipping_address, shipping_option, notes, created_at`

// GetByID loads one order.
func (s *Store) GetByID(ctx context.Context, id string) (Order, error) {
	row := s.DB.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	o, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrNotFound
	}
	return o, err
}

// ListByUser returns a user's orders, newest first.
func (s *Store) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Order, error) {
	rows, err := s.DB.Query(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// ListItems returns the lines of an order.
func (s *Store) ListItems(ctx context.Context, orderID string) ([]Item, error) {
	rows, err := s.DB.Query(ctx, `
SELECT id, order_id, product_id, title, slug, size, color,
       qty, unit_price, final_unit_price, line_subtotal, line_discount, promotion_id
FROM order_items WHERE order_id = $1 ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Item
	for rows.Next() {
		var it Item
		var size, color, promoID pgtype.Text
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Title, &it.Slug, &size, &color,
			&it.Qty, &it.UnitPrice, &it.FinalUnitPrice, &it.LineSubtotal, &it.LineDiscount, &promoID); err != nil {
			return nil, err
		}
		it.Size = textPtr(size)
		it.Color = textPtr(color)
		it.PromotionID = textPtr(promoID)
		out = append(out, it)
	}
	return out, rows.Err()
}

// Cancel transitions a pending order to cancelled.
func (s *Store) Cancel(ctx context.Context, id string) error {
	tag, err := s.DB.Exec(ctx,
		`UPDATE orders SET status = $1 WHERE id = $2 AND status = $3`,
		StatusCancelled, id, StatusPendingPayment)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		if _, err := s.GetByID(ctx, id); err != nil {
			return err
		}
		return ErrNotCancellable
	}
	return nil
}

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	var userID, couponCode, notes pgtype.Text
	var addr, opt []byte
	var created pgtype.Timestamptz
	err := row.Scan(&o.ID, &userID, &o.CartID, &o.Status, &o.Currency,
		&o.Subtotal, &o.PromotionDiscount, &o.CouponDiscount, &o.TotalDiscount, &o.Shipping, &o.Total,
		&couponCode, &addr, &opt, &notes, &created)
	if err != nil {
		return Order{}, err
	}
	o.UserID = textPtr(userID)
	o.CouponCode = textPtr(couponCode)
	o.Notes = textPtr(notes)
	o.ShippingAddress = addr
	o.ShippingOption = opt
	o.CreatedAt = created.Time
	return o, nil
}

func textPtr(t pgtype.Text) *string {
	if !t.Valid {
		return nil
	}
	v := t.String
	return &v
}
