package promo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates the requested promotion does not exist.
var ErrNotFound = errors.New("promotion not found")

// Store provides Postgres persistence for promotion records.
type Store struct {
	Pool *pgxpool.Pool
}

const promotionColumns = `id, name, kind, percent_bps, amount, buy_qty, get_qty, product_ids, starts_at, ends_at, active`

// ListActive returns promotions that are switched on and inside their date
// window at the provided instant.
func (s *Store) ListActive(ctx context.Context, now time.Time) ([]Promotion, error) {
	if s == nil || s.Pool == nil {
		return nil, errors.New("promotion store not configured")
	}
	rows, err := s.Pool.Query(ctx, `
		SELECT `+promotionColumns+`
		FROM promotions
		WHERE active = TRUE
		  AND (starts_at IS NULL OR starts_at <= $1)
		  AND (ends_at IS NULL OR ends_at >= $1)
		ORDER BY starts_at NULLS FIRST, id`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPromotions(rows)
}

// List returns every promotion record, newest window first.
func (s *Store) List(ctx context.Context) ([]Promotion, error) {
	if s == nil || s.Pool == nil {
		return nil, errors.New("promotion store not configured")
	}
	rows, err := s.Pool.Query(ctx, `
		SELECT `+promotionColumns+`
		FROM promotions
		ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPromotions(rows)
}

// GetByID loads a single promotion.
func (s *Store) GetByID(ctx context.Context, id string) (Promotion, error) {
	if s == nil || s.Pool == nil {
		return Promotion{}, errors.New("promotion store not configured")
	}
	row := s.Pool.QueryRow(ctx, `
		SELECT `+promotionColumns+`
		FROM promotions
		WHERE id = $1`, id)
	p, err := scanPromotion(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Promotion{}, ErrNotFound
	}
	return p, err
}

// Create inserts a validated promotion and returns it with the generated id.
func (s *Store) Create(ctx context.Context, p Promotion) (Promotion, error) {
	if s == nil || s.Pool == nil {
		return Promotion{}, errors.New("promotion store not configured")
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO promotions (id, name, kind, percent_bps, amount, buy_qty, get_qty, product_ids, starts_at, ends_at, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		p.ID, p.Name, string(p.Kind), p.PercentBps, p.Amount, p.BuyQty, p.GetQty,
		p.ProductIDs, nullableTime(p.StartsAt), nullableTime(p.EndsAt), p.Active)
	if err != nil {
		return Promotion{}, err
	}
	return p, nil
}

// Update replaces the mutable fields of a promotion.
func (s *Store) Update(ctx context.Context, p Promotion) error {
	if s == nil || s.Pool == nil {
		return errors.New("promotion store not configured")
	}
	tag, err := s.Pool.Exec(ctx, `
		UPDATE promotions
		SET name = $2, kind = $3, percent_bps = $4, amount = $5, buy_qty = $6,
		    get_qty = $7, product_ids = $8, starts_at = $9, ends_at = $10,
		    active = $11, updated_at = now()
		WHERE id = $1`,
		p.ID, p.Name, string(p.Kind), p.PercentBps, p.Amount, p.BuyQty, p.GetQty,
		p.ProductIDs, nullableTime(p.StartsAt), nullableTime(p.EndsAt), p.Active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetActive flips the kill-switch without touching the date window.
func (s *Store) SetActive(ctx context.Context, id string, active bool) error {
	if s == nil || s.Pool == nil {
		return errors.New("promotion store not configured")
	}
	tag, err := s.Pool.Exec(ctx, `
		UPDATE promotions SET active = $2, updated_at = now() WHERE id = $1`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanPromotions(rows pgx.Rows) ([]Promotion, error) {
	var out []Promotion
	for rows.Next() {
		p, err := scanPromotion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanPromotion(row pgx.Row) (Promotion, error) {
	var (
		p        Promotion
		kind     string
		startsAt pgtype.Timestamptz
		endsAt   pgtype.Timestamptz
	)
	err := row.Scan(&p.ID, &p.Name, &kind, &p.PercentBps, &p.Amount, &p.BuyQty,
		&p.GetQty, &p.ProductIDs, &startsAt, &endsAt, &p.Active)
	if err != nil {
		return Promotion{}, err
	}
	p.Kind = Kind(kind)
	if startsAt.Valid {
		t := startsAt.Time
		p.StartsAt = &t
	}
	if endsAt.Valid {
		t := endsAt.Time
		p.EndsAt = &t
	}
	return p, nil
}

func nullableTime(t *time.Time) pgtype.Timestamptz {
	if t == nil {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: *t, Valid: true}
}
