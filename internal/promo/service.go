package promo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Service exposes the active promotion snapshot with read-through caching.
type Service struct {
	Store  *Store
	Cache  *Cache
	Now    func() time.Time
	Logger zerolog.Logger
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Active returns the promotions eligible for use at the current instant.
func (s *Service) Active(ctx context.Context) ([]Promotion, error) {
	if s == nil || s.Store == nil {
		return nil, errors.New("promotion service not configured")
	}
	if cached, ok, err := s.Cache.GetActive(ctx); err == nil && ok {
		return cached, nil
	} else if err != nil {
		s.Logger.Warn().Err(err).Msg("promo cache read failed")
	}
	promos, err := s.Store.ListActive(ctx, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.Cache.SetActive(ctx, promos); err != nil {
		s.Logger.Warn().Err(err).Msg("promo cache write failed")
	}
	return promos, nil
}

// ActiveOrEmpty degrades to an empty snapshot when the store is unreachable.
// Cart and catalog views render undiscounted rather than failing.
func (s *Service) ActiveOrEmpty(ctx context.Context) []Promotion {
	promos, err := s.Active(ctx)
	if err != nil {
		s.Logger.Error().Err(err).Msg("load active promotions, degrading to none")
		return nil
	}
	return promos
}

// Create validates and persists a new promotion, then drops the cache.
func (s *Service) Create(ctx context.Context, payload Payload) (Promotion, error) {
	if s == nil || s.Store == nil {
		return Promotion{}, errors.New("promotion service not configured")
	}
	if payload.ID == "" {
		payload.ID = uuid.NewString()
	}
	p, err := Parse(payload)
	if err != nil {
		return Promotion{}, err
	}
	created, err := s.Store.Create(ctx, p)
	if err != nil {
		return Promotion{}, err
	}
	if err := s.Cache.Invalidate(ctx); err != nil {
		s.Logger.Warn().Err(err).Msg("promo cache invalidate failed")
	}
	return created, nil
}

// Update validates and replaces an existing promotion, then drops the cache.
func (s *Service) Update(ctx context.Context, id string, payload Payload) (Promotion, error) {
	if s == nil || s.Store == nil {
		return Promotion{}, errors.New("promotion service not configured")
	}
	payload.ID = id
	p, err := Parse(payload)
	if err != nil {
		return Promotion{}, err
	}
	if err := s.Store.Update(ctx, p); err != nil {
		return Promotion{}, err
	}
	if err := s.Cache.Invalidate(ctx); err != nil {
		s.Logger.Warn().Err(err).Msg("promo cache invalidate failed")
	}
	return p, nil
}
