package reports

import (
	"context"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// RepositoryPort abstracts the aggregate queries for the service.
type RepositoryPort interface {
	StockLevels(ctx context.Context, filter StockFilter) ([]StockLevel, error)
	LowStock(ctx context.Context, filter StockFilter) ([]StockLevel, error)
	SalesSummary(ctx context.Context, filter SalesFilter) ([]SalesSummaryRow, error)
	Occupancy(ctx context.Context, filter OccupancyFilter) (OccupancyReport, error)
}

// Service resolves reports through the cache and deduplicates
// concurrent dashboard builds.
type Service struct {
	repo   RepositoryPort
	cache  *Cache
	flight singleflight.Group
}

// NewService wires the repository with the cache helper.
func NewService(repo RepositoryPort, cache *Cache) *Service {
	return &Service{repo: repo, cache: cache}
}

// StockLevels returns the on-hand report, optionally scoped to a location.
func (s *Service) StockLevels(ctx context.Context, filter StockFilter) ([]StockLevel, error) {
	loader := func(ctx context.Context) (interface{}, error) {
		return s.repo.StockLevels(ctx, filter)
	}
	var out []StockLevel
	if err := s.fetch(ctx, keyStockLevels(filter.LocationID), &out, loader); err != nil {
		return nil, err
	}
	return out, nil
}

// LowStock returns rows below their minimum quantity.
func (s *Service) LowStock(ctx context.Context, filter StockFilter) ([]StockLevel, error) {
	loader := func(ctx context.Context) (interface{}, error) {
		return s.repo.LowStock(ctx, filter)
	}
	var out []StockLevel
	if err := s.fetch(ctx, keyLowStock(filter.LocationID), &out, loader); err != nil {
		return nil, err
	}
	return out, nil
}

// SalesSummary aggregates completed sales per branch over the window.
func (s *Service) SalesSummary(ctx context.Context, filter SalesFilter) ([]SalesSummaryRow, error) {
	if !filter.To.After(filter.From) {
		return nil, ErrInvalidRange
	}
	loader := func(ctx context.Context) (interface{}, error) {
		return s.repo.SalesSummary(ctx, filter)
	}
	var out []SalesSummaryRow
	if err := s.fetch(ctx, keySalesSummary(filter), &out, loader); err != nil {
		return nil, err
	}
	return out, nil
}

// Occupancy reports room utilisation for the window and derives the
// occupancy rate from the row counts.
func (s *Service) Occupancy(ctx context.Context, filter OccupancyFilter) (OccupancyReport, error) {
	if !filter.To.After(filter.From) {
		return OccupancyReport{}, ErrInvalidRange
	}
	loader := func(ctx context.Context) (interface{}, error) {
		rep, err := s.repo.Occupancy(ctx, filter)
		if err != nil {
			return OccupancyReport{}, err
		}
		nights := int64(filter.To.Sub(filter.From) / (24 * time.Hour))
		rep.AvailableNights = rep.RoomCount * nights
		if rep.AvailableNights > 0 {
			rep.OccupancyRate = float64(rep.OccupiedNights) / float64(rep.AvailableNights)
		}
		return rep, nil
	}
	var rep OccupancyReport
	if err := s.fetch(ctx, keyOccupancy(filter), &rep, loader); err != nil {
		return OccupancyReport{}, err
	}
	return rep, nil
}

// Dashboard fetches the overview widgets concurrently. Concurrent
// requests for the same window share a single build.
func (s *Service) Dashboard(ctx context.Context, filter DashboardFilter) (Dashboard, error) {
	if !filter.To.After(filter.From) {
		return Dashboard{}, ErrInvalidRange
	}
	key := strings.Join([]string{
		"dashboard",
		filter.From.Format("2006-01-02"),
		filter.To.Format("2006-01-02"),
	}, ":")
	resultChan := s.flight.DoChan(key, func() (interface{}, error) {
		return s.buildDashboard(ctx, filter)
	})
	select {
	case <-ctx.Done():
		return Dashboard{}, ctx.Err()
	case res := <-resultChan:
		if res.Err != nil {
			return Dashboard{}, res.Err
		}
		return res.Val.(Dashboard), nil
	}
}

// Invalidate drops every cached report by bumping the cache version.
func (s *Service) Invalidate(ctx context.Context) error {
	return s.cache.Bump(ctx)
}

func (s *Service) buildDashboard(ctx context.Context, filter DashboardFilter) (Dashboard, error) {
	var dash Dashboard
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		rows, err := s.LowStock(ctx, StockFilter{})
		if err != nil {
			return err
		}
		dash.LowStock = rows
		return nil
	})

	g.Go(func() error {
		rows, err := s.SalesSummary(ctx, SalesFilter{From: filter.From, To: filter.To})
		if err != nil {
			return err
		}
		dash.Sales = rows
		return nil
	})

	g.Go(func() error {
		rep, err := s.Occupancy(ctx, OccupancyFilter{From: filter.From, To: filter.To})
		if err != nil {
			return err
		}
		dash.Occupancy = rep
		return nil
	})

	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}
	return dash, nil
}

func (s *Service) fetch(ctx context.Context, keyBase string, dest interface{}, loader func(context.Context) (interface{}, error)) error {
	key, err := s.cache.BuildKey(ctx, keyBase)
	if err != nil {
		return err
	}
	return s.cache.FetchJSON(ctx, key, dest, loader)
}
