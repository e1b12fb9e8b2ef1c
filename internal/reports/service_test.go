package reports

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRepo struct {
	stockRows   []StockLevel
	stockCalls  int
	lowRows     []StockLevel
	lowCalls    int
	salesRows   []SalesSummaryRow
	salesCalls  int
	salesFilter SalesFilter
	occRep      OccupancyReport
	occCalls    int
}

func (m *mockRepo) StockLevels(ctx context.Context, filter StockFilter) ([]StockLevel, error) {
	m.stockCalls++
	return m.stockRows, nil
}

func (m *mockRepo) LowStock(ctx context.Context, filter StockFilter) ([]StockLevel, error) {
	m.lowCalls++
	return m.lowRows, nil
}

func (m *mockRepo) SalesSummary(ctx context.Context, filter SalesFilter) ([]SalesSummaryRow, error) {
	m.salesCalls++
	m.salesFilter = filter
	return m.salesRows, nil
}

func (m *mockRepo) Occupancy(ctx context.Context, filter OccupancyFilter) (OccupancyReport, error) {
	m.occCalls++
	rep := m.occRep
	rep.From = filter.From
	rep.To = filter.To
	return rep, nil
}

func newTestService(t *testing.T, repo RepositoryPort) *Service {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewService(repo, NewCache(client, time.Minute))
}

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestSalesSummaryCachesUntilBump(t *testing.T) {
	repo := &mockRepo{
		salesRows: []SalesSummaryRow{{BranchID: 1, BranchName: "Downtown", SaleCount: 4, Revenue: 310.5}},
	}
	svc := newTestService(t, repo)
	ctx := context.Background()
	filter := SalesFilter{From: day("2026-08-01"), To: day("2026-09-01")}

	rows, err := svc.SalesSummary(ctx, filter)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 310.5, rows[0].Revenue)
	assert.Equal(t, 1, repo.salesCalls)

	_, err = svc.SalesSummary(ctx, filter)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.salesCalls, "second call should be served from cache")

	require.NoError(t, svc.Invalidate(ctx))
	repo.salesRows[0].Revenue = 500

	rows, err = svc.SalesSummary(ctx, filter)
	require.NoError(t, err)
	assert.Equal(t, 500.0, rows[0].Revenue)
	assert.Equal(t, 2, repo.salesCalls, "bump should force a reload")
}

func TestOccupancyDerivesRate(t *testing.T) {
	repo := &mockRepo{occRep: OccupancyReport{RoomCount: 5, OccupiedNights: 14}}
	svc := newTestService(t, repo)

	rep, err := svc.Occupancy(context.Background(), OccupancyFilter{From: day("2026-08-01"), To: day("2026-08-08")})
	require.NoError(t, err)
	assert.Equal(t, int64(5), rep.RoomCount)
	assert.Equal(t, int64(35), rep.AvailableNights)
	assert.Equal(t, int64(14), rep.OccupiedNights)
	assert.InDelta(t, 0.4, rep.OccupancyRate, 1e-9)
}

func TestOccupancyZeroRoomsNoDivide(t *testing.T) {
	repo := &mockRepo{occRep: OccupancyReport{RoomCount: 0, OccupiedNights: 0}}
	svc := newTestService(t, repo)

	rep, err := svc.Occupancy(context.Background(), OccupancyFilter{From: day("2026-08-01"), To: day("2026-08-02")})
	require.NoError(t, err)
	assert.Zero(t, rep.AvailableNights)
	assert.Zero(t, rep.OccupancyRate)
}

func TestInvalidWindowsRejected(t *testing.T) {
	svc := newTestService(t, &mockRepo{})
	ctx := context.Background()

	_, err := svc.SalesSummary(ctx, SalesFilter{From: day("2026-08-10"), To: day("2026-08-10")})
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, err = svc.Occupancy(ctx, OccupancyFilter{From: day("2026-08-10"), To: day("2026-08-01")})
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, err = svc.Dashboard(ctx, DashboardFilter{From: day("2026-08-10"), To: day("2026-08-01")})
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestDashboardAggregatesWidgets(t *testing.T) {
	repo := &mockRepo{
		lowRows: []StockLevel{
			{LocationID: 2, LocationName: "Downtown", ProductName: "Cat food", OnHand: 1, MinQty: 5},
		},
		salesRows: []SalesSummaryRow{{BranchID: 2, BranchName: "Downtown", SaleCount: 3, Revenue: 99.9}},
		occRep:    OccupancyReport{RoomCount: 4, OccupiedNights: 8},
	}
	svc := newTestService(t, repo)

	dash, err := svc.Dashboard(context.Background(), DashboardFilter{From: day("2026-08-01"), To: day("2026-08-08")})
	require.NoError(t, err)
	require.Len(t, dash.LowStock, 1)
	assert.Equal(t, "Cat food", dash.LowStock[0].ProductName)
	require.Len(t, dash.Sales, 1)
	assert.Equal(t, int64(3), dash.Sales[0].SaleCount)
	assert.Equal(t, int64(28), dash.Occupancy.AvailableNights)
	assert.Equal(t, 1, repo.lowCalls)
	assert.Equal(t, 1, repo.salesCalls)
	assert.Equal(t, 1, repo.occCalls)
}

func TestStockLevelsWorkWithoutRedis(t *testing.T) {
	repo := &mockRepo{
		stockRows: []StockLevel{{LocationID: 1, LocationName: "Main", ProductName: "Litter", OnHand: 12, MinQty: 3}},
	}
	svc := NewService(repo, NewCache(nil, time.Minute))

	rows, err := svc.StockLevels(context.Background(), StockFilter{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(12), rows[0].OnHand)

	_, err = svc.StockLevels(context.Background(), StockFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, repo.stockCalls, "no cache means every call reaches the repository")
}
