package directory

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"deskbook/internal/models"
)

type mockLister struct {
	mock.Mock
}

func (m *mockLister) ListDesks(ctx context.Context) ([]models.Desk, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Desk), args.Error(1)
}

func newTestCache(lister Lister) *Cache {
	logger := zerolog.New(io.Discard)
	c := New(lister, &logger)
	c.now = func() time.Time { return time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC) }
	return c
}

func sampleDesks() []models.Desk {
	return []models.Desk{
		{ID: models.NumberID(2), Name: "Desk B"},
		{ID: models.NumberID(1), Name: "Desk A", Bookings: map[string]models.BookingStatus{
			"2024-06-10": {IsAvailable: false, EmployeeName: "Alice"},
		}},
	}
}

func TestCache_Refresh(t *testing.T) {
	lister := new(mockLister)
	ctx := context.Background()
	lister.On("ListDesks", ctx).Return(sampleDesks(), nil).Once()

	c := newTestCache(lister)
	assert.True(t, c.RefreshedAt().IsZero())
	require.NoError(t, c.Refresh(ctx))

	desks := c.Desks()
	require.Len(t, desks, 2)
	assert.Equal(t, models.NumberID(1), desks[0].ID, "desks are ordered by id")
	assert.Equal(t, time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC), c.RefreshedAt())
	assert.NoError(t, c.LastError())

	desk, ok := c.Desk("1")
	require.True(t, ok)
	assert.Equal(t, "Desk A", desk.Name)

	_, ok = c.Desk("99")
	assert.False(t, ok)
	lister.AssertExpectations(t)
}

func TestCache_BookingFor(t *testing.T) {
	lister := new(mockLister)
	lister.On("ListDesks", mock.Anything).Return(sampleDesks(), nil)
	c := newTestCache(lister)
	require.NoError(t, c.Refresh(context.Background()))

	assert.Equal(t, models.BookingStatus{IsAvailable: false, EmployeeName: "Alice"}, c.BookingFor("1", "2024-06-10"))
	assert.Equal(t, models.BookingStatus{IsAvailable: true, EmployeeName: ""}, c.BookingFor("1", "2024-06-11"))
	assert.Equal(t, models.BookingStatus{IsAvailable: true, EmployeeName: ""}, c.BookingFor("2", "2024-06-10"))
	assert.Equal(t, models.BookingStatus{IsAvailable: true, EmployeeName: ""}, c.BookingFor("404", "2024-06-10"))
}

func TestCache_StaleOnError(t *testing.T) {
	lister := new(mockLister)
	ctx := context.Background()
	lister.On("ListDesks", ctx).Return(sampleDesks(), nil).Once()
	boom := errors.New("connection refused")
	lister.On("ListDesks", ctx).Return(nil, boom).Once()

	c := newTestCache(lister)
	require.NoError(t, c.Refresh(ctx))
	refreshedAt := c.RefreshedAt()

	err := c.Refresh(ctx)
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, c.LastError(), boom)
	assert.Len(t, c.Desks(), 2, "last known desks are kept")
	assert.Equal(t, "Alice", c.BookingFor("1", "2024-06-10").EmployeeName)
	assert.Equal(t, refreshedAt, c.RefreshedAt())
	lister.AssertExpectations(t)
}

func TestCache_ReplacesWholesale(t *testing.T) {
	lister := new(mockLister)
	ctx := context.Background()
	lister.On("ListDesks", ctx).Return(sampleDesks(), nil).Once()
	lister.On("ListDesks", ctx).Return([]models.Desk{{ID: models.NumberID(3), Name: "Desk C"}}, nil).Once()

	c := newTestCache(lister)
	require.NoError(t, c.Refresh(ctx))
	require.NoError(t, c.Refresh(ctx))

	desks := c.Desks()
	require.Len(t, desks, 1)
	assert.Equal(t, models.NumberID(3), desks[0].ID)
	_, ok := c.Desk("1")
	assert.False(t, ok, "no partial merge with the previous list")
	assert.True(t, c.BookingFor("1", "2024-06-10").IsAvailable)
}

func TestCache_ReturnsCopies(t *testing.T) {
	lister := new(mockLister)
	lister.On("ListDesks", mock.Anything).Return(sampleDesks(), nil)
	c := newTestCache(lister)
	require.NoError(t, c.Refresh(context.Background()))

	desks := c.Desks()
	desks[0].Bookings["2024-06-10"] = models.Available
	desks[0].Name = "mutated"

	desk, _ := c.Desk("1")
	assert.Equal(t, "Desk A", desk.Name)
	assert.False(t, c.BookingFor("1", "2024-06-10").IsAvailable)
}

func TestCache_ConcurrentReadsDuringRefresh(t *testing.T) {
	lister := new(mockLister)
	lister.On("ListDesks", mock.Anything).Return(sampleDesks(), nil)
	c := newTestCache(lister)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = c.Refresh(ctx)
		}()
		go func() {
			defer wg.Done()
			_ = c.Desks()
			_ = c.BookingFor("1", "2024-06-10")
		}()
	}
	wg.Wait()
	assert.Len(t, c.Desks(), 2)
}
